package wire

import "slices"

// CommitmentLevel is how finalized an update must be before the feed delivers it
type CommitmentLevel int32

// CommitmentLevel values, numbered as on the wire
const (
	Processed CommitmentLevel = 0
	Confirmed CommitmentLevel = 1
	Finalized CommitmentLevel = 2
)

func (c CommitmentLevel) String() string {
	switch c {
	case Processed:
		return "processed"
	case Confirmed:
		return "confirmed"
	case Finalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// ParseCommitmentLevel converts a commitment name into a CommitmentLevel
func ParseCommitmentLevel(s string) (CommitmentLevel, bool) {
	switch s {
	case "processed":
		return Processed, true
	case "confirmed":
		return Confirmed, true
	case "finalized":
		return Finalized, true
	default:
		return 0, false
	}
}

// SubscribeRequest is the message sent on the Subscribe stream.
//
// Each map is one independently subscribable section keyed by an arbitrary
// label. An empty map means "do not subscribe to that section".
type SubscribeRequest struct {
	Accounts     map[string]*AccountsFilterSet
	Transactions map[string]*TransactionsFilter
	Blocks       map[string]*BlocksFilter
	BlocksMeta   map[string]*BlocksMetaFilter
	Commitment   *CommitmentLevel
	Ping         *Ping
}

// AccountsFilterSet selects account updates by address, by owner program and by
// account data
type AccountsFilterSet struct {
	Account              []string
	Owner                []string
	Filters              []AccountsFilter
	NonemptyTxnSignature *bool
}

// AccountsFilter is a byte-level sub-filter applied to account data. Exactly one
// of the fields is set.
type AccountsFilter struct {
	Memcmp            *Memcmp
	Datasize          *uint64
	TokenAccountState *bool
	Lamports          *LamportsFilter
}

// Clone returns a deep copy of f
func (f AccountsFilter) Clone() AccountsFilter {
	res := AccountsFilter{}
	if f.Memcmp != nil {
		m := *f.Memcmp
		m.Bytes = slices.Clone(m.Bytes)
		res.Memcmp = &m
	}
	if f.Datasize != nil {
		res.Datasize = Uint64(*f.Datasize)
	}
	if f.TokenAccountState != nil {
		res.TokenAccountState = Bool(*f.TokenAccountState)
	}
	if f.Lamports != nil {
		l := *f.Lamports
		res.Lamports = &l
	}
	return res
}

// Memcmp matches account data at Offset against exactly one of Bytes, Base58 or
// Base64
type Memcmp struct {
	Offset uint64
	Bytes  []byte
	Base58 string
	Base64 string
}

// LamportsCmp is the comparison applied by LamportsFilter
type LamportsCmp int

// LamportsCmp values, numbered as the wire fields
const (
	LamportsEq LamportsCmp = 1
	LamportsNe LamportsCmp = 2
	LamportsLt LamportsCmp = 3
	LamportsGt LamportsCmp = 4
)

// LamportsFilter compares the account balance with Value
type LamportsFilter struct {
	Cmp   LamportsCmp
	Value uint64
}

// TransactionsFilter selects transactions by the accounts they touch
type TransactionsFilter struct {
	Vote            *bool
	Failed          *bool
	Signature       *string
	AccountInclude  []string
	AccountExclude  []string
	AccountRequired []string
}

// BlocksFilter selects full blocks
type BlocksFilter struct {
	AccountInclude      []string
	IncludeTransactions *bool
	IncludeAccounts     *bool
	IncludeEntries      *bool
}

// BlocksMetaFilter selects block metadata. It has no parameters.
type BlocksMetaFilter struct{}

// Ping asks the server to answer with a Pong carrying the same ID
type Ping struct {
	ID int32
}

// Bool returns a pointer to b, for optional request fields
func Bool(b bool) *bool {
	return &b
}

// Uint64 returns a pointer to v, for optional request fields
func Uint64(v uint64) *uint64 {
	return &v
}

// Commitment returns a pointer to c, for optional request fields
func Commitment(c CommitmentLevel) *CommitmentLevel {
	return &c
}

package wire

import (
	"time"
)

// UpdateKind tells which part of SubscribeUpdate is set
type UpdateKind int

// UpdateKind values
const (
	KindUnknown UpdateKind = iota
	KindAccount
	KindSlot
	KindTransaction
	KindBlock
	KindBlockMeta
	KindPing
	KindPong
)

func (k UpdateKind) String() string {
	switch k {
	case KindAccount:
		return "account"
	case KindSlot:
		return "slot"
	case KindTransaction:
		return "transaction"
	case KindBlock:
		return "block"
	case KindBlockMeta:
		return "blockMeta"
	case KindPing:
		return "ping"
	case KindPong:
		return "pong"
	default:
		return "unknown"
	}
}

// SubscribeUpdate is a message received on the Subscribe stream.
//
// At most one of the update pointers is set.
type SubscribeUpdate struct {
	Filters   []string // labels of the request sections that matched
	CreatedAt time.Time

	Account     *AccountUpdate
	Slot        *SlotUpdate
	Transaction *TransactionUpdate
	Block       *BlockUpdate
	BlockMeta   *BlockMetaUpdate
	Ping        *PingUpdate
	Pong        *PongUpdate
}

// Kind returns the kind of the update
func (u *SubscribeUpdate) Kind() UpdateKind {
	switch {
	case u.Account != nil:
		return KindAccount
	case u.Slot != nil:
		return KindSlot
	case u.Transaction != nil:
		return KindTransaction
	case u.Block != nil:
		return KindBlock
	case u.BlockMeta != nil:
		return KindBlockMeta
	case u.Ping != nil:
		return KindPing
	case u.Pong != nil:
		return KindPong
	default:
		return KindUnknown
	}
}

// SlotNumber returns the slot the update refers to, or 0 for pings and pongs
func (u *SubscribeUpdate) SlotNumber() uint64 {
	switch {
	case u.Account != nil:
		return u.Account.Slot
	case u.Slot != nil:
		return u.Slot.Slot
	case u.Transaction != nil:
		return u.Transaction.Slot
	case u.Block != nil:
		return u.Block.Slot
	case u.BlockMeta != nil:
		return u.BlockMeta.Slot
	default:
		return 0
	}
}

// AccountUpdate reports a changed account
type AccountUpdate struct {
	Account   AccountInfo
	Slot      uint64
	IsStartup bool
}

// AccountInfo is the state of an account after a change
type AccountInfo struct {
	Pubkey       []byte
	Lamports     uint64
	Owner        []byte
	Executable   bool
	RentEpoch    uint64
	Data         []byte
	WriteVersion uint64
	TxnSignature []byte
}

// SlotStatus is the status carried by a slot update
type SlotStatus int32

// SlotStatus values, numbered as on the wire
const (
	SlotProcessed SlotStatus = 0
	SlotConfirmed SlotStatus = 1
	SlotFinalized SlotStatus = 2
)

// SlotUpdate reports a slot status change
type SlotUpdate struct {
	Slot   uint64
	Parent *uint64
	Status SlotStatus
}

// TransactionUpdate reports a transaction
type TransactionUpdate struct {
	Transaction TransactionInfo
	Slot        uint64
}

// TransactionInfo is a transaction with its execution status
type TransactionInfo struct {
	Signature []byte
	IsVote    bool
	Index     uint64

	Signatures [][]byte
	Message    Message
	Meta       TransactionMeta
}

// AccountKeys returns the static account keys followed by the writable and
// readonly keys loaded from address lookup tables, which is the order
// instruction account indices refer to
func (ti *TransactionInfo) AccountKeys() [][]byte {
	keys := make([][]byte, 0, len(ti.Message.AccountKeys)+len(ti.Meta.LoadedWritableAddresses)+len(ti.Meta.LoadedReadonlyAddresses))
	keys = append(keys, ti.Message.AccountKeys...)
	keys = append(keys, ti.Meta.LoadedWritableAddresses...)
	keys = append(keys, ti.Meta.LoadedReadonlyAddresses...)
	return keys
}

// Message is the signed part of a transaction
type Message struct {
	AccountKeys     [][]byte
	RecentBlockhash []byte
	Instructions    []CompiledInstruction
	Versioned       bool
}

// CompiledInstruction is an instruction referring to accounts by index
type CompiledInstruction struct {
	ProgramIDIndex uint32
	Accounts       []byte
	Data           []byte
}

// InnerInstructions are the instructions invoked by the top-level instruction
// number Index
type InnerInstructions struct {
	Index        uint32
	Instructions []InnerInstruction
}

// InnerInstruction is an instruction invoked through CPI
type InnerInstruction struct {
	ProgramIDIndex uint32
	Accounts       []byte
	Data           []byte
	StackHeight    *uint32
}

// TransactionMeta is the execution status of a transaction
type TransactionMeta struct {
	Failed                  bool // the error field was present
	Fee                     uint64
	InnerInstructions       []InnerInstructions
	LogMessages             []string
	LoadedWritableAddresses [][]byte
	LoadedReadonlyAddresses [][]byte
	ComputeUnitsConsumed    *uint64
}

// BlockUpdate is a full block
type BlockUpdate struct {
	Slot                     uint64
	Blockhash                string
	BlockTime                *int64
	BlockHeight              *uint64
	ParentSlot               uint64
	ParentBlockhash          string
	ExecutedTransactionCount uint64
	Transactions             []TransactionInfo
	UpdatedAccountCount      uint64
	EntriesCount             uint64
}

// BlockMetaUpdate is block metadata without transactions
type BlockMetaUpdate struct {
	Slot                     uint64
	Blockhash                string
	BlockTime                *int64
	BlockHeight              *uint64
	ParentSlot               uint64
	ParentBlockhash          string
	ExecutedTransactionCount uint64
	EntriesCount             uint64
}

// PingUpdate is a keep-alive sent by the server
type PingUpdate struct{}

// PongUpdate answers a Ping request
type PongUpdate struct {
	ID int32
}

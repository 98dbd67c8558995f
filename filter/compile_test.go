package filter

import (
	"fmt"
	"testing"

	"github.com/ridge/solstream/event"
	"github.com/ridge/solstream/wire"
	"github.com/stretchr/testify/require"
)

var defaultBlocks = map[string]*wire.BlocksFilter{
	"": {IncludeTransactions: wire.Bool(true), IncludeAccounts: wire.Bool(false), IncludeEntries: wire.Bool(false)},
}

var defaultBlocksMeta = map[string]*wire.BlocksMetaFilter{"": {}}

func TestBlockTable(t *testing.T) {
	tcs := []struct {
		name       string
		eventTypes *EventTypeFilter
		include    bool
	}{
		{"absent", nil, true},
		{"includes block", Types(event.BlockMeta), true},
		{"includes block and more", Types(event.PumpFunTrade, event.BlockMeta), true},
		{"excludes block", Types(event.PumpFunTrade, event.ProgramAccount), false},
		{"empty", Types(), false},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			req := Compile(nil, nil, tc.eventTypes, nil)
			if tc.include {
				require.Equal(t, defaultBlocks, req.Blocks)
				require.Equal(t, defaultBlocksMeta, req.BlocksMeta)
			} else {
				require.NotNil(t, req.Blocks)
				require.NotNil(t, req.BlocksMeta)
				require.Empty(t, req.Blocks)
				require.Empty(t, req.BlocksMeta)
			}
		})
	}
}

func TestExcludingBlockEmptiesBlockSections(t *testing.T) {
	for _, typ := range event.AllTypes() {
		if typ.Category() == event.CategoryBlock {
			continue
		}
		req := Compile([]AccountFilter{{Owner: []string{"PGM1"}}}, []TransactionFilter{{AccountInclude: []string{"PGM1"}}}, Types(typ), nil)
		require.Empty(t, req.Blocks, typ)
		require.Empty(t, req.BlocksMeta, typ)
	}
}

func TestAccountLabels(t *testing.T) {
	var accounts []AccountFilter
	for i := range 5 {
		size := uint64(i)
		accounts = append(accounts, AccountFilter{
			Account: []string{fmt.Sprintf("acc%d", i)},
			Owner:   []string{fmt.Sprintf("owner%d", i)},
			Filters: []wire.AccountsFilter{{Datasize: &size}},
		})
	}

	for _, eventTypes := range []*EventTypeFilter{nil, Types(event.ProgramAccount)} {
		req := Compile(accounts, nil, eventTypes, nil)
		require.Len(t, req.Accounts, len(accounts))
		for i, af := range accounts {
			set := req.Accounts[fmt.Sprintf("account_%d", i)]
			require.NotNil(t, set)
			require.Equal(t, af.Account, set.Account)
			require.Equal(t, af.Owner, set.Owner)
			require.Equal(t, af.Filters, set.Filters)
			require.Nil(t, set.NonemptyTxnSignature)
		}
	}
}

func TestAccountsOmitted(t *testing.T) {
	req := Compile(nil, nil, nil, nil)
	require.NotNil(t, req.Accounts)
	require.Empty(t, req.Accounts)

	req = Compile([]AccountFilter{{Owner: []string{"PGM1"}}}, nil, Types(event.PumpFunTrade), nil)
	require.NotNil(t, req.Accounts)
	require.Empty(t, req.Accounts)
}

func TestTransactionsOmitted(t *testing.T) {
	transactions := []TransactionFilter{{AccountInclude: []string{"a"}}, {AccountRequired: []string{"b"}}}
	for _, eventTypes := range []*EventTypeFilter{Types(), Types(event.ProgramAccount), Types(event.BlockMeta, event.PumpFunBondingCurve)} {
		req := Compile(nil, transactions, eventTypes, nil)
		require.NotNil(t, req.Transactions)
		require.Empty(t, req.Transactions)
	}
}

func TestTransactionFixedPolicy(t *testing.T) {
	tf := TransactionFilter{
		AccountInclude:  []string{"a", "b"},
		AccountExclude:  []string{"a"}, // conflicting sets pass through
		AccountRequired: []string{"c"},
	}
	req := Compile(nil, []TransactionFilter{tf}, nil, nil)
	require.Equal(t, map[string]*wire.TransactionsFilter{
		"transaction_0": {
			Vote:            wire.Bool(false),
			Failed:          wire.Bool(false),
			AccountInclude:  []string{"a", "b"},
			AccountExclude:  []string{"a"},
			AccountRequired: []string{"c"},
		},
	}, req.Transactions)
	require.Nil(t, req.Transactions["transaction_0"].Signature)
}

func TestCommitment(t *testing.T) {
	require.Equal(t, wire.Processed, *Compile(nil, nil, nil, nil).Commitment)
	require.Equal(t, wire.Finalized, *Compile(nil, nil, nil, wire.Commitment(wire.Finalized)).Commitment)
}

func TestCompileDeterministic(t *testing.T) {
	accounts := []AccountFilter{{Owner: []string{"o1"}}, {Account: []string{"a1", "a2"}}}
	transactions := []TransactionFilter{{AccountInclude: []string{"p1"}}, {AccountInclude: []string{"p2"}}, {AccountExclude: []string{"p3"}}}

	first := wire.EncodeRequest(Compile(accounts, transactions, nil, nil))
	for range 10 {
		require.Equal(t, first, wire.EncodeRequest(Compile(accounts, transactions, nil, nil)))
	}
}

func TestCompiledRequestOwnsFilters(t *testing.T) {
	accounts := []AccountFilter{{
		Owner:   []string{"o1"},
		Filters: []wire.AccountsFilter{{Memcmp: &wire.Memcmp{Offset: 8, Bytes: []byte{1}}}, {Datasize: wire.Uint64(165)}},
	}}
	transactions := []TransactionFilter{{AccountInclude: []string{"p1"}}}
	req := Compile(accounts, transactions, nil, nil)
	first := wire.EncodeRequest(req)

	accounts[0].Owner[0] = "o2"
	accounts[0].Filters[0].Memcmp.Bytes[0] = 2
	*accounts[0].Filters[1].Datasize = 0
	transactions[0].AccountInclude[0] = "p2"

	require.Equal(t, first, wire.EncodeRequest(req))
	require.Equal(t, []string{"o1"}, req.Accounts["account_0"].Owner)
	require.Equal(t, []string{"p1"}, req.Transactions["transaction_0"].AccountInclude)
}

func TestScenarioDefaults(t *testing.T) {
	req := Compile(
		[]AccountFilter{{Owner: []string{"PGM1"}}},
		[]TransactionFilter{{AccountInclude: []string{"PGM1"}}},
		nil, nil)

	require.Len(t, req.Accounts, 1)
	require.Len(t, req.Transactions, 1)
	require.Len(t, req.Blocks, 1)
	require.Len(t, req.BlocksMeta, 1)
	require.Equal(t, wire.Processed, *req.Commitment)
	require.Equal(t, []string{"PGM1"}, req.Accounts["account_0"].Owner)
	require.Equal(t, []string{"PGM1"}, req.Transactions["transaction_0"].AccountInclude)
}

func TestScenarioTransactionsOnly(t *testing.T) {
	req := Compile(
		[]AccountFilter{{Owner: []string{"PGM1"}}},
		[]TransactionFilter{{AccountInclude: []string{"PGM1"}}},
		Types(event.PumpFunTrade, event.PumpFunCreateToken), nil)

	require.Empty(t, req.Accounts)
	require.Len(t, req.Transactions, 1)
	require.Empty(t, req.Blocks)
	require.Empty(t, req.BlocksMeta)
}

func TestEventTypeFilter(t *testing.T) {
	var absent *EventTypeFilter
	require.True(t, absent.Allows(event.BlockMeta))
	require.True(t, absent.IncludesAccountEvents())

	f := Types(event.PumpFunTrade)
	require.True(t, f.Allows(event.PumpFunTrade))
	require.False(t, f.Allows(event.PumpFunCreateToken))
	require.True(t, f.IncludesTransactionEvents())
	require.False(t, f.IncludesAccountEvents())
	require.False(t, f.IncludesBlockEvents())
}

func TestForPrograms(t *testing.T) {
	accounts, transactions := ForPrograms([]string{"p1", "p2"})
	require.Equal(t, []AccountFilter{{Owner: []string{"p1", "p2"}}}, accounts)
	require.Equal(t, []TransactionFilter{{AccountInclude: []string{"p1", "p2"}}}, transactions)

	accounts, transactions = ForPrograms(nil)
	require.Nil(t, accounts)
	require.Nil(t, transactions)
}

package filter

import (
	"fmt"
	"slices"

	"github.com/ridge/solstream/wire"
)

type blockState int

const (
	blockFilterAbsent blockState = iota
	blockFilterIncludes
	blockFilterExcludes
)

type blockSections struct {
	blocksMeta bool
	blocks     bool
}

// blockTable decides the block and block-meta sections
var blockTable = map[blockState]blockSections{
	blockFilterAbsent:   {blocksMeta: true, blocks: true},
	blockFilterIncludes: {blocksMeta: true, blocks: true},
	blockFilterExcludes: {blocksMeta: false, blocks: false},
}

func blockStateOf(f *EventTypeFilter) blockState {
	switch {
	case f == nil:
		return blockFilterAbsent
	case f.IncludesBlockEvents():
		return blockFilterIncludes
	default:
		return blockFilterExcludes
	}
}

// Compile turns the filters into a subscription request.
//
// Sections disabled by eventTypes are empty maps, never nil. Labels depend on
// input positions only, so equal inputs compile to equal requests. Commitment
// defaults to wire.Processed.
func Compile(accounts []AccountFilter, transactions []TransactionFilter, eventTypes *EventTypeFilter, commitment *wire.CommitmentLevel) *wire.SubscribeRequest {
	req := &wire.SubscribeRequest{
		Accounts:     map[string]*wire.AccountsFilterSet{},
		Transactions: map[string]*wire.TransactionsFilter{},
		Blocks:       map[string]*wire.BlocksFilter{},
		BlocksMeta:   map[string]*wire.BlocksMetaFilter{},
	}

	if eventTypes.IncludesAccountEvents() {
		for i, af := range accounts {
			req.Accounts[fmt.Sprintf("account_%d", i)] = &wire.AccountsFilterSet{
				Account: slices.Clone(af.Account),
				Owner:   slices.Clone(af.Owner),
				Filters: cloneFilters(af.Filters),
			}
		}
	}

	if eventTypes.IncludesTransactionEvents() {
		for i, tf := range transactions {
			req.Transactions[fmt.Sprintf("transaction_%d", i)] = &wire.TransactionsFilter{
				Vote:            wire.Bool(false),
				Failed:          wire.Bool(false),
				AccountInclude:  slices.Clone(tf.AccountInclude),
				AccountExclude:  slices.Clone(tf.AccountExclude),
				AccountRequired: slices.Clone(tf.AccountRequired),
			}
		}
	}

	sections := blockTable[blockStateOf(eventTypes)]
	if sections.blocksMeta {
		req.BlocksMeta[""] = &wire.BlocksMetaFilter{}
	}
	if sections.blocks {
		req.Blocks[""] = &wire.BlocksFilter{
			IncludeTransactions: wire.Bool(true),
			IncludeAccounts:     wire.Bool(false),
			IncludeEntries:      wire.Bool(false),
		}
	}

	c := wire.Processed
	if commitment != nil {
		c = *commitment
	}
	req.Commitment = &c

	return req
}

func cloneFilters(filters []wire.AccountsFilter) []wire.AccountsFilter {
	if filters == nil {
		return nil
	}
	res := make([]wire.AccountsFilter, 0, len(filters))
	for _, f := range filters {
		res = append(res, f.Clone())
	}
	return res
}

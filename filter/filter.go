// Package filter describes what a subscriber wants to receive and compiles it
// into a feed subscription request
package filter

import (
	"github.com/ridge/solstream/event"
	"github.com/ridge/solstream/wire"
)

// AccountFilter selects account updates.
//
// An empty Account set with a non-empty Owner set matches every account owned
// by one of the owners.
type AccountFilter struct {
	Account []string
	Owner   []string
	Filters []wire.AccountsFilter
}

// TransactionFilter selects transactions by the accounts they touch
type TransactionFilter struct {
	AccountInclude  []string // at least one of
	AccountExclude  []string // none of
	AccountRequired []string // all of
}

// EventTypeFilter restricts delivered events to the listed types.
//
// A nil *EventTypeFilter means no restriction.
type EventTypeFilter struct {
	Include []event.Type
}

// Types returns a filter including exactly the given types
func Types(types ...event.Type) *EventTypeFilter {
	return &EventTypeFilter{Include: types}
}

func (f *EventTypeFilter) includesCategory(c event.Category) bool {
	if f == nil {
		return true
	}
	for _, t := range f.Include {
		if t.Category() == c {
			return true
		}
	}
	return false
}

// IncludesAccountEvents reports whether any account event type passes the filter
func (f *EventTypeFilter) IncludesAccountEvents() bool {
	return f.includesCategory(event.CategoryAccount)
}

// IncludesTransactionEvents reports whether any transaction event type passes the filter
func (f *EventTypeFilter) IncludesTransactionEvents() bool {
	return f.includesCategory(event.CategoryTransaction)
}

// IncludesBlockEvents reports whether any block event type passes the filter
func (f *EventTypeFilter) IncludesBlockEvents() bool {
	return f.includesCategory(event.CategoryBlock)
}

// Allows reports whether events of type t pass the filter
func (f *EventTypeFilter) Allows(t event.Type) bool {
	if f == nil {
		return true
	}
	for _, included := range f.Include {
		if included == t {
			return true
		}
	}
	return false
}

// ForPrograms returns the account and transaction filters selecting everything
// the given programs own or are invoked by
func ForPrograms(programIDs []string) ([]AccountFilter, []TransactionFilter) {
	if len(programIDs) == 0 {
		return nil, nil
	}
	return []AccountFilter{{Owner: programIDs}},
		[]TransactionFilter{{AccountInclude: programIDs}}
}

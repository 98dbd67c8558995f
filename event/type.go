package event

import (
	"fmt"
	"sort"
)

// Category is the coarse class of an event, matching the feed section the
// underlying update arrives in
type Category string

// Category values
const (
	CategoryTransaction Category = "transaction"
	CategoryAccount     Category = "account"
	CategoryBlock       Category = "block"
)

// Type identifies a concrete event
type Type string

// Type values
const (
	PumpFunTrade        Type = "PumpFunTrade"
	PumpFunCreateToken  Type = "PumpFunCreateToken"
	PumpFunBondingCurve Type = "PumpFunBondingCurve"
	ProgramAccount      Type = "ProgramAccount"
	BlockMeta           Type = "BlockMeta"
)

var categories = map[Type]Category{
	PumpFunTrade:        CategoryTransaction,
	PumpFunCreateToken:  CategoryTransaction,
	PumpFunBondingCurve: CategoryAccount,
	ProgramAccount:      CategoryAccount,
	BlockMeta:           CategoryBlock,
}

// Category returns the category of the event type. Unknown types have an empty
// category.
func (t Type) Category() Category {
	return categories[t]
}

// ParseType converts an event type name into a Type
func ParseType(s string) (Type, error) {
	t := Type(s)
	if _, ok := categories[t]; !ok {
		return "", fmt.Errorf("unknown event type %q", s)
	}
	return t, nil
}

// AllTypes returns every known event type, sorted by name
func AllTypes() []Type {
	res := make([]Type, 0, len(categories))
	for t := range categories {
		res = append(res, t)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i] < res[j]
	})
	return res
}

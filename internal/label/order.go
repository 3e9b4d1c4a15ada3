package label

import (
	"cmp"
	"slices"
)

// DefaultCategoryOrder is the category priority used when none is configured.
var DefaultCategoryOrder = []string{
	"impact",
	"category",
	"bug_type",
	"bug_cause",
	"functional_area",
	"info",
	"epic",
}

// Ordering sorts labels by category priority, then by name.
//
// Categories missing from the priority list rank after every listed one and
// are ordered among themselves by category name. Name ties fall back to the
// label id so that Compare is a total order.
type Ordering struct {
	rank    map[string]int
	unknown int
}

// NewOrdering creates an Ordering from a category priority list.
// A category listed twice keeps its first position.
func NewOrdering(categories []string) *Ordering {
	o := &Ordering{rank: make(map[string]int, len(categories))}
	for _, c := range categories {
		if _, exists := o.rank[c]; exists {
			continue
		}
		o.rank[c] = len(o.rank)
	}
	o.unknown = len(o.rank)
	return o
}

// DefaultOrdering returns an Ordering over DefaultCategoryOrder.
func DefaultOrdering() *Ordering {
	return NewOrdering(DefaultCategoryOrder)
}

// Rank returns the position of category in the priority list.
func (o *Ordering) Rank(category string) int {
	if r, ok := o.rank[category]; ok {
		return r
	}
	return o.unknown
}

// Compare returns a negative number when a sorts before b, a positive number
// when it sorts after, and zero only for identical sort keys.
func (o *Ordering) Compare(a, b Label) int {
	ra, rb := o.Rank(a.Fields.Category), o.Rank(b.Fields.Category)
	if c := cmp.Compare(ra, rb); c != 0 {
		return c
	}
	if ra == o.unknown {
		if c := cmp.Compare(a.Fields.Category, b.Fields.Category); c != 0 {
			return c
		}
	}
	if c := cmp.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	if c := cmp.Compare(a.ID.value, b.ID.value); c != 0 {
		return c
	}
	switch {
	case a.ID.numeric == b.ID.numeric:
		return 0
	case a.ID.numeric:
		return -1
	default:
		return 1
	}
}

// Sort sorts labels in place.
func (o *Ordering) Sort(labels []Label) {
	slices.SortStableFunc(labels, o.Compare)
}

package search

import (
	"github.com/Aman-CERP/von/internal/entry"
)

// FilterFunc checks if an entry passes a search filter.
type FilterFunc func(e *entry.Entry) bool

// buildFilters creates filter functions based on options.
func buildFilters(opts Options) []FilterFunc {
	var filters []FilterFunc

	if len(opts.Tags) > 0 {
		filters = append(filters, tagFilter(opts.Tags))
	}

	return filters
}

// matchesAllFilters checks if an entry passes all filters (AND logic).
func matchesAllFilters(e *entry.Entry, filters []FilterFunc) bool {
	for _, f := range filters {
		if !f(e) {
			return false
		}
	}
	return true
}

// tagFilter keeps entries carrying every tag.
func tagFilter(tags []string) FilterFunc {
	return func(e *entry.Entry) bool {
		for _, t := range tags {
			if !e.HasTag(t) {
				return false
			}
		}
		return true
	}
}

// Package presenter shapes already-fetched records for display: filtering,
// pagination controls and plain-text tables.
package presenter

import "strings"

// Filter narrows a fetched page. Search is a case-insensitive substring match
// over the fields Keys returns; Status must match exactly when set.
type Filter[T any] struct {
	Search string
	Status string

	Keys     func(T) []string
	StatusOf func(T) string
}

func (f Filter[T]) Match(item T) bool {
	if f.Status != "" && f.StatusOf != nil && f.StatusOf(item) != f.Status {
		return false
	}
	needle := strings.ToLower(strings.TrimSpace(f.Search))
	if needle == "" || f.Keys == nil {
		return true
	}
	for _, k := range f.Keys(item) {
		if strings.Contains(strings.ToLower(k), needle) {
			return true
		}
	}
	return false
}

// Apply returns the matching items in their original order.
func (f Filter[T]) Apply(items []T) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if f.Match(it) {
			out = append(out, it)
		}
	}
	return out
}

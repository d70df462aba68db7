package home

import (
	"sort"
	"strings"
)

// LowStock returns the items whose quantity is at or below threshold,
// preserving input order.
func LowStock(items []Item, threshold float64) []Item {
	low := make([]Item, 0)
	for _, item := range items {
		if item.Quantity <= threshold {
			low = append(low, item)
		}
	}
	return low
}

// Filter keeps items whose name or location contains query, ignoring case.
// An empty query returns items unchanged.
func Filter(items []Item, query string) []Item {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return items
	}
	matched := make([]Item, 0, len(items))
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.Name), query) ||
			strings.Contains(strings.ToLower(item.Location), query) {
			matched = append(matched, item)
		}
	}
	return matched
}

// SortItems orders items by name ignoring case, then by ID.
func SortItems(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := strings.ToLower(items[i].Name), strings.ToLower(items[j].Name)
		if a != b {
			return a < b
		}
		return items[i].ID < items[j].ID
	})
}

// SortNotes orders notes newest first, then by ID.
func SortNotes(notes []Note) {
	sort.SliceStable(notes, func(i, j int) bool {
		if !notes[i].CreatedAt.Equal(notes[j].CreatedAt) {
			return notes[i].CreatedAt.After(notes[j].CreatedAt)
		}
		return notes[i].ID > notes[j].ID
	})
}

// GroupByLocation buckets items by location. Items without a location are
// grouped under "Unsorted". Keys are returned sorted.
func GroupByLocation(items []Item) ([]string, map[string][]Item) {
	groups := make(map[string][]Item)
	for _, item := range items {
		loc := strings.TrimSpace(item.Location)
		if loc == "" {
			loc = "Unsorted"
		}
		groups[loc] = append(groups[loc], item)
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, groups
}

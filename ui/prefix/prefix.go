package prefix

import (
	"sort"

	"github.com/charmbracelet/lipgloss"
)

// MinPrefixLen is the shortest prefix shown, matching hg's {shortest(node)}
const MinPrefixLen = 4

// ComputeUniquePrefixes returns a map of ID -> minimum unique prefix length.
// After sorting, the only IDs that can share a prefix with an ID are its
// neighbours, so one pass over the sorted list suffices.
func ComputeUniquePrefixes(ids []string) map[string]int {
	sorted := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id != "" && !seen[id] {
			seen[id] = true
			sorted = append(sorted, id)
		}
	}
	sort.Strings(sorted)

	result := make(map[string]int, len(sorted))
	for i, id := range sorted {
		needed := MinPrefixLen
		if i > 0 {
			needed = max(needed, commonPrefix(id, sorted[i-1])+1)
		}
		if i < len(sorted)-1 {
			needed = max(needed, commonPrefix(id, sorted[i+1])+1)
		}
		result[id] = min(needed, len(id))
	}
	return result
}

func commonPrefix(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

// FormatWithPrefix renders an ID with the unique prefix in one style and the rest in another.
func FormatWithPrefix(id string, prefixLen int, prefixStyle, restStyle lipgloss.Style) string {
	if id == "" {
		return ""
	}
	if prefixLen <= 0 {
		prefixLen = MinPrefixLen
	}
	if prefixLen >= len(id) {
		return prefixStyle.Render(id)
	}
	return prefixStyle.Render(id[:prefixLen]) + restStyle.Render(id[prefixLen:])
}

// IDSet holds IDs and their computed unique prefix lengths for efficient lookup.
type IDSet struct {
	prefixes map[string]int
}

// NewIDSet creates a new IDSet from a slice of IDs.
func NewIDSet(ids []string) *IDSet {
	return &IDSet{
		prefixes: ComputeUniquePrefixes(ids),
	}
}

// PrefixLen returns the unique prefix length for the given ID.
// Returns MinPrefixLen if the ID is not in the set.
func (s *IDSet) PrefixLen(id string) int {
	if n, ok := s.prefixes[id]; ok {
		return n
	}
	return MinPrefixLen
}

// Format renders the ID with the unique prefix highlighted.
func (s *IDSet) Format(id string, prefixStyle, restStyle lipgloss.Style) string {
	return FormatWithPrefix(id, s.PrefixLen(id), prefixStyle, restStyle)
}

package domain

import "slices"

// Contains reports whether id is a member of set.
func Contains(set []string, id string) bool {
	return slices.Contains(set, id)
}

// AddUnique appends id to set unless it is already a member.
// The boolean reports whether the set changed.
func AddUnique(set []string, id string) ([]string, bool) {
	if slices.Contains(set, id) {
		return set, false
	}
	return append(set, id), true
}

// Remove drops every occurrence of id from set.
// The boolean reports whether the set changed.
func Remove(set []string, id string) ([]string, bool) {
	out := slices.DeleteFunc(slices.Clone(set), func(s string) bool { return s == id })
	return out, len(out) != len(set)
}

// Dedupe returns set with duplicates removed, keeping first occurrences in order.
func Dedupe(set []string) []string {
	seen := make(map[string]struct{}, len(set))
	out := make([]string, 0, len(set))
	for _, id := range set {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func orEmpty(set []string) []string {
	if set == nil {
		return []string{}
	}
	return set
}

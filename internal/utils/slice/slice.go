package slice

import (
	"sort"
	"strings"
)

// ConvertToSliceOfT converts a slice of interface{} to a slice of type T
func ConvertToSliceOfT[T any](input []interface{}) ([]T, bool) {
	result := make([]T, len(input))
	for i, v := range input {
		val, ok := v.(T)
		if !ok {
			return nil, false
		}
		result[i] = val
	}
	return result, true
}

// Check if a string exists in a string slice
func Contains(slice []string, str string) bool {
	for _, item := range slice {
		if item == str {
			return true
		}
	}
	return false
}

// Missing returns the items that do not satisfy known, in input order.
func Missing(items []string, known func(string) bool) []string {
	var missing []string
	for _, item := range items {
		if !known(item) {
			missing = append(missing, item)
		}
	}
	return missing
}

// SortedKeys returns the keys of m in lexical order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Merge appends the items of extra that base does not hold yet, keeping the
// order of first appearance.
func Merge(base, extra []string) []string {
	seen := make(map[string]bool, len(base)+len(extra))
	merged := make([]string, 0, len(base)+len(extra))
	for _, items := range [][]string{base, extra} {
		for _, item := range items {
			if !seen[item] {
				seen[item] = true
				merged = append(merged, item)
			}
		}
	}
	return merged
}

// split string and clean
func SplitCSV(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

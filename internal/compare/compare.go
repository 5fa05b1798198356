// Package compare reports the lines that differ between two texts.
package compare

import "strings"

type Result struct {
	Removed []string `json:"removed"` // only in the first text
	Added   []string `json:"added"`   // only in the second text
}

// Identical reports whether no line was added or removed.
func (r Result) Identical() bool {
	return len(r.Removed) == 0 && len(r.Added) == 0
}

// Lines splits text into trimmed, non-empty lines.
func Lines(text string) []string {
	var out []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// Diff matches the longest common subsequence of lines; everything outside
// it is reported as removed from a or added in b, in document order.
func Diff(a, b []string) Result {
	n, m := len(a), len(b)
	// dp[i][j] is the LCS length of a[i:] and b[j:].
	dp := make([][]int, n+1)
	for i := range dp {
		dp[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if a[i] == b[j] {
				dp[i][j] = dp[i+1][j+1] + 1
			} else {
				dp[i][j] = max(dp[i+1][j], dp[i][j+1])
			}
		}
	}

	res := Result{Removed: []string{}, Added: []string{}}
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case a[i] == b[j]:
			i++
			j++
		case dp[i+1][j] >= dp[i][j+1]:
			res.Removed = append(res.Removed, a[i])
			i++
		default:
			res.Added = append(res.Added, b[j])
			j++
		}
	}
	res.Removed = append(res.Removed, a[i:]...)
	res.Added = append(res.Added, b[j:]...)
	return res
}

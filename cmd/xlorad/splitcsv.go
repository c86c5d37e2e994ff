package main

import "strings"

// splitCSV splits a comma-separated flag value, trimming whitespace and
// dropping empty elements. Empty input yields nil.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

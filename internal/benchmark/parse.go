package benchmark

import (
	"strconv"
	"strings"
)

// splitAfterPound splits content on the pound sign, dropping the prefix
// before the first occurrence.
func splitAfterPound(content string) []string {
	parts := strings.Split(content, "£")
	if len(parts) <= 1 {
		return nil
	}
	return parts[1:]
}

// parseAmount parses a digit run with optional thousands separators. Runs
// that pick up stray punctuation from the token scan fail the parse and are
// skipped by the caller.
func parseAmount(raw string) (float64, bool) {
	value, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

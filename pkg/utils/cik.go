package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// PadCIK pads a CIK number to 10 digits with leading zeros.
func PadCIK(cik int64) string {
	return fmt.Sprintf("%010d", cik)
}

// ParseCIK parses a possibly zero-padded CIK string such as "0000320193".
func ParseCIK(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty CIK")
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid CIK %q", s)
	}
	return n, nil
}

// UniqueCIKs removes duplicates from ciks, keeping first-seen order.
func UniqueCIKs(ciks []int64) []int64 {
	seen := make(map[int64]struct{}, len(ciks))
	out := make([]int64, 0, len(ciks))
	for _, c := range ciks {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

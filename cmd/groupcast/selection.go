package main

import (
	"fmt"
	"strconv"
	"strings"
)

// parseIndexes reads a list such as "1,3,5-7" of 1-based positions into
// 0-based indexes, keeping the order given and dropping repeats.
func parseIndexes(s string, n int) ([]int, error) {
	var out []int
	seen := make(map[int]bool)
	add := func(i int) error {
		if i < 1 || i > n {
			return fmt.Errorf("group number %d out of range 1-%d", i, n)
		}
		if !seen[i] {
			seen[i] = true
			out = append(out, i-1)
		}
		return nil
	}

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		if !isRange {
			i, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("invalid group number %q", part)
			}
			if err := add(i); err != nil {
				return nil, err
			}
			continue
		}
		from, err1 := strconv.Atoi(strings.TrimSpace(lo))
		to, err2 := strconv.Atoi(strings.TrimSpace(hi))
		if err1 != nil || err2 != nil || from > to {
			return nil, fmt.Errorf("invalid group range %q", part)
		}
		for i := from; i <= to; i++ {
			if err := add(i); err != nil {
				return nil, err
			}
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no groups given")
	}
	return out, nil
}

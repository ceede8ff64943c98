// Package linerange parses compact line-number expressions such as "[1-3,5]".
package linerange

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// maxSpan bounds a single range so "[1-999999999]" cannot allocate unbounded memory.
const maxSpan = 1 << 16

var bracketed = regexp.MustCompile(`^\[(.+)\]$`)

// Set is an ascending, duplicate-free list of 1-based line numbers.
type Set []int

// Has reports whether n is in the set.
func (s Set) Has(n int) bool {
	_, ok := slices.BinarySearch(s, n)
	return ok
}

// Parse expands a bracketed expression into a Set. Single numbers become
// singletons and "a-b", "a..b" become inclusive runs; "a...b" excludes b.
// Reversed runs are accepted. Input that is empty, unbracketed or entirely
// malformed yields an empty set; malformed parts of an otherwise valid list
// are skipped.
func Parse(expr string) Set {
	m := bracketed.FindStringSubmatch(strings.TrimSpace(expr))
	if m == nil {
		return Set{}
	}

	var out []int
	for _, part := range strings.Split(m[1], ",") {
		out = appendPart(out, strings.TrimSpace(part))
	}

	if len(out) == 0 {
		return Set{}
	}
	slices.Sort(out)
	return Set(slices.Compact(out))
}

func appendPart(out []int, part string) []int {
	if part == "" {
		return out
	}
	if n, err := strconv.Atoi(part); err == nil {
		if n > 0 {
			out = append(out, n)
		}
		return out
	}

	lo, hi, exclusive, ok := splitRange(part)
	if !ok {
		return out
	}
	if lo > hi {
		lo, hi = hi, lo
		if exclusive {
			lo++
		}
	} else if exclusive {
		hi--
	}
	if hi-lo > maxSpan {
		return out
	}
	for i := max(lo, 1); i <= hi; i++ {
		out = append(out, i)
	}
	return out
}

func splitRange(part string) (lo, hi int, exclusive, ok bool) {
	sep := "-"
	switch {
	case strings.Contains(part, "..."):
		sep, exclusive = "...", true
	case strings.Contains(part, ".."):
		sep = ".."
	}
	left, right, found := strings.Cut(part, sep)
	if !found {
		return 0, 0, false, false
	}
	a, errA := strconv.Atoi(strings.TrimSpace(left))
	b, errB := strconv.Atoi(strings.TrimSpace(right))
	if errA != nil || errB != nil {
		return 0, 0, false, false
	}
	return a, b, exclusive, true
}

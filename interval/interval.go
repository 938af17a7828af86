// Copyright 2026 The frame-graph authors. All rights reserved.

// Package interval defines a half-open integer interval type
// useful for sub-resource bookkeeping (e.g., mip level and
// array layer ranges).
package interval

import "fmt"

// Span is a half-open interval that includes the lower
// bound, but not the upper.
type Span struct {
	// The value at which the interval begins.
	Start int
	// The next value not included in the interval.
	End int
}

// Empty returns whether the span contains no values.
func (s Span) Empty() bool { return s.End <= s.Start }

// Len returns the number of values in the span.
// It is zero for empty spans.
func (s Span) Len() int {
	if s.Empty() {
		return 0
	}
	return s.End - s.Start
}

// Contains returns whether x lies within s.
func (s Span) Contains(x Span) bool {
	if x.Empty() {
		return true
	}
	return s.Start <= x.Start && x.End <= s.End
}

// Intersect returns the overlap of two spans.
// The result is empty if the spans are disjoint.
func (s Span) Intersect(x Span) Span {
	r := Span{max(s.Start, x.Start), min(s.End, x.End)}
	if r.Empty() {
		return Span{}
	}
	return r
}

// Subtract returns what remains of s after removing x.
// The result has zero, one or two disjoint spans,
// appended to dst.
func (s Span) Subtract(x Span, dst []Span) []Span {
	i := s.Intersect(x)
	if i.Empty() {
		return append(dst, s)
	}
	if s.Start < i.Start {
		dst = append(dst, Span{s.Start, i.Start})
	}
	if i.End < s.End {
		dst = append(dst, Span{i.End, s.End})
	}
	return dst
}

// String implements fmt.Stringer.
func (s Span) String() string { return fmt.Sprintf("[%d:%d)", s.Start, s.End) }

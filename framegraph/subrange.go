// Copyright 2026 The frame-graph authors. All rights reserved.

package framegraph

import (
	"fmt"

	"github.com/kvark/frame-graph/interval"
)

// Aspect is a mask of image aspects.
type Aspect int

// Image aspects.
const (
	AspectColor Aspect = 1 << iota
	AspectDepth
	AspectStencil
)

// String implements fmt.Stringer.
func (a Aspect) String() string {
	var s string
	if a&AspectColor != 0 {
		s += "color|"
	}
	if a&AspectDepth != 0 {
		s += "depth|"
	}
	if a&AspectStencil != 0 {
		s += "stencil|"
	}
	if s == "" {
		return "none"
	}
	return s[:len(s)-1]
}

// Subrange identifies a slice of an image: an aspect mask
// crossed with a mip level interval and an array layer
// interval. Each slice of a resource is tracked
// independently by the frame graph.
//
// Buffers are tracked at whole-resource granularity and
// use a canonical unit subrange internally.
type Subrange struct {
	Aspect Aspect
	Levels interval.Span
	Layers interval.Span
}

// Range returns the half-open span [first, first+count).
// It is a convenience for building the Levels and Layers
// fields of a Subrange.
func Range(first, count int) interval.Span {
	return interval.Span{Start: first, End: first + count}
}

// bufferRange is the unit subrange used to track buffers.
var bufferRange = Subrange{
	Aspect: AspectColor,
	Levels: Range(0, 1),
	Layers: Range(0, 1),
}

// empty returns whether the subrange selects nothing.
func (s Subrange) empty() bool {
	return s.Aspect == 0 || s.Levels.Empty() || s.Layers.Empty()
}

// intersect returns the geometric intersection of two
// subranges: the AND of the aspect masks crossed with the
// overlap of the level and layer intervals. The result is
// the zero Subrange when the inputs are disjoint along
// any axis.
func (s Subrange) intersect(x Subrange) Subrange {
	r := Subrange{
		Aspect: s.Aspect & x.Aspect,
		Levels: s.Levels.Intersect(x.Levels),
		Layers: s.Layers.Intersect(x.Layers),
	}
	if r.empty() {
		return Subrange{}
	}
	return r
}

// contains returns whether x lies entirely within s.
func (s Subrange) contains(x Subrange) bool {
	return x.Aspect&^s.Aspect == 0 &&
		s.Levels.Contains(x.Levels) &&
		s.Layers.Contains(x.Layers)
}

// subtract returns what remains of s after removing x,
// appended to dst as disjoint subranges.
//
// The remainder is built by peeling one axis at a time:
// aspects of s absent from x, then level intervals outside
// x's levels (within the shared aspects), then layer
// intervals outside x's layers (within the shared aspects
// and levels). At most five pieces result, and their union
// with s.intersect(x) re-tiles s exactly.
func (s Subrange) subtract(x Subrange, dst []Subrange) []Subrange {
	i := s.intersect(x)
	if i.empty() {
		return append(dst, s)
	}
	if a := s.Aspect &^ x.Aspect; a != 0 {
		dst = append(dst, Subrange{a, s.Levels, s.Layers})
	}
	var sp [2]interval.Span
	for _, lv := range s.Levels.Subtract(i.Levels, sp[:0]) {
		dst = append(dst, Subrange{i.Aspect, lv, s.Layers})
	}
	for _, la := range s.Layers.Subtract(i.Layers, sp[:0]) {
		dst = append(dst, Subrange{i.Aspect, i.Levels, la})
	}
	return dst
}

// String implements fmt.Stringer.
func (s Subrange) String() string {
	return fmt.Sprintf("{%v levels%v layers%v}", s.Aspect, s.Levels, s.Layers)
}

// Copyright 2026 The frame-graph authors. All rights reserved.

package framegraph

import "github.com/kvark/frame-graph/driver"

// Epoch marks a point at which some sub-range of a resource
// reached a new access state. Epochs are minted per frame
// graph in strictly increasing order; they are pure ordering
// tokens, not timestamps. The zero Epoch means "never".
type Epoch uint64

// Dependency is a causal edge to an earlier access state,
// scoped to the sub-range where the two accesses overlap.
type Dependency struct {
	Epoch Epoch
	Part  Subrange
}

// state is an access state: access flags plus, for images,
// the layout. Buffers always use LUndefined.
type state struct {
	access driver.Access
	layout driver.Layout
}

// trackedState is one entry in a resource's access history.
type trackedState struct {
	part  Subrange
	st    state
	deps  []Dependency
	epoch Epoch
}

// trackedResource is the full access history of one resource.
// It is seeded at creation with a single state covering the
// resource's entire extent, so that the union of part fields
// across the history always tiles the extent with no gaps.
type trackedResource struct {
	extent Subrange
	hist   []trackedState
}

// newTracked seeds the history of a resource with one state
// covering its whole extent.
func newTracked(extent Subrange, st state, epoch Epoch) trackedResource {
	return trackedResource{
		extent: extent,
		hist:   []trackedState{{part: extent, st: st, epoch: epoch}},
	}
}

// overlap records one consumed intersection from a stamp
// scan: the intersected piece, the state it was in, the
// epoch that produced that state, and whether ordering
// against it is required.
type overlap struct {
	part   Subrange
	prev   state
	epoch  Epoch
	hazard bool
}

// hazardBetween classifies the hazard between a prior state
// and a new access over their intersection. Any write on
// either side is a true data hazard (write-after-write,
// write-after-read or read-after-write). A read after a
// read requires ordering only when the layouts differ.
// An idle prior state (no access) never requires ordering;
// any layout change away from it is carried by the
// transition alone.
func hazardBetween(prev, next state) bool {
	if prev.access == driver.ANone {
		return false
	}
	if prev.access.Writes() || next.access.Writes() {
		return true
	}
	return prev.layout != next.layout
}

// stamp records an access to part, leaving the resource in
// state st, and returns the epoch of the new state together
// with every intersection consumed while scanning.
//
// The scan walks the history from most recent to oldest,
// keeping a work-list of outstanding pieces of part. Each
// non-empty intersection against a history entry is consumed
// (and classified for hazards); partial overlaps split the
// outstanding piece into disjoint remainders that continue
// against older history. The scan succeeds when every piece
// has been consumed, i.e. the consumed intersections re-tile
// part exactly. A piece that survives the whole history
// means the access falls outside everything ever declared
// for the resource; that is a caller error and nothing is
// recorded.
func (t *trackedResource) stamp(part Subrange, st state, mint func() Epoch) (Epoch, []overlap, error) {
	if part.empty() {
		return 0, nil, ErrUncovered
	}
	work := []Subrange{part}
	var got []overlap
	for i := len(t.hist) - 1; i >= 0 && len(work) > 0; i-- {
		h := &t.hist[i]
		keep := work[:0:0]
		for _, w := range work {
			x := w.intersect(h.part)
			if x.empty() {
				keep = append(keep, w)
				continue
			}
			got = append(got, overlap{
				part:   x,
				prev:   h.st,
				epoch:  h.epoch,
				hazard: hazardBetween(h.st, st),
			})
			keep = w.subtract(x, keep)
		}
		work = keep
	}
	if len(work) > 0 {
		return 0, nil, ErrUncovered
	}

	var deps []Dependency
	for i := range got {
		if got[i].hazard {
			deps = append(deps, Dependency{got[i].epoch, got[i].part})
		}
	}
	e := mint()
	t.hist = append(t.hist, trackedState{
		part:  part,
		st:    st,
		deps:  deps,
		epoch: e,
	})
	return e, got, nil
}

// probe scans the history for part like stamp does, but
// implies no access: it neither appends a new state nor
// mints an epoch. Consumed intersections are classified as
// hazards only against prior writes, since a no-access
// reference merely requires the referenced contents to be
// settled. Used for preserved-only attachment references.
func (t *trackedResource) probe(part Subrange) ([]overlap, error) {
	if part.empty() {
		return nil, ErrUncovered
	}
	work := []Subrange{part}
	var got []overlap
	for i := len(t.hist) - 1; i >= 0 && len(work) > 0; i-- {
		h := &t.hist[i]
		keep := work[:0:0]
		for _, w := range work {
			x := w.intersect(h.part)
			if x.empty() {
				keep = append(keep, w)
				continue
			}
			got = append(got, overlap{
				part:   x,
				prev:   h.st,
				epoch:  h.epoch,
				hazard: h.st.access.Writes(),
			})
			keep = w.subtract(x, keep)
		}
		work = keep
	}
	if len(work) > 0 {
		return nil, ErrUncovered
	}
	return got, nil
}

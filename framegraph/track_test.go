// Copyright 2026 The frame-graph authors. All rights reserved.

package framegraph

import (
	"math/bits"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/kvark/frame-graph/driver"
)

// testImage returns a color image description with the
// given mip level and array layer counts.
func testImage(levels, layers int) Image {
	return Image{
		Format:  driver.RGBA8un,
		Size:    driver.Dim3D{Width: 256, Height: 256},
		Layers:  layers,
		Levels:  levels,
		Samples: 1,
	}
}

// lastDeps returns the dependency edges of the most recent
// history entry of an image.
func lastDeps(g *FrameGraph, ref ImageRef) []Dependency {
	h := g.imgs[ref].track.hist
	return h[len(h)-1].deps
}

// volume counts the sub-resource cells a subrange selects.
func volume(s Subrange) int {
	return bits.OnesCount(uint(s.Aspect)) * s.Levels.Len() * s.Layers.Len()
}

func TestDisjointAccessesNoEdge(t *testing.T) {
	g := New(&fakeGPU{})
	ref, err := g.UseImage(testImage(4, 6))
	require.NoError(t, err)

	w1 := Subrange{AspectColor, Range(0, 2), Range(0, 6)}
	w2 := Subrange{AspectColor, Range(2, 2), Range(0, 6)}
	e1, err := g.StampImage(ref, w1, driver.AColorWrite, driver.LColorTarget)
	require.NoError(t, err)
	_, err = g.StampImage(ref, w2, driver.AColorWrite, driver.LColorTarget)
	require.NoError(t, err)

	for _, d := range lastDeps(g, ref) {
		require.NotEqual(t, e1, d.Epoch, "edge between disjoint accesses")
	}
}

func TestOverlappingWritesEdge(t *testing.T) {
	g := New(&fakeGPU{})
	ref, err := g.UseImage(testImage(1, 1))
	require.NoError(t, err)
	full := Subrange{AspectColor, Range(0, 1), Range(0, 1)}

	e1, err := g.StampImage(ref, full, driver.AColorWrite, driver.LColorTarget)
	require.NoError(t, err)
	e2, err := g.StampImage(ref, full, driver.AColorWrite, driver.LColorTarget)
	require.NoError(t, err)
	require.Greater(t, e2, e1)

	want := []Dependency{{Epoch: e1, Part: full}}
	if diff := cmp.Diff(want, lastDeps(g, ref)); diff != "" {
		t.Fatalf("W2 dependencies mismatch (-want +got):\n%s", diff)
	}
}

func TestReadAfterReadNoEdge(t *testing.T) {
	img := testImage(1, 1)
	img.Layout = driver.LShaderRead
	g := New(&fakeGPU{})
	ref, err := g.UseImage(img)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := g.StampImage(ref, Subrange{}, driver.AShaderRead, driver.LShaderRead)
		require.NoError(t, err)
		require.Empty(t, lastDeps(g, ref))
	}
}

// A read over the same subresource that needs a different
// layout is ordered even though both accesses are reads.
func TestReadAfterReadLayoutChange(t *testing.T) {
	img := testImage(1, 1)
	img.Layout = driver.LShaderRead
	g := New(&fakeGPU{})
	ref, err := g.UseImage(img)
	require.NoError(t, err)

	e1, err := g.StampImage(ref, Subrange{}, driver.AShaderRead, driver.LShaderRead)
	require.NoError(t, err)
	_, err = g.StampImage(ref, Subrange{}, driver.ACopyRead, driver.LCopySrc)
	require.NoError(t, err)

	deps := lastDeps(g, ref)
	require.Len(t, deps, 1)
	require.Equal(t, e1, deps[0].Epoch)
}

// The scenario from the tracker contract: a single-level,
// single-layer color image written as a color attachment,
// then read as an input attachment over the same
// subresource.
func TestWriteThenReadScenario(t *testing.T) {
	g := New(&fakeGPU{})
	ref, err := g.UseImage(testImage(1, 1))
	require.NoError(t, err)
	full := Subrange{AspectColor, Range(0, 1), Range(0, 1)}

	e0, err := g.StampImage(ref, full, driver.AColorWrite, driver.LColorTarget)
	require.NoError(t, err)
	e1, err := g.StampImage(ref, full, driver.AShaderRead, driver.LShaderRead)
	require.NoError(t, err)
	require.Greater(t, e1, e0)

	want := []Dependency{{Epoch: e0, Part: full}}
	if diff := cmp.Diff(want, lastDeps(g, ref)); diff != "" {
		t.Fatalf("E1 dependencies mismatch (-want +got):\n%s", diff)
	}
}

func TestBufferDoubleRead(t *testing.T) {
	g := New(&fakeGPU{})
	ref, err := g.UseBuffer(Buffer{Size: 1024, Stride: 4})
	require.NoError(t, err)

	e1, err := g.StampBuffer(ref, driver.ACopyRead)
	require.NoError(t, err)
	e2, err := g.StampBuffer(ref, driver.ACopyRead)
	require.NoError(t, err)
	require.Greater(t, e2, e1)

	h := g.bufs[ref].track.hist
	require.Empty(t, h[len(h)-1].deps)
	require.Empty(t, h[len(h)-2].deps)
}

// A request over levels 1..3 of a 4-level/6-layer image with
// pre-existing partial history must be consumed piecewise:
// the intersections found during the scan are disjoint and
// re-tile the request exactly.
func TestPartialCoverage(t *testing.T) {
	g := New(&fakeGPU{})
	ref, err := g.UseImage(testImage(4, 6))
	require.NoError(t, err)

	w1 := Subrange{AspectColor, Range(0, 2), Range(0, 6)}
	e1, err := g.StampImage(ref, w1, driver.AColorWrite, driver.LColorTarget)
	require.NoError(t, err)

	part := Subrange{AspectColor, Range(1, 3), Range(0, 6)}
	tr := &g.imgs[ref].track
	_, got, err := tr.stamp(part, state{driver.AShaderRead, driver.LShaderRead}, g.mint)
	require.NoError(t, err)

	n := 0
	for i := range got {
		require.True(t, part.contains(got[i].part), "piece %v outside request %v", got[i].part, part)
		for j := range got[:i] {
			require.True(t, got[i].part.intersect(got[j].part).empty(),
				"pieces %v and %v overlap", got[i].part, got[j].part)
		}
		n += volume(got[i].part)
	}
	require.Equal(t, volume(part), n, "consumed pieces do not re-tile the request")

	// Level 1 must be ordered after the earlier write,
	// scoped to the overlap.
	deps := lastDeps(g, ref)
	want := Dependency{Epoch: e1, Part: Subrange{AspectColor, Range(1, 1), Range(0, 6)}}
	require.Contains(t, deps, want)
}

func TestOutOfBoundsFails(t *testing.T) {
	g := New(&fakeGPU{})
	ref, err := g.UseImage(testImage(4, 6))
	require.NoError(t, err)

	// Levels 3..4 exceed the 4-level extent; nothing may
	// be clamped silently.
	part := Subrange{AspectColor, Range(3, 2), Range(0, 6)}
	_, err = g.StampImage(ref, part, driver.AColorWrite, driver.LColorTarget)
	require.ErrorIs(t, err, ErrUncovered)

	// The failed request must not have touched history.
	require.Len(t, g.imgs[ref].track.hist, 1)

	// Depth aspect of a color image is equally undeclared.
	part = Subrange{AspectDepth, Range(0, 1), Range(0, 1)}
	_, err = g.StampImage(ref, part, driver.ADSWrite, driver.LDSTarget)
	require.ErrorIs(t, err, ErrUncovered)
}

func TestMalformedPartFails(t *testing.T) {
	g := New(&fakeGPU{})
	ref, err := g.UseImage(testImage(2, 2))
	require.NoError(t, err)

	for _, part := range []Subrange{
		{0, Range(0, 1), Range(0, 1)},           // empty aspect
		{AspectColor, Range(0, 0), Range(0, 1)}, // empty levels
		{AspectColor, Range(0, 1), Range(1, 0)}, // empty layers
	} {
		_, err := g.StampImage(ref, part, driver.AColorWrite, driver.LColorTarget)
		require.Error(t, err)
	}
}

func TestBadRef(t *testing.T) {
	g := New(&fakeGPU{})
	_, err := g.StampImage(ImageRef(0), Subrange{}, driver.AColorWrite, driver.LColorTarget)
	require.ErrorIs(t, err, ErrBadRef)
	_, err = g.StampBuffer(BufferRef(-1), driver.ACopyRead)
	require.ErrorIs(t, err, ErrBadRef)
}

// Every dependency edge must reference a strictly earlier
// epoch, for every entry of every resource history.
func TestCausalOrder(t *testing.T) {
	g := New(&fakeGPU{})
	ref, err := g.UseImage(testImage(4, 6))
	require.NoError(t, err)

	parts := []Subrange{
		{AspectColor, Range(0, 2), Range(0, 3)},
		{AspectColor, Range(1, 2), Range(2, 4)},
		{AspectColor, Range(0, 4), Range(0, 6)},
		{AspectColor, Range(3, 1), Range(5, 1)},
	}
	for i, p := range parts {
		access := driver.AColorWrite
		layout := driver.LColorTarget
		if i%2 == 1 {
			access = driver.AShaderRead
			layout = driver.LShaderRead
		}
		_, err := g.StampImage(ref, p, access, layout)
		require.NoError(t, err)
	}

	for _, h := range g.imgs[ref].track.hist {
		for _, d := range h.deps {
			require.Less(t, d.Epoch, h.epoch)
		}
	}
}

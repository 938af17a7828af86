// Copyright 2026 The frame-graph authors. All rights reserved.

// Package framegraph implements a per-frame builder that
// collects graphics, transfer and compute work together with
// the resources each piece of work touches, computes the data
// hazards between overlapping sub-resource accesses, and
// compiles and submits a single ordered command stream.
//
// A FrameGraph is single-use: resources are declared with
// UseBuffer/UseImage, work is registered with AddRenderTask/
// AddTransferTask/AddComputeTask, and Run compiles, records
// and submits everything exactly once. After Run, the graph
// must not be mutated; Wait observes frame retirement.
//
// A FrameGraph is not safe for concurrent use.
package framegraph

import (
	"errors"
	"fmt"

	"github.com/kvark/frame-graph/driver"
)

const fgPrefix = "framegraph: "

// Usage errors.
var (
	// ErrSubmitted means that a FrameGraph was mutated,
	// re-run or waited on in the wrong state. A graph
	// whose Run method has been called accepts no
	// further declarations.
	ErrSubmitted = errors.New(fgPrefix + "frame already compiled or submitted")

	// ErrBadRef means that a BufferRef/ImageRef does not
	// identify a resource of this FrameGraph.
	ErrBadRef = errors.New(fgPrefix + "reference to an undeclared resource")

	// ErrUncovered means that an access requested a
	// sub-resource range that falls outside everything
	// ever declared for the resource.
	ErrUncovered = errors.New(fgPrefix + "access not covered by resource history")

	// ErrUnbound means that an image lacking an external
	// binding was used where a driver image is required.
	ErrUnbound = errors.New(fgPrefix + "image has no driver binding")
)

// BufferRef identifies a buffer declared in a FrameGraph.
// It is only valid within the FrameGraph instance that
// produced it, and never across frames.
type BufferRef int

// ImageRef identifies an image declared in a FrameGraph.
// It is only valid within the FrameGraph instance that
// produced it, and never across frames.
type ImageRef int

// Buffer describes an external buffer resource.
type Buffer struct {
	Size   int64
	Stride int64

	// Bind optionally provides the driver buffer that
	// backs the resource. The frame graph never allocates
	// backing stores itself.
	Bind driver.Buffer

	// Access is the state the buffer is in when the
	// frame begins. The zero value means idle.
	Access driver.Access
}

// Image describes an external image resource.
type Image struct {
	Format  driver.PixelFmt
	Size    driver.Dim3D
	Layers  int
	Levels  int
	Samples int

	// Bind/View optionally provide the driver objects
	// that back the resource. Images used as render
	// task attachments must be bound.
	Bind driver.Image
	View driver.ImageView

	// Access/Layout are the state the image is in when
	// the frame begins. The zero values mean idle and
	// undefined layout.
	Access driver.Access
	Layout driver.Layout
}

// FrameGraph state. Transitions run strictly forward.
const (
	stateBuilding = iota
	stateCompiling
	stateSubmitted
)

// Config is used to configure a FrameGraph.
type Config struct {
	// Hints for arena pre-allocation.
	//
	// Defaults are 16, 16 and 32.
	BufferCap int
	ImageCap  int
	TaskCap   int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		BufferCap: 16,
		ImageCap:  16,
		TaskCap:   32,
	}
}

// FrameGraph owns the resources and tasks of one frame.
type FrameGraph struct {
	gpu driver.GPU

	bufs []trackedBuffer
	imgs []trackedImage

	tasks []task

	// Epoch counter; the next value to mint.
	epoch Epoch

	state int
	cb    driver.CmdBuffer
	// Compiled nodes, kept alive until the frame retires
	// because the driver objects they own are referenced
	// by the submitted commands.
	nodes  []node
	wk     chan error
	waited bool
	err    error
}

// New creates a new FrameGraph that will submit to gpu,
// using the default configuration.
func New(gpu driver.GPU) *FrameGraph {
	config := DefaultConfig()
	return NewWith(gpu, &config)
}

// NewWith creates a new FrameGraph that will submit to gpu,
// using the given configuration.
func NewWith(gpu driver.GPU, config *Config) *FrameGraph {
	if gpu == nil {
		panic(fgPrefix + "nil driver.GPU")
	}
	cfg := DefaultConfig()
	if config != nil {
		cfg = *config
	}
	return &FrameGraph{
		gpu:   gpu,
		bufs:  make([]trackedBuffer, 0, cfg.BufferCap),
		imgs:  make([]trackedImage, 0, cfg.ImageCap),
		tasks: make([]task, 0, cfg.TaskCap),
		epoch: 1,
		wk:    make(chan error, 1),
	}
}

// trackedBuffer pairs a buffer description with its
// access history.
type trackedBuffer struct {
	desc  Buffer
	track trackedResource
}

// trackedImage pairs an image description with its
// access history.
type trackedImage struct {
	desc  Image
	track trackedResource
}

// mint returns a fresh epoch.
func (g *FrameGraph) mint() Epoch {
	e := g.epoch
	g.epoch++
	return e
}

// UseBuffer declares a buffer resource for this frame.
// The whole buffer is seeded in its initial (or idle)
// state; every later access will be ordered against it.
func (g *FrameGraph) UseBuffer(buf Buffer) (BufferRef, error) {
	if g.state != stateBuilding {
		return -1, ErrSubmitted
	}
	var reason string
	switch {
	case buf.Size <= 0:
		reason = "non-positive buffer size"
	case buf.Stride < 0:
		reason = "negative buffer stride"
	default:
		st := state{access: buf.Access, layout: driver.LUndefined}
		g.bufs = append(g.bufs, trackedBuffer{
			desc:  buf,
			track: newTracked(bufferRange, st, g.mint()),
		})
		return BufferRef(len(g.bufs) - 1), nil
	}
	return -1, errors.New(fgPrefix + reason)
}

// UseImage declares an image resource for this frame.
// The image's full extent (all aspects, levels and layers)
// is seeded in its initial (or idle) state; every later
// access will be ordered against it.
func (g *FrameGraph) UseImage(img Image) (ImageRef, error) {
	if g.state != stateBuilding {
		return -1, ErrSubmitted
	}
	var reason string
	switch {
	case img.Size.Width < 1, img.Size.Height < 1:
		reason = "invalid image size"
	case img.Layers < 1:
		reason = "invalid layer count"
	case img.Levels < 1:
		reason = "invalid level count"
	case img.Samples < 1, img.Samples&(img.Samples-1) != 0:
		reason = "invalid sample count"
	case img.Format == driver.FInvalid:
		reason = "invalid pixel format"
	case img.Bind == nil && img.View != nil:
		reason = "image view without image"
	default:
		st := state{access: img.Access, layout: img.Layout}
		g.imgs = append(g.imgs, trackedImage{
			desc:  img,
			track: newTracked(imageExtent(&img), st, g.mint()),
		})
		return ImageRef(len(g.imgs) - 1), nil
	}
	return -1, errors.New(fgPrefix + reason)
}

// imageExtent returns the subrange covering the whole image.
func imageExtent(img *Image) Subrange {
	a := AspectColor
	if img.Format.HasDepth() || img.Format.HasStencil() {
		a = 0
		if img.Format.HasDepth() {
			a |= AspectDepth
		}
		if img.Format.HasStencil() {
			a |= AspectStencil
		}
	}
	return Subrange{
		Aspect: a,
		Levels: Range(0, img.Levels),
		Layers: Range(0, img.Layers),
	}
}

// buffer returns the tracked buffer identified by ref.
func (g *FrameGraph) buffer(ref BufferRef) (*trackedBuffer, error) {
	if ref < 0 || int(ref) >= len(g.bufs) {
		return nil, ErrBadRef
	}
	return &g.bufs[ref], nil
}

// image returns the tracked image identified by ref.
func (g *FrameGraph) image(ref ImageRef) (*trackedImage, error) {
	if ref < 0 || int(ref) >= len(g.imgs) {
		return nil, ErrBadRef
	}
	return &g.imgs[ref], nil
}

// StampBuffer records an access to the whole of a buffer
// and returns the epoch that marks the new state.
// It fails if ref is not a buffer of this graph or the
// graph is no longer building.
func (g *FrameGraph) StampBuffer(ref BufferRef, access driver.Access) (Epoch, error) {
	if g.state != stateBuilding {
		return 0, ErrSubmitted
	}
	b, err := g.buffer(ref)
	if err != nil {
		return 0, err
	}
	e, _, err := b.track.stamp(bufferRange, state{access, driver.LUndefined}, g.mint)
	return e, err
}

// StampImage records an access to a sub-range of an image
// and returns the epoch that marks the new state.
// A zero part means the image's full extent. It fails if
// ref is not an image of this graph, if part is malformed
// or falls outside the image's declared extent, or if the
// graph is no longer building.
func (g *FrameGraph) StampImage(ref ImageRef, part Subrange, access driver.Access, layout driver.Layout) (Epoch, error) {
	if g.state != stateBuilding {
		return 0, ErrSubmitted
	}
	img, err := g.image(ref)
	if err != nil {
		return 0, err
	}
	part, err = img.normalize(part)
	if err != nil {
		return 0, err
	}
	e, _, err := img.track.stamp(part, state{access, layout}, g.mint)
	return e, err
}

// normalize replaces a zero part with the image's full
// extent and validates the requested sub-range shape.
func (t *trackedImage) normalize(part Subrange) (Subrange, error) {
	if part == (Subrange{}) {
		return t.track.extent, nil
	}
	var reason string
	switch {
	case part.Aspect == 0:
		reason = "empty aspect mask"
	case part.Levels.Empty():
		reason = "empty level range"
	case part.Layers.Empty():
		reason = "empty layer range"
	default:
		return part, nil
	}
	return Subrange{}, errors.New(fgPrefix + reason)
}

// Epochs returns the number of epochs minted so far.
// Mostly useful for diagnostics.
func (g *FrameGraph) Epochs() int { return int(g.epoch) - 1 }

// String implements fmt.Stringer.
func (g *FrameGraph) String() string {
	return fmt.Sprintf("framegraph{%d buffers, %d images, %d tasks}",
		len(g.bufs), len(g.imgs), len(g.tasks))
}

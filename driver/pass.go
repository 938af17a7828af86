// Copyright 2026 The frame-graph authors. All rights reserved.

package driver

// LoadOp is the type of an attachment's load operation.
type LoadOp int

// Load operations.
const (
	LDontCare LoadOp = iota
	LClear
	LLoad
)

// StoreOp is the type of an attachment's store operation.
type StoreOp int

// Store operations.
const (
	SDontCare StoreOp = iota
	SStore
)

// Attachment describes the configuration of a single
// render target for use in a render pass.
// Load and Store index 0 is for the color or depth
// aspect and index 1 is for the stencil aspect.
type Attachment struct {
	Format  PixelFmt
	Samples int
	Load    [2]LoadOp
	Store   [2]StoreOp
}

// Subpass defines a subpass of a render pass.
// Render passes are split into a number of subpasses.
// The Input, Color, DS (depth/stencil) and Preserve
// fields contain indices in the render pass' attachment
// list indicating the subset of the render targets that
// the subpass will use. DS must be -1 when the subpass
// has no depth/stencil attachment. The Wait field
// controls whether or not the subpass stalls waiting
// for previous work to finish.
type Subpass struct {
	Input    []int
	Color    []int
	DS       int
	Preserve []int
	Wait     bool
}

// RenderPass is the interface that defines a render pass
// into which draw commands operate.
type RenderPass interface {
	Destroyer

	// NewFB creates a new framebuffer.
	// Each image view in iv corresponds to the render
	// pass' attachment of same index. A view's pixel
	// format and sample count must match the attachment's.
	// All framebuffers created from a given render pass
	// must be destroyed before the render pass itself
	// is destroyed.
	NewFB(iv []ImageView, width, height, layers int) (Framebuf, error)
}

// Framebuf is the interface that defines the render targets
// of a render pass.
type Framebuf interface {
	Destroyer
}

// ClearValue defines clear values for color or depth/stencil
// aspects of a render target.
type ClearValue struct {
	Color   [4]float32
	Depth   float32
	Stencil uint32
}

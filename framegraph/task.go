// Copyright 2026 The frame-graph authors. All rights reserved.

package framegraph

import (
	"errors"

	"github.com/kvark/frame-graph/driver"
)

// RenderTask is the interface implemented by graphics work.
// Prepare is invoked once during Run, after the render pass
// for the task has been built, so the task can recompile
// pipeline state bound to that concrete subpass. Record is
// invoked exactly once afterwards, inside the subpass that
// was most recently passed to Prepare.
// Neither method reports failure to the frame graph; a
// task's internal errors are its own responsibility.
type RenderTask interface {
	Prepare(gpu driver.GPU, subpass SubpassDesc)
	Record(cb driver.CmdBuffer)
}

// WorkTask is the interface implemented by transfer and
// compute work. Record is invoked exactly once during Run,
// inside a blit or work block of the frame's command buffer.
type WorkTask interface {
	Record(cb driver.CmdBuffer)
}

// SubpassDesc describes the concrete subpass a RenderTask
// will record into.
type SubpassDesc struct {
	Pass  driver.RenderPass
	Index int

	// Attachment formats, in subpass order.
	// DS is FInvalid when the subpass has no
	// depth/stencil attachment.
	Colors []driver.PixelFmt
	DS     driver.PixelFmt

	Samples       int
	Width, Height int
}

// InputAttachment declares an image sub-range read as an
// input attachment. A zero Range means the image's full
// extent.
type InputAttachment struct {
	Image ImageRef
	Range Subrange
}

// ColorAttachment declares an image sub-range written as a
// color render target. A zero Range means the image's full
// extent. Clear is only used when Load is driver.LClear.
type ColorAttachment struct {
	Image ImageRef
	Range Subrange
	Load  driver.LoadOp
	Store driver.StoreOp
	Clear driver.ClearValue
}

// DepthStencilAttachment declares an image sub-range used as
// the depth/stencil target. When ReadOnly is set the task
// only tests against it. Load/Store index 0 is for depth and
// index 1 for stencil; Clear is only used with driver.LClear.
type DepthStencilAttachment struct {
	Image    ImageRef
	Range    Subrange
	ReadOnly bool
	Load     [2]driver.LoadOp
	Store    [2]driver.StoreOp
	Clear    driver.ClearValue
}

// Attachments declares every render target a render task
// touches. Preserves lists images whose contents must
// survive the task untouched.
type Attachments struct {
	Inputs       []InputAttachment
	Colors       []ColorAttachment
	DepthStencil *DepthStencilAttachment
	Preserves    []ImageRef
}

// BufferAccess declares an access to a whole buffer.
type BufferAccess struct {
	Buffer BufferRef
	Access driver.Access
}

// ImageAccess declares an access to an image sub-range.
// A zero Range means the image's full extent.
type ImageAccess struct {
	Image  ImageRef
	Range  Subrange
	Access driver.Access
	Layout driver.Layout
}

// Resources declares the non-attachment resources a task
// reads or writes.
type Resources struct {
	Buffers []BufferAccess
	Images  []ImageAccess
}

type taskKind int

const (
	taskGraphics taskKind = iota
	taskTransfer
	taskCompute
)

// imageUse is an attachment or image access rewritten by the
// tracker: the declared sub-range now carries the epoch of
// the new state, the causal edges it depends on, and the
// prior states it replaces, which is everything compilation
// needs to derive synchronization.
type imageUse struct {
	img    *trackedImage
	rng    Subrange
	access driver.Access
	layout driver.Layout
	load   [2]driver.LoadOp
	store  [2]driver.StoreOp
	clear  driver.ClearValue
	epoch  Epoch
	deps   []Dependency
	prev   []overlap
}

// bufferUse is a buffer access rewritten by the tracker.
type bufferUse struct {
	buf    *trackedBuffer
	access driver.Access
	epoch  Epoch
	deps   []Dependency
}

// task is a registered unit of work, consumed exactly once
// by Run.
type task struct {
	kind   taskKind
	render RenderTask
	work   WorkTask

	inputs    []imageUse
	colors    []imageUse
	ds        *imageUse
	preserves []imageUse

	bufs []bufferUse
	imgs []imageUse

	// Whether any rewritten access carries a dependency
	// edge, i.e. the task must be ordered after earlier
	// work in this frame.
	wait bool
}

// hasDeps reports whether any edge was recorded anywhere in
// the task's rewritten accesses.
func (t *task) hasDeps() bool {
	all := [][]imageUse{t.inputs, t.colors, t.preserves, t.imgs}
	for _, s := range all {
		for i := range s {
			if len(s[i].deps) > 0 {
				return true
			}
		}
	}
	if t.ds != nil && len(t.ds.deps) > 0 {
		return true
	}
	for i := range t.bufs {
		if len(t.bufs[i].deps) > 0 {
			return true
		}
	}
	return false
}

// stampImageUse resolves ref and stamps the given access,
// returning the rewritten use.
func (g *FrameGraph) stampImageUse(ref ImageRef, rng Subrange, access driver.Access, layout driver.Layout) (imageUse, error) {
	img, err := g.image(ref)
	if err != nil {
		return imageUse{}, err
	}
	rng, err = img.normalize(rng)
	if err != nil {
		return imageUse{}, err
	}
	e, got, err := img.track.stamp(rng, state{access, layout}, g.mint)
	if err != nil {
		return imageUse{}, err
	}
	u := imageUse{
		img:    img,
		rng:    rng,
		access: access,
		layout: layout,
		epoch:  e,
		prev:   got,
	}
	u.deps = img.track.hist[len(img.track.hist)-1].deps
	return u, nil
}

// stampBufferUse resolves ref and stamps the given access,
// returning the rewritten use.
func (g *FrameGraph) stampBufferUse(ref BufferRef, access driver.Access) (bufferUse, error) {
	buf, err := g.buffer(ref)
	if err != nil {
		return bufferUse{}, err
	}
	e, _, err := buf.track.stamp(bufferRange, state{access, driver.LUndefined}, g.mint)
	if err != nil {
		return bufferUse{}, err
	}
	u := bufferUse{buf: buf, access: access, epoch: e}
	u.deps = buf.track.hist[len(buf.track.hist)-1].deps
	return u, nil
}

// stampResources rewrites every declared resource access of
// a task.
func (g *FrameGraph) stampResources(t *task, res *Resources) error {
	for i := range res.Buffers {
		u, err := g.stampBufferUse(res.Buffers[i].Buffer, res.Buffers[i].Access)
		if err != nil {
			return err
		}
		t.bufs = append(t.bufs, u)
	}
	for i := range res.Images {
		r := &res.Images[i]
		u, err := g.stampImageUse(r.Image, r.Range, r.Access, r.Layout)
		if err != nil {
			return err
		}
		t.imgs = append(t.imgs, u)
	}
	return nil
}

// AddRenderTask registers graphics work for this frame.
// Every declared attachment and resource access is resolved
// through the hazard tracker; the stored attachments carry
// epochs rather than raw layouts, so Run can derive the
// exact synchronization needed. Images used as attachments
// must carry a driver binding.
func (g *FrameGraph) AddRenderTask(rt RenderTask, att Attachments, res Resources) error {
	if g.state != stateBuilding {
		return ErrSubmitted
	}
	if rt == nil {
		return errors.New(fgPrefix + "nil RenderTask")
	}
	t := task{kind: taskGraphics, render: rt}

	for i := range att.Inputs {
		u, err := g.stampImageUse(att.Inputs[i].Image, att.Inputs[i].Range,
			driver.AShaderRead, driver.LShaderRead)
		if err != nil {
			return err
		}
		if u.img.desc.View == nil {
			return ErrUnbound
		}
		u.load = [2]driver.LoadOp{driver.LLoad, driver.LLoad}
		u.store = [2]driver.StoreOp{driver.SStore, driver.SStore}
		t.inputs = append(t.inputs, u)
	}
	for i := range att.Colors {
		c := &att.Colors[i]
		u, err := g.stampImageUse(c.Image, c.Range, driver.AColorWrite, driver.LColorTarget)
		if err != nil {
			return err
		}
		if u.img.desc.View == nil {
			return ErrUnbound
		}
		u.load = [2]driver.LoadOp{c.Load, driver.LDontCare}
		u.store = [2]driver.StoreOp{c.Store, driver.SDontCare}
		u.clear = c.Clear
		t.colors = append(t.colors, u)
	}
	if d := att.DepthStencil; d != nil {
		access := driver.ADSRead | driver.ADSWrite
		layout := driver.LDSTarget
		if d.ReadOnly {
			access = driver.ADSRead
			layout = driver.LDSRead
		}
		u, err := g.stampImageUse(d.Image, d.Range, access, layout)
		if err != nil {
			return err
		}
		if u.img.desc.View == nil {
			return ErrUnbound
		}
		u.load = d.Load
		u.store = d.Store
		u.clear = d.Clear
		t.ds = &u
	}
	for _, ref := range att.Preserves {
		img, err := g.image(ref)
		if err != nil {
			return err
		}
		got, err := img.track.probe(img.track.extent)
		if err != nil {
			return err
		}
		u := imageUse{img: img, rng: img.track.extent, prev: got}
		for j := range got {
			if got[j].hazard {
				u.deps = append(u.deps, Dependency{got[j].epoch, got[j].part})
			}
		}
		t.preserves = append(t.preserves, u)
	}
	if err := g.stampResources(&t, &res); err != nil {
		return err
	}

	t.wait = t.hasDeps()
	g.tasks = append(g.tasks, t)
	return nil
}

// AddTransferTask registers transfer work for this frame.
// Transfer tasks operate at whole-resource granularity.
func (g *FrameGraph) AddTransferTask(wt WorkTask, res Resources) error {
	return g.addWorkTask(taskTransfer, wt, res)
}

// AddComputeTask registers compute work for this frame.
// Compute tasks operate at whole-resource granularity.
func (g *FrameGraph) AddComputeTask(wt WorkTask, res Resources) error {
	return g.addWorkTask(taskCompute, wt, res)
}

func (g *FrameGraph) addWorkTask(kind taskKind, wt WorkTask, res Resources) error {
	if g.state != stateBuilding {
		return ErrSubmitted
	}
	if wt == nil {
		return errors.New(fgPrefix + "nil WorkTask")
	}
	t := task{kind: kind, work: wt}
	for i := range res.Buffers {
		u, err := g.stampBufferUse(res.Buffers[i].Buffer, res.Buffers[i].Access)
		if err != nil {
			return err
		}
		t.bufs = append(t.bufs, u)
	}
	// Whole-resource granularity: the declared range is
	// ignored and the full extent is stamped.
	for i := range res.Images {
		r := &res.Images[i]
		u, err := g.stampImageUse(r.Image, Subrange{}, r.Access, r.Layout)
		if err != nil {
			return err
		}
		t.imgs = append(t.imgs, u)
	}
	t.wait = t.hasDeps()
	g.tasks = append(g.tasks, t)
	return nil
}

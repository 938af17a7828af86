// Copyright 2026 The frame-graph authors. All rights reserved.

package framegraph

import (
	"errors"

	"github.com/kvark/frame-graph/driver"
)

// ErrNotSubmitted means that Wait was called on a FrameGraph
// whose work was never submitted.
var ErrNotSubmitted = errors.New(fgPrefix + "frame not submitted")

// node is a schedulable unit built during Run: a compiled
// render pass plus its task, or a pass-through transfer or
// compute task. Nodes exist only for the duration of Run.
type node struct {
	kind taskKind

	// Graphics.
	pass   driver.RenderPass
	fb     driver.Framebuf
	clear  []driver.ClearValue
	render RenderTask

	// Transfer/compute.
	work WorkTask

	// Layout transitions to emit ahead of the node,
	// derived from the epoch edges.
	transitions []driver.Transition

	wait bool
}

// destroy releases the driver objects the node owns.
func (n *node) destroy() {
	if n.fb != nil {
		n.fb.Destroy()
	}
	if n.pass != nil {
		n.pass.Destroy()
	}
}

// syncScope maps an access scope to the synchronization
// scope that covers it.
func syncScope(a driver.Access) driver.Sync {
	var s driver.Sync
	if a&(driver.AColorRead|driver.AColorWrite) != 0 {
		s |= driver.SColorOutput
	}
	if a&(driver.ADSRead|driver.ADSWrite) != 0 {
		s |= driver.SDSOutput
	}
	if a&(driver.ACopyRead|driver.ACopyWrite) != 0 {
		s |= driver.SCopy
	}
	if a&(driver.AShaderRead|driver.AShaderWrite) != 0 {
		s |= driver.SFragmentShading | driver.SComputeShading
	}
	if a&(driver.AAnyRead|driver.AAnyWrite) != 0 {
		s |= driver.SAll
	}
	return s
}

// transitionsOf derives the image layout transitions implied
// by a rewritten image use: one per consumed prior piece
// whose layout differs from the new one. Unbound images get
// none; their driver-level state is the caller's problem.
func transitionsOf(u *imageUse, dst []driver.Transition) []driver.Transition {
	if u.img.desc.Bind == nil {
		return dst
	}
	for i := range u.prev {
		p := &u.prev[i]
		if p.prev.layout == u.layout {
			continue
		}
		dst = append(dst, driver.Transition{
			Barrier: driver.Barrier{
				SyncBefore:   syncScope(p.prev.access),
				SyncAfter:    syncScope(u.access),
				AccessBefore: p.prev.access,
				AccessAfter:  u.access,
			},
			LayoutBefore: p.prev.layout,
			LayoutAfter:  u.layout,
			Img:          u.img.desc.Bind,
			Layer:        p.part.Layers.Start,
			Layers:       p.part.Layers.Len(),
			Level:        p.part.Levels.Start,
			Levels:       p.part.Levels.Len(),
		})
	}
	return dst
}

// compileGraphics builds the render pass, framebuffer and
// subpass descriptor for a graphics task and gives the task
// a chance to recompile pipeline state against them.
func (g *FrameGraph) compileGraphics(t *task) (n node, err error) {
	n = node{kind: taskGraphics, render: t.render, wait: t.wait}

	uses := make([]*imageUse, 0, len(t.inputs)+len(t.colors)+1)
	for i := range t.inputs {
		uses = append(uses, &t.inputs[i])
	}
	for i := range t.colors {
		uses = append(uses, &t.colors[i])
	}
	if t.ds != nil {
		uses = append(uses, t.ds)
	}
	if len(uses) == 0 {
		err = errors.New(fgPrefix + "render task with no attachments")
		return
	}

	att := make([]driver.Attachment, len(uses))
	views := make([]driver.ImageView, len(uses))
	n.clear = make([]driver.ClearValue, len(uses))
	width, height, layers := -1, -1, -1
	samples := uses[0].img.desc.Samples
	for i, u := range uses {
		att[i] = driver.Attachment{
			Format:  u.img.desc.Format,
			Samples: u.img.desc.Samples,
			Load:    u.load,
			Store:   u.store,
		}
		views[i] = u.img.desc.View
		n.clear[i] = u.clear
		n.transitions = transitionsOf(u, n.transitions)
		// The render area is the smallest attachment
		// extent, at each attachment's base mip level.
		w := max(1, u.img.desc.Size.Width>>u.rng.Levels.Start)
		h := max(1, u.img.desc.Size.Height>>u.rng.Levels.Start)
		if width < 0 || w < width {
			width = w
		}
		if height < 0 || h < height {
			height = h
		}
		if l := u.rng.Layers.Len(); layers < 0 || l < layers {
			layers = l
		}
	}

	sub := driver.Subpass{DS: -1, Wait: t.wait}
	desc := SubpassDesc{
		Index:   0,
		DS:      driver.FInvalid,
		Samples: samples,
		Width:   width,
		Height:  height,
	}
	for i := range t.inputs {
		sub.Input = append(sub.Input, i)
	}
	for i := range t.colors {
		j := len(t.inputs) + i
		sub.Color = append(sub.Color, j)
		desc.Colors = append(desc.Colors, att[j].Format)
	}
	if t.ds != nil {
		sub.DS = len(uses) - 1
		desc.DS = att[sub.DS].Format
	}

	n.pass, err = g.gpu.NewRenderPass(att, []driver.Subpass{sub})
	if err != nil {
		return
	}
	n.fb, err = n.pass.NewFB(views, width, height, layers)
	if err != nil {
		n.pass.Destroy()
		n.pass = nil
		return
	}
	desc.Pass = n.pass

	t.render.Prepare(g.gpu, desc)
	return
}

// compile turns the registered task list into nodes, in
// registration order.
func (g *FrameGraph) compile() ([]node, error) {
	nodes := make([]node, 0, len(g.tasks))
	for i := range g.tasks {
		t := &g.tasks[i]
		switch t.kind {
		case taskGraphics:
			n, err := g.compileGraphics(t)
			if err != nil {
				for j := range nodes {
					nodes[j].destroy()
				}
				return nil, err
			}
			nodes = append(nodes, n)
		default:
			n := node{kind: t.kind, work: t.work, wait: t.wait}
			for j := range t.imgs {
				n.transitions = transitionsOf(&t.imgs[j], n.transitions)
			}
			nodes = append(nodes, n)
		}
	}
	return nodes, nil
}

// record emits the node's commands into cb.
func (n *node) record(cb driver.CmdBuffer) {
	if len(n.transitions) > 0 {
		cb.Transition(n.transitions)
	}
	switch n.kind {
	case taskGraphics:
		cb.BeginPass(n.pass, n.fb, n.clear)
		n.render.Record(cb)
		cb.EndPass()
	case taskTransfer:
		cb.BeginBlit(n.wait)
		n.work.Record(cb)
		cb.EndBlit()
	case taskCompute:
		cb.BeginWork(n.wait)
		n.work.Record(cb)
		cb.EndWork()
	}
}

// Run compiles the registered tasks, records them in
// registration order into a single command buffer and
// submits the batch once.
//
// On failure no submission is made, the completion signal
// stays unarmed and the frame must be treated as not
// executed. A FrameGraph is single-use either way: Run
// does not accept a second call.
func (g *FrameGraph) Run() error {
	if g.state != stateBuilding {
		return ErrSubmitted
	}
	g.state = stateCompiling

	nodes, err := g.compile()
	if err != nil {
		return err
	}
	fail := func(err error) error {
		for i := range nodes {
			nodes[i].destroy()
		}
		return err
	}

	if g.cb == nil {
		if g.cb, err = g.gpu.NewCmdBuffer(); err != nil {
			return fail(err)
		}
	}
	if err := g.cb.Begin(); err != nil {
		return fail(err)
	}
	for i := range nodes {
		nodes[i].record(g.cb)
	}
	if err := g.cb.End(); err != nil {
		return fail(err)
	}

	// Reset, then arm, the completion signal.
	select {
	case <-g.wk:
	default:
	}
	if err := g.gpu.Commit([]driver.CmdBuffer{g.cb}, g.wk); err != nil {
		return fail(err)
	}
	// The driver objects owned by the nodes are referenced
	// by the submitted commands; they are released when the
	// frame retires.
	g.nodes = nodes
	g.state = stateSubmitted
	return nil
}

// Wait blocks until the submitted frame retires and returns
// the execution result. It may be called any number of
// times after a successful Run; every call reports the same
// result.
func (g *FrameGraph) Wait() error {
	if g.state != stateSubmitted {
		return ErrNotSubmitted
	}
	if !g.waited {
		g.err = <-g.wk
		g.waited = true
		for i := range g.nodes {
			g.nodes[i].destroy()
		}
		g.nodes = nil
	}
	return g.err
}

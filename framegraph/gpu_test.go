// Copyright 2026 The frame-graph authors. All rights reserved.

package framegraph

import (
	"errors"

	"github.com/kvark/frame-graph/driver"
)

// fakeGPU implements driver.GPU for tests. It appends one
// event string per interesting call so tests can assert on
// exact command order.
type fakeGPU struct {
	events []string

	failPass   bool
	failFB     bool
	failCommit bool
	commitErr  error // result sent on the completion channel
}

func (g *fakeGPU) record(ev string) { g.events = append(g.events, ev) }

func (g *fakeGPU) Driver() driver.Driver { return nil }

func (g *fakeGPU) Commit(cb []driver.CmdBuffer, ch chan<- error) error {
	if g.failCommit {
		return errors.New("fakeGPU: commit failure")
	}
	g.record("commit")
	ch <- g.commitErr
	return nil
}

func (g *fakeGPU) NewCmdBuffer() (driver.CmdBuffer, error) {
	return &fakeCmdBuffer{gpu: g}, nil
}

func (g *fakeGPU) NewRenderPass(att []driver.Attachment, sub []driver.Subpass) (driver.RenderPass, error) {
	if g.failPass {
		return nil, errors.New("fakeGPU: render pass failure")
	}
	g.record("newRenderPass")
	return &fakePass{gpu: g, att: att, sub: sub}, nil
}

func (g *fakeGPU) NewBuffer(size int64, visible bool, usg driver.Usage) (driver.Buffer, error) {
	return &fakeBuffer{size: size}, nil
}

func (g *fakeGPU) NewImage(pf driver.PixelFmt, size driver.Dim3D, layers, levels, samples int, usg driver.Usage) (driver.Image, error) {
	return &fakeImage{}, nil
}

type fakePass struct {
	gpu       *fakeGPU
	att       []driver.Attachment
	sub       []driver.Subpass
	destroyed bool
}

func (p *fakePass) Destroy() { p.destroyed = true }

func (p *fakePass) NewFB(iv []driver.ImageView, width, height, layers int) (driver.Framebuf, error) {
	if p.gpu.failFB {
		return nil, errors.New("fakeGPU: framebuffer failure")
	}
	p.gpu.record("newFB")
	return &fakeFB{}, nil
}

type fakeFB struct{ destroyed bool }

func (f *fakeFB) Destroy() { f.destroyed = true }

type fakeBuffer struct{ size int64 }

func (b *fakeBuffer) Destroy()      {}
func (b *fakeBuffer) Visible() bool { return true }
func (b *fakeBuffer) Bytes() []byte { return make([]byte, b.size) }
func (b *fakeBuffer) Cap() int64    { return b.size }

type fakeImage struct{}

func (m *fakeImage) Destroy() {}
func (m *fakeImage) NewView(typ driver.ViewType, layer, layers, level, levels int) (driver.ImageView, error) {
	return &fakeView{img: m}, nil
}

type fakeView struct{ img *fakeImage }

func (v *fakeView) Destroy()            {}
func (v *fakeView) Image() driver.Image { return v.img }

// fakeCmdBuffer implements driver.CmdBuffer, logging the
// recording-structure calls.
type fakeCmdBuffer struct {
	gpu       *fakeGPU
	recording bool
}

func (c *fakeCmdBuffer) Destroy() {}

func (c *fakeCmdBuffer) Begin() error {
	c.recording = true
	c.gpu.record("begin")
	return nil
}

func (c *fakeCmdBuffer) IsRecording() bool { return c.recording }

func (c *fakeCmdBuffer) BeginPass(pass driver.RenderPass, fb driver.Framebuf, clear []driver.ClearValue) {
	c.gpu.record("beginPass")
}
func (c *fakeCmdBuffer) NextSubpass()          { c.gpu.record("nextSubpass") }
func (c *fakeCmdBuffer) EndPass()              { c.gpu.record("endPass") }
func (c *fakeCmdBuffer) BeginWork(wait bool)   { c.gpu.record("beginWork") }
func (c *fakeCmdBuffer) EndWork()              { c.gpu.record("endWork") }
func (c *fakeCmdBuffer) BeginBlit(wait bool)   { c.gpu.record("beginBlit") }
func (c *fakeCmdBuffer) EndBlit()              { c.gpu.record("endBlit") }
func (c *fakeCmdBuffer) Barrier(b []driver.Barrier) {
	c.gpu.record("barrier")
}
func (c *fakeCmdBuffer) Transition(t []driver.Transition) {
	c.gpu.record("transition")
}
func (c *fakeCmdBuffer) CopyBuffer(param *driver.BufferCopy)                {}
func (c *fakeCmdBuffer) CopyImage(param *driver.ImageCopy)                  {}
func (c *fakeCmdBuffer) Fill(buf driver.Buffer, off int64, v byte, n int64) {}
func (c *fakeCmdBuffer) Dispatch(x, y, z int)                               {}
func (c *fakeCmdBuffer) Draw(vertCount, instCount, baseVert, baseInst int)  {}

func (c *fakeCmdBuffer) End() error {
	c.recording = false
	c.gpu.record("end")
	return nil
}

func (c *fakeCmdBuffer) Reset() error {
	c.recording = false
	return nil
}

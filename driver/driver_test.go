// Copyright 2026 The frame-graph authors. All rights reserved.

package driver

import "testing"

type nilDriver struct{ name string }

func (d *nilDriver) Open() (GPU, error) { return nil, ErrNoDevice }
func (d *nilDriver) Name() string       { return d.name }
func (d *nilDriver) Close()             {}

func TestRegister(t *testing.T) {
	names := [...]string{"a", "b", "c"}
	for i := range names {
		Register(&nilDriver{names[i]})
		drv := Drivers()
		if len(drv) != i+1 {
			t.Fatalf("Drivers: len\nhave %d\nwant %d", len(drv), i+1)
		}
		for j := range drv[:i+1] {
			if drv[j].Name() != names[j] {
				t.Fatalf("Drivers: [%d].Name\nhave %s\nwant %s", j, drv[j].Name(), names[j])
			}
		}
	}

	// Registering the same name again replaces the entry
	// rather than appending a duplicate.
	repl := &nilDriver{"b"}
	Register(repl)
	drv := Drivers()
	if len(drv) != len(names) {
		t.Fatalf("Drivers: len after replacement\nhave %d\nwant %d", len(drv), len(names))
	}
	if drv[1] != Driver(repl) {
		t.Fatalf("Drivers: [1]\nhave %v\nwant %v", drv[1], repl)
	}

	// The returned slice is a copy.
	drv[0] = nil
	if x := Drivers(); x[0] == nil {
		t.Fatal("Drivers: registry aliased by returned slice")
	}
}

func TestAccessWrites(t *testing.T) {
	for _, x := range [...]struct {
		a    Access
		want bool
	}{
		{ANone, false},
		{AShaderRead, false},
		{AColorRead | ADSRead | ACopyRead | AAnyRead, false},
		{AColorWrite, true},
		{ADSWrite, true},
		{ACopyWrite, true},
		{AShaderWrite, true},
		{AAnyWrite, true},
		{AShaderRead | ACopyWrite, true},
	} {
		if got := x.a.Writes(); got != x.want {
			t.Fatalf("%v.Writes:\nhave %v\nwant %v", x.a, got, x.want)
		}
	}
}

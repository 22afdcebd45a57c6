package kfmt

import (
	"bytes"
	"errors"
	"sorrowos/kernel"
	"sorrowos/kernel/cpu"
	"testing"
)

func TestPanic(t *testing.T) {
	defer func() {
		cpuHaltFn = cpu.Halt
		sink = nil
	}()

	var (
		cpuHaltCalled bool
		buf           bytes.Buffer
	)
	cpuHaltFn = func() {
		cpuHaltCalled = true
	}
	SetOutputSink(&buf)

	specs := []struct {
		input  interface{}
		expMsg string
	}{
		{
			&kernel.Error{Module: "vmm", Message: "physical memory offset not set"},
			"[vmm] unrecoverable error: physical memory offset not set\n",
		},
		{
			errors.New("go error"),
			"[rt] unrecoverable error: go error\n",
		},
		{
			"string error",
			"[rt] unrecoverable error: string error\n",
		},
		{
			nil,
			"",
		},
	}

	for specIndex, spec := range specs {
		cpuHaltCalled = false
		buf.Reset()

		Panic(spec.input)

		exp := "\n-----------------------------------\n" + spec.expMsg + "*** kernel panic: system halted ***\n-----------------------------------\n"
		if got := buf.String(); got != exp {
			t.Errorf("[spec %d] expected to get:\n%q\ngot:\n%q", specIndex, exp, got)
		}

		if !cpuHaltCalled {
			t.Errorf("[spec %d] expected cpu.Halt() to be called by Panic", specIndex)
		}
	}
}

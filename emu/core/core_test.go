/*
   Core CT6K emulator loop tests.

   Copyright (c) 2024, Richard Cornwell

   Permission is hereby granted, free of charge, to any person obtaining a
   copy of this software and associated documentation files (the "Software"),
   to deal in the Software without restriction, including without limitation
   the rights to use, copy, modify, merge, publish, distribute, sublicense,
   and/or sell copies of the Software, and to permit persons to whom the
   Software is furnished to do so, subject to the following conditions:

   The above copyright notice and this permission notice shall be included in
   all copies or substantial portions of the Software.

   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
   RICHARD CORNWELL BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
   IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
   CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*/

package core

import (
	"testing"
	"time"

	"github.com/compotron/ct6k/emu/cpu"
	"github.com/compotron/ct6k/emu/instruction"
	"github.com/compotron/ct6k/emu/master"
	"github.com/compotron/ct6k/emu/printotron"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// drainUntil pulls packets until one matches, dropping the rest.
func drainUntil(t *testing.T, events <-chan master.Packet, msg master.MsgType) master.Packet {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case packet := <-events:
			if packet.Msg == msg {
				return packet
			}
		case <-deadline:
			t.Fatalf("timed out waiting for packet %d", msg)
		}
	}
}

func loadAndHalt() []uint32 {
	return []uint32{
		instruction.Encode(instruction.OpMove, instruction.RegNull, instruction.RegNull, instruction.Reg(0)),
		5,
		instruction.Encode(instruction.OpHalt, 0, 0, 0),
	}
}

func TestStepThenHalt(t *testing.T) {
	core := New(cpu.New(4096))
	core.LoadProgram(loadAndHalt())
	core.Go()
	defer core.Stop()

	core.SetState(Step)
	waitFor(t, "step to finish", func() bool { return core.State() == Stopped })

	core.Quiesce()
	if got := core.ReadReg(0); got != 5 {
		t.Errorf("R0 got: %08x expected: 5", got)
	}

	core.SetState(Step)
	waitFor(t, "halt", func() bool { return core.State() == Halted })

	packet := drainUntil(t, core.Events(), master.Halted)
	if !packet.State.Halted {
		t.Error("halt packet should carry a halted snapshot")
	}

	// Requests after HALTED are ignored.
	core.SetState(FreeRun)
	if core.State() != Halted {
		t.Error("run request after halt should be ignored")
	}
}

func TestFreeRunAndQuiesce(t *testing.T) {
	machine := cpu.New(4096)
	core := New(machine)
	// Endless loop: JMP 0.
	core.LoadProgram([]uint32{
		instruction.Encode(instruction.OpJmp, 0, 0, instruction.RegNull),
		0,
	})
	core.Go()
	defer core.Stop()

	core.SetState(FreeRun)
	// While running, debug reads are defensive no-ops.
	time.Sleep(10 * time.Millisecond)
	if core.State() != FreeRun {
		t.Fatal("driver should be free running")
	}
	if got := core.ReadMem(0); got != 0 {
		t.Errorf("unquiesced read got: %08x expected: 0", got)
	}

	core.Quiesce()
	if core.State() != Stopped {
		t.Error("quiesce should stop the driver")
	}
	if got := core.ReadMem(1); got != 0 {
		t.Errorf("quiesced read got: %08x expected: 0", got)
	}
	core.WriteMem(100, 0x1234)
	if got := core.ReadMem(100); got != 0x1234 {
		t.Errorf("quiesced write did not stick: %08x", got)
	}

	// Resume and stop again.
	core.Go()
	core.SetState(Step)
	waitFor(t, "step", func() bool { return core.State() == Stopped })
}

func TestSnapshotStream(t *testing.T) {
	core := New(cpu.New(4096))
	core.LoadProgram(loadAndHalt())
	core.Go()
	defer core.Stop()

	core.SetState(Step)
	// Snapshots reflect the instruction just retired; wait for the one
	// past the two-word MOVE.
	deadline := time.After(5 * time.Second)
	for {
		var packet master.Packet
		select {
		case packet = <-core.Events():
		case <-deadline:
			t.Fatal("timed out waiting for snapshot")
		}
		if packet.Msg != master.StateUpdate ||
			packet.State.Registers[instruction.RegIP] != 2 {
			continue
		}
		if packet.Next == "" {
			t.Error("snapshot should carry the next disassembly")
		}
		return
	}
}

func TestPrinterDrain(t *testing.T) {
	machine := cpu.New(4096)
	pot := printotron.New()
	if err := machine.AddDevice(pot); err != nil {
		t.Fatal(err)
	}

	core := New(machine)

	// Write 'H' and 'I' to the printer window, release the line, halt.
	base := cpu.BaseIOMem + cpu.DevWindow
	program := []uint32{
		instruction.Encode(instruction.OpMove, instruction.RegNull, instruction.RegNull, instruction.Reg(1)),
		base + printotron.RegOutput,
		instruction.Encode(instruction.OpMove, instruction.RegNull, instruction.RegNull, instruction.Reg(2)),
		'H',
		instruction.Encode(instruction.OpMove, instruction.Reg(2), 0, instruction.Ind(1)),
		instruction.Encode(instruction.OpMove, instruction.RegNull, instruction.RegNull, instruction.Reg(2)),
		'I',
		instruction.Encode(instruction.OpMove, instruction.Reg(2), 0, instruction.Ind(1)),
		instruction.Encode(instruction.OpMove, instruction.RegNull, instruction.RegNull, instruction.Reg(1)),
		base + printotron.RegControl,
		instruction.Encode(instruction.OpMove, instruction.RegNull, instruction.RegNull, instruction.Reg(2)),
		printotron.ControlLineRelease,
		instruction.Encode(instruction.OpMove, instruction.Reg(2), 0, instruction.Ind(1)),
		instruction.Encode(instruction.OpHalt, 0, 0, 0),
	}
	core.LoadProgram(program)
	core.Go()
	defer core.Stop()

	core.SetState(FreeRun)
	packet := drainUntil(t, core.Events(), master.PrinterLine)
	if packet.Line != "HI" {
		t.Errorf("printer line got: %q expected: %q", packet.Line, "HI")
	}
}

func TestBreakpoint(t *testing.T) {
	core := New(cpu.New(4096))
	// NOP; NOP; JMP 0.
	core.LoadProgram([]uint32{
		instruction.Encode(instruction.OpNop, 0, 0, 0),
		instruction.Encode(instruction.OpNop, 0, 0, 0),
		instruction.Encode(instruction.OpJmp, 0, 0, instruction.RegNull),
		0,
	})
	core.SetBreakpoint(1)
	core.Go()
	defer core.Stop()

	core.SetState(FreeRun)
	packet := drainUntil(t, core.Events(), master.Breakpoint)
	if packet.State.Registers[instruction.RegIP] != 1 {
		t.Errorf("breakpoint IP got: %08x expected: 1", packet.State.Registers[instruction.RegIP])
	}
	waitFor(t, "stop at breakpoint", func() bool { return core.State() == Stopped })
}

func TestResetClearsHalt(t *testing.T) {
	core := New(cpu.New(4096))
	core.LoadProgram([]uint32{instruction.Encode(instruction.OpHalt, 0, 0, 0)})
	core.Go()
	defer core.Stop()

	core.SetState(Step)
	waitFor(t, "halt", func() bool { return core.State() == Halted })

	core.Quiesce()
	core.Reset()
	if core.State() != Stopped {
		t.Errorf("state after reset got: %v", core.State())
	}
	if core.DumpState().Halted {
		t.Error("CPU should not be halted after reset")
	}
}

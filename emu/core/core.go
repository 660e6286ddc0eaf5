/*
   Core CT6K emulator loop.

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

// Package core drives the CPU from a separate goroutine at a selectable
// rate. The owner's goroutine issues state changes through a mutex and
// condition variable; the driver publishes snapshots and printer output on
// a channel and never blocks on its observers.
package core

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/compotron/ct6k/emu/cpu"
	"github.com/compotron/ct6k/emu/instruction"
	"github.com/compotron/ct6k/emu/master"
	"github.com/compotron/ct6k/emu/printotron"
	"github.com/compotron/ct6k/emu/rom"
)

// Run states.
type RunState int

const (
	Stopped RunState = iota
	Step
	Slow
	Medium
	Fast
	FreeRun
	Halted
	Exiting
)

var stateNames = map[RunState]string{
	Stopped: "STOPPED",
	Step:    "STEP",
	Slow:    "SLOW",
	Medium:  "MEDIUM",
	Fast:    "FAST",
	FreeRun: "FREERUN",
	Halted:  "HALTED",
	Exiting: "EXITING",
}

func (s RunState) String() string {
	return stateNames[s]
}

// Batch pacing.
const (
	slowMsec   = 1000
	mediumMsec = 100
	fastMsec   = 17 // A hair slow, so was the real machine.

	// Instructions per free-run batch before the driver checks for state
	// changes. Use an odd number so no IP bit looks stuck on the panel.
	freeRunCycles = 10001
)

// Core owns the CPU and the driver goroutine.
type Core struct {
	cpu *cpu.CPU
	rom *rom.Image

	mu     sync.Mutex
	cond   *sync.Cond
	state  RunState
	parked bool
	bp     uint32
	bpSet  bool

	events chan master.Packet
	wg     sync.WaitGroup
	live   bool
}

// New wraps a CPU in a run controller. The driver is not started; call Go.
func New(machine *cpu.CPU) *Core {
	core := &Core{
		cpu:    machine,
		state:  Stopped,
		events: make(chan master.Packet, 64),
	}
	core.cond = sync.NewCond(&core.mu)
	return core
}

// Events is the observer channel. The driver drops packets rather than
// block when nobody is draining it.
func (core *Core) Events() <-chan master.Packet {
	return core.events
}

// SetROM installs the image that gets programmed into high memory on every
// reset.
func (core *Core) SetROM(image *rom.Image) {
	core.rom = image
}

// Go starts the driver goroutine if it is not already running.
func (core *Core) Go() {
	core.mu.Lock()
	defer core.mu.Unlock()
	if core.live {
		// Wake a parked driver.
		core.cond.Broadcast()
		return
	}
	core.live = true
	core.wg.Add(1)
	go core.run()
}

// Stop tears the driver down for process exit and waits for it to finish.
func (core *Core) Stop() {
	core.mu.Lock()
	if !core.live {
		core.mu.Unlock()
		return
	}
	core.state = Exiting
	core.cond.Broadcast()
	core.mu.Unlock()

	done := make(chan struct{})
	go func() {
		core.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		slog.Warn("Timed out waiting for driver to finish.")
	}
}

// SetState requests a new run state. Once the CPU halts, every request
// except EXITING is ignored; a reset is needed to run again.
func (core *Core) SetState(state RunState) {
	core.mu.Lock()
	defer core.mu.Unlock()
	if core.state == Halted && state != Exiting {
		return
	}
	if core.state == Exiting {
		return
	}
	core.state = state
	core.cond.Broadcast()
}

// State returns the current run state.
func (core *Core) State() RunState {
	core.mu.Lock()
	defer core.mu.Unlock()
	return core.state
}

// SetBreakpoint arms the one instruction breakpoint.
func (core *Core) SetBreakpoint(addr uint32) {
	core.mu.Lock()
	defer core.mu.Unlock()
	core.bp = addr
	core.bpSet = true
}

// ClearBreakpoint disarms it.
func (core *Core) ClearBreakpoint() {
	core.mu.Lock()
	defer core.mu.Unlock()
	core.bpSet = false
}

// Quiesce parks the driver and waits until it is parked. Only between
// Quiesce and Go may the owner touch CPU state directly.
func (core *Core) Quiesce() {
	core.mu.Lock()
	defer core.mu.Unlock()
	if core.state != Halted && core.state != Exiting {
		core.state = Stopped
	}
	core.cond.Broadcast()
	for core.live && !core.parked {
		core.cond.Wait()
	}
}

// quiesced reports whether debug access is currently safe.
func (core *Core) quiesced() bool {
	core.mu.Lock()
	defer core.mu.Unlock()
	return !core.live || core.parked
}

// Debug accessors. Touching the CPU while the driver is executing would
// corrupt state, so these are defensive no-ops unless quiesced.

// ReadMem reads CPU memory, zero unless quiesced.
func (core *Core) ReadMem(addr uint32) uint32 {
	if !core.quiesced() {
		return 0
	}
	return core.cpu.ReadMem(addr)
}

// WriteMem deposits into CPU memory, dropped unless quiesced.
func (core *Core) WriteMem(addr uint32, value uint32) {
	if core.quiesced() {
		core.cpu.WriteMem(addr, value)
	}
}

// ReadReg reads a register, zero unless quiesced.
func (core *Core) ReadReg(index uint8) uint32 {
	if !core.quiesced() {
		return 0
	}
	return core.cpu.ReadReg(index)
}

// WriteReg deposits into a register, dropped unless quiesced.
func (core *Core) WriteReg(index uint8, value uint32) {
	if core.quiesced() {
		core.cpu.WriteReg(index, value)
	}
}

// DumpState snapshots the CPU. Safe at any time for display purposes when
// quiesced; returns the zero state otherwise.
func (core *Core) DumpState() cpu.State {
	if !core.quiesced() {
		return cpu.State{}
	}
	return core.cpu.DumpState()
}

// Disassemble formats the instruction at the given address.
func (core *Core) Disassemble(addr uint32) string {
	if !core.quiesced() {
		return ""
	}
	inst := instruction.DecodeWith(core.cpu.ReadMem(addr), core.cpu.ReadMem(addr+1))
	return inst.String()
}

// Reset resets the machine and reprograms the ROM image. Requires quiesce.
// Clears a halt so the machine can run again.
func (core *Core) Reset() {
	if !core.quiesced() {
		return
	}
	core.cpu.Reset()
	if core.rom != nil {
		core.rom.Program(core.cpu)
	}
	core.mu.Lock()
	if core.state == Halted {
		core.state = Stopped
	}
	core.mu.Unlock()
	core.publishState()
}

// Boot resets the machine and aims it at the installed ROM's entry point.
// Requires quiesce; the caller sets the machine running.
func (core *Core) Boot() (uint32, error) {
	if core.rom == nil {
		return 0, errors.New("no ROM installed")
	}
	if !core.quiesced() {
		return 0, errors.New("machine is running")
	}
	core.Reset()
	core.cpu.WriteReg(instruction.RegIP, core.rom.Entry())
	core.publishState()
	return core.rom.Entry(), nil
}

// LoadProgram resets the machine and deposits a binary image at address
// zero. Requires quiesce.
func (core *Core) LoadProgram(words []uint32) {
	if !core.quiesced() {
		return
	}
	core.Reset()
	for i, word := range words {
		core.cpu.WriteMem(uint32(i), word)
	}
	core.publishState()
}

// Machine exposes the CPU for device registration at setup time.
func (core *Core) Machine() *cpu.CPU {
	return core.cpu
}

// run is the driver loop. It owns the CPU: nothing else touches CPU state
// while this goroutine is out of the parked state.
func (core *Core) run() {
	defer core.wg.Done()
	for {
		core.mu.Lock()
		local := core.state
		core.mu.Unlock()

		hitBP := false
		switch local {
		case Step:
			core.cpu.Step()
		case Slow:
			hitBP = core.runThenWait(slowMsec)
		case Medium:
			hitBP = core.runThenWait(mediumMsec)
		case Fast:
			hitBP = core.runThenWait(fastMsec)
		case FreeRun:
			for i := 0; i < freeRunCycles; i++ {
				core.cpu.Step()
				if core.atBreakpoint() {
					hitBP = true
					break
				}
				if core.cpu.IsHalted() {
					break
				}
			}
		case Stopped, Halted, Exiting:
			// Nothing to do.
		}

		if local != Exiting {
			core.publishState()
			core.drainPrinter()
		}
		core.cpu.DoBackground()

		core.mu.Lock()
		if core.state == Exiting {
			core.live = false
			core.mu.Unlock()
			return
		}
		if core.cpu.IsHalted() && core.state != Halted {
			core.state = Halted
			core.post(master.Packet{Msg: master.Halted, State: core.cpu.DumpState()})
		}
		if core.state == Step {
			core.state = Stopped
		}
		if hitBP && core.state != Halted {
			core.state = Stopped
			core.post(master.Packet{Msg: master.Breakpoint, State: core.cpu.DumpState()})
		}
		for core.state == Stopped || core.state == Halted {
			core.parked = true
			core.cond.Broadcast()
			core.cond.Wait()
			core.parked = false
			if core.state == Exiting {
				core.live = false
				core.mu.Unlock()
				return
			}
		}
		core.parked = false
		core.mu.Unlock()
	}
}

// runThenWait executes one instruction then sleeps, giving the slow rates.
func (core *Core) runThenWait(msec int) bool {
	core.cpu.Step()
	if core.atBreakpoint() {
		return true
	}
	if !core.cpu.IsHalted() {
		time.Sleep(time.Duration(msec) * time.Millisecond)
	}
	return false
}

func (core *Core) atBreakpoint() bool {
	core.mu.Lock()
	defer core.mu.Unlock()
	return core.bpSet && core.cpu.ReadReg(instruction.RegIP) == core.bp
}

// publishState snapshots the CPU and posts it with the next instruction
// disassembled.
func (core *Core) publishState() {
	state := core.cpu.DumpState()
	ip := state.Registers[instruction.RegIP]
	var next string
	if ip < core.cpu.MemSize() {
		inst := instruction.DecodeWith(core.cpu.ReadMem(ip), core.cpu.ReadMem(ip+1))
		next = inst.String()
	}
	core.post(master.Packet{Msg: master.StateUpdate, State: state, Next: next})
}

// drainPrinter moves released printer lines onto the observer channel. Any
// printer on the bus gets drained.
func (core *Core) drainPrinter() {
	for _, dev := range core.cpu.Devices() {
		pot, ok := dev.(*printotron.PrintOTron)
		if !ok {
			continue
		}
		for pot.IsOutputReady() {
			core.post(master.Packet{Msg: master.PrinterLine, Line: pot.GetOutputLine()})
		}
	}
}

// post never blocks; when the channel is full the packet is dropped, the
// next snapshot catches the observer up.
func (core *Core) post(packet master.Packet) {
	select {
	case core.events <- packet:
	default:
	}
}

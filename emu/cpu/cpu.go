/*
   CT6K CPU core.

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

// Package cpu implements the CT6K processor: sequential fetch, decode and
// execute over flat word memory, with fault dispatch, interrupt dispatch and
// the memory-mapped peripheral bus.
package cpu

import (
	"math"

	"github.com/compotron/ct6k/emu/instruction"
	"github.com/compotron/ct6k/emu/memory"
	"github.com/compotron/ct6k/emu/peripheral"
)

// State is the snapshot handed to the run controller and its observers.
// Observers must not alias CPU memory, so it is all values.
type State struct {
	Registers [instruction.NumRegs]uint32
	Halted    bool
	FHAPBase  uint32
	IHAPBase  uint32
}

// devSlot is one entry of the peripheral table. A slot with a zero DDN is
// empty and terminates the table when programs scan it.
type devSlot struct {
	ddn     uint32
	base    uint32
	memLen  uint32
	intLine uint32
}

// CPU owns memory and the peripheral table. It has no internal locking, the
// run controller guarantees a single driver.
type CPU struct {
	mem     *memory.Memory
	reg     [instruction.NumRegs]uint32
	running bool
	fhap    uint32
	ihap    uint32

	devs  [MaxDevices]peripheral.Periph
	slots [MaxDevices + 1]devSlot
}

// New builds a CPU around zeroed memory of the given size in words.
func New(size uint32) *CPU {
	return &CPU{mem: memory.New(size), running: true}
}

// NewDefault builds a CPU with the default memory size.
func NewDefault() *CPU {
	return New(memory.DefaultSize)
}

// ReadReg returns the register at the given index. Out of range indexes are
// a caller bug and read as zero.
func (c *CPU) ReadReg(index uint8) uint32 {
	if index >= instruction.NumRegs {
		return 0
	}
	return c.reg[index]
}

// WriteReg sets the register at the given index.
func (c *CPU) WriteReg(index uint8, value uint32) {
	if index < instruction.NumRegs {
		c.reg[index] = value
	}
}

// ReadMem reads a word, dispatching to the peripheral bus for addresses in
// the I/O region.
func (c *CPU) ReadMem(addr uint32) uint32 {
	if addr >= BaseIOMem {
		return c.readIO(addr)
	}
	return c.mem.Get(addr)
}

// WriteMem writes a word, dispatching to the peripheral bus for addresses
// in the I/O region.
func (c *CPU) WriteMem(addr uint32, value uint32) {
	if addr >= BaseIOMem {
		c.writeIO(addr, value)
		return
	}
	c.mem.Put(addr, value)
}

// MemSize returns the populated memory size in words.
func (c *CPU) MemSize() uint32 {
	return c.mem.Size()
}

// DumpState snapshots registers, halt state and handler bases.
func (c *CPU) DumpState() State {
	return State{
		Registers: c.reg,
		Halted:    !c.running,
		FHAPBase:  c.fhap,
		IHAPBase:  c.ihap,
	}
}

// Reset re-zeros memory, registers and handler pointers and clears the
// halt. Peripherals stay on the bus with their media attached; power
// cycling a device is its own operation.
func (c *CPU) Reset() {
	c.mem.Clear()
	for i := range c.reg {
		c.reg[i] = 0
	}
	c.running = true
	c.fhap = 0
	c.ihap = 0
}

// Halt stops the CPU, forever.
func (c *CPU) Halt() {
	c.running = false
}

// IsHalted reports the halt state.
func (c *CPU) IsHalted() bool {
	return !c.running
}

// Flag helpers. Tests and handlers reason about the flag set through these
// instead of twiddling FLG directly.

// SetFlag sets a flag bit without touching the others.
func (c *CPU) SetFlag(flag uint32) {
	c.reg[instruction.RegFLG] |= flag
}

// ClearFlag clears a flag bit without touching the others.
func (c *CPU) ClearFlag(flag uint32) {
	c.reg[instruction.RegFLG] &^= flag
}

// IsFlagSet checks the state of the given flag.
func (c *CPU) IsFlagSet(flag uint32) bool {
	return (c.reg[instruction.RegFLG] & flag) != 0
}

// ClearMathFlags clears overflow, underflow and zero before any math.
func (c *CPU) ClearMathFlags() {
	c.ClearFlag(FlagOver | FlagUnder | FlagZero)
}

func (c *CPU) indicateZero(value uint32) {
	if value == 0 {
		c.SetFlag(FlagZero)
	} else {
		c.ClearFlag(FlagZero)
	}
}

// Step advances the machine by one instruction unless halted. Interrupts
// are sampled before the fetch; dispatching one consumes the step.
func (c *CPU) Step() {
	if !c.running {
		return
	}

	if c.checkInterrupts() {
		return
	}

	iaddr := c.reg[instruction.RegIP]
	c.reg[instruction.RegIP]++
	inst := instruction.Decode(c.ReadMem(iaddr))

	var fault uint32
	if inst.Opcode == instruction.OpInvalid {
		fault = FaultBadInstr
	} else {
		fault = c.execute(&inst)
	}
	if fault != FaultNone {
		c.fault(fault)
	}
}

// checkInterrupts dispatches a pending device interrupt when the machine is
// willing to take one. Interrupts never preempt faults or other interrupts.
func (c *CPU) checkInterrupts() bool {
	if !c.IsFlagSet(FlagIntEna) || c.IsFlagSet(FlagFault) || c.IsFlagSet(FlagInInt) {
		return false
	}
	for i, dev := range c.devs {
		if dev == nil || c.slots[i].intLine == NoIntLine {
			continue
		}
		line := c.slots[i].intLine
		if !c.IsFlagSet(FlagIntEn0 << line) || !dev.InterruptActive() {
			continue
		}
		if c.pushState() != FaultNone {
			c.fault(FaultStack)
			return true
		}
		c.SetFlag(FlagInInt)
		c.reg[0] = line
		c.reg[instruction.RegIP] = c.ReadMem(c.ihap + line)
		return true
	}
	return false
}

// fault saves the machine state and vectors through the fault handler
// array. The state is pushed before FAULT is set, so the image on the stack
// is clean and IRET returns with the flag clear. A fault while FAULT is set
// is a double fault: R0 gets the high bit and the machine halts.
func (c *CPU) fault(code uint32) {
	if c.IsFlagSet(FlagFault) {
		c.reg[0] = FaultDouble
		c.Halt()
		return
	}
	if c.pushState() != FaultNone {
		// No room to save state, nowhere to return to.
		c.SetFlag(FlagFault)
		c.reg[0] = FaultDouble
		c.Halt()
		return
	}
	c.SetFlag(FlagFault)
	c.reg[0] = code
	c.reg[instruction.RegIP] = c.ReadMem(c.fhap + code - 1)
}

// pushState saves all sixteen registers at SP and bumps SP, in preparation
// for a fault handler, interrupt handler or SSTATE.
func (c *CPU) pushState() uint32 {
	base := c.reg[instruction.RegSP]
	if base > MaxStatePush {
		return FaultStack
	}
	for i := uint32(0); i < StateSize; i++ {
		c.WriteMem(base+i, c.reg[i])
	}
	c.reg[instruction.RegSP] = base + StateSize
	return FaultNone
}

// popState restores all sixteen registers from the stack. SP comes back
// from the saved image, which rolls it back for free.
func (c *CPU) popState() uint32 {
	base := c.reg[instruction.RegSP]
	if base < MinStatePop {
		return FaultStack
	}
	base -= StateSize
	for i := uint32(0); i < StateSize; i++ {
		c.reg[i] = c.ReadMem(base + i)
	}
	return FaultNone
}

// pushWord pushes one word, adjusting SP.
func (c *CPU) pushWord(word uint32) uint32 {
	sp := c.reg[instruction.RegSP]
	if sp == MaxAddr {
		return FaultStack
	}
	c.WriteMem(sp, word)
	c.reg[instruction.RegSP] = sp + 1
	return FaultNone
}

// popWord pops one word, adjusting SP.
func (c *CPU) popWord(word *uint32) uint32 {
	sp := c.reg[instruction.RegSP]
	if sp == 0 {
		return FaultStack
	}
	sp--
	*word = c.ReadMem(sp)
	c.reg[instruction.RegSP] = sp
	return FaultNone
}

// getFromReg loads the value an operand names: the register itself, or the
// memory word the register points at.
func (c *CPU) getFromReg(arg instruction.RegisterArg, value *uint32) uint32 {
	switch arg.Kind {
	case instruction.ArgIndirect:
		*value = c.ReadMem(c.reg[arg.Num])
	case instruction.ArgValue:
		*value = c.reg[arg.Num]
	default:
		return FaultBadInstr
	}
	return FaultNone
}

// putToDest stores through the destination operand, register or memory.
func (c *CPU) putToDest(inst *instruction.Instruction, value uint32) uint32 {
	switch inst.Dest.Kind {
	case instruction.ArgIndirect:
		c.WriteMem(c.reg[inst.Dest.Num], value)
	case instruction.ArgValue:
		c.reg[inst.Dest.Num] = value
	default:
		return FaultBadInstr
	}
	return FaultNone
}

// retrieveDirect fetches the direct value word following the instruction
// and steps IP past it.
func (c *CPU) retrieveDirect() uint32 {
	addr := c.reg[instruction.RegIP]
	c.reg[instruction.RegIP]++
	return c.ReadMem(addr)
}

// execute dispatches on the arity class of the current instruction.
func (c *CPU) execute(inst *instruction.Instruction) uint32 {
	switch inst.Class() {
	case instruction.ClassNoArgs:
		return c.executeNoArgs(inst)
	case instruction.ClassSrcOnly:
		return c.executeSrcOnly(inst)
	case instruction.ClassSrcDest:
		return c.executeSrcDest(inst)
	case instruction.ClassDestOnly:
		return c.executeDestOnly(inst)
	case instruction.ClassControlFlow:
		return c.executeControlFlow(inst)
	case instruction.Class2SrcDest:
		return c.execute2SrcDest(inst)
	}
	return FaultBadInstr
}

func (c *CPU) executeNoArgs(inst *instruction.Instruction) uint32 {
	fault := FaultNone

	switch inst.Opcode {
	case instruction.OpSState:
		fault = c.pushState()
	case instruction.OpLState:
		// IP and R0 survive, R0 carries the return value.
		tmpIP := c.reg[instruction.RegIP]
		tmpR0 := c.reg[0]
		fault = c.popState()
		c.reg[instruction.RegIP] = tmpIP
		c.reg[0] = tmpR0
	case instruction.OpReturn:
		var newIP uint32
		fault = c.popWord(&newIP)
		if fault == FaultNone {
			c.reg[instruction.RegIP] = newIP
		}
	case instruction.OpIret:
		fault = c.popState() // IP restored to previous position.
		c.ClearFlag(FlagInInt)
	case instruction.OpSigned:
		c.SetFlag(FlagSigned)
	case instruction.OpUnsigned:
		c.ClearFlag(FlagSigned)
	case instruction.OpIntEna:
		c.SetFlag(FlagIntEna)
	case instruction.OpIntDis:
		c.ClearFlag(FlagIntEna)
	case instruction.OpNop:
	case instruction.OpHalt:
		c.Halt()
	default:
		fault = FaultBadInstr
	}
	return fault
}

func (c *CPU) executeSrcOnly(inst *instruction.Instruction) uint32 {
	var value uint32

	fault := c.getFromReg(inst.Src1, &value)
	if fault != FaultNone {
		return fault
	}
	switch inst.Opcode {
	case instruction.OpPush:
		fault = c.pushWord(value)
	case instruction.OpSetFHAP:
		if value > MaxFHAP {
			return FaultBadAddr
		}
		c.fhap = value
	case instruction.OpSetIHAP:
		if value > MaxIHAP {
			return FaultBadAddr
		}
		c.ihap = value
	default:
		fault = FaultBadInstr
	}
	return fault
}

func (c *CPU) executeSrcDest(inst *instruction.Instruction) uint32 {
	switch inst.Opcode {
	case instruction.OpMove:
		if inst.DirectInUse() {
			return c.putToDest(inst, c.retrieveDirect())
		}
		var value uint32
		fault := c.getFromReg(inst.Src1, &value)
		if fault != FaultNone {
			return fault
		}
		return c.putToDest(inst, value)

	case instruction.OpCmp:
		var srcval, destval uint32
		c.ClearMathFlags()
		if inst.DirectInUse() {
			srcval = c.retrieveDirect()
		} else if fault := c.getFromReg(inst.Src1, &srcval); fault != FaultNone {
			return fault
		}
		if fault := c.getFromReg(inst.Dest, &destval); fault != FaultNone {
			return fault
		}
		var below, above bool
		if c.IsFlagSet(FlagSigned) {
			below = int32(srcval) < int32(destval)
			above = int32(srcval) > int32(destval)
		} else {
			below = srcval < destval
			above = srcval > destval
		}
		switch {
		case srcval == destval:
			c.SetFlag(FlagZero)
		case below:
			c.SetFlag(FlagUnder)
		case above:
			c.SetFlag(FlagOver)
		}
		return FaultNone
	}
	return FaultBadInstr
}

func (c *CPU) executeDestOnly(inst *instruction.Instruction) uint32 {
	var value uint32

	if inst.Opcode == instruction.OpPop {
		if fault := c.popWord(&value); fault != FaultNone {
			return fault
		}
		return c.putToDest(inst, value)
	}

	if fault := c.getFromReg(inst.Dest, &value); fault != FaultNone {
		return fault
	}
	c.ClearMathFlags()
	switch inst.Opcode {
	case instruction.OpNot:
		value = ^value
	case instruction.OpIncr:
		if c.IsFlagSet(FlagSigned) {
			signed := int32(value) + 1
			if signed == math.MinInt32 {
				c.SetFlag(FlagOver)
			}
			value = uint32(signed)
		} else {
			value++
			if value == 0 {
				c.SetFlag(FlagOver)
			}
		}
	case instruction.OpDecr:
		if c.IsFlagSet(FlagSigned) {
			signed := int32(value) - 1
			if signed == math.MaxInt32 {
				c.SetFlag(FlagUnder)
			}
			value = uint32(signed)
		} else {
			value--
			if value == 0xffffffff {
				c.SetFlag(FlagUnder)
			}
		}
	default:
		return FaultBadInstr
	}
	fault := c.putToDest(inst, value)
	c.indicateZero(value)
	return fault
}

func (c *CPU) executeControlFlow(inst *instruction.Instruction) uint32 {
	var target uint32

	if inst.DirectInUse() {
		target = c.retrieveDirect()
	} else if fault := c.getFromReg(inst.Dest, &target); fault != FaultNone {
		return fault
	}

	taken := false
	switch inst.Opcode {
	case instruction.OpJZero:
		taken = c.IsFlagSet(FlagZero)
	case instruction.OpJNZero:
		taken = !c.IsFlagSet(FlagZero)
	case instruction.OpJOver:
		taken = c.IsFlagSet(FlagOver)
	case instruction.OpJNOver:
		taken = !c.IsFlagSet(FlagOver)
	case instruction.OpJUnder:
		taken = c.IsFlagSet(FlagUnder)
	case instruction.OpJNUnder:
		taken = !c.IsFlagSet(FlagUnder)
	case instruction.OpJmp:
		taken = true
	case instruction.OpCall:
		if fault := c.pushWord(c.reg[instruction.RegIP]); fault != FaultNone {
			return fault
		}
		taken = true
	default:
		return FaultBadInstr
	}
	if taken {
		c.reg[instruction.RegIP] = target
	}
	return FaultNone
}

func (c *CPU) execute2SrcDest(inst *instruction.Instruction) uint32 {
	var src1val, src2val, destval uint32

	if fault := c.getFromReg(inst.Src1, &src1val); fault != FaultNone {
		return fault
	}
	if fault := c.getFromReg(inst.Src2, &src2val); fault != FaultNone {
		return fault
	}
	c.ClearMathFlags()
	switch inst.Opcode {
	case instruction.OpAdd:
		destval = src1val + src2val
		if c.IsFlagSet(FlagSigned) {
			if int32(destval) < int32(src1val) || int32(destval) < int32(src2val) {
				c.SetFlag(FlagOver)
			}
		} else {
			if destval < src1val || destval < src2val {
				c.SetFlag(FlagOver)
			}
		}
	case instruction.OpSub:
		destval = src1val - src2val
		if c.IsFlagSet(FlagSigned) {
			if int32(destval) > int32(src1val) || int32(destval) > int32(src2val) {
				c.SetFlag(FlagUnder)
			}
		} else {
			if destval > src1val || destval > src2val {
				c.SetFlag(FlagUnder)
			}
		}
	case instruction.OpAnd:
		destval = src1val & src2val
	case instruction.OpOr:
		destval = src1val | src2val
	case instruction.OpXor:
		destval = src1val ^ src2val
	case instruction.OpShiftR:
		// Shifts of 32 or more clear the result, zeros fill from the left.
		if src2val < 32 {
			destval = src1val >> src2val
		}
		if (destval << (src2val & 31)) != src1val {
			c.SetFlag(FlagUnder)
		}
	case instruction.OpShiftL:
		if src2val < 32 {
			destval = src1val << src2val
		}
		if (destval >> (src2val & 31)) != src1val {
			c.SetFlag(FlagOver)
		}
	default:
		return FaultBadInstr
	}
	c.indicateZero(destval)
	return c.putToDest(inst, destval)
}

// DoBackground gives every registered device a chance to advance its
// internal clock. Called by the run controller between batches.
func (c *CPU) DoBackground() {
	for _, dev := range c.devs {
		if dev != nil {
			dev.DoBackground()
		}
	}
}

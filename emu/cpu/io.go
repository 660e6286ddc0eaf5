/*
   CT6K peripheral bus.

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

package cpu

import (
	"errors"

	"github.com/compotron/ct6k/emu/peripheral"
)

// Errors from device registration.
var (
	ErrDevPresent = errors.New("device already registered")
	ErrDevWindow  = errors.New("device wants a window of 64K words or more")
	ErrDevTable   = errors.New("peripheral table full")
)

// AddDevice registers a peripheral in the first free slot and assigns its
// window. Devices that support interrupts get the next free line; when the
// four lines are spoken for, the device runs polled.
func (c *CPU) AddDevice(dev peripheral.Periph) error {
	if dev.MemSize() > MaxDevMem {
		return ErrDevWindow
	}
	free := -1
	for i := range c.devs {
		if c.devs[i] == dev {
			return ErrDevPresent
		}
		if c.devs[i] == nil && free < 0 {
			free = i
		}
	}
	if free < 0 {
		return ErrDevTable
	}

	line := NoIntLine
	if dev.InterruptSupported() {
		line = c.freeIntLine()
	}
	c.devs[free] = dev
	c.slots[free] = devSlot{
		ddn:     dev.DDN(),
		base:    BaseIOMem + uint32(free+1)*DevWindow,
		memLen:  dev.MemSize(),
		intLine: line,
	}
	return nil
}

// RemoveDevice takes a peripheral off the bus. Removing a device that is
// not registered does nothing. Slots above it shift down so an all-zero
// entry still terminates the table.
func (c *CPU) RemoveDevice(dev peripheral.Periph) {
	for i := range c.devs {
		if c.devs[i] != dev {
			continue
		}
		copy(c.devs[i:], c.devs[i+1:MaxDevices])
		c.devs[MaxDevices-1] = nil
		copy(c.slots[i:], c.slots[i+1:MaxDevices])
		c.slots[MaxDevices-1] = devSlot{}
		// Window bases move with the slots.
		for j := i; j < MaxDevices; j++ {
			if c.devs[j] != nil {
				c.slots[j].base = BaseIOMem + uint32(j+1)*DevWindow
			}
		}
		return
	}
}

// Devices returns the registered peripherals, for the console and the run
// controller to walk.
func (c *CPU) Devices() []peripheral.Periph {
	var out []peripheral.Periph
	for _, dev := range c.devs {
		if dev != nil {
			out = append(out, dev)
		}
	}
	return out
}

func (c *CPU) freeIntLine() uint32 {
	var used [NumIntLines]bool
	for i := range c.devs {
		if c.devs[i] != nil && c.slots[i].intLine != NoIntLine {
			used[c.slots[i].intLine] = true
		}
	}
	for line := uint32(0); line < NumIntLines; line++ {
		if !used[line] {
			return line
		}
	}
	return NoIntLine
}

// readIO handles reads at or above the base of the I/O region. The first
// window exposes the peripheral table, four words per slot; every later
// window belongs to the device in the matching slot. Unregistered slots
// read as zero.
func (c *CPU) readIO(addr uint32) uint32 {
	offset := addr - BaseIOMem
	window := offset / DevWindow
	offset %= DevWindow

	if window == 0 {
		if offset >= 4*(MaxDevices+1) {
			return 0
		}
		slot := c.slots[offset/4]
		switch offset % 4 {
		case 0:
			return slot.ddn
		case 1:
			return slot.base
		case 2:
			return slot.memLen
		default:
			return slot.intLine
		}
	}

	dev := c.devs[window-1]
	if dev == nil {
		return 0
	}
	return dev.ReadIOMem(offset)
}

// writeIO handles writes into the I/O region. The table window is read
// only, writes there are dropped on the floor.
func (c *CPU) writeIO(addr uint32, value uint32) {
	offset := addr - BaseIOMem
	window := offset / DevWindow
	if window == 0 {
		return
	}
	if dev := c.devs[window-1]; dev != nil {
		dev.WriteIOMem(offset%DevWindow, value)
	}
}

/* Print-o-Tron XL full-width matrix imager.

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

   The program writes characters one at a time into the OUTPUT register and
   releases the line with the CONTROL register. The run controller collects
   released lines through IsOutputReady and GetOutputLine and hands them to
   whoever is watching the printer.
*/

package printotron

import (
	"github.com/compotron/ct6k/emu/peripheral"
)

// Register offsets within the device window.
const (
	RegStatus  uint32 = 0 // Read only.
	RegOutput  uint32 = 1 // Write only, low byte appended to the line.
	RegControl uint32 = 2 // Write only.

	// CONTROL bits.
	ControlLineRelease uint32 = 0x1
	ControlPageRelease uint32 = 0x2

	// STATUS values.
	StatusOK      uint32 = 0
	StatusBusy    uint32 = 1
	StatusNoPaper uint32 = 2

	memSize uint32 = 3
)

// PrintOTron emulates the line printer. No interrupts, programs poll the
// status register.
type PrintOTron struct {
	buffer      []byte
	lineRelease bool
	status      uint32
}

// New returns a printer waiting for its first readiness check to load
// paper.
func New() *PrintOTron {
	return &PrintOTron{status: StatusNoPaper}
}

func (pot *PrintOTron) MemSize() uint32 {
	return memSize
}

func (pot *PrintOTron) DDN() uint32 {
	return peripheral.PackDDN("POTX")
}

func (pot *PrintOTron) Class() peripheral.DeviceClass {
	return peripheral.ClassPrinter
}

func (pot *PrintOTron) ReadIOMem(offset uint32) uint32 {
	if offset != RegStatus {
		return 0xffffffff
	}
	return pot.status
}

func (pot *PrintOTron) WriteIOMem(offset uint32, value uint32) {
	switch offset {
	case RegOutput:
		pot.buffer = append(pot.buffer, byte(value&0xff))
	case RegControl:
		if (value & ControlLineRelease) != 0 {
			pot.status = StatusBusy
			pot.lineRelease = true
		}
		if (value & ControlPageRelease) != 0 {
			pot.status = StatusBusy
			pot.buffer = append(pot.buffer, '\f')
			pot.lineRelease = true
		}
	default:
		// RegStatus is read only, anything else is not there.
	}
}

func (pot *PrintOTron) InterruptSupported() bool {
	return false
}

func (pot *PrintOTron) InterruptActive() bool {
	return false
}

func (pot *PrintOTron) DoBackground() {
}

// PowerOnReset drops any pending output.
func (pot *PrintOTron) PowerOnReset() {
	pot.buffer = nil
	pot.lineRelease = false
	pot.status = StatusNoPaper
}

// IsOutputReady reports whether a released line is waiting. The first check
// after power-on stands in for the operator loading paper.
func (pot *PrintOTron) IsOutputReady() bool {
	if pot.status == StatusNoPaper {
		pot.status = StatusOK
	}
	return pot.lineRelease
}

// GetOutputLine consumes the pending line and readies the printer for the
// next one.
func (pot *PrintOTron) GetOutputLine() string {
	if !pot.lineRelease {
		return ""
	}
	line := string(pot.buffer)
	pot.buffer = nil
	pot.lineRelease = false
	pot.status = StatusOK
	return line
}

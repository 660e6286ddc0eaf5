/*
   CT6K test device.

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
	"github.com/compotron/ct6k/emu/peripheral"
)

// testDev is a minimal peripheral for exercising the bus and the interrupt
// preamble.
type testDev struct {
	ddn       string
	size      uint32
	intOK     bool
	active    bool
	lastWrite uint32
	lastOff   uint32
	resets    int
}

func (dev *testDev) MemSize() uint32 {
	return dev.size
}

func (dev *testDev) DDN() uint32 {
	return peripheral.PackDDN(dev.ddn)
}

func (dev *testDev) Class() peripheral.DeviceClass {
	return peripheral.ClassTape
}

func (dev *testDev) ReadIOMem(offset uint32) uint32 {
	return 0x1000 + offset
}

func (dev *testDev) WriteIOMem(offset uint32, value uint32) {
	dev.lastOff = offset
	dev.lastWrite = value
}

func (dev *testDev) InterruptSupported() bool {
	return dev.intOK
}

func (dev *testDev) InterruptActive() bool {
	return dev.active
}

func (dev *testDev) DoBackground() {
}

func (dev *testDev) PowerOnReset() {
	dev.resets++
}

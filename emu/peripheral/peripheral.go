/*
   CT6K peripheral interface.

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

// Package peripheral defines the contract between the CPU's I/O bus and the
// devices hanging off it. A device does not know its own window base or
// interrupt line, the CPU's peripheral table tracks those.
package peripheral

// Device classes, used by the console to know how to handle a device.
type DeviceClass int

const (
	ClassPrinter DeviceClass = iota
	ClassTape
	ClassCardReader
	ClassCardPunch
	ClassRAS
)

var classNames = map[DeviceClass]string{
	ClassPrinter:    "printer",
	ClassTape:       "tape",
	ClassCardReader: "card reader",
	ClassCardPunch:  "card punch",
	ClassRAS:        "random access storage",
}

func (c DeviceClass) String() string {
	name, ok := classNames[c]
	if !ok {
		return "unknown"
	}
	return name
}

// Interface for devices on the I/O bus.
type Periph interface {
	MemSize() uint32                       // Requested window size, at most 65535 words.
	DDN() uint32                           // Digital Device Name, packed ASCII.
	Class() DeviceClass                    // Device class.
	ReadIOMem(offset uint32) uint32        // Register read at window offset.
	WriteIOMem(offset uint32, value uint32) // Register write at window offset.
	InterruptSupported() bool              // Device can raise an interrupt line.
	InterruptActive() bool                 // Level triggered, drops after service.
	DoBackground()                         // Advance any time-dependent state.
	PowerOnReset()                         // As though a power cycle had happened.
}

// PackDDN packs up to four ASCII characters into a device name word,
// first character in the high byte.
func PackDDN(name string) uint32 {
	var ddn uint32
	for i := 0; i < 4; i++ {
		ddn <<= 8
		if i < len(name) {
			ddn |= uint32(name[i])
		}
	}
	return ddn
}

// UnpackDDN turns a device name word back into printable ASCII.
func UnpackDDN(ddn uint32) string {
	out := make([]byte, 0, 4)
	for shift := 24; shift >= 0; shift -= 8 {
		ch := byte(ddn >> uint(shift))
		if ch == 0 {
			continue
		}
		if ch < ' ' || ch > '~' {
			ch = '.'
		}
		out = append(out, ch)
	}
	return string(out)
}

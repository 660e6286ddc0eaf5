/*
   CT6K peripheral bus tests.

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
	"testing"

	"github.com/compotron/ct6k/emu/peripheral"
)

func TestDeviceTable(t *testing.T) {
	c := New(256)
	dev := &testDev{ddn: "TSTA", size: 64}
	if err := c.AddDevice(dev); err != nil {
		t.Fatal(err)
	}

	// Slot zero of the table describes the device.
	if got := c.ReadMem(BaseIOMem); got != peripheral.PackDDN("TSTA") {
		t.Errorf("table DDN got: %08x", got)
	}
	if got := c.ReadMem(BaseIOMem + 1); got != BaseIOMem+DevWindow {
		t.Errorf("table base got: %08x expected: %08x", got, BaseIOMem+DevWindow)
	}
	if got := c.ReadMem(BaseIOMem + 2); got != 64 {
		t.Errorf("table length got: %d expected: 64", got)
	}
	if got := c.ReadMem(BaseIOMem + 3); got != NoIntLine {
		t.Errorf("table line got: %08x expected: no line", got)
	}

	// The next slot is all zero, terminating the scan.
	if got := c.ReadMem(BaseIOMem + 4); got != 0 {
		t.Errorf("empty slot DDN got: %08x", got)
	}

	// The table is read only.
	c.WriteMem(BaseIOMem, 0x12345678)
	if got := c.ReadMem(BaseIOMem); got != peripheral.PackDDN("TSTA") {
		t.Error("table should ignore writes")
	}
}

func TestDeviceDispatch(t *testing.T) {
	c := New(256)
	dev := &testDev{ddn: "TSTA", size: 64}
	if err := c.AddDevice(dev); err != nil {
		t.Fatal(err)
	}

	base := BaseIOMem + DevWindow
	if got := c.ReadMem(base + 7); got != 0x1007 {
		t.Errorf("device read got: %08x expected: 1007", got)
	}
	c.WriteMem(base+3, 0xbeef)
	if dev.lastOff != 3 || dev.lastWrite != 0xbeef {
		t.Errorf("device write got: off=%d value=%08x", dev.lastOff, dev.lastWrite)
	}

	// An unregistered slot reads as zero.
	if got := c.ReadMem(BaseIOMem + 2*DevWindow); got != 0 {
		t.Errorf("empty slot got: %08x expected: 0", got)
	}
}

func TestAddDeviceLimits(t *testing.T) {
	c := New(256)
	dev := &testDev{ddn: "TSTA", size: 64}
	if err := c.AddDevice(dev); err != nil {
		t.Fatal(err)
	}
	if err := c.AddDevice(dev); err != ErrDevPresent {
		t.Errorf("double add got: %v", err)
	}
	if err := c.AddDevice(&testDev{ddn: "BIGG", size: 0x10000}); err != ErrDevWindow {
		t.Errorf("oversized device got: %v", err)
	}

	for i := 1; i < MaxDevices; i++ {
		if err := c.AddDevice(&testDev{ddn: "FILL", size: 8}); err != nil {
			t.Fatalf("add device %d: %v", i, err)
		}
	}
	if err := c.AddDevice(&testDev{ddn: "LAST", size: 8}); err != ErrDevTable {
		t.Errorf("table overflow got: %v", err)
	}
}

func TestRemoveDeviceCompacts(t *testing.T) {
	c := New(256)
	first := &testDev{ddn: "AAAA", size: 8}
	second := &testDev{ddn: "BBBB", size: 8}
	if err := c.AddDevice(first); err != nil {
		t.Fatal(err)
	}
	if err := c.AddDevice(second); err != nil {
		t.Fatal(err)
	}

	c.RemoveDevice(first)
	// Second device slides into slot zero so the table still terminates
	// at the first empty slot.
	if got := c.ReadMem(BaseIOMem); got != peripheral.PackDDN("BBBB") {
		t.Errorf("slot zero after remove got: %08x", got)
	}
	if got := c.ReadMem(BaseIOMem + 1); got != BaseIOMem+DevWindow {
		t.Errorf("slot zero base got: %08x", got)
	}
	// Removing again is fine.
	c.RemoveDevice(first)

	if devs := c.Devices(); len(devs) != 1 || devs[0] != second {
		t.Errorf("device list got: %v", devs)
	}
}

func TestInterruptLineAssignment(t *testing.T) {
	c := New(256)
	polled := &testDev{ddn: "POLL", size: 8}
	irq := &testDev{ddn: "IRQA", size: 8, intOK: true}
	if err := c.AddDevice(polled); err != nil {
		t.Fatal(err)
	}
	if err := c.AddDevice(irq); err != nil {
		t.Fatal(err)
	}

	if got := c.ReadMem(BaseIOMem + 3); got != NoIntLine {
		t.Errorf("polled device line got: %08x", got)
	}
	if got := c.ReadMem(BaseIOMem + 4 + 3); got != 0 {
		t.Errorf("interrupt device line got: %08x expected: 0", got)
	}
}

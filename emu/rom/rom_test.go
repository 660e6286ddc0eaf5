/*
   CT6K ROM tests.

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

package rom

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/compotron/ct6k/emu/cardotron"
	"github.com/compotron/ct6k/emu/cpu"
	"github.com/compotron/ct6k/emu/instruction"
	"github.com/compotron/ct6k/util/deck"
)

func TestDeckBootAssembles(t *testing.T) {
	image, err := DeckBoot(65536)
	if err != nil {
		t.Fatalf("boot image failed: %v", err)
	}
	if image.Base+uint32(len(image.Words)) != 65536 {
		t.Errorf("image not flush with top of memory: base %x len %d", image.Base, len(image.Words))
	}
	if image.Entry() != image.Base {
		t.Errorf("entry got: %x expected: %x", image.Entry(), image.Base)
	}
}

func TestProgramWritesImage(t *testing.T) {
	machine := cpu.New(4096)
	image := &Image{Base: 4090, Words: []uint32{1, 2, 3}}
	image.Program(machine)
	if machine.ReadMem(4090) != 1 || machine.ReadMem(4092) != 3 {
		t.Error("image not programmed into memory")
	}
}

type nopReadCloser struct {
	io.Reader
}

func (nopReadCloser) Close() error { return nil }

// Boot a one-card deck end to end: the ROM finds the scanner, loads the
// card at address zero and jumps to it.
func TestDeckBootRuns(t *testing.T) {
	machine := cpu.New(65536)
	image, err := DeckBoot(machine.MemSize())
	if err != nil {
		t.Fatalf("boot image failed: %v", err)
	}

	// The card holds MOVE 5, R0; HALT at address zero.
	var hopper bytes.Buffer
	program := []uint32{
		instruction.Encode(instruction.OpMove, instruction.RegNull, instruction.RegNull, instruction.Reg(0)),
		5,
		instruction.Encode(instruction.OpHalt, 0, 0, 0),
	}
	if err := deck.WriteCode(&hopper, 0, program); err != nil {
		t.Fatal(err)
	}

	scan := cardotron.NewScan()
	scan.Attach(nopReadCloser{&hopper})
	if err := machine.AddDevice(scan); err != nil {
		t.Fatalf("add device: %v", err)
	}

	image.Program(machine)
	machine.WriteReg(instruction.RegIP, image.Entry())
	machine.WriteReg(instruction.RegSP, 0x8000)

	deadline := time.Now().Add(10 * time.Second)
	for !machine.IsHalted() && time.Now().Before(deadline) {
		for i := 0; i < 10000 && !machine.IsHalted(); i++ {
			machine.Step()
		}
	}
	if !machine.IsHalted() {
		t.Fatal("boot did not reach HALT")
	}
	if got := machine.ReadReg(0); got != 5 {
		t.Errorf("R0 got: %08x expected: 5", got)
	}
	if machine.ReadMem(2) != program[2] {
		t.Errorf("program not loaded at zero: %08x", machine.ReadMem(2))
	}
}

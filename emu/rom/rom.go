/*
   CT6K ROM images.

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

// Package rom holds fixed program images that get written into the top of
// populated memory after every reset. The stock image is the deck boot: it
// walks the peripheral table looking for a Card-o-Tron scanner, reads code
// cards into memory at each card's load address, and jumps to zero.
package rom

import (
	"fmt"

	"github.com/compotron/ct6k/asm"
	"github.com/compotron/ct6k/emu/cpu"
)

// Image is a program anchored at a fixed address.
type Image struct {
	Base  uint32
	Words []uint32
}

// Program writes the image into memory. Call after reset, before running.
func (image *Image) Program(machine *cpu.CPU) {
	for i, word := range image.Words {
		machine.WriteMem(image.Base+uint32(i), word)
	}
}

// Entry returns the address the console should jump to to start the image.
func (image *Image) Entry() uint32 {
	return image.Base
}

// The boot source leans on the peripheral discovery table: slot entries are
// four words, a zero DDN ends the table. Register use: R1 table walker, R2
// scanner window, R3 register address scratch, R4 data scratch, R5 masks,
// R6 card length, R7 store pointer, R8 buffer pointer.
const bootSource = `* Comp-o-Tron 6000 deck boot.
$BOOT
    MOVE 0xFFF00000, R1
$SCAN
    MOVE I1, R2
    CMP 0, R2
    JZERO $DEAD
    CMP 0x434F5453, R2
    JZERO $FOUND
    MOVE 4, R3
    ADD R1, R3, R1
    JMP $SCAN
$FOUND
    INCR R1
    MOVE I1, R2
$NEXT
    MOVE R2, R3
    INCR R3
    INCR R3
    MOVE 1, I3
$WAIT
    MOVE I2, R4
    MOVE 8, R5
    AND R4, R5, R5
    JNZERO $WAIT
    MOVE 0x300, R5
    AND R4, R5, R5
    JNZERO $DEAD
    MOVE 1, R5
    AND R4, R5, R5
    JZERO $GO
    MOVE R2, R3
    INCR R3
    MOVE I3, R4
    MOVE 0x3F, R5
    AND R4, R5, R6
    CMP 0, R6
    JZERO $NEXT
    MOVE 16, R5
    ADD R2, R5, R8
    MOVE I8, R7
    DECR R6
$COPY
    CMP 0, R6
    JZERO $NEXT
    INCR R8
    MOVE I8, R4
    MOVE R4, I7
    INCR R7
    DECR R6
    JMP $COPY
$GO
    JMP 0
$DEAD
    HALT
`

// DeckBoot assembles the boot image for a machine with the given memory
// size, placing it flush against the top of populated memory.
func DeckBoot(memSize uint32) (*Image, error) {
	// Assemble once to learn the length, then again anchored at its
	// final home so the symbol references land right.
	words, err := asm.AssembleString(bootSource, 0)
	if err != nil {
		return nil, fmt.Errorf("boot image does not assemble: %w", err)
	}
	if uint32(len(words)) > memSize {
		return nil, fmt.Errorf("boot image does not fit in %d words", memSize)
	}
	base := memSize - uint32(len(words))
	words, err = asm.AssembleString(bootSource, base)
	if err != nil {
		return nil, fmt.Errorf("boot image does not assemble: %w", err)
	}
	return &Image{Base: base, Words: words}, nil
}

/*
   CT6K assembler - output emitters.

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

package asm

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"

	"github.com/compotron/ct6k/emu/instruction"
	"github.com/compotron/ct6k/util/deck"
)

// WriteBinary emits the program as a flat stream of words, MSB first.
// Gaps between segments are filled with zeros. The machine starts running
// at address zero, so a program whose first segment sits elsewhere earns a
// warning.
func (prog *Program) WriteBinary(out io.Writer) error {
	segs := prog.sortedSegments()
	if len(segs) == 0 {
		return fmt.Errorf("nothing assembled")
	}
	if segs[0].Base != 0 {
		slog.Warn(fmt.Sprintf("binary output starts at 0x%x, not zero", segs[0].Base))
	}

	w := bufio.NewWriter(out)
	addr := segs[0].Base
	for _, seg := range segs {
		for ; addr < seg.Base; addr++ {
			writeWordMSB(w, 0)
		}
		for _, word := range seg.Words() {
			writeWordMSB(w, word)
		}
		addr = seg.Base + seg.Len()
	}
	return w.Flush()
}

func writeWordMSB(w *bufio.Writer, word uint32) {
	w.WriteByte(byte(word >> 24))
	w.WriteByte(byte(word >> 16))
	w.WriteByte(byte(word >> 8))
	w.WriteByte(byte(word))
}

// WriteDeck punches the program as code cards, each carrying its load
// address and up to 31 data words.
func (prog *Program) WriteDeck(out io.Writer) error {
	for _, seg := range prog.sortedSegments() {
		words := seg.Words()
		for off := uint32(0); off < seg.Len(); off += deck.MaxCardLen - 1 {
			end := off + deck.MaxCardLen - 1
			if end > seg.Len() {
				end = seg.Len()
			}
			if err := deck.WriteCode(out, seg.Base+off, words[off:end]); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteListing emits a human readable listing with per-word disassembly.
func (prog *Program) WriteListing(out io.Writer) error {
	w := bufio.NewWriter(out)
	for _, seg := range prog.sortedSegments() {
		fmt.Fprintf(w, "* %s, %d words at 0x%08X\n", seg.Filename, seg.Len(), seg.Base)
		words := seg.Words()
		for off := uint32(0); off < seg.Len(); {
			var next uint32
			if off+1 < seg.Len() {
				next = words[off+1]
			}
			inst := instruction.DecodeWith(words[off], next)
			fmt.Fprintf(w, "%08X: %08X %s\n", seg.Base+off, words[off], inst.String())
			if inst.Size() == 2 && off+1 < seg.Len() {
				fmt.Fprintf(w, "%08X: %08X\n", seg.Base+off+1, next)
			}
			off += inst.Size()
		}
	}
	return w.Flush()
}

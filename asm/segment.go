/*
   CT6K assembler - code segments.

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

// Segment is an address-anchored run of object code from one source file.
// Segments may not overlap; a program has at least one.
type Segment struct {
	Base     uint32
	Filename string
	words    []uint32
}

// AddWord appends one word of object code.
func (seg *Segment) AddWord(word uint32) {
	seg.words = append(seg.words, word)
}

// ReadWord returns the word at the given offset, zero when out of range.
func (seg *Segment) ReadWord(offset uint32) uint32 {
	if offset >= uint32(len(seg.words)) {
		return 0
	}
	return seg.words[offset]
}

// ModifyWord back-patches the word at the given offset.
func (seg *Segment) ModifyWord(offset uint32, value uint32) {
	if offset < uint32(len(seg.words)) {
		seg.words[offset] = value
	}
}

// Len returns the segment length in words.
func (seg *Segment) Len() uint32 {
	return uint32(len(seg.words))
}

// Words exposes the assembled object code.
func (seg *Segment) Words() []uint32 {
	return seg.words
}

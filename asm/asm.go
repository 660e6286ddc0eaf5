/*
   CT6K two-pass assembler.

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

// Package asm translates CT6K assembly into object code. Pass one parses
// lines into address-anchored segments, queueing a back-patch for every
// symbol reference; pass two patches the placeholders once all definitions
// are in. Output is a flat binary, a punched card deck, or a listing.
//
// Source format, one statement per line:
//
//	* comment, as is anything after # or * on a statement
//	$LABEL              declares a symbol at the current location
//	    MOVE 10, R0     instructions are indented by convention
//	    JNZERO $LABEL   symbol references assemble to a patched literal
//	    .ADDR 0x100     anchor the current (or a fresh) segment
//	    .VALUE TEN 10   named constant, used verbatim
//	    .TXTM "HELLO"   text data, packed four characters per word
package asm

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/compotron/ct6k/emu/instruction"
)

// Program is the result of pass one over all input files.
type Program struct {
	Segments []*Segment
	Symbols  *SymbolTable
	nextBase uint32
}

// NewProgram returns an empty program anchored at address zero.
func NewProgram() *Program {
	return &Program{Symbols: NewSymbolTable()}
}

// AssembleFiles runs the whole job over the named source files. Any error
// aborts the job.
func AssembleFiles(paths []string) (*Program, error) {
	prog := NewProgram()
	for _, path := range paths {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("unreadable file %s: %w", path, err)
		}
		err = prog.assemble(file, path)
		file.Close()
		if err != nil {
			return nil, err
		}
	}
	if err := prog.finalize(); err != nil {
		return nil, err
	}
	return prog, nil
}

// AssembleString assembles one in-memory source anchored at the given base
// and returns the object words. Used for ROM images and console patching.
func AssembleString(src string, base uint32) ([]uint32, error) {
	prog := NewProgram()
	prog.nextBase = base
	if err := prog.assemble(strings.NewReader(src), "<source>"); err != nil {
		return nil, err
	}
	if err := prog.finalize(); err != nil {
		return nil, err
	}
	if len(prog.Segments) != 1 {
		return nil, fmt.Errorf("source splits into %d segments, expected one", len(prog.Segments))
	}
	return prog.Segments[0].Words(), nil
}

// assemble is pass one over a single source stream.
func (prog *Program) assemble(in io.Reader, name string) error {
	seg := prog.newSegment(name)
	scanner := bufio.NewScanner(in)
	lineNum := 0

	for scanner.Scan() {
		raw := scanner.Text()
		lineNum++

		fail := func(format string, args ...any) error {
			return fmt.Errorf("Fatal: %s on line %d of %s",
				fmt.Sprintf(format, args...), lineNum, name)
		}

		// Comments claim column one.
		if raw == "" || raw[0] == '*' || raw[0] == '#' {
			continue
		}

		line := raw
		if raw[0] == '$' {
			// Label declaration, possibly with a statement behind it.
			label := symbolName(raw[1:])
			if label == "" {
				return fail("empty symbol name")
			}
			if err := prog.Symbols.AddSymbol(label, seg, seg.Len(), lineNum); err != nil {
				return fail("%v", err)
			}
			line = raw[1+len(label):]
		}

		// Strip trailing comments before parsing.
		if cut := strings.IndexAny(line, "*#"); cut >= 0 {
			line = line[:cut]
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Fields(line)
		if fields[0][0] == '.' {
			newSeg, err := prog.directive(seg, fields, line, lineNum)
			if err != nil {
				return fail("%v", err)
			}
			seg = newSeg
			continue
		}

		// Symbol reference: note the back-patch spot and leave a zero
		// placeholder literal in its place.
		if pos := strings.IndexByte(line, '$'); pos >= 0 {
			symName := symbolName(line[pos+1:])
			if symName == "" {
				return fail("empty symbol reference")
			}
			if err := prog.Symbols.AddRef(symName, seg, seg.Len()+1, lineNum); err != nil {
				return fail("%v", err)
			}
			line = line[:pos] + "0" + line[pos+1+len(symName):]
		}

		word, extra, extraPresent, err := instruction.Assemble(line)
		if err != nil {
			return fail("%v", err)
		}
		seg.AddWord(word)
		if extraPresent {
			seg.AddWord(extra)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("Fatal: read error in %s: %w", name, err)
	}

	prog.nextBase = seg.Base + seg.Len()
	return nil
}

// directive handles the dot statements. It returns the segment to keep
// assembling into, which changes when .ADDR opens a new one.
func (prog *Program) directive(seg *Segment, fields []string, line string, lineNum int) (*Segment, error) {
	switch strings.ToUpper(fields[0]) {
	case ".ADDR":
		if len(fields) != 2 {
			return seg, fmt.Errorf(".ADDR takes an address")
		}
		addr, err := parseNumber(fields[1])
		if err != nil {
			return seg, err
		}
		if seg.Len() == 0 {
			seg.Base = addr
			return seg, nil
		}
		prog.nextBase = addr
		next := prog.newSegment(seg.Filename)
		return next, nil

	case ".VALUE":
		if len(fields) != 3 {
			return seg, fmt.Errorf(".VALUE takes a name and a number")
		}
		value, err := parseNumber(fields[2])
		if err != nil {
			return seg, err
		}
		symName := strings.TrimPrefix(fields[1], "$")
		if err := prog.Symbols.AddValue(symName, seg, value, lineNum); err != nil {
			return seg, err
		}
		return seg, nil

	case ".TXTN", ".TXTM", ".TXTL":
		text, err := quotedText(line)
		if err != nil {
			return seg, err
		}
		emitText(seg, strings.ToUpper(fields[0]), text)
		return seg, nil
	}
	return seg, fmt.Errorf("invalid directive %s", fields[0])
}

// emitText packs a string into words. N is one character per word, M packs
// four per word MSB first, L packs LSB first.
func emitText(seg *Segment, directive string, text string) {
	switch directive {
	case ".TXTN":
		for i := 0; i < len(text); i++ {
			seg.AddWord(uint32(text[i]))
		}
	case ".TXTM":
		for i := 0; i < len(text); i += 4 {
			var word uint32
			for j := 0; j < 4; j++ {
				word <<= 8
				if i+j < len(text) {
					word |= uint32(text[i+j])
				}
			}
			seg.AddWord(word)
		}
	case ".TXTL":
		for i := 0; i < len(text); i += 4 {
			var word uint32
			for j := 3; j >= 0; j-- {
				word <<= 8
				if i+j < len(text) {
					word |= uint32(text[i+j])
				}
			}
			seg.AddWord(word)
		}
	}
}

// finalize is pass two: patch all symbols, then sanity-check the layout.
func (prog *Program) finalize() error {
	if err := prog.Symbols.Patch(); err != nil {
		return fmt.Errorf("Fatal: %w", err)
	}

	segs := prog.sortedSegments()
	for i := 1; i < len(segs); i++ {
		prev := segs[i-1]
		if prev.Base+prev.Len() > segs[i].Base {
			return fmt.Errorf("Fatal: segments at 0x%x and 0x%x overlap", prev.Base, segs[i].Base)
		}
	}
	return nil
}

func (prog *Program) newSegment(name string) *Segment {
	seg := &Segment{Base: prog.nextBase, Filename: name}
	prog.Segments = append(prog.Segments, seg)
	return seg
}

// sortedSegments returns the non-empty segments in address order.
func (prog *Program) sortedSegments() []*Segment {
	var segs []*Segment
	for _, seg := range prog.Segments {
		if seg.Len() > 0 {
			segs = append(segs, seg)
		}
	}
	sort.Slice(segs, func(i, j int) bool { return segs[i].Base < segs[j].Base })
	return segs
}

// symbolName pulls the leading alphanumeric run off a string.
func symbolName(s string) string {
	end := 0
	for end < len(s) {
		c := s[end]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			end++
			continue
		}
		break
	}
	return s[:end]
}

// quotedText pulls the double-quoted string off a .TXT directive line.
func quotedText(line string) (string, error) {
	first := strings.IndexByte(line, '"')
	last := strings.LastIndexByte(line, '"')
	if first < 0 || last <= first {
		return "", fmt.Errorf("text directive needs a quoted string")
	}
	return line[first+1 : last], nil
}

// parseNumber accepts decimal or 0x hex, 32 bits only.
func parseNumber(tok string) (uint32, error) {
	v, err := strconv.ParseUint(tok, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid number %s", tok)
	}
	return uint32(v), nil
}

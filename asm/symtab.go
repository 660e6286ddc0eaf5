/*
   CT6K assembler - symbol table.

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
	"fmt"
)

// ref records one spot in the object code where a symbol's value belongs. A
// placeholder zero sits there until the patch pass.
type ref struct {
	seg    *Segment
	offset uint32
	line   int
}

// symbol is the head of a definition with all of its references. Forward
// references start life unknown and get filled in when the definition shows
// up.
type symbol struct {
	name    string
	known   bool
	isValue bool // .VALUE constant, used verbatim, never relocated.
	offset  uint32
	seg     *Segment
	line    int
	refs    []ref
}

// SymbolTable maps names to definitions and their reference lists.
type SymbolTable struct {
	syms map[string]*symbol
}

// NewSymbolTable returns an empty table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{syms: make(map[string]*symbol)}
}

func (table *SymbolTable) lookup(name string) *symbol {
	sym, ok := table.syms[name]
	if !ok {
		sym = &symbol{name: name}
		table.syms[name] = sym
	}
	return sym
}

// AddSymbol defines a label at the given segment offset. Defining the same
// name twice is fatal.
func (table *SymbolTable) AddSymbol(name string, seg *Segment, offset uint32, line int) error {
	return table.addDef(name, seg, offset, line, false)
}

// AddValue defines a named constant from the .VALUE directive. The value
// replaces each reference verbatim, no relocation.
func (table *SymbolTable) AddValue(name string, seg *Segment, value uint32, line int) error {
	return table.addDef(name, seg, value, line, true)
}

func (table *SymbolTable) addDef(name string, seg *Segment, offset uint32, line int, isValue bool) error {
	if name == "" {
		return fmt.Errorf("line %d: empty symbol name", line)
	}
	sym := table.lookup(name)
	if sym.known {
		return fmt.Errorf("symbol %s defined multiple times", name)
	}
	sym.known = true
	sym.isValue = isValue
	sym.offset = offset
	sym.seg = seg
	sym.line = line
	return nil
}

// AddRef queues a back-patch for a symbol use at the given segment offset.
// The symbol need not be defined yet.
func (table *SymbolTable) AddRef(name string, seg *Segment, offset uint32, line int) error {
	if len(name) < 1 {
		return fmt.Errorf("line %d: empty symbol reference", line)
	}
	sym := table.lookup(name)
	sym.refs = append(sym.refs, ref{seg: seg, offset: offset, line: line})
	if !sym.known {
		sym.line = line
	}
	return nil
}

// Patch walks the table and writes every symbol's value over its
// placeholders. Undefined symbols and dirty placeholders are fatal.
func (table *SymbolTable) Patch() error {
	for _, sym := range table.syms {
		if !sym.known {
			return fmt.Errorf("symbol %s used but not defined at line %d of %s",
				sym.name, sym.line, sym.refFile())
		}
		for _, use := range sym.refs {
			if use.seg.ReadWord(use.offset) != 0 {
				return fmt.Errorf("internal error: symbol %s ref is nonzero at line %d of %s",
					sym.name, use.line, use.seg.Filename)
			}
			if sym.isValue {
				use.seg.ModifyWord(use.offset, sym.offset)
			} else {
				use.seg.ModifyWord(use.offset, sym.seg.Base+sym.offset)
			}
		}
	}
	return nil
}

func (sym *symbol) refFile() string {
	if len(sym.refs) > 0 {
		return sym.refs[0].seg.Filename
	}
	return "?"
}

/*
 * CT6K - Messages from the driver to its observers.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package master carries the typed packets the run controller publishes to
// whoever is watching: state snapshots, printer lines and the halt notice.
// Packets are values, observers never alias CPU memory.
package master

import (
	"github.com/compotron/ct6k/emu/cpu"
)

type MsgType int

const (
	// State snapshot after an execution batch.
	StateUpdate MsgType = 1 + iota
	// A released printer line.
	PrinterLine
	// The CPU halted.
	Halted
	// The breakpoint was hit, driver stopped.
	Breakpoint
)

// Packet is one event on the observer channel.
type Packet struct {
	Msg   MsgType
	State cpu.State // Valid for StateUpdate, Halted and Breakpoint.
	Next  string    // Disassembly of the instruction at IP.
	Line  string    // Valid for PrinterLine.
}

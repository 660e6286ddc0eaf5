package memory

/*
 * CT6K - Low level memory
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

const (
	// Default populated memory, in words.
	DefaultSize uint32 = 1024 * 1024

	// Reads outside populated memory float high.
	Invalid uint32 = 0xffffffff
)

// Memory is the flat word-addressable store. One word is the only unit of
// access; there is no observable endianness inside the machine.
type Memory struct {
	mem  []uint32
	size uint32
}

// New returns zeroed memory of the requested size in words.
func New(size uint32) *Memory {
	return &Memory{mem: make([]uint32, size), size: size}
}

// NewDefault returns zeroed memory of the default size.
func NewDefault() *Memory {
	return New(DefaultSize)
}

// Size returns populated memory size in words.
func (m *Memory) Size() uint32 {
	return m.size
}

// Get a word from memory. A read outside the populated region returns
// Invalid, the data lines float to one.
func (m *Memory) Get(addr uint32) uint32 {
	if addr >= m.size {
		return Invalid
	}
	return m.mem[addr]
}

// Put a word to memory. A write outside the populated region is dropped,
// the value just disappears.
func (m *Memory) Put(addr uint32, data uint32) {
	if addr < m.size {
		m.mem[addr] = data
	}
}

// Clear re-zeros all of memory.
func (m *Memory) Clear() {
	for i := range m.mem {
		m.mem[i] = 0
	}
}

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

import (
	"testing"
)

func TestPutGet(t *testing.T) {
	mem := New(1024)
	for addr := uint32(0); addr < 1024; addr += 7 {
		mem.Put(addr, addr^0xdeadbeef)
	}
	for addr := uint32(0); addr < 1024; addr += 7 {
		v := mem.Get(addr)
		if v != addr^0xdeadbeef {
			t.Errorf("Memory at %08x not correct got: %08x expected: %08x", addr, v, addr^0xdeadbeef)
		}
	}
}

func TestGetOutOfRange(t *testing.T) {
	mem := New(256)
	if v := mem.Get(255); v != 0 {
		t.Errorf("Top of memory should read zero got: %08x", v)
	}
	if v := mem.Get(256); v != Invalid {
		t.Errorf("Read past end should float high got: %08x", v)
	}
	if v := mem.Get(0xffffffff); v != Invalid {
		t.Errorf("Read at top of address space should float high got: %08x", v)
	}
}

func TestPutOutOfRange(t *testing.T) {
	mem := New(256)
	mem.Put(256, 0x12345678)
	mem.Put(0xffffffff, 0x12345678)
	for addr := uint32(0); addr < 256; addr++ {
		if v := mem.Get(addr); v != 0 {
			t.Errorf("Out of range write modified memory at %08x: %08x", addr, v)
		}
	}
}

func TestClear(t *testing.T) {
	mem := NewDefault()
	if mem.Size() != DefaultSize {
		t.Errorf("Default size not correct got: %d expected: %d", mem.Size(), DefaultSize)
	}
	mem.Put(100, 42)
	mem.Clear()
	if v := mem.Get(100); v != 0 {
		t.Errorf("Clear did not zero memory got: %08x", v)
	}
}

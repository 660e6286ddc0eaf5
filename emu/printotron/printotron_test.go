/* Print-o-Tron XL tests.

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

package printotron

import (
	"testing"
)

func TestLineRelease(t *testing.T) {
	pot := New()

	if pot.ReadIOMem(RegStatus) != StatusNoPaper {
		t.Error("printer should power on with no paper")
	}

	pot.WriteIOMem(RegOutput, 'H')
	pot.WriteIOMem(RegOutput, 'I')
	if pot.IsOutputReady() {
		t.Error("no output should be ready before line release")
	}

	pot.WriteIOMem(RegControl, ControlLineRelease)
	if pot.ReadIOMem(RegStatus) != StatusBusy {
		t.Error("printer should be busy after line release")
	}
	if !pot.IsOutputReady() {
		t.Error("output should be ready after line release")
	}
	if line := pot.GetOutputLine(); line != "HI" {
		t.Errorf("output line got: %q expected: %q", line, "HI")
	}

	// Exactly once.
	if pot.IsOutputReady() {
		t.Error("line should only be delivered once")
	}
	if line := pot.GetOutputLine(); line != "" {
		t.Errorf("second read should be empty got: %q", line)
	}
	if pot.ReadIOMem(RegStatus) != StatusOK {
		t.Error("printer should be ready after line is consumed")
	}
}

func TestPageRelease(t *testing.T) {
	pot := New()
	pot.IsOutputReady() // load paper

	pot.WriteIOMem(RegOutput, 'X')
	pot.WriteIOMem(RegControl, ControlPageRelease)
	if line := pot.GetOutputLine(); line != "X\f" {
		t.Errorf("page release got: %q expected: %q", line, "X\f")
	}
}

func TestStatusReadOnly(t *testing.T) {
	pot := New()
	pot.IsOutputReady()
	pot.WriteIOMem(RegStatus, 99)
	if pot.ReadIOMem(RegStatus) != StatusOK {
		t.Error("status register should ignore writes")
	}
	if pot.ReadIOMem(5) != 0xffffffff {
		t.Error("unimplemented register should float high")
	}
}

func TestPowerOnReset(t *testing.T) {
	pot := New()
	pot.IsOutputReady()
	pot.WriteIOMem(RegOutput, 'A')
	pot.WriteIOMem(RegControl, ControlLineRelease)
	pot.PowerOnReset()
	if pot.ReadIOMem(RegStatus) != StatusNoPaper {
		t.Error("reset should drop paper")
	}
	if pot.IsOutputReady() {
		t.Error("reset should drop pending output")
	}
}

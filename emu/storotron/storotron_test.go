/* Stor-o-Tron tests.

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

package storotron

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// newTestUnit builds a Stor-o-Tron over a fresh pre-sized backing file with
// the clock under test control.
func newTestUnit(t *testing.T) (*StorOTron, *time.Time) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sot.dat")
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		t.Fatalf("create backing file: %v", err)
	}
	if err = file.Truncate(FileSize); err != nil {
		t.Fatalf("size backing file: %v", err)
	}
	t.Cleanup(func() { file.Close() })

	sot := New(file)
	clock := new(time.Time)
	sot.now = func() time.Time { return *clock }
	return sot, clock
}

func advance(clock *time.Time, msec int) {
	*clock = clock.Add(time.Duration(msec) * time.Millisecond)
}

func TestStatusGeometry(t *testing.T) {
	sot, _ := newTestUnit(t)
	status := sot.ReadIOMem(RegStatus)
	if status>>24 != NumHeads {
		t.Errorf("head count got: %d expected: %d", status>>24, NumHeads)
	}
	if (status>>8)&0xffff != NumPos {
		t.Errorf("position count got: %d expected: %d", (status>>8)&0xffff, NumPos)
	}
	if status&0xff != StateIdle {
		t.Errorf("state got: %d expected idle", status&0xff)
	}
}

func TestSeekTiming(t *testing.T) {
	sot, clock := newTestUnit(t)
	sot.WriteIOMem(RegHeadSel, 3)
	sot.WriteIOMem(RegPosSel, 17)
	sot.WriteIOMem(RegCommand, CmdSeek)
	if sot.ReadIOMem(RegStatus)&0xff != StateBusy {
		t.Error("unit should be busy while seeking")
	}
	// Selects are ignored while busy.
	sot.WriteIOMem(RegHeadSel, 9)
	advance(clock, SeekMsec+10)
	if sot.ReadIOMem(RegStatus)&0xff != StateIdle {
		t.Error("unit should be idle after the seek interval")
	}
	if sot.ReadIOMem(RegHeadSel) != 3 || sot.ReadIOMem(RegPosSel) != 17 {
		t.Error("head and position selects wrong")
	}
}

func TestWriteThenReadBack(t *testing.T) {
	sot, clock := newTestUnit(t)
	sot.WriteIOMem(RegHeadSel, 1)
	sot.WriteIOMem(RegPosSel, 2)
	sot.WriteIOMem(RegBuf, 0xcafe0001)
	sot.WriteIOMem(RegBuf+1023, 0xcafe0002)
	sot.WriteIOMem(RegCommand, CmdWrite)
	advance(clock, WriteMsec+10)

	// Scribble the buffer, then read the sector back.
	sot.WriteIOMem(RegBuf, 0)
	sot.WriteIOMem(RegBuf+1023, 0)
	sot.WriteIOMem(RegCommand, CmdRead)
	if sot.ReadIOMem(RegStatus)&0xff != StateBusy {
		t.Error("unit should be busy while reading")
	}
	advance(clock, ReadMsec+10)
	if sot.ReadIOMem(RegBuf) != 0xcafe0001 {
		t.Errorf("first word got: %08x", sot.ReadIOMem(RegBuf))
	}
	if sot.ReadIOMem(RegBuf+1023) != 0xcafe0002 {
		t.Errorf("last word got: %08x", sot.ReadIOMem(RegBuf+1023))
	}

	// A different sector is still blank.
	sot.WriteIOMem(RegPosSel, 3)
	sot.WriteIOMem(RegCommand, CmdRead)
	advance(clock, ReadMsec+10)
	if sot.ReadIOMem(RegBuf) != 0 {
		t.Error("unwritten sector should read back zero")
	}
}

func TestNoBackingFile(t *testing.T) {
	sot := New(nil)
	if sot.ReadIOMem(RegStatus)&0xff != StateFail {
		t.Error("unit without backing file should report failure")
	}
}

func TestReset(t *testing.T) {
	sot, _ := newTestUnit(t)
	sot.WriteIOMem(RegHeadSel, 5)
	sot.WriteIOMem(RegBuf+7, 0x1234)
	sot.WriteIOMem(RegCommand, CmdReset)
	if sot.ReadIOMem(RegHeadSel) != 0 || sot.ReadIOMem(RegBuf+7) != 0 {
		t.Error("reset should rewind selects and clear the buffer")
	}
}

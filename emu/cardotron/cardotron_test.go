/* Card-o-Tron 3CS tests.

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

package cardotron

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

// fakeClock stands in for the wall clock so the scan and punch timers can
// be stepped deterministically.
type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time {
	return f.t
}

func (f *fakeClock) advance(msec int) {
	f.t = f.t.Add(time.Duration(msec) * time.Millisecond)
}

type nopReadCloser struct {
	io.Reader
}

func (nopReadCloser) Close() error { return nil }

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

func TestScanCard(t *testing.T) {
	clock := &fakeClock{}
	cot := NewScan()
	cot.now = clock.now

	if cot.ReadIOMem(RegStatus) != ScanEmpty {
		t.Error("scanner should power on empty")
	}

	in := "<C> 3\n0x40 0x1058000 0xff000000\n"
	cot.Attach(nopReadCloser{strings.NewReader(in)})
	if cot.ReadIOMem(RegStatus) != ScanReady {
		t.Error("scanner should be ready with a deck loaded")
	}

	cot.WriteIOMem(RegCommand, CmdRead)
	if cot.ReadIOMem(RegStatus) != ScanReading {
		t.Error("scanner should be reading after READ")
	}
	if cot.ReadIOMem(RegCardInfo) != 0 || cot.ReadIOMem(RegBuf) != 0 {
		t.Error("info and buffer should read zero while reading")
	}

	clock.advance(ScanMsec + 10)
	if got := cot.ReadIOMem(RegStatus); got != ScanReady|ScanComplete {
		t.Errorf("scan status got: %03x expected: %03x", got, ScanReady|ScanComplete)
	}
	if got := cot.ReadIOMem(RegCardInfo); got != InfoCode|3 {
		t.Errorf("card info got: %03x expected: %03x", got, InfoCode|3)
	}
	words := []uint32{0x40, 0x1058000, 0xff000000}
	for i, want := range words {
		if got := cot.ReadIOMem(RegBuf + uint32(i)); got != want {
			t.Errorf("buffer word %d got: %08x expected: %08x", i, got, want)
		}
	}
}

func TestScanEndOfDeck(t *testing.T) {
	clock := &fakeClock{}
	cot := NewScan()
	cot.now = clock.now

	cot.Attach(nopReadCloser{strings.NewReader("<C> 1\n0x0\n")})
	cot.WriteIOMem(RegCommand, CmdRead)
	clock.advance(ScanMsec + 10)
	cot.WriteIOMem(RegCommand, CmdRead)
	if got := cot.ReadIOMem(RegStatus); got != ScanComplete {
		t.Errorf("end of deck status got: %03x expected: %03x", got, ScanComplete)
	}
}

func TestScanBadCard(t *testing.T) {
	// A card that scans but does not parse is a checksum error, not a
	// mechanical one.
	bad := []string{
		"<Q> 1\n0x0\n",   // unknown type flag
		"<C> 33\n",       // over-long card
		"<C> 2\n0x1\n",   // short data
		"<C> junk\n",     // unreadable length
	}
	for _, in := range bad {
		cot := NewScan()
		cot.Attach(nopReadCloser{strings.NewReader(in)})
		cot.WriteIOMem(RegCommand, CmdRead)
		if got := cot.ReadIOMem(RegStatus); got != ScanErrCsum {
			t.Errorf("bad card %q status got: %03x expected: %03x", in, got, ScanErrCsum)
		}
	}
}

// tornReader fails on every read, standing in for a jammed feed.
type tornReader struct{}

func (tornReader) Read(p []byte) (int, error) {
	return 0, errors.New("feed jam")
}

func (tornReader) Close() error { return nil }

func TestScanFeedFailure(t *testing.T) {
	cot := NewScan()
	cot.Attach(tornReader{})
	cot.WriteIOMem(RegCommand, CmdRead)
	if got := cot.ReadIOMem(RegStatus); got != ScanErrMech {
		t.Errorf("feed failure status got: %03x expected: %03x", got, ScanErrMech)
	}
}

func TestScanAbort(t *testing.T) {
	cot := NewScan()
	cot.Attach(nopReadCloser{strings.NewReader("<C> 1\n0x0\n")})
	cot.WriteIOMem(RegCommand, CmdAbort)
	if got := cot.ReadIOMem(RegStatus); got != ScanEmpty {
		t.Errorf("abort status got: %03x expected: %03x", got, ScanEmpty)
	}
}

func TestPunchCard(t *testing.T) {
	clock := &fakeClock{}
	cot := NewPunch()
	cot.now = clock.now

	if cot.ReadIOMem(RegStatus) != PunchEmpty {
		t.Error("punch should power on empty")
	}

	var out bytes.Buffer
	cot.Attach(nopWriteCloser{&out})
	if cot.ReadIOMem(RegStatus) != PunchReady {
		t.Error("punch should be ready with cards loaded")
	}

	cot.WriteIOMem(RegBuf, 0x40)
	cot.WriteIOMem(RegBuf+1, 0xdeadbeef)
	cot.WriteIOMem(RegCardInfo, InfoCode|2)
	cot.WriteIOMem(RegCommand, CmdWrite)
	if cot.ReadIOMem(RegStatus) != PunchBusy {
		t.Error("punch should be busy after WRITE")
	}

	// Writes are ignored while the mechanism cycles.
	cot.WriteIOMem(RegBuf, 0x9999)

	clock.advance(PunchMsec + 10)
	if cot.ReadIOMem(RegStatus) != PunchReady {
		t.Error("punch should return to ready")
	}

	want := "<C> 2\n0x40 0xdeadbeef\n"
	if out.String() != want {
		t.Errorf("punched card got: %q expected: %q", out.String(), want)
	}
}

func TestPunchBadInfo(t *testing.T) {
	cot := NewPunch()
	cot.Attach(nopWriteCloser{&bytes.Buffer{}})
	cot.WriteIOMem(RegCardInfo, 0xf00|1)
	cot.WriteIOMem(RegCommand, CmdWrite)
	if got := cot.ReadIOMem(RegStatus); (got & PunchErrData) == 0 {
		t.Errorf("bad info should set the data error got: %03x", got)
	}
}

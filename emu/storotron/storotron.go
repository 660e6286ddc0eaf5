/* Stor-o-Tron longitudinal storage device.

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

   The program selects a head and a longitudinal position, then issues SEEK,
   READ or WRITE. Data moves through a one-sector buffer in the device
   window. The mechanism takes real time; the status register reports BUSY
   until the timer runs out.
*/

package storotron

import (
	"encoding/binary"
	"io"
	"time"

	"github.com/compotron/ct6k/emu/peripheral"
)

// Geometry. The backing file holds NumHeads * NumPos sectors of SectorSize
// words each.
const (
	SectorSize  uint32 = 1024
	NumHeads    uint32 = 16
	NumPos      uint32 = 256
	sectorBytes        = int64(SectorSize) * 4
	FileSize           = int64(NumHeads) * int64(NumPos) * sectorBytes
)

// Mechanism timings.
const (
	SeekMsec  = 200
	ReadMsec  = 17
	WriteMsec = 17
)

// Register offsets.
const (
	RegStatus  uint32 = 0
	RegCommand uint32 = 1
	RegHeadSel uint32 = 2
	RegPosSel  uint32 = 3
	RegBuf     uint32 = 1024

	memSize uint32 = RegBuf + SectorSize
)

// Commands.
const (
	CmdSeek  uint32 = 1
	CmdRead  uint32 = 2
	CmdWrite uint32 = 3
	CmdReset uint32 = 4
)

// States, reported in the low byte of STATUS. The head and position counts
// ride in the upper bytes so programs can discover the geometry.
const (
	StateIdle uint32 = 0
	StateBusy uint32 = 1
	StateFail uint32 = 2

	statusBase = NumHeads<<24 | NumPos<<8
)

// StorOTron is the storage device. Backing store is a pre-sized random
// access file, handed in by whoever owns the machine.
type StorOTron struct {
	state     uint32
	buf       [SectorSize]uint32
	curHead   uint32
	curPos    uint32
	start     time.Time
	delayMsec int
	busy      bool
	file      io.ReadWriteSeeker
	now       func() time.Time
}

// New returns a Stor-o-Tron spinning over the given backing file. A nil
// file leaves the unit failed until one is attached.
func New(file io.ReadWriteSeeker) *StorOTron {
	sot := &StorOTron{now: time.Now}
	sot.Attach(file)
	return sot
}

// Attach gives the unit its backing file.
func (sot *StorOTron) Attach(file io.ReadWriteSeeker) {
	sot.file = file
	if file == nil {
		sot.state = StateFail
	} else {
		sot.state = StateIdle
	}
}

func (sot *StorOTron) MemSize() uint32 {
	return memSize
}

func (sot *StorOTron) DDN() uint32 {
	return peripheral.PackDDN("SOTL")
}

func (sot *StorOTron) Class() peripheral.DeviceClass {
	return peripheral.ClassRAS
}

func (sot *StorOTron) ReadIOMem(offset uint32) uint32 {
	sot.checkTimer()
	switch {
	case offset == RegStatus:
		return statusBase | sot.state
	case offset == RegHeadSel:
		return sot.curHead
	case offset == RegPosSel:
		return sot.curPos
	case offset >= RegBuf && offset < RegBuf+SectorSize:
		return sot.buf[offset-RegBuf]
	}
	return 0xffffffff
}

func (sot *StorOTron) WriteIOMem(offset uint32, value uint32) {
	sot.checkTimer()
	switch {
	case offset == RegCommand:
		if sot.state != StateIdle {
			return
		}
		switch value {
		case CmdSeek:
			sot.state = StateBusy
			sot.startTimer(SeekMsec)
		case CmdRead:
			sot.state = StateBusy
			sot.startTimer(ReadMsec)
			sot.readSector()
		case CmdWrite:
			sot.state = StateBusy
			sot.startTimer(WriteMsec)
			sot.writeSector()
		case CmdReset:
			sot.PowerOnReset()
		}
	case offset == RegHeadSel:
		if sot.state == StateIdle && value < NumHeads {
			sot.curHead = value
		}
	case offset == RegPosSel:
		if sot.state == StateIdle && value < NumPos {
			sot.curPos = value
		}
	case offset >= RegBuf && offset < RegBuf+SectorSize:
		sot.buf[offset-RegBuf] = value
	}
}

func (sot *StorOTron) InterruptSupported() bool {
	return false
}

func (sot *StorOTron) InterruptActive() bool {
	return false
}

func (sot *StorOTron) DoBackground() {
	sot.checkTimer()
}

// PowerOnReset rewinds the unit to head 0, position 0 and clears the
// buffer. The backing file stays attached.
func (sot *StorOTron) PowerOnReset() {
	if sot.file == nil {
		sot.state = StateFail
		return
	}
	sot.state = StateIdle
	sot.busy = false
	sot.curHead = 0
	sot.curPos = 0
	for i := range sot.buf {
		sot.buf[i] = 0
	}
}

func (sot *StorOTron) startTimer(msec int) {
	sot.start = sot.now()
	sot.delayMsec = msec
	sot.busy = true
}

func (sot *StorOTron) checkTimer() {
	if sot.busy && sot.now().Sub(sot.start) > time.Duration(sot.delayMsec)*time.Millisecond {
		sot.busy = false
		if sot.state == StateBusy {
			sot.state = StateIdle
		}
	}
}

func (sot *StorOTron) sectorOffset() int64 {
	return (int64(sot.curHead)*int64(NumPos) + int64(sot.curPos)) * sectorBytes
}

func (sot *StorOTron) readSector() {
	if sot.file == nil {
		sot.state = StateFail
		return
	}
	if _, err := sot.file.Seek(sot.sectorOffset(), io.SeekStart); err != nil {
		sot.state = StateFail
		return
	}
	raw := make([]byte, sectorBytes)
	if _, err := io.ReadFull(sot.file, raw); err != nil {
		sot.state = StateFail
		return
	}
	for i := range sot.buf {
		sot.buf[i] = binary.BigEndian.Uint32(raw[i*4:])
	}
}

func (sot *StorOTron) writeSector() {
	if sot.file == nil {
		sot.state = StateFail
		return
	}
	if _, err := sot.file.Seek(sot.sectorOffset(), io.SeekStart); err != nil {
		sot.state = StateFail
		return
	}
	raw := make([]byte, sectorBytes)
	for i := range sot.buf {
		binary.BigEndian.PutUint32(raw[i*4:], sot.buf[i])
	}
	if _, err := sot.file.Write(raw); err != nil {
		sot.state = StateFail
	}
}

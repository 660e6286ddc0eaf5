/* Card-o-Tron 3CS combination card scanner/punch.

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

   The two halves of the 3CS are separate peripherals that happen to share a
   cabinet. Both run wall-clock state machines: a read or punch completes a
   fixed time after the command, as observed by later register accesses.
*/

package cardotron

import (
	"errors"
	"io"
	"time"

	"github.com/compotron/ct6k/emu/peripheral"
	"github.com/compotron/ct6k/util/deck"
)

// Mechanism timings.
const (
	ScanMsec  = 100
	PunchMsec = 200
)

// Register offsets, shared by both halves.
const (
	RegStatus   uint32 = 0
	RegCardInfo uint32 = 1
	RegCommand  uint32 = 2
	RegBuf      uint32 = 16
	BufLen      uint32 = deck.MaxCardLen

	memSize uint32 = RegBuf + BufLen
)

// Scanner status bits.
const (
	ScanReady     uint32 = 0x001
	ScanHollerith uint32 = 0x002 // Card type readback only.
	ScanEmpty     uint32 = 0x004
	ScanReading   uint32 = 0x008
	ScanComplete  uint32 = 0x010
	ScanErrCsum   uint32 = 0x100
	ScanErrMech   uint32 = 0x200
)

// Scanner commands.
const (
	CmdRead  uint32 = 0x1
	CmdAbort uint32 = 0x2
)

// Punch status bits.
const (
	PunchReady   uint32 = 0x001
	PunchBusy    uint32 = 0x002
	PunchEmpty   uint32 = 0x004
	PunchErrData uint32 = 0x100
	PunchErrMech uint32 = 0x200
)

// Punch commands.
const (
	CmdWrite uint32 = 0x1
	CmdFlush uint32 = 0x2
)

// Card info register layout: type code in the second byte, word count in
// the low six bits.
const (
	InfoCode  uint32 = 0x100
	InfoTxtL  uint32 = 0x200
	InfoTxtM  uint32 = 0x300
	InfoTxtU  uint32 = 0x400
	InfoBin   uint32 = 0x500
	InfoType  uint32 = 0xff00
	InfoLen   uint32 = 0x3f
)

var infoToType = map[uint32]byte{
	InfoCode: deck.TypeCode,
	InfoTxtL: deck.TypeTextLSB,
	InfoTxtM: deck.TypeTextMSB,
	InfoTxtU: deck.TypeUnpacked,
	InfoBin:  deck.TypeBinary,
}

var typeToInfo = map[byte]uint32{
	deck.TypeCode:     InfoCode,
	deck.TypeTextLSB:  InfoTxtL,
	deck.TypeTextMSB:  InfoTxtM,
	deck.TypeUnpacked: InfoTxtU,
	deck.TypeBinary:   InfoBin,
}

// Scan is the reader half of the 3CS.
type Scan struct {
	status    uint32
	infoReg   uint32
	buf       [BufLen]uint32
	reading   bool
	readStart time.Time
	hopper    io.Closer
	cards     *deck.Reader
	now       func() time.Time
}

// NewScan returns a scanner with an empty hopper.
func NewScan() *Scan {
	return &Scan{status: ScanEmpty, now: time.Now}
}

func (cot *Scan) MemSize() uint32 {
	return memSize
}

func (cot *Scan) DDN() uint32 {
	return peripheral.PackDDN("COTS")
}

func (cot *Scan) Class() peripheral.DeviceClass {
	return peripheral.ClassCardReader
}

// Attach loads a deck into the hopper. The stream must be positioned at the
// start.
func (cot *Scan) Attach(in io.ReadCloser) {
	cot.detach()
	cot.hopper = in
	cot.cards = deck.NewReader(in)
	cot.status = ScanReady
}

func (cot *Scan) detach() {
	if cot.hopper != nil {
		cot.hopper.Close()
		cot.hopper = nil
		cot.cards = nil
	}
}

func (cot *Scan) ReadIOMem(offset uint32) uint32 {
	cot.checkReadTimer()
	switch {
	case offset == RegStatus:
		return cot.status
	case offset == RegCardInfo:
		if cot.reading {
			return 0
		}
		return cot.infoReg
	case offset == RegCommand:
		return 0xffffffff
	case offset >= RegBuf && offset < RegBuf+BufLen:
		if cot.reading {
			return 0
		}
		return cot.buf[offset-RegBuf]
	}
	return 0xffffffff
}

func (cot *Scan) WriteIOMem(offset uint32, value uint32) {
	cot.checkReadTimer()
	if offset != RegCommand {
		// Everything else is read only.
		return
	}
	if (value & CmdRead) != 0 {
		if (cot.status & ScanReady) != 0 {
			cot.readNextCard()
		}
	} else if (value & CmdAbort) != 0 {
		cot.PowerOnReset()
	}
}

func (cot *Scan) InterruptSupported() bool {
	return false
}

func (cot *Scan) InterruptActive() bool {
	return false
}

func (cot *Scan) DoBackground() {
	cot.checkReadTimer()
}

// PowerOnReset empties the hopper and closes the deck.
func (cot *Scan) PowerOnReset() {
	cot.detach()
	cot.reading = false
	cot.status = ScanEmpty
}

// IsReading reports whether the mechanism is moving, for blinking lights.
func (cot *Scan) IsReading() bool {
	cot.checkReadTimer()
	return cot.reading
}

// readNextCard parses one card off the deck. Results only become visible
// once the scan timer expires; until then the info register and buffer read
// as zero.
func (cot *Scan) readNextCard() {
	cot.readStart = cot.now()
	cot.reading = true
	cot.status = ScanReading

	card, err := cot.cards.Next()
	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		// Out of cards, that is fine.
		cot.detach()
		cot.reading = false
		cot.status = ScanComplete
		return
	case errors.Is(err, deck.ErrCardType) || errors.Is(err, deck.ErrCardLen) ||
		errors.Is(err, deck.ErrCardData):
		// A card came under the read head but did not scan clean.
		cot.detach()
		cot.reading = false
		cot.status = ScanErrCsum
		return
	default:
		// The feed itself failed.
		cot.detach()
		cot.reading = false
		cot.status = ScanErrMech
		return
	}

	cot.infoReg = typeToInfo[card.Type] | uint32(len(card.Words))&InfoLen
	for i := range cot.buf {
		cot.buf[i] = 0
	}
	copy(cot.buf[:], card.Words)
}

func (cot *Scan) checkReadTimer() {
	if cot.reading && cot.now().Sub(cot.readStart) > ScanMsec*time.Millisecond {
		cot.reading = false
		cot.status = ScanReady | ScanComplete
	}
}

// Punch is the writer half of the 3CS.
type Punch struct {
	status     uint32
	infoReg    uint32
	buf        [BufLen]uint32
	writing    bool
	writeStart time.Time
	stacker    io.WriteCloser
	now        func() time.Time
}

// NewPunch returns a punch with no blank cards loaded.
func NewPunch() *Punch {
	return &Punch{status: PunchEmpty, now: time.Now}
}

func (cot *Punch) MemSize() uint32 {
	return memSize
}

func (cot *Punch) DDN() uint32 {
	return peripheral.PackDDN("COTP")
}

func (cot *Punch) Class() peripheral.DeviceClass {
	return peripheral.ClassCardPunch
}

// Attach loads blank cards, punched cards land on the stream.
func (cot *Punch) Attach(out io.WriteCloser) {
	cot.detach()
	cot.stacker = out
	cot.status = PunchReady
}

func (cot *Punch) detach() {
	if cot.stacker != nil {
		cot.stacker.Close()
		cot.stacker = nil
	}
}

func (cot *Punch) ReadIOMem(offset uint32) uint32 {
	cot.checkWriteTimer()
	if offset == RegStatus {
		return cot.status
	}
	return 0xffffffff
}

func (cot *Punch) WriteIOMem(offset uint32, value uint32) {
	cot.checkWriteTimer()
	if cot.writing {
		return
	}
	switch {
	case offset == RegCommand:
		if (value & CmdWrite) != 0 {
			cot.writeCard()
		} else if (value & CmdFlush) != 0 {
			cot.PowerOnReset()
		}
	case offset == RegCardInfo:
		cot.infoReg = value
	case offset >= RegBuf && offset < RegBuf+BufLen:
		cot.buf[offset-RegBuf] = value
	}
}

func (cot *Punch) InterruptSupported() bool {
	return false
}

func (cot *Punch) InterruptActive() bool {
	return false
}

func (cot *Punch) DoBackground() {
	cot.checkWriteTimer()
}

// PowerOnReset unloads the cards and closes the stacker.
func (cot *Punch) PowerOnReset() {
	cot.detach()
	cot.writing = false
	cot.status = PunchEmpty
}

// IsPunching reports whether the mechanism is moving.
func (cot *Punch) IsPunching() bool {
	cot.checkWriteTimer()
	return cot.writing
}

func (cot *Punch) writeCard() {
	if cot.status != PunchReady {
		return
	}
	length := cot.infoReg & InfoLen
	flag, ok := infoToType[cot.infoReg&InfoType]
	if !ok || length > BufLen {
		cot.status |= PunchErrData
		return
	}

	cot.writeStart = cot.now()
	cot.writing = true
	cot.status = PunchBusy

	err := deck.Write(cot.stacker, deck.Card{Type: flag, Words: cot.buf[:length]})
	if err != nil {
		cot.detach()
		cot.writing = false
		cot.status = PunchErrMech
	}
}

func (cot *Punch) checkWriteTimer() {
	if cot.writing && cot.now().Sub(cot.writeStart) > PunchMsec*time.Millisecond {
		cot.writing = false
		cot.status = PunchReady
	}
}

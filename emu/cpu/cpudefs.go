/*
   CT6K CPU definitions.

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

package cpu

// Flag bits within the FLG register (R13).
const (
	FlagOver  uint32 = 0x00000001 // Carry/overflow.
	FlagUnder uint32 = 0x00000002 // Borrow/underflow.
	FlagZero  uint32 = 0x00000008
	FlagInInt uint32 = 0x00000010 // Servicing an interrupt.

	FlagIntEn0 uint32 = 0x00010000 // Per line interrupt enables.
	FlagIntEn1 uint32 = 0x00020000
	FlagIntEn2 uint32 = 0x00040000
	FlagIntEn3 uint32 = 0x00080000

	FlagSigned uint32 = 0x20000000 // Signed arithmetic active.
	FlagIntEna uint32 = 0x40000000 // Global, controlled by INTENA and INTDIS.
	FlagFault  uint32 = 0x80000000 // Servicing a fault.
)

// Fault codes. The dispatcher leaves the code in R0 for the handler.
const (
	FaultNone     uint32 = 0
	FaultBadInstr uint32 = 0x00000001
	FaultBadAddr  uint32 = 0x00000002
	FaultStack    uint32 = 0x00000003
	FaultDouble   uint32 = 0x80000000 // High bit set, machine halts.
)

// Address space limits.
const (
	MaxAddr      uint32 = 0xffffffff
	StateSize    uint32 = 16 // Words pushed by SSTATE.
	MaxStatePush uint32 = MaxAddr - StateSize
	MinStatePop  uint32 = StateSize

	FHAPSize uint32 = 16
	MaxFHAP  uint32 = MaxAddr - FHAPSize
	IHAPSize uint32 = 32
	MaxIHAP  uint32 = MaxAddr - IHAPSize
)

// I/O region layout. Each registered device gets a 64K word window above the
// table window at the base of the region.
const (
	BaseIOMem  uint32 = 0xfff00000
	DevWindow  uint32 = 0x10000
	MaxDevices        = 15
	MaxDevMem  uint32 = 0xffff

	NumIntLines uint32 = 4
	NoIntLine   uint32 = 0xffffffff // Slot has no interrupt line.
)

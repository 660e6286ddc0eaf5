/*
   CT6K instruction decode and encode.

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

// Package instruction handles the 32 bit CT6K instruction word: high byte
// opcode, then src1, src2 and dest operand bytes. Each operand byte carries
// the register number in the low nibble and the operand kind in the high
// nibble.
package instruction

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Opcodes.
const (
	OpInvalid uint8 = 0x00 // No bits set, always faults.

	OpMove uint8 = 0x01
	OpCmp  uint8 = 0x08

	OpAdd    uint8 = 0x11
	OpSub    uint8 = 0x12
	OpAnd    uint8 = 0x13
	OpOr     uint8 = 0x14
	OpXor    uint8 = 0x15
	OpShiftR uint8 = 0x16
	OpShiftL uint8 = 0x17

	OpNot  uint8 = 0x20
	OpIncr uint8 = 0x21
	OpDecr uint8 = 0x22

	OpPush uint8 = 0x30
	OpPop  uint8 = 0x31

	OpJZero   uint8 = 0x32
	OpJNZero  uint8 = 0x33
	OpJOver   uint8 = 0x34
	OpJNOver  uint8 = 0x35
	OpJUnder  uint8 = 0x36
	OpJNUnder uint8 = 0x37
	OpJmp     uint8 = 0x38
	OpCall    uint8 = 0x39

	OpSetFHAP uint8 = 0x3a
	OpSetIHAP uint8 = 0x3b

	OpSState   uint8 = 0x50
	OpLState   uint8 = 0x51
	OpReturn   uint8 = 0x52
	OpIret     uint8 = 0x53
	OpSigned   uint8 = 0x54
	OpUnsigned uint8 = 0x55
	OpIntEna   uint8 = 0x56
	OpIntDis   uint8 = 0x57

	OpNop  uint8 = 0xf0
	OpHalt uint8 = 0xff
)

// Operand byte layout.
const (
	RegNumMask  uint8 = 0x0f
	RegTypeMask uint8 = 0xf0
	RegErr      uint8 = 0x10 // Faults if set.
	RegUnused   uint8 = 0x20
	RegInd      uint8 = 0x40 // Address in register.
	RegVal      uint8 = 0x80 // Value in register.
	RegValid    uint8 = 0xe0 // No bit of these set means invalid.
	RegNull     uint8 = 0xff // Direct value escape.
)

// Register aliases.
const (
	NumRegs = 16

	RegFLG uint8 = 13
	RegSP  uint8 = 14
	RegIP  uint8 = 15
)

// Operand kinds after decode.
type ArgKind int

const (
	ArgInvalid ArgKind = iota
	ArgUnused
	ArgIndirect
	ArgValue
	ArgNull
)

// Opcode classes, drive the execute dispatch.
type OpClass int

const (
	ClassInvalid OpClass = iota
	ClassNoArgs
	ClassSrcOnly
	ClassSrcDest
	ClassDestOnly
	ClassControlFlow
	Class2SrcDest
)

// RegisterArg is one decoded operand byte.
type RegisterArg struct {
	Num  uint8
	Kind ArgKind
}

// DecodeArg classifies one operand byte.
func DecodeArg(reg uint8) RegisterArg {
	arg := RegisterArg{Num: reg & RegNumMask}
	switch {
	case reg == RegNull:
		arg.Kind = ArgNull
	case (reg&RegErr) != 0 || (reg&RegValid) == 0:
		arg.Kind = ArgInvalid
	case (reg & RegTypeMask) == RegUnused:
		arg.Kind = ArgUnused
	case (reg & RegTypeMask) == RegInd:
		arg.Kind = ArgIndirect
	case (reg & RegTypeMask) == RegVal:
		arg.Kind = ArgValue
	default:
		// More than one kind bit set.
		arg.Kind = ArgInvalid
	}
	return arg
}

// Valid reports whether the operand can be used by an instruction.
func (a RegisterArg) Valid() bool {
	return a.Kind == ArgIndirect || a.Kind == ArgValue
}

// String prints an operand the way the assembler accepts it.
func (a RegisterArg) String() string {
	switch a.Kind {
	case ArgValue:
		return "R" + strconv.Itoa(int(a.Num))
	case ArgIndirect:
		return "I" + strconv.Itoa(int(a.Num))
	default:
		return "ERROR"
	}
}

type opDef struct {
	name   string
	opcode uint8
	class  OpClass
}

// Open coded table, searched both by opcode when executing and by name when
// assembling.
var opMap = []opDef{
	{"MOVE", OpMove, ClassSrcDest},
	{"CMP", OpCmp, ClassSrcDest},
	{"ADD", OpAdd, Class2SrcDest},
	{"SUB", OpSub, Class2SrcDest},
	{"AND", OpAnd, Class2SrcDest},
	{"OR", OpOr, Class2SrcDest},
	{"XOR", OpXor, Class2SrcDest},
	{"SHIFTR", OpShiftR, Class2SrcDest},
	{"SHIFTL", OpShiftL, Class2SrcDest},
	{"NOT", OpNot, ClassDestOnly},
	{"INCR", OpIncr, ClassDestOnly},
	{"DECR", OpDecr, ClassDestOnly},
	{"PUSH", OpPush, ClassSrcOnly},
	{"POP", OpPop, ClassDestOnly},
	{"JZERO", OpJZero, ClassControlFlow},
	{"JNZERO", OpJNZero, ClassControlFlow},
	{"JOVER", OpJOver, ClassControlFlow},
	{"JNOVER", OpJNOver, ClassControlFlow},
	{"JUNDER", OpJUnder, ClassControlFlow},
	{"JNUNDER", OpJNUnder, ClassControlFlow},
	{"JMP", OpJmp, ClassControlFlow},
	{"CALL", OpCall, ClassControlFlow},
	{"SETFHAP", OpSetFHAP, ClassSrcOnly},
	{"SETIHAP", OpSetIHAP, ClassSrcOnly},
	{"SSTATE", OpSState, ClassNoArgs},
	{"LSTATE", OpLState, ClassNoArgs},
	{"RETURN", OpReturn, ClassNoArgs},
	{"IRET", OpIret, ClassNoArgs},
	{"SIGNED", OpSigned, ClassNoArgs},
	{"UNSIGNED", OpUnsigned, ClassNoArgs},
	{"INTENA", OpIntEna, ClassNoArgs},
	{"INTDIS", OpIntDis, ClassNoArgs},
	{"NOP", OpNop, ClassNoArgs},
	{"HALT", OpHalt, ClassNoArgs},
}

func findByOpcode(op uint8) (opDef, bool) {
	for _, def := range opMap {
		if def.opcode == op {
			return def, true
		}
	}
	return opDef{class: ClassInvalid}, false
}

func findByName(name string) (opDef, bool) {
	name = strings.ToUpper(name)
	for _, def := range opMap {
		if def.name == name {
			return def, true
		}
	}
	return opDef{class: ClassInvalid}, false
}

// LookupOpcode returns the class for an opcode, ClassInvalid if unknown.
func LookupOpcode(op uint8) OpClass {
	def, _ := findByOpcode(op)
	return def.class
}

// Instruction is one decoded instruction word, plus the trailing direct
// value word when one is in use.
type Instruction struct {
	Raw    uint32
	Opcode uint8
	Src1   RegisterArg
	Src2   RegisterArg
	Dest   RegisterArg

	class       OpClass
	known       bool
	directInUse bool

	DirectVal      uint32
	DirectProvided bool
}

// Decode breaks an instruction word into its operands. The direct value, if
// the encoding calls for one, is retrieved separately by the executor.
func Decode(word uint32) Instruction {
	inst := Instruction{
		Raw:    word,
		Opcode: uint8(word >> 24),
		Src1:   DecodeArg(uint8(word >> 16)),
		Src2:   DecodeArg(uint8(word >> 8)),
		Dest:   DecodeArg(uint8(word)),
	}
	def, ok := findByOpcode(inst.Opcode)
	inst.class = def.class
	inst.known = ok

	// MOVE and CMP take a direct value when both source bytes are the null
	// escape. Control flow takes a direct target when dest is null.
	switch {
	case inst.Opcode == OpMove || inst.Opcode == OpCmp:
		inst.directInUse = inst.Src1.Kind == ArgNull && inst.Src2.Kind == ArgNull
	case def.class == ClassControlFlow:
		inst.directInUse = inst.Dest.Kind == ArgNull
	}
	return inst
}

// DecodeWith decodes an instruction word along with a prefetched second
// word, for disassembly.
func DecodeWith(word uint32, next uint32) Instruction {
	inst := Decode(word)
	if inst.directInUse {
		inst.DirectVal = next
		inst.DirectProvided = true
	}
	return inst
}

// Class returns the arity class of the opcode.
func (inst *Instruction) Class() OpClass {
	return inst.class
}

// DirectInUse reports whether the next memory word is a direct value.
func (inst *Instruction) DirectInUse() bool {
	return inst.directInUse
}

// Size returns the instruction footprint in words, 1 or 2.
func (inst *Instruction) Size() uint32 {
	if inst.directInUse {
		return 2
	}
	return 1
}

// Valid reports whether the instruction can execute without a fault,
// based on the arity class.
func (inst *Instruction) Valid() bool {
	if !inst.known {
		return false
	}
	switch inst.class {
	case ClassNoArgs:
		return true
	case ClassSrcOnly:
		return inst.Src1.Valid()
	case ClassSrcDest:
		return inst.Dest.Valid() && (inst.Src1.Valid() || inst.directInUse)
	case ClassDestOnly:
		return inst.Dest.Valid()
	case ClassControlFlow:
		return inst.Dest.Valid() || inst.directInUse
	case Class2SrcDest:
		return inst.Src1.Valid() && inst.Src2.Valid() && inst.Dest.Valid()
	}
	return false
}

// String prints the canonical disassembly. Anything that does not decode is
// shown as a raw data word.
func (inst *Instruction) String() string {
	if !inst.Valid() {
		return fmt.Sprintf("\t0x%08X", inst.Raw)
	}
	def, _ := findByOpcode(inst.Opcode)
	out := "\t" + def.name + " "

	direct := "<direct data>"
	if inst.DirectProvided {
		direct = fmt.Sprintf("0x%08X", inst.DirectVal)
	}

	switch inst.class {
	case ClassNoArgs:
		out = "\t" + def.name
	case ClassSrcOnly:
		out += inst.Src1.String()
	case ClassSrcDest:
		if inst.directInUse {
			out += direct
		} else {
			out += inst.Src1.String()
		}
		out += ", " + inst.Dest.String()
	case ClassDestOnly:
		out += inst.Dest.String()
	case ClassControlFlow:
		if inst.directInUse {
			out += direct
		} else {
			out += inst.Dest.String()
		}
	case Class2SrcDest:
		out += inst.Src1.String() + ", " + inst.Src2.String() + ", " + inst.Dest.String()
	}
	return out
}

// Word builders, used by the encoder and the ROM images.

// Encode packs an opcode and raw operand bytes into an instruction word.
func Encode(op uint8, src1 uint8, src2 uint8, dest uint8) uint32 {
	return uint32(op)<<24 | uint32(src1)<<16 | uint32(src2)<<8 | uint32(dest)
}

// Reg builds a value-kind operand byte for register n.
func Reg(n uint8) uint8 {
	return RegVal | (n & RegNumMask)
}

// Ind builds an indirect-kind operand byte for register n.
func Ind(n uint8) uint8 {
	return RegInd | (n & RegNumMask)
}

var regAlias = map[string]uint8{
	"IP":  RegIP,
	"SP":  RegSP,
	"FLG": RegFLG,
}

// parseReg converts a register token, Rn or In with n 0..15, or the IP, SP
// and FLG aliases in either form.
func parseReg(tok string) (uint8, error) {
	tok = strings.ToUpper(tok)
	if n, ok := regAlias[tok]; ok {
		return RegVal | n, nil
	}
	if len(tok) < 2 {
		return 0, errors.New("invalid argument: " + tok)
	}
	var kind uint8
	switch tok[0] {
	case 'R':
		kind = RegVal
	case 'I':
		kind = RegInd
	default:
		return 0, errors.New("invalid argument: " + tok)
	}
	if n, ok := regAlias[tok[1:]]; ok {
		return kind | n, nil
	}
	n, err := strconv.ParseUint(tok[1:], 10, 8)
	if err != nil || n > 15 {
		return 0, errors.New("invalid register number: " + tok)
	}
	return kind | uint8(n), nil
}

// parseLiteral converts a decimal or 0x-prefixed direct value. Values that
// do not fit in 32 bits are an error.
func parseLiteral(tok string) (uint32, error) {
	v, err := strconv.ParseUint(tok, 0, 32)
	if err != nil {
		return 0, errors.New("invalid numeric value: " + tok)
	}
	return uint32(v), nil
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// tokenize splits a source line into alphanumeric runs. All punctuation is
// a separator, which lets programmers write "ADD R0 + R2 = R2" if they must.
func tokenize(line string) []string {
	var toks []string
	start := -1
	for i := 0; i < len(line); i++ {
		c := line[i]
		alnum := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || isDigit(c)
		if alnum {
			if start < 0 {
				start = i
			}
		} else if start >= 0 {
			toks = append(toks, line[start:i])
			start = -1
		}
	}
	if start >= 0 {
		toks = append(toks, line[start:])
	}
	return toks
}

// Assemble encodes one source line, a mnemonic with up to three operands.
// Symbols must already have been replaced by the caller. When the encoding
// needs a trailing direct value word, extraPresent is true and extra holds
// it. A line holding a bare number assembles to a raw data word.
func Assemble(line string) (word uint32, extra uint32, extraPresent bool, err error) {
	toks := tokenize(line)
	if len(toks) == 0 {
		return 0, 0, false, errors.New("empty instruction")
	}

	if isDigit(toks[0][0]) {
		// Raw data in decimal or hex.
		word, err = parseLiteral(toks[0])
		return word, 0, false, err
	}

	def, ok := findByName(toks[0])
	if !ok {
		return 0, 0, false, errors.New("unknown instruction: " + toks[0])
	}
	word = uint32(def.opcode) << 24
	args := toks[1:]

	need := func(n int) error {
		if len(args) != n {
			return fmt.Errorf("%s takes %d operand(s)", def.name, n)
		}
		return nil
	}

	switch def.class {
	case ClassNoArgs:
		err = need(0)

	case ClassSrcOnly:
		if err = need(1); err != nil {
			break
		}
		var r uint8
		if r, err = parseReg(args[0]); err == nil {
			word |= uint32(r) << 16
		}

	case ClassDestOnly:
		if err = need(1); err != nil {
			break
		}
		var r uint8
		if r, err = parseReg(args[0]); err == nil {
			word |= uint32(r)
		}

	case ClassSrcDest:
		if err = need(2); err != nil {
			break
		}
		if isDigit(args[0][0]) {
			word |= uint32(RegNull)<<16 | uint32(RegNull)<<8
			if extra, err = parseLiteral(args[0]); err != nil {
				break
			}
			extraPresent = true
		} else {
			var r uint8
			if r, err = parseReg(args[0]); err != nil {
				break
			}
			word |= uint32(r) << 16
		}
		var r uint8
		if r, err = parseReg(args[1]); err == nil {
			word |= uint32(r)
		}

	case ClassControlFlow:
		if err = need(1); err != nil {
			break
		}
		if isDigit(args[0][0]) {
			word |= uint32(RegNull)
			if extra, err = parseLiteral(args[0]); err != nil {
				break
			}
			extraPresent = true
		} else {
			var r uint8
			if r, err = parseReg(args[0]); err == nil {
				word |= uint32(r)
			}
		}

	case Class2SrcDest:
		if err = need(3); err != nil {
			break
		}
		shifts := []uint{16, 8, 0}
		for i, arg := range args {
			var r uint8
			if r, err = parseReg(arg); err != nil {
				break
			}
			word |= uint32(r) << shifts[i]
		}

	default:
		err = errors.New("invalid instruction: " + toks[0])
	}

	if err != nil {
		return 0, 0, false, err
	}
	return word, extra, extraPresent, nil
}

/*
 * CT6K - Console command parser.
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

// Package parser turns console input into operations on the run controller.
// Commands that poke CPU state quiesce the driver first and leave the
// machine stopped; run and step set it moving again.
package parser

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/compotron/ct6k/asm"
	config "github.com/compotron/ct6k/config/configparser"
	"github.com/compotron/ct6k/emu/cardotron"
	"github.com/compotron/ct6k/emu/core"
	"github.com/compotron/ct6k/emu/cpu"
	"github.com/compotron/ct6k/emu/instruction"
	"github.com/compotron/ct6k/emu/peripheral"
	"github.com/compotron/ct6k/emu/printotron"
	"github.com/compotron/ct6k/emu/storotron"
)

// Context is everything the commands operate on.
type Context struct {
	Core *core.Core
	Mach *config.Machine
	Out  io.Writer // Console output, defaults to stdout.
}

func (ctx *Context) out() io.Writer {
	if ctx.Out != nil {
		return ctx.Out
	}
	return os.Stdout
}

type command struct {
	name string
	args string
	help string
	fn   func(ctx *Context, args []string) error
}

// Table driven so completion and help stay in step with the commands.
var commands []command

func init() {
	commands = []command{
		{"step", "", "execute one instruction", cmdStep},
		{"run", "[slow|medium|fast|full]", "run at the given rate", cmdRun},
		{"stop", "", "stop a running machine", cmdStop},
		{"registers", "", "display registers and flags", cmdRegisters},
		{"examine", "addr [count]", "display memory", cmdExamine},
		{"deposit", "addr value|reg value", "modify memory or a register", cmdDeposit},
		{"disassemble", "addr [count]", "disassemble memory", cmdDisassemble},
		{"assemble", "addr line", "assemble one line into memory", cmdAssemble},
		{"load", "file", "reset and load a binary program", cmdLoad},
		{"attach", "device file", "attach a file to a device", cmdAttach},
		{"devices", "", "list attached devices", cmdDevices},
		{"boot", "", "jump to the deck boot ROM and run", cmdBoot},
		{"breakpoint", "[addr|off]", "set or clear the breakpoint", cmdBreakpoint},
		{"reset", "", "reset the machine", cmdReset},
		{"help", "", "this text", cmdHelp},
		{"exit", "", "leave the emulator", nil},
	}
}

// ProcessCommand runs one console line. Returns true when it is time to
// leave.
func ProcessCommand(line string, ctx *Context) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	name := strings.ToLower(fields[0])

	var match *command
	for i := range commands {
		if strings.HasPrefix(commands[i].name, name) {
			if match != nil {
				return false, errors.New("ambiguous command: " + name)
			}
			match = &commands[i]
		}
	}
	if match == nil {
		return false, errors.New("unknown command: " + name)
	}
	if match.name == "exit" {
		return true, nil
	}
	return false, match.fn(ctx, fields[1:])
}

// CompleteCmd offers command-name completion to the reader.
func CompleteCmd(line string) []string {
	var out []string
	lower := strings.ToLower(line)
	for _, cmd := range commands {
		if strings.HasPrefix(cmd.name, lower) {
			out = append(out, cmd.name)
		}
	}
	return out
}

func parseNumber(tok string) (uint32, error) {
	v, err := strconv.ParseUint(tok, 0, 32)
	if err != nil {
		return 0, errors.New("invalid number: " + tok)
	}
	return uint32(v), nil
}

var runRates = map[string]core.RunState{
	"slow":   core.Slow,
	"medium": core.Medium,
	"fast":   core.Fast,
	"full":   core.FreeRun,
}

func cmdStep(ctx *Context, args []string) error {
	ctx.Core.Go()
	ctx.Core.SetState(core.Step)
	return nil
}

func cmdRun(ctx *Context, args []string) error {
	state := core.FreeRun
	if len(args) > 0 {
		var ok bool
		state, ok = runRates[strings.ToLower(args[0])]
		if !ok {
			return errors.New("invalid rate: " + args[0])
		}
	}
	ctx.Core.Go()
	ctx.Core.SetState(state)
	return nil
}

func cmdStop(ctx *Context, args []string) error {
	ctx.Core.Quiesce()
	return nil
}

var flagNames = []struct {
	bit  uint32
	name string
}{
	{cpu.FlagOver, "OVER"},
	{cpu.FlagUnder, "UNDER"},
	{cpu.FlagZero, "ZERO"},
	{cpu.FlagInInt, "IN_INT"},
	{cpu.FlagSigned, "SIGNED"},
	{cpu.FlagIntEna, "INT_ENA"},
	{cpu.FlagFault, "FAULT"},
}

// ShowState prints the register dashboard.
func ShowState(ctx *Context) {
	state := ctx.Core.DumpState()
	w := ctx.out()

	for i := 0; i < instruction.NumRegs; i += 4 {
		for j := i; j < i+4; j++ {
			label := fmt.Sprintf("R%02d", j)
			switch uint8(j) {
			case instruction.RegFLG:
				label = "FLG"
			case instruction.RegSP:
				label = "SP "
			case instruction.RegIP:
				label = "IP "
			}
			fmt.Fprintf(w, "%s: %08X   ", label, state.Registers[j])
		}
		fmt.Fprintln(w)
	}

	flags := state.Registers[instruction.RegFLG]
	set := []string{}
	for _, flag := range flagNames {
		if (flags & flag.bit) != 0 {
			set = append(set, flag.name)
		}
	}
	fmt.Fprintf(w, "FLAGS: [%s]  FHAP: %08X  IHAP: %08X  %v\n",
		strings.Join(set, " "), state.FHAPBase, state.IHAPBase, ctx.Core.State())
	if state.Halted {
		fmt.Fprintln(w, "*** MACHINE HALTED ***")
	} else {
		ip := state.Registers[instruction.RegIP]
		fmt.Fprintf(w, "NEXT: [%s ]\n", ctx.Core.Disassemble(ip))
	}
}

func cmdRegisters(ctx *Context, args []string) error {
	ctx.Core.Quiesce()
	ShowState(ctx)
	return nil
}

func cmdExamine(ctx *Context, args []string) error {
	if len(args) < 1 {
		return errors.New("examine needs an address")
	}
	addr, err := parseNumber(args[0])
	if err != nil {
		return err
	}
	count := uint32(8)
	if len(args) > 1 {
		if count, err = parseNumber(args[1]); err != nil {
			return err
		}
	}
	ctx.Core.Quiesce()
	for i := uint32(0); i < count; i += 4 {
		fmt.Fprintf(ctx.out(), "%08X:", addr+i)
		for j := uint32(0); j < 4 && i+j < count; j++ {
			fmt.Fprintf(ctx.out(), " %08X", ctx.Core.ReadMem(addr+i+j))
		}
		fmt.Fprintln(ctx.out())
	}
	return nil
}

// regIndex accepts R0..R15 and the IP, SP, FLG aliases.
func regIndex(tok string) (uint8, bool) {
	tok = strings.ToUpper(tok)
	switch tok {
	case "IP":
		return instruction.RegIP, true
	case "SP":
		return instruction.RegSP, true
	case "FLG":
		return instruction.RegFLG, true
	}
	if len(tok) > 1 && tok[0] == 'R' {
		if n, err := strconv.ParseUint(tok[1:], 10, 8); err == nil && n < 16 {
			return uint8(n), true
		}
	}
	return 0, false
}

func cmdDeposit(ctx *Context, args []string) error {
	if len(args) != 2 {
		return errors.New("deposit needs a target and a value")
	}
	value, err := parseNumber(args[1])
	if err != nil {
		return err
	}
	ctx.Core.Quiesce()
	if reg, ok := regIndex(args[0]); ok {
		ctx.Core.WriteReg(reg, value)
		return nil
	}
	addr, err := parseNumber(args[0])
	if err != nil {
		return err
	}
	ctx.Core.WriteMem(addr, value)
	return nil
}

func cmdDisassemble(ctx *Context, args []string) error {
	if len(args) < 1 {
		return errors.New("disassemble needs an address")
	}
	addr, err := parseNumber(args[0])
	if err != nil {
		return err
	}
	count := uint32(8)
	if len(args) > 1 {
		if count, err = parseNumber(args[1]); err != nil {
			return err
		}
	}
	ctx.Core.Quiesce()
	for i := uint32(0); i < count; i++ {
		word := ctx.Core.ReadMem(addr)
		inst := instruction.DecodeWith(word, ctx.Core.ReadMem(addr+1))
		fmt.Fprintf(ctx.out(), "%08X: %08X %s\n", addr, word, inst.String())
		addr += inst.Size()
	}
	return nil
}

func cmdAssemble(ctx *Context, args []string) error {
	if len(args) < 2 {
		return errors.New("assemble needs an address and a statement")
	}
	addr, err := parseNumber(args[0])
	if err != nil {
		return err
	}
	words, err := asm.AssembleString("    "+strings.Join(args[1:], " "), addr)
	if err != nil {
		return err
	}
	ctx.Core.Quiesce()
	for i, word := range words {
		ctx.Core.WriteMem(addr+uint32(i), word)
	}
	return nil
}

func cmdLoad(ctx *Context, args []string) error {
	if len(args) != 1 {
		return errors.New("load needs a file name")
	}
	words, err := ReadBinary(args[0])
	if err != nil {
		return err
	}
	ctx.Core.Quiesce()
	ctx.Core.LoadProgram(words)
	fmt.Fprintf(ctx.out(), "Loaded %d words from %s\n", len(words), args[0])
	return nil
}

// ReadBinary reads a program file: a stream of 32 bit words, MSB first.
func ReadBinary(path string) ([]uint32, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("%s is not a whole number of words", path)
	}
	words := make([]uint32, len(blob)/4)
	for i := range words {
		words[i] = uint32(blob[i*4])<<24 | uint32(blob[i*4+1])<<16 |
			uint32(blob[i*4+2])<<8 | uint32(blob[i*4+3])
	}
	return words, nil
}

func cmdAttach(ctx *Context, args []string) error {
	if len(args) != 2 {
		return errors.New("attach needs a device and a file")
	}
	ctx.Core.Quiesce()
	for _, dev := range ctx.Core.Machine().Devices() {
		switch unit := dev.(type) {
		case *cardotron.Scan:
			if strings.EqualFold(args[0], "cardscan") {
				file, err := os.Open(args[1])
				if err != nil {
					return err
				}
				unit.Attach(file)
				return nil
			}
		case *cardotron.Punch:
			if strings.EqualFold(args[0], "cardpunch") {
				file, err := os.Create(args[1])
				if err != nil {
					return err
				}
				unit.Attach(file)
				return nil
			}
		case *storotron.StorOTron:
			if strings.EqualFold(args[0], "storotron") {
				file, err := os.OpenFile(args[1], os.O_RDWR|os.O_CREATE, 0o644)
				if err != nil {
					return err
				}
				if info, statErr := file.Stat(); statErr == nil && info.Size() < storotron.FileSize {
					if err = file.Truncate(storotron.FileSize); err != nil {
						file.Close()
						return err
					}
				}
				unit.Attach(file)
				return nil
			}
		case *printotron.PrintOTron:
			if strings.EqualFold(args[0], "printotron") && ctx.Mach != nil {
				ctx.Mach.SetPrinterFile(args[1])
				return nil
			}
		}
	}
	return errors.New("no such device: " + args[0])
}

func cmdDevices(ctx *Context, args []string) error {
	ctx.Core.Quiesce()
	devs := ctx.Core.Machine().Devices()
	if len(devs) == 0 {
		fmt.Fprintln(ctx.out(), "no devices attached")
		return nil
	}
	for i, dev := range devs {
		fmt.Fprintf(ctx.out(), "%2d: %s %s (%d words)\n",
			i, peripheral.UnpackDDN(dev.DDN()), dev.Class(), dev.MemSize())
	}
	return nil
}

func cmdBoot(ctx *Context, args []string) error {
	ctx.Core.Quiesce()
	entry, err := ctx.Core.Boot()
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.out(), "Booting at %08X\n", entry)
	ctx.Core.Go()
	ctx.Core.SetState(core.FreeRun)
	return nil
}

func cmdBreakpoint(ctx *Context, args []string) error {
	if len(args) == 0 {
		return errors.New("breakpoint needs an address or off")
	}
	if strings.EqualFold(args[0], "off") {
		ctx.Core.ClearBreakpoint()
		return nil
	}
	addr, err := parseNumber(args[0])
	if err != nil {
		return err
	}
	ctx.Core.SetBreakpoint(addr)
	return nil
}

func cmdReset(ctx *Context, args []string) error {
	ctx.Core.Quiesce()
	ctx.Core.Reset()
	ShowState(ctx)
	return nil
}

func cmdHelp(ctx *Context, args []string) error {
	for _, cmd := range commands {
		fmt.Fprintf(ctx.out(), "  %-12s %-22s %s\n", cmd.name, cmd.args, cmd.help)
	}
	return nil
}

/*
 * CT6K - Emulator main process.
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

package main

import (
	"fmt"
	"log/slog"
	"os"

	getopt "github.com/pborman/getopt/v2"
	"golang.org/x/term"

	"github.com/compotron/ct6k/command/parser"
	"github.com/compotron/ct6k/command/reader"
	config "github.com/compotron/ct6k/config/configparser"
	"github.com/compotron/ct6k/emu/core"
	"github.com/compotron/ct6k/emu/cpu"
	"github.com/compotron/ct6k/emu/instruction"
	"github.com/compotron/ct6k/emu/master"
	"github.com/compotron/ct6k/emu/rom"
	"github.com/compotron/ct6k/util/logger"

	_ "github.com/compotron/ct6k/emu/cardotron"
	_ "github.com/compotron/ct6k/emu/printotron"
	_ "github.com/compotron/ct6k/emu/storotron"
)

func main() {
	optConfig := getopt.StringLong("config", 'c', "", "Device configuration file")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.SetParameters("[binfile]")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var logFile *os.File
	if *optLogFile != "" {
		var err error
		logFile, err = os.Create(*optLogFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Can't create log file: "+err.Error())
			os.Exit(1)
		}
	}
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelDebug)
	log := slog.New(logger.NewHandler(logFile, &slog.HandlerOptions{Level: programLevel}))
	slog.SetDefault(log)
	log.Info("CT6K started")

	machine := cpu.NewDefault()
	mach := &config.Machine{CPU: machine}

	if *optConfig != "" {
		if err := config.LoadConfigFile(*optConfig, mach); err != nil {
			log.Error(err.Error())
			os.Exit(1)
		}
	}

	run := core.New(machine)
	if image, err := rom.DeckBoot(machine.MemSize()); err == nil {
		run.SetROM(image)
	} else {
		log.Error(err.Error())
	}

	// Loading a program is optional, operators can hand-assemble a
	// bootstrap if they want the authentic experience.
	args := getopt.Args()
	if len(args) > 1 {
		getopt.Usage()
		os.Exit(1)
	}
	if len(args) == 1 {
		words, err := parser.ReadBinary(args[0])
		if err != nil {
			log.Error(err.Error())
			os.Exit(1)
		}
		run.LoadProgram(words)
		log.Info(fmt.Sprintf("Loaded %d words from %s", len(words), args[0]))
	}

	ctx := &parser.Context{Core: run, Mach: mach}

	// Observer: spool printer lines, report halts and breakpoints. The
	// console keeps stdout, so only halt, breakpoint and printer traffic
	// lands there.
	go watchEvents(run, mach)

	if term.IsTerminal(int(os.Stdin.Fd())) {
		parser.ShowState(ctx)
	}
	reader.ConsoleReader(ctx)

	log.Info("Shutting down driver")
	run.Stop()
	log.Info("CT6K stopped")
}

// watchEvents drains the observer channel for the life of the process.
func watchEvents(run *core.Core, mach *config.Machine) {
	var spool *os.File
	spoolName := ""

	for packet := range run.Events() {
		switch packet.Msg {
		case master.PrinterLine:
			if mach.PrinterFile() != spoolName {
				if spool != nil {
					spool.Close()
					spool = nil
				}
				spoolName = mach.PrinterFile()
				if spoolName != "" {
					var err error
					if spool, err = os.Create(spoolName); err != nil {
						slog.Error("printer spool: " + err.Error())
						spool = nil
					}
				}
			}
			if spool != nil {
				fmt.Fprintln(spool, packet.Line)
			} else {
				fmt.Println("POT: " + packet.Line)
			}
		case master.Halted:
			r0 := packet.State.Registers[0]
			if (r0 & cpu.FaultDouble) != 0 {
				fmt.Printf("\n*** DOUBLE FAULT, MACHINE HALTED (R0 %08X) ***\n", r0)
			} else {
				fmt.Printf("\n*** MACHINE HALTED at %08X ***\n",
					packet.State.Registers[instruction.RegIP])
			}
		case master.Breakpoint:
			fmt.Printf("\n*** BREAKPOINT at %08X ***\n",
				packet.State.Registers[instruction.RegIP])
		}
	}
}

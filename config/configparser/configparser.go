/*
 * CT6K - Configuration file parser.
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

// Package configparser reads the device configuration file and builds the
// machine's peripherals. Device packages register a factory per model name
// from their init functions; the parser only knows model names and options.
//
// Configuration file format, one device per line:
//
//	# comment
//	printotron
//	cardscan deck=programs.deck
//	cardpunch file=punched.deck
//	storotron file=drum.dat
package configparser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/compotron/ct6k/emu/cpu"
)

// Option is one name or name=value setting after the model name.
type Option struct {
	Name     string // Option name, lower cased.
	EqualOpt string // Value after the equal sign, empty if none.
}

// Machine is what factories build onto: the CPU plus the odd setting the
// console needs to know about afterwards.
type Machine struct {
	CPU *cpu.CPU

	// The printer spool is written by the console goroutine and read by
	// the event watcher, hence the lock.
	mu          sync.Mutex
	printerFile string
}

// SetPrinterFile names the spool file for released printer lines, empty
// for screen only.
func (mach *Machine) SetPrinterFile(name string) {
	mach.mu.Lock()
	defer mach.mu.Unlock()
	mach.printerFile = name
}

// PrinterFile returns the current spool file name.
func (mach *Machine) PrinterFile() string {
	mach.mu.Lock()
	defer mach.mu.Unlock()
	return mach.printerFile
}

// CreateFunc builds one device onto the machine.
type CreateFunc func(mach *Machine, options []Option) error

var models = map[string]CreateFunc{}

// RegisterModel should be called from device package init functions.
func RegisterModel(model string, create CreateFunc) {
	models[strings.ToLower(model)] = create
}

// LoadConfigFile parses the named file and creates every device in it.
func LoadConfigFile(path string, mach *Machine) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return LoadConfig(file, path, mach)
}

// LoadConfig parses a configuration stream. Any error aborts the load.
func LoadConfig(in io.Reader, name string, mach *Machine) error {
	scanner := bufio.NewScanner(in)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}

		fields := strings.Fields(line)
		model := strings.ToLower(fields[0])
		create, ok := models[model]
		if !ok {
			return fmt.Errorf("%s:%d: unknown device model %s", name, lineNum, fields[0])
		}

		var options []Option
		for _, field := range fields[1:] {
			opt := Option{Name: strings.ToLower(field)}
			if eq := strings.IndexByte(field, '='); eq >= 0 {
				opt.Name = strings.ToLower(field[:eq])
				opt.EqualOpt = field[eq+1:]
			}
			options = append(options, opt)
		}

		if err := create(mach, options); err != nil {
			return fmt.Errorf("%s:%d: %w", name, lineNum, err)
		}
	}
	return scanner.Err()
}

// FindOption pulls a named option out of the list.
func FindOption(options []Option, name string) (Option, bool) {
	for _, opt := range options {
		if opt.Name == name {
			return opt, true
		}
	}
	return Option{}, false
}

// NeedValue returns the value of a required name=value option.
func NeedValue(options []Option, name string) (string, error) {
	opt, ok := FindOption(options, name)
	if !ok {
		return "", errors.New("missing option " + name)
	}
	if opt.EqualOpt == "" {
		return "", errors.New(name + " requires a value")
	}
	return opt.EqualOpt, nil
}

/*
 * CT6K - Assembler main process.
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
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/compotron/ct6k/asm"
)

var (
	flagBinary  bool
	flagCards   bool
	flagListing bool
	flagOutput  string
)

var rootCmd = &cobra.Command{
	Use:   "asm [-b|-c] -o outfile [-l] infile...",
	Short: "CT6K assembler — translate symbolic source to binary or card decks",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagBinary == flagCards {
			return errors.New("exactly one of -b or -c is required")
		}
		if flagOutput == "" {
			return errors.New("an output file is required")
		}
		return assemble(args)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.Flags().BoolVarP(&flagBinary, "binary", "b", false, "emit a flat binary")
	rootCmd.Flags().BoolVarP(&flagCards, "cards", "c", false, "emit a punched card deck")
	rootCmd.Flags().BoolVarP(&flagListing, "listing", "l", false, "also emit <outfile>.listing")
	rootCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "output file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		msg := err.Error()
		if !strings.HasPrefix(msg, "Fatal:") {
			msg = "Fatal: " + msg
		}
		fmt.Fprintln(os.Stderr, msg)
		os.Exit(1)
	}
}

// assemble runs the job and writes the requested outputs. A failed job
// leaves no partial output behind.
func assemble(inputs []string) error {
	prog, err := asm.AssembleFiles(inputs)
	if err != nil {
		return err
	}

	out, err := os.Create(flagOutput)
	if err != nil {
		return err
	}
	if flagBinary {
		err = prog.WriteBinary(out)
	} else {
		err = prog.WriteDeck(out)
	}
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(flagOutput)
		return err
	}

	if flagListing {
		listing, err := os.Create(flagOutput + ".listing")
		if err != nil {
			return err
		}
		err = prog.WriteListing(listing)
		if closeErr := listing.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			os.Remove(flagOutput + ".listing")
			return err
		}
	}
	return nil
}

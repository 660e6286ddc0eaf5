/* Card-o-Tron 3CS configuration glue.

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
	"errors"
	"os"

	config "github.com/compotron/ct6k/config/configparser"
)

func init() {
	config.RegisterModel("cardscan", createScan)
	config.RegisterModel("cardpunch", createPunch)
}

// Create the scanner half. The optional deck option loads a card deck into
// the hopper right away.
func createScan(mach *config.Machine, options []config.Option) error {
	cot := NewScan()
	if err := mach.CPU.AddDevice(cot); err != nil {
		return err
	}
	for _, opt := range options {
		switch opt.Name {
		case "deck":
			if opt.EqualOpt == "" {
				return errors.New("deck requires a file name")
			}
			file, err := os.Open(opt.EqualOpt)
			if err != nil {
				return err
			}
			cot.Attach(file)
		default:
			return errors.New("card scanner invalid option " + opt.Name)
		}
	}
	return nil
}

// Create the punch half. The optional file option loads blank cards with
// the output landing in the named file.
func createPunch(mach *config.Machine, options []config.Option) error {
	cot := NewPunch()
	if err := mach.CPU.AddDevice(cot); err != nil {
		return err
	}
	for _, opt := range options {
		switch opt.Name {
		case "file":
			if opt.EqualOpt == "" {
				return errors.New("file requires a name")
			}
			file, err := os.Create(opt.EqualOpt)
			if err != nil {
				return err
			}
			cot.Attach(file)
		default:
			return errors.New("card punch invalid option " + opt.Name)
		}
	}
	return nil
}

/* Print-o-Tron XL configuration glue.

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

package printotron

import (
	"errors"

	config "github.com/compotron/ct6k/config/configparser"
)

func init() {
	config.RegisterModel("printotron", create)
}

// Create a printer. The optional file option names a spool file for the
// console to write released lines into.
func create(mach *config.Machine, options []config.Option) error {
	pot := New()
	if err := mach.CPU.AddDevice(pot); err != nil {
		return err
	}
	for _, opt := range options {
		switch opt.Name {
		case "file":
			if opt.EqualOpt == "" {
				return errors.New("file requires a name")
			}
			mach.SetPrinterFile(opt.EqualOpt)
		default:
			return errors.New("printer invalid option " + opt.Name)
		}
	}
	return nil
}

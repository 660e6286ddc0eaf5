/*
 * CT6K - Card deck file format.
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

// Package deck reads and writes the text card format shared by the
// Card-o-Tron and the assembler's deck emitter. A card is a header line
// `<T> n` with a one-character type flag and a decimal word count, followed
// by n hex words:
//
//	<C> 4
//	0x0
//	0x1058000 0x5 0xff000000
//
// A code card's first word is the load address of the data words behind it.
package deck

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Card type flags.
const (
	TypeCode     byte = 'C'
	TypeTextLSB  byte = 'L'
	TypeTextMSB  byte = 'M'
	TypeUnpacked byte = 'U'
	TypeBinary   byte = 'B'
)

// MaxCardLen is the most words one card can hold: a load address plus 31
// data words.
const MaxCardLen = 32

var (
	ErrCardType = errors.New("invalid card type flag")
	ErrCardLen  = errors.New("card length over 32 words")
	ErrCardData = errors.New("malformed card data")
)

// Card is one textual record of the deck.
type Card struct {
	Type  byte
	Words []uint32
}

// Reader pulls cards off a text deck one at a time.
type Reader struct {
	in *bufio.Reader
}

// NewReader wraps a deck stream.
func NewReader(in io.Reader) *Reader {
	return &Reader{in: bufio.NewReader(in)}
}

// Next reads the next card. It returns io.EOF once the hopper is empty and
// ErrCardData or ErrCardType/ErrCardLen for anything torn or misfed.
func (r *Reader) Next() (Card, error) {
	var card Card

	// Skip ahead to the next card header. Running out of input here just
	// means the hopper is empty; anything else is a real feed failure and
	// comes back as is.
	for {
		ch, err := r.in.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return card, io.EOF
			}
			return card, err
		}
		if ch == '<' {
			break
		}
	}

	flag, err := r.in.ReadByte()
	if err != nil {
		return card, ErrCardData
	}
	switch flag {
	case TypeCode, TypeTextLSB, TypeTextMSB, TypeUnpacked, TypeBinary:
		card.Type = flag
	default:
		return card, ErrCardType
	}
	if ch, err := r.in.ReadByte(); err != nil || ch != '>' {
		return card, ErrCardData
	}

	length, err := r.number(10)
	if err != nil {
		return card, ErrCardData
	}
	if length > MaxCardLen {
		return card, ErrCardLen
	}

	card.Words = make([]uint32, length)
	for i := range card.Words {
		word, err := r.number(16)
		if err != nil {
			return card, ErrCardData
		}
		card.Words[i] = uint32(word)
	}
	return card, nil
}

// number reads one whitespace-delimited value in the given base. A 0x
// prefix is accepted either way.
func (r *Reader) number(base int) (uint64, error) {
	var tok []byte
	for {
		ch, err := r.in.ReadByte()
		if err != nil {
			if len(tok) > 0 {
				break
			}
			return 0, err
		}
		if ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' {
			if len(tok) > 0 {
				break
			}
			continue
		}
		tok = append(tok, ch)
	}
	s := string(tok)
	if len(s) > 2 && (s[0:2] == "0x" || s[0:2] == "0X") {
		s = s[2:]
		base = 16
	}
	v, err := strconv.ParseUint(s, base, 32)
	if err != nil {
		return 0, err
	}
	return v, nil
}

// Write punches one card onto the output stream, eight words per line.
func Write(out io.Writer, card Card) error {
	if len(card.Words) > MaxCardLen {
		return ErrCardLen
	}
	if _, err := fmt.Fprintf(out, "<%c> %d\n", card.Type, len(card.Words)); err != nil {
		return err
	}
	for i, word := range card.Words {
		sep := " "
		if i == len(card.Words)-1 || i%8 == 7 {
			sep = "\n"
		}
		if _, err := fmt.Fprintf(out, "%#x%s", word, sep); err != nil {
			return err
		}
	}
	return nil
}

// WriteCode punches a code card: load address first, then the data words.
func WriteCode(out io.Writer, addr uint32, words []uint32) error {
	card := Card{Type: TypeCode, Words: make([]uint32, 0, len(words)+1)}
	card.Words = append(card.Words, addr)
	card.Words = append(card.Words, words...)
	return Write(out, card)
}

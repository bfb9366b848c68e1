// Package bof reads Binary Object Files: the loadable artifact produced
// by the assembler for the word-addressed virtual machine. A BOF is a
// fixed header followed by a stream of 32-bit instruction words and a
// stream of 32-bit data words, all big-endian.
package bof

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Magic is the 4-byte tag every BOF must start with.
const Magic = "BO32"

// Header is the fixed-size preamble of a BOF: addresses and lengths are
// all word units, not byte counts (see the historical note in the
// format's design notes about an earlier byte-counted revision).
type Header struct {
	TextStart   uint32
	TextLength  uint32
	DataStart   uint32
	DataLength  uint32
	StackBottom uint32
}

// File is an opened BOF ready for its header and payload to be read in
// sequence. It does not buffer the whole file; Instructions and Data
// stream directly off the reader.
type File struct {
	r    io.Reader
	Name string
}

// Open wraps r as a BOF file named name (used only in error messages).
func Open(r io.Reader, name string) *File {
	return &File{r: r, Name: name}
}

// ReadHeader reads the magic and the five header fields. It validates
// only the magic; the field values are returned unchecked.
func (f *File) ReadHeader() (Header, error) {
	var magic [4]byte
	if _, err := io.ReadFull(f.r, magic[:]); err != nil {
		return Header{}, fmt.Errorf("%s: truncated BOF header: %w", f.Name, err)
	}
	if string(magic[:]) != Magic {
		return Header{}, fmt.Errorf("%s: bad magic %q, want %q", f.Name, magic[:], Magic)
	}

	fields := make([]uint32, 5)
	for i := range fields {
		v, err := f.readWord()
		if err != nil {
			return Header{}, fmt.Errorf("%s: truncated BOF header: %w", f.Name, err)
		}
		fields[i] = v
	}

	h := Header{
		TextStart:   fields[0],
		TextLength:  fields[1],
		DataStart:   fields[2],
		DataLength:  fields[3],
		StackBottom: fields[4],
	}
	return h, nil
}

// Instructions reads exactly count raw 32-bit instruction words.
func (f *File) Instructions(count uint32) ([]uint32, error) {
	return f.readWords(count, "instruction")
}

// Data reads exactly count raw 32-bit data words.
func (f *File) Data(count uint32) ([]uint32, error) {
	return f.readWords(count, "data")
}

func (f *File) readWords(count uint32, what string) ([]uint32, error) {
	out := make([]uint32, count)
	for i := range out {
		v, err := f.readWord()
		if err != nil {
			return nil, fmt.Errorf("%s: truncated %s payload at word %d: %w", f.Name, what, i, err)
		}
		out[i] = v
	}
	return out, nil
}

func (f *File) readWord() (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(f.r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

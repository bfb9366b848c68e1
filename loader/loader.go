// Package loader consumes a BOF header and payload and populates a
// fresh machine.Machine: program counter, global-data base, stack
// pointers, and the instruction/data regions of memory.
package loader

import (
	"fmt"
	"io"

	"github.com/coursevm/mvm/bof"
	"github.com/coursevm/mvm/machine"
)

// Load reads a complete BOF from r once and returns both its header and
// a populated Machine ready to fetch its first instruction (or be
// handed to the listing printer without ever being run). Listing mode
// and execute mode both call this single entry point rather than
// opening the file twice.
func Load(r io.Reader, name string) (*machine.Machine, bof.Header, error) {
	f := bof.Open(r, name)

	header, err := f.ReadHeader()
	if err != nil {
		return nil, bof.Header{}, &machine.FatalError{Category: machine.BOFError, Message: err.Error()}
	}

	if err := checkHeader(header); err != nil {
		return nil, bof.Header{}, err
	}

	instrs, err := f.Instructions(header.TextLength)
	if err != nil {
		return nil, bof.Header{}, &machine.FatalError{Category: machine.BOFError, Message: err.Error()}
	}

	data, err := f.Data(header.DataLength)
	if err != nil {
		return nil, bof.Header{}, &machine.FatalError{Category: machine.BOFError, Message: err.Error()}
	}

	m := machine.New()
	for i, word := range instrs {
		m.Memory.SetUWord(uint32(i), word)
	}
	for i, word := range data {
		m.Memory.SetUWord(header.DataStart+uint32(i), word)
	}

	m.PC = header.TextStart
	m.GPR[machine.GP] = int32(header.DataStart)
	m.GPR[machine.SP] = int32(header.StackBottom)
	m.GPR[machine.FP] = int32(header.StackBottom)
	m.HI = 0
	m.LO = 0

	return m, header, nil
}

func checkHeader(h bof.Header) error {
	if h.TextStart >= machine.MemorySize {
		return bofErr("text start address %d is outside [0, %d)", h.TextStart, machine.MemorySize)
	}
	if h.DataStart >= machine.MemorySize {
		return bofErr("data start address %d is outside [0, %d)", h.DataStart, machine.MemorySize)
	}
	if h.StackBottom >= machine.MemorySize {
		return bofErr("stack bottom address %d is outside [0, %d)", h.StackBottom, machine.MemorySize)
	}
	textEnd := h.TextStart + h.TextLength
	dataEnd := h.DataStart + h.DataLength
	if textEnd > machine.MemorySize {
		return bofErr("text region [%d, %d) runs past MEMORY_SIZE (%d)", h.TextStart, textEnd, machine.MemorySize)
	}
	if dataEnd > machine.MemorySize {
		return bofErr("data region [%d, %d) runs past MEMORY_SIZE (%d)", h.DataStart, dataEnd, machine.MemorySize)
	}
	if regionsOverlap(h.TextStart, textEnd, h.DataStart, dataEnd) {
		return bofErr("text region [%d, %d) overlaps data region [%d, %d)", h.TextStart, textEnd, h.DataStart, dataEnd)
	}
	return nil
}

func regionsOverlap(aStart, aEnd, bStart, bEnd uint32) bool {
	return aStart < bEnd && bStart < aEnd
}

func bofErr(format string, args ...any) error {
	return &machine.FatalError{Category: machine.BOFError, Message: fmt.Sprintf(format, args...)}
}

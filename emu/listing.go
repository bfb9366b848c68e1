package emu

import (
	"fmt"
	"io"

	"github.com/coursevm/mvm/disasm"
	"github.com/coursevm/mvm/insts"
	"github.com/coursevm/mvm/machine"
)

// PrintListing writes the listing-mode (-p) output: the disassembly
// table header, one line per instruction in [0, textLength), and the
// compact global-data view. It never executes anything.
func PrintListing(w io.Writer, m *machine.Machine, textLength uint32) error {
	if _, err := fmt.Fprintln(w, disasm.ListingHeader); err != nil {
		return err
	}
	for addr := uint32(0); addr < textLength; addr++ {
		word := m.Memory.Raw(addr)
		in := insts.Decode(word)
		if _, err := fmt.Fprintf(w, "%8d: %s\n", addr, disasm.Format(in)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprint(w, compactView(&m.Memory, uint32(m.GPR[machine.GP]), uint32(m.GPR[machine.SP])))
	return err
}

package emu

import (
	"fmt"
	"io"
	"strings"

	"github.com/coursevm/mvm/disasm"
	"github.com/coursevm/mvm/insts"
	"github.com/coursevm/mvm/machine"
	"github.com/coursevm/mvm/regname"
)

// wrapWidth is the accumulated-character threshold past which a compact
// memory view starts a new line (spec.md §6).
const wrapWidth = 59

// traceIfNeeded writes the trace block for the instruction just executed
// at addr, if tracing is enabled. Diagnostic trace output is kept on
// stderr, separate from the program's own stdout output.
func (x *Executor) traceIfNeeded(addr uint32, in insts.Instruction) {
	if !x.m.Tracing {
		return
	}
	fmt.Fprintf(x.stderr, "==>      %d: %s\n", addr, disasm.Format(in))
	x.writeStateDump()
}

func (x *Executor) writeStateDump() {
	m := x.m

	if m.HI != 0 || m.LO != 0 {
		fmt.Fprintf(x.stderr, "PC: %d\tHI: %d\tLO: %d\n", m.PC, m.HI, m.LO)
	} else {
		fmt.Fprintf(x.stderr, "PC: %d\n", m.PC)
	}

	writeGPRRow(x.stderr, m, 0, 5)
	writeGPRRow(x.stderr, m, 5, 8)

	fmt.Fprint(x.stderr, compactView(&m.Memory, uint32(m.GPR[machine.GP]), uint32(m.GPR[machine.SP])))

	// SP == FP is a legal empty frame (spec.md §8); the frame view
	// prints nothing at all, not even a blank line.
	if sp, fp := m.GPR[machine.SP], m.GPR[machine.FP]; sp != fp {
		fmt.Fprint(x.stderr, compactView(&m.Memory, uint32(sp), uint32(fp)+1))
	}
}

func writeGPRRow(w io.Writer, m *machine.Machine, lo, hi int) {
	var parts []string
	for i := lo; i < hi; i++ {
		parts = append(parts, fmt.Sprintf("GPR[$%s]: %d", regname.Name(uint8(i)), m.GPR[i]))
	}
	fmt.Fprintln(w, strings.Join(parts, "\t"))
}

// compactView renders the word range [start, end) as the trace/listing
// compact format: every nonzero cell prints individually; a maximal run
// of two or more zero cells collapses to one entry plus an ellipsis
// glyph; lines wrap once their accumulated width exceeds wrapWidth.
func compactView(mem *machine.Memory, start, end uint32) string {
	if end <= start {
		return "\n"
	}

	var cells []string
	for i := start; i < end; {
		val := mem.Word(i)
		if val != 0 {
			cells = append(cells, fmt.Sprintf("%8d: %d", i, val))
			i++
			continue
		}
		runStart := i
		for i < end && mem.Word(i) == 0 {
			i++
		}
		if i-runStart == 1 {
			cells = append(cells, fmt.Sprintf("%8d: 0", runStart))
		} else {
			cells = append(cells, fmt.Sprintf("%8d: 0\t%11s", runStart, "..."))
		}
	}

	var out strings.Builder
	lineWidth := 0
	for i, cell := range cells {
		if i > 0 {
			if lineWidth > wrapWidth {
				out.WriteByte('\n')
				lineWidth = 0
			} else {
				out.WriteByte('\t')
				lineWidth++
			}
		}
		out.WriteString(cell)
		lineWidth += len(cell)
	}
	out.WriteByte('\n')
	return out.String()
}

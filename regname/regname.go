// Package regname maps general-purpose register indices to the symbolic
// names used by assembly listings and trace output.
package regname

// names holds the symbolic name for each of the eight general-purpose
// registers, indexed 0..7.
var names = [8]string{
	0: "gp",
	1: "sp",
	2: "fp",
	3: "r3",
	4: "r4",
	5: "r5",
	6: "r6",
	7: "ra",
}

// Name returns the symbolic name for register index reg, e.g. "sp" for
// index 1. Indices outside 0..7 return "?".
func Name(reg uint8) string {
	if int(reg) >= len(names) {
		return "?"
	}
	return names[reg]
}

// Symbolic aliases for the four registers with a fixed role.
const (
	GP = 0
	SP = 1
	FP = 2
	RA = 7
)

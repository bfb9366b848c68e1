// Package disasm formats a decoded instruction as assembly text, the
// way the listing mode and the live tracer both need it rendered.
package disasm

import (
	"fmt"

	"github.com/coursevm/mvm/insts"
	"github.com/coursevm/mvm/regname"
)

var compMnemonic = map[uint8]string{
	insts.NOP: "NOP", insts.ADD: "ADD", insts.SUB: "SUB", insts.CPW: "CPW",
	insts.AND: "AND", insts.BOR: "BOR", insts.NOR: "NOR", insts.XOR: "XOR",
	insts.LWR: "LWR", insts.SWR: "SWR", insts.SCA: "SCA", insts.LWI: "LWI",
	insts.NEG: "NEG",
}

var otherMnemonic = map[uint8]string{
	insts.LIT: "LIT", insts.ARI: "ARI", insts.SRI: "SRI", insts.MUL: "MUL",
	insts.DIV: "DIV", insts.CFHI: "CFHI", insts.CFLO: "CFLO", insts.SLL: "SLL",
	insts.SRL: "SRL", insts.JMP: "JMP", insts.CSI: "CSI", insts.JREL: "JREL",
}

var sysMnemonic = map[uint8]string{
	insts.SysExit: "EXIT", insts.SysPrintStr: "PSTR", insts.SysPrintChar: "PCH",
	insts.SysReadChar: "RCH", insts.SysStartTracing: "TRON", insts.SysStopTracing: "TROFF",
}

var immMnemonic = map[uint8]string{
	insts.ADDI: "ADDI", insts.ANDI: "ANDI", insts.BORI: "BORI", insts.XORI: "XORI",
	insts.BEQ: "BEQ", insts.BGEZ: "BGEZ", insts.BGTZ: "BGTZ", insts.BLEZ: "BLEZ",
	insts.BLTZ: "BLTZ", insts.BNE: "BNE",
}

var jumpMnemonic = map[uint8]string{
	insts.JMPA: "JMPA", insts.CALL: "CALL", insts.RTN: "RTN",
}

// Format renders a decoded instruction as assembly text, with no
// trailing newline.
func Format(in insts.Instruction) string {
	switch in.Family {
	case insts.FamilyComputational:
		name, ok := compMnemonic[in.Comp.Func]
		if !ok {
			return fmt.Sprintf("<bad computational func %d>", in.Comp.Func)
		}
		return fmt.Sprintf("%s: $%s,%d,$%s,%d", name,
			regname.Name(in.Comp.Rt), in.Comp.Ot, regname.Name(in.Comp.Rs), in.Comp.Os)

	case insts.FamilyOtherComputational:
		name, ok := otherMnemonic[in.Other.Func]
		if !ok {
			return fmt.Sprintf("<bad other-computational func %d>", in.Other.Func)
		}
		switch in.Other.Func {
		case insts.JMP, insts.CSI:
			return fmt.Sprintf("%s: $%s,%d", name, regname.Name(in.Other.Reg), in.Other.Offset)
		case insts.JREL:
			return fmt.Sprintf("%s: %d", name, in.Other.Arg)
		default:
			return fmt.Sprintf("%s: $%s,%d,%d", name, regname.Name(in.Other.Reg), in.Other.Offset, in.Other.Arg)
		}

	case insts.FamilySyscall:
		name, ok := sysMnemonic[in.Sys.Code]
		if !ok {
			return fmt.Sprintf("<bad syscall code %d>", in.Sys.Code)
		}
		return fmt.Sprintf("%s: $%s,%d", name, regname.Name(in.Sys.Reg), in.Sys.Offset)

	case insts.FamilyImmediate:
		name, ok := immMnemonic[in.Imm.Opcode]
		if !ok {
			return fmt.Sprintf("<bad immediate opcode %d>", in.Imm.Opcode)
		}
		return fmt.Sprintf("%s: $%s,%d,%d", name, regname.Name(in.Imm.Reg), in.Imm.Offset, in.Imm.Immed)

	case insts.FamilyJump:
		name, ok := jumpMnemonic[in.Jmp.Opcode]
		if !ok {
			return fmt.Sprintf("<bad jump opcode %d>", in.Jmp.Opcode)
		}
		if name == "RTN" {
			return name + ":"
		}
		return fmt.Sprintf("%s: %d", name, in.Jmp.Addr)

	default:
		return fmt.Sprintf("<error word 0x%08X>", in.Word)
	}
}

// ListingHeader is the column header printed once before the sequence
// of disassembled instructions in listing mode.
const ListingHeader = "Addr  Instruction"

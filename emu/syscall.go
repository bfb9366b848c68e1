package emu

import (
	"bufio"
	"fmt"

	"github.com/coursevm/mvm/insts"
	"github.com/coursevm/mvm/machine"
)

// execSyscall implements the six syscalls (spec.md §4.4). The syscall
// number is carried in the decoded arg field as Sys.Code.
func (x *Executor) execSyscall(thisPC uint32, in insts.Instruction, s insts.Syscall) (StepResult, error) {
	m := x.m

	switch s.Code {
	case insts.SysExit:
		x.traceIfNeeded(thisPC, in)
		return StepResult{Exited: true, ExitCode: s.Offset & 0xFF}, nil

	case insts.SysPrintStr:
		ea, err := effAddr(m.GPR[s.Reg], s.Offset)
		if err != nil {
			return StepResult{}, err
		}
		n, err := x.printStr(ea)
		if err != nil {
			return StepResult{}, runtimeErrf("print_str: %v", err)
		}
		m.Memory.SetWord(uint32(m.GPR[machine.SP]), int32(n))

	case insts.SysPrintChar:
		ea, err := effAddr(m.GPR[s.Reg], s.Offset)
		if err != nil {
			return StepResult{}, err
		}
		ch := byte(m.Memory.Word(ea))
		if _, err := x.stdout.Write([]byte{ch}); err != nil {
			return StepResult{}, runtimeErrf("print_char: %v", err)
		}
		m.Memory.SetWord(uint32(m.GPR[machine.SP]), int32(ch))

	case insts.SysReadChar:
		ea, err := effAddr(m.GPR[s.Reg], s.Offset)
		if err != nil {
			return StepResult{}, err
		}
		ch, err := x.readByte()
		if err != nil {
			m.Memory.SetWord(ea, -1)
		} else {
			m.Memory.SetWord(ea, int32(ch))
		}

	case insts.SysStartTracing:
		m.Tracing = true

	case insts.SysStopTracing:
		x.traceIfNeeded(thisPC, in)
		m.Tracing = false

	default:
		return StepResult{}, decodeErrf("syscall code (%d) is invalid", s.Code)
	}

	if s.Code != insts.SysExit && s.Code != insts.SysStopTracing {
		x.traceIfNeeded(thisPC, in)
	}
	return StepResult{}, nil
}

// printStr writes the NUL-terminated string starting at word address
// addr to stdout, one character per memory word: only the low byte of
// each cell is printed, and its upper three bytes are never read as
// further characters. It returns the number of bytes written.
func (x *Executor) printStr(addr uint32) (int, error) {
	w := bufio.NewWriter(x.stdout)
	n := 0
	for {
		checked, err := boundsCheck(addr)
		if err != nil {
			return n, err
		}
		ch := byte(x.m.Memory.Word(checked))
		if ch == 0 {
			break
		}
		if err := w.WriteByte(ch); err != nil {
			return n, err
		}
		n++
		addr++
	}
	if err := w.Flush(); err != nil {
		return n, err
	}
	return n, nil
}

func (x *Executor) readByte() (byte, error) {
	buf := make([]byte, 1)
	n, err := x.stdin.Read(buf)
	if n == 1 {
		return buf[0], nil
	}
	if err == nil {
		err = fmt.Errorf("no data read")
	}
	return 0, err
}

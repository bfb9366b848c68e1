// Package emu implements the fetch-execute cycle: invariant checking,
// instruction dispatch, the syscall layer, and the tracer/printer.
package emu

import (
	"fmt"
	"io"
	"os"

	"github.com/coursevm/mvm/insts"
	"github.com/coursevm/mvm/machine"
)

// StepResult reports what happened during one call to Executor.Step.
type StepResult struct {
	// Exited is true once the exit syscall has run.
	Exited bool
	// ExitCode is meaningful only when Exited is true.
	ExitCode int32
}

// Executor owns a Machine and runs its fetch-execute cycle.
type Executor struct {
	m *machine.Machine

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// Option configures an Executor.
type Option func(*Executor)

// WithStdin sets the reader used by the read_char syscall.
func WithStdin(r io.Reader) Option {
	return func(x *Executor) { x.stdin = r }
}

// WithStdout sets the writer used by print_str and print_char.
func WithStdout(w io.Writer) Option {
	return func(x *Executor) { x.stdout = w }
}

// WithStderr sets the writer the tracer writes its trace blocks to.
func WithStderr(w io.Writer) Option {
	return func(x *Executor) { x.stderr = w }
}

// NewExecutor returns an Executor over m, defaulting I/O to the process
// standard streams.
func NewExecutor(m *machine.Machine, opts ...Option) *Executor {
	x := &Executor{
		m:      m,
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Machine returns the underlying machine state.
func (x *Executor) Machine() *machine.Machine {
	return x.m
}

// Run executes instructions until the exit syscall or a fatal error.
// The returned int is the process exit code.
func (x *Executor) Run() (int, error) {
	for {
		result, err := x.Step()
		if err != nil {
			return 1, err
		}
		if result.Exited {
			return int(result.ExitCode), nil
		}
	}
}

// Step checks invariants, fetches, and executes exactly one instruction,
// then traces it if tracing is enabled.
func (x *Executor) Step() (StepResult, error) {
	m := x.m

	if err := m.CheckInvariants(); err != nil {
		return StepResult{}, err
	}

	word := m.Memory.Raw(m.PC)
	thisPC := m.PC
	m.PC++

	in := insts.Decode(word)

	switch in.Family {
	case insts.FamilyComputational:
		if err := x.execComputational(in.Comp); err != nil {
			return StepResult{}, err
		}
		x.traceIfNeeded(thisPC, in)
		return StepResult{}, nil

	case insts.FamilyOtherComputational:
		if err := x.execOtherComputational(in.Other); err != nil {
			return StepResult{}, err
		}
		x.traceIfNeeded(thisPC, in)
		return StepResult{}, nil

	case insts.FamilyImmediate:
		if err := x.execImmediate(in.Imm); err != nil {
			return StepResult{}, err
		}
		x.traceIfNeeded(thisPC, in)
		return StepResult{}, nil

	case insts.FamilyJump:
		if err := x.execJump(in.Jmp); err != nil {
			return StepResult{}, err
		}
		x.traceIfNeeded(thisPC, in)
		return StepResult{}, nil

	case insts.FamilySyscall:
		result, err := x.execSyscall(thisPC, in, in.Sys)
		return result, err

	default:
		return StepResult{}, decodeErrf("opcode (%d) is invalid", word>>26)
	}
}

func (x *Executor) execComputational(c insts.Computational) error {
	m := x.m
	spA := uint32(m.GPR[machine.SP])

	// ta/sa are computed only by the cases that actually dereference
	// them — an instruction whose unused bits happen to form an
	// out-of-range address must not fault if it never touches memory
	// through that address (NOP, for instance, uses neither).
	switch c.Func {
	case insts.NOP:
		// no change

	case insts.ADD:
		ta, err := effAddr(m.GPR[c.Rt], c.Ot)
		if err != nil {
			return err
		}
		sa, err := effAddr(m.GPR[c.Rs], c.Os)
		if err != nil {
			return err
		}
		m.Memory.SetWord(ta, m.Memory.Word(spA)+m.Memory.Word(sa))

	case insts.SUB:
		ta, err := effAddr(m.GPR[c.Rt], c.Ot)
		if err != nil {
			return err
		}
		sa, err := effAddr(m.GPR[c.Rs], c.Os)
		if err != nil {
			return err
		}
		m.Memory.SetWord(ta, m.Memory.Word(spA)-m.Memory.Word(sa))

	case insts.CPW:
		ta, err := effAddr(m.GPR[c.Rt], c.Ot)
		if err != nil {
			return err
		}
		sa, err := effAddr(m.GPR[c.Rs], c.Os)
		if err != nil {
			return err
		}
		m.Memory.SetWord(ta, m.Memory.Word(sa))

	case insts.AND:
		ta, err := effAddr(m.GPR[c.Rt], c.Ot)
		if err != nil {
			return err
		}
		sa, err := effAddr(m.GPR[c.Rs], c.Os)
		if err != nil {
			return err
		}
		m.Memory.SetUWord(ta, m.Memory.UWord(spA)&m.Memory.UWord(sa))

	case insts.BOR:
		ta, err := effAddr(m.GPR[c.Rt], c.Ot)
		if err != nil {
			return err
		}
		sa, err := effAddr(m.GPR[c.Rs], c.Os)
		if err != nil {
			return err
		}
		m.Memory.SetUWord(ta, m.Memory.UWord(spA)|m.Memory.UWord(sa))

	case insts.NOR:
		ta, err := effAddr(m.GPR[c.Rt], c.Ot)
		if err != nil {
			return err
		}
		sa, err := effAddr(m.GPR[c.Rs], c.Os)
		if err != nil {
			return err
		}
		m.Memory.SetUWord(ta, ^(m.Memory.UWord(spA) | m.Memory.UWord(sa)))

	case insts.XOR:
		ta, err := effAddr(m.GPR[c.Rt], c.Ot)
		if err != nil {
			return err
		}
		sa, err := effAddr(m.GPR[c.Rs], c.Os)
		if err != nil {
			return err
		}
		m.Memory.SetUWord(ta, m.Memory.UWord(spA)^m.Memory.UWord(sa))

	case insts.LWR:
		sa, err := effAddr(m.GPR[c.Rs], c.Os)
		if err != nil {
			return err
		}
		m.GPR[c.Rt] = m.Memory.Word(sa)

	case insts.SWR:
		ta, err := effAddr(m.GPR[c.Rt], c.Ot)
		if err != nil {
			return err
		}
		m.Memory.SetWord(ta, m.GPR[c.Rs])

	case insts.SCA:
		ta, err := effAddr(m.GPR[c.Rt], c.Ot)
		if err != nil {
			return err
		}
		m.Memory.SetWord(ta, m.GPR[c.Rs]+insts.FormOffset(c.Os))

	case insts.LWI:
		sa, err := effAddr(m.GPR[c.Rs], c.Os)
		if err != nil {
			return err
		}
		ta, err := effAddr(m.GPR[c.Rt], c.Ot)
		if err != nil {
			return err
		}
		inner, err := boundsCheck(uint32(m.Memory.Word(sa)))
		if err != nil {
			return err
		}
		m.Memory.SetWord(ta, m.Memory.Word(inner))

	case insts.NEG:
		ta, err := effAddr(m.GPR[c.Rt], c.Ot)
		if err != nil {
			return err
		}
		sa, err := effAddr(m.GPR[c.Rs], c.Os)
		if err != nil {
			return err
		}
		m.Memory.SetWord(ta, -m.Memory.Word(sa))

	default:
		return decodeErrf("computational function code (%d) is invalid", c.Func)
	}
	return nil
}

func (x *Executor) execOtherComputational(o insts.OtherComputational) error {
	m := x.m
	spA := uint32(m.GPR[machine.SP])

	// As in execComputational, ea is computed only where the case
	// dereferences it — ARI, SRI, and JREL operate purely on registers
	// and PC and must not fault on an unrelated out-of-range address.
	switch o.Func {
	case insts.LIT:
		ea, err := effAddr(m.GPR[o.Reg], o.Offset)
		if err != nil {
			return err
		}
		m.Memory.SetWord(ea, o.Arg)

	case insts.ARI:
		m.GPR[o.Reg] += o.Arg

	case insts.SRI:
		m.GPR[o.Reg] -= o.Arg

	case insts.MUL:
		ea, err := effAddr(m.GPR[o.Reg], o.Offset)
		if err != nil {
			return err
		}
		product := int64(m.Memory.Word(spA)) * int64(m.Memory.Word(ea))
		m.LO = int32(uint32(product))
		m.HI = int32(uint32(product >> 32))

	case insts.DIV:
		ea, err := effAddr(m.GPR[o.Reg], o.Offset)
		if err != nil {
			return err
		}
		divisor := m.Memory.Word(ea)
		if divisor == 0 {
			return runtimeErrf("Division by 0 encountered")
		}
		m.LO = m.Memory.Word(spA) / divisor
		m.HI = m.Memory.Word(spA) % divisor

	case insts.CFHI:
		ea, err := effAddr(m.GPR[o.Reg], o.Offset)
		if err != nil {
			return err
		}
		m.Memory.SetWord(ea, m.HI)

	case insts.CFLO:
		ea, err := effAddr(m.GPR[o.Reg], o.Offset)
		if err != nil {
			return err
		}
		m.Memory.SetWord(ea, m.LO)

	case insts.SLL:
		ea, err := effAddr(m.GPR[o.Reg], o.Offset)
		if err != nil {
			return err
		}
		shift, err := shiftAmount(o.Arg)
		if err != nil {
			return err
		}
		m.Memory.SetUWord(ea, m.Memory.UWord(spA)<<shift)

	case insts.SRL:
		ea, err := effAddr(m.GPR[o.Reg], o.Offset)
		if err != nil {
			return err
		}
		shift, err := shiftAmount(o.Arg)
		if err != nil {
			return err
		}
		m.Memory.SetUWord(ea, m.Memory.UWord(spA)>>shift)

	case insts.JMP:
		ea, err := effAddr(m.GPR[o.Reg], o.Offset)
		if err != nil {
			return err
		}
		m.PC = m.Memory.UWord(ea)

	case insts.CSI:
		ea, err := effAddr(m.GPR[o.Reg], o.Offset)
		if err != nil {
			return err
		}
		m.GPR[machine.RA] = int32(m.PC)
		m.PC = m.Memory.UWord(ea)

	case insts.JREL:
		m.PC = uint32(int32(m.PC-1) + insts.FormOffset(o.Arg))

	default:
		return decodeErrf("other computational function code (%d) is invalid", o.Func)
	}
	return nil
}

func (x *Executor) execImmediate(im insts.Immediate) error {
	m := x.m
	ea, err := effAddr(m.GPR[im.Reg], im.Offset)
	if err != nil {
		return err
	}
	spA := uint32(m.GPR[machine.SP])
	target := uint32(int32(m.PC-1) + insts.FormOffset(im.Immed))

	branch := func(cond bool) {
		if cond {
			m.PC = target
		}
	}

	switch im.Opcode {
	case insts.ADDI:
		m.Memory.SetWord(ea, m.Memory.Word(ea)+im.Immed)

	case insts.ANDI:
		m.Memory.SetUWord(ea, m.Memory.UWord(ea)&uint32(uint16(im.Immed)))

	case insts.BORI:
		m.Memory.SetUWord(ea, m.Memory.UWord(ea)|uint32(uint16(im.Immed)))

	case insts.XORI:
		m.Memory.SetUWord(ea, m.Memory.UWord(ea)^uint32(uint16(im.Immed)))

	case insts.BEQ:
		branch(m.Memory.Word(spA) == m.Memory.Word(ea))

	case insts.BGEZ:
		branch(m.Memory.Word(ea) >= 0)

	case insts.BGTZ:
		branch(m.Memory.Word(ea) > 0)

	case insts.BLEZ:
		branch(m.Memory.Word(ea) <= 0)

	case insts.BLTZ:
		branch(m.Memory.Word(ea) < 0)

	case insts.BNE:
		branch(m.Memory.Word(spA) != m.Memory.Word(ea))

	default:
		return decodeErrf("immediate instruction opcode (%d) is invalid", im.Opcode)
	}
	return nil
}

func (x *Executor) execJump(j insts.Jump) error {
	m := x.m
	switch j.Opcode {
	case insts.JMPA:
		m.PC = insts.FormAddress(m.PC-1, j.Addr)

	case insts.CALL:
		m.GPR[machine.RA] = int32(m.PC)
		m.PC = insts.FormAddress(m.PC-1, j.Addr)

	case insts.RTN:
		m.PC = uint32(m.GPR[machine.RA])

	default:
		return decodeErrf("jump instruction opcode (%d) is invalid", j.Opcode)
	}
	return nil
}

func effAddr(base int32, offset int32) (uint32, error) {
	return boundsCheck(uint32(base + insts.FormOffset(offset)))
}

func boundsCheck(addr uint32) (uint32, error) {
	if addr >= machine.MemorySize {
		return 0, runtimeErrf("effective address %d is outside [0, %d)", addr, machine.MemorySize)
	}
	return addr, nil
}

func shiftAmount(arg int32) (uint32, error) {
	if arg < 0 || arg > 31 {
		return 0, decodeErrf("shift amount (%d) is outside [0, 31]", arg)
	}
	return uint32(arg), nil
}

func decodeErrf(format string, args ...any) *machine.FatalError {
	return &machine.FatalError{Category: machine.DecodeError, Message: fmt.Sprintf(format, args...)}
}

func runtimeErrf(format string, args ...any) *machine.FatalError {
	return &machine.FatalError{Category: machine.RuntimeError, Message: fmt.Sprintf(format, args...)}
}

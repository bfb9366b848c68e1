package emu_test

import (
	"bytes"
	"encoding/binary"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/coursevm/mvm/bof"
	"github.com/coursevm/mvm/emu"
	"github.com/coursevm/mvm/insts"
	"github.com/coursevm/mvm/loader"
	"github.com/coursevm/mvm/machine"
)

func putWord(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func buildBOF(textStart, dataStart, stackBottom uint32, instrs, data []uint32) *bytes.Buffer {
	buf := new(bytes.Buffer)
	buf.WriteString(bof.Magic)
	putWord(buf, textStart)
	putWord(buf, uint32(len(instrs)))
	putWord(buf, dataStart)
	putWord(buf, uint32(len(data)))
	putWord(buf, stackBottom)
	for _, w := range instrs {
		putWord(buf, w)
	}
	for _, w := range data {
		putWord(buf, w)
	}
	return buf
}

var _ = Describe("Hello-exit scenario", func() {
	It("prints H and exits 0", func() {
		instrs := []uint32{
			insts.EncodeOtherComputational(machine.SP, 0, 'H', insts.LIT),
			insts.EncodeOtherComputational(machine.SP, 1, 0, insts.LIT),
			insts.EncodeSyscall(machine.SP, 0, insts.SysPrintStr),
			insts.EncodeSyscall(0, 0, insts.SysExit),
		}
		r := buildBOF(0, 10, 100, instrs, nil)
		m, _, err := loader.Load(r, "hello.bof")
		Expect(err).NotTo(HaveOccurred())

		var stdout, stderr bytes.Buffer
		x := emu.NewExecutor(m, emu.WithStdout(&stdout), emu.WithStderr(&stderr))
		code, err := x.Run()
		Expect(err).NotTo(HaveOccurred())
		Expect(code).To(Equal(0))
		Expect(stdout.String()).To(Equal("H"))
		Expect(m.Memory.Word(uint32(m.GPR[machine.SP]))).To(Equal(int32(1)))
	})
})

var _ = Describe("Arithmetic scenario", func() {
	It("adds the top of stack to a global cell", func() {
		instrs := []uint32{
			insts.EncodeOtherComputational(machine.SP, 0, 7, insts.LIT),
			insts.EncodeOtherComputational(machine.GP, 0, 3, insts.LIT),
			insts.EncodeComputational(machine.SP, 0, machine.GP, 0, insts.ADD),
			insts.EncodeSyscall(0, 0, insts.SysExit),
		}
		r := buildBOF(0, 10, 100, instrs, nil)
		m, _, err := loader.Load(r, "arith.bof")
		Expect(err).NotTo(HaveOccurred())

		x := emu.NewExecutor(m, emu.WithStdout(&bytes.Buffer{}), emu.WithStderr(&bytes.Buffer{}))
		_, err = x.Run()
		Expect(err).NotTo(HaveOccurred())
		Expect(m.Memory.Word(uint32(m.GPR[machine.SP]))).To(Equal(int32(10)))
	})
})

var _ = Describe("Exit code truncation", func() {
	It("truncates a sign-extended offset of -1 to exit code 255", func() {
		instrs := []uint32{
			insts.EncodeSyscall(0, -1, insts.SysExit),
		}
		r := buildBOF(0, 10, 100, instrs, nil)
		m, _, err := loader.Load(r, "exit255.bof")
		Expect(err).NotTo(HaveOccurred())

		x := emu.NewExecutor(m, emu.WithStdout(&bytes.Buffer{}), emu.WithStderr(&bytes.Buffer{}))
		code, err := x.Run()
		Expect(err).NotTo(HaveOccurred())
		Expect(code).To(Equal(255))
	})
})

var _ = Describe("Invariant violation at load", func() {
	It("refuses to run when the data region overlaps the stack", func() {
		instrs := []uint32{
			insts.EncodeSyscall(0, 0, insts.SysExit),
		}
		r := buildBOF(0, 100, 100, instrs, nil)
		m, _, err := loader.Load(r, "overlap-stack.bof")
		Expect(err).NotTo(HaveOccurred())

		x := emu.NewExecutor(m, emu.WithStdout(&bytes.Buffer{}), emu.WithStderr(&bytes.Buffer{}))
		_, err = x.Run()
		Expect(err).To(MatchError(ContainSubstring("stack")))
	})
})

var _ = Describe("Listing mode", func() {
	It("produces one line per instruction plus the header and globals, without side effects", func() {
		instrs := []uint32{
			insts.EncodeOtherComputational(machine.SP, 0, 1, insts.LIT),
			insts.EncodeOtherComputational(machine.SP, 0, 2, insts.LIT),
			insts.EncodeSyscall(0, 0, insts.SysExit),
		}
		r := buildBOF(0, 10, 100, instrs, nil)
		m, _, err := loader.Load(r, "listing.bof")
		Expect(err).NotTo(HaveOccurred())

		var out bytes.Buffer
		Expect(emu.PrintListing(&out, m, uint32(len(instrs)))).To(Succeed())

		lines := bytes.Count(out.Bytes(), []byte("\n"))
		// header + 3 instruction lines + 1 globals line
		Expect(lines).To(Equal(5))
		Expect(m.Memory.Word(10)).To(Equal(int32(0)), "listing mode must not execute any instruction")
	})
})

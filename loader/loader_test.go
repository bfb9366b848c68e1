package loader_test

import (
	"bytes"
	"encoding/binary"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/coursevm/mvm/bof"
	"github.com/coursevm/mvm/loader"
	"github.com/coursevm/mvm/machine"
)

func putWord(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func buildBOF(textStart, textLen, dataStart, dataLen, stackBottom uint32, instrs, data []uint32) *bytes.Buffer {
	buf := new(bytes.Buffer)
	buf.WriteString(bof.Magic)
	putWord(buf, textStart)
	putWord(buf, textLen)
	putWord(buf, dataStart)
	putWord(buf, dataLen)
	putWord(buf, stackBottom)
	for _, w := range instrs {
		putWord(buf, w)
	}
	for _, w := range data {
		putWord(buf, w)
	}
	return buf
}

var _ = Describe("Load", func() {
	It("initializes PC, GP, SP, FP, HI, LO from the header", func() {
		r := buildBOF(0, 2, 10, 2, 100, []uint32{0x11111111, 0x22222222}, []uint32{7, 3})
		m, _, err := loader.Load(r, "t.bof")
		Expect(err).NotTo(HaveOccurred())

		Expect(m.PC).To(Equal(uint32(0)))
		Expect(m.GPR[machine.GP]).To(Equal(int32(10)))
		Expect(m.GPR[machine.SP]).To(Equal(int32(100)))
		Expect(m.GPR[machine.FP]).To(Equal(int32(100)))
		Expect(m.HI).To(Equal(int32(0)))
		Expect(m.LO).To(Equal(int32(0)))
	})

	It("loads instructions at [0, text_length) and data at [data_start, data_start+data_length)", func() {
		r := buildBOF(0, 2, 10, 2, 100, []uint32{0x11111111, 0x22222222}, []uint32{7, 3})
		m, _, err := loader.Load(r, "t.bof")
		Expect(err).NotTo(HaveOccurred())

		Expect(m.Memory.Raw(0)).To(Equal(uint32(0x11111111)))
		Expect(m.Memory.Raw(1)).To(Equal(uint32(0x22222222)))
		Expect(m.Memory.UWord(10)).To(Equal(uint32(7)))
		Expect(m.Memory.UWord(11)).To(Equal(uint32(3)))
	})

	It("rejects a truncated file", func() {
		_, _, err := loader.Load(bytes.NewBufferString(bof.Magic), "short.bof")
		Expect(err).To(HaveOccurred())
		var fe *machine.FatalError
		Expect(err).To(BeAssignableToTypeOf(fe))
	})

	It("rejects overlapping text and data regions", func() {
		r := buildBOF(0, 4, 2, 2, 100, []uint32{1, 2, 3, 4}, []uint32{5, 6})
		_, _, err := loader.Load(r, "overlap.bof")
		Expect(err).To(MatchError(ContainSubstring("overlap")))
	})

	It("rejects a stack bottom outside memory bounds", func() {
		r := buildBOF(0, 1, 10, 1, machine.MemorySize, []uint32{1}, []uint32{1})
		_, _, err := loader.Load(r, "oob.bof")
		Expect(err).To(HaveOccurred())
	})
})

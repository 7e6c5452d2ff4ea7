package datapath

import (
	"github.com/averageFOSSenjoyer/rsim-rv32i/bitvec"
	"github.com/averageFOSSenjoyer/rsim-rv32i/wire"
)

// IR is the clocked instruction register (spec §4.7): it latches a 32-bit
// word on load and combinationally decodes the opcode/funct3/funct7/
// register-index fields and the five RV32I immediate formats.
type IR struct {
	CompID wire.ConsumerID

	LoadIn, DataIn *wire.Net

	OpcodeOut, Funct3Out, Funct7Out *wire.Net
	Rs1Out, Rs2Out, RdOut           *wire.Net
	IImmOut, SImmOut, BImmOut       *wire.Net
	UImmOut, JImmOut                *wire.Net

	// TerminationWords are the latched encodings that mark CanEnd true
	// (spec §6): the magic NOP halt marker and the unconditional
	// branch-to-self infinite loop.
	TerminationWords []uint32

	word bitvec.ByteVec
}

func (ir *IR) ID() wire.ConsumerID    { return ir.CompID }
func (ir *IR) IsClocked() bool        { return true }
func (ir *IR) InputNets() []*wire.Net { return []*wire.Net{ir.LoadIn, ir.DataIn} }

// Reset clears the latched word to all-unknown.
func (ir *IR) Reset() {
	ir.word = bitvec.UnknownWord()
}

// OnClock latches DataIn when load is asserted.
func (ir *IR) OnClock() {
	loadByte, known := ir.LoadIn.Read().Byte(0)
	if known && loadByte != 0 {
		ir.word = ir.DataIn.Read()
	}
}

// OnComb decodes the latched word's fields. Field decoding crosses byte
// boundaries (e.g. the B-immediate scatters bits across all four bytes of
// the instruction), so if any byte of the latched word is unknown every
// decoded output is unknown: byte-granularity tri-state tracking (spec §3)
// cannot say which individual bits within a partially-known word are
// actually resolved.
func (ir *IR) OnComb() {
	raw, ok := ir.word.ToUint32()
	if !ok {
		ir.writeUnknown()
		return
	}

	opcode := byte(raw & 0x7F)
	funct3 := byte((raw >> 12) & 0x7)
	funct7 := byte((raw >> 25) & 0x7F)
	rs1 := byte((raw >> 15) & 0x1F)
	rs2 := byte((raw >> 20) & 0x1F)
	rd := byte((raw >> 7) & 0x1F)

	ir.OpcodeOut.Write(bitvec.NewByte(opcode), 0)
	ir.Funct3Out.Write(bitvec.NewByte(funct3), 0)
	ir.Funct7Out.Write(bitvec.NewByte(funct7), 0)
	ir.Rs1Out.Write(bitvec.NewByte(rs1), 0)
	ir.Rs2Out.Write(bitvec.NewByte(rs2), 0)
	ir.RdOut.Write(bitvec.NewByte(rd), 0)

	ir.IImmOut.Write(bitvec.NewWord(iImm(raw)), 0)
	ir.SImmOut.Write(bitvec.NewWord(sImm(raw)), 0)
	ir.BImmOut.Write(bitvec.NewWord(bImm(raw)), 0)
	ir.UImmOut.Write(bitvec.NewWord(uImm(raw)), 0)
	ir.JImmOut.Write(bitvec.NewWord(jImm(raw)), 0)
}

func (ir *IR) writeUnknown() {
	for _, n := range []*wire.Net{ir.OpcodeOut, ir.Funct3Out, ir.Funct7Out, ir.Rs1Out, ir.Rs2Out, ir.RdOut} {
		n.Write(bitvec.UnknownByte(), 0)
	}
	for _, n := range []*wire.Net{ir.IImmOut, ir.SImmOut, ir.BImmOut, ir.UImmOut, ir.JImmOut} {
		n.Write(bitvec.UnknownWord(), 0)
	}
}

// Latched returns the raw latched instruction word, for snapshot purposes.
func (ir *IR) Latched() bitvec.ByteVec { return ir.word }

// CanEnd reports whether the latched instruction word is one of the
// configured termination encodings (spec §6). An unknown word never
// matches.
func (ir *IR) CanEnd() bool {
	raw, ok := ir.word.ToUint32()
	if !ok {
		return false
	}
	for _, w := range ir.TerminationWords {
		if raw == w {
			return true
		}
	}
	return false
}

func signExtend(v uint32, bits uint) uint32 {
	shift := 32 - bits
	return uint32(int32(v<<shift) >> shift)
}

func iImm(raw uint32) uint32 {
	return signExtend(raw>>20, 12)
}

func sImm(raw uint32) uint32 {
	v := ((raw >> 25) << 5) | ((raw >> 7) & 0x1F)
	return signExtend(v, 12)
}

func bImm(raw uint32) uint32 {
	v := ((raw >> 31 & 0x1) << 12) |
		((raw >> 7 & 0x1) << 11) |
		((raw >> 25 & 0x3F) << 5) |
		((raw >> 8 & 0xF) << 1)
	return signExtend(v, 13)
}

func uImm(raw uint32) uint32 {
	return raw & 0xFFFFF000
}

func jImm(raw uint32) uint32 {
	v := ((raw >> 31 & 0x1) << 20) |
		((raw >> 12 & 0xFF) << 12) |
		((raw >> 20 & 0x1) << 11) |
		((raw >> 21 & 0x3FF) << 1)
	return signExtend(v, 21)
}

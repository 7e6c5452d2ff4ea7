package datapath

import (
	"github.com/averageFOSSenjoyer/rsim-rv32i/bitvec"
	"github.com/averageFOSSenjoyer/rsim-rv32i/wire"
)

// Each mux below is a purely combinational selector (spec §4.6). Select
// values arrive on a dedicated Byte net driven by the control FSM; an
// unknown or out-of-range selector yields an all-unknown Word output,
// matching the "unrecognised encoding" error kind in spec §7 (no panic, no
// trap — just unknown downstream).

// PC mux selector values.
const (
	PCSelPCPlus4 byte = iota
	PCSelAluOut
	PCSelJalrTarget // ALU-out AND 0xFFFFFFFE
)

// PCMux chooses the next value latched into PC.
type PCMux struct {
	CompID wire.ConsumerID

	SelIn, PCPlus4In, AluOutIn *wire.Net
	Out                        *wire.Net
}

func (m *PCMux) ID() wire.ConsumerID { return m.CompID }
func (m *PCMux) IsClocked() bool     { return false }
func (m *PCMux) Reset()              {}
func (m *PCMux) OnClock()            {}
func (m *PCMux) InputNets() []*wire.Net {
	return []*wire.Net{m.SelIn, m.PCPlus4In, m.AluOutIn}
}

func (m *PCMux) OnComb() {
	sel, known := m.SelIn.Read().Byte(0)
	if !known {
		m.Out.Write(bitvec.UnknownWord(), 0)
		return
	}
	switch sel {
	case PCSelPCPlus4:
		m.Out.Write(m.PCPlus4In.Read(), 0)
	case PCSelAluOut:
		m.Out.Write(m.AluOutIn.Read(), 0)
	case PCSelJalrTarget:
		m.Out.Write(m.AluOutIn.Read().And(bitvec.NewWord(0xFFFFFFFE)), 0)
	default:
		m.Out.Write(bitvec.UnknownWord(), 0)
	}
}

// Memory-address mux selector values.
const (
	MemAddrSelPC byte = iota
	MemAddrSelAlu
)

// MemAddrMux chooses whether the memory controller sees PC or ALU-out as
// the effective address (fetch vs. load/store).
type MemAddrMux struct {
	CompID wire.ConsumerID

	SelIn, PCIn, AluOutIn *wire.Net
	Out                   *wire.Net
}

func (m *MemAddrMux) ID() wire.ConsumerID    { return m.CompID }
func (m *MemAddrMux) IsClocked() bool        { return false }
func (m *MemAddrMux) Reset()                 {}
func (m *MemAddrMux) OnClock()               {}
func (m *MemAddrMux) InputNets() []*wire.Net { return []*wire.Net{m.SelIn, m.PCIn, m.AluOutIn} }

func (m *MemAddrMux) OnComb() {
	sel, known := m.SelIn.Read().Byte(0)
	if !known {
		m.Out.Write(bitvec.UnknownWord(), 0)
		return
	}
	switch sel {
	case MemAddrSelPC:
		m.Out.Write(m.PCIn.Read(), 0)
	case MemAddrSelAlu:
		m.Out.Write(m.AluOutIn.Read(), 0)
	default:
		m.Out.Write(bitvec.UnknownWord(), 0)
	}
}

// CMP mux selector values.
const (
	CmpMuxSelRs2 byte = iota
	CmpMuxSelIImm
)

// CmpMux selects the comparator's second operand.
type CmpMux struct {
	CompID wire.ConsumerID

	SelIn, Rs2In, IImmIn *wire.Net
	Out                  *wire.Net
}

func (m *CmpMux) ID() wire.ConsumerID    { return m.CompID }
func (m *CmpMux) IsClocked() bool        { return false }
func (m *CmpMux) Reset()                 {}
func (m *CmpMux) OnClock()               {}
func (m *CmpMux) InputNets() []*wire.Net { return []*wire.Net{m.SelIn, m.Rs2In, m.IImmIn} }

func (m *CmpMux) OnComb() {
	sel, known := m.SelIn.Read().Byte(0)
	if !known {
		m.Out.Write(bitvec.UnknownWord(), 0)
		return
	}
	switch sel {
	case CmpMuxSelRs2:
		m.Out.Write(m.Rs2In.Read(), 0)
	case CmpMuxSelIImm:
		m.Out.Write(m.IImmIn.Read(), 0)
	default:
		m.Out.Write(bitvec.UnknownWord(), 0)
	}
}

// ALU mux 1 selector values.
const (
	AluMux1SelRs1 byte = iota
	AluMux1SelPC
)

// AluMux1 selects the ALU's first operand.
type AluMux1 struct {
	CompID wire.ConsumerID

	SelIn, Rs1In, PCIn *wire.Net
	Out                *wire.Net
}

func (m *AluMux1) ID() wire.ConsumerID    { return m.CompID }
func (m *AluMux1) IsClocked() bool        { return false }
func (m *AluMux1) Reset()                 {}
func (m *AluMux1) OnClock()               {}
func (m *AluMux1) InputNets() []*wire.Net { return []*wire.Net{m.SelIn, m.Rs1In, m.PCIn} }

func (m *AluMux1) OnComb() {
	sel, known := m.SelIn.Read().Byte(0)
	if !known {
		m.Out.Write(bitvec.UnknownWord(), 0)
		return
	}
	switch sel {
	case AluMux1SelRs1:
		m.Out.Write(m.Rs1In.Read(), 0)
	case AluMux1SelPC:
		m.Out.Write(m.PCIn.Read(), 0)
	default:
		m.Out.Write(bitvec.UnknownWord(), 0)
	}
}

// ALU mux 2 selector values.
const (
	AluMux2SelIImm byte = iota
	AluMux2SelUImm
	AluMux2SelBImm
	AluMux2SelSImm
	AluMux2SelJImm
	AluMux2SelRs2
)

// AluMux2 selects the ALU's second operand from one of the five immediate
// formats or RS2.
type AluMux2 struct {
	CompID wire.ConsumerID

	SelIn                                     *wire.Net
	IImmIn, UImmIn, BImmIn, SImmIn, JImmIn     *wire.Net
	Rs2In                                     *wire.Net
	Out                                        *wire.Net
}

func (m *AluMux2) ID() wire.ConsumerID { return m.CompID }
func (m *AluMux2) IsClocked() bool     { return false }
func (m *AluMux2) Reset()              {}
func (m *AluMux2) OnClock()            {}
func (m *AluMux2) InputNets() []*wire.Net {
	return []*wire.Net{m.SelIn, m.IImmIn, m.UImmIn, m.BImmIn, m.SImmIn, m.JImmIn, m.Rs2In}
}

func (m *AluMux2) OnComb() {
	sel, known := m.SelIn.Read().Byte(0)
	if !known {
		m.Out.Write(bitvec.UnknownWord(), 0)
		return
	}
	switch sel {
	case AluMux2SelIImm:
		m.Out.Write(m.IImmIn.Read(), 0)
	case AluMux2SelUImm:
		m.Out.Write(m.UImmIn.Read(), 0)
	case AluMux2SelBImm:
		m.Out.Write(m.BImmIn.Read(), 0)
	case AluMux2SelSImm:
		m.Out.Write(m.SImmIn.Read(), 0)
	case AluMux2SelJImm:
		m.Out.Write(m.JImmIn.Read(), 0)
	case AluMux2SelRs2:
		m.Out.Write(m.Rs2In.Read(), 0)
	default:
		m.Out.Write(bitvec.UnknownWord(), 0)
	}
}

// Register-file write mux selector values.
const (
	RegWriteSelAlu byte = iota
	RegWriteSelCmp
	RegWriteSelUImm
	RegWriteSelMemWord // raw 32-bit load (LW)
	RegWriteSelLB
	RegWriteSelLBU
	RegWriteSelLH
	RegWriteSelLHU
	RegWriteSelPcPlus4 // link register value for Jal/Jalr
)

// RegWriteMux selects the value latched into the register file on a
// clocked write. Its LB/LBU/LH/LHU inputs extract the appropriate byte
// lane from the raw memory read-data word using the low two bits of the
// effective address, per spec §4.6.
type RegWriteMux struct {
	CompID wire.ConsumerID

	SelIn, AluOutIn, CmpOutIn, UImmIn, MemDataIn, EffAddrIn, PcPlus4In *wire.Net
	Out                                                                *wire.Net
}

func (m *RegWriteMux) ID() wire.ConsumerID { return m.CompID }
func (m *RegWriteMux) IsClocked() bool     { return false }
func (m *RegWriteMux) Reset()              {}
func (m *RegWriteMux) OnClock()            {}
func (m *RegWriteMux) InputNets() []*wire.Net {
	return []*wire.Net{m.SelIn, m.AluOutIn, m.CmpOutIn, m.UImmIn, m.MemDataIn, m.EffAddrIn, m.PcPlus4In}
}

func (m *RegWriteMux) OnComb() {
	sel, known := m.SelIn.Read().Byte(0)
	if !known {
		m.Out.Write(bitvec.UnknownWord(), 0)
		return
	}
	switch sel {
	case RegWriteSelAlu:
		m.Out.Write(m.AluOutIn.Read(), 0)
	case RegWriteSelCmp:
		m.Out.Write(m.CmpOutIn.Read(), 0)
	case RegWriteSelUImm:
		m.Out.Write(m.UImmIn.Read(), 0)
	case RegWriteSelMemWord:
		m.Out.Write(m.MemDataIn.Read(), 0)
	case RegWriteSelLB:
		m.Out.Write(extractByteLane(m.MemDataIn.Read(), m.EffAddrIn.Read(), true), 0)
	case RegWriteSelLBU:
		m.Out.Write(extractByteLane(m.MemDataIn.Read(), m.EffAddrIn.Read(), false), 0)
	case RegWriteSelLH:
		m.Out.Write(extractHalfLane(m.MemDataIn.Read(), m.EffAddrIn.Read(), true), 0)
	case RegWriteSelLHU:
		m.Out.Write(extractHalfLane(m.MemDataIn.Read(), m.EffAddrIn.Read(), false), 0)
	case RegWriteSelPcPlus4:
		m.Out.Write(m.PcPlus4In.Read(), 0)
	default:
		m.Out.Write(bitvec.UnknownWord(), 0)
	}
}

// extractByteLane pulls one byte out of a memory read-data word using the
// low two bits of the effective address as the lane index, sign- or
// zero-extending it to a Word.
func extractByteLane(data, addr bitvec.ByteVec, signExtend bool) bitvec.ByteVec {
	lane, laneKnown := addr.Byte(0)
	if !laneKnown {
		return bitvec.UnknownWord()
	}
	b, bKnown := data.Byte(int(lane & 0x3))
	if !bKnown {
		return bitvec.UnknownWord()
	}
	if signExtend && b&0x80 != 0 {
		return bitvec.NewWord(0xFFFFFF00 | uint32(b))
	}
	return bitvec.NewWord(uint32(b))
}

// extractHalfLane pulls one 16-bit half-word out of a memory read-data
// word using bit 1 of the effective address to choose the low or high
// half, sign- or zero-extending it to a Word.
func extractHalfLane(data, addr bitvec.ByteVec, signExtend bool) bitvec.ByteVec {
	laneSel, laneKnown := addr.Byte(0)
	if !laneKnown {
		return bitvec.UnknownWord()
	}
	base := 0
	if laneSel&0x2 != 0 {
		base = 2
	}
	lo, loKnown := data.Byte(base)
	hi, hiKnown := data.Byte(base + 1)
	if !loKnown || !hiKnown {
		return bitvec.UnknownWord()
	}
	half := uint32(lo) | uint32(hi)<<8
	if signExtend && hi&0x80 != 0 {
		return bitvec.NewWord(0xFFFF0000 | half)
	}
	return bitvec.NewWord(half)
}

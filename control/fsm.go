// Package control implements the micro-architectural control finite state
// machine (spec §4.11): the clocked-with-logic component that sequences
// fetch/decode/execute/memory/writeback by driving every mux selector, the
// ALU/CMP opcodes, the memory controller's enables and byte masks, and the
// register-file write enable.
package control

import (
	"github.com/averageFOSSenjoyer/rsim-rv32i/bitvec"
	"github.com/averageFOSSenjoyer/rsim-rv32i/datapath"
	"github.com/averageFOSSenjoyer/rsim-rv32i/wire"
)

// State is one of the twelve control states named in spec §3. The compact
// FSM shape is authoritative; no separate MAR/MRDR/MWDR latches are needed
// because the memory controller observes the address/data nets directly.
type State byte

const (
	StateFetch State = iota
	StateDecode
	StateImm
	StateReg
	StateLui
	StateAuipc
	StateBr
	StateAddrCalc
	StateLoad
	StateStore
	StateJal
	StateJalr
)

func (s State) String() string {
	switch s {
	case StateFetch:
		return "Fetch"
	case StateDecode:
		return "Decode"
	case StateImm:
		return "Imm"
	case StateReg:
		return "Reg"
	case StateLui:
		return "Lui"
	case StateAuipc:
		return "Auipc"
	case StateBr:
		return "Br"
	case StateAddrCalc:
		return "AddrCalc"
	case StateLoad:
		return "Load"
	case StateStore:
		return "Store"
	case StateJal:
		return "Jal"
	case StateJalr:
		return "Jalr"
	default:
		return "Unknown"
	}
}

// RV32I base opcodes (bits[6:0]) this FSM dispatches on.
const (
	opLoad   byte = 0x03
	opImm    byte = 0x13
	opAuipc  byte = 0x17
	opStore  byte = 0x23
	opReg    byte = 0x33
	opLui    byte = 0x37
	opBranch byte = 0x63
	opJalr   byte = 0x67
	opJal    byte = 0x6F
)

// funct3 encodings shared by the I-type/R-type ALU instructions.
const (
	f3AddSub byte = 0b000
	f3Sll    byte = 0b001
	f3Slt    byte = 0b010
	f3Sltu   byte = 0b011
	f3Xor    byte = 0b100
	f3SrlSra byte = 0b101
	f3Or     byte = 0b110
	f3And    byte = 0b111
)

// funct3 encodings for Load/Store width selection.
const (
	f3Byte     byte = 0b000 // LB / SB
	f3Half     byte = 0b001 // LH / SH
	f3Word     byte = 0b010 // LW / SW
	f3ByteUns  byte = 0b100 // LBU
	f3HalfUns  byte = 0b101 // LHU
)

// Control is the clocked-with-logic FSM. Every load-enable and mask output
// defaults to zero each cycle; per-state logic below overrides a subset.
type Control struct {
	CompID wire.ConsumerID

	// Inputs.
	OpcodeIn, Funct3In, Funct7In *wire.Net
	CmpOutIn                     *wire.Net
	MemRespIn                    *wire.Net
	EffAddrIn                    *wire.Net // mem-addr-mux output, for low-2-bit mask derivation

	// Outputs: mux selectors.
	PcMuxSelOut      *wire.Net
	MemAddrSelOut    *wire.Net
	CmpMuxSelOut     *wire.Net
	AluMux1SelOut    *wire.Net
	AluMux2SelOut    *wire.Net
	RegWriteSelOut   *wire.Net

	// Outputs: opcodes.
	AluOpOut *wire.Net
	CmpOpOut *wire.Net

	// Outputs: enables and masks.
	LoadPcOut     *wire.Net
	LoadIrOut     *wire.Net
	RegWrOut      *wire.Net
	MemReadEnOut  *wire.Net
	MemWriteEnOut *wire.Net
	ReadMaskOut   *wire.Net
	WriteMaskOut  *wire.Net

	state State
}

func (c *Control) ID() wire.ConsumerID { return c.CompID }
func (c *Control) IsClocked() bool     { return true }
func (c *Control) InputNets() []*wire.Net {
	return []*wire.Net{c.OpcodeIn, c.Funct3In, c.Funct7In, c.CmpOutIn, c.MemRespIn, c.EffAddrIn}
}

// Reset returns the FSM to Fetch.
func (c *Control) Reset() {
	c.state = StateFetch
}

// State reports the current control state, for snapshot purposes.
func (c *Control) State() State { return c.state }

type signals struct {
	pcMuxSel, memAddrSel, cmpMuxSel, aluMux1Sel, aluMux2Sel, regWriteSel byte
	aluOp, cmpOp                                                        byte
	loadPc, loadIr, regWr, memReadEn, memWriteEn                        bool
	readMask, writeMask                                                 bitvec.ByteVec
	readMaskKnown, writeMaskKnown                                       bool
}

func defaultSignals() signals {
	return signals{
		readMask:      bitvec.NewByte(0),
		writeMask:     bitvec.NewByte(0),
		readMaskKnown: true,
		writeMaskKnown: true,
	}
}

// OnComb computes this cycle's control outputs from the current state and
// net inputs (spec §4.11's per-state table).
func (c *Control) OnComb() {
	s := defaultSignals()

	opcode, opcodeKnown := c.OpcodeIn.Read().Byte(0)
	funct3, _ := c.Funct3In.Read().Byte(0)
	funct7, _ := c.Funct7In.Read().Byte(0)
	aluAlt := funct7&0x20 != 0 // funct7 bit 30: SUB/SRA vs ADD/SRL

	switch c.state {
	case StateFetch:
		s.memAddrSel = datapath.MemAddrSelPC
		s.readMask = bitvec.NewByte(0x0F)
		s.memReadEn = true
		if c.memResp() {
			s.loadIr = true
		}

	case StateDecode:
		// Pure transition; no signals driven beyond the defaults.

	case StateAddrCalc:
		s.aluMux1Sel = datapath.AluMux1SelRs1
		s.aluOp = byte(datapath.AluAdd)
		if opcodeKnown && opcode == opStore {
			s.aluMux2Sel = datapath.AluMux2SelSImm
		} else {
			s.aluMux2Sel = datapath.AluMux2SelIImm
		}
		s.memAddrSel = datapath.MemAddrSelAlu

	case StateImm, StateReg:
		s.aluMux1Sel = datapath.AluMux1SelRs1
		if c.state == StateImm {
			s.aluMux2Sel = datapath.AluMux2SelIImm
			s.cmpMuxSel = datapath.CmpMuxSelIImm
		} else {
			s.aluMux2Sel = datapath.AluMux2SelRs2
			s.cmpMuxSel = datapath.CmpMuxSelRs2
		}

		switch funct3 {
		case f3Slt:
			s.cmpOp = byte(datapath.CmpLt)
			s.regWriteSel = datapath.RegWriteSelCmp
		case f3Sltu:
			s.cmpOp = byte(datapath.CmpLtu)
			s.regWriteSel = datapath.RegWriteSelCmp
		default:
			s.aluOp = aluOpFor(funct3, c.state == StateReg, aluAlt)
			s.regWriteSel = datapath.RegWriteSelAlu
		}
		s.regWr = true
		s.loadPc = true
		s.pcMuxSel = datapath.PCSelPCPlus4

	case StateLui:
		s.regWriteSel = datapath.RegWriteSelUImm
		s.regWr = true
		s.loadPc = true
		s.pcMuxSel = datapath.PCSelPCPlus4

	case StateAuipc:
		s.aluMux1Sel = datapath.AluMux1SelPC
		s.aluMux2Sel = datapath.AluMux2SelUImm
		s.aluOp = byte(datapath.AluAdd)
		s.regWriteSel = datapath.RegWriteSelAlu
		s.regWr = true
		s.loadPc = true
		s.pcMuxSel = datapath.PCSelPCPlus4

	case StateBr:
		s.aluMux1Sel = datapath.AluMux1SelPC
		s.aluMux2Sel = datapath.AluMux2SelBImm
		s.aluOp = byte(datapath.AluAdd)
		s.cmpMuxSel = datapath.CmpMuxSelRs2
		s.cmpOp = funct3 // branch funct3 encoding matches CmpOp 1:1
		s.loadPc = true
		if c.cmpTaken() {
			s.pcMuxSel = datapath.PCSelAluOut
		} else {
			s.pcMuxSel = datapath.PCSelPCPlus4
		}

	case StateLoad:
		s.aluMux1Sel = datapath.AluMux1SelRs1
		s.aluMux2Sel = datapath.AluMux2SelIImm
		s.aluOp = byte(datapath.AluAdd)
		s.memAddrSel = datapath.MemAddrSelAlu
		s.memReadEn = true
		low2, low2Known := c.effAddrLow2()
		s.readMask, s.readMaskKnown = loadMask(funct3, low2, low2Known)
		if c.memResp() {
			// Drop the enable once the response is seen, so the controller
			// sees it low before the next Fetch and does not report this
			// load's resp/data as the fetch's.
			s.memReadEn = false
			sel, ok := regWriteSelForLoad(funct3)
			if ok {
				s.regWriteSel = sel
				s.regWr = true
			}
			s.loadPc = true
			s.pcMuxSel = datapath.PCSelPCPlus4
		}

	case StateStore:
		s.aluMux1Sel = datapath.AluMux1SelRs1
		s.aluMux2Sel = datapath.AluMux2SelSImm
		s.aluOp = byte(datapath.AluAdd)
		s.memAddrSel = datapath.MemAddrSelAlu
		s.memWriteEn = true
		low2, low2Known := c.effAddrLow2()
		s.writeMask, s.writeMaskKnown = storeMask(funct3, low2, low2Known)
		if c.memResp() {
			s.memWriteEn = false
			s.loadPc = true
			s.pcMuxSel = datapath.PCSelPCPlus4
		}

	case StateJal:
		s.aluMux1Sel = datapath.AluMux1SelPC
		s.aluMux2Sel = datapath.AluMux2SelJImm
		s.aluOp = byte(datapath.AluAdd)
		s.regWriteSel = datapath.RegWriteSelPcPlus4
		s.regWr = true
		s.loadPc = true
		s.pcMuxSel = datapath.PCSelAluOut

	case StateJalr:
		s.aluMux1Sel = datapath.AluMux1SelRs1
		s.aluMux2Sel = datapath.AluMux2SelIImm
		s.aluOp = byte(datapath.AluAdd)
		s.regWriteSel = datapath.RegWriteSelPcPlus4
		s.regWr = true
		s.loadPc = true
		s.pcMuxSel = datapath.PCSelJalrTarget
	}

	c.publish(s)
}

func (c *Control) memResp() bool {
	b, known := c.MemRespIn.Read().Byte(0)
	return known && b != 0
}

func (c *Control) cmpTaken() bool {
	b, known := c.CmpOutIn.Read().Byte(0)
	return known && b != 0
}

func (c *Control) effAddrLow2() (byte, bool) {
	b, known := c.EffAddrIn.Read().Byte(0)
	if !known {
		return 0, false
	}
	return b & 0x3, true
}

func (c *Control) publish(s signals) {
	c.PcMuxSelOut.Write(bitvec.NewByte(s.pcMuxSel), 0)
	c.MemAddrSelOut.Write(bitvec.NewByte(s.memAddrSel), 0)
	c.CmpMuxSelOut.Write(bitvec.NewByte(s.cmpMuxSel), 0)
	c.AluMux1SelOut.Write(bitvec.NewByte(s.aluMux1Sel), 0)
	c.AluMux2SelOut.Write(bitvec.NewByte(s.aluMux2Sel), 0)
	c.RegWriteSelOut.Write(bitvec.NewByte(s.regWriteSel), 0)
	c.AluOpOut.Write(bitvec.NewByte(s.aluOp), 0)
	c.CmpOpOut.Write(bitvec.NewByte(s.cmpOp), 0)
	c.LoadPcOut.Write(boolByte(s.loadPc), 0)
	c.LoadIrOut.Write(boolByte(s.loadIr), 0)
	c.RegWrOut.Write(boolByte(s.regWr), 0)
	c.MemReadEnOut.Write(boolByte(s.memReadEn), 0)
	c.MemWriteEnOut.Write(boolByte(s.memWriteEn), 0)
	if s.readMaskKnown {
		c.ReadMaskOut.Write(s.readMask, 0)
	} else {
		c.ReadMaskOut.Write(bitvec.UnknownByte(), 0)
	}
	if s.writeMaskKnown {
		c.WriteMaskOut.Write(s.writeMask, 0)
	} else {
		c.WriteMaskOut.Write(bitvec.UnknownByte(), 0)
	}
}

func boolByte(b bool) bitvec.ByteVec {
	if b {
		return bitvec.NewByte(1)
	}
	return bitvec.NewByte(0)
}

// OnClock advances the FSM to its next state, per spec §4.11's transition
// column. State is re-derived from the same inputs OnComb just observed,
// since nets have not changed between the two.
func (c *Control) OnClock() {
	opcode, opcodeKnown := c.OpcodeIn.Read().Byte(0)

	switch c.state {
	case StateFetch:
		if c.memResp() {
			c.state = StateDecode
		}
	case StateDecode:
		c.state = nextAfterDecode(opcode, opcodeKnown)
	case StateAddrCalc:
		if opcodeKnown && opcode == opStore {
			c.state = StateStore
		} else {
			c.state = StateLoad
		}
	case StateLoad, StateStore:
		if c.memResp() {
			c.state = StateFetch
		}
	default:
		c.state = StateFetch
	}
}

func nextAfterDecode(opcode byte, known bool) State {
	if !known {
		return StateFetch
	}
	switch opcode {
	case opLui:
		return StateLui
	case opAuipc:
		return StateAuipc
	case opJal:
		return StateJal
	case opJalr:
		return StateJalr
	case opBranch:
		return StateBr
	case opLoad, opStore:
		return StateAddrCalc
	case opImm:
		return StateImm
	case opReg:
		return StateReg
	default:
		return StateFetch
	}
}

func aluOpFor(funct3 byte, isReg, alt bool) byte {
	switch funct3 {
	case f3AddSub:
		if isReg && alt {
			return byte(datapath.AluSub)
		}
		return byte(datapath.AluAdd)
	case f3Sll:
		return byte(datapath.AluSll)
	case f3Xor:
		return byte(datapath.AluXor)
	case f3SrlSra:
		if alt {
			return byte(datapath.AluSra)
		}
		return byte(datapath.AluSrl)
	case f3Or:
		return byte(datapath.AluOr)
	case f3And:
		return byte(datapath.AluAnd)
	default:
		return byte(datapath.AluAdd)
	}
}

// loadMask derives the Load state's read-mask from funct3 and the low two
// bits of the effective address (spec §4.11's mask derivation table). An
// unresolved address or unrecognised funct3 yields an unknown mask.
func loadMask(funct3 byte, low2 byte, low2Known bool) (bitvec.ByteVec, bool) {
	if !low2Known {
		return bitvec.ByteVec{}, false
	}
	switch funct3 {
	case f3Word:
		return bitvec.NewByte(0x0F), true
	case f3Half, f3HalfUns:
		return bitvec.NewByte(0x03 << low2), true
	case f3Byte, f3ByteUns:
		return bitvec.NewByte(0x01 << low2), true
	default:
		return bitvec.ByteVec{}, false
	}
}

// storeMask derives the Store state's write-mask, mirroring loadMask.
func storeMask(funct3 byte, low2 byte, low2Known bool) (bitvec.ByteVec, bool) {
	if !low2Known {
		return bitvec.ByteVec{}, false
	}
	switch funct3 {
	case f3Word:
		return bitvec.NewByte(0x0F), true
	case f3Half:
		return bitvec.NewByte(0x03 << low2), true
	case f3Byte:
		return bitvec.NewByte(0x01 << low2), true
	default:
		return bitvec.ByteVec{}, false
	}
}

// regWriteSelForLoad maps a Load instruction's funct3 to the register-file
// write mux selector that extracts the right byte lane and extension.
func regWriteSelForLoad(funct3 byte) (byte, bool) {
	switch funct3 {
	case f3Byte:
		return datapath.RegWriteSelLB, true
	case f3ByteUns:
		return datapath.RegWriteSelLBU, true
	case f3Half:
		return datapath.RegWriteSelLH, true
	case f3HalfUns:
		return datapath.RegWriteSelLHU, true
	case f3Word:
		return datapath.RegWriteSelMemWord, true
	default:
		return 0, false
	}
}

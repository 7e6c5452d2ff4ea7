// Package datapath implements the combinational and clocked components of
// the RV32I datapath: the ALU, comparator, multiplexers, program counter,
// instruction register, and register file described in spec §4.4-§4.9.
// Every component is a small struct holding its net endpoints, following
// the teacher's convention of one focused unit per file
// (memory_bus.go, registers.go) rather than a single monolithic CPU
// struct.
package datapath

import (
	"github.com/averageFOSSenjoyer/rsim-rv32i/bitvec"
	"github.com/averageFOSSenjoyer/rsim-rv32i/wire"
)

// AluOp enumerates the recognised ALU operation codes (spec §4.4). Any
// other byte value yields an all-unknown result.
type AluOp byte

const (
	AluAdd AluOp = iota
	AluSub
	AluAnd
	AluOr
	AluXor
	AluSll
	AluSrl
	AluSra
)

// ALU is the purely combinational arithmetic/logic unit.
type ALU struct {
	CompID wire.ConsumerID

	AIn, BIn, OpIn *wire.Net
	Out            *wire.Net
}

func (a *ALU) ID() wire.ConsumerID    { return a.CompID }
func (a *ALU) IsClocked() bool        { return false }
func (a *ALU) Reset()                 {}
func (a *ALU) OnClock()               {}
func (a *ALU) InputNets() []*wire.Net { return []*wire.Net{a.AIn, a.BIn, a.OpIn} }

// OnComb recomputes Out from the current A/B/Op net values.
func (a *ALU) OnComb() {
	aVal := a.AIn.Read()
	bVal := a.BIn.Read()
	opByte, opKnown := a.OpIn.Read().Byte(0)

	if !opKnown {
		a.Out.Write(bitvec.UnknownWord(), 0)
		return
	}

	switch AluOp(opByte) {
	case AluAdd:
		a.Out.Write(aVal.Add(bVal), 0)
	case AluSub:
		a.Out.Write(aVal.Sub(bVal), 0)
	case AluAnd:
		a.Out.Write(aVal.And(bVal), 0)
	case AluOr:
		a.Out.Write(aVal.Or(bVal), 0)
	case AluXor:
		a.Out.Write(aVal.Xor(bVal), 0)
	case AluSll:
		a.Out.Write(shiftResult(aVal, bVal, bitvec.ByteVec.Shl), 0)
	case AluSrl:
		a.Out.Write(shiftResult(aVal, bVal, bitvec.ByteVec.Shr), 0)
	case AluSra:
		a.Out.Write(shiftResult(aVal, bVal, bitvec.ByteVec.Sar), 0)
	default:
		a.Out.Write(bitvec.UnknownWord(), 0)
	}
}

// shiftResult applies a shift operation with the shift amount taken from
// the low 5 bits of b (b & 0x1F per spec §4.4). If that low byte is
// unknown the shift amount is unresolved and the result is all-unknown.
func shiftResult(a, b bitvec.ByteVec, shift func(bitvec.ByteVec, uint) bitvec.ByteVec) bitvec.ByteVec {
	lo, known := b.Byte(0)
	if !known {
		return bitvec.UnknownWord()
	}
	return shift(a, uint(lo&0x1F))
}

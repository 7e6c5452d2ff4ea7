package datapath

import (
	"github.com/averageFOSSenjoyer/rsim-rv32i/bitvec"
	"github.com/averageFOSSenjoyer/rsim-rv32i/wire"
)

// CmpOp enumerates the branch-predicate encodings the comparator accepts,
// keyed on the RV32I branch funct3 field (spec §4.5).
type CmpOp byte

const (
	CmpEq  CmpOp = 0b000
	CmpNe  CmpOp = 0b001
	CmpLt  CmpOp = 0b100
	CmpGe  CmpOp = 0b101
	CmpLtu CmpOp = 0b110
	CmpGeu CmpOp = 0b111
)

// CMP is the purely combinational comparator feeding the Br control state
// and the register-file write mux's SLT/SLTU path.
type CMP struct {
	CompID wire.ConsumerID

	AIn, BIn, OpIn *wire.Net
	Out            *wire.Net
}

func (c *CMP) ID() wire.ConsumerID    { return c.CompID }
func (c *CMP) IsClocked() bool        { return false }
func (c *CMP) Reset()                 {}
func (c *CMP) OnClock()               {}
func (c *CMP) InputNets() []*wire.Net { return []*wire.Net{c.AIn, c.BIn, c.OpIn} }

// OnComb evaluates the selected predicate against A and B, per spec §4.5.
// An unrecognised predicate reports false (Word 0). If either operand has
// an unknown byte, every predicate reports false (Word 0), so a branch on
// unresolved data is not taken rather than raising an error, per spec §9.
func (c *CMP) OnComb() {
	a := c.AIn.Read()
	b := c.BIn.Read()
	opByte, opKnown := c.OpIn.Read().Byte(0)
	if !opKnown || !a.IsFullyKnown() || !b.IsFullyKnown() {
		c.Out.Write(bitvec.NewWord(0), 0)
		return
	}

	var taken bool
	switch CmpOp(opByte) {
	case CmpEq:
		taken = a.ByteCmp(b) == bitvec.Equal
	case CmpNe:
		taken = a.ByteCmp(b) != bitvec.Equal
	case CmpLt:
		taken = a.SignedCmp(b) == bitvec.Less
	case CmpGe:
		taken = a.SignedCmp(b) != bitvec.Less
	case CmpLtu:
		taken = a.ByteCmp(b) == bitvec.Less
	case CmpGeu:
		taken = a.ByteCmp(b) != bitvec.Less
	default:
		taken = false
	}

	if taken {
		c.Out.Write(bitvec.NewWord(1), 0)
	} else {
		c.Out.Write(bitvec.NewWord(0), 0)
	}
}

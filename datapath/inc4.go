package datapath

import (
	"github.com/averageFOSSenjoyer/rsim-rv32i/bitvec"
	"github.com/averageFOSSenjoyer/rsim-rv32i/wire"
)

// Inc4 is the purely combinational PC+4 adder. It is kept separate from the
// shared ALU because several states need PC+4 available on the same cycle
// the ALU is busy computing a jump or branch target (e.g. Jal computes
// PC + j_imm on the ALU while the link value written back to rd is PC+4).
type Inc4 struct {
	CompID wire.ConsumerID

	In  *wire.Net
	Out *wire.Net
}

func (i *Inc4) ID() wire.ConsumerID    { return i.CompID }
func (i *Inc4) IsClocked() bool        { return false }
func (i *Inc4) Reset()                 {}
func (i *Inc4) OnClock()               {}
func (i *Inc4) InputNets() []*wire.Net { return []*wire.Net{i.In} }

func (i *Inc4) OnComb() {
	i.Out.Write(i.In.Read().Add(bitvec.NewWord(4)), 0)
}

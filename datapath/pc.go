package datapath

import (
	"github.com/averageFOSSenjoyer/rsim-rv32i/bitvec"
	"github.com/averageFOSSenjoyer/rsim-rv32i/wire"
)

// PC is the clocked program counter register (spec §4.9).
type PC struct {
	CompID     wire.ConsumerID
	ResetValue uint32

	LoadIn, DataIn *wire.Net
	Out            *wire.Net

	value bitvec.ByteVec
}

func (p *PC) ID() wire.ConsumerID     { return p.CompID }
func (p *PC) IsClocked() bool         { return true }
func (p *PC) InputNets() []*wire.Net  { return []*wire.Net{p.LoadIn, p.DataIn} }

// Reset restores PC to the fixed program start.
func (p *PC) Reset() {
	p.value = bitvec.NewWord(p.ResetValue)
}

// OnComb republishes the current value; PC has no combinational inputs of
// its own, only clocked ones.
func (p *PC) OnComb() {
	p.Out.Write(p.value, 0)
}

// OnClock commits the next value when load is asserted; otherwise holds.
func (p *PC) OnClock() {
	loadByte, known := p.LoadIn.Read().Byte(0)
	if known && loadByte != 0 {
		p.value = p.DataIn.Read()
	}
}

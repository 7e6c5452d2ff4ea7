package datapath

import (
	"github.com/averageFOSSenjoyer/rsim-rv32i/bitvec"
	"github.com/averageFOSSenjoyer/rsim-rv32i/wire"
)

// RegFile is the 32-entry clocked register file (spec §4.8). Reads are
// combinational and asynchronous; writes commit on the clock edge.
// Register 0 always reads as zero and silently discards writes.
type RegFile struct {
	CompID wire.ConsumerID

	Rs1IdxIn, Rs2IdxIn       *wire.Net
	RdIdxIn, RdDataIn, RdWrIn *wire.Net

	Rs1DataOut, Rs2DataOut *wire.Net

	regs [32]bitvec.ByteVec
}

func (r *RegFile) ID() wire.ConsumerID { return r.CompID }
func (r *RegFile) IsClocked() bool     { return true }
func (r *RegFile) InputNets() []*wire.Net {
	return []*wire.Net{r.Rs1IdxIn, r.Rs2IdxIn, r.RdIdxIn, r.RdDataIn, r.RdWrIn}
}

// Reset zeroes every register.
func (r *RegFile) Reset() {
	for i := range r.regs {
		r.regs[i] = bitvec.NewWord(0)
	}
}

// OnComb publishes the asynchronous reads for the decoded rs1/rs2 indices.
func (r *RegFile) OnComb() {
	r.Rs1DataOut.Write(r.read(r.Rs1IdxIn), 0)
	r.Rs2DataOut.Write(r.read(r.Rs2IdxIn), 0)
}

func (r *RegFile) read(idxNet *wire.Net) bitvec.ByteVec {
	idx, known := idxNet.Read().Byte(0)
	if !known {
		return bitvec.UnknownWord()
	}
	return r.regs[idx&0x1F]
}

// OnClock commits a write if rd_wr is asserted and rd_idx is resolvable.
// A write to register 0 (or to an unresolved index) is discarded.
func (r *RegFile) OnClock() {
	wrByte, wrKnown := r.RdWrIn.Read().Byte(0)
	if !wrKnown || wrByte == 0 {
		return
	}
	idx, idxKnown := r.RdIdxIn.Read().Byte(0)
	if !idxKnown {
		return
	}
	idx &= 0x1F
	if idx == 0 {
		return
	}
	r.regs[idx] = r.RdDataIn.Read()
}

// Snapshot returns a copy of all 32 register values for external
// observers (spec §4.12's snapshot operation).
func (r *RegFile) Snapshot() [32]uint32 {
	var out [32]uint32
	for i, v := range r.regs {
		u, _ := v.ToUint32()
		out[i] = u
	}
	return out
}

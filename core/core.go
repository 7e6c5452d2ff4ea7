// Package core wires every datapath component and net together into a
// runnable simulator and exposes the driver API described in spec §4.12:
// construct once, then run by cycle, by instruction, to a breakpoint, or to
// completion, observing architectural state through Snapshot.
package core

import (
	"context"
	"log"

	"github.com/averageFOSSenjoyer/rsim-rv32i/config"
	"github.com/averageFOSSenjoyer/rsim-rv32i/control"
	"github.com/averageFOSSenjoyer/rsim-rv32i/datapath"
	"github.com/averageFOSSenjoyer/rsim-rv32i/loader"
	"github.com/averageFOSSenjoyer/rsim-rv32i/memory"
	"github.com/averageFOSSenjoyer/rsim-rv32i/sim"
	"github.com/averageFOSSenjoyer/rsim-rv32i/wire"
)

// TerminationWords are the two encodings spec §6 treats as terminal. It is
// a package-level variable rather than a constant: NewCore hands this slice
// to the IR, so a program can change the set before constructing a Core.
// config.Config has no field for it.
var TerminationWords = []uint32{0xF0002013, 0x00000063}

// Core owns every component and net and is the sole entry point external
// code (the CLI, the debugger, tests) uses to drive the simulation.
type Core struct {
	cfg config.Config

	scheduler *sim.Scheduler

	pc   *datapath.PC
	inc4 *datapath.Inc4
	ir   *datapath.IR
	rf   *datapath.RegFile
	alu  *datapath.ALU
	cmp  *datapath.CMP
	ctrl *control.Control
	mem  *memory.Controller

	pcMux      *datapath.PCMux
	memAddrMux *datapath.MemAddrMux
	cmpMux     *datapath.CmpMux
	aluMux1    *datapath.AluMux1
	aluMux2    *datapath.AluMux2
	regWrMux   *datapath.RegWriteMux

	keyboard *memory.Keyboard
	fb       *memory.Framebuffer

	symbols loader.Symbols
}

// Snapshot is a coherent copy of externally observable architectural state
// (spec §4.12). It is safe to retain after the Core that produced it keeps
// running.
type Snapshot struct {
	PC       uint32
	IR       uint32
	State    string
	Regs     [32]uint32
	Framebuf []byte
	Memory   map[uint32]byte
	Symbols  loader.Symbols
}

// NewCore constructs and wires every component, then resets the machine so
// reset-state outputs (PC at its configured reset address, a zeroed
// register file) are already visible.
func NewCore(cfg config.Config) *Core {
	c := &Core{cfg: cfg}
	c.scheduler = sim.NewScheduler(cfg.Workers)
	c.scheduler.MaxSettleIterations = cfg.MaxSettleIterations

	var nextID wire.ConsumerID
	id := func() wire.ConsumerID { nextID++; return nextID }
	word := func() *wire.Net { return wire.New(4) }
	byteNet := func() *wire.Net { return wire.New(1) }

	// Datapath nets, named after the topology in spec §6.
	pcOut := word()
	pcPlus4Out := word()
	opcodeOut, funct3Out, funct7Out := byteNet(), byteNet(), byteNet()
	rs1Out, rs2Out, rdOut := byteNet(), byteNet(), byteNet()
	iImmOut, sImmOut, bImmOut, uImmOut, jImmOut := word(), word(), word(), word(), word()
	rs1Data, rs2Data := word(), word()
	aluMux1Out, aluMux2Out, aluOut := word(), word(), word()
	cmpMuxOut, cmpOut := word(), word()
	memAddrMuxOut := word()
	memRDataOut, memRespOut := word(), byteNet()
	regWriteMuxOut := word()
	pcMuxOut := word()

	pcMuxSel, memAddrSel, cmpMuxSel := byteNet(), byteNet(), byteNet()
	aluMux1Sel, aluMux2Sel, regWriteSel := byteNet(), byteNet(), byteNet()
	aluOp, cmpOp := byteNet(), byteNet()
	loadPc, loadIr, regWr := byteNet(), byteNet(), byteNet()
	memReadEn, memWriteEn := byteNet(), byteNet()
	readMask, writeMask := byteNet(), byteNet()

	c.pc = &datapath.PC{CompID: id(), ResetValue: cfg.PCReset, LoadIn: loadPc, DataIn: pcMuxOut, Out: pcOut}
	c.inc4 = &datapath.Inc4{CompID: id(), In: pcOut, Out: pcPlus4Out}
	c.ir = &datapath.IR{
		CompID: id(), LoadIn: loadIr, DataIn: memRDataOut,
		OpcodeOut: opcodeOut, Funct3Out: funct3Out, Funct7Out: funct7Out,
		Rs1Out: rs1Out, Rs2Out: rs2Out, RdOut: rdOut,
		IImmOut: iImmOut, SImmOut: sImmOut, BImmOut: bImmOut, UImmOut: uImmOut, JImmOut: jImmOut,
		TerminationWords: TerminationWords,
	}
	c.rf = &datapath.RegFile{
		CompID: id(), Rs1IdxIn: rs1Out, Rs2IdxIn: rs2Out, RdIdxIn: rdOut,
		RdDataIn: regWriteMuxOut, RdWrIn: regWr,
		Rs1DataOut: rs1Data, Rs2DataOut: rs2Data,
	}
	c.alu = &datapath.ALU{CompID: id(), AIn: aluMux1Out, BIn: aluMux2Out, OpIn: aluOp, Out: aluOut}
	c.cmp = &datapath.CMP{CompID: id(), AIn: rs1Data, BIn: cmpMuxOut, OpIn: cmpOp, Out: cmpOut}

	c.pcMux = &datapath.PCMux{CompID: id(), SelIn: pcMuxSel, PCPlus4In: pcPlus4Out, AluOutIn: aluOut, Out: pcMuxOut}
	c.memAddrMux = &datapath.MemAddrMux{CompID: id(), SelIn: memAddrSel, PCIn: pcOut, AluOutIn: aluOut, Out: memAddrMuxOut}
	c.cmpMux = &datapath.CmpMux{CompID: id(), SelIn: cmpMuxSel, Rs2In: rs2Data, IImmIn: iImmOut, Out: cmpMuxOut}
	c.aluMux1 = &datapath.AluMux1{CompID: id(), SelIn: aluMux1Sel, Rs1In: rs1Data, PCIn: pcOut, Out: aluMux1Out}
	c.aluMux2 = &datapath.AluMux2{
		CompID: id(), SelIn: aluMux2Sel,
		IImmIn: iImmOut, UImmIn: uImmOut, BImmIn: bImmOut, SImmIn: sImmOut, JImmIn: jImmOut,
		Rs2In: rs2Data, Out: aluMux2Out,
	}
	c.regWrMux = &datapath.RegWriteMux{
		CompID: id(), SelIn: regWriteSel,
		AluOutIn: aluOut, CmpOutIn: cmpOut, UImmIn: uImmOut, MemDataIn: memRDataOut,
		EffAddrIn: memAddrMuxOut, PcPlus4In: pcPlus4Out, Out: regWriteMuxOut,
	}

	c.mem = memory.NewController()
	c.mem.CompID = id()
	c.mem.AddrIn, c.mem.WriteDataIn = memAddrMuxOut, rs2Data
	c.mem.ReadEnIn, c.mem.ReadMaskIn = memReadEn, readMask
	c.mem.WriteEnIn, c.mem.WriteMaskIn = memWriteEn, writeMask
	c.mem.RDataOut, c.mem.RespOut = memRDataOut, memRespOut

	c.ctrl = &control.Control{
		CompID:    id(),
		OpcodeIn:  opcodeOut, Funct3In: funct3Out, Funct7In: funct7Out,
		CmpOutIn:  cmpOut, MemRespIn: memRespOut, EffAddrIn: memAddrMuxOut,
		PcMuxSelOut: pcMuxSel, MemAddrSelOut: memAddrSel, CmpMuxSelOut: cmpMuxSel,
		AluMux1SelOut: aluMux1Sel, AluMux2SelOut: aluMux2Sel, RegWriteSelOut: regWriteSel,
		AluOpOut: aluOp, CmpOpOut: cmpOp,
		LoadPcOut: loadPc, LoadIrOut: loadIr, RegWrOut: regWr,
		MemReadEnOut: memReadEn, MemWriteEnOut: memWriteEn,
		ReadMaskOut: readMask, WriteMaskOut: writeMask,
	}

	c.keyboard = memory.NewKeyboard(cfg.KeyboardStatusAddr)
	c.fb = memory.NewFramebuffer(cfg.FramebufferBaseAddr)
	c.mem.Install(c.keyboard.StatusAddr, c.keyboard.DataAddr+1, c.keyboard)
	c.mem.Install(c.fb.Base, c.fb.Base+uint32(memory.FramebufferSize), c.fb)

	for _, comp := range []sim.Component{
		c.pc, c.inc4, c.ir, c.rf, c.alu, c.cmp,
		c.pcMux, c.memAddrMux, c.cmpMux, c.aluMux1, c.aluMux2, c.regWrMux,
		c.mem, c.ctrl,
	} {
		c.scheduler.Register(comp)
	}

	if err := c.scheduler.Reset(); err != nil {
		log.Printf("core: initial reset settle failed: %v", err)
	}
	return c
}

// RunCycle advances the simulation by exactly one scheduler cycle.
func (c *Core) RunCycle(ctx context.Context) error {
	return c.scheduler.RunCycle(ctx)
}

// RunInstruction advances cycles until the PC changes or a termination
// instruction is latched (spec §4.12). hook, if non-nil, is called after
// every cycle's clock edge.
func (c *Core) RunInstruction(ctx context.Context, hook func(*Core)) error {
	startPC, _ := c.pc.Out.Read().ToUint32()
	for {
		if err := c.RunCycle(ctx); err != nil {
			return err
		}
		if hook != nil {
			hook(c)
		}
		if c.ir.CanEnd() {
			return nil
		}
		curPC, known := c.pc.Out.Read().ToUint32()
		if known && curPC != startPC {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// Condition is a driver-level stopping predicate that RunUntil evaluates
// after every instruction it runs (once RunInstruction returns), supplementing run_until's plain address set
// (SPEC_FULL.md's Breakpoint conditions module).
type Condition func(*Core) bool

// RegEquals returns a Condition that fires when register idx holds val.
func RegEquals(idx int, val uint32) Condition {
	return func(c *Core) bool { return c.rf.Snapshot()[idx] == val }
}

// MemByteEquals returns a Condition that fires when the byte at addr is
// known and equals val.
func MemByteEquals(addr uint32, val byte) Condition {
	return func(c *Core) bool {
		b, ok := c.mem.DumpKnown()[addr]
		return ok && b == val
	}
}

// BreakSet is the stopping-condition set run_until honours: plain PC
// addresses plus optional predicates.
type BreakSet struct {
	Addresses  map[uint32]bool
	Conditions []Condition
}

func (b BreakSet) hit(c *Core, pc uint32) bool {
	if b.Addresses != nil && b.Addresses[pc] {
		return true
	}
	for _, cond := range b.Conditions {
		if cond(c) {
			return true
		}
	}
	return false
}

// RunUntil repeatedly runs instructions until PC is in breaks or the
// machine terminates.
func (c *Core) RunUntil(ctx context.Context, breaks BreakSet, hook func(*Core)) error {
	for {
		if err := c.RunInstruction(ctx, hook); err != nil {
			return err
		}
		if c.ir.CanEnd() {
			return nil
		}
		pc, known := c.pc.Out.Read().ToUint32()
		if known && breaks.hit(c, pc) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// RunToEnd repeatedly runs instructions until a termination instruction is
// latched.
func (c *Core) RunToEnd(ctx context.Context, hook func(*Core)) error {
	return c.RunUntil(ctx, BreakSet{}, hook)
}

// Reset restores every component to its initial state and reinstalls MMIO
// handlers.
func (c *Core) Reset() error {
	return c.scheduler.Reset()
}

// LoadImage deposits a raw binary at base.
func (c *Core) LoadImage(data []byte, base uint32) {
	loader.LoadImage(c.mem, data, base)
}

// LoadELF parses and deposits an ELF image's loadable sections, recording
// its symbol table (if any) for later snapshots.
func (c *Core) LoadELF(data []byte) {
	c.symbols = loader.LoadELF(c.mem, data)
}

// InjectKeyboard pushes a byte into the keyboard MMIO device's input
// buffer.
func (c *Core) InjectKeyboard(b byte) {
	c.keyboard.Push(b)
}

// Snapshot produces a coherent copy of externally observable state.
func (c *Core) Snapshot() Snapshot {
	pc, _ := c.pc.Out.Read().ToUint32()
	ir, _ := c.ir.Latched().ToUint32()
	return Snapshot{
		PC:       pc,
		IR:       ir,
		State:    c.ctrl.State().String(),
		Regs:     c.rf.Snapshot(),
		Framebuf: c.fb.Snapshot(),
		Memory:   c.mem.DumpKnown(),
		Symbols:  c.symbols,
	}
}

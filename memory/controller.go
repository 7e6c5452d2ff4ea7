// Package memory implements the byte-addressable sparse memory controller
// and its pluggable memory-mapped I/O regions (spec §4.10). The controller
// is clocked-with-logic: the read/write it observes on the clock edge is
// committed into the sparse store, and the response/read-data nets are
// republished on the following combinational pass.
package memory

import (
	"sync"

	"github.com/averageFOSSenjoyer/rsim-rv32i/bitvec"
	"github.com/averageFOSSenjoyer/rsim-rv32i/wire"
)

// Handler is an MMIO device: it intercepts byte accesses within its
// registered address range instead of the sparse store.
type Handler interface {
	Read(addr uint32) bitvec.Byte
	Write(addr uint32, v bitvec.Byte)
	Reset()
}

type region struct {
	start, end uint32 // half-open [start, end)
	handler    Handler
}

func (r region) contains(addr uint32) bool { return addr >= r.start && addr < r.end }

// Controller is the clocked memory controller.
type Controller struct {
	CompID wire.ConsumerID

	AddrIn      *wire.Net
	WriteDataIn *wire.Net
	ReadEnIn    *wire.Net
	ReadMaskIn  *wire.Net
	WriteEnIn   *wire.Net
	WriteMaskIn *wire.Net

	RDataOut *wire.Net
	RespOut  *wire.Net

	mu      sync.RWMutex
	mem     map[uint32]bitvec.Byte
	regions []region

	lastRData bitvec.ByteVec
	lastResp  bool

	// servicedRead/servicedWrite latch once the currently-asserted
	// read/write-enable request has actually been carried out. The
	// control FSM can hold an enable asserted across more than one clock
	// edge while it waits out the comb/clock phase lag before it
	// observes resp=1 and deasserts (spec §4.3's republish settle trails
	// the clock edge by a cycle), so without this latch a held-asserted
	// enable would perform the physical access again on every edge it
	// stays up for. For a destructive-read MMIO device (the keyboard
	// data register, which pops its buffer on read) that would silently
	// discard an extra byte per load. Cleared the first cycle the
	// corresponding enable is seen low, so the next request is serviced
	// fresh.
	servicedRead, servicedWrite bool
}

// NewController constructs an empty controller with no installed MMIO
// regions.
func NewController() *Controller {
	return &Controller{
		mem: make(map[uint32]bitvec.Byte),
	}
}

func (c *Controller) ID() wire.ConsumerID { return c.CompID }
func (c *Controller) IsClocked() bool     { return true }
func (c *Controller) InputNets() []*wire.Net {
	return []*wire.Net{c.AddrIn, c.WriteDataIn, c.ReadEnIn, c.ReadMaskIn, c.WriteEnIn, c.WriteMaskIn}
}

// Install registers an MMIO handler over the half-open range [start, end).
// Ranges must be disjoint from every previously installed region.
func (c *Controller) Install(start, end uint32, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.regions = append(c.regions, region{start: start, end: end, handler: h})
}

// Reset clears the sparse memory map, the latched response state, and
// every installed MMIO handler.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mem = make(map[uint32]bitvec.Byte)
	c.lastRData = bitvec.UnknownWord()
	c.lastResp = false
	c.servicedRead = false
	c.servicedWrite = false
	for _, r := range c.regions {
		r.handler.Reset()
	}
}

// OnComb republishes the result of the last clocked access.
func (c *Controller) OnComb() {
	c.mu.RLock()
	defer c.mu.RUnlock()
	c.RDataOut.Write(c.lastRData, 0)
	c.RespOut.Write(boolByte(c.lastResp), 0)
}

// OnClock services the request described by the current net values, per
// spec §4.10: a write takes priority over a read, and an address that is
// not fully known aborts the access with resp=0 rather than guessing.
//
// A request stays latched in servicedRead/servicedWrite once it has been
// carried out, so an enable the control FSM holds asserted across more
// than one clock edge (while it waits out the comb/clock phase lag before
// it observes resp=1) only ever triggers the underlying storeByte/loadByte
// once; every edge after the first just re-asserts resp=1 from the result
// already latched. The flag is cleared the first edge its enable reads
// low, so the next request is serviced fresh.
func (c *Controller) OnClock() {
	c.mu.Lock()
	defer c.mu.Unlock()

	base, baseKnown := c.AddrIn.Read().ToUint32()
	writeEn, writeEnKnown := c.WriteEnIn.Read().Byte(0)
	readEn, readEnKnown := c.ReadEnIn.Read().Byte(0)

	writeActive := writeEnKnown && writeEn != 0
	readActive := readEnKnown && readEn != 0
	if !writeActive {
		c.servicedWrite = false
	}
	if !readActive {
		c.servicedRead = false
	}

	if !baseKnown {
		c.lastRData = bitvec.UnknownWord()
		c.lastResp = false
		return
	}
	base &= 0xFFFFFFFC

	switch {
	case writeActive:
		if !c.servicedWrite {
			mask, maskKnown := c.WriteMaskIn.Read().Byte(0)
			data := c.WriteDataIn.Read()
			for i := 0; i < 4; i++ {
				if !maskKnown || mask&(1<<uint(i)) == 0 {
					continue
				}
				b, bKnown := data.Byte(i)
				if !bKnown {
					continue
				}
				c.storeByte(base+uint32(i), bitvec.NewByte(b))
			}
			c.servicedWrite = true
		}
		c.lastResp = true

	case readActive:
		if !c.servicedRead {
			mask, maskKnown := c.ReadMaskIn.Read().Byte(0)
			result := bitvec.UnknownWord()
			for i := 0; i < 4; i++ {
				if !maskKnown || mask&(1<<uint(i)) == 0 {
					continue
				}
				b := c.loadByte(base + uint32(i))
				if v, known := b.Byte(0); known {
					result = result.WithByte(i, v)
				}
			}
			c.lastRData = result
			c.servicedRead = true
		}
		c.lastResp = true

	default:
		c.lastResp = false
	}
}

// DepositByte writes a byte directly into memory, bypassing the clocked
// request path. Used by the loader package to place a program image before
// the simulation begins running cycles (spec §6).
func (c *Controller) DepositByte(addr uint32, v byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.storeByte(addr, bitvec.NewByte(v))
}

// DumpKnown returns every fully-known byte currently held in the sparse
// store, for snapshot purposes. MMIO-backed addresses are not included;
// callers read those through the owning handler directly.
func (c *Controller) DumpKnown() map[uint32]byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[uint32]byte, len(c.mem))
	for addr, b := range c.mem {
		if v, known := b.Byte(0); known {
			out[addr] = v
		}
	}
	return out
}

func (c *Controller) storeByte(addr uint32, v bitvec.Byte) {
	for _, r := range c.regions {
		if r.contains(addr) {
			r.handler.Write(addr, v)
			return
		}
	}
	c.mem[addr] = v
}

func (c *Controller) loadByte(addr uint32) bitvec.Byte {
	for _, r := range c.regions {
		if r.contains(addr) {
			return r.handler.Read(addr)
		}
	}
	if b, ok := c.mem[addr]; ok {
		return b
	}
	return bitvec.UnknownByte()
}

func boolByte(b bool) bitvec.ByteVec {
	if b {
		return bitvec.NewByte(1)
	}
	return bitvec.NewByte(0)
}

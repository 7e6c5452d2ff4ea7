package memory

import (
	"sync"

	"github.com/averageFOSSenjoyer/rsim-rv32i/bitvec"
)

// FramebufferRows and FramebufferCols describe the text-mode VGA-style
// framebuffer's cell grid (spec §3/§6).
const (
	FramebufferRows = 25
	FramebufferCols = 80
	bytesPerCell    = 2

	defaultAttribute = 0x0F
)

// FramebufferSize is the total byte span of the framebuffer MMIO region.
const FramebufferSize = FramebufferRows * FramebufferCols * bytesPerCell

// Framebuffer is the text-mode MMIO framebuffer: even byte offsets hold a
// character code, odd offsets hold an attribute byte (high nibble
// background, low nibble foreground). Reset fills every attribute byte with
// 0x0F and every character byte with 0.
type Framebuffer struct {
	Base uint32

	mu    sync.RWMutex
	cells [FramebufferSize]byte
}

// NewFramebuffer constructs a framebuffer installed at the given base
// address, already reset to its power-on pattern.
func NewFramebuffer(base uint32) *Framebuffer {
	fb := &Framebuffer{Base: base}
	fb.Reset()
	return fb
}

func (fb *Framebuffer) Read(addr uint32) bitvec.Byte {
	fb.mu.RLock()
	defer fb.mu.RUnlock()
	off := addr - fb.Base
	if off >= FramebufferSize {
		return bitvec.UnknownByte()
	}
	return bitvec.NewByte(fb.cells[off])
}

func (fb *Framebuffer) Write(addr uint32, v bitvec.Byte) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	off := addr - fb.Base
	if off >= FramebufferSize {
		return
	}
	if b, known := v.Byte(0); known {
		fb.cells[off] = b
	}
}

// Reset fills every attribute byte (odd offsets) with 0x0F and every
// character byte (even offsets) with 0.
func (fb *Framebuffer) Reset() {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	for i := 0; i < FramebufferSize; i++ {
		if i%bytesPerCell == 1 {
			fb.cells[i] = defaultAttribute
		} else {
			fb.cells[i] = 0
		}
	}
}

// Snapshot returns a copy of the raw cell bytes for external observers.
func (fb *Framebuffer) Snapshot() []byte {
	fb.mu.RLock()
	defer fb.mu.RUnlock()
	out := make([]byte, FramebufferSize)
	copy(out, fb.cells[:])
	return out
}

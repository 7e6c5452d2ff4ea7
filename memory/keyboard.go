package memory

import (
	"sync"

	"github.com/averageFOSSenjoyer/rsim-rv32i/bitvec"
)

// Keyboard is the MMIO keyboard device (spec §4.3/§6): a status byte (1 if
// the input buffer is non-empty) followed by a data byte that destructively
// pops the front of the buffer. Both addresses are read-only; writes are
// ignored.
type Keyboard struct {
	StatusAddr, DataAddr uint32

	mu  sync.Mutex
	buf []byte
}

// NewKeyboard constructs a keyboard device at the given status/data
// addresses, which must be adjacent (DataAddr == StatusAddr+1) to match the
// half-open range this device is installed over.
func NewKeyboard(statusAddr uint32) *Keyboard {
	return &Keyboard{StatusAddr: statusAddr, DataAddr: statusAddr + 1}
}

// Push appends a byte to the input buffer, simulating a keypress.
func (k *Keyboard) Push(b byte) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.buf = append(k.buf, b)
}

func (k *Keyboard) Read(addr uint32) bitvec.Byte {
	k.mu.Lock()
	defer k.mu.Unlock()
	switch addr {
	case k.StatusAddr:
		if len(k.buf) > 0 {
			return bitvec.NewByte(1)
		}
		return bitvec.NewByte(0)
	case k.DataAddr:
		if len(k.buf) == 0 {
			return bitvec.NewByte(0)
		}
		b := k.buf[0]
		k.buf = k.buf[1:]
		return bitvec.NewByte(b)
	default:
		return bitvec.UnknownByte()
	}
}

// Write is a no-op: both keyboard registers are read-only (spec §4.10's
// "MMIO address out of range" error kind is not raised; writes are simply
// discarded).
func (k *Keyboard) Write(addr uint32, v bitvec.Byte) {}

// Reset empties the input buffer.
func (k *Keyboard) Reset() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.buf = nil
}

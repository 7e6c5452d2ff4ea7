// Package loader deposits a program image into the memory controller
// before a run begins (spec §4.10, §6): a raw binary at a caller-chosen
// base address, or an ELF's allocated sections at their virtual addresses
// with an optional symbol table.
package loader

import (
	"debug/elf"
	"fmt"
	"log"

	"github.com/davecgh/go-spew/spew"
)

// Target is the minimal memory surface the loader needs: direct byte
// deposit, bypassing the clocked request path (spec §3's "program loading
// mutates the sparse memory map").
type Target interface {
	DepositByte(addr uint32, v byte)
}

// Symbols maps a loaded address to a human-readable label, populated only
// by LoadELF when the image carries a symbol table.
type Symbols map[uint32]string

// LoadImage deposits a raw byte sequence starting at base.
func LoadImage(t Target, data []byte, base uint32) {
	for i, b := range data {
		t.DepositByte(base+uint32(i), b)
	}
}

// LoadELF parses a little-endian 32-bit ELF image and deposits every
// loadable section at its virtual address, returning any symbol table
// entries as an address-to-name map. A parse failure is logged and treated
// as a no-op load (spec §6, §7) — the simulator remains usable with
// whatever memory state it already had.
func LoadELF(t Target, data []byte) Symbols {
	f, err := elf.NewFile(bytesReaderAt(data))
	if err != nil {
		log.Printf("loader: ELF parse failed, load is a no-op: %v", err)
		return nil
	}
	defer f.Close()

	if f.Class != elf.ELFCLASS32 || f.Data != elf.ELFDATA2LSB {
		log.Printf("loader: unsupported ELF format (class=%v data=%v), load is a no-op", f.Class, f.Data)
		return nil
	}

	for _, sec := range f.Sections {
		if sec.Flags&elf.SHF_ALLOC == 0 || sec.Type == elf.SHT_NOBITS {
			continue
		}
		bytes, err := sec.Data()
		if err != nil {
			log.Printf("loader: failed to read section %q, skipping: %v", sec.Name, err)
			continue
		}
		LoadImage(t, bytes, uint32(sec.Addr))
	}

	syms, err := f.Symbols()
	if err != nil {
		// No symbol table is common and not a failure worth logging loudly;
		// dynsym-only binaries fall through the same path.
		return nil
	}
	out := make(Symbols, len(syms))
	for _, sym := range syms {
		if sym.Name == "" {
			continue
		}
		out[uint32(sym.Value)] = sym.Name
	}
	log.Printf("loader: ELF symbol table loaded: %s", spew.Sdump(out))
	return out
}

func bytesReaderAt(data []byte) *sliceReaderAt {
	return &sliceReaderAt{data: data}
}

// sliceReaderAt adapts a byte slice to io.ReaderAt, which debug/elf.NewFile
// requires.
type sliceReaderAt struct {
	data []byte
}

func (r *sliceReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(r.data)) {
		return 0, fmt.Errorf("loader: read past end of image at offset %d", off)
	}
	n := copy(p, r.data[off:])
	if n < len(p) {
		return n, fmt.Errorf("loader: short read at offset %d", off)
	}
	return n, nil
}

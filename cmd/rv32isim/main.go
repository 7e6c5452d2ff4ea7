// main.go - Command-line driver for the RV32I simulator
//
// rsim-rv32i: a cycle-accurate RV32I functional simulator.
// https://github.com/averageFOSSenjoyer/rsim-rv32i
// License: GPLv3 or later

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/averageFOSSenjoyer/rsim-rv32i/config"
	"github.com/averageFOSSenjoyer/rsim-rv32i/core"
	"github.com/averageFOSSenjoyer/rsim-rv32i/trace"
)

func boilerPlate() {
	fmt.Println("\033[38;2;80;200;255mrsim-rv32i: a cycle-accurate RV32I simulator\033[0m")
	fmt.Println("https://github.com/averageFOSSenjoyer/rsim-rv32i")
	fmt.Println("License: GPLv3 or later")
}

func main() {
	boilerPlate()

	var (
		imagePath  = flag.String("image", "", "raw binary image to load")
		elfPath    = flag.String("elf", "", "ELF image to load")
		base       = flag.Uint64("base", uint64(config.DefaultImageBase), "base address for -image")
		tracePath  = flag.String("trace", "", "write a commit-trace log to this file")
		configPath = flag.String("config", "", "optional YAML configuration file")
		interact   = flag.Bool("interactive", false, "read stdin keypresses into the emulated keyboard")
	)
	flag.Parse()

	if *imagePath == "" && *elfPath == "" {
		fmt.Println("Usage: rv32isim [-image file -base addr | -elf file] [-trace file] [-config file] [-interactive]")
		os.Exit(1)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	sink := trace.Sink(trace.NopSink{})
	if *tracePath != "" {
		f, err := os.Create(*tracePath)
		if err != nil {
			fmt.Printf("Error opening trace file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		sink = trace.NewWriterSink(f)
	}

	c := core.NewCore(cfg)

	switch {
	case *elfPath != "":
		data, err := os.ReadFile(*elfPath)
		if err != nil {
			fmt.Printf("Error reading ELF image: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Loading ELF image: %s\n", *elfPath)
		c.LoadELF(data)
	case *imagePath != "":
		data, err := os.ReadFile(*imagePath)
		if err != nil {
			fmt.Printf("Error reading image: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Loading raw image: %s at 0x%08X\n", *imagePath, uint32(*base))
		c.LoadImage(data, uint32(*base))
	}

	if *interact {
		restore := runInteractiveStdin(c)
		defer restore()
	}

	ctx := context.Background()
	var cycle uint64
	hook := func(c *core.Core) {
		snap := c.Snapshot()
		if err := sink.WriteLine(cycle, snap.PC, snap.IR, snap.State); err != nil {
			fmt.Printf("Error writing trace: %v\n", err)
			os.Exit(1)
		}
		cycle++
	}

	fmt.Println("Starting RV32I simulation")
	if err := c.RunToEnd(ctx, hook); err != nil {
		fmt.Printf("Simulation aborted: %v\n", err)
		os.Exit(1)
	}

	snap := c.Snapshot()
	fmt.Printf("\nHalted at pc=0x%08X after %d cycles\n", snap.PC, cycle)
	for i := 0; i < 32; i += 4 {
		fmt.Printf("x%-2d=%08X  x%-2d=%08X  x%-2d=%08X  x%-2d=%08X\n",
			i, snap.Regs[i], i+1, snap.Regs[i+1], i+2, snap.Regs[i+2], i+3, snap.Regs[i+3])
	}
}

// runInteractiveStdin puts the controlling terminal into raw mode and
// forwards every byte typed to the emulated keyboard device until the
// program exits, letting console programs running under the simulator
// read keystrokes without line buffering. The returned function restores
// the prior terminal state; it is a no-op when stdin is not a terminal.
func runInteractiveStdin(c *core.Core) (restore func()) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return func() {}
	}
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return func() {}
	}
	go func() {
		defer term.Restore(fd, oldState)
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil || n == 0 {
				return
			}
			c.InjectKeyboard(buf[0])
		}
	}()
	return func() { term.Restore(fd, oldState) }
}

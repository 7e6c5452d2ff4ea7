// Command rv32idbg is a terminal debugger for the RV32I simulator: a thin
// bubbletea TUI over Core's driver API (SPEC_FULL.md's Terminal debugger
// module), grounded on hejops-gone/cpu/debugger.go's model/Update/View
// shape and extended with register, control-state, and framebuffer panes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/averageFOSSenjoyer/rsim-rv32i/config"
	"github.com/averageFOSSenjoyer/rsim-rv32i/core"
)

var (
	regStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	headStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type model struct {
	c        *core.Core
	lastErr  error
	halted   bool
	cycles   uint64
	console  strings.Builder
	quitting bool
}

func (m model) Init() tea.Cmd { return nil }

// Update steps or runs the simulator in response to keypresses; any byte
// typed outside of the step/run/reset/quit keys is forwarded to the
// emulated keyboard MMIO device so console programs can be driven
// interactively from the debugger itself.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch keyMsg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "s":
		if m.halted {
			return m, nil
		}
		if err := m.c.RunInstruction(context.Background(), func(*core.Core) { m.cycles++ }); err != nil {
			m.lastErr = err
		}
		m.halted = m.c.Snapshot().IR != 0 && isHalt(m.c.Snapshot().IR)
	case "c":
		if m.halted {
			return m, nil
		}
		if err := m.c.RunToEnd(context.Background(), func(*core.Core) { m.cycles++ }); err != nil {
			m.lastErr = err
		}
		m.halted = true
	case "r":
		if err := m.c.Reset(); err != nil {
			m.lastErr = err
		}
		m.halted = false
		m.cycles = 0
	default:
		if len(keyMsg.Runes) == 1 {
			m.c.InjectKeyboard(byte(keyMsg.Runes[0]))
		}
	}
	return m, nil
}

func isHalt(ir uint32) bool {
	for _, w := range core.TerminationWords {
		if ir == w {
			return true
		}
	}
	return false
}

func (m model) registerTable() string {
	snap := m.c.Snapshot()
	var b strings.Builder
	b.WriteString(headStyle.Render("registers") + "\n")
	for i := 0; i < 32; i += 4 {
		fmt.Fprintf(&b, "%s  %s  %s  %s\n",
			regStyle.Render(fmt.Sprintf("x%-2d=%08X", i, snap.Regs[i])),
			regStyle.Render(fmt.Sprintf("x%-2d=%08X", i+1, snap.Regs[i+1])),
			regStyle.Render(fmt.Sprintf("x%-2d=%08X", i+2, snap.Regs[i+2])),
			regStyle.Render(fmt.Sprintf("x%-2d=%08X", i+3, snap.Regs[i+3])),
		)
	}
	return b.String()
}

func (m model) statusPane() string {
	snap := m.c.Snapshot()
	return fmt.Sprintf("%s\npc=%08X ir=%08X state=%s cycles=%d halted=%v",
		headStyle.Render("control"), snap.PC, snap.IR, snap.State, m.cycles, m.halted)
}

// framebufferPreview renders the first few text-mode rows of the VGA-style
// framebuffer as plain ASCII, ignoring attribute bytes (SPEC_FULL.md's
// terminal debugger supplements spec §3's framebuffer data model with a
// console-friendly view of it).
func (m model) framebufferPreview() string {
	snap := m.c.Snapshot()
	var b strings.Builder
	b.WriteString(headStyle.Render("framebuffer (first 4 rows)") + "\n")
	const cols = 80
	for row := 0; row < 4 && row*cols*2 < len(snap.Framebuf); row++ {
		for col := 0; col < cols; col++ {
			ch := snap.Framebuf[row*cols*2+col*2]
			if ch == 0 {
				ch = ' '
			}
			b.WriteByte(ch)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func (m model) View() string {
	if m.quitting {
		return ""
	}
	var errLine string
	if m.lastErr != nil {
		errLine = errorStyle.Render(m.lastErr.Error())
	}
	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.statusPane(),
		"",
		m.registerTable(),
		"",
		m.framebufferPreview(),
		errLine,
		"\n[s] step instruction  [c] run to end  [r] reset  [q] quit  (other keys -> keyboard MMIO)",
	)
}

func main() {
	var (
		imagePath  = flag.String("image", "", "raw binary image to load")
		elfPath    = flag.String("elf", "", "ELF image to load")
		base       = flag.Uint64("base", uint64(config.DefaultImageBase), "base address for -image")
		configPath = flag.String("config", "", "optional YAML configuration file")
	)
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	c := core.NewCore(cfg)
	switch {
	case *elfPath != "":
		data, err := os.ReadFile(*elfPath)
		if err != nil {
			fmt.Printf("Error reading ELF image: %v\n", err)
			os.Exit(1)
		}
		c.LoadELF(data)
	case *imagePath != "":
		data, err := os.ReadFile(*imagePath)
		if err != nil {
			fmt.Printf("Error reading image: %v\n", err)
			os.Exit(1)
		}
		c.LoadImage(data, uint32(*base))
	}

	if _, err := tea.NewProgram(model{c: c}).Run(); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}

// Package sim implements the cycle scheduler: the combinational settle
// loop and clocked edge barrier described in spec §4.3 and the
// concurrency model of spec §5. Components are evaluated through a small
// capability set (reset / combinational tick / clocked tick) rather than a
// language-level interface hierarchy, the same "polymorphic over
// components" idea the teacher expresses with a component registry
// (component_reset.go) and a worker-per-unit pattern
// (coprocessor_manager.go), generalised here from per-CPU-type workers to
// per-datapath-component fan-out.
package sim

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/averageFOSSenjoyer/rsim-rv32i/wire"
)

// Component is the capability set the scheduler needs from every datapath
// unit: it can be reset to its initial state, it can settle combinationally
// from current net values, and it can commit a clocked update. Purely
// combinational components (ALU, CMP, muxes) implement OnClock as a no-op;
// purely clocked components still implement OnComb to republish their
// current state onto their output nets.
type Component interface {
	ID() wire.ConsumerID
	Reset()
	OnComb()
	OnClock()
	InputNets() []*wire.Net

	// IsClocked reports whether this component holds state that can
	// change on a clock edge. Clocked components are force-republished
	// (their OnComb is called unconditionally) immediately after the
	// clock edge so their post-edge outputs reach their nets even though
	// nothing wrote to their own input nets this cycle (spec §4.3's
	// "final on_comb() pass" over post-edge state).
	IsClocked() bool
}

// DefaultMaxSettleIterations bounds the combinational settle loop so a
// miswired (cyclic) datapath fails fast instead of spinning forever, per
// spec §7's "scheduler deadlock" error kind.
const DefaultMaxSettleIterations = 1024

// SchedulerError reports that the combinational settle loop failed to
// quiesce within the configured iteration cap. It is the one datapath-level
// error the driver API surfaces mid-run (spec §7).
type SchedulerError struct {
	Iterations int
}

func (e *SchedulerError) Error() string {
	return fmt.Sprintf("sim: combinational settle did not quiesce within %d iterations", e.Iterations)
}

// Scheduler evaluates a fixed set of registered components each cycle,
// re-running every component whose inputs changed until the datapath
// reaches a fixed point, and fans each round out across a worker pool
// bounded by Workers.
type Scheduler struct {
	// Workers bounds how many components' OnComb/OnClock calls run
	// concurrently. 1 degenerates to sequential evaluation in an
	// unspecified (registration) order, which is sufficient because settle
	// iterates to a fixed point (spec §9 design note (b)).
	Workers int

	// MaxSettleIterations caps the combinational settle loop.
	MaxSettleIterations int

	components []Component
	byID       map[wire.ConsumerID]Component
	nets       []*wire.Net
	cycle      uint64
}

// NewScheduler constructs a Scheduler with the given worker count. A
// workers value <= 0 is treated as 1.
func NewScheduler(workers int) *Scheduler {
	if workers <= 0 {
		workers = 1
	}
	return &Scheduler{
		Workers:             workers,
		MaxSettleIterations: DefaultMaxSettleIterations,
		byID:                make(map[wire.ConsumerID]Component),
	}
}

// Register adds a component to the scheduler and subscribes it to every
// net it declares as an input.
func (s *Scheduler) Register(c Component) {
	s.components = append(s.components, c)
	s.byID[c.ID()] = c
	for _, n := range c.InputNets() {
		n.Subscribe(c.ID())
		s.nets = append(s.nets, n)
	}
}

// Reset restores every registered component to its initial state and
// settles the datapath once so reset-state outputs (PC at its reset
// address, a zeroed register file, MMIO defaults) are visible before the
// first RunCycle.
func (s *Scheduler) Reset() error {
	for _, c := range s.components {
		c.Reset()
	}
	for _, n := range s.nets {
		n.ForceDirty()
	}
	s.cycle = 0
	if err := s.republishClocked(context.Background()); err != nil {
		return err
	}
	return s.settle(context.Background())
}

// Cycle reports the number of clock edges completed so far.
func (s *Scheduler) Cycle() uint64 { return s.cycle }

// RunCycle advances the simulation by exactly one cycle: a combinational
// settle, the clock edge, and a final republish settle (spec §4.3).
func (s *Scheduler) RunCycle(ctx context.Context) error {
	if err := s.settle(ctx); err != nil {
		return err
	}
	if err := s.runGroup(ctx, s.components, Component.OnClock); err != nil {
		return err
	}
	if err := s.republishClocked(ctx); err != nil {
		return err
	}
	if err := s.settle(ctx); err != nil {
		return err
	}
	s.cycle++
	return nil
}

// settle repeatedly calls OnComb on every component with an outstanding
// (unacknowledged) input event, until no net in the graph has an
// outstanding event for any of its subscribers — the fixed point of the
// combinational logic (spec §4.3). The control FSM both drives and
// observes datapath nets (e.g. the mem-addr mux output), so the component
// graph has loops; they settle because a write that leaves a net's value
// unchanged is not an event.
//
// Components in a round run concurrently (runGroup), so one component's
// OnComb can land a write on a net after another component in the very
// same round has already read it. Acking each net to its revision *before*
// the round started (rather than whatever revision it holds once the
// round finishes) means that write still leaves its consumers dirty for
// the next iteration, instead of being mistaken for something they
// already observed. This is what makes the settled result independent of
// worker/registration order (spec §5).
func (s *Scheduler) settle(ctx context.Context) error {
	for iter := 0; ; iter++ {
		if iter >= s.MaxSettleIterations {
			return &SchedulerError{Iterations: iter}
		}
		dirty := s.dirtyComponents()
		if len(dirty) == 0 {
			return nil
		}
		before := s.snapshotRevisions(dirty)
		if err := s.runGroup(ctx, dirty, Component.OnComb); err != nil {
			return err
		}
		for _, c := range dirty {
			for _, n := range c.InputNets() {
				n.AckTo(c.ID(), before[n])
			}
		}
	}
}

// snapshotRevisions records the current revision of every input net of cs,
// before their owning components are invoked this round.
func (s *Scheduler) snapshotRevisions(cs []Component) map[*wire.Net]uint64 {
	before := make(map[*wire.Net]uint64)
	for _, c := range cs {
		for _, n := range c.InputNets() {
			if _, ok := before[n]; !ok {
				before[n] = n.Revision()
			}
		}
	}
	return before
}

// republishClocked force-runs OnComb on every clocked component so its
// post-edge state reaches its output nets, seeding the following settle
// pass for any combinational component downstream of it.
func (s *Scheduler) republishClocked(ctx context.Context) error {
	var clocked []Component
	for _, c := range s.components {
		if c.IsClocked() {
			clocked = append(clocked, c)
		}
	}
	return s.runGroup(ctx, clocked, Component.OnComb)
}

// dirtyComponents returns every component that has at least one input net
// with an outstanding event. On the very first settle of a fresh
// scheduler every component is dirty (every net starts with every
// subscriber unacknowledged), which is exactly the "evaluate everything at
// least once" behaviour the fixed-point loop needs to bootstrap.
func (s *Scheduler) dirtyComponents() []Component {
	var dirty []Component
	for _, c := range s.components {
		for _, n := range c.InputNets() {
			if n.Pending(c.ID()) {
				dirty = append(dirty, c)
				break
			}
		}
	}
	return dirty
}

// runGroup fans fn out across the configured worker count, treating the
// clock edge (or a settle round) as a barrier: it does not return until
// every call has completed. Each component only touches its own internal
// state and shared nets, so concurrent execution within a round is safe
// per spec §5.
func (s *Scheduler) runGroup(ctx context.Context, cs []Component, fn func(Component)) error {
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(s.Workers)
	for _, c := range cs {
		c := c
		g.Go(func() error {
			fn(c)
			return nil
		})
	}
	return g.Wait()
}

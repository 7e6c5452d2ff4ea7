// Package wire implements the datapath's signal transport: a typed,
// one-producer/many-consumer broadcast channel ("Net") that mediates every
// connection between components. Every write that changes a net's value is
// an event; every subscriber must acknowledge an event before the scheduler considers the current
// settle round quiescent (spec §4.2).
package wire

import (
	"sync"

	"github.com/averageFOSSenjoyer/rsim-rv32i/bitvec"
)

// ConsumerID identifies a component subscribed to a Net. The scheduler
// assigns these; this package only uses them as opaque map keys.
type ConsumerID int

// Net is a directed broadcast signal of a fixed width (1 byte or 4 bytes,
// i.e. bitvec.Byte or bitvec.Word). Delivery delay is always zero in this
// design (spec §4.2): a write is visible to Read() immediately, but is
// still tracked as an unacknowledged event per subscriber so the scheduler
// can detect when a settle round has quiesced.
type Net struct {
	mu    sync.Mutex
	width int
	value bitvec.ByteVec

	revision uint64
	acked    map[ConsumerID]uint64
}

// New creates a Net of the given width, initialised to all-unknown.
func New(width int) *Net {
	var initial bitvec.ByteVec
	if width == 1 {
		initial = bitvec.UnknownByte()
	} else {
		initial = bitvec.UnknownWord()
	}
	return &Net{
		width: width,
		value: initial,
		// revision starts at 1 so every freshly subscribed consumer
		// (acked at 0) has an outstanding event for the net's initial
		// value: the scheduler's very first settle pass must still
		// run every component once to publish reset-state outputs,
		// even though nothing has explicitly written to the net yet.
		revision: 1,
		acked:    make(map[ConsumerID]uint64),
	}
}

// Width reports the byte width of values carried on this net.
func (n *Net) Width() int { return n.width }

// Subscribe registers a consumer so the scheduler can track whether it
// has acknowledged the current value. A freshly subscribed consumer is
// considered to have an outstanding (unacknowledged) event for the net's
// current value, mirroring a component that has not yet observed its
// inputs this cycle.
func (n *Net) Subscribe(id ConsumerID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.acked[id]; !ok {
		n.acked[id] = 0
	}
}

// Write publishes a new value on the net. A write that changes the value
// leaves every subscriber's acknowledged revision behind the new one,
// creating an outstanding event for each of them; writing the value the
// net already holds creates no event. The delay parameter is accepted for
// interface fidelity with spec §4.2 but is always zero in this design:
// same-cycle delivery.
func (n *Net) Write(v bitvec.ByteVec, delay int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.value == v {
		return
	}
	n.value = v
	n.revision++
}

// Read returns the last value delivered on the net.
func (n *Net) Read() bitvec.ByteVec {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.value
}

// Pending reports whether consumer id has an unacknowledged event: a
// value-changing write (or a ForceDirty) has happened since it was last
// acknowledged.
func (n *Net) Pending(id ConsumerID) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.acked[id] < n.revision
}

// Revision returns the net's current write revision. The scheduler reads
// this before invoking a component's OnComb so it can record exactly which
// revision the component observed, rather than whatever revision the net
// happens to hold once the round finishes (spec §4.3/§5).
func (n *Net) Revision() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.revision
}

// Ack records that consumer id has observed the net's current value.
func (n *Net) Ack(id ConsumerID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.acked[id] = n.revision
}

// AckTo records that consumer id has observed the net as of the given
// revision, which may be older than the net's current revision. This is
// used instead of Ack when a component was invoked concurrently with
// other writers in the same settle round: acking only to the revision the
// component actually saw (captured before the round started) leaves it
// dirty again if a write landed on the net mid-round, so that write still
// triggers a re-evaluation on the next iteration instead of being silently
// missed (spec §4.3's fixed point, spec §5's worker-order independence).
// Acked revisions only move forward.
func (n *Net) AckTo(id ConsumerID, revision uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if revision > n.acked[id] {
		n.acked[id] = revision
	}
}

// ForceDirty marks every subscriber as having an outstanding event without
// changing the net's value, used to re-bootstrap the settle loop after a
// reset.
func (n *Net) ForceDirty() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.revision++
}

// Outstanding returns the number of subscribers that have not yet
// acknowledged the current value. The scheduler's settle loop is
// quiescent exactly when Outstanding() == 0 for every net in the graph.
func (n *Net) Outstanding() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, acked := range n.acked {
		if acked < n.revision {
			count++
		}
	}
	return count
}

package nbsp

import "sync/atomic"

// Stats holds atomic counters for one or more endpoints. It plays no part
// in protocol correctness; nothing in this package reads its fields back,
// a deliberate separation between observability and the state machine.
type Stats struct {
	WordsSent     uint64 // data words written to the wire (immediate send or buffered drain)
	WordsReceived uint64 // data words accepted by ReceiveMsg
	WordsBuffered uint64 // words that went to the ring buffer instead of the wire
	WordsDropped  uint64 // words discarded by Send/UDDWSend calls that returned 0 (buffer full)
	AcksSent      uint64
	AcksReceived  uint64
	FlushCalls    uint64
}

func newStats() *Stats {
	return new(Stats)
}

// Copy returns a point-in-time snapshot of s.
func (s *Stats) Copy() *Stats {
	d := newStats()
	d.WordsSent = atomic.LoadUint64(&s.WordsSent)
	d.WordsReceived = atomic.LoadUint64(&s.WordsReceived)
	d.WordsBuffered = atomic.LoadUint64(&s.WordsBuffered)
	d.WordsDropped = atomic.LoadUint64(&s.WordsDropped)
	d.AcksSent = atomic.LoadUint64(&s.AcksSent)
	d.AcksReceived = atomic.LoadUint64(&s.AcksReceived)
	d.FlushCalls = atomic.LoadUint64(&s.FlushCalls)
	return d
}

// DefaultStats is the global counter set used by any State that doesn't
// carry its own *Stats.
var DefaultStats *Stats

func init() {
	DefaultStats = newStats()
}

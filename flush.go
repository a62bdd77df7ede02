package nbsp

import (
	"sync/atomic"
	"time"
)

// Waiter is an optional capability a Channel may implement: a
// non-consuming check for "is a message available to read before this
// deadline". It lets HandleOutgoingTraffic race channel readiness against
// a timer without losing a message the way actually consuming a token
// and then abandoning it would. PipeChannel, UDPChannel and CipherChannel
// in the transport subpackage implement it; ListenUDPChannel does not, nor
// does a bare mock Channel used in unit tests, and HandleOutgoingTraffic
// degrades to calling ReceiveMsg unconditionally in that case.
type Waiter interface {
	// WaitReadable blocks until a message is available or deadline
	// elapses, returning false on timeout. It must not consume anything.
	WaitReadable(deadline time.Time) bool
}

// Flush blocks until every buffered and in-flight word has been
// acknowledged. Incoming data messages encountered while flushing are
// still acknowledged (and msgData is overwritten); Flush is intended for
// teardown/quiescence, not for receiving data.
func Flush(channel Channel, state *State, buffer []uint32) {
	atomic.AddUint64(&state.stats().FlushCalls, 1)
	for PendingWordsToSend(state) > 0 {
		ReceiveMsg(channel, state)
		HandleMsg(channel, state, buffer)
	}
}

// HandleOutgoingTraffic behaves like Flush but returns once either the
// pending count reaches 0 or availableTime has elapsed, whichever comes
// first. The underlying budget is naturally a duration; callers on this
// platform pass a time.Duration directly.
//
// The deadline is only enforced between messages for a channel that does
// not implement Waiter: ReceiveMsg itself still blocks uncontrolled on
// such a channel, so availableTime can be overrun by however long the
// peer takes to send the next message. See Waiter.
func HandleOutgoingTraffic(channel Channel, state *State, buffer []uint32, availableTime time.Duration) {
	atomic.AddUint64(&state.stats().FlushCalls, 1)
	deadline := time.Now().Add(availableTime)

	for PendingWordsToSend(state) > 0 {
		if w, ok := channel.(Waiter); ok {
			if !w.WaitReadable(deadline) {
				return
			}
		} else if !time.Now().Before(deadline) {
			return
		}

		ReceiveMsg(channel, state)
		HandleMsg(channel, state, buffer)
	}
}

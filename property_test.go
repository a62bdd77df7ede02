package nbsp

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestWordsToBeAcknowledgedInvariant drives a single endpoint through a
// long pseudo-random sequence of Send/ack events and checks that
// wordsToBeAcknowledged never leaves {0, 1}, the single-outstanding-word
// invariant for the normal variant.
func TestWordsToBeAcknowledgedInvariant(t *testing.T) {
	a, _ := newFifoPair()
	var state State
	Init(&state, 8)
	buf := make([]uint32, 8)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 2000; i++ {
		if rng.Intn(2) == 0 {
			Send(a, &state, buf, uint32(i))
		} else if state.wordsToBeAcknowledged != 0 {
			a.in.pushToken(endOfTransferToken)
			ReceiveMsg(a, &state)
			HandleMsg(a, &state, buf)
		}
		assert.LessOrEqual(t, state.wordsToBeAcknowledged, uint32(1))
	}
}

// TestUDDWWordsToBeAcknowledgedInvariant is the same property for UDDW,
// where the outstanding count is either 0 or 2 (a whole pair).
func TestUDDWWordsToBeAcknowledgedInvariant(t *testing.T) {
	a, _ := newFifoPair()
	var state State
	Init(&state, 8)
	buf := make([]uint32, 8)

	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 2000; i++ {
		if rng.Intn(2) == 0 {
			UDDWSend(a, &state, buf, uint32(i), uint32(i+1))
		} else if state.wordsToBeAcknowledged != 0 {
			a.in.pushToken(endOfTransferToken)
			UDDWHandleAck(a, &state, buf)
		}
		assert.Contains(t, []uint32{0, 2}, state.wordsToBeAcknowledged)
	}
}

// TestSendFIFOOrdering checks that words accepted by Send, whether sent
// immediately or buffered, are always delivered to the wire in the order
// they were submitted.
func TestSendFIFOOrdering(t *testing.T) {
	a, _ := newFifoPair()
	var state State
	Init(&state, 4)
	buf := make([]uint32, 4)

	const n = 500
	var delivered []uint32
	next := uint32(0)

	for next < n || state.wordsToBeAcknowledged != 0 {
		if next < n && Send(a, &state, buf, next) == 1 {
			next++
		}
		if len(a.out.words) > len(delivered) {
			delivered = append(delivered, a.out.words[len(delivered):]...)
		}
		if state.wordsToBeAcknowledged != 0 {
			a.in.pushToken(endOfTransferToken)
			ReceiveMsg(a, &state)
			HandleMsg(a, &state, buf)
			if len(a.out.words) > len(delivered) {
				delivered = append(delivered, a.out.words[len(delivered):]...)
			}
		}
	}

	assert.Len(t, delivered, int(n))
	for i, word := range delivered {
		assert.Equal(t, uint32(i), word)
	}
}

// TestSendingCapacityMatchesSuccessfulSends checks that exactly
// SendingCapacity Sends in a row succeed, and the next one fails, for
// every valid power-of-two buffer size.
func TestSendingCapacityMatchesSuccessfulSends(t *testing.T) {
	for _, size := range []uint32{2, 4, 8, 16, 32} {
		a, _ := newFifoPair()
		var state State
		Init(&state, size)
		buf := make([]uint32, size)

		capacity := SendingCapacity(&state)
		assert.Equal(t, size, capacity, "size=%d", size)

		for i := uint32(0); i < capacity; i++ {
			assert.Equal(t, uint32(1), Send(a, &state, buf, i), "size=%d word=%d", size, i)
		}
		assert.Equal(t, uint32(0), Send(a, &state, buf, capacity), "size=%d overflow send", size)
	}
}

// TestUDDWSendingCapacityMatchesSuccessfulSends checks that exactly
// UDDWSendingCapacity/2 UDDWSend pairs in a row succeed once a pair is
// already outstanding, and the next pair fails. SendingCapacity itself
// would report an odd free-slot count here; UDDWSendingCapacity rounds it
// down to the pair granularity UDDWSend actually consumes.
func TestUDDWSendingCapacityMatchesSuccessfulSends(t *testing.T) {
	for _, size := range []uint32{4, 8, 16, 32} {
		a, _ := newFifoPair()
		var state State
		Init(&state, size)
		buf := make([]uint32, size)

		assert.Equal(t, uint32(1), UDDWSend(a, &state, buf, 0, 1), "size=%d initial pair", size)

		capacity := UDDWSendingCapacity(&state)
		assert.Equal(t, uint32(0), capacity%2, "size=%d capacity must be even", size)

		for i := uint32(0); i < capacity/2; i++ {
			assert.Equal(t, uint32(1), UDDWSend(a, &state, buf, 2*i+2, 2*i+3), "size=%d pair=%d", size, i)
		}
		assert.Equal(t, uint32(0), UDDWSend(a, &state, buf, capacity+2, capacity+3), "size=%d overflow pair", size)
	}
}

// TestPendingWordsToSendMonotonic checks that PendingWordsToSend moves by
// exactly +1 on every accepted Send and -1 on every ack handled, never
// drifting from the running count a reference tally keeps independently.
func TestPendingWordsToSendMonotonic(t *testing.T) {
	a, _ := newFifoPair()
	var state State
	Init(&state, 16)
	buf := make([]uint32, 16)

	rng := rand.New(rand.NewSource(3))
	var want uint32
	for i := 0; i < 3000; i++ {
		if rng.Intn(3) != 0 {
			if Send(a, &state, buf, uint32(i)) == 1 {
				want++
			}
		} else if state.wordsToBeAcknowledged != 0 {
			a.in.pushToken(endOfTransferToken)
			ReceiveMsg(a, &state)
			HandleMsg(a, &state, buf)
			want--
		}
		assert.Equal(t, want, PendingWordsToSend(&state))
	}
}

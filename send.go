package nbsp

import "sync/atomic"

// Send submits data on channel through state/buffer. If the channel is
// idle from our side it is written immediately; otherwise data is stored
// in the ring buffer for later delivery by HandleMsg. It returns 1 on
// success, 0 if the buffer is full (data is discarded; the caller owns
// any retry).
//
// At most one data word may be outstanding on the wire at a time: this is
// the flow-control discipline that keeps many NBSP channels from
// congesting a shared fabric.
func Send(channel Channel, state *State, buffer []uint32, data uint32) uint32 {
	if state.wordsToBeAcknowledged == 0 {
		channel.OutputControlToken(CTData)
		channel.OutputWord(data)
		state.wordsToBeAcknowledged = 1
		atomic.AddUint64(&state.stats().WordsSent, 1)
		return 1
	}

	nextWrite := ringNext(state.writeIndex, 1, state.bufferMask)
	if nextWrite != state.readIndex {
		buffer[state.writeIndex] = data
		state.writeIndex = nextWrite
		atomic.AddUint64(&state.stats().WordsBuffered, 1)
		return 1
	}

	atomic.AddUint64(&state.stats().WordsDropped, 1)
	return 0
}

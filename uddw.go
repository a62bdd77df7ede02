package nbsp

import "sync/atomic"

// UDDWSend is the sender half of the unidirectional double-word variant:
// identical in shape to Send, but at pair granularity and with no leading
// control token. It must not be mixed with the normal variant on the same
// State/buffer/Channel.
func UDDWSend(channel Channel, state *State, buffer []uint32, data1, data2 uint32) uint32 {
	if DebugChecks && !state.hasBuffer() {
		Logf(LogWarn, "nbsp: UDDWSend needs nonzero buffer size")
	}

	if state.wordsToBeAcknowledged == 0 {
		channel.OutputWord(data1)
		channel.OutputWord(data2)
		state.wordsToBeAcknowledged = 2
		atomic.AddUint64(&state.stats().WordsSent, 2)
		return 1
	}

	nextWrite := ringNext(state.writeIndex, 2, state.bufferMask)
	if nextWrite != state.readIndex {
		buffer[state.writeIndex] = data1
		buffer[ringNext(state.writeIndex, 1, state.bufferMask)] = data2
		state.writeIndex = nextWrite
		atomic.AddUint64(&state.stats().WordsBuffered, 2)
		return 1
	}

	atomic.AddUint64(&state.stats().WordsDropped, 2)
	return 0
}

// UDDWHandleAck is the sender-side select handler for UDDW: it reads the
// single incoming ack token and, if the buffer holds another pair, writes
// it straight to the wire, leaving wordsToBeAcknowledged at 2; otherwise
// it clears wordsToBeAcknowledged to 0.
func UDDWHandleAck(channel Channel, state *State, buffer []uint32) {
	channel.InputControlToken()
	atomic.AddUint64(&state.stats().AcksReceived, 1)

	if DebugChecks && state.wordsToBeAcknowledged == 0 {
		Logf(LogWarn, "nbsp: unexpected uddw ack")
	}

	if state.readIndex != state.writeIndex {
		channel.OutputWord(buffer[state.readIndex])
		channel.OutputWord(buffer[ringNext(state.readIndex, 1, state.bufferMask)])
		state.readIndex = ringNext(state.readIndex, 2, state.bufferMask)
		atomic.AddUint64(&state.stats().WordsSent, 2)
	} else {
		state.wordsToBeAcknowledged = 0
	}
}

// UDDWReceive is the stateless receiver half of UDDW: read two payload
// words with no leading token, then emit the end-of-transfer token as
// acknowledgement. Shaped as a select handler like ReceiveMsg.
func UDDWReceive(channel Channel) (data1, data2 uint32) {
	data1 = channel.InputWord()
	data2 = channel.InputWord()
	channel.OutputControlToken(endOfTransferToken)
	return data1, data2
}

// UDDWFlush blocks until UDDW's pending count reaches zero, dispatching
// acks through UDDWHandleAck.
func UDDWFlush(channel Channel, state *State, buffer []uint32) {
	atomic.AddUint64(&state.stats().FlushCalls, 1)
	for PendingWordsToSend(state) > 0 {
		UDDWHandleAck(channel, state, buffer)
	}
}

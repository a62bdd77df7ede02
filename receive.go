package nbsp

import "sync/atomic"

// ReceiveMsg waits for one incoming message and classifies it, storing the
// payload word when present. It is shaped as a select handler: a
// cooperative scheduler may treat it as a passive event in a multi-way
// wait and only invoke HandleMsg once this endpoint is actually chosen. No
// reply is emitted here.
func ReceiveMsg(channel Channel, state *State) {
	token := channel.InputControlToken()

	if token == CTData {
		state.msgIsAck = false
		state.msgData = channel.InputWord()
		atomic.AddUint64(&state.stats().WordsReceived, 1)
	} else {
		state.msgIsAck = true
	}
}

// HandleMsg performs the active half of message handling: dispatch on the
// classification ReceiveMsg recorded.
//
// Ack path (msgIsAck): the outstanding slot is released. If the ring
// buffer holds data, the next word is popped and written to the wire
// immediately, leaving one word outstanding again. Returns 0.
//
// Data path: an end-of-transfer token is written back as acknowledgement
// and ReceivedData becomes valid. Returns 1.
func HandleMsg(channel Channel, state *State, buffer []uint32) uint32 {
	if state.msgIsAck {
		atomic.AddUint64(&state.stats().AcksReceived, 1)

		if DebugChecks && state.wordsToBeAcknowledged == 0 {
			Logf(LogWarn, "nbsp: unexpected ack")
		}

		state.wordsToBeAcknowledged = 0

		if state.readIndex != state.writeIndex {
			channel.OutputControlToken(CTData)
			channel.OutputWord(buffer[state.readIndex])
			state.readIndex = ringNext(state.readIndex, 1, state.bufferMask)
			state.wordsToBeAcknowledged = 1
			atomic.AddUint64(&state.stats().WordsSent, 1)
		}
		return 0
	}

	channel.OutputControlToken(endOfTransferToken)
	atomic.AddUint64(&state.stats().AcksSent, 1)
	return 1
}

// ReceivedData returns the payload of the most recently received data
// message. Undefined if the last HandleMsg call returned 0.
func ReceivedData(state *State) uint32 {
	return state.msgData
}

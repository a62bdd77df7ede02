package nbsp

// Sender and UDDWSender give the two variants distinct Go types so a
// channel committed to one cannot be accidentally driven with the other's
// operations. The underlying State is identical either way; only which
// operations are reachable differs. The free functions (Send, UDDWSend,
// ...) remain available directly for callers that manage the discipline
// themselves.

// Sender is a thin, normal-variant-only view over a *State.
type Sender struct {
	Channel Channel
	State   *State
	Buffer  []uint32
}

// NewSender wraps an already-initialised state for normal-variant use.
func NewSender(channel Channel, state *State, buffer []uint32) Sender {
	return Sender{Channel: channel, State: state, Buffer: buffer}
}

func (s Sender) Send(data uint32) uint32 { return Send(s.Channel, s.State, s.Buffer, data) }
func (s Sender) ReceiveMsg()             { ReceiveMsg(s.Channel, s.State) }
func (s Sender) HandleMsg() uint32       { return HandleMsg(s.Channel, s.State, s.Buffer) }
func (s Sender) ReceivedData() uint32    { return ReceivedData(s.State) }
func (s Sender) PendingWordsToSend() uint32 { return PendingWordsToSend(s.State) }
func (s Sender) SendingCapacity() uint32    { return SendingCapacity(s.State) }

// UDDWSender is a thin, UDDW-only view over a *State.
type UDDWSender struct {
	Channel Channel
	State   *State
	Buffer  []uint32
}

// NewUDDWSender wraps an already-initialised state for UDDW-variant use.
func NewUDDWSender(channel Channel, state *State, buffer []uint32) UDDWSender {
	return UDDWSender{Channel: channel, State: state, Buffer: buffer}
}

func (u UDDWSender) Send(data1, data2 uint32) uint32 {
	return UDDWSend(u.Channel, u.State, u.Buffer, data1, data2)
}
func (u UDDWSender) HandleAck() { UDDWHandleAck(u.Channel, u.State, u.Buffer) }
func (u UDDWSender) PendingWordsToSend() uint32 { return PendingWordsToSend(u.State) }
func (u UDDWSender) SendingCapacity() uint32    { return UDDWSendingCapacity(u.State) }

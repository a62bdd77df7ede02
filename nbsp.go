package nbsp

// CTData is the control token marking a normal-variant data message: the
// smallest application token value not reserved by the host transport.
const CTData byte = 0x5

// noBufferMask marks an endpoint initialised with buffer_size == 0: a pure
// receiver that must never attempt to enqueue.
const noBufferMask uint32 = 0xFFFFFFFF

// EndOfTransferToken is the host-provided control token emitted as an
// acknowledgement. Any token other than CTData is parsed as an ack by
// ReceiveMsg; this is simply the value our own transports write. Override
// it before use if a host transport reserves a different sentinel.
var endOfTransferToken byte = 0xFF

// EndOfTransferToken exposes the current ack token value for transports
// that need to recognise or configure it.
func EndOfTransferToken() byte { return endOfTransferToken }

// SetEndOfTransferToken overrides the ack token emitted by HandleMsg and
// UDDWReceive. It is process-wide and should be set once at startup,
// before any Channel is driven.
func SetEndOfTransferToken(token byte) { endOfTransferToken = token }

// Channel is the transport collaborator an endpoint is driven through. It
// carries exactly the four primitives treated as external: one
// control-token byte and one 32-bit word in each direction. Implementations
// live in the transport subpackage (UDP, in-process pipe, cipher-wrapped);
// the state machine in this package never assumes anything about how they
// are realised.
type Channel interface {
	InputControlToken() byte
	InputWord() uint32
	OutputControlToken(byte)
	OutputWord(uint32)
}

// State is one endpoint's protocol state: the Go name for the C header's
// t_nbsp_state. Both the state and the Buffer passed to the operations
// below are owned by the caller; State never retains a reference to either
// beyond the call it was passed to.
type State struct {
	msgIsAck bool
	msgData  uint32

	wordsToBeAcknowledged uint32

	readIndex  uint32
	writeIndex uint32
	bufferMask uint32

	// Stats, when non-nil, receives counters for this endpoint instead of
	// DefaultStats. Purely observational: never consulted by the protocol.
	Stats *Stats
}

// Init resets state and records the buffer size. bufferSizeInWords must be
// 0 (receive-only endpoint, never call Send) or a power of two >= 2; no
// channel I/O occurs.
func Init(state *State, bufferSizeInWords uint32) {
	state.msgIsAck = false
	state.msgData = 0
	state.wordsToBeAcknowledged = 0
	state.readIndex = 0
	state.writeIndex = 0
	if bufferSizeInWords == 0 {
		state.bufferMask = noBufferMask
	} else {
		state.bufferMask = bufferSizeInWords - 1
	}
}

func (s *State) hasBuffer() bool {
	return s.bufferMask != noBufferMask
}

func (s *State) stats() *Stats {
	if s.Stats != nil {
		return s.Stats
	}
	return DefaultStats
}

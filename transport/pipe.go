// Package transport provides concrete nbsp.Channel implementations: an
// in-process pipe for tests and same-process wiring, a UDP-backed
// channel for real networks, and a cipher-wrapping decorator.
package transport

import "time"

const pipeQueueDepth = 64

// PipeChannel is an in-memory, bidirectional nbsp.Channel endpoint. Use
// NewPipeChannelPair to obtain a connected pair.
type PipeChannel struct {
	outTokens chan byte
	outWords  chan uint32
	outReady  chan struct{}

	inTokens chan byte
	inWords  chan uint32
	inReady  chan struct{}
}

func newPipeEnd() (tokens chan byte, words chan uint32, ready chan struct{}) {
	return make(chan byte, pipeQueueDepth), make(chan uint32, pipeQueueDepth), make(chan struct{}, pipeQueueDepth)
}

// NewPipeChannelPair returns two PipeChannels wired to each other: output
// on one is input on the other, in both directions.
func NewPipeChannelPair() (a, b *PipeChannel) {
	abTokens, abWords, abReady := newPipeEnd()
	baTokens, baWords, baReady := newPipeEnd()

	a = &PipeChannel{
		outTokens: abTokens, outWords: abWords, outReady: abReady,
		inTokens: baTokens, inWords: baWords, inReady: baReady,
	}
	b = &PipeChannel{
		outTokens: baTokens, outWords: baWords, outReady: baReady,
		inTokens: abTokens, inWords: abWords, inReady: abReady,
	}
	return a, b
}

func (c *PipeChannel) OutputControlToken(b byte) {
	c.outTokens <- b
	c.outReady <- struct{}{}
}

func (c *PipeChannel) OutputWord(w uint32) { c.outWords <- w }
func (c *PipeChannel) InputControlToken() byte { return <-c.inTokens }
func (c *PipeChannel) InputWord() uint32       { return <-c.inWords }

// WaitReadable implements nbsp.Waiter: it blocks until the peer has
// written a control token (signalled via inReady, one signal per message)
// or deadline elapses. Draining inReady does not touch inTokens/inWords,
// so a subsequent InputControlToken/InputWord call still sees the data.
func (c *PipeChannel) WaitReadable(deadline time.Time) bool {
	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()
	select {
	case <-c.inReady:
		return true
	case <-timer.C:
		return false
	}
}

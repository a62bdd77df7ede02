package transport

import (
	"encoding/binary"
	"time"

	"github.com/xtaci/nbsp"
	"github.com/xtaci/nbsp/cipher"
)

// CipherChannel decorates any nbsp.Channel, encrypting the bytes of every
// primitive with a cipher.BlockCrypt before handing them to an inner
// channel and decrypting on the way back in. It implements nbsp.Channel
// itself, so the protocol state machine is never aware encryption is
// happening.
type CipherChannel struct {
	Inner nbsp.Channel
	Crypt cipher.BlockCrypt
}

// NewCipherChannel wraps inner so every token and word crossing it is
// encrypted with crypt.
func NewCipherChannel(inner nbsp.Channel, crypt cipher.BlockCrypt) *CipherChannel {
	return &CipherChannel{Inner: inner, Crypt: crypt}
}

func (c *CipherChannel) OutputControlToken(b byte) {
	var plain, enc [1]byte
	plain[0] = b
	c.Crypt.Encrypt(enc[:], plain[:])
	c.Inner.OutputControlToken(enc[0])
}

func (c *CipherChannel) InputControlToken() byte {
	var encBuf, dec [1]byte
	encBuf[0] = c.Inner.InputControlToken()
	c.Crypt.Decrypt(dec[:], encBuf[:])
	return dec[0]
}

func (c *CipherChannel) OutputWord(w uint32) {
	var plain, enc [4]byte
	binary.LittleEndian.PutUint32(plain[:], w)
	c.Crypt.Encrypt(enc[:], plain[:])
	c.Inner.OutputWord(binary.LittleEndian.Uint32(enc[:]))
}

func (c *CipherChannel) InputWord() uint32 {
	var encBuf, dec [4]byte
	binary.LittleEndian.PutUint32(encBuf[:], c.Inner.InputWord())
	c.Crypt.Decrypt(dec[:], encBuf[:])
	return binary.LittleEndian.Uint32(dec[:])
}

// WaitReadable passes through to Inner when it supports nbsp.Waiter;
// otherwise it degrades to a plain deadline check, the same fallback
// nbsp.HandleOutgoingTraffic applies to any non-Waiter channel.
func (c *CipherChannel) WaitReadable(deadline time.Time) bool {
	if w, ok := c.Inner.(nbsp.Waiter); ok {
		return w.WaitReadable(deadline)
	}
	return time.Now().Before(deadline)
}

// Package cipher provides whole-datagram encryption for an nbsp.Channel's
// wire bytes, applied below the protocol so the state machine in package
// nbsp never becomes aware encryption is in effect.
package cipher

import (
	stdaes "crypto/aes"
	stdcipher "crypto/cipher"

	"github.com/templexxx/xor"
	"github.com/tjfoc/gmsm/sm4"
	"golang.org/x/crypto/blowfish"
	"golang.org/x/crypto/salsa20"
	"golang.org/x/crypto/twofish"
)

// initialVector seeds the local CFB-style keystream below; it is not a
// secret, only a fixed starting point.
var initialVector = []byte{167, 115, 79, 156, 18, 172, 27, 1, 164, 21, 242, 193, 252, 120, 230, 107}

// BlockCrypt encrypts or decrypts a whole buffer in place. Implementations
// embed any nonce the caller wants at a fixed offset agreed out of band;
// BlockCrypt itself is nonce-agnostic.
type BlockCrypt interface {
	// Encrypt encrypts the whole of src into dst. dst and src may overlap.
	Encrypt(dst, src []byte)
	// Decrypt decrypts the whole of src into dst. dst and src may overlap.
	Decrypt(dst, src []byte)
}

// keystream derives the first block of keystream from the fixed
// initialVector into buf[:block.BlockSize()].
//
// encrypt/decrypt below chain it CFB-style, as the teacher's crypt.go
// does: every further block of keystream is the encryption of the
// previous ciphertext block. nbsp's own wire buffers (a 1-byte control
// token or a 4-byte word) are shorter than every block size here, so for
// them only this first block is ever used.
func keystream(block stdcipher.Block, buf []byte) []byte {
	tbl := buf[:block.BlockSize()]
	block.Encrypt(tbl, initialVector)
	return tbl
}

func encrypt(block stdcipher.Block, dst, src, buf []byte) {
	tbl := keystream(block, buf)
	bs := len(tbl)
	base := 0
	for ; len(src)-base > bs; base += bs {
		xor.BytesSrc0(dst[base:], src[base:base+bs], tbl)
		block.Encrypt(tbl, dst[base:base+bs])
	}
	xor.BytesSrc0(dst[base:], src[base:], tbl)
}

func decrypt(block stdcipher.Block, dst, src, buf []byte) {
	tbl := keystream(block, buf)
	bs := len(tbl)
	base := 0
	for ; len(src)-base > bs; base += bs {
		xor.BytesSrc0(dst[base:], src[base:base+bs], tbl)
		// recover the ciphertext block into tbl, so dst may alias src
		xor.BytesSrc0(tbl, dst[base:base+bs], tbl)
		block.Encrypt(tbl, tbl)
	}
	xor.BytesSrc0(dst[base:], src[base:], tbl)
}

type aesBlockCrypt struct {
	encbuf []byte
	decbuf []byte
	block  stdcipher.Block
}

// NewAESBlockCrypt builds a BlockCrypt from an AES key (16, 24 or 32 bytes).
func NewAESBlockCrypt(key []byte) (BlockCrypt, error) {
	block, err := stdaes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return &aesBlockCrypt{
		block:  block,
		encbuf: make([]byte, stdaes.BlockSize),
		decbuf: make([]byte, stdaes.BlockSize),
	}, nil
}

func (c *aesBlockCrypt) Encrypt(dst, src []byte) { encrypt(c.block, dst, src, c.encbuf) }
func (c *aesBlockCrypt) Decrypt(dst, src []byte) { decrypt(c.block, dst, src, c.decbuf) }

type sm4BlockCrypt struct {
	encbuf []byte
	decbuf []byte
	block  stdcipher.Block
}

// NewSM4BlockCrypt builds a BlockCrypt from a 16-byte SM4 key.
func NewSM4BlockCrypt(key []byte) (BlockCrypt, error) {
	block, err := sm4.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return &sm4BlockCrypt{
		block:  block,
		encbuf: make([]byte, sm4.BlockSize),
		decbuf: make([]byte, sm4.BlockSize),
	}, nil
}

func (c *sm4BlockCrypt) Encrypt(dst, src []byte) { encrypt(c.block, dst, src, c.encbuf) }
func (c *sm4BlockCrypt) Decrypt(dst, src []byte) { decrypt(c.block, dst, src, c.decbuf) }

type twofishBlockCrypt struct {
	encbuf []byte
	decbuf []byte
	block  stdcipher.Block
}

// NewTwofishBlockCrypt builds a BlockCrypt from a Twofish key.
func NewTwofishBlockCrypt(key []byte) (BlockCrypt, error) {
	block, err := twofish.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return &twofishBlockCrypt{
		block:  block,
		encbuf: make([]byte, twofish.BlockSize),
		decbuf: make([]byte, twofish.BlockSize),
	}, nil
}

func (c *twofishBlockCrypt) Encrypt(dst, src []byte) { encrypt(c.block, dst, src, c.encbuf) }
func (c *twofishBlockCrypt) Decrypt(dst, src []byte) { decrypt(c.block, dst, src, c.decbuf) }

type blowfishBlockCrypt struct {
	encbuf []byte
	decbuf []byte
	block  stdcipher.Block
}

// NewBlowfishBlockCrypt builds a BlockCrypt from a Blowfish key.
func NewBlowfishBlockCrypt(key []byte) (BlockCrypt, error) {
	block, err := blowfish.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return &blowfishBlockCrypt{
		block:  block,
		encbuf: make([]byte, blowfish.BlockSize),
		decbuf: make([]byte, blowfish.BlockSize),
	}, nil
}

func (c *blowfishBlockCrypt) Encrypt(dst, src []byte) { encrypt(c.block, dst, src, c.encbuf) }
func (c *blowfishBlockCrypt) Decrypt(dst, src []byte) { decrypt(c.block, dst, src, c.decbuf) }

type salsa20BlockCrypt struct {
	key [32]byte
}

// NewSalsa20BlockCrypt builds a BlockCrypt from a 32-byte Salsa20 key. Unlike
// the teacher's variant (which reserves the first 8 bytes of each packet as
// an in-band nonce, viable only because KCP packets are always well over
// 8 bytes), this one keys the stream off the fixed initialVector like the
// block-cipher variants above: nbsp's wire buffers are as small as 1 byte
// (a control token), too short to carry an in-band nonce.
func NewSalsa20BlockCrypt(key []byte) (BlockCrypt, error) {
	c := new(salsa20BlockCrypt)
	copy(c.key[:], key)
	return c, nil
}

func (c *salsa20BlockCrypt) Encrypt(dst, src []byte) {
	salsa20.XORKeyStream(dst, src, initialVector[:8], &c.key)
}

func (c *salsa20BlockCrypt) Decrypt(dst, src []byte) {
	salsa20.XORKeyStream(dst, src, initialVector[:8], &c.key)
}

package transport

import (
	"bufio"
	"encoding/binary"
	"io"
	"net"
	"time"

	"github.com/pkg/errors"
)

// UDPChannel is an nbsp.Channel backed by a connected *net.UDPConn: one
// byte per control token, four little-endian bytes per word. UDP does not
// guarantee delivery or ordering, and the channel itself does not recover
// lost or reordered datagrams. It wraps a *net.UDPConn only, so it cannot
// be layered over the fec package's Conn.
type UDPChannel struct {
	conn *net.UDPConn
	br   *bufio.Reader
}

// NewUDPChannel wraps an already-connected UDP socket.
func NewUDPChannel(conn *net.UDPConn) *UDPChannel {
	return &UDPChannel{conn: conn, br: bufio.NewReader(conn)}
}

// DialUDPChannel resolves raddr and dials a connected UDP socket.
func DialUDPChannel(raddr string) (*UDPChannel, error) {
	addr, err := net.ResolveUDPAddr("udp", raddr)
	if err != nil {
		return nil, errors.Wrap(err, "nbsp/transport: resolve udp addr")
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, errors.Wrap(err, "nbsp/transport: dial udp")
	}
	return NewUDPChannel(conn), nil
}

// Close releases the underlying socket.
func (c *UDPChannel) Close() error { return c.conn.Close() }

func (c *UDPChannel) InputControlToken() byte {
	b, err := c.br.ReadByte()
	if err != nil {
		panic(errors.Wrap(err, "nbsp/transport: read control token"))
	}
	return b
}

func (c *UDPChannel) InputWord() uint32 {
	var buf [4]byte
	if _, err := io.ReadFull(c.br, buf[:]); err != nil {
		panic(errors.Wrap(err, "nbsp/transport: read word"))
	}
	return binary.LittleEndian.Uint32(buf[:])
}

func (c *UDPChannel) OutputControlToken(b byte) {
	if _, err := c.conn.Write([]byte{b}); err != nil {
		panic(errors.Wrap(err, "nbsp/transport: write control token"))
	}
}

func (c *UDPChannel) OutputWord(w uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], w)
	if _, err := c.conn.Write(buf[:]); err != nil {
		panic(errors.Wrap(err, "nbsp/transport: write word"))
	}
}

// WaitReadable implements nbsp.Waiter via a read deadline plus a
// non-consuming Peek, so a timed-out peek never drops the byte it was
// checking for.
func (c *UDPChannel) WaitReadable(deadline time.Time) bool {
	c.conn.SetReadDeadline(deadline)
	_, err := c.br.Peek(1)
	c.conn.SetReadDeadline(time.Time{})
	return err == nil
}

// ListenUDPChannel is an nbsp.Channel for the listening side of a UDP
// server. net.ListenUDP's socket is unconnected: replying with Write (as
// UDPChannel does) fails with "destination address required", so this
// type tracks the peer address learned from ReadFromUDP and replies with
// WriteToUDP instead, the same ReadFrom/WriteTo pairing the teacher's own
// sample/udp-server/main.go uses.
//
// ListenUDPChannel assumes a single active peer: every inbound primitive
// updates the tracked peer to whoever most recently sent a datagram,
// matching this module's one-conversation-per-socket demo usage. A
// server multiplexing several peers on one socket must demultiplex by
// source address itself (see the registry package) and drive one
// ListenUDPChannel per peer, or an equivalent that looks the peer up
// instead of tracking a single one.
type ListenUDPChannel struct {
	conn *net.UDPConn
	peer *net.UDPAddr
}

// NewListenUDPChannel wraps an already-listening UDP socket.
func NewListenUDPChannel(conn *net.UDPConn) *ListenUDPChannel {
	return &ListenUDPChannel{conn: conn}
}

// readExact reads one datagram and requires it to be exactly want bytes:
// nbsp's primitives never straddle a datagram boundary, since the peer's
// UDPChannel writes exactly one control token or one word per Write call.
func (c *ListenUDPChannel) readExact(want int) []byte {
	buf := make([]byte, 512)
	n, addr, err := c.conn.ReadFromUDP(buf)
	if err != nil {
		panic(errors.Wrap(err, "nbsp/transport: read from udp"))
	}
	if n != want {
		panic(errors.Errorf("nbsp/transport: read %d bytes from %v, want %d", n, addr, want))
	}
	c.peer = addr
	return buf[:n]
}

func (c *ListenUDPChannel) InputControlToken() byte {
	return c.readExact(1)[0]
}

func (c *ListenUDPChannel) InputWord() uint32 {
	return binary.LittleEndian.Uint32(c.readExact(4))
}

func (c *ListenUDPChannel) OutputControlToken(b byte) {
	if c.peer == nil {
		panic("nbsp/transport: ListenUDPChannel.OutputControlToken before any peer was seen")
	}
	if _, err := c.conn.WriteToUDP([]byte{b}, c.peer); err != nil {
		panic(errors.Wrap(err, "nbsp/transport: write control token"))
	}
}

func (c *ListenUDPChannel) OutputWord(w uint32) {
	if c.peer == nil {
		panic("nbsp/transport: ListenUDPChannel.OutputWord before any peer was seen")
	}
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], w)
	if _, err := c.conn.WriteToUDP(buf[:], c.peer); err != nil {
		panic(errors.Wrap(err, "nbsp/transport: write word"))
	}
}

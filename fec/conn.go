// Package fec adds Reed-Solomon forward error correction under a lossy
// net.PacketConn. Conn is itself a net.PacketConn; none of the Channel
// types in the transport package is constructed over one (UDPChannel and
// ListenUDPChannel wrap a *net.UDPConn).
package fec

import (
	"encoding/binary"
	"net"
	"sync"
	"time"

	"github.com/klauspost/reedsolomon"
	"github.com/pkg/errors"
	"github.com/templexxx/xor"
)

// headerSize is groupID(4) + shardIndex(1) + payloadLength(1), grouped
// per-shard rather than per-stream-sequence since nbsp traffic is whole
// small messages, not a byte stream. The payloadLength byte is part of the
// parity-protected region, so a reconstructed data shard keeps its length.
const headerSize = 6

// maxPendingGroups bounds how many incomplete FEC groups are held
// awaiting enough shards to reconstruct.
const maxPendingGroups = 64

// Conn wraps a net.PacketConn, grouping DataShards payload packets with
// ParityShards parity packets per FEC group (shardSize = DataShards +
// ParityShards total) via github.com/klauspost/reedsolomon. A group
// survives up to ParityShards lost shards; more than that and the whole
// group's still-missing data packets are dropped once no more shards for
// it will ever arrive.
type Conn struct {
	pc net.PacketConn

	dataShards, parityShards, shardSize, shardBytes int
	enc                                              reedsolomon.Encoder

	mu       sync.Mutex
	group    uint32
	outGroup [][]byte
	outCache [][]byte
	outFilled int
	peer     net.Addr

	rxGroups map[uint32]*rxGroup
	pending  []decodedPacket
	scratch  []byte
}

type rxGroup struct {
	shards [][]byte
	have   int
}

type decodedPacket struct {
	data []byte
	addr net.Addr
}

// NewConn builds a Conn over pc. shardBytes must be at least headerSize
// plus the largest payload ever passed to WriteTo (nbsp's transport
// layer never writes more than 4 bytes per call, so 16 is ample headroom).
func NewConn(pc net.PacketConn, dataShards, parityShards, shardBytes int) (*Conn, error) {
	enc, err := reedsolomon.New(dataShards, parityShards, reedsolomon.WithMaxGoroutines(1))
	if err != nil {
		return nil, errors.Wrap(err, "fec: build reedsolomon encoder")
	}

	shardSize := dataShards + parityShards
	c := &Conn{
		pc:           pc,
		dataShards:   dataShards,
		parityShards: parityShards,
		shardSize:    shardSize,
		shardBytes:   shardBytes,
		enc:          enc,
		outGroup:     make([][]byte, shardSize),
		outCache:     make([][]byte, shardSize),
		rxGroups:     make(map[uint32]*rxGroup),
		scratch:      make([]byte, shardBytes),
	}
	for i := range c.outGroup {
		c.outGroup[i] = make([]byte, shardBytes)
	}
	return c, nil
}

// WriteTo buffers p as the next data shard of the current group, flushing
// the whole group (data + freshly computed parity shards) to the
// underlying PacketConn once DataShards payloads have accumulated.
func (c *Conn) WriteTo(p []byte, addr net.Addr) (int, error) {
	if len(p) > c.shardBytes-headerSize {
		return 0, errors.Errorf("fec: payload of %d bytes exceeds shard capacity", len(p))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.peer = addr
	shard := c.outGroup[c.outFilled]
	n := copy(shard[headerSize:], p)
	tail := shard[headerSize+n:]
	xor.Bytes(tail, tail, tail) // zero any leftovers from the prior group

	binary.LittleEndian.PutUint32(shard[:4], c.group)
	shard[4] = byte(c.outFilled)
	shard[5] = byte(n)
	c.outFilled++

	if c.outFilled == c.dataShards {
		if err := c.flushGroupLocked(); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

func (c *Conn) flushGroupLocked() error {
	for k := range c.outCache {
		c.outCache[k] = c.outGroup[k][headerSize-1:]
	}
	for k := c.dataShards; k < c.shardSize; k++ {
		xor.Bytes(c.outCache[k], c.outCache[k], c.outCache[k])
	}

	if err := c.enc.Encode(c.outCache); err != nil {
		return errors.Wrap(err, "fec: encode parity shards")
	}

	for k := c.dataShards; k < c.shardSize; k++ {
		binary.LittleEndian.PutUint32(c.outGroup[k][:4], c.group)
		c.outGroup[k][4] = byte(k)
	}

	for k := 0; k < c.shardSize; k++ {
		if _, err := c.pc.WriteTo(c.outGroup[k], c.peer); err != nil {
			return errors.Wrap(err, "fec: write shard")
		}
	}

	c.group++
	c.outFilled = 0
	return nil
}

// ReadFrom returns the next recovered application payload: either one
// that arrived as a data shard directly, or one reconstructed from
// parity once enough of its group's shards were seen.
func (c *Conn) ReadFrom(p []byte) (int, net.Addr, error) {
	for {
		c.mu.Lock()
		if len(c.pending) > 0 {
			pkt := c.pending[0]
			c.pending = c.pending[1:]
			c.mu.Unlock()
			return copy(p, pkt.data), pkt.addr, nil
		}
		c.mu.Unlock()

		if err := c.readShard(); err != nil {
			return 0, nil, err
		}
	}
}

func (c *Conn) readShard() error {
	n, addr, err := c.pc.ReadFrom(c.scratch)
	if err != nil {
		return errors.Wrap(err, "fec: read shard")
	}
	if n != c.shardBytes {
		return nil // malformed shard, drop silently
	}

	groupID := binary.LittleEndian.Uint32(c.scratch[:4])
	idx := int(c.scratch[4])
	if idx < 0 || idx >= c.shardSize {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	g, ok := c.rxGroups[groupID]
	if !ok {
		if len(c.rxGroups) >= maxPendingGroups {
			c.evictOldestGroupLocked()
		}
		g = &rxGroup{shards: make([][]byte, c.shardSize)}
		c.rxGroups[groupID] = g
	}
	if g.shards[idx] == nil {
		cp := make([]byte, c.shardBytes)
		copy(cp, c.scratch)
		g.shards[idx] = cp
		g.have++
	}

	if g.have >= c.dataShards {
		c.resolveGroupLocked(groupID, g, addr)
	}
	return nil
}

func (c *Conn) resolveGroupLocked(groupID uint32, g *rxGroup, addr net.Addr) {
	complete := true
	for k := 0; k < c.dataShards; k++ {
		if g.shards[k] == nil {
			complete = false
			break
		}
	}

	if !complete {
		payloads := make([][]byte, c.shardSize)
		for k, shard := range g.shards {
			if shard != nil {
				payloads[k] = shard[headerSize-1:]
			}
		}
		if err := c.enc.Reconstruct(payloads); err != nil {
			return // unrecoverable this round; keep waiting for more shards
		}
		for k := 0; k < c.dataShards; k++ {
			if g.shards[k] == nil {
				rebuilt := make([]byte, c.shardBytes)
				binary.LittleEndian.PutUint32(rebuilt[:4], groupID)
				rebuilt[4] = byte(k)
				copy(rebuilt[headerSize-1:], payloads[k])
				g.shards[k] = rebuilt
			}
		}
	}

	for k := 0; k < c.dataShards; k++ {
		shard := g.shards[k]
		length := int(shard[5])
		data := make([]byte, length)
		copy(data, shard[headerSize:headerSize+length])
		c.pending = append(c.pending, decodedPacket{data: data, addr: addr})
	}
	delete(c.rxGroups, groupID)
}

func (c *Conn) evictOldestGroupLocked() {
	for id := range c.rxGroups {
		delete(c.rxGroups, id)
		return
	}
}

func (c *Conn) Close() error                       { return c.pc.Close() }
func (c *Conn) LocalAddr() net.Addr                { return c.pc.LocalAddr() }
func (c *Conn) SetDeadline(t time.Time) error      { return c.pc.SetDeadline(t) }
func (c *Conn) SetReadDeadline(t time.Time) error  { return c.pc.SetReadDeadline(t) }
func (c *Conn) SetWriteDeadline(t time.Time) error { return c.pc.SetWriteDeadline(t) }

package transport

import (
	"net"
	"testing"

	"github.com/xtaci/nbsp"
)

// TestUDPChannelListenDialRoundTrip drives a real UDPChannel (dialed
// client) against a real ListenUDPChannel (listening server) over
// loopback UDP sockets. It exists because the connection-oriented
// UDPChannel and the listen-side ListenUDPChannel are easy to mix up at
// the call site: wiring the wrong one into a net.ListenUDP socket panics
// on the first reply with "destination address required", and only a
// test that exercises both sides together over an actual socket catches
// that.
func TestUDPChannelListenDialRoundTrip(t *testing.T) {
	serverConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	defer serverConn.Close()

	clientChannel, err := DialUDPChannel(serverConn.LocalAddr().String())
	if err != nil {
		t.Fatalf("DialUDPChannel: %v", err)
	}
	defer clientChannel.Close()

	serverChannel := NewListenUDPChannel(serverConn)

	var clientState, serverState nbsp.State
	nbsp.Init(&clientState, 4)
	nbsp.Init(&serverState, 0)
	clientBuf := make([]uint32, 4)

	done := make(chan struct{})
	go func() {
		nbsp.ReceiveMsg(serverChannel, &serverState)
		nbsp.HandleMsg(serverChannel, &serverState, nil)
		close(done)
	}()

	if got := nbsp.Send(clientChannel, &clientState, clientBuf, 0xFEEDFACE); got != 1 {
		t.Fatalf("Send = %d, want 1", got)
	}
	<-done

	if got := nbsp.ReceivedData(&serverState); got != 0xFEEDFACE {
		t.Fatalf("server ReceivedData = %#x, want 0xFEEDFACE", got)
	}

	nbsp.ReceiveMsg(clientChannel, &clientState)
	nbsp.HandleMsg(clientChannel, &clientState, clientBuf)
	if got := nbsp.PendingWordsToSend(&clientState); got != 0 {
		t.Fatalf("client PendingWordsToSend after ack = %d, want 0", got)
	}
}

// TestListenUDPChannelOutputBeforeInputPanics documents that a
// ListenUDPChannel has no peer to reply to until it has received at
// least one datagram.
func TestListenUDPChannelOutputBeforeInputPanics(t *testing.T) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	defer conn.Close()

	channel := NewListenUDPChannel(conn)

	defer func() {
		if recover() == nil {
			t.Fatalf("OutputControlToken before any Input call did not panic")
		}
	}()
	channel.OutputControlToken(nbsp.EndOfTransferToken())
}

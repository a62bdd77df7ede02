// Command nbsp-echo is a minimal demonstration of the normal NBSP variant
// running over a real UDP socket: a server that acknowledges and prints
// every word it receives (it sends no data back, only the ack), and a
// client that sends a run of words and prints each word's round-trip time.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/xtaci/nbsp"
	"github.com/xtaci/nbsp/cipher"
	"github.com/xtaci/nbsp/transport"
)

var (
	mode       = flag.String("mode", "server", "server or client")
	listenAddr = flag.String("listen", "127.0.0.1:7900", "listen address (server mode)")
	targetAddr = flag.String("target", "127.0.0.1:7900", "target address (client mode)")
	count      = flag.Uint("count", 10, "number of words to send (client mode)")
	cryptName  = flag.String("crypt", "none", "wire cipher: none, aes, sm4, twofish, blowfish, salsa20")
	keyHex     = flag.String("key", "", "hex-encoded cipher key; generated and printed if empty")
)

func main() {
	flag.Parse()

	switch *mode {
	case "server":
		runServer(*listenAddr)
	case "client":
		runClient(*targetAddr, uint32(*count))
	default:
		log.Fatalf("nbsp-echo: unknown mode %q, want server or client", *mode)
	}
}

// wrapCrypt decorates channel with a transport.CipherChannel when -crypt
// names a cipher other than "none", printing the key used so it can be
// copied to the peer process's -key flag.
func wrapCrypt(channel nbsp.Channel) nbsp.Channel {
	if *cryptName == "none" {
		return channel
	}

	keySize := map[string]int{"aes": 32, "sm4": 16, "twofish": 32, "blowfish": 16, "salsa20": 32}[*cryptName]
	if keySize == 0 {
		log.Fatalf("nbsp-echo: unknown -crypt %q", *cryptName)
	}

	key, err := hex.DecodeString(*keyHex)
	if *keyHex == "" || err != nil || len(key) != keySize {
		key = cipher.RandomKey(keySize)
		fmt.Printf("nbsp-echo: generated %s key, pass to the peer with -key=%s\n", *cryptName, hex.EncodeToString(key))
	}

	var bc cipher.BlockCrypt
	switch *cryptName {
	case "aes":
		bc, err = cipher.NewAESBlockCrypt(key)
	case "sm4":
		bc, err = cipher.NewSM4BlockCrypt(key)
	case "twofish":
		bc, err = cipher.NewTwofishBlockCrypt(key)
	case "blowfish":
		bc, err = cipher.NewBlowfishBlockCrypt(key)
	case "salsa20":
		bc, err = cipher.NewSalsa20BlockCrypt(key)
	}
	if err != nil {
		log.Fatalf("nbsp-echo: build %s cipher: %v", *cryptName, err)
	}
	return transport.NewCipherChannel(channel, bc)
}

func runServer(addr string) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		log.Fatalf("nbsp-echo: resolve %s: %v", addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		log.Fatalf("nbsp-echo: listen %s: %v", addr, err)
	}
	defer conn.Close()

	fmt.Println("nbsp-echo: listening on", conn.LocalAddr())

	// conn is unconnected (net.ListenUDP, not net.DialUDP), so acks must go
	// out via WriteToUDP to whichever address the last datagram came from;
	// transport.UDPChannel assumes a connected socket and would panic on
	// the first ack. transport.ListenUDPChannel is the listen-side variant.
	channel := wrapCrypt(transport.NewListenUDPChannel(conn))
	var state nbsp.State
	nbsp.Init(&state, 0) // receive-only: never calls Send
	buffer := []uint32(nil)

	for {
		nbsp.ReceiveMsg(channel, &state)
		if nbsp.HandleMsg(channel, &state, buffer) == 1 {
			fmt.Printf("nbsp-echo: received %#x, acked\n", nbsp.ReceivedData(&state))
		}
	}
}

func runClient(addr string, n uint32) {
	udpChannel, err := transport.DialUDPChannel(addr)
	if err != nil {
		log.Fatalf("nbsp-echo: dial %s: %v", addr, err)
	}
	defer udpChannel.Close()
	channel := wrapCrypt(udpChannel)

	const bufferWords = 8
	var state nbsp.State
	nbsp.Init(&state, bufferWords)
	buffer := make([]uint32, bufferWords)

	for i := uint32(0); i < n; i++ {
		start := time.Now()
		if nbsp.Send(channel, &state, buffer, i) == 0 {
			fmt.Printf("nbsp-echo: send buffer full at word %d, dropped\n", i)
			continue
		}
		nbsp.ReceiveMsg(channel, &state)
		nbsp.HandleMsg(channel, &state, buffer)
		fmt.Printf("nbsp-echo: word %d round-trip in %v\n", i, time.Since(start))
	}

	nbsp.Flush(channel, &state, buffer)
	fmt.Println("nbsp-echo: flushed, exiting")
}

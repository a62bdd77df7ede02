package transport

import (
	"testing"
	"time"

	"github.com/xtaci/nbsp"
)

func TestPipeChannelRoundTrip(t *testing.T) {
	a, b := NewPipeChannelPair()
	var stateA, stateB nbsp.State
	nbsp.Init(&stateA, 4)
	nbsp.Init(&stateB, 4)
	bufA := make([]uint32, 4)
	bufB := make([]uint32, 4)

	done := make(chan struct{})
	go func() {
		nbsp.ReceiveMsg(b, &stateB)
		nbsp.HandleMsg(b, &stateB, bufB)
		close(done)
	}()

	if got := nbsp.Send(a, &stateA, bufA, 0xCAFEBABE); got != 1 {
		t.Fatalf("Send = %d, want 1", got)
	}
	<-done

	if got := nbsp.ReceivedData(&stateB); got != 0xCAFEBABE {
		t.Fatalf("ReceivedData = %#x, want 0xCAFEBABE", got)
	}

	nbsp.Flush(a, &stateA, bufA)
	if got := nbsp.PendingWordsToSend(&stateA); got != 0 {
		t.Fatalf("PendingWordsToSend after Flush = %d, want 0", got)
	}
}

func TestPipeChannelWaitReadableTimesOut(t *testing.T) {
	a, _ := NewPipeChannelPair()
	deadline := time.Now().Add(20 * time.Millisecond)
	if a.WaitReadable(deadline) {
		t.Fatalf("WaitReadable on an idle pipe returned true before anything was sent")
	}
}

func TestPipeChannelWaitReadableSeesWrite(t *testing.T) {
	a, b := NewPipeChannelPair()
	go func() {
		time.Sleep(5 * time.Millisecond)
		a.OutputControlToken(nbsp.CTData)
		a.OutputWord(42)
	}()

	if !b.WaitReadable(time.Now().Add(2 * time.Second)) {
		t.Fatalf("WaitReadable timed out waiting for a message that was sent")
	}
	if got := b.InputControlToken(); got != nbsp.CTData {
		t.Fatalf("InputControlToken = %#x, want CTData", got)
	}
	if got := b.InputWord(); got != 42 {
		t.Fatalf("InputWord = %d, want 42", got)
	}
}

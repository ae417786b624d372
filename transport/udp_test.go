package transport

import (
	"net"
	"sync"
	"testing"
	"time"
)

func TestBindAssignsEphemeralPort(t *testing.T) {
	s, err := Bind("127.0.0.1", 0)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	defer s.Stop()
	if s.LocalPort == 0 {
		t.Fatal("expected a non-zero ephemeral port after bind")
	}
}

func TestSendAndReceiveRoundTrip(t *testing.T) {
	server, err := Bind("127.0.0.1", 0)
	if err != nil {
		t.Fatalf("Bind server: %v", err)
	}
	defer server.Stop()

	client, err := Bind("127.0.0.1", 0)
	if err != nil {
		t.Fatalf("Bind client: %v", err)
	}
	defer client.Stop()

	received := make(chan string, 1)
	if err := server.Start(func(data []byte, from *net.UDPAddr) {
		received <- string(data)
	}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	dest := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: server.LocalPort}
	if err := client.Send([]byte("hello"), dest); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case got := <-received:
		if got != "hello" {
			t.Fatalf("expected %q, got %q", "hello", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for datagram")
	}
}

func TestStartTwiceRejected(t *testing.T) {
	s, err := Bind("127.0.0.1", 0)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	defer s.Stop()

	noop := func([]byte, *net.UDPAddr) {}
	if err := s.Start(noop); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := s.Start(noop); err == nil {
		t.Fatal("expected second Start to be rejected")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	s, err := Bind("127.0.0.1", 0)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if err := s.Start(func([]byte, *net.UDPAddr) {}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	var wg sync.WaitGroup
	wg.Add(2)
	for i := 0; i < 2; i++ {
		go func() {
			defer wg.Done()
			_ = s.Stop()
		}()
	}
	wg.Wait()
}

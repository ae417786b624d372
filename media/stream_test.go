package media

import (
	"net"
	"testing"
	"time"

	"github.com/pion/rtp"
)

func TestStreamWriteProducesValidRTPPacket(t *testing.T) {
	server, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket server: %v", err)
	}
	defer server.Close()

	client, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket client: %v", err)
	}
	defer client.Close()

	s := NewStream(client, server.LocalAddr(), CodecPCMU)
	defer s.Close()

	payload := make([]byte, CodecPCMU.SamplesPerFrame())
	if _, err := s.Write(payload); err != nil {
		t.Fatalf("Write: %v", err)
	}

	buf := make([]byte, 1500)
	_ = server.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := server.ReadFrom(buf)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}

	var pkt rtp.Packet
	if err := pkt.Unmarshal(buf[:n]); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if pkt.PayloadType != CodecPCMU.PayloadType {
		t.Fatalf("expected payload type %d, got %d", CodecPCMU.PayloadType, pkt.PayloadType)
	}
	if pkt.SSRC != s.SSRC() {
		t.Fatalf("expected packet SSRC to match stream SSRC")
	}
}

func TestStreamWriteAfterCloseFails(t *testing.T) {
	client, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket: %v", err)
	}
	defer client.Close()

	remote := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 9}
	s := NewStream(client, remote, CodecPCMU)
	_ = s.Close()

	if _, err := s.Write(make([]byte, 160)); err == nil {
		t.Fatal("expected write after close to fail")
	}
}

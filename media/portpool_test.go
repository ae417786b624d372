package media

import "testing"

func TestPortPoolAllocatesEvenRTPWithOddRTCP(t *testing.T) {
	p := NewPortPool(7078, 7082)
	rtp, rtcp, err := p.Allocate()
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if rtp%2 != 0 {
		t.Fatalf("expected even RTP port, got %d", rtp)
	}
	if rtcp != rtp+1 {
		t.Fatalf("expected RTCP port to be RTP+1, got rtp=%d rtcp=%d", rtp, rtcp)
	}
}

func TestPortPoolExhaustion(t *testing.T) {
	p := NewPortPool(7078, 7080)
	if _, _, err := p.Allocate(); err != nil {
		t.Fatalf("first Allocate: %v", err)
	}
	if _, _, err := p.Allocate(); err == nil {
		t.Fatal("expected exhaustion error on second Allocate")
	}
}

func TestPortPoolReleaseMakesPortAvailableAgain(t *testing.T) {
	p := NewPortPool(7078, 7080)
	rtp, _, err := p.Allocate()
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if p.Available() != 0 {
		t.Fatalf("expected pool exhausted, got %d available", p.Available())
	}
	p.Release(rtp)
	if p.Available() != 1 {
		t.Fatalf("expected port back in pool, got %d available", p.Available())
	}
}

package sip

import (
	"strconv"
	"testing"
)

func TestParseRegisterChallenge(t *testing.T) {
	raw := "SIP/2.0 401 Unauthorized\r\n" +
		"Via: SIP/2.0/UDP 192.168.1.10:5060;branch=z9hG4bKabc123\r\n" +
		"From: <sip:alice@example.net>;tag=111\r\n" +
		"To: <sip:alice@example.net>;tag=222\r\n" +
		"Call-ID: abc@192.168.1.10:5060\r\n" +
		"CSeq: 1 REGISTER\r\n" +
		"WWW-Authenticate: Digest realm=\"asterisk\", nonce=\"abc123\"\r\n" +
		"Content-Length: 0\r\n\r\n"

	msg, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !msg.IsResponse || msg.StatusCode != 401 {
		t.Fatalf("expected 401 response, got %+v", msg)
	}
	if msg.Headers.WWWAuthN["realm"] != "asterisk" || msg.Headers.WWWAuthN["nonce"] != "abc123" {
		t.Fatalf("unexpected auth params: %+v", msg.Headers.WWWAuthN)
	}
	if msg.Headers.From.Tag != "111" || msg.Headers.To.Tag != "222" {
		t.Fatalf("unexpected tags: from=%q to=%q", msg.Headers.From.Tag, msg.Headers.To.Tag)
	}
}

func TestParseViaRportReceived(t *testing.T) {
	raw := "SIP/2.0 200 OK\r\n" +
		"Via: SIP/2.0/UDP 10.0.0.5:5060;branch=z9hG4bKfoo;received=203.0.113.5;rport=40001\r\n" +
		"From: <sip:alice@example.net>;tag=111\r\n" +
		"To: <sip:alice@example.net>;tag=222\r\n" +
		"Call-ID: abc@10.0.0.5:5060\r\n" +
		"CSeq: 1 REGISTER\r\n" +
		"Content-Length: 0\r\n\r\n"

	msg, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	via := msg.Headers.Via[0]
	received, ok := via.Received()
	if !ok || received != "203.0.113.5" {
		t.Fatalf("unexpected received: %q ok=%v", received, ok)
	}
	rport, ok := via.RPort()
	if !ok || rport != "40001" {
		t.Fatalf("unexpected rport: %q ok=%v", rport, ok)
	}
}

func TestParseDuplicateNonViaHeaderFirstWins(t *testing.T) {
	raw := "SIP/2.0 200 OK\r\n" +
		"Via: SIP/2.0/UDP 10.0.0.5:5060;branch=z9hG4bKfoo\r\n" +
		"Via: SIP/2.0/UDP 1.2.3.4:5060;branch=z9hG4bKbar\r\n" +
		"From: <sip:alice@example.net>;tag=111\r\n" +
		"To: <sip:alice@example.net>;tag=222\r\n" +
		"Call-ID: first@host\r\n" +
		"Call-ID: second@host\r\n" +
		"CSeq: 1 REGISTER\r\n" +
		"Content-Length: 0\r\n\r\n"

	msg, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(msg.Headers.Via) != 2 {
		t.Fatalf("expected 2 Via entries, got %d", len(msg.Headers.Via))
	}
	if msg.Headers.CallID != "first@host" {
		t.Fatalf("expected first-wins Call-ID, got %q", msg.Headers.CallID)
	}
}

func TestParseUnsupportedVersion(t *testing.T) {
	raw := "SIP/3.0 200 OK\r\n" +
		"Via: SIP/2.0/UDP 10.0.0.5:5060;branch=z9hG4bKfoo\r\n" +
		"From: <sip:alice@example.net>;tag=111\r\n" +
		"To: <sip:alice@example.net>;tag=222\r\n" +
		"Call-ID: abc@host\r\n" +
		"CSeq: 1 REGISTER\r\n" +
		"Content-Length: 0\r\n\r\n"

	_, err := Parse([]byte(raw))
	if err == nil {
		t.Fatal("expected parse error")
	}
	perr, ok := err.(*ParseError)
	if !ok || perr.Kind != KindUnsupportedVersion {
		t.Fatalf("expected KindUnsupportedVersion, got %v", err)
	}
}

func TestParseMissingHeaderRejected(t *testing.T) {
	raw := "REGISTER sip:example.net SIP/2.0\r\n" +
		"Via: SIP/2.0/UDP 10.0.0.5:5060;branch=z9hG4bKfoo\r\n" +
		"Content-Length: 0\r\n\r\n"

	_, err := Parse([]byte(raw))
	if err == nil {
		t.Fatal("expected parse error")
	}
	perr, ok := err.(*ParseError)
	if !ok || perr.Kind != KindMissingHeader {
		t.Fatalf("expected KindMissingHeader, got %v", err)
	}
}

func TestParseSDPBodyDedupesAndExtractsRTPMap(t *testing.T) {
	body := "v=0\r\n" +
		"o=alice 1 1 IN IP4 192.168.1.20\r\n" +
		"s=-\r\n" +
		"c=IN IP4 192.168.1.20\r\n" +
		"c=IN IP4 192.168.1.20\r\n" +
		"t=0 0\r\n" +
		"m=audio 4000 RTP/AVP 0\r\n" +
		"m=audio 4000 RTP/AVP 0\r\n" +
		"a=rtpmap:0 PCMU/8000\r\n"

	raw := "INVITE sip:bob@example.net SIP/2.0\r\n" +
		"Via: SIP/2.0/UDP 192.168.1.20:5060;branch=z9hG4bKfoo\r\n" +
		"From: <sip:alice@example.net>;tag=111\r\n" +
		"To: <sip:bob@example.net>\r\n" +
		"Call-ID: abc@host\r\n" +
		"CSeq: 1 INVITE\r\n" +
		"Content-Type: application/sdp\r\n" +
		"Content-Length: " + strconv.Itoa(len(body)) + "\r\n\r\n" + body

	msg, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if msg.Body == nil {
		t.Fatal("expected SDP body")
	}
	if len(msg.Body.Media) != 1 {
		t.Fatalf("expected dedup to collapse to one media block, got %d", len(msg.Body.Media))
	}
	if msg.Body.Media[0].RTPMap["0"] != "PCMU/8000" {
		t.Fatalf("expected rtpmap for PT 0, got %+v", msg.Body.Media[0].RTPMap)
	}
}

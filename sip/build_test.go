package sip

import (
	"bytes"
	"strconv"
	"strings"
	"testing"
)

func TestSerializeRegisterRoundTrip(t *testing.T) {
	msg := NewRequest("REGISTER", "sip:example.net")
	msg.Headers.Via = []ViaEntry{{
		Transport: "SIP/2.0/UDP",
		Host:      "192.168.1.10",
		Port:      5060,
		Params:    map[string]string{"branch": "z9hG4bKabc123"},
	}}
	msg.Headers.MaxForwards = 70
	msg.Headers.From = AddressHeader{Raw: "x", URI: "sip:1000@example.net", Tag: "111"}
	msg.Headers.To = AddressHeader{Raw: "x", URI: "sip:1000@example.net"}
	msg.Headers.CallID = "abc@192.168.1.10:5060"
	msg.Headers.CSeq = CSeq{Number: 1, Method: "REGISTER"}
	msg.Headers.Contact = "<sip:1000@192.168.1.10:5060>"
	msg.Headers.Allow = SupportedMethods
	msg.Headers.UserAgent = "gophone"

	out, err := msg.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("REGISTER sip:example.net SIP/2.0\r\n")) {
		t.Fatalf("unexpected start line: %q", out[:40])
	}
	if !bytes.Contains(out, []byte("Content-Length: 0\r\n\r\n")) {
		t.Fatalf("expected zero content-length trailer, got %q", out)
	}

	reparsed, err := Parse(out)
	if err != nil {
		t.Fatalf("re-parse of serialized message failed: %v", err)
	}
	if reparsed.Method != "REGISTER" || reparsed.Headers.CallID != msg.Headers.CallID {
		t.Fatalf("round trip mismatch: %+v", reparsed)
	}
	if reparsed.Headers.From.Tag != "111" {
		t.Fatalf("expected From tag to survive round trip, got %q", reparsed.Headers.From.Tag)
	}
}

func TestSerializeContentLengthMatchesSDPBody(t *testing.T) {
	msg := NewRequest("INVITE", "sip:bob@example.net")
	msg.Headers.Via = []ViaEntry{{Transport: "SIP/2.0/UDP", Host: "192.168.1.10", Port: 5060, Params: map[string]string{"branch": "z9hG4bKabc"}}}
	msg.Headers.From = AddressHeader{Raw: "x", URI: "sip:alice@example.net", Tag: "111"}
	msg.Headers.To = AddressHeader{Raw: "x", URI: "sip:bob@example.net"}
	msg.Headers.CallID = "abc@192.168.1.10:5060"
	msg.Headers.CSeq = CSeq{Number: 1, Method: "INVITE"}
	msg.Body = &SDPBody{
		OriginUser:   "gophone",
		OriginSessID: "1",
		OriginSessVer: "1",
		OriginAddr:   "192.168.1.10",
		SessionName:  "gophone",
		Connections:  []ConnectionInfo{{NetworkType: "IN", AddressType: "IP4", Address: "192.168.1.10"}},
		Media: []MediaDescription{{
			Media:    "audio",
			Port:     7078,
			Protocol: "RTP/AVP",
			Formats:  []string{"0"},
			RTPMap:   map[string]string{"0": "PCMU/8000"},
			FMTP:     map[string]string{},
			Attributes: map[string]string{},
		}},
	}

	out, err := msg.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	idx := bytes.Index(out, []byte("\r\n\r\n"))
	if idx < 0 {
		t.Fatal("missing header/body separator")
	}
	body := out[idx+4:]

	headerPart := string(out[:idx])
	var reportedLen int
	for _, line := range strings.Split(headerPart, "\r\n") {
		if strings.HasPrefix(line, "Content-Length:") {
			n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "Content-Length:")))
			if err != nil {
				t.Fatalf("parsing content-length: %v", err)
			}
			reportedLen = n
		}
	}
	if reportedLen != len(body) {
		t.Fatalf("Content-Length %d does not match actual body length %d", reportedLen, len(body))
	}
	if !strings.Contains(headerPart, "Content-Type: application/sdp") {
		t.Fatal("expected Content-Type header for SDP body")
	}
}

func TestFormatAuthParamsFixedFieldOrder(t *testing.T) {
	params := map[string]string{
		"algorithm": "MD5",
		"response":  "deadbeef",
		"username":  "1000",
		"realm":     "asterisk",
		"nonce":     "abc123",
		"uri":       "sip:example.net",
	}
	got := formatAuthParams(params)
	want := `Digest username="1000",realm="asterisk",nonce="abc123",uri="sip:example.net",response="deadbeef",algorithm=MD5`
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

package sip

import "testing"

func TestSDPMarshalParseRoundTrip(t *testing.T) {
	body := &SDPBody{
		OriginUser:    "gophone",
		OriginSessID:  "12345",
		OriginSessVer: "12347",
		OriginAddr:    "192.168.1.10",
		SessionName:   "gophone",
		Connections:   []ConnectionInfo{{NetworkType: "IN", AddressType: "IP4", Address: "192.168.1.10"}},
		HasTransmit:   true,
		TransmitType:  TransmitSendRecv,
		Attributes:    map[string]string{},
		Media: []MediaDescription{{
			Media:      "audio",
			Port:       7078,
			Protocol:   "RTP/AVP",
			Formats:    []string{"0", "101"},
			RTPMap:     map[string]string{"0": "PCMU/8000", "101": "telephone-event/8000"},
			FMTP:       map[string]string{"101": "0-15"},
			Attributes: map[string]string{"ptime": "20"},
		}},
	}

	raw, err := body.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	reparsed, err := ParseSDP(raw)
	if err != nil {
		t.Fatalf("ParseSDP: %v", err)
	}

	if reparsed.OriginAddr != "192.168.1.10" {
		t.Fatalf("origin address not preserved: %+v", reparsed)
	}
	if len(reparsed.Media) != 1 {
		t.Fatalf("expected one media block, got %d", len(reparsed.Media))
	}
	m := reparsed.Media[0]
	if m.Port != 7078 {
		t.Fatalf("expected port 7078, got %d", m.Port)
	}
	if m.RTPMap["0"] != "PCMU/8000" || m.RTPMap["101"] != "telephone-event/8000" {
		t.Fatalf("rtpmap not preserved: %+v", m.RTPMap)
	}
	if m.FMTP["101"] != "0-15" {
		t.Fatalf("fmtp not preserved: %+v", m.FMTP)
	}
	if !reparsed.HasTransmit || reparsed.TransmitType != TransmitSendRecv {
		t.Fatalf("sendrecv attribute not preserved: %+v", reparsed)
	}
}

func TestParseSDPCollapsesRepeatedConnectionLine(t *testing.T) {
	raw := []byte("v=0\r\n" +
		"o=gophone 1 1 IN IP4 10.0.0.1\r\n" +
		"s=-\r\n" +
		"c=IN IP4 10.0.0.1\r\n" +
		"c=IN IP4 10.0.0.1\r\n" +
		"t=0 0\r\n" +
		"m=audio 7078 RTP/AVP 0\r\n" +
		"a=rtpmap:0 PCMU/8000\r\n")

	body, err := ParseSDP(raw)
	if err != nil {
		t.Fatalf("ParseSDP: %v", err)
	}
	if len(body.Connections) != 1 {
		t.Fatalf("expected deduped single connection, got %d", len(body.Connections))
	}
}

func TestTransmitTypeString(t *testing.T) {
	cases := map[TransmitType]string{
		TransmitSendRecv: "sendrecv",
		TransmitSendOnly: "sendonly",
		TransmitRecvOnly: "recvonly",
		TransmitInactive: "inactive",
	}
	for tt, want := range cases {
		if got := tt.String(); got != want {
			t.Fatalf("TransmitType(%d).String() = %q, want %q", tt, got, want)
		}
	}
}

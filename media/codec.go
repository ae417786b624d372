// Package media handles the RTP/RTCP side of a call: codec negotiation,
// port allocation, clock-paced sending, and DTMF signalling. It is kept
// separate from the sip package so a call's SDP offer/answer can be
// reasoned about (and tested) without a socket.
package media

import (
	"strconv"
	"time"
)

// Codec is an immutable audio codec specification, matched against the
// payload types a peer offers in SDP.
type Codec struct {
	Name       string
	PayloadType uint8
	SampleRate  uint32
	SampleDur   time.Duration
}

// CodecPCMU is G.711 mu-law, the default pyVoIP negotiates first.
var CodecPCMU = Codec{"PCMU", 0, 8000, 20 * time.Millisecond}

// CodecPCMA is G.711 A-law.
var CodecPCMA = Codec{"PCMA", 8, 8000, 20 * time.Millisecond}

// CodecTelephoneEvent is the RFC 4733 DTMF event codec.
var CodecTelephoneEvent = Codec{"telephone-event", 101, 8000, 20 * time.Millisecond}

// SupportedCodecs is the fixed list this module offers and accepts, in
// SDP preference order.
var SupportedCodecs = []Codec{CodecPCMU, CodecPCMA, CodecTelephoneEvent}

// SamplesPerFrame returns the number of samples in one codec frame.
func (c Codec) SamplesPerFrame() int {
	return int(c.SampleRate) * int(c.SampleDur) / int(time.Second)
}

// TimestampIncrement returns the RTP timestamp step per frame.
func (c Codec) TimestampIncrement() uint32 {
	return uint32(c.SamplesPerFrame())
}

// ByPayloadType returns the codec registered under the given RTP
// payload type, or ok=false if this module doesn't support it.
func ByPayloadType(pt uint8) (Codec, bool) {
	for _, c := range SupportedCodecs {
		if c.PayloadType == pt {
			return c, true
		}
	}
	return Codec{}, false
}

// NegotiateCodec picks the first codec from SupportedCodecs whose
// payload type also appears in the peer's offered list, matching
// pyVoIP's preference-ordered codec selection. telephone-event is never
// selected, since it carries no audio.
func NegotiateCodec(offeredPT []string) (Codec, bool) {
	offered := make(map[string]bool, len(offeredPT))
	for _, pt := range offeredPT {
		offered[pt] = true
	}
	for _, c := range SupportedCodecs {
		if c.Name == "telephone-event" {
			continue
		}
		if offered[strconv.Itoa(int(c.PayloadType))] {
			return c, true
		}
	}
	return Codec{}, false
}

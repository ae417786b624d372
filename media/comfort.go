package media

import "github.com/zaf/g711"

// Silence returns n frames of silence for the given codec (A-law for
// PCMA, mu-law otherwise),
// encoded through g711 the same way the rest of this module converts
// PCM to wire format, so a caller with no audio to stream yet still
// keeps the RTP clock alive.
func Silence(codec Codec, frames int) []byte {
	samples := codec.SamplesPerFrame() * frames
	pcm := make([]byte, samples*2) // 16-bit PCM, silence is all zero bytes

	switch codec.Name {
	case "PCMA":
		return g711.EncodeAlaw(pcm)
	default:
		return g711.EncodeUlaw(pcm)
	}
}

// EncodeFrame converts one codec frame of 16-bit PCM to the wire
// encoding for codec.
func EncodeFrame(codec Codec, pcm []byte) []byte {
	switch codec.Name {
	case "PCMA":
		return g711.EncodeAlaw(pcm)
	default:
		return g711.EncodeUlaw(pcm)
	}
}

// DecodeFrame converts one codec frame from its wire encoding back to
// 16-bit PCM.
func DecodeFrame(codec Codec, payload []byte) []byte {
	switch codec.Name {
	case "PCMA":
		return g711.DecodeAlaw(payload)
	default:
		return g711.DecodeUlaw(payload)
	}
}

package media

import "testing"

func TestSilenceProducesExpectedFrameCount(t *testing.T) {
	out := Silence(CodecPCMU, 5)
	want := CodecPCMU.SamplesPerFrame() * 5
	if len(out) != want {
		t.Fatalf("expected %d bytes of mu-law silence, got %d", want, len(out))
	}
}

func TestEncodeDecodeFrameRoundTrip(t *testing.T) {
	pcm := make([]byte, CodecPCMU.SamplesPerFrame()*2)
	for i := range pcm {
		pcm[i] = byte(i)
	}
	encoded := EncodeFrame(CodecPCMU, pcm)
	if len(encoded) != CodecPCMU.SamplesPerFrame() {
		t.Fatalf("expected one mu-law byte per sample, got %d bytes for %d samples", len(encoded), CodecPCMU.SamplesPerFrame())
	}
	decoded := DecodeFrame(CodecPCMU, encoded)
	if len(decoded) != len(pcm) {
		t.Fatalf("expected decoded PCM to match original length %d, got %d", len(pcm), len(decoded))
	}
}

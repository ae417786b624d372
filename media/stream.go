package media

import (
	"net"
	"sync"
	"time"

	"github.com/pion/rtp"
)

// Stream sends RTP packets for one call's audio leg, pacing writes to
// the codec's clock and maintaining the SSRC/sequence/timestamp state
// a receiver expects from a single consistent source.
type Stream struct {
	conn       net.PacketConn
	remoteAddr net.Addr

	ssrc      uint32
	pt        uint8
	seq       uint16
	timestamp uint32

	codec  Codec
	ticker *time.Ticker

	mu     sync.Mutex
	closed bool
}

// NewStream creates a clock-paced RTP sender bound to the given socket
// and peer, using codec's payload type and frame duration.
func NewStream(conn net.PacketConn, remote net.Addr, codec Codec) *Stream {
	return &Stream{
		conn:       conn,
		remoteAddr: remote,
		ssrc:       GenerateSSRC(),
		pt:         codec.PayloadType,
		seq:        GenerateSequenceStart(),
		timestamp:  GenerateTimestampStart(),
		codec:      codec,
		ticker:     time.NewTicker(codec.SampleDur),
	}
}

// Write sends one codec frame as an RTP packet, blocking until the next
// clock tick so the stream keeps real-time pacing. Implements io.Writer.
func (s *Stream) Write(payload []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, net.ErrClosed
	}
	<-s.ticker.C

	pkt := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    s.pt,
			SequenceNumber: s.seq,
			Timestamp:      s.timestamp,
			SSRC:           s.ssrc,
		},
		Payload: payload,
	}
	data, err := pkt.Marshal()
	if err != nil {
		return 0, err
	}
	if _, err := s.conn.WriteTo(data, s.remoteAddr); err != nil {
		return 0, err
	}
	s.seq++
	s.timestamp += s.codec.TimestampIncrement()
	return len(payload), nil
}

// WriteDTMF sends a telephone-event packet immediately, bypassing the
// clock tick so repeated end-of-event packets can be sent back to back
// per RFC 4733's recommendation.
func (s *Stream) WriteDTMF(ev DTMFEvent, marker bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return net.ErrClosed
	}
	pkt := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			Marker:         marker,
			PayloadType:    CodecTelephoneEvent.PayloadType,
			SequenceNumber: s.seq,
			Timestamp:      s.timestamp,
			SSRC:           s.ssrc,
		},
		Payload: ev.Encode(),
	}
	data, err := pkt.Marshal()
	if err != nil {
		return err
	}
	if _, err := s.conn.WriteTo(data, s.remoteAddr); err != nil {
		return err
	}
	s.seq++
	return nil
}

// SSRC returns the stream's source identifier.
func (s *Stream) SSRC() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ssrc
}

// Close stops the pacing clock. Safe to call once.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.ticker.Stop()
	}
	return nil
}

// Package transport owns the UDP socket a SIP client sends and receives
// datagrams on. It mirrors pyVoIP's non-blocking receive loop: a
// dedicated goroutine polls the socket with a short backoff instead of
// blocking forever, so Stop can always return promptly.
package transport

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// pollBackoff is how long the receive loop sleeps after a read error
// other than a timeout, so a failing socket does not spin.
const pollBackoff = 10 * time.Millisecond

// readDeadline bounds each individual ReadFromUDP call, so an idle
// socket is polled about every 10 ms, mirroring pyVoIP's polling socket,
// and the receive loop notices Stop() within one poll interval.
const readDeadline = 10 * time.Millisecond

// maxDatagram is large enough for any SIP message this module builds or
// expects to receive; UDP SIP traffic rarely nears the path MTU.
const maxDatagram = 65535

// Handler is invoked once per inbound datagram, on the receive
// goroutine. It must not block for long; callers that need to do
// expensive work should hand the datagram off to another goroutine.
type Handler func(data []byte, from *net.UDPAddr)

// Socket binds a single UDP socket and serialises outbound writes,
// matching the single-socket-single-lock model pyVoIP's SIPClient
// keeps for its whole lifetime.
type Socket struct {
	conn *net.UDPConn

	LocalIP   string
	LocalPort int

	sendMu sync.Mutex

	handler Handler

	running atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// Bind opens a UDP socket on localIP:localPort. An IPv6 literal binds a
// udp6 socket; an IPv4 literal or an empty localIP binds udp4 (all IPv4
// interfaces when empty).
func Bind(localIP string, localPort int) (*Socket, error) {
	ip := net.ParseIP(localIP)
	addr := &net.UDPAddr{IP: ip, Port: localPort}
	conn, err := net.ListenUDP(udpNetwork(ip), addr)
	if err != nil {
		return nil, fmt.Errorf("transport: bind %s:%d: %w", localIP, localPort, err)
	}
	boundPort := conn.LocalAddr().(*net.UDPAddr).Port
	return &Socket{
		conn:      conn,
		LocalIP:   localIP,
		LocalPort: boundPort,
	}, nil
}

func udpNetwork(ip net.IP) string {
	if ip != nil && ip.To4() == nil {
		return "udp6"
	}
	return "udp4"
}

// Start launches the receive goroutine. handler is called from that
// goroutine for every datagram read until Stop is called.
func (s *Socket) Start(handler Handler) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("transport: socket already started")
	}
	s.handler = handler
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	go s.recvLoop()
	return nil
}

// Stop signals the receive loop to exit and waits for it to finish,
// then closes the socket. Safe to call once; a second call is a no-op.
func (s *Socket) Stop() error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	close(s.stopCh)
	<-s.doneCh
	return s.conn.Close()
}

func (s *Socket) recvLoop() {
	defer close(s.doneCh)
	buf := make([]byte, maxDatagram)
	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		_ = s.conn.SetReadDeadline(time.Now().Add(readDeadline))
		n, from, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			select {
			case <-s.stopCh:
				return
			default:
			}
			slog.Debug("transport: read error", "error", err)
			time.Sleep(pollBackoff)
			continue
		}
		if n == 0 {
			continue
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		if s.handler != nil {
			s.handler(data, from)
		}
	}
}

// Send writes a message to the given peer. Sends are serialised so a
// retransmit in progress never interleaves with another caller's write.
func (s *Socket) Send(data []byte, to *net.UDPAddr) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	_, err := s.conn.WriteToUDP(data, to)
	if err != nil {
		return fmt.Errorf("transport: send to %s: %w", to, err)
	}
	return nil
}

// LocalAddr returns the bound address as a dialable string.
func (s *Socket) LocalAddr() string {
	return fmt.Sprintf("%s:%d", s.LocalIP, s.LocalPort)
}

package client

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/sebas/gophone/sip"
	"github.com/sebas/gophone/transport"
)

// Client is a SIP user agent core: it owns the UDP socket, the
// identifier factory, the registration state machine and the dialog
// table. A Phone Facade owns exactly one Client and supplies Callbacks
// for events the client cannot resolve by itself.
type Client struct {
	cfg  Config
	ids  *sip.IDFactory
	sock *transport.Socket
	cb   Callbacks

	serverAddr *net.UDPAddr

	running atomic.Bool

	// exchangeMu serialises register/deregister/invite/subscribe so
	// only one synchronous request/response exchange is ever in
	// flight on the socket, matching the single receive-lock model.
	exchangeMu sync.Mutex

	waitersMu sync.Mutex
	waiters   map[string]chan *sip.Message

	dialogs *dialogTable

	regMu       sync.Mutex
	regState    RegState
	regTag      string
	publicIP    string
	publicPort  string
	keepAlive   bool
	refreshStop chan struct{}

	inviteSeed, registerSeed, subscribeSeed uint32
	seedMu                                  sync.Mutex
}

// New constructs a Client bound to cfg, but does not open a socket or
// contact the registrar; call Start for that.
func New(cfg Config, cb Callbacks) *Client {
	return &Client{
		cfg:     cfg,
		cb:      cb,
		waiters: make(map[string]chan *sip.Message),
		dialogs: newDialogTable(),
	}
}

// Start opens the UDP socket, performs the initial registration, and
// launches the receive loop. A second call fails with ErrAlreadyRunning.
func (c *Client) Start() error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	sock, err := transport.Bind(c.cfg.LocalIP, c.cfg.LocalPort)
	if err != nil {
		c.running.Store(false)
		return fmt.Errorf("client: start: %w", err)
	}
	c.sock = sock
	c.ids = sip.NewIDFactory(sock.LocalIP, sock.LocalPort)
	c.regTag = c.ids.RegistrationTag()

	host := c.cfg.registrarHost()
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", host, c.cfg.Port))
	if err != nil {
		c.running.Store(false)
		_ = sock.Stop()
		return fmt.Errorf("client: resolve registrar %s:%d: %w", host, c.cfg.Port, err)
	}
	c.serverAddr = addr

	if err := c.sock.Start(c.handleDatagram); err != nil {
		c.running.Store(false)
		_ = sock.Stop()
		return fmt.Errorf("client: start receive loop: %w", err)
	}

	if err := c.Register(); err != nil {
		_ = c.sock.Stop()
		c.running.Store(false)
		return err
	}
	return nil
}

// Stop cancels the refresh timer, deregisters, and closes the socket.
func (c *Client) Stop() error {
	if !c.running.CompareAndSwap(true, false) {
		return ErrNotRunning
	}
	c.cancelRefreshTimer()
	if err := c.Deregister(); err != nil {
		slog.Warn("client: deregister on stop failed", "error", err)
	}
	return c.sock.Stop()
}

// State returns the current registration state.
func (c *Client) State() RegState {
	c.regMu.Lock()
	defer c.regMu.Unlock()
	return c.regState
}

func (c *Client) setState(next RegState) {
	c.regMu.Lock()
	defer c.regMu.Unlock()
	if c.regState != next && !c.regState.CanTransitionTo(next) {
		slog.Debug("client: unusual registration transition", "from", c.regState, "to", next)
	}
	c.regState = next
}

// LocalContact renders the Contact header value this client advertises.
// Once behind_nat learning has observed a reflexive address from a
// prior REGISTER's Via received/rport, subsequent Contacts advertise
// that address instead of the local socket's, so a registrar routing
// back through the same NAT can actually reach this client.
func (c *Client) LocalContact() string {
	host, port := c.sock.LocalIP, c.sock.LocalPort
	if c.cfg.BehindNAT {
		if ip, p, ok := c.reflexiveAddr(); ok {
			host, port = ip, p
		}
	}
	return fmt.Sprintf("<sip:%s@%s:%d>;+sip.instance=\"<urn:uuid:%s>\"",
		c.cfg.Username, host, port, c.ids.InstanceUUID())
}

// reflexiveAddr returns the public IP/port learned from a prior
// REGISTER's Via received/rport, if any.
func (c *Client) reflexiveAddr() (string, int, bool) {
	c.regMu.Lock()
	defer c.regMu.Unlock()
	if c.publicIP == "" || c.publicPort == "" {
		return "", 0, false
	}
	port, err := strconv.Atoi(c.publicPort)
	if err != nil {
		return "", 0, false
	}
	return c.publicIP, port, true
}

func (c *Client) registrarURI() string {
	return fmt.Sprintf("sip:%s;transport=UDP", c.cfg.registrarHost())
}

// send serialises msg and writes it to the registrar/proxy address.
func (c *Client) send(msg *sip.Message) error {
	data, err := msg.Serialize()
	if err != nil {
		return fmt.Errorf("client: serialize %s: %w", msg.Summary(), err)
	}
	return c.sock.Send(data, c.serverAddr)
}

// sendTo serialises msg and writes it directly to a peer address,
// used for in-dialog requests whose Contact may not be the registrar.
func (c *Client) sendTo(msg *sip.Message, to *net.UDPAddr) error {
	data, err := msg.Serialize()
	if err != nil {
		return fmt.Errorf("client: serialize %s: %w", msg.Summary(), err)
	}
	return c.sock.Send(data, to)
}

// Dialog returns the tracked dialog for a Call-ID, if any.
func (c *Client) Dialog(callID string) (*Dialog, bool) {
	return c.dialogs.get(callID)
}

// dialogAddr resolves the peer address to send in-dialog requests to.
func (c *Client) dialogAddr(d *Dialog) (*net.UDPAddr, error) {
	return net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", d.RemoteAddr, d.RemotePort))
}

func (c *Client) registerWaiter(callID string) chan *sip.Message {
	ch := make(chan *sip.Message, 8)
	c.waitersMu.Lock()
	c.waiters[callID] = ch
	c.waitersMu.Unlock()
	return ch
}

func (c *Client) removeWaiter(callID string) {
	c.waitersMu.Lock()
	delete(c.waiters, callID)
	c.waitersMu.Unlock()
}

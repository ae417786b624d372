package phone

import (
	"fmt"
	"net"
	"sync"

	"github.com/sebas/gophone/client"
	"github.com/sebas/gophone/media"
	"github.com/sebas/gophone/sip"
)

// Direction is whether a Call originated locally or from the peer.
type Direction int

const (
	DirectionOutbound Direction = iota
	DirectionInbound
)

// Call is one SIP dialog bound to an RTP media session. The Phone
// Facade owns the table of Calls, and each Call exclusively owns its
// media stream; the Call's lifetime extends until the application releases it and the dialog
// has terminated.
type Call struct {
	CallID    string
	SessionID uint64
	Direction Direction
	RemoteURI string

	client *client.Client
	dialog *client.Dialog

	mu      sync.Mutex
	state   CallState
	stream  *media.Stream
	pool    *media.PortPool
	rtpPort int

	pending       *client.InviteResult
	pendingInvite *sip.Message
}

// State returns the call's current state.
func (c *Call) State() CallState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Call) setState(next CallState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = next
}

// Answer accepts an inbound call that is in the Ringing state: it
// allocates an RTP port, builds the SDP answer, sends 200 OK, and waits
// for ACK before starting the media session.
func (c *Call) Answer(localIP string) error {
	c.mu.Lock()
	if c.state != StateRinging {
		c.mu.Unlock()
		return fmt.Errorf("phone: answer: %w: call is %s", ErrInvalidState, c.state)
	}
	inviteMsg := c.pendingInvite
	c.mu.Unlock()
	if inviteMsg == nil {
		return fmt.Errorf("phone: answer: no pending invite recorded")
	}

	rtpPort, _, err := c.pool.Allocate()
	if err != nil {
		return fmt.Errorf("phone: allocate media port: %w", err)
	}

	codec, ok := negotiateFromOffer(inviteMsg)
	if !ok {
		c.pool.Release(rtpPort)
		return fmt.Errorf("phone: no common codec in offer")
	}

	answer := client.BuildSDPOffer(localIP, rtpPort, c.SessionID, []client.CodecOffer{{
		PayloadType: fmt.Sprintf("%d", codec.PayloadType),
		RTPMap:      fmt.Sprintf("%s/%d", codec.Name, codec.SampleRate),
	}}, sip.TransmitSendRecv)

	if err := c.client.AnswerInvite(inviteMsg, answer); err != nil {
		c.pool.Release(rtpPort)
		return fmt.Errorf("phone: send 200 OK: %w", err)
	}

	c.mu.Lock()
	c.rtpPort = rtpPort
	c.setStateLocked(StateAnswered)
	c.mu.Unlock()

	remoteIP, remotePort, ok := remoteMediaAddr(inviteMsg)
	if !ok {
		return fmt.Errorf("phone: no media address in offer")
	}
	return c.startMedia(localIP, remoteIP, remotePort, codec)
}

func remoteMediaAddr(msg *sip.Message) (net.IP, int, bool) {
	if msg.Body == nil || len(msg.Body.Media) == 0 {
		return nil, 0, false
	}
	m := msg.Body.Media[0]
	addr := msg.Body.OriginAddr
	if len(m.Connections) > 0 {
		addr = m.Connections[0].Address
	} else if len(msg.Body.Connections) > 0 {
		addr = msg.Body.Connections[0].Address
	}
	ip := net.ParseIP(addr)
	if ip == nil || m.Port == 0 {
		return nil, 0, false
	}
	return ip, m.Port, true
}

func (c *Call) setStateLocked(next CallState) {
	c.state = next
}

// Hangup ends an established call with BYE, or a ringing inbound call
// with a final response, tearing down the media session either way.
func (c *Call) Hangup() error {
	c.mu.Lock()
	state := c.state
	pendingInvite := c.pendingInvite
	c.mu.Unlock()

	if state != StateAnswered && state != StateRinging && state != StateDialing {
		return fmt.Errorf("phone: hangup: %w: call is %s", ErrInvalidState, state)
	}

	var err error
	switch state {
	case StateAnswered:
		err = c.client.SendBye(c.dialog)
	case StateDialing, StateRinging:
		if c.pending != nil {
			err = c.client.SendCancel(c.RemoteURI, c.CallID, c.pending.CSeq, c.pending.Branch)
		} else if pendingInvite != nil {
			err = c.client.RejectInvite(pendingInvite, 486, "Busy Here")
		}
	}
	c.releaseMedia()
	c.client.CloseCall(c.CallID)
	c.setState(StateEnded)
	return err
}

// Reject declines an inbound call still in the Ringing state with the
// given final status (486 Busy Here, 603 Decline, ...).
func (c *Call) Reject(status int, reason string) error {
	c.mu.Lock()
	if c.state != StateRinging || c.pendingInvite == nil {
		c.mu.Unlock()
		return fmt.Errorf("phone: reject: %w: call is %s", ErrInvalidState, c.state)
	}
	msg := c.pendingInvite
	c.mu.Unlock()

	err := c.client.RejectInvite(msg, status, reason)
	c.setState(StateBusy)
	c.client.CloseCall(c.CallID)
	return err
}

func (c *Call) releaseMedia() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream != nil {
		_ = c.stream.Close()
		c.stream = nil
	}
	if c.rtpPort != 0 {
		c.pool.Release(c.rtpPort)
		c.rtpPort = 0
	}
}

// startMedia binds the RTP stream once both sides have confirmed the
// dialog (ACK received on inbound, 200 OK received on outbound).
func (c *Call) startMedia(localIP string, remoteIP net.IP, remotePort int, codec media.Codec) error {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.ParseIP(localIP), Port: c.rtpPort})
	if err != nil {
		return fmt.Errorf("phone: bind RTP socket: %w", err)
	}
	remote := &net.UDPAddr{IP: remoteIP, Port: remotePort}
	c.mu.Lock()
	c.stream = media.NewStream(conn, remote, codec)
	c.mu.Unlock()
	return nil
}

// confirmAnswered finalizes an outbound call once its 200 OK has
// arrived on the InviteResult's Final channel: it ACKs the 2xx,
// records the resulting Dialog, negotiates the codec from the SDP
// answer, and starts the RTP stream. This is the outbound counterpart
// of Answer's inbound leg.
func (c *Call) confirmAnswered(localIP string, result *client.InviteResult, resp *sip.Message) error {
	dialog, err := c.client.ConfirmInvite(result, resp)
	if err != nil {
		return fmt.Errorf("phone: confirm invite: %w", err)
	}

	codec, ok := negotiateFromOffer(resp)
	if !ok {
		return fmt.Errorf("phone: no common codec in answer")
	}
	remoteIP, remotePort, ok := remoteMediaAddr(resp)
	if !ok {
		return fmt.Errorf("phone: no media address in answer")
	}

	c.mu.Lock()
	c.dialog = dialog
	c.setStateLocked(StateAnswered)
	c.mu.Unlock()

	return c.startMedia(localIP, remoteIP, remotePort, codec)
}

func negotiateFromOffer(msg *sip.Message) (media.Codec, bool) {
	if msg.Body == nil || len(msg.Body.Media) == 0 {
		return media.Codec{}, false
	}
	return media.NegotiateCodec(msg.Body.Media[0].Formats)
}

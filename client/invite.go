package client

import (
	"fmt"
	"net"
	"time"

	"github.com/sebas/gophone/sip"
)

// CodecOffer is one payload-type entry of an SDP offer/answer, the
// {port -> {payload_type -> codec_descriptor}} shape described for
// outbound INVITE: a media session supplies these, the client only
// assembles them into a wire SDP body.
type CodecOffer struct {
	PayloadType string // "0", "8", "101", ...
	RTPMap      string // "PCMU/8000"
	FMTP        string // optional, e.g. telephone-event's "0-16"
}

// BuildSDPOffer assembles a single-media-line SDP body for localIP:port
// advertising codecs in the given transmit direction.
func BuildSDPOffer(localIP string, port int, sessionID uint64, codecs []CodecOffer, transmit sip.TransmitType) *sip.SDPBody {
	formats := make([]string, 0, len(codecs))
	rtpmap := make(map[string]string, len(codecs))
	fmtp := make(map[string]string, len(codecs))
	for _, c := range codecs {
		formats = append(formats, c.PayloadType)
		rtpmap[c.PayloadType] = c.RTPMap
		if c.FMTP != "" {
			fmtp[c.PayloadType] = c.FMTP
		}
	}
	sid := fmt.Sprintf("%d", sessionID)
	return &sip.SDPBody{
		Version:       0,
		OriginUser:    "-",
		OriginSessID:  sid,
		OriginSessVer: sid,
		OriginAddr:    localIP,
		SessionName:   "-",
		Connections:   []sip.ConnectionInfo{{NetworkType: "IN", AddressType: "IP4", Address: localIP}},
		Media: []sip.MediaDescription{{
			Media:      "audio",
			Port:       port,
			PortCount:  1,
			Protocol:   "RTP/AVP",
			Formats:    formats,
			RTPMap:     rtpmap,
			FMTP:       fmtp,
			Attributes: map[string]string{"ptime": "20"},
		}},
		Attributes:   make(map[string]string),
		TransmitType: transmit,
		HasTransmit:  true,
	}
}

// InviteResult is returned once an outbound INVITE has cleared its
// first provisional response. Final holds the still-registered waiter
// channel so the caller can keep receiving 200 OK (or a late failure)
// on its own schedule, per the dialog's "invite returns on 100/180,
// caller polls for 200 OK" contract; the caller must call CloseCall
// once it is done with the dialog to release the waiter.
type InviteResult struct {
	CallID    string
	SessionID uint64
	Request   []byte
	Final     <-chan *sip.Message

	// CalleeURI, FromTag, CSeq and Branch are carried so ConfirmInvite
	// can build the 2xx ACK and the resulting Dialog, and so a CANCEL
	// against this still-pending transaction can reuse the same
	// branch/CSeq RFC 3261 §9.1 requires, all without re-parsing
	// Request.
	CalleeURI string
	FromTag   string
	CSeq      uint32
	Branch    string
}

func (c *Client) genInvite(calleeURI, callID, branch string, cseq uint32, offer *sip.SDPBody, auth *sip.Credentials) *sip.Message {
	msg := sip.NewRequest("INVITE", calleeURI)
	msg.Headers.Via = []sip.ViaEntry{{
		Transport: "SIP/2.0/UDP",
		Host:      c.sock.LocalIP,
		Port:      c.sock.LocalPort,
		Params:    map[string]string{"branch": branch, "rport": ""},
	}}
	msg.Headers.MaxForwards = 70
	localTag := c.ids.Tag()
	from := fmt.Sprintf("sip:%s@%s", c.cfg.Username, c.cfg.registrarHost())
	msg.Headers.From = sip.AddressHeader{Raw: from, URI: from, Tag: localTag}
	msg.Headers.To = sip.AddressHeader{Raw: calleeURI, URI: calleeURI}
	msg.Headers.CallID = callID
	msg.Headers.CSeq = sip.CSeq{Number: cseq, Method: "INVITE"}
	msg.Headers.Contact = c.LocalContact()
	msg.Headers.Allow = sip.SupportedMethods
	msg.Headers.UserAgent = c.cfg.UserAgent
	if auth != nil {
		msg.Headers.Authorization = map[string]string{
			"username":  auth.Username,
			"realm":     auth.Realm,
			"nonce":     auth.Nonce,
			"uri":       auth.URI,
			"response":  auth.Response,
			"algorithm": auth.Algorithm,
		}
	}
	msg.Body = offer
	return msg
}

// genAck builds the ACK for a final (2xx or non-2xx) response to an
// INVITE transaction, reusing the same CSeq number with method
// rewritten to ACK per RFC 3261; a 2xx ACK is its own transaction and
// gets a fresh branch, a non-2xx ACK reuses the INVITE's branch.
func (c *Client) genAck(calleeURI, callID string, cseq uint32, branch, fromTag, toTag string) *sip.Message {
	msg := sip.NewRequest("ACK", calleeURI)
	msg.Headers.Via = []sip.ViaEntry{{
		Transport: "SIP/2.0/UDP",
		Host:      c.sock.LocalIP,
		Port:      c.sock.LocalPort,
		Params:    map[string]string{"branch": branch},
	}}
	msg.Headers.MaxForwards = 70
	from := fmt.Sprintf("sip:%s@%s", c.cfg.Username, c.cfg.registrarHost())
	msg.Headers.From = sip.AddressHeader{Raw: from, URI: from, Tag: fromTag}
	msg.Headers.To = sip.AddressHeader{Raw: calleeURI, URI: calleeURI, Tag: toTag}
	msg.Headers.CallID = callID
	msg.Headers.CSeq = sip.CSeq{Number: cseq, Method: "ACK"}
	msg.Headers.UserAgent = c.cfg.UserAgent
	return msg
}

// Invite places an outbound call. It blocks until the first of {100,
// 180, 401} arrives, transparently handling a single digest challenge,
// then returns with the waiter channel still registered so the caller
// can keep awaiting the eventual 200 OK asynchronously.
func (c *Client) Invite(calleeURI string, offer *sip.SDPBody) (*InviteResult, error) {
	c.exchangeMu.Lock()
	defer c.exchangeMu.Unlock()

	callID := c.ids.CallID()
	sessionID := c.ids.SessionID()
	ch := c.registerWaiter(callID)

	cseq := c.nextInviteCSeq()
	var auth *sip.Credentials
	var lastReq *sip.Message

	for {
		branch := c.ids.Branch()
		req := c.genInvite(calleeURI, callID, branch, cseq, offer, auth)
		lastReq = req
		if err := c.send(req); err != nil {
			c.removeWaiter(callID)
			return nil, fmt.Errorf("client: send INVITE: %w", err)
		}

		resp, err := c.awaitResponse(ch, c.cfg.InviteTimeout)
		if err != nil {
			c.removeWaiter(callID)
			return nil, err
		}

		switch {
		case resp.StatusCode == 401:
			if auth != nil {
				c.removeWaiter(callID)
				return nil, ErrInvalidCredentials
			}
			ack := c.genAck(calleeURI, callID, cseq, req.Headers.Via[0].Branch(), req.Headers.From.Tag, resp.Headers.To.Tag)
			if err := c.send(ack); err != nil {
				c.removeWaiter(callID)
				return nil, fmt.Errorf("client: ack provisional error: %w", err)
			}
			challenge := sip.Challenge{
				Realm: resp.Headers.WWWAuthN["realm"],
				Nonce: resp.Headers.WWWAuthN["nonce"],
			}
			creds, err := sip.ComputeResponse(challenge, c.cfg.Username, c.cfg.Password, "INVITE", calleeURI)
			if err != nil {
				c.removeWaiter(callID)
				return nil, fmt.Errorf("client: compute digest: %w", err)
			}
			auth = &creds
			cseq = c.nextInviteCSeq()
			continue
		case resp.StatusCode == 100 || resp.StatusCode == 180:
			raw, err := lastReq.Serialize()
			if err != nil {
				c.removeWaiter(callID)
				return nil, fmt.Errorf("client: serialize INVITE: %w", err)
			}
			return &InviteResult{
				CallID: callID, SessionID: sessionID, Request: raw, Final: ch,
				CalleeURI: calleeURI, FromTag: lastReq.Headers.From.Tag, CSeq: cseq,
				Branch: lastReq.Headers.Via[0].Branch(),
			}, nil
		default:
			// A final response (200, 486, ...) arriving before any
			// provisional is still owed to whoever drains Final, so
			// requeue it rather than let awaitResponse's receive
			// silently discard it.
			select {
			case ch <- resp:
			default:
			}
			raw, err := lastReq.Serialize()
			if err != nil {
				c.removeWaiter(callID)
				return nil, fmt.Errorf("client: serialize INVITE: %w", err)
			}
			return &InviteResult{
				CallID: callID, SessionID: sessionID, Request: raw, Final: ch,
				CalleeURI: calleeURI, FromTag: lastReq.Headers.From.Tag, CSeq: cseq,
				Branch: lastReq.Headers.Via[0].Branch(),
			}, nil
		}
	}
}

// ConfirmInvite completes an outbound INVITE transaction once the
// caller has observed a 200 OK on the InviteResult's Final channel: it
// sends the 2xx ACK (a transaction of its own, per RFC 3261 §13.2.2.4)
// to the callee's Contact address and records the resulting Dialog so
// later in-dialog requests (BYE) can find their peer.
func (c *Client) ConfirmInvite(result *InviteResult, resp *sip.Message) (*Dialog, error) {
	addr := c.responseTargetAddr(resp)
	ack := c.genAck(result.CalleeURI, result.CallID, result.CSeq, c.ids.Branch(), result.FromTag, resp.Headers.To.Tag)
	if err := c.sendTo(ack, addr); err != nil {
		return nil, fmt.Errorf("client: send 2xx ACK: %w", err)
	}

	d := &Dialog{
		CallID:     result.CallID,
		LocalTag:   result.FromTag,
		RemoteTag:  resp.Headers.To.Tag,
		RemoteURI:  result.CalleeURI,
		RemoteAddr: addr.IP.String(),
		RemotePort: addr.Port,
	}
	c.dialogs.put(d)
	return d, nil
}

// responseTargetAddr resolves the peer address for in-dialog requests
// that follow a response, preferring its Contact header (the callee's
// own advertised address) and falling back to the registrar/proxy
// address this client already sends everything else through.
func (c *Client) responseTargetAddr(resp *sip.Message) *net.UDPAddr {
	if resp.Headers.Contact != "" {
		a := sip.ParseAddress(resp.Headers.Contact)
		if a.Host != "" {
			host, port := sip.SplitHostPort(a.Host)
			if ip := net.ParseIP(host); ip != nil {
				return &net.UDPAddr{IP: ip, Port: port}
			}
			if addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", host, port)); err == nil {
				return addr
			}
		}
	}
	return c.serverAddr
}

// CloseCall releases the waiter channel kept open for a dialog's
// asynchronous final response once the caller is done with it.
func (c *Client) CloseCall(callID string) {
	c.removeWaiter(callID)
}

func (c *Client) nextInviteCSeq() uint32 {
	c.seedMu.Lock()
	defer c.seedMu.Unlock()
	c.inviteSeed++
	return c.inviteSeed
}

// AwaitCallFinal lets a Phone Facade poll a still-registered dialog's
// channel for the eventual 200 OK (or late failure) after Invite has
// already returned on a provisional response.
func AwaitCallFinal(ch <-chan *sip.Message, timeout time.Duration) (*sip.Message, error) {
	select {
	case msg := <-ch:
		return msg, nil
	case <-time.After(timeout):
		return nil, ErrTimeout
	}
}

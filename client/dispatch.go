package client

import (
	"log/slog"
	"net"
	"strings"

	"github.com/sebas/gophone/sip"
)

// handleDatagram runs on the transport receive goroutine. It either
// routes a response to whichever synchronous exchange is waiting on
// its Call-ID, or dispatches an inbound request per the method table.
func (c *Client) handleDatagram(data []byte, from *net.UDPAddr) {
	msg, err := sip.Parse(data)
	if err != nil {
		c.handleParseError(err, data, from)
		return
	}

	if msg.IsResponse {
		c.routeResponse(msg)
		return
	}

	switch msg.Method {
	case "INVITE":
		c.handleInboundInvite(msg, from)
	case "BYE":
		c.handleBye(msg, from)
	case "ACK":
		c.handleAck(msg)
	case "CANCEL":
		c.handleCancel(msg, from)
	case "NOTIFY":
		c.handleNotify(msg, from)
	case "OPTIONS":
		c.handleOptions(msg, from)
	default:
		slog.Debug("client: unhandled inbound method", "method", msg.Method)
	}
}

func (c *Client) handleParseError(err error, data []byte, from *net.UDPAddr) {
	perr, ok := err.(*sip.ParseError)
	if !ok {
		slog.Debug("client: dropping unparseable datagram", "error", err)
		return
	}
	if perr.Kind == sip.KindUnsupportedVersion || strings.Contains(perr.Error(), "SIP Version") {
		// Echo the request's Via/From/To/Call-ID/CSeq lines so the 505
		// carries the headers every SIP message must have.
		var sb strings.Builder
		sb.WriteString(sip.Version + " 505 SIP Version Not Supported\r\n")
		for _, line := range strings.Split(string(data), "\r\n")[1:] {
			if line == "" {
				break
			}
			name, _, _ := strings.Cut(line, ":")
			switch strings.ToLower(strings.TrimSpace(name)) {
			case "via", "v", "from", "f", "to", "t", "call-id", "i", "cseq":
				sb.WriteString(line + "\r\n")
			}
		}
		sb.WriteString("Content-Length: 0\r\n\r\n")
		reply := []byte(sb.String())
		if sendErr := c.sock.Send(reply, from); sendErr != nil {
			slog.Debug("client: failed to send 505", "error", sendErr)
		}
		return
	}
	slog.Debug("client: dropping malformed datagram", "error", err)
}

func (c *Client) routeResponse(msg *sip.Message) {
	c.waitersMu.Lock()
	ch, ok := c.waiters[msg.Headers.CallID]
	c.waitersMu.Unlock()
	if !ok {
		slog.Debug("client: response with no waiting exchange", "call_id", msg.Headers.CallID, "status", msg.StatusCode)
		return
	}
	select {
	case ch <- msg:
	default:
		slog.Debug("client: waiter channel full, dropping response", "call_id", msg.Headers.CallID)
	}
}

func (c *Client) handleInboundInvite(msg *sip.Message, from *net.UDPAddr) {
	if c.cb == nil {
		c.replyBusyHere(msg, from)
		return
	}
	d := &Dialog{
		CallID:     msg.Headers.CallID,
		RemoteTag:  msg.Headers.From.Tag,
		RemoteURI:  msg.Headers.From.URI,
		RemoteAddr: from.IP.String(),
		RemotePort: from.Port,
	}
	c.dialogs.put(d)
	c.cb.OnIncomingCall(msg)
}

func (c *Client) replyBusyHere(req *sip.Message, from *net.UDPAddr) {
	resp := c.responseTo(req, 486, "Busy Here", true)
	if err := c.sendTo(resp, from); err != nil {
		slog.Debug("client: failed to send 486", "error", err)
	}
}

func (c *Client) handleBye(msg *sip.Message, from *net.UDPAddr) {
	if c.cb != nil {
		c.cb.OnInDialogRequest(msg.Headers.CallID, msg)
	}
	resp := c.responseTo(msg, 200, "OK", false)
	if err := c.sendTo(resp, from); err != nil {
		slog.Debug("client: failed to send 200 for BYE", "error", err)
	}
	c.dialogs.remove(msg.Headers.CallID)
}

func (c *Client) handleAck(msg *sip.Message) {
	c.waitersMu.Lock()
	ch, ok := c.waiters[ackWaiterKey(msg.Headers.CallID)]
	c.waitersMu.Unlock()
	if ok {
		select {
		case ch <- msg:
		default:
		}
	}
	if c.cb != nil {
		c.cb.OnInDialogRequest(msg.Headers.CallID, msg)
	}
}

func ackWaiterKey(callID string) string {
	return "ACK:" + callID
}

func (c *Client) handleCancel(msg *sip.Message, from *net.UDPAddr) {
	if c.cb != nil {
		c.cb.OnInDialogRequest(msg.Headers.CallID, msg)
	}
	resp := c.responseTo(msg, 200, "OK", false)
	if err := c.sendTo(resp, from); err != nil {
		slog.Debug("client: failed to send 200 for CANCEL", "error", err)
	}
}

func (c *Client) handleNotify(msg *sip.Message, from *net.UDPAddr) {
	if msg.Headers.Event == "keep-alive" {
		c.regMu.Lock()
		c.keepAlive = true
		c.regMu.Unlock()
	}
	if c.cb != nil {
		c.cb.OnInDialogRequest(msg.Headers.CallID, msg)
	}
	resp := c.responseTo(msg, 200, "OK", false)
	resp.Headers.Event = msg.Headers.Event
	resp.Headers.CSeq.Number = msg.Headers.CSeq.Number + 1
	if err := c.sendTo(resp, from); err != nil {
		slog.Debug("client: failed to send 200 for NOTIFY", "error", err)
	}
}

// handleOptions replies 200 OK advertising this client's Allow set, a
// lightweight keepalive reply some registrars expect in place of a
// NOTIFY/ping exchange.
func (c *Client) handleOptions(msg *sip.Message, from *net.UDPAddr) {
	resp := c.responseTo(msg, 200, "OK", false)
	resp.Headers.Allow = sip.SupportedMethods
	resp.Headers.Supported = sip.SupportedMethods
	if err := c.sendTo(resp, from); err != nil {
		slog.Debug("client: failed to send 200 for OPTIONS", "error", err)
	}
}

// responseTo builds a response to an inbound request, copying Via/
// From/To/Call-ID/CSeq as RFC 3261 requires. freshToTag allocates a new
// To tag (used for 486 on a dialog we never established).
func (c *Client) responseTo(req *sip.Message, status int, reason string, freshToTag bool) *sip.Message {
	resp := sip.NewResponse(status, reason)
	resp.Headers.Via = req.Headers.Via
	resp.Headers.From = req.Headers.From
	resp.Headers.To = req.Headers.To
	if freshToTag && resp.Headers.To.Tag == "" {
		resp.Headers.To.Tag = c.ids.Tag()
	}
	resp.Headers.CallID = req.Headers.CallID
	resp.Headers.CSeq = req.Headers.CSeq
	resp.Headers.UserAgent = c.cfg.UserAgent
	return resp
}

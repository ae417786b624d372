package client

import (
	"fmt"

	"github.com/sebas/gophone/sip"
)

// genSubscribe builds a one-shot SUBSCRIBE for voicemail message-summary
// events, reusing the Call-ID of the message that prompted it (mirroring
// the registrar's NOTIFY dialog rather than opening a new one). The
// original generator this is adapted from concatenated Accept and
// Content-Length onto the same line with no CRLF between them; this
// builder emits every header on its own line like everything else.
func (c *Client) genSubscribe(callID string, cseq uint32) *sip.Message {
	msg := sip.NewRequest("SUBSCRIBE", fmt.Sprintf("sip:%s@%s", c.cfg.Username, c.cfg.registrarHost()))
	msg.Headers.Via = []sip.ViaEntry{{
		Transport: "SIP/2.0/UDP",
		Host:      c.sock.LocalIP,
		Port:      c.sock.LocalPort,
		Params:    map[string]string{"branch": c.ids.Branch(), "rport": ""},
	}}
	aor := fmt.Sprintf("sip:%s@%s", c.cfg.Username, c.cfg.registrarHost())
	msg.Headers.From = sip.AddressHeader{Raw: aor, URI: aor, Tag: c.ids.Tag()}
	msg.Headers.To = sip.AddressHeader{Raw: aor, URI: aor}
	msg.Headers.CallID = callID
	msg.Headers.CSeq = sip.CSeq{Number: cseq, Method: "SUBSCRIBE"}
	msg.Headers.Contact = c.LocalContact()
	msg.Headers.MaxForwards = 70
	msg.Headers.UserAgent = c.cfg.UserAgent
	msg.Headers.Expires = c.cfg.DefaultExpires * 2
	msg.Headers.HasExpires = true
	msg.Headers.Event = "message-summary"
	msg.Headers.SetOther("Accept", "application/simple-message-summary")
	return msg
}

// Subscribe sends the one-shot voicemail message-summary SUBSCRIBE and
// waits for the registrar's response.
func (c *Client) Subscribe(callID string) (*sip.Message, error) {
	c.exchangeMu.Lock()
	defer c.exchangeMu.Unlock()

	ch := c.registerWaiter(callID)
	defer c.removeWaiter(callID)

	req := c.genSubscribe(callID, c.nextSubscribeCSeq())
	if err := c.send(req); err != nil {
		return nil, fmt.Errorf("client: send SUBSCRIBE: %w", err)
	}
	return c.awaitResponse(ch, c.cfg.RegisterTimeout)
}

func (c *Client) nextSubscribeCSeq() uint32 {
	c.seedMu.Lock()
	defer c.seedMu.Unlock()
	c.subscribeSeed++
	return c.subscribeSeed
}

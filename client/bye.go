package client

import (
	"fmt"

	"github.com/sebas/gophone/sip"
)

// genBye builds an in-dialog BYE. SendBye routes it to the dialog's
// recorded peer address (the INVITE's source for an inbound call, the
// 200 OK's Contact for an outbound one) rather than the registrar/proxy.
func (c *Client) genBye(d *Dialog) *sip.Message {
	msg := sip.NewRequest("BYE", d.RemoteURI)
	msg.Headers.Via = []sip.ViaEntry{{
		Transport: "SIP/2.0/UDP",
		Host:      c.sock.LocalIP,
		Port:      c.sock.LocalPort,
		Params:    map[string]string{"branch": c.ids.Branch(), "rport": ""},
	}}
	msg.Headers.MaxForwards = 70
	from := fmt.Sprintf("sip:%s@%s", c.cfg.Username, c.cfg.registrarHost())
	msg.Headers.From = sip.AddressHeader{Raw: from, URI: from, Tag: d.LocalTag}
	msg.Headers.To = sip.AddressHeader{Raw: d.RemoteURI, URI: d.RemoteURI, Tag: d.RemoteTag}
	msg.Headers.CallID = d.CallID
	msg.Headers.CSeq = sip.CSeq{Number: d.NextCSeq(), Method: "BYE"}
	msg.Headers.UserAgent = c.cfg.UserAgent
	return msg
}

// genCancel builds a CANCEL for a pending INVITE transaction, matching
// its branch and CSeq number per RFC 3261 §9.1.
func (c *Client) genCancel(calleeURI, callID string, cseq uint32, branch string) *sip.Message {
	msg := sip.NewRequest("CANCEL", calleeURI)
	msg.Headers.Via = []sip.ViaEntry{{
		Transport: "SIP/2.0/UDP",
		Host:      c.sock.LocalIP,
		Port:      c.sock.LocalPort,
		Params:    map[string]string{"branch": branch},
	}}
	msg.Headers.MaxForwards = 70
	from := fmt.Sprintf("sip:%s@%s", c.cfg.Username, c.cfg.registrarHost())
	msg.Headers.From = sip.AddressHeader{Raw: from, URI: from}
	msg.Headers.To = sip.AddressHeader{Raw: calleeURI, URI: calleeURI}
	msg.Headers.CallID = callID
	msg.Headers.CSeq = sip.CSeq{Number: cseq, Method: "CANCEL"}
	msg.Headers.UserAgent = c.cfg.UserAgent
	return msg
}

// SendBye transmits BYE for an established dialog and waits for 200 OK.
func (c *Client) SendBye(d *Dialog) error {
	c.exchangeMu.Lock()
	defer c.exchangeMu.Unlock()

	ch := c.registerWaiter(d.CallID)
	defer c.removeWaiter(d.CallID)

	req := c.genBye(d)
	addr, err := c.dialogAddr(d)
	if err != nil {
		return fmt.Errorf("client: resolve dialog peer: %w", err)
	}
	data, err := req.Serialize()
	if err != nil {
		return fmt.Errorf("client: serialize BYE: %w", err)
	}
	if err := c.sock.Send(data, addr); err != nil {
		return fmt.Errorf("client: send BYE: %w", err)
	}

	_, err = c.awaitResponse(ch, c.cfg.RegisterTimeout)
	return err
}

// SendCancel cancels a pending outbound INVITE transaction.
func (c *Client) SendCancel(calleeURI, callID string, cseq uint32, branch string) error {
	req := c.genCancel(calleeURI, callID, cseq, branch)
	return c.send(req)
}

package client

import (
	"fmt"

	"github.com/sebas/gophone/sip"
)

// AnswerInvite sends 200 OK with an SDP answer for a previously
// dispatched inbound INVITE and blocks until the matching ACK arrives,
// per the inbound state machine's "await ACK, ANSWERED" step.
func (c *Client) AnswerInvite(req *sip.Message, answer *sip.SDPBody) error {
	d, ok := c.dialogs.get(req.Headers.CallID)
	if !ok {
		return fmt.Errorf("client: answer invite: no dialog for %s", req.Headers.CallID)
	}
	d.LocalTag = c.ids.Tag()

	resp := sip.NewResponse(200, "OK")
	resp.Headers.Via = req.Headers.Via
	resp.Headers.From = req.Headers.From
	resp.Headers.To = req.Headers.To
	resp.Headers.To.Tag = d.LocalTag
	resp.Headers.CallID = req.Headers.CallID
	resp.Headers.CSeq = req.Headers.CSeq
	resp.Headers.Contact = c.LocalContact()
	resp.Headers.UserAgent = c.cfg.UserAgent
	resp.Body = answer

	addr, err := c.dialogAddr(d)
	if err != nil {
		return fmt.Errorf("client: resolve dialog peer: %w", err)
	}

	ackCh := c.registerWaiter(ackWaiterKey(d.CallID))
	defer c.removeWaiter(ackWaiterKey(d.CallID))

	if err := c.sendTo(resp, addr); err != nil {
		return fmt.Errorf("client: send 200 OK: %w", err)
	}

	_, err = c.awaitResponse(ackCh, c.cfg.RegisterTimeout)
	return err
}

// RejectInvite sends a non-2xx final response (486, 487, ...) for an
// inbound INVITE and drops the provisional dialog entry.
func (c *Client) RejectInvite(req *sip.Message, status int, reason string) error {
	d, ok := c.dialogs.get(req.Headers.CallID)
	resp := c.responseTo(req, status, reason, true)
	if !ok {
		return fmt.Errorf("client: reject invite: no dialog for %s", req.Headers.CallID)
	}
	addr, err := c.dialogAddr(d)
	if err != nil {
		return fmt.Errorf("client: resolve dialog peer: %w", err)
	}
	c.dialogs.remove(req.Headers.CallID)
	return c.sendTo(resp, addr)
}

package client

import (
	"time"

	"github.com/sebas/gophone/sip"
)

// scheduleRefreshTimer arms (replacing any previous) a one-shot timer
// that re-registers after d. Matches the expires-5s refresh cadence.
func (c *Client) scheduleRefreshTimer(d time.Duration) {
	c.cancelRefreshTimer()
	stop := make(chan struct{})
	c.regMu.Lock()
	c.refreshStop = stop
	c.regMu.Unlock()

	timer := time.NewTimer(d)
	go func() {
		select {
		case <-timer.C:
			c.checkForNewRegister()
		case <-stop:
			timer.Stop()
		}
	}()
}

// cancelRefreshTimer stops any pending refresh without firing it.
func (c *Client) cancelRefreshTimer() {
	c.regMu.Lock()
	stop := c.refreshStop
	c.refreshStop = nil
	c.regMu.Unlock()
	if stop != nil {
		close(stop)
	}
}

// awaitResponse blocks until a message arrives on ch or timeout
// elapses, mapping the latter to ErrTimeout.
func (c *Client) awaitResponse(ch chan *sip.Message, timeout time.Duration) (*sip.Message, error) {
	select {
	case msg := <-ch:
		return msg, nil
	case <-time.After(timeout):
		return nil, ErrTimeout
	}
}

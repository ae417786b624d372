package client

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/sebas/gophone/sip"
)

// genRegister builds a REGISTER request for the given expires value.
// Header order mirrors the fixed order the codec's builder emits.
func (c *Client) genRegister(callID, branch string, cseq uint32, expires int, auth *sip.Credentials) *sip.Message {
	msg := sip.NewRequest("REGISTER", c.registrarURI())
	msg.Headers.Via = []sip.ViaEntry{{
		Transport: "SIP/2.0/UDP",
		Host:      c.sock.LocalIP,
		Port:      c.sock.LocalPort,
		Params:    map[string]string{"branch": branch, "rport": ""},
	}}
	msg.Headers.MaxForwards = 70
	aor := fmt.Sprintf("sip:%s@%s", c.cfg.Username, c.cfg.registrarHost())
	msg.Headers.From = sip.AddressHeader{Raw: aor, URI: aor, Tag: c.regTag}
	msg.Headers.To = sip.AddressHeader{Raw: aor, URI: aor}
	msg.Headers.CallID = callID
	msg.Headers.CSeq = sip.CSeq{Number: cseq, Method: "REGISTER"}
	msg.Headers.Contact = c.LocalContact()
	msg.Headers.Allow = sip.SupportedMethods
	msg.Headers.UserAgent = c.cfg.UserAgent
	msg.Headers.Expires = expires
	msg.Headers.HasExpires = true
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
	return msg
}

// Register performs the full registration exchange, including a
// digest retry on a single 401, and on success schedules the refresh
// timer. Only one register/deregister/invite/subscribe exchange runs
// at a time.
func (c *Client) Register() error {
	c.exchangeMu.Lock()
	defer c.exchangeMu.Unlock()
	return c.registerWithExpires(c.cfg.DefaultExpires)
}

// Deregister sends REGISTER with Expires: 0, per RFC 3261 release.
func (c *Client) Deregister() error {
	c.exchangeMu.Lock()
	defer c.exchangeMu.Unlock()
	c.setState(StateDeregistering)
	err := c.registerWithExpires(0)
	if err == nil {
		c.setState(StateIdle)
	}
	return err
}

func (c *Client) registerWithExpires(expires int) error {
	c.setState(StateRegistering)

	callID := c.ids.CallID()
	ch := c.registerWaiter(callID)
	defer c.removeWaiter(callID)

	var auth *sip.Credentials
	cseq := c.nextRegisterCSeq()
	attempt := 0

	for {
		branch := c.ids.Branch()
		req := c.genRegister(callID, branch, cseq, expires, auth)
		if err := c.send(req); err != nil {
			return fmt.Errorf("client: send REGISTER: %w", err)
		}

		resp, err := c.awaitResponse(ch, c.cfg.RegisterTimeout)
		if err != nil {
			c.setState(StateFailed)
			return err
		}

		switch {
		case resp.StatusCode == 100:
			continue
		case resp.StatusCode == 401:
			if auth != nil {
				c.setState(StateFailed)
				return ErrInvalidCredentials
			}
			c.setState(StateAuthenticating)
			challenge := sip.Challenge{
				Realm: resp.Headers.WWWAuthN["realm"],
				Nonce: resp.Headers.WWWAuthN["nonce"],
			}
			creds, err := sip.ComputeResponse(challenge, c.cfg.Username, c.cfg.Password, "REGISTER", c.registrarURI())
			if err != nil {
				c.setState(StateFailed)
				return fmt.Errorf("client: compute digest: %w", err)
			}
			auth = &creds
			cseq = c.nextRegisterCSeq()
			continue
		case resp.StatusCode == 400:
			c.setState(StateFailed)
			return ErrBadRequest
		case resp.StatusCode == 500:
			attempt++
			if attempt > c.cfg.MaxRetryAttempts {
				c.setState(StateFailed)
				return fmt.Errorf("client: %w: REGISTER failed after %d attempts", ErrTransport, attempt)
			}
			time.Sleep(c.cfg.RetryBackoff)
			cseq = c.nextRegisterCSeq()
			continue
		case resp.StatusCode == 200:
			c.onRegisterSuccess(resp, expires)
			return nil
		default:
			c.setState(StateFailed)
			return fmt.Errorf("client: unexpected REGISTER response %d", resp.StatusCode)
		}
	}
}

func (c *Client) onRegisterSuccess(resp *sip.Message, expires int) {
	if len(resp.Headers.Via) > 0 {
		via := resp.Headers.Via[0]
		c.regMu.Lock()
		if ip, ok := via.Received(); ok {
			c.publicIP = ip
		}
		if port, ok := via.RPort(); ok && port != "" {
			c.publicPort = port
		}
		c.regMu.Unlock()
	}
	if expires == 0 {
		return
	}
	c.setState(StateRegistered)
	c.scheduleRefreshTimer(time.Duration(expires-5) * time.Second)
}

// PublicAddress returns the IP/port this client's server-observed Via
// reported, populated once behind_nat learning has completed.
func (c *Client) PublicAddress() (ip, port string) {
	c.regMu.Lock()
	defer c.regMu.Unlock()
	return c.publicIP, c.publicPort
}

func (c *Client) nextRegisterCSeq() uint32 {
	c.seedMu.Lock()
	defer c.seedMu.Unlock()
	c.registerSeed++
	return c.registerSeed
}

// checkForNewRegister fires when the refresh timer elapses. If NOTIFY
// keep-alives have kept the registration alive server-side, a fresh
// REGISTER is skipped.
func (c *Client) checkForNewRegister() {
	c.regMu.Lock()
	keepAlive := c.keepAlive
	c.regMu.Unlock()
	if keepAlive {
		slog.Debug("client: suppressing re-register, keep-alive NOTIFYs observed")
		return
	}
	c.exchangeMu.Lock()
	defer c.exchangeMu.Unlock()
	c.setState(StateRefreshing)
	if err := c.registerWithExpires(c.cfg.DefaultExpires); err != nil && c.cb != nil {
		c.cb.OnError(fmt.Errorf("client: refresh registration: %w", err))
	}
}

package phone

import (
	"log/slog"
	"sync"

	"github.com/sebas/gophone/client"
	"github.com/sebas/gophone/media"
	"github.com/sebas/gophone/sip"
)

// Handlers is the application-level callback set a Phone routes SIP
// client events to, once they have been resolved into Call objects.
type Handlers struct {
	OnIncomingCall func(call *Call)
	OnCallEnded    func(call *Call)
	OnDTMF         func(call *Call, digit rune)
	OnError        func(err error)
}

// Config bundles the SIP client configuration with the RTP port range
// a Phone's calls allocate media sockets from.
type Config struct {
	Client       client.Config
	RTPPortLow   int
	RTPPortHigh  int
}

// Phone is the facade an application constructs: it owns exactly one
// SIP Client and a table of active Calls, and is itself that client's
// Callbacks implementation.
type Phone struct {
	cfg      Config
	cl       *client.Client
	handlers Handlers
	pool     *media.PortPool

	mu    sync.RWMutex
	calls map[string]*Call
}

// New constructs a Phone bound to cfg, wiring itself as the underlying
// Client's Callbacks.
func New(cfg Config, handlers Handlers) *Phone {
	p := &Phone{
		cfg:      cfg,
		handlers: handlers,
		pool:     media.NewPortPool(cfg.RTPPortLow, cfg.RTPPortHigh),
		calls:    make(map[string]*Call),
	}
	p.cl = client.New(cfg.Client, p)
	return p
}

// Start registers with the configured server and begins accepting calls.
func (p *Phone) Start() error { return p.cl.Start() }

// Stop deregisters and releases the underlying socket.
func (p *Phone) Stop() error { return p.cl.Stop() }

// Dial places an outbound call and returns once the callee's phone has
// started ringing (100/180) or the call has otherwise failed fast.
func (p *Phone) Dial(calleeURI string) (*Call, error) {
	rtpPort, _, err := p.pool.Allocate()
	if err != nil {
		return nil, err
	}

	offer := client.BuildSDPOffer(p.cfg.Client.LocalIP, rtpPort, 0, []client.CodecOffer{
		{PayloadType: "0", RTPMap: "PCMU/8000"},
		{PayloadType: "8", RTPMap: "PCMA/8000"},
	}, sip.TransmitSendRecv)

	result, err := p.cl.Invite(calleeURI, offer)
	if err != nil {
		p.pool.Release(rtpPort)
		return nil, err
	}

	call := &Call{
		CallID:    result.CallID,
		SessionID: result.SessionID,
		Direction: DirectionOutbound,
		RemoteURI: calleeURI,
		client:    p.cl,
		pool:      p.pool,
		rtpPort:   rtpPort,
		pending:   result,
		state:     StateDialing,
	}
	p.mu.Lock()
	p.calls[call.CallID] = call
	p.mu.Unlock()

	go p.awaitOutboundFinal(call, result)

	return call, nil
}

// awaitOutboundFinal drains an outbound call's InviteResult.Final
// channel until a final (>=200) response settles the dialog, applying
// the outbound leg of the call state machine: 180 -> Ringing, 200 ->
// confirmAnswered (ACK + start RTP), 486 -> Busy, anything else ->
// Error. This is the "caller must continue polling for 200 OK"
// behaviour Invite's contract describes, run on the call's behalf so
// application code never has to poll itself.
func (p *Phone) awaitOutboundFinal(call *Call, result *client.InviteResult) {
	for {
		msg, err := client.AwaitCallFinal(result.Final, p.cfg.Client.InviteTimeout)
		if err != nil {
			call.setState(StateError)
			call.releaseMedia()
			p.cl.CloseCall(call.CallID)
			p.forget(call.CallID)
			if p.handlers.OnError != nil {
				p.handlers.OnError(err)
			}
			if p.handlers.OnCallEnded != nil {
				p.handlers.OnCallEnded(call)
			}
			return
		}

		switch {
		case msg.StatusCode == 100:
			continue
		case msg.StatusCode == 180:
			call.setState(StateRinging)
			continue
		case msg.StatusCode == 200:
			if err := call.confirmAnswered(p.cfg.Client.LocalIP, result, msg); err != nil {
				call.setState(StateError)
				call.releaseMedia()
				p.cl.CloseCall(call.CallID)
				p.forget(call.CallID)
				if p.handlers.OnError != nil {
					p.handlers.OnError(err)
				}
				if p.handlers.OnCallEnded != nil {
					p.handlers.OnCallEnded(call)
				}
			}
			return
		case msg.StatusCode == 486:
			call.setState(StateBusy)
			call.releaseMedia()
			p.cl.CloseCall(call.CallID)
			p.forget(call.CallID)
			if p.handlers.OnCallEnded != nil {
				p.handlers.OnCallEnded(call)
			}
			return
		default:
			call.setState(StateError)
			call.releaseMedia()
			p.cl.CloseCall(call.CallID)
			p.forget(call.CallID)
			if p.handlers.OnCallEnded != nil {
				p.handlers.OnCallEnded(call)
			}
			return
		}
	}
}

// Call looks up a tracked call by Call-ID.
func (p *Phone) Call(callID string) (*Call, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.calls[callID]
	return c, ok
}

func (p *Phone) forget(callID string) {
	p.mu.Lock()
	delete(p.calls, callID)
	p.mu.Unlock()
}

// OnIncomingCall implements client.Callbacks: it wraps the inbound
// INVITE in a Call in the Ringing state and hands it to the application.
func (p *Phone) OnIncomingCall(msg *sip.Message) {
	dialog, ok := p.cl.Dialog(msg.Headers.CallID)
	if !ok {
		slog.Warn("phone: incoming call with no tracked dialog", "call_id", msg.Headers.CallID)
		return
	}
	call := &Call{
		CallID:    msg.Headers.CallID,
		Direction: DirectionInbound,
		RemoteURI: dialog.RemoteURI,
		client:    p.cl,
		dialog:    dialog,
		pool:      p.pool,
		state:     StateRinging,
	}
	p.mu.Lock()
	p.calls[call.CallID] = call
	p.mu.Unlock()
	call.pendingInvite = msg

	if p.handlers.OnIncomingCall != nil {
		p.handlers.OnIncomingCall(call)
	}
}

// OnInDialogRequest implements client.Callbacks: BYE/CANCEL/ACK/NOTIFY
// events for a tracked Call are folded into its state transitions.
func (p *Phone) OnInDialogRequest(callID string, msg *sip.Message) {
	call, ok := p.Call(callID)
	if !ok {
		return
	}
	switch msg.Method {
	case "BYE", "CANCEL":
		call.releaseMedia()
		if msg.Method == "CANCEL" {
			call.mu.Lock()
			pending := call.pendingInvite
			call.mu.Unlock()
			if pending != nil {
				if err := p.cl.RejectInvite(pending, 487, "Request Terminated"); err != nil {
					slog.Debug("phone: failed to reject canceled invite", "call_id", callID, "error", err)
				}
			}
			call.setState(StateCanceled)
		} else {
			call.setState(StateEnded)
		}
		p.forget(callID)
		if p.handlers.OnCallEnded != nil {
			p.handlers.OnCallEnded(call)
		}
	}
}

// OnDTMF implements client.Callbacks.
func (p *Phone) OnDTMF(callID string, digit rune) {
	call, ok := p.Call(callID)
	if !ok {
		return
	}
	if p.handlers.OnDTMF != nil {
		p.handlers.OnDTMF(call, digit)
	}
}

// OnError implements client.Callbacks.
func (p *Phone) OnError(err error) {
	if p.handlers.OnError != nil {
		p.handlers.OnError(err)
	}
}

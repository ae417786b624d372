package client

import "github.com/sebas/gophone/sip"

// Callbacks is the capability interface the dispatch loop invokes for
// events it cannot resolve on its own. A Phone Facade registers one
// implementation per client; the client itself has no notion of a Call.
type Callbacks interface {
	// OnIncomingCall is invoked on the receive goroutine for an inbound
	// INVITE. Implementations must not block for long — any audio I/O
	// or user interaction has to happen on a goroutine the callback
	// spawns itself.
	OnIncomingCall(msg *sip.Message)

	// OnInDialogRequest is invoked for every inbound BYE/ACK/CANCEL/NOTIFY,
	// whether or not its Call-ID matches a tracked dialog. For BYE,
	// CANCEL and NOTIFY it runs before the client sends its 200 OK.
	OnInDialogRequest(callID string, msg *sip.Message)

	// OnDTMF receives a decoded RFC 4733 telephone-event digit for a
	// call. The client never invokes it: media.Stream only sends, and no
	// code in this module reads inbound RTP.
	OnDTMF(callID string, digit rune)

	// OnError is invoked for conditions the client cannot resolve
	// itself (transport failures, unrecoverable registration errors).
	OnError(err error)
}

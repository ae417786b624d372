package sip

import "fmt"

// SupportedMethods is the set of request methods this module generates
// or accepts, advertised verbatim in Allow headers.
var SupportedMethods = []string{
	"INVITE", "ACK", "BYE", "CANCEL", "NOTIFY", "REGISTER", "SUBSCRIBE", "OPTIONS",
}

// Version is the only SIP version this codec accepts on the wire.
const Version = "SIP/2.0"

// Message is a parsed SIP request or response. The header map is
// multi-valued only for Via; every other header keeps first occurrence
// (see Header).
type Message struct {
	IsResponse bool

	Method     string
	RequestURI string

	StatusCode   int
	ReasonPhrase string

	Headers *Header
	Body    *SDPBody

	Raw []byte
}

// NewRequest returns an empty request message of the given method.
func NewRequest(method, requestURI string) *Message {
	return &Message{
		Method:     method,
		RequestURI: requestURI,
		Headers:    NewHeader(),
	}
}

// NewResponse returns an empty response message with the given status.
func NewResponse(status int, reason string) *Message {
	return &Message{
		IsResponse:   true,
		StatusCode:   status,
		ReasonPhrase: reason,
		Headers:      NewHeader(),
	}
}

// Summary renders a short one-line description for logging.
func (m *Message) Summary() string {
	if m.IsResponse {
		return fmt.Sprintf("%s %d %s", Version, m.StatusCode, m.ReasonPhrase)
	}
	return fmt.Sprintf("%s %s %s", m.Method, m.RequestURI, Version)
}

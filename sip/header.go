package sip

import "strconv"

// ViaEntry is one hop of a Via header. Via is the only header that
// accumulates multiple values; every other header keeps first-occurrence
// semantics (see Header below).
type ViaEntry struct {
	Transport string
	Host      string
	Port      int
	Params    map[string]string
}

// Branch returns the branch parameter, or "" if absent.
func (v ViaEntry) Branch() string {
	return v.Params["branch"]
}

// Received returns the received parameter and whether it was present.
func (v ViaEntry) Received() (string, bool) {
	val, ok := v.Params["received"]
	return val, ok
}

// RPort returns the rport value and whether the parameter was present at
// all. An empty string with ok==true means rport appeared as a bare
// marker (client request), not yet filled in by the server.
func (v ViaEntry) RPort() (string, bool) {
	val, ok := v.Params["rport"]
	return val, ok
}

// AddressHeader models a From/To/Contact name-addr, tolerant of both
// `"Display" <sip:user@host>` and bare `sip:user@host` forms.
type AddressHeader struct {
	Raw     string
	Display string
	Tag     string
	User    string
	Host    string
	URI     string
}

// CSeq is the method-tagged request sequence number.
type CSeq struct {
	Number uint32
	Method string
}

// Header is the typed header set of a Message. Reflection-style
// untyped string maps become tagged fields per header kind; anything
// this module does not need a dedicated field for lands in Other,
// first-occurrence only, exactly like every header except Via.
type Header struct {
	Via           []ViaEntry
	From          AddressHeader
	To            AddressHeader
	CallID        string
	CSeq          CSeq
	Contact       string
	ContentType   string
	ContentLength int
	HasContentLen bool
	Allow         []string
	Supported     []string
	Expires       int
	HasExpires    bool
	MaxForwards   int
	Event         string
	UserAgent     string
	WWWAuthN      map[string]string
	Authorization map[string]string
	Other         map[string]string
	otherOrder    []string
}

// NewHeader returns an empty, ready to use Header.
func NewHeader() *Header {
	return &Header{Other: make(map[string]string)}
}

// setOther assigns a raw header value unless one is already present,
// matching the parser's first-wins rule for every header but Via.
func (h *Header) setOther(name, value string) {
	if _, exists := h.Other[name]; !exists {
		h.Other[name] = value
		h.otherOrder = append(h.otherOrder, name)
	}
}

// SetOther adds an extra header not covered by a dedicated field (e.g.
// Date, Min-Expires, Warning, Allow-Events), in the order builders call
// it, for messages this module constructs itself.
func (h *Header) SetOther(name, value string) {
	if h.Other == nil {
		h.Other = make(map[string]string)
	}
	if _, exists := h.Other[name]; !exists {
		h.otherOrder = append(h.otherOrder, name)
	}
	h.Other[name] = value
}

// OtherInOrder returns the extra headers in the order they were added.
func (h *Header) OtherInOrder() []string {
	return h.otherOrder
}

func (h *Header) Get(name string) (string, bool) {
	v, ok := h.Other[name]
	return v, ok
}

func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

package sip

import "fmt"

// ParseErrorKind classifies why a message failed to parse.
type ParseErrorKind int

const (
	KindUnsupportedVersion ParseErrorKind = iota
	KindMalformedStartLine
	KindMissingHeader
	KindEncodedBodyUnsupported
)

func (k ParseErrorKind) String() string {
	switch k {
	case KindUnsupportedVersion:
		return "unsupported_version"
	case KindMalformedStartLine:
		return "malformed_start_line"
	case KindMissingHeader:
		return "missing_required_header"
	case KindEncodedBodyUnsupported:
		return "encoded_body_unsupported"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// ParseError reports a malformed inbound SIP or SDP message.
type ParseError struct {
	Kind   ParseErrorKind
	Detail string
}

func (e *ParseError) Error() string {
	if e.Detail == "" {
		return "sip: parse error: " + e.Kind.String()
	}
	return fmt.Sprintf("sip: parse error: %s: %s", e.Kind, e.Detail)
}

func newParseError(kind ParseErrorKind, detail string) *ParseError {
	return &ParseError{Kind: kind, Detail: detail}
}

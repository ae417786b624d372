package sip

import (
	"bytes"
	"strconv"
	"strings"
)

// Parse decodes a single UDP datagram payload into a Message, following
// the RFC 3261 grammar for the subset of headers this module cares
// about. Any other inbound header is preserved verbatim in Header.Other.
func Parse(data []byte) (*Message, error) {
	headerPart, bodyPart, _ := splitHeadersBody(data)

	lines := strings.Split(string(headerPart), "\r\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return nil, newParseError(KindMalformedStartLine, "empty start line")
	}
	startLine := strings.TrimSpace(lines[0])
	tokens := strings.Fields(startLine)
	if len(tokens) < 2 {
		return nil, newParseError(KindMalformedStartLine, startLine)
	}

	msg := &Message{Headers: NewHeader(), Raw: data}

	switch {
	case strings.HasPrefix(tokens[0], "SIP/"):
		if tokens[0] != Version {
			return nil, newParseError(KindUnsupportedVersion, tokens[0])
		}
		msg.IsResponse = true
		code, err := strconv.Atoi(tokens[1])
		if err != nil {
			return nil, newParseError(KindMalformedStartLine, startLine)
		}
		msg.StatusCode = code
		if len(tokens) > 2 {
			msg.ReasonPhrase = strings.Join(tokens[2:], " ")
		}
	case isKnownMethod(tokens[0]):
		if len(tokens) < 3 {
			return nil, newParseError(KindMalformedStartLine, startLine)
		}
		if tokens[2] != Version {
			return nil, newParseError(KindUnsupportedVersion, tokens[2])
		}
		msg.Method = strings.ToUpper(tokens[0])
		msg.RequestURI = tokens[1]
	default:
		return nil, newParseError(KindMalformedStartLine, "unable to decipher SIP message: "+startLine)
	}

	parseHeaderLines(lines[1:], msg.Headers)

	if err := requireMandatoryHeaders(msg.Headers); err != nil {
		return nil, err
	}

	if msg.Headers.ContentType == "application/sdp" && len(bodyPart) > 0 {
		if _, encoded := msg.Headers.Get("Content-Encoding"); encoded {
			return nil, newParseError(KindEncodedBodyUnsupported, "Content-Encoding present")
		}
		body, err := ParseSDP(bodyPart)
		if err != nil {
			return nil, err
		}
		msg.Body = body
	}
	return msg, nil
}

func splitHeadersBody(data []byte) (headers, body []byte, hadSeparator bool) {
	idx := bytes.Index(data, []byte("\r\n\r\n"))
	if idx < 0 {
		return data, nil, false
	}
	return data[:idx], data[idx+4:], true
}

func isKnownMethod(tok string) bool {
	switch strings.ToUpper(tok) {
	case "INVITE", "ACK", "BYE", "CANCEL", "NOTIFY", "REGISTER", "SUBSCRIBE", "OPTIONS":
		return true
	default:
		return false
	}
}

func parseHeaderLines(lines []string, h *Header) {
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			continue
		}
		name := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		applyHeader(name, value, h)
	}
}

func applyHeader(name, value string, h *Header) {
	switch strings.ToLower(name) {
	case "via", "v":
		h.Via = append(h.Via, parseVia(value))
	case "from", "f":
		if h.From.Raw == "" {
			h.From = parseAddress(value)
		}
	case "to", "t":
		if h.To.Raw == "" {
			h.To = parseAddress(value)
		}
	case "call-id", "i":
		if h.CallID == "" {
			h.CallID = value
		}
	case "cseq":
		if h.CSeq.Method == "" {
			h.CSeq = parseCSeq(value)
		}
	case "contact", "m":
		if h.Contact == "" {
			h.Contact = value
		}
	case "content-type", "c":
		if h.ContentType == "" {
			h.ContentType = value
		}
	case "content-length", "l":
		if !h.HasContentLen {
			if n, err := strconv.Atoi(value); err == nil {
				h.ContentLength = n
				h.HasContentLen = true
			}
		}
	case "allow":
		if h.Allow == nil {
			h.Allow = splitCSV(value)
		}
	case "supported", "k":
		if h.Supported == nil {
			h.Supported = splitCSV(value)
		}
	case "expires":
		if !h.HasExpires {
			if n, err := strconv.Atoi(value); err == nil {
				h.Expires = n
				h.HasExpires = true
			}
		}
	case "max-forwards":
		if h.MaxForwards == 0 {
			h.MaxForwards = atoiOr(value, 70)
		}
	case "event":
		if h.Event == "" {
			h.Event = value
		}
	case "user-agent":
		if h.UserAgent == "" {
			h.UserAgent = value
		}
	case "www-authenticate":
		if h.WWWAuthN == nil {
			h.WWWAuthN = parseAuthParams(value)
		}
	case "authorization":
		if h.Authorization == nil {
			h.Authorization = parseAuthParams(value)
		}
	default:
		h.setOther(name, value)
	}
}

func requireMandatoryHeaders(h *Header) error {
	if len(h.Via) == 0 {
		return newParseError(KindMissingHeader, "Via")
	}
	if h.From.Raw == "" {
		return newParseError(KindMissingHeader, "From")
	}
	if h.To.Raw == "" {
		return newParseError(KindMissingHeader, "To")
	}
	if h.CallID == "" {
		return newParseError(KindMissingHeader, "Call-ID")
	}
	if h.CSeq.Method == "" {
		return newParseError(KindMissingHeader, "CSeq")
	}
	return nil
}

// parseVia implements the Via grammar in §4.1: split on space/semicolon,
// first token transport, second token host[:port], remainder params.
func parseVia(value string) ViaEntry {
	fields := strings.FieldsFunc(value, func(r rune) bool { return r == ' ' || r == ';' })
	v := ViaEntry{Params: make(map[string]string)}
	if len(fields) > 0 {
		v.Transport = fields[0]
	}
	if len(fields) > 1 {
		v.Host, v.Port = splitHostPort(fields[1])
	}
	for _, p := range fields[2:] {
		if eq := strings.IndexByte(p, '='); eq >= 0 {
			v.Params[p[:eq]] = p[eq+1:]
		} else {
			v.Params[p] = ""
		}
	}
	return v
}

// SplitHostPort splits a Via/Contact-style "host[:port]" or
// "[v6]:port" token into host and port, defaulting the port to 5060
// when absent, exported for callers resolving an in-dialog peer
// address from a raw Contact header.
func SplitHostPort(hp string) (string, int) {
	return splitHostPort(hp)
}

func splitHostPort(hp string) (string, int) {
	if strings.HasPrefix(hp, "[") {
		end := strings.IndexByte(hp, ']')
		if end < 0 {
			return hp, 5060
		}
		host := hp[1:end]
		rest := hp[end+1:]
		if strings.HasPrefix(rest, ":") {
			if p, err := strconv.Atoi(rest[1:]); err == nil {
				return host, p
			}
		}
		return host, 5060
	}
	if idx := strings.LastIndexByte(hp, ':'); idx >= 0 {
		if p, err := strconv.Atoi(hp[idx+1:]); err == nil {
			return hp[:idx], p
		}
	}
	return hp, 5060
}

// ParseAddress parses a From/To/Contact-shaped header value, exported
// for callers that need to pull a host/port out of a raw Contact string
// (the Header struct keeps Contact as a raw string, see Header.Contact).
func ParseAddress(raw string) AddressHeader {
	return parseAddress(raw)
}

// parseAddress implements the From/To/Contact grammar: tag extraction,
// then display-name vs. name-addr, then user@host within the URI.
func parseAddress(raw string) AddressHeader {
	a := AddressHeader{Raw: raw}
	s := raw
	if idx := strings.Index(s, ";tag="); idx >= 0 {
		rest := s[idx+len(";tag="):]
		if semi := strings.IndexByte(rest, ';'); semi >= 0 {
			a.Tag = rest[:semi]
		} else {
			a.Tag = rest
		}
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	var uri string
	if lt := strings.IndexByte(s, '<'); lt >= 0 {
		a.Display = strings.Trim(strings.TrimSpace(s[:lt]), `"`)
		if gt := strings.IndexByte(s, '>'); gt > lt {
			uri = s[lt+1 : gt]
		} else {
			uri = s[lt+1:]
		}
	} else {
		uri = s
	}
	a.URI = uri

	u := strings.TrimPrefix(strings.TrimPrefix(uri, "sips:"), "sip:")
	if semi := strings.IndexByte(u, ';'); semi >= 0 {
		u = u[:semi]
	}
	if at := strings.IndexByte(u, '@'); at >= 0 {
		a.User = u[:at]
		a.Host = u[at+1:]
	} else {
		a.Host = u
	}
	return a
}

func parseCSeq(v string) CSeq {
	parts := strings.Fields(v)
	c := CSeq{}
	if len(parts) > 0 {
		if n, err := strconv.Atoi(parts[0]); err == nil {
			c.Number = uint32(n)
		}
	}
	if len(parts) > 1 {
		c.Method = parts[1]
	}
	return c
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseAuthParams strips a leading "Digest" token and splits the
// remaining comma-separated k=v pairs (with or without a space after
// the comma), unquoting values. Commas inside double quotes do not
// split, which preserves qop="auth,auth-int" style values.
func parseAuthParams(value string) map[string]string {
	v := strings.TrimSpace(value)
	v = strings.TrimSpace(strings.TrimPrefix(v, "Digest"))
	out := make(map[string]string)
	var parts []string
	inQuotes, start := false, 0
	for i := 0; i < len(v); i++ {
		switch v[i] {
		case '"':
			inQuotes = !inQuotes
		case ',':
			if !inQuotes {
				parts = append(parts, v[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, v[start:])
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if eq := strings.IndexByte(p, '='); eq >= 0 {
			out[p[:eq]] = strings.Trim(p[eq+1:], `"`)
		}
	}
	return out
}

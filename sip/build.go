package sip

import (
	"fmt"
	"strconv"
	"strings"
)

// Serialize renders the message to CRLF-terminated ASCII. Content-Length
// always reflects the body's actual byte length; the SDP body (if any)
// is marshalled first so the header can report it accurately.
func (m *Message) Serialize() ([]byte, error) {
	var bodyBytes []byte
	if m.Body != nil {
		b, err := m.Body.Marshal()
		if err != nil {
			return nil, fmt.Errorf("sip: marshal body: %w", err)
		}
		bodyBytes = b
	}

	var sb strings.Builder
	if m.IsResponse {
		reason := m.ReasonPhrase
		if reason == "" {
			reason = defaultReason(m.StatusCode)
		}
		sb.WriteString(fmt.Sprintf("%s %d %s\r\n", Version, m.StatusCode, reason))
	} else {
		sb.WriteString(fmt.Sprintf("%s %s %s\r\n", m.Method, m.RequestURI, Version))
	}

	h := m.Headers
	for _, v := range h.Via {
		sb.WriteString("Via: " + formatVia(v) + "\r\n")
	}
	if h.MaxForwards > 0 {
		sb.WriteString(fmt.Sprintf("Max-Forwards: %d\r\n", h.MaxForwards))
	}
	if h.From.Raw != "" {
		sb.WriteString("From: " + formatAddress(h.From) + "\r\n")
	}
	if h.To.Raw != "" {
		sb.WriteString("To: " + formatAddress(h.To) + "\r\n")
	}
	if h.CallID != "" {
		sb.WriteString("Call-ID: " + h.CallID + "\r\n")
	}
	if h.CSeq.Method != "" {
		sb.WriteString(fmt.Sprintf("CSeq: %d %s\r\n", h.CSeq.Number, h.CSeq.Method))
	}
	if h.Contact != "" {
		sb.WriteString("Contact: " + h.Contact + "\r\n")
	}
	if len(h.Authorization) > 0 {
		sb.WriteString("Authorization: " + formatAuthParams(h.Authorization) + "\r\n")
	}
	if len(h.WWWAuthN) > 0 {
		sb.WriteString("WWW-Authenticate: " + formatAuthParams(h.WWWAuthN) + "\r\n")
	}
	if len(h.Allow) > 0 {
		sb.WriteString("Allow: " + strings.Join(h.Allow, ", ") + "\r\n")
	}
	if len(h.Supported) > 0 {
		sb.WriteString("Supported: " + strings.Join(h.Supported, ", ") + "\r\n")
	}
	if h.Event != "" {
		sb.WriteString("Event: " + h.Event + "\r\n")
	}
	if h.UserAgent != "" {
		sb.WriteString("User-Agent: " + h.UserAgent + "\r\n")
	}
	for _, name := range h.OtherInOrder() {
		sb.WriteString(name + ": " + h.Other[name] + "\r\n")
	}
	if h.HasExpires {
		sb.WriteString(fmt.Sprintf("Expires: %d\r\n", h.Expires))
	}
	if m.Body != nil {
		sb.WriteString("Content-Type: application/sdp\r\n")
	}
	sb.WriteString(fmt.Sprintf("Content-Length: %d\r\n\r\n", len(bodyBytes)))
	sb.Write(bodyBytes)

	return []byte(sb.String()), nil
}

func formatVia(v ViaEntry) string {
	var sb strings.Builder
	sb.WriteString(v.Transport + " ")
	if strings.Contains(v.Host, ":") {
		sb.WriteString("[" + v.Host + "]")
	} else {
		sb.WriteString(v.Host)
	}
	if v.Port != 0 && v.Port != 5060 {
		sb.WriteString(":" + strconv.Itoa(v.Port))
	}
	for _, k := range []string{"branch", "rport", "received", "maddr", "ttl"} {
		val, ok := v.Params[k]
		if !ok {
			continue
		}
		if val == "" {
			sb.WriteString(";" + k)
		} else {
			sb.WriteString(";" + k + "=" + val)
		}
	}
	return sb.String()
}

func formatAddress(a AddressHeader) string {
	var sb strings.Builder
	if a.Display != "" {
		sb.WriteString(`"` + a.Display + `" `)
	}
	sb.WriteString("<" + a.URI + ">")
	if a.Tag != "" {
		sb.WriteString(";tag=" + a.Tag)
	}
	return sb.String()
}

func formatAuthParams(params map[string]string) string {
	order := []string{"username", "realm", "nonce", "uri", "response", "algorithm", "opaque", "qop"}
	var parts []string
	seen := make(map[string]bool)
	for _, k := range order {
		if v, ok := params[k]; ok {
			parts = append(parts, formatAuthField(k, v))
			seen[k] = true
		}
	}
	for k, v := range params {
		if !seen[k] {
			parts = append(parts, formatAuthField(k, v))
		}
	}
	return "Digest " + strings.Join(parts, ",")
}

func formatAuthField(k, v string) string {
	if k == "algorithm" {
		return k + "=" + v
	}
	return k + `="` + v + `"`
}

func defaultReason(code int) string {
	switch code {
	case 100:
		return "Trying"
	case 180:
		return "Ringing"
	case 183:
		return "Session Progress"
	case 200:
		return "OK"
	case 400:
		return "Bad Request"
	case 401:
		return "Unauthorized"
	case 404:
		return "Not Found"
	case 407:
		return "Proxy Authentication Required"
	case 423:
		return "Interval Too Brief"
	case 486:
		return "Busy Here"
	case 487:
		return "Request Terminated"
	case 488:
		return "Not Acceptable Here"
	case 500:
		return "Server Internal Error"
	case 503:
		return "Service Unavailable"
	case 505:
		return "SIP Version Not Supported"
	default:
		return "Unknown"
	}
}

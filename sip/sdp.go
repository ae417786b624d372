package sip

import (
	"fmt"
	"strconv"
	"strings"

	psdp "github.com/pion/sdp/v3"
)

// TransmitType is the RFC 4566 media direction attribute.
type TransmitType int

const (
	TransmitSendRecv TransmitType = iota
	TransmitSendOnly
	TransmitRecvOnly
	TransmitInactive
)

func (t TransmitType) String() string {
	switch t {
	case TransmitSendOnly:
		return "sendonly"
	case TransmitRecvOnly:
		return "recvonly"
	case TransmitInactive:
		return "inactive"
	default:
		return "sendrecv"
	}
}

func parseTransmitType(s string) (TransmitType, bool) {
	switch s {
	case "sendrecv":
		return TransmitSendRecv, true
	case "sendonly":
		return TransmitSendOnly, true
	case "recvonly":
		return TransmitRecvOnly, true
	case "inactive":
		return TransmitInactive, true
	default:
		return TransmitSendRecv, false
	}
}

// ConnectionInfo is a c= line.
type ConnectionInfo struct {
	NetworkType string
	AddressType string
	Address     string
	TTL         int
	AddressCnt  int
}

// MediaDescription is one m= block with its owning rtpmap/fmtp attributes.
type MediaDescription struct {
	Media       string
	Port        int
	PortCount   int
	Protocol    string
	Formats     []string
	RTPMap      map[string]string // payload type -> "PCMU/8000" style value
	FMTP        map[string]string // payload type -> fmtp params
	Attributes  map[string]string
	Connections []ConnectionInfo
}

// SDPBody is the structured form of an RFC 4566 session description,
// adapted from pion/sdp/v3's SessionDescription into the shape this
// module's callers need (port/codec lookups, not a generic AST).
type SDPBody struct {
	Version        int
	OriginUser     string
	OriginSessID   string
	OriginSessVer  string
	OriginAddr     string
	SessionName    string
	Connections    []ConnectionInfo
	Media          []MediaDescription
	Attributes     map[string]string
	TransmitType   TransmitType
	HasTransmit    bool
}

// ParseSDP decodes a body per RFC 4566, deduplicating repeated identical
// lines first (SDP offers routinely repeat an identical c= line once per
// media section; pyVoIP's original parser collapses these before
// dispatch, and this mirrors that). Parsing itself is delegated to
// pion/sdp/v3 and the result adapted into SDPBody.
func ParseSDP(body []byte) (*SDPBody, error) {
	dedup := dedupeLines(body)
	var sd psdp.SessionDescription
	if err := sd.Unmarshal(dedup); err != nil {
		return nil, newParseError(KindMalformedStartLine, "sdp: "+err.Error())
	}

	out := &SDPBody{
		Version:     sd.Version,
		SessionName: string(sd.SessionName),
		Attributes:  make(map[string]string),
	}
	out.OriginUser = sd.Origin.Username
	out.OriginSessID = strconv.FormatUint(sd.Origin.SessionID, 10)
	out.OriginSessVer = strconv.FormatUint(sd.Origin.SessionVersion, 10)
	out.OriginAddr = sd.Origin.UnicastAddress

	if sd.ConnectionInformation != nil {
		out.Connections = append(out.Connections, connFromPion(sd.ConnectionInformation))
	}
	for _, a := range sd.Attributes {
		if tt, ok := parseTransmitType(a.Key); ok {
			out.TransmitType = tt
			out.HasTransmit = true
			continue
		}
		out.Attributes[a.Key] = a.Value
	}

	for _, md := range sd.MediaDescriptions {
		m := MediaDescription{
			Media:      md.MediaName.Media,
			Port:       md.MediaName.Port.Value,
			PortCount:  1,
			Protocol:   strings.Join(md.MediaName.Protos, "/"),
			Formats:    append([]string{}, md.MediaName.Formats...),
			RTPMap:     make(map[string]string),
			FMTP:       make(map[string]string),
			Attributes: make(map[string]string),
		}
		if md.MediaName.Port.Range != nil {
			m.PortCount = *md.MediaName.Port.Range
		}
		if md.ConnectionInformation != nil {
			m.Connections = append(m.Connections, connFromPion(md.ConnectionInformation))
		}
		for _, a := range md.Attributes {
			switch a.Key {
			case "rtpmap":
				pt, val, ok := splitPTAttr(a.Value)
				if ok {
					m.RTPMap[pt] = val
				}
			case "fmtp":
				pt, val, ok := splitPTAttr(a.Value)
				if ok {
					m.FMTP[pt] = val
				}
			default:
				if tt, ok := parseTransmitType(a.Key); ok {
					out.TransmitType = tt
					out.HasTransmit = true
					continue
				}
				m.Attributes[a.Key] = a.Value
			}
		}
		out.Media = append(out.Media, m)
	}
	return out, nil
}

func connFromPion(ci *psdp.ConnectionInformation) ConnectionInfo {
	c := ConnectionInfo{NetworkType: ci.NetworkType, AddressType: ci.AddressType}
	if ci.Address != nil {
		c.Address = ci.Address.Address
		if ci.Address.TTL != nil {
			c.TTL = *ci.Address.TTL
		}
		if ci.Address.Range != nil {
			c.AddressCnt = *ci.Address.Range
		}
	}
	return c
}

func splitPTAttr(v string) (pt, rest string, ok bool) {
	parts := strings.SplitN(v, " ", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func dedupeLines(body []byte) []byte {
	lines := strings.Split(string(body), "\r\n")
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return []byte(strings.Join(out, "\r\n") + "\r\n")
}

// Marshal renders the body back to RFC 4566 bytes via pion/sdp/v3.
func (b *SDPBody) Marshal() ([]byte, error) {
	sd := &psdp.SessionDescription{
		Version: b.Version,
		Origin: psdp.Origin{
			Username:       orDefault(b.OriginUser, "-"),
			SessionID:      parseUint(b.OriginSessID),
			SessionVersion: parseUint(b.OriginSessVer),
			NetworkType:    "IN",
			AddressType:    "IP4",
			UnicastAddress: b.OriginAddr,
		},
		SessionName: psdp.SessionName(orDefault(b.SessionName, "-")),
		TimeDescriptions: []psdp.TimeDescription{
			{Timing: psdp.Timing{StartTime: 0, StopTime: 0}},
		},
	}
	if len(b.Connections) > 0 {
		sd.ConnectionInformation = connToPion(b.Connections[0])
	}
	var attrs []psdp.Attribute
	for k, v := range b.Attributes {
		attrs = append(attrs, psdp.Attribute{Key: k, Value: v})
	}
	if b.HasTransmit {
		attrs = append(attrs, psdp.Attribute{Key: b.TransmitType.String()})
	}
	sd.Attributes = attrs

	for _, m := range b.Media {
		md := &psdp.MediaDescription{
			MediaName: psdp.MediaName{
				Media:   m.Media,
				Port:    psdp.RangedPort{Value: m.Port},
				Protos:  strings.Split(orDefault(m.Protocol, "RTP/AVP"), "/"),
				Formats: m.Formats,
			},
		}
		for _, pt := range m.Formats {
			if rtpmap, ok := m.RTPMap[pt]; ok {
				md.Attributes = append(md.Attributes, psdp.Attribute{Key: "rtpmap", Value: pt + " " + rtpmap})
			}
		}
		for _, pt := range m.Formats {
			if fmtp, ok := m.FMTP[pt]; ok {
				md.Attributes = append(md.Attributes, psdp.Attribute{Key: "fmtp", Value: pt + " " + fmtp})
			}
		}
		for k, v := range m.Attributes {
			if v == "" {
				md.Attributes = append(md.Attributes, psdp.Attribute{Key: k})
			} else {
				md.Attributes = append(md.Attributes, psdp.Attribute{Key: k, Value: v})
			}
		}
		sd.MediaDescriptions = append(sd.MediaDescriptions, md)
	}
	return sd.Marshal()
}

func connToPion(c ConnectionInfo) *psdp.ConnectionInformation {
	addr := &psdp.Address{Address: c.Address}
	if c.TTL > 0 {
		ttl := c.TTL
		addr.TTL = &ttl
	}
	if c.AddressCnt > 0 {
		cnt := c.AddressCnt
		addr.Range = &cnt
	}
	return &psdp.ConnectionInformation{
		NetworkType: orDefault(c.NetworkType, "IN"),
		AddressType: orDefault(c.AddressType, "IP4"),
		Address:     addr,
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func parseUint(s string) uint64 {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// String renders a MediaDescription in m= line shorthand, used by log
// statements and error messages rather than wire serialisation.
func (m MediaDescription) String() string {
	return fmt.Sprintf("%s %d/%d %s %v", m.Media, m.Port, m.PortCount, m.Protocol, m.Formats)
}

package sip

import (
	"crypto/md5"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// branchMagicCookie is the RFC 3261 section 8.1.1.7 magic cookie every
// branch parameter generated by a compliant client must carry.
const branchMagicCookie = "z9hG4bK"

// Counter is a monotonic per-category sequence starting at 1, matching
// the counters pyVoIP keeps for INVITE/REGISTER/SUBSCRIBE/BYE/Call-ID/
// session-id generation.
type Counter struct {
	n uint64
}

// Next returns the next value in the sequence, starting at 1.
func (c *Counter) Next() uint64 {
	return atomic.AddUint64(&c.n, 1)
}

// Current returns the last value handed out, or 0 if Next was never called.
func (c *Counter) Current() uint64 {
	return atomic.LoadUint64(&c.n)
}

// IDFactory generates the identifiers a SIP client needs: branches, tags,
// Call-IDs and the client's stable instance UUID. A single IDFactory is
// shared by one client for its entire lifetime so that the registration
// tag and instance UUID stay stable across re-registrations.
type IDFactory struct {
	LocalIP   string
	LocalPort int

	mu   sync.Mutex
	tags map[string]struct{}

	callIDSeed Counter
	sessIDSeed Counter

	instanceUUID string
	regTag       string
	regTagOnce   sync.Once
}

// NewIDFactory constructs a factory bound to the client's local address,
// used to suffix generated Call-IDs per RFC 3261.
func NewIDFactory(localIP string, localPort int) *IDFactory {
	return &IDFactory{
		LocalIP:   localIP,
		LocalPort: localPort,
		tags:      make(map[string]struct{}),
	}
}

// Branch returns "z9hG4bK" followed by 25 random hex characters.
func (f *IDFactory) Branch() string {
	return branchMagicCookie + randomHex(25)
}

// Tag returns an 8 hex-character MD5 digest of a random 32-bit integer,
// retried until it is unique within this factory's lifetime.
func (f *IDFactory) Tag() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for {
		var b [4]byte
		_, _ = rand.Read(b[:])
		sum := md5.Sum(b[:])
		tag := hex.EncodeToString(sum[:])[:8]
		if _, taken := f.tags[tag]; !taken {
			f.tags[tag] = struct{}{}
			return tag
		}
	}
}

// RegistrationTag returns the tag allocated once at client construction
// and reused for the lifetime of the registration dialog.
func (f *IDFactory) RegistrationTag() string {
	f.regTagOnce.Do(func() {
		f.regTag = f.Tag()
	})
	return f.regTag
}

// CallID returns hex32(sha256(counter)) "@" local_ip ":" local_port.
func (f *IDFactory) CallID() string {
	n := f.callIDSeed.Next()
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d", n)))
	return fmt.Sprintf("%s@%s:%d", hex.EncodeToString(sum[:])[:32], f.LocalIP, f.LocalPort)
}

// SessionID returns the next monotonic SDP o= session id seed.
func (f *IDFactory) SessionID() uint64 {
	return f.sessIDSeed.Next()
}

// InstanceUUID returns a canonical uppercase UUID allocated once per
// factory instance and reused as +sip.instance across all registrations.
func (f *IDFactory) InstanceUUID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.instanceUUID == "" {
		f.instanceUUID = strings.ToUpper(uuid.New().String())
	}
	return f.instanceUUID
}

func randomHex(n int) string {
	// two hex chars per byte; round up so we always have enough to trim.
	buf := make([]byte, int(math.Ceil(float64(n)/2)))
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)[:n]
}

package client

import "time"

// Config is the set of options a SIP client is constructed with,
// matching the option surface described for the core: registrar
// address, credentials, local binding, and timing.
type Config struct {
	Server   string
	Port     int
	Username string
	Password string

	LocalIP   string
	LocalPort int

	// Proxy, if set, overrides Server:Port as the destination for every
	// outbound send while the Request-URI and headers are built as usual.
	Proxy string

	BehindNAT bool

	DefaultExpires   int
	RegisterTimeout  time.Duration
	InviteTimeout    time.Duration
	RetryBackoff     time.Duration
	MaxRetryAttempts int

	UserAgent string
}

// DefaultConfig returns a Config with the fallbacks the core documents:
// port 5060, local_ip 0.0.0.0, local_port 5060, 120s registration
// expiry, 30s register timeout, 5s backoff after a 500.
func DefaultConfig() Config {
	return Config{
		Port:             5060,
		LocalIP:          "0.0.0.0",
		LocalPort:        5060,
		DefaultExpires:   120,
		RegisterTimeout:  30 * time.Second,
		InviteTimeout:    32 * time.Second,
		RetryBackoff:     5 * time.Second,
		MaxRetryAttempts: 5,
		UserAgent:        "gophone",
	}
}

func (c Config) registrarHost() string {
	if c.Proxy != "" {
		return c.Proxy
	}
	return c.Server
}

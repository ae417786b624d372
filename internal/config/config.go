// Package config loads the example driver's flags and environment
// overrides into a client.Config/phone.Config pair, the same
// flag-then-env-override shape the teacher's service configs use.
package config

import (
	"flag"
	"os"
	"strconv"
	"time"

	"github.com/sebas/gophone/client"
	"github.com/sebas/gophone/phone"
)

// Config holds the example driver's configuration, covering every
// option spec.md §6 recognises for a single softphone endpoint.
type Config struct {
	Server   string
	Port     int
	Username string
	Password string

	LocalIP   string
	LocalPort int
	Proxy     string
	BehindNAT bool

	RTPPortLow  int
	RTPPortHigh int

	DefaultExpires  int
	RegisterTimeout time.Duration

	LogLevel string
}

// Load defines flags, parses them, then lets environment variables
// override anything set or defaulted on the command line.
func Load() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.Server, "server", "", "SIP registrar hostname or IP")
	flag.IntVar(&cfg.Port, "port", 5060, "SIP registrar port")
	flag.StringVar(&cfg.Username, "username", "", "SIP account username")
	flag.StringVar(&cfg.Password, "password", "", "SIP account password")
	flag.StringVar(&cfg.LocalIP, "local-ip", "0.0.0.0", "local bind address")
	flag.IntVar(&cfg.LocalPort, "local-port", 5060, "local bind port")
	flag.StringVar(&cfg.Proxy, "proxy", "", "outbound proxy for all sends (optional)")
	flag.BoolVar(&cfg.BehindNAT, "behind-nat", false, "learn public address from Via received/rport")
	flag.IntVar(&cfg.RTPPortLow, "rtp-port-low", 10000, "lowest RTP port to allocate")
	flag.IntVar(&cfg.RTPPortHigh, "rtp-port-high", 20000, "highest RTP port to allocate")
	flag.IntVar(&cfg.DefaultExpires, "default-expires", 120, "registration expiry in seconds")
	registerTimeout := flag.Int("register-timeout", 30, "seconds to wait for a REGISTER reply")
	flag.StringVar(&cfg.LogLevel, "loglevel", "info", "log level (debug, info, warn, error)")

	flag.Parse()
	cfg.RegisterTimeout = time.Duration(*registerTimeout) * time.Second

	if v := os.Getenv("GOPHONE_SERVER"); v != "" {
		cfg.Server = v
	}
	if v := os.Getenv("GOPHONE_PORT"); v != "" {
		cfg.Port, _ = strconv.Atoi(v)
	}
	if v := os.Getenv("GOPHONE_USERNAME"); v != "" {
		cfg.Username = v
	}
	if v := os.Getenv("GOPHONE_PASSWORD"); v != "" {
		cfg.Password = v
	}
	if v := os.Getenv("GOPHONE_LOCAL_IP"); v != "" {
		cfg.LocalIP = v
	}
	if v := os.Getenv("GOPHONE_LOCAL_PORT"); v != "" {
		cfg.LocalPort, _ = strconv.Atoi(v)
	}
	if v := os.Getenv("GOPHONE_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("GOPHONE_BEHIND_NAT"); v != "" {
		cfg.BehindNAT, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("GOPHONE_RTP_PORT_LOW"); v != "" {
		cfg.RTPPortLow, _ = strconv.Atoi(v)
	}
	if v := os.Getenv("GOPHONE_RTP_PORT_HIGH"); v != "" {
		cfg.RTPPortHigh, _ = strconv.Atoi(v)
	}
	if v := os.Getenv("GOPHONE_DEFAULT_EXPIRES"); v != "" {
		cfg.DefaultExpires, _ = strconv.Atoi(v)
	}
	if v := os.Getenv("GOPHONE_REGISTER_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RegisterTimeout = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("GOPHONE_LOGLEVEL"); v != "" {
		cfg.LogLevel = v
	}

	return cfg
}

// PhoneConfig adapts the driver's flat Config into the phone.Config
// the facade expects.
func (c *Config) PhoneConfig() phone.Config {
	base := client.DefaultConfig()
	base.Server = c.Server
	base.Port = c.Port
	base.Username = c.Username
	base.Password = c.Password
	base.LocalIP = c.LocalIP
	base.LocalPort = c.LocalPort
	base.Proxy = c.Proxy
	base.BehindNAT = c.BehindNAT
	base.DefaultExpires = c.DefaultExpires
	base.RegisterTimeout = c.RegisterTimeout

	return phone.Config{
		Client:      base,
		RTPPortLow:  c.RTPPortLow,
		RTPPortHigh: c.RTPPortHigh,
	}
}

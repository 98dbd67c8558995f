package transport

import (
	"fmt"
	"net"
	"net/url"
	"time"
)

// Config holds the connection limits
type Config struct {
	// MaxDecodingMessageSize bounds the size of a single inbound message
	MaxDecodingMessageSize int

	// ConnectTimeout bounds establishing the connection
	ConnectTimeout time.Duration

	// RequestTimeout bounds opening the stream and sending the initial request
	RequestTimeout time.Duration
}

// Defaults
const (
	DefaultMaxDecodingMessageSize = 10 * 1024 * 1024
	DefaultConnectTimeout         = 10 * time.Second
	DefaultRequestTimeout         = 60 * time.Second
)

// DefaultConfig returns the default connection limits
func DefaultConfig() Config {
	return Config{
		MaxDecodingMessageSize: DefaultMaxDecodingMessageSize,
		ConnectTimeout:         DefaultConnectTimeout,
		RequestTimeout:         DefaultRequestTimeout,
	}
}

// WithDefaults returns the config with zero fields set to defaults
func (c Config) WithDefaults() Config {
	if c.MaxDecodingMessageSize <= 0 {
		c.MaxDecodingMessageSize = DefaultMaxDecodingMessageSize
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	return c
}

// Endpoint is a parsed feed address
type Endpoint struct {
	Target string // host:port
	Secure bool
}

// ParseEndpoint parses a feed URL.
//
// The https scheme selects TLS and defaults to port 443, the http scheme
// selects plaintext and defaults to port 80.
func ParseEndpoint(s string) (Endpoint, error) {
	u, err := url.Parse(s)
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid endpoint %q: %w", s, err)
	}

	var e Endpoint
	var port string
	switch u.Scheme {
	case "https":
		e.Secure = true
		port = "443"
	case "http":
		port = "80"
	default:
		return Endpoint{}, fmt.Errorf("invalid endpoint %q: scheme must be http or https", s)
	}
	if u.Hostname() == "" {
		return Endpoint{}, fmt.Errorf("invalid endpoint %q: no host", s)
	}
	if u.Port() != "" {
		port = u.Port()
	}
	e.Target = net.JoinHostPort(u.Hostname(), port)
	return e, nil
}

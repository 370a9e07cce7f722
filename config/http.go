package config

import "time"

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// ReadTimeout bounds how long the server waits for a full request.
	// Import payloads can be large, so this is more generous than usual.
	ReadTimeout time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"2m"`

	// WriteTimeout bounds response writes. Inline imports run within the
	// request, so the ceiling must cover a full inline batch.
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"5m"`

	// MaxBodyBytes caps the request body size for import uploads.
	MaxBodyBytes int64 `env:"HTTP_MAX_BODY_BYTES" envDefault:"268435456"` // 256 MiB
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	if h.ReadTimeout <= 0 {
		h.ReadTimeout = 2 * time.Minute
	}
	if h.WriteTimeout <= 0 {
		h.WriteTimeout = 5 * time.Minute
	}
	if h.MaxBodyBytes <= 0 {
		h.MaxBodyBytes = 256 << 20
	}
}

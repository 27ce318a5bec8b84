package connection

import "time"

// Default values for optional configuration fields.
const (
	DefaultReconnectBaseDelay = 1 * time.Second
	DefaultReconnectMaxDelay  = 30 * time.Second
	DefaultHeartbeatInterval  = 30 * time.Second
	DefaultConnectionTimeout  = 10 * time.Second
)

// Config configures a Client.
type Config struct {
	// URL is the transport endpoint.
	URL string

	// AutoReconnect enables automatic recovery after a peer- or
	// network-initiated close. Note the zero value disables it; build
	// configs with DefaultConfig (or config.ClientConfig, whose unset
	// auto_reconnect resolves to true) to get the standard behavior.
	AutoReconnect bool

	// MaxReconnectAttempts bounds recovery attempts per outage.
	// Zero or negative means unbounded.
	MaxReconnectAttempts int

	// ReconnectBaseDelay is the backoff base for the first retry.
	ReconnectBaseDelay time.Duration

	// ReconnectMaxDelay caps the backoff delay.
	ReconnectMaxDelay time.Duration

	// HeartbeatInterval is the period between liveness probes while
	// connected.
	HeartbeatInterval time.Duration

	// ConnectionTimeout bounds how long a single dial may take before
	// the attempt fails with ErrConnectTimeout.
	ConnectionTimeout time.Duration
}

// DefaultConfig returns the standard client settings for an endpoint.
func DefaultConfig(url string) Config {
	return Config{
		URL:                url,
		AutoReconnect:      true,
		ReconnectBaseDelay: DefaultReconnectBaseDelay,
		ReconnectMaxDelay:  DefaultReconnectMaxDelay,
		HeartbeatInterval:  DefaultHeartbeatInterval,
		ConnectionTimeout:  DefaultConnectionTimeout,
	}
}

func (c *Config) applyDefaults() {
	if c.ReconnectBaseDelay <= 0 {
		c.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.ReconnectMaxDelay <= 0 {
		c.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.ConnectionTimeout <= 0 {
		c.ConnectionTimeout = DefaultConnectionTimeout
	}
}

package config

import "time"

// Config is the root configuration for a streamsock process.
type Config struct {
	Instance InstanceConfig `yaml:"instance"`
	Client   ClientConfig   `yaml:"client"`
	Database DatabaseConfig `yaml:"database"`
	Recorder RecorderConfig `yaml:"recorder"`
}

// InstanceConfig identifies this process.
type InstanceConfig struct {
	ID string `yaml:"id"`
	AZ string `yaml:"az"`
}

// ClientConfig holds connection controller settings.
type ClientConfig struct {
	URL            string `yaml:"url"`
	APIKey         string `yaml:"api_key"`          // API key ID for signed handshakes
	PrivateKeyPath string `yaml:"private_key_path"` // Path to RSA private key PEM file

	// AutoReconnect defaults to true; use `auto_reconnect: false` to
	// disable. A pointer distinguishes "unset" from explicit false.
	AutoReconnect *bool `yaml:"auto_reconnect"`

	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
	ReconnectBaseDelay   time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay    time.Duration `yaml:"reconnect_max_delay"`
	HeartbeatInterval    time.Duration `yaml:"heartbeat_interval"`
	ConnectionTimeout    time.Duration `yaml:"connection_timeout"`
}

// DatabaseConfig holds the archive database connection.
type DatabaseConfig struct {
	Archive DBConfig `yaml:"archive"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// RecorderConfig holds batch recorder settings.
type RecorderConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// AutoReconnectEnabled resolves the tri-state auto_reconnect field.
func (c *ClientConfig) AutoReconnectEnabled() bool {
	return c.AutoReconnect == nil || *c.AutoReconnect
}

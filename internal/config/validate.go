package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.Client.URL == "" {
		return errors.New("client.url is required")
	}
	if !strings.HasPrefix(c.Client.URL, "ws://") && !strings.HasPrefix(c.Client.URL, "wss://") {
		return fmt.Errorf("client.url must be a ws:// or wss:// endpoint, got %q", c.Client.URL)
	}
	if c.Client.ReconnectBaseDelay > c.Client.ReconnectMaxDelay {
		return fmt.Errorf("client.reconnect_base_delay (%s) cannot exceed reconnect_max_delay (%s)",
			c.Client.ReconnectBaseDelay, c.Client.ReconnectMaxDelay)
	}
	if (c.Client.APIKey == "") != (c.Client.PrivateKeyPath == "") {
		return errors.New("client.api_key and client.private_key_path must be set together")
	}

	if err := c.Database.Archive.validate("database.archive"); err != nil {
		return err
	}

	if c.Recorder.BatchSize < 1 {
		return errors.New("recorder.batch_size must be >= 1")
	}
	if c.Recorder.BufferSize < 1 {
		return errors.New("recorder.buffer_size must be >= 1")
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

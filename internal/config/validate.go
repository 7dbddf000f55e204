package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Gateway.URL == "" {
		return errors.New("gateway.url is required")
	}
	u, err := url.Parse(c.Gateway.URL)
	if err != nil {
		return fmt.Errorf("gateway.url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("gateway.url scheme must be ws or wss, got %q", u.Scheme)
	}
	if strings.Count(c.Gateway.URLTemplate, "%s") != 1 {
		return errors.New("gateway.url_template must contain exactly one %s")
	}

	if c.Connection.ReconnectBaseDelay <= 0 {
		return errors.New("connection.reconnect_base_delay must be > 0")
	}
	if c.Connection.ReconnectMaxDelay < c.Connection.ReconnectBaseDelay {
		return fmt.Errorf("connection.reconnect_max_delay (%s) cannot be less than reconnect_base_delay (%s)",
			c.Connection.ReconnectMaxDelay, c.Connection.ReconnectBaseDelay)
	}
	if c.Connection.BufferSize < 1 {
		return errors.New("connection.buffer_size must be >= 1")
	}

	switch c.Dispatch.Policy {
	case "sequential", "pooled":
	default:
		return fmt.Errorf("dispatch.policy must be sequential or pooled, got %q", c.Dispatch.Policy)
	}
	if c.Dispatch.Workers < 1 {
		return errors.New("dispatch.workers must be >= 1")
	}
	if c.Dispatch.MaxRate < 0 {
		return errors.New("dispatch.max_rate must be >= 0")
	}
	if c.Dispatch.BaseOffset < 0 {
		return errors.New("dispatch.base_offset must be >= 0")
	}
	if c.Dispatch.Skip < 0 {
		return errors.New("dispatch.skip must be >= 0")
	}
	if c.Dispatch.Retries < 0 {
		return errors.New("dispatch.retries must be >= 0")
	}

	if err := c.Source.validate(); err != nil {
		return err
	}
	if c.Source.Kind == "postgres" {
		if err := c.Database.validate("database"); err != nil {
			return err
		}
	}

	if c.Output.Dir == "" {
		return errors.New("output.dir is required")
	}
	switch c.Output.BucketBy {
	case "id", "name":
	default:
		return fmt.Errorf("output.bucket_by must be id or name, got %q", c.Output.BucketBy)
	}
	if c.Output.WriterWorkers < 1 {
		return errors.New("output.writer_workers must be >= 1")
	}
	if c.Output.WriteAttempts < 1 {
		return errors.New("output.write_attempts must be >= 1")
	}

	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 0 and 65535, got %d", c.Metrics.Port)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}

func (s *SourceConfig) validate() error {
	switch s.Kind {
	case "file":
		if s.Dir == "" {
			return errors.New("source.dir is required")
		}
		if strings.Count(s.Pattern, "%d") != 1 {
			return errors.New("source.pattern must contain exactly one %d")
		}
	case "postgres":
		if s.Table == "" {
			return errors.New("source.table is required")
		}
	default:
		return fmt.Errorf("source.kind must be file or postgres, got %q", s.Kind)
	}
	if s.FirstPage < 1 {
		return errors.New("source.first_page must be >= 1")
	}
	if s.LastPage < 0 {
		return errors.New("source.last_page must be >= 0")
	}
	if s.LastPage != 0 && s.LastPage < s.FirstPage {
		return fmt.Errorf("source.last_page (%d) cannot be less than first_page (%d)", s.LastPage, s.FirstPage)
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

package config

import (
	"time"

	"github.com/rickgao/collection-replay/internal/protocol"
)

// Default values for optional configuration fields.
const (
	DefaultURLTemplate        = protocol.DefaultURLTemplate
	DefaultAppVersion         = protocol.DefaultAppVersion
	DefaultTeamID             = protocol.DefaultTeamID
	DefaultUserAgent          = protocol.DefaultUserAgent
	DefaultPingInterval       = 25 * time.Second
	DefaultPingTimeout        = 30 * time.Second
	DefaultWriteTimeout       = 5 * time.Second
	DefaultHandshakeTimeout   = 10 * time.Second
	DefaultHeartbeatText      = "2" // engine.io v3 client ping
	DefaultReconnectBaseDelay = 1 * time.Second
	DefaultReconnectMaxDelay  = 32 * time.Second
	DefaultBufferSize         = 1000
	DefaultPolicy             = "pooled"
	DefaultWorkers            = 20
	DefaultSendDelay          = 1 * time.Second
	DefaultRetryDelay         = 1 * time.Second
	DefaultSourceKind         = "file"
	DefaultSourceDir          = "Collection_ids"
	DefaultSourcePattern      = "%d.json"
	DefaultFirstPage          = 1
	DefaultPageSize           = 500
	DefaultTable              = "collection_ids"
	DefaultDBPort             = 5432
	DefaultDBSSLMode          = "prefer"
	DefaultMaxConns           = 4
	DefaultMinConns           = 1
	DefaultOutputDir          = "target"
	DefaultBucketBy           = "id"
	DefaultWriterWorkers      = 4
	DefaultWriteAttempts      = 3
	DefaultWriteRetryDelay    = 100 * time.Millisecond
	DefaultMetricsPath        = "/metrics"
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "text"
)

// DefaultGatewayParams are the socket.io session parameters every gateway URL carries.
// Account-specific parameters (userId, teamId, version, ...) come from the config file.
func DefaultGatewayParams() map[string]string {
	return map[string]string{
		"__sails_io_sdk_version":  "1.2.1",
		"__sails_io_sdk_platform": "browser",
		"__sails_io_sdk_language": "javascript",
		"EIO":                     "3",
		"transport":               "websocket",
	}
}

// ApplyDefaults fills zero-valued optional fields.
func (c *Config) ApplyDefaults() {
	// Gateway defaults
	params := DefaultGatewayParams()
	for k, v := range c.Gateway.Params {
		params[k] = v
	}
	c.Gateway.Params = params
	if c.Gateway.URLTemplate == "" {
		c.Gateway.URLTemplate = DefaultURLTemplate
	}
	if c.Gateway.AppVersion == "" {
		c.Gateway.AppVersion = DefaultAppVersion
	}
	if c.Gateway.TeamID == "" {
		c.Gateway.TeamID = DefaultTeamID
	}
	if c.Gateway.UserAgent == "" {
		c.Gateway.UserAgent = DefaultUserAgent
	}

	// Connection defaults
	if c.Connection.PingInterval == 0 {
		c.Connection.PingInterval = DefaultPingInterval
	}
	if c.Connection.PingTimeout == 0 {
		c.Connection.PingTimeout = DefaultPingTimeout
	}
	if c.Connection.WriteTimeout == 0 {
		c.Connection.WriteTimeout = DefaultWriteTimeout
	}
	if c.Connection.HandshakeTimeout == 0 {
		c.Connection.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Connection.HeartbeatText == "" {
		c.Connection.HeartbeatText = DefaultHeartbeatText
	}
	if c.Connection.ReconnectBaseDelay == 0 {
		c.Connection.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Connection.ReconnectMaxDelay == 0 {
		c.Connection.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.Connection.BufferSize == 0 {
		c.Connection.BufferSize = DefaultBufferSize
	}

	// Dispatch defaults
	if c.Dispatch.Policy == "" {
		c.Dispatch.Policy = DefaultPolicy
	}
	if c.Dispatch.Workers == 0 {
		c.Dispatch.Workers = DefaultWorkers
	}
	if c.Dispatch.SendDelay == 0 {
		c.Dispatch.SendDelay = DefaultSendDelay
	}
	if c.Dispatch.RetryDelay == 0 {
		c.Dispatch.RetryDelay = DefaultRetryDelay
	}

	// Source defaults
	if c.Source.Kind == "" {
		c.Source.Kind = DefaultSourceKind
	}
	if c.Source.Dir == "" {
		c.Source.Dir = DefaultSourceDir
	}
	if c.Source.Pattern == "" {
		c.Source.Pattern = DefaultSourcePattern
	}
	if c.Source.FirstPage == 0 {
		c.Source.FirstPage = DefaultFirstPage
	}
	if c.Source.PageSize == 0 {
		c.Source.PageSize = DefaultPageSize
	}
	if c.Source.Table == "" {
		c.Source.Table = DefaultTable
	}

	// Database defaults
	applyDBDefaults(&c.Database)

	// Output defaults
	if c.Output.Dir == "" {
		c.Output.Dir = DefaultOutputDir
	}
	if c.Output.BucketBy == "" {
		c.Output.BucketBy = DefaultBucketBy
	}
	if c.Output.WriterWorkers == 0 {
		c.Output.WriterWorkers = DefaultWriterWorkers
	}
	if c.Output.WriteAttempts == 0 {
		c.Output.WriteAttempts = DefaultWriteAttempts
	}
	if c.Output.WriteRetryDelay == 0 {
		c.Output.WriteRetryDelay = DefaultWriteRetryDelay
	}

	// Metrics defaults (port 0 leaves the server off)
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}

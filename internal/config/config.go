package config

import "time"

// Config is the root configuration for a replay run.
type Config struct {
	Gateway    GatewayConfig    `yaml:"gateway"`
	Connection ConnectionConfig `yaml:"connection"`
	Dispatch   DispatchConfig   `yaml:"dispatch"`
	Source     SourceConfig     `yaml:"source"`
	Database   DBConfig         `yaml:"database"`
	Output     OutputConfig     `yaml:"output"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Log        LogConfig        `yaml:"log"`
}

// GatewayConfig describes the socket gateway and the request envelope.
type GatewayConfig struct {
	URL         string            `yaml:"url"`          // Base socket URL, e.g. wss://host/socket.io/
	Params      map[string]string `yaml:"params"`       // Session query parameters merged into URL
	Headers     map[string]string `yaml:"headers"`      // Handshake headers (Origin, User-Agent)
	AppVersion  string            `yaml:"app_version"`  // x-app-version request header
	UserAgent   string            `yaml:"user_agent"`   // user-agent request header
	TeamID      string            `yaml:"team_id"`      // x-entity-team-id request header
	URLTemplate string            `yaml:"url_template"` // Request URL, %s is the resource id
}

// ConnectionConfig holds connection manager settings.
type ConnectionConfig struct {
	PingInterval       time.Duration `yaml:"ping_interval"`
	PingTimeout        time.Duration `yaml:"ping_timeout"`
	WriteTimeout       time.Duration `yaml:"write_timeout"`
	HandshakeTimeout   time.Duration `yaml:"handshake_timeout"`
	HeartbeatText      string        `yaml:"heartbeat_text"`
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
	BufferSize         int           `yaml:"buffer_size"`
}

// DispatchConfig holds dispatcher settings.
type DispatchConfig struct {
	Policy     string        `yaml:"policy"`      // sequential or pooled
	Workers    int           `yaml:"workers"`     // Pooled concurrency
	SendDelay  time.Duration `yaml:"send_delay"`  // Negative disables the delay
	MaxRate    float64       `yaml:"max_rate"`    // Aggregate sends per second, 0 = unlimited
	BaseOffset int64         `yaml:"base_offset"` // First sequence id is base_offset+1
	Skip       int64         `yaml:"skip"`        // Entries to skip before sending (their seq ids stay reserved)
	Retries    int           `yaml:"retries"`     // Extra send attempts per item, 0 = drop on first failure
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// SourceConfig selects the id/name store.
type SourceConfig struct {
	Kind      string `yaml:"kind"`       // file or postgres
	Dir       string `yaml:"dir"`        // file: directory of page files
	Pattern   string `yaml:"pattern"`    // file: page file name, %d is the page number
	FirstPage int    `yaml:"first_page"` // First page to read
	LastPage  int    `yaml:"last_page"`  // Last page, inclusive; 0 reads until a page is missing
	PageSize  int    `yaml:"page_size"`  // Documented entries per page
	Table     string `yaml:"table"`      // postgres: id table
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

// OutputConfig holds bucket file settings.
type OutputConfig struct {
	Dir             string        `yaml:"dir"`
	BucketBy        string        `yaml:"bucket_by"` // id or name
	WriterWorkers   int           `yaml:"writer_workers"`
	WriteAttempts   int           `yaml:"write_attempts"`
	WriteRetryDelay time.Duration `yaml:"write_retry_delay"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Port int    `yaml:"port"` // 0 disables the metrics server
	Path string `yaml:"path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

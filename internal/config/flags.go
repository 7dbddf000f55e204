package config

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RegisterFlags registers the run flags on a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

// configureFlags sets up all run flags on the provided flag set.
// Defaults shown here are informational; file values win unless a flag is set.
func configureFlags(flags *pflag.FlagSet) {
	flags.StringP("config", "f", "", "Path to YAML configuration file")
	flags.StringSlice("env-file", []string{".env"}, "KEY=VALUE files loaded before the config is read")

	// Gateway
	flags.String("gateway-url", "", "Gateway socket URL (ws:// or wss://)")
	flags.StringToString("param", nil, "Gateway session query parameter key=value (repeatable)")

	// Dispatch
	flags.String("policy", DefaultPolicy, "Dispatch policy: sequential or pooled")
	flags.IntP("workers", "w", DefaultWorkers, "Concurrent senders in pooled mode")
	flags.Duration("send-delay", DefaultSendDelay, "Delay before each send (negative disables)")
	flags.Float64("max-rate", 0, "Aggregate sends per second (0 means unlimited)")
	flags.Int64("base-offset", 0, "Sequence ids start at base-offset+1")
	flags.Int64("skip", 0, "Entries to skip before sending")
	flags.Int("retries", 0, "Extra send attempts per item")

	// Source
	flags.String("source", DefaultSourceKind, "Id store: file or postgres")
	flags.String("source-dir", DefaultSourceDir, "Directory of id page files")
	flags.Int("first-page", DefaultFirstPage, "First id page to read")
	flags.Int("last-page", 0, "Last id page to read (0 reads until a page is missing)")

	// Output
	flags.StringP("output", "o", DefaultOutputDir, "Bucket output directory")
	flags.String("bucket-by", DefaultBucketBy, "Bucket key: id or name")

	// Observability
	flags.Int("metrics-port", 0, "Metrics/health port (0 disables)")
	flags.String("log-level", DefaultLogLevel, "Log level: debug, info, warn, error")
	flags.String("log-format", DefaultLogFormat, "Log format: text or json")
}

// ApplyFlagOverrides applies command-line flag values to the config, overriding
// values from the config file. Only flags the user set are applied.
func ApplyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("gateway-url") {
		val, err := fs.GetString("gateway-url")
		if err != nil {
			return err
		}
		cfg.Gateway.URL = strings.TrimSpace(val)
	}
	if fs.Changed("param") {
		val, err := fs.GetStringToString("param")
		if err != nil {
			return err
		}
		if cfg.Gateway.Params == nil {
			cfg.Gateway.Params = make(map[string]string, len(val))
		}
		for k, v := range val {
			cfg.Gateway.Params[k] = v
		}
	}

	if fs.Changed("policy") {
		val, err := fs.GetString("policy")
		if err != nil {
			return err
		}
		cfg.Dispatch.Policy = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("workers") {
		val, err := fs.GetInt("workers")
		if err != nil {
			return err
		}
		cfg.Dispatch.Workers = val
	}
	if fs.Changed("send-delay") {
		val, err := fs.GetDuration("send-delay")
		if err != nil {
			return err
		}
		cfg.Dispatch.SendDelay = val
	}
	if fs.Changed("max-rate") {
		val, err := fs.GetFloat64("max-rate")
		if err != nil {
			return err
		}
		cfg.Dispatch.MaxRate = val
	}
	if fs.Changed("base-offset") {
		val, err := fs.GetInt64("base-offset")
		if err != nil {
			return err
		}
		cfg.Dispatch.BaseOffset = val
	}
	if fs.Changed("skip") {
		val, err := fs.GetInt64("skip")
		if err != nil {
			return err
		}
		cfg.Dispatch.Skip = val
	}
	if fs.Changed("retries") {
		val, err := fs.GetInt("retries")
		if err != nil {
			return err
		}
		cfg.Dispatch.Retries = val
	}

	if fs.Changed("source") {
		val, err := fs.GetString("source")
		if err != nil {
			return err
		}
		cfg.Source.Kind = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("source-dir") {
		val, err := fs.GetString("source-dir")
		if err != nil {
			return err
		}
		cfg.Source.Dir = val
	}
	if fs.Changed("first-page") {
		val, err := fs.GetInt("first-page")
		if err != nil {
			return err
		}
		cfg.Source.FirstPage = val
	}
	if fs.Changed("last-page") {
		val, err := fs.GetInt("last-page")
		if err != nil {
			return err
		}
		cfg.Source.LastPage = val
	}

	if fs.Changed("output") {
		val, err := fs.GetString("output")
		if err != nil {
			return err
		}
		cfg.Output.Dir = val
	}
	if fs.Changed("bucket-by") {
		val, err := fs.GetString("bucket-by")
		if err != nil {
			return err
		}
		cfg.Output.BucketBy = strings.ToLower(strings.TrimSpace(val))
	}

	if fs.Changed("metrics-port") {
		val, err := fs.GetInt("metrics-port")
		if err != nil {
			return err
		}
		cfg.Metrics.Port = val
	}
	if fs.Changed("log-level") {
		val, err := fs.GetString("log-level")
		if err != nil {
			return err
		}
		cfg.Log.Level = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("log-format") {
		val, err := fs.GetString("log-format")
		if err != nil {
			return err
		}
		cfg.Log.Format = strings.ToLower(strings.TrimSpace(val))
	}

	return nil
}

// LoadForRun builds the run config from flags: env files, then the optional
// config file, then defaults, then flag overrides, then validation.
func LoadForRun(fs *pflag.FlagSet) (*Config, error) {
	envFiles, err := fs.GetStringSlice("env-file")
	if err != nil {
		return nil, err
	}
	if err := LoadEnv(envFiles...); err != nil {
		return nil, err
	}

	path, err := fs.GetString("config")
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if path != "" {
		if cfg, err = Load(path); err != nil {
			return nil, err
		}
	}
	cfg.ApplyDefaults()

	if err := ApplyFlagOverrides(cfg, fs); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

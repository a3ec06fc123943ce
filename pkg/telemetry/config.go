package telemetry

import (
	"io"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

type Config struct {
	// Log level ("debug", "info", "warn", "error").
	LogLevel string `env:"ARMORY_LOG_LEVEL" envDefault:"info"`

	// Log format ("json", "pretty").
	LogFormat string `env:"ARMORY_LOG_FORMAT" envDefault:"json"`

	// TraceEnabled turns on span export to an OTLP collector. Spans go to a noop tracer otherwise.
	TraceEnabled bool `env:"ARMORY_TRACE_ENABLED" envDefault:"false"`

	// TraceEndpoint is the OTLP gRPC collector endpoint.
	TraceEndpoint string `env:"ARMORY_TRACE_ENDPOINT" envDefault:"jaeger:4317"`

	// TraceSampleRate is the sampling rate for traces (0.0 to 1.0).
	TraceSampleRate float64 `env:"ARMORY_TRACE_SAMPLE_RATE" envDefault:"1.0"`
}

// loadConfig loads the configuration from environment variables.
func loadConfig() (Config, error) {
	cfg := Config{}

	if err := env.Parse(&cfg); err != nil {
		return cfg, eris.Wrap(err, "failed to parse telemetry config")
	}

	if err := cfg.validate(); err != nil {
		return cfg, eris.Wrap(err, "failed to validate telemetry config")
	}

	return cfg, nil
}

func (cfg *Config) validate() error {
	if _, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel)); err != nil {
		return eris.Errorf("invalid log level: %s (must be 'debug', 'info', 'warn', or 'error')", cfg.LogLevel)
	}
	if ParseLogFormat(cfg.LogFormat) == LogFormatUndefined {
		return eris.Errorf("invalid log format: %s (must be 'json' or 'pretty')", cfg.LogFormat)
	}
	if cfg.TraceEnabled {
		if cfg.TraceEndpoint == "" {
			return eris.New("trace endpoint cannot be empty when tracing is enabled")
		}
		if cfg.TraceSampleRate < 0.0 || cfg.TraceSampleRate > 1.0 {
			return eris.New("trace sample rate must be between 0.0 and 1.0")
		}
	}
	return nil
}

func (cfg *Config) applyToOptions(opt *Options) {
	opt.LogLevel = cfg.LogLevel
	opt.LogFormat = ParseLogFormat(cfg.LogFormat)
	opt.TraceEnabled = cfg.TraceEnabled
	opt.TraceEndpoint = cfg.TraceEndpoint
	opt.TraceSampleRate = cfg.TraceSampleRate
}

type Options struct {
	ServiceName     string    // Name of the service, prefixed to every component name
	LogLevel        string    // Minimum log level
	LogFormat       LogFormat // Log output format
	Writer          io.Writer // Log destination, defaults to stdout
	TraceEnabled    bool
	TraceEndpoint   string
	TraceSampleRate float64
}

func newDefaultOptions() Options {
	// Set these to invalid values to force users to pass in the correct options.
	return Options{
		ServiceName:     "",
		LogLevel:        "",
		LogFormat:       LogFormatUndefined,
		TraceSampleRate: -1.0,
	}
}

// apply merges the given options into the current options, overriding non-zero values.
func (opt *Options) apply(newOpt Options) {
	if newOpt.ServiceName != "" {
		opt.ServiceName = newOpt.ServiceName
	}
	if newOpt.LogLevel != "" {
		opt.LogLevel = newOpt.LogLevel
	}
	if newOpt.LogFormat != LogFormatUndefined {
		opt.LogFormat = newOpt.LogFormat
	}
	if newOpt.Writer != nil {
		opt.Writer = newOpt.Writer
	}
	if newOpt.TraceEnabled {
		opt.TraceEnabled = true
	}
	if newOpt.TraceEndpoint != "" {
		opt.TraceEndpoint = newOpt.TraceEndpoint
	}
	if newOpt.TraceSampleRate != 0.0 {
		opt.TraceSampleRate = newOpt.TraceSampleRate
	}
}

// validate checks that all required options are set and valid.
func (opt *Options) validate() error {
	if opt.ServiceName == "" {
		return eris.New("service name cannot be empty")
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(opt.LogLevel)); err != nil {
		return eris.Errorf("invalid log level: %s (must be 'debug', 'info', 'warn', or 'error')", opt.LogLevel)
	}
	if opt.LogFormat == LogFormatUndefined {
		return eris.New("log format must be specified")
	}
	if opt.TraceEnabled {
		if opt.TraceEndpoint == "" {
			return eris.New("trace endpoint cannot be empty when tracing is enabled")
		}
		if opt.TraceSampleRate < 0.0 || opt.TraceSampleRate > 1.0 {
			return eris.New("trace sample rate must be between 0.0 and 1.0")
		}
	}
	return nil
}

// LogFormat represents the log output format.
type LogFormat uint8

const (
	LogFormatUndefined LogFormat = iota // Used as the zero value
	LogFormatJSON                       // Outputs structured JSON logs
	LogFormatPretty                     // Outputs human-readable console logs
)

const (
	jsonFormatString      = "json"
	prettyFormatString    = "pretty"
	undefinedFormatString = "undefined"
)

func (f LogFormat) String() string {
	switch f {
	case LogFormatJSON:
		return jsonFormatString
	case LogFormatPretty:
		return prettyFormatString
	case LogFormatUndefined:
		return undefinedFormatString
	default:
		return undefinedFormatString
	}
}

// ParseLogFormat converts a string to LogFormat enum.
func ParseLogFormat(s string) LogFormat {
	switch strings.ToLower(s) {
	case jsonFormatString:
		return LogFormatJSON
	case prettyFormatString:
		return LogFormatPretty
	default:
		return LogFormatUndefined
	}
}

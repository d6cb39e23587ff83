package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/hamed0406/upstreamprobe/internal/logging"
)

// TokenEnv holds the InfluxDB API token; it is never read from the file.
const TokenEnv = "INFLUX_TOKEN"

type Config struct {
	App    AppConfig    `yaml:"app"`
	DNS    DNSConfig    `yaml:"dns"`
	HTTP   HTTPConfig   `yaml:"http"`
	Influx InfluxConfig `yaml:"influx"`
}

type AppConfig struct {
	Name               string  `yaml:"name"`
	Vlan               string  `yaml:"vlan"` // tag value attached to every point
	LogLevel           string  `yaml:"log_level"`
	UserAgent          string  `yaml:"user_agent"`
	TimeoutSeconds     float64 `yaml:"timeout_seconds"`
	Retries            int     `yaml:"retries"`
	BackoffBaseSeconds float64 `yaml:"backoff_base_seconds"`
	BackoffMaxSeconds  float64 `yaml:"backoff_max_seconds"`
	Concurrency        int     `yaml:"concurrency"` // optional, defaults to 1
	LogDir             string  `yaml:"log_dir"`     // optional; LOG_DIR env overrides
}

type DNSConfig struct {
	QueryName string   `yaml:"query_name"`
	Resolvers []string `yaml:"resolvers"`
}

type HTTPConfig struct {
	Method  string   `yaml:"method"`
	Targets []string `yaml:"targets"`
}

type InfluxConfig struct {
	URL         string `yaml:"url"`
	Org         string `yaml:"org"`
	Bucket      string `yaml:"bucket"`
	Measurement string `yaml:"measurement"`
}

var required = []struct {
	section string
	keys    []string
}{
	{"app", []string{"name", "vlan", "log_level", "user_agent", "timeout_seconds", "retries", "backoff_base_seconds", "backoff_max_seconds"}},
	{"dns", []string{"query_name", "resolvers"}},
	{"http", []string{"method", "targets"}},
	{"influx", []string{"url", "org", "bucket", "measurement"}},
}

// Load reads, parses and validates a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse is Load without the file read.
func Parse(data []byte) (*Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if raw == nil {
		return nil, errors.New("config root must be a mapping")
	}
	if err := checkRequired(raw); err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func checkRequired(raw map[string]any) error {
	var errs error
	for _, r := range required {
		sec, ok := raw[r.section]
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("missing required config key: %s", r.section))
			continue
		}
		m, ok := sec.(map[string]any)
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("config key %s must be a mapping", r.section))
			continue
		}
		for _, k := range r.keys {
			if _, ok := m[k]; !ok {
				errs = multierr.Append(errs, fmt.Errorf("missing required config key: %s.%s", r.section, k))
			}
		}
	}
	return errs
}

func (c *Config) normalize() {
	c.HTTP.Method = strings.ToUpper(strings.TrimSpace(c.HTTP.Method))
	if c.App.Concurrency == 0 {
		c.App.Concurrency = 1
	}
	if dir := os.Getenv("LOG_DIR"); dir != "" {
		c.App.LogDir = dir
	}
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs error
	add := func(format string, args ...any) {
		errs = multierr.Append(errs, fmt.Errorf(format, args...))
	}

	if c.App.TimeoutSeconds <= 0 {
		add("app.timeout_seconds must be positive, got %v", c.App.TimeoutSeconds)
	}
	if c.App.Retries < 0 {
		add("app.retries must not be negative, got %d", c.App.Retries)
	}
	if c.App.BackoffBaseSeconds < 0 {
		add("app.backoff_base_seconds must not be negative, got %v", c.App.BackoffBaseSeconds)
	}
	if c.App.BackoffMaxSeconds < c.App.BackoffBaseSeconds {
		add("app.backoff_max_seconds (%v) must be >= backoff_base_seconds (%v)", c.App.BackoffMaxSeconds, c.App.BackoffBaseSeconds)
	}
	if c.App.Concurrency < 1 {
		add("app.concurrency must be at least 1, got %d", c.App.Concurrency)
	}
	if _, err := logging.ParseLevel(c.App.LogLevel); err != nil {
		add("app.log_level: %v", err)
	}
	if strings.TrimSpace(c.DNS.QueryName) == "" {
		add("dns.query_name must not be empty")
	}
	if c.HTTP.Method == "" {
		add("http.method must not be empty")
	}
	for i, t := range c.HTTP.Targets {
		if _, err := url.ParseRequestURI(t); err != nil {
			add("http.targets[%d]: %v", i, err)
		}
	}
	if _, err := url.ParseRequestURI(c.Influx.URL); err != nil {
		add("influx.url: %v", err)
	}
	if c.Influx.Measurement == "" {
		add("influx.measurement must not be empty")
	}
	return errs
}

func (a AppConfig) Timeout() time.Duration     { return seconds(a.TimeoutSeconds) }
func (a AppConfig) BackoffBase() time.Duration { return seconds(a.BackoffBaseSeconds) }
func (a AppConfig) BackoffMax() time.Duration  { return seconds(a.BackoffMaxSeconds) }

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// TokenFromEnv returns the trimmed InfluxDB token, or "" when unset.
func TokenFromEnv() string {
	return strings.TrimSpace(os.Getenv(TokenEnv))
}

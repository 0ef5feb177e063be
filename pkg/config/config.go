// Package config builds the waymap runtime configuration from four layers,
// lowest precedence first: built-in defaults, an optional YAML file, a .env
// file plus WAYMAP_* environment variables, and explicitly set flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/waymap/waymap/pkg/defaults"
	"github.com/waymap/waymap/pkg/duration"
	"github.com/waymap/waymap/pkg/wordlist"
)

// Batch answers accepted by -batch.
const (
	BatchContinue = "continue"
	BatchStop     = "stop"
)

// Config holds all CLI configuration options.
type Config struct {
	// Target settings
	Targets  StringSliceFlag `yaml:"targets"`
	ListFile string          `yaml:"list"`

	// Scan settings
	Kind          string        `yaml:"kind"`
	PayloadFile   string        `yaml:"payloads"`
	SignatureFile string        `yaml:"signatures"`
	UAFile        string        `yaml:"user_agents"`
	SampleSize    int           `yaml:"sample_size"`
	Concurrency   int           `yaml:"concurrency"`
	Timeout       time.Duration `yaml:"timeout"`
	RateLimit     float64       `yaml:"rate_limit"` // requests per second, 0 = unlimited
	Seed          uint64        `yaml:"seed"`       // 0 = entropy seeded
	Batch         string        `yaml:"batch"`      // continue, stop or empty for interactive

	// Network settings
	Proxy    string `yaml:"proxy"`
	Insecure bool   `yaml:"insecure"`

	// Output settings
	OutputFile     string `yaml:"output"`
	ReportTemplate string `yaml:"report_template"`
	MetricsAddr    string `yaml:"metrics_addr"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
	Verbose        bool   `yaml:"verbose"`
	Silent         bool   `yaml:"silent"`
	NoColor        bool   `yaml:"no_color"`

	// Layer sources
	ConfigFile string `yaml:"-"`
	EnvFile    string `yaml:"-"`
}

// Default returns a Config populated from pkg/defaults and pkg/duration.
func Default() *Config {
	return &Config{
		Kind:        defaults.KindSQL,
		SampleSize:  defaults.SampleSize,
		Concurrency: defaults.Concurrency,
		Timeout:     duration.ProbeTimeout,
		RateLimit:   defaults.RateLimitNone,
		EnvFile:     ".env",

		OTLPInsecure: true,
	}
}

// Environment looks up a variable. os.LookupEnv satisfies it.
type Environment func(key string) (string, bool)

// Parse builds a Config from args (without the program name), consulting
// env for WAYMAP_* overrides. It does not call Validate.
func Parse(args []string, env Environment, output io.Writer) (*Config, error) {
	if env == nil {
		env = os.LookupEnv
	}

	flagged := Default()
	fs := flag.NewFlagSet(defaults.ToolName, flag.ContinueOnError)
	if output != nil {
		fs.SetOutput(output)
	}
	bind(fs, flagged)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("%w: unexpected arguments %q", ErrInvalidConfig, fs.Args())
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cfg := Default()
	cfg.ConfigFile = flagged.ConfigFile
	cfg.EnvFile = flagged.EnvFile

	if cfg.ConfigFile != "" {
		if err := cfg.loadYAML(cfg.ConfigFile); err != nil {
			return nil, err
		}
	}
	if err := cfg.loadEnv(env); err != nil {
		return nil, err
	}

	// Explicit flags win over every other layer.
	overlay(cfg, flagged, set)
	return cfg, nil
}

func bind(fs *flag.FlagSet, cfg *Config) {
	// === INPUT ===
	fs.Var(&cfg.Targets, "u", "Target URL(s) - comma-separated or repeated")
	fs.StringVar(&cfg.ListFile, "l", cfg.ListFile, "File containing target URLs")

	// === SCAN ===
	fs.StringVar(&cfg.Kind, "kind", cfg.Kind, "Scan kind: "+strings.Join(defaults.Kinds, ", "))
	fs.StringVar(&cfg.PayloadFile, "payloads", cfg.PayloadFile, "Payload catalog file (default: embedded)")
	fs.StringVar(&cfg.SignatureFile, "signatures", cfg.SignatureFile, "Signature definitions, .xml or .yaml (default: embedded)")
	fs.StringVar(&cfg.UAFile, "user-agents", cfg.UAFile, "User-agent list file (default: embedded)")
	fs.IntVar(&cfg.SampleSize, "sample", cfg.SampleSize, "Payloads sampled per URL")
	fs.IntVar(&cfg.Concurrency, "c", cfg.Concurrency, "Concurrent probes per URL")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Per-request timeout")
	fs.Float64Var(&cfg.RateLimit, "rl", cfg.RateLimit, "Max requests per second (0 = unlimited)")
	fs.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "Payload sampling seed (0 = random)")
	fs.StringVar(&cfg.Batch, "batch", cfg.Batch, "Answer the continue prompt: continue or stop")

	// === NETWORK ===
	fs.StringVar(&cfg.Proxy, "proxy", cfg.Proxy, "HTTP/SOCKS5 proxy URL")
	fs.BoolVar(&cfg.Insecure, "k", cfg.Insecure, "Skip TLS verification")

	// === OUTPUT ===
	fs.StringVar(&cfg.OutputFile, "o", cfg.OutputFile, "Write a JSONL report to file")
	fs.StringVar(&cfg.ReportTemplate, "report-template", cfg.ReportTemplate, "Render the summary with a Go template file")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Serve Prometheus metrics on address (e.g. :9090)")
	fs.StringVar(&cfg.OTLPEndpoint, "otlp-endpoint", cfg.OTLPEndpoint, "Export traces to an OTLP gRPC collector (e.g. "+defaults.OTLPEndpoint+")")
	fs.BoolVar(&cfg.OTLPInsecure, "otlp-insecure", cfg.OTLPInsecure, "Dial the OTLP collector without TLS")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Verbose output")
	fs.BoolVar(&cfg.Silent, "silent", cfg.Silent, "Silent mode - findings only")
	fs.BoolVar(&cfg.NoColor, "no-color", cfg.NoColor, "Disable colored output")

	// === CONFIG ===
	fs.StringVar(&cfg.ConfigFile, "config", cfg.ConfigFile, "YAML configuration file")
	fs.StringVar(&cfg.EnvFile, "env-file", cfg.EnvFile, "Dotenv file with "+defaults.EnvPrefix+"* settings")
}

// overlay copies every explicitly set flag from src into dst.
func overlay(dst, src *Config, set map[string]bool) {
	if set["u"] {
		dst.Targets = slices.Clone(src.Targets)
	}
	copyIf := func(name string, apply func()) {
		if set[name] {
			apply()
		}
	}
	copyIf("l", func() { dst.ListFile = src.ListFile })
	copyIf("kind", func() { dst.Kind = src.Kind })
	copyIf("payloads", func() { dst.PayloadFile = src.PayloadFile })
	copyIf("signatures", func() { dst.SignatureFile = src.SignatureFile })
	copyIf("user-agents", func() { dst.UAFile = src.UAFile })
	copyIf("sample", func() { dst.SampleSize = src.SampleSize })
	copyIf("c", func() { dst.Concurrency = src.Concurrency })
	copyIf("timeout", func() { dst.Timeout = src.Timeout })
	copyIf("rl", func() { dst.RateLimit = src.RateLimit })
	copyIf("seed", func() { dst.Seed = src.Seed })
	copyIf("batch", func() { dst.Batch = src.Batch })
	copyIf("proxy", func() { dst.Proxy = src.Proxy })
	copyIf("k", func() { dst.Insecure = src.Insecure })
	copyIf("o", func() { dst.OutputFile = src.OutputFile })
	copyIf("report-template", func() { dst.ReportTemplate = src.ReportTemplate })
	copyIf("metrics-addr", func() { dst.MetricsAddr = src.MetricsAddr })
	copyIf("otlp-endpoint", func() { dst.OTLPEndpoint = src.OTLPEndpoint })
	copyIf("otlp-insecure", func() { dst.OTLPInsecure = src.OTLPInsecure })
	copyIf("v", func() { dst.Verbose = src.Verbose })
	copyIf("silent", func() { dst.Silent = src.Silent })
	copyIf("no-color", func() { dst.NoColor = src.NoColor })
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", ErrInvalidConfig, path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, path, err)
	}
	return nil
}

// loadEnv applies the dotenv file (if present) under the process
// environment, then every WAYMAP_* variable. Process variables take
// precedence over the file.
func (c *Config) loadEnv(env Environment) error {
	fileVars := map[string]string{}
	if c.EnvFile != "" {
		vars, err := godotenv.Read(c.EnvFile)
		switch {
		case err == nil:
			fileVars = vars
		case errors.Is(err, os.ErrNotExist):
		default:
			return fmt.Errorf("%w: env file %s: %v", ErrInvalidConfig, c.EnvFile, err)
		}
	}

	lookup := func(name string) (string, bool) {
		key := defaults.EnvPrefix + name
		if v, ok := env(key); ok {
			return v, true
		}
		v, ok := fileVars[key]
		return v, ok
	}

	var errs []error
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok {
			*dst = v
		}
	}
	parse := func(name string, apply func(string) error) {
		if v, ok := lookup(name); ok {
			if err := apply(strings.TrimSpace(v)); err != nil {
				errs = append(errs, fmt.Errorf("%w: %s%s=%q: %v", ErrInvalidConfig, defaults.EnvPrefix, name, v, err))
			}
		}
	}
	boolean := func(name string, dst *bool) {
		parse(name, func(v string) (err error) {
			*dst, err = strconv.ParseBool(v)
			return err
		})
	}
	integer := func(name string, dst *int) {
		parse(name, func(v string) (err error) {
			*dst, err = strconv.Atoi(v)
			return err
		})
	}

	if v, ok := lookup("TARGETS"); ok {
		c.Targets = nil
		_ = c.Targets.Set(v)
	}
	str("LIST", &c.ListFile)
	str("KIND", &c.Kind)
	str("PAYLOADS", &c.PayloadFile)
	str("SIGNATURES", &c.SignatureFile)
	str("USER_AGENTS", &c.UAFile)
	integer("SAMPLE_SIZE", &c.SampleSize)
	integer("CONCURRENCY", &c.Concurrency)
	parse("TIMEOUT", func(v string) (err error) {
		c.Timeout, err = time.ParseDuration(v)
		return err
	})
	parse("RATE_LIMIT", func(v string) (err error) {
		c.RateLimit, err = strconv.ParseFloat(v, 64)
		return err
	})
	parse("SEED", func(v string) (err error) {
		c.Seed, err = strconv.ParseUint(v, 10, 64)
		return err
	})
	str("BATCH", &c.Batch)
	str("PROXY", &c.Proxy)
	boolean("INSECURE", &c.Insecure)
	str("OUTPUT", &c.OutputFile)
	str("REPORT_TEMPLATE", &c.ReportTemplate)
	str("METRICS_ADDR", &c.MetricsAddr)
	str("OTLP_ENDPOINT", &c.OTLPEndpoint)
	boolean("OTLP_INSECURE", &c.OTLPInsecure)
	boolean("VERBOSE", &c.Verbose)
	boolean("SILENT", &c.Silent)
	boolean("NO_COLOR", &c.NoColor)

	return errors.Join(errs...)
}

// Validate checks the merged configuration.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 && c.ListFile == "" {
		return fmt.Errorf("%w: target required: use -u or -l", ErrMissingRequired)
	}
	if !slices.Contains(defaults.Kinds, c.Kind) {
		return fmt.Errorf("%w: kind %q (want one of %s)", ErrInvalidConfig, c.Kind, strings.Join(defaults.Kinds, ", "))
	}
	if c.SampleSize < 1 {
		return fmt.Errorf("%w: sample size must be positive, got %d", ErrInvalidConfig, c.SampleSize)
	}
	if c.Concurrency < 1 || c.Concurrency > defaults.ConcurrencyMax {
		return fmt.Errorf("%w: concurrency must be between 1 and %d, got %d", ErrInvalidConfig, defaults.ConcurrencyMax, c.Concurrency)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive, got %s", ErrInvalidConfig, c.Timeout)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("%w: rate limit must not be negative", ErrInvalidConfig)
	}
	switch strings.ToLower(c.Batch) {
	case "", BatchContinue, BatchStop:
	default:
		return fmt.Errorf("%w: batch %q (want %s or %s)", ErrInvalidConfig, c.Batch, BatchContinue, BatchStop)
	}
	if c.Verbose && c.Silent {
		return fmt.Errorf("%w: -v and -silent are mutually exclusive", ErrInvalidConfig)
	}
	return nil
}

// LoadTargets returns -u targets followed by the list file entries, with
// duplicates removed and order preserved.
func (c *Config) LoadTargets() ([]string, error) {
	targets := slices.Clone([]string(c.Targets))
	if c.ListFile != "" {
		wl, err := wordlist.LoadFile(c.ListFile, wordlist.Options{SkipComments: true})
		if err != nil {
			return nil, err
		}
		targets = append(targets, wl.Words...)
	}
	targets = wordlist.Deduplicate(targets)
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: no targets in %s", ErrMissingRequired, c.ListFile)
	}
	return targets, nil
}

// Package config holds process-level configuration for cmd/sealed-away,
// populated by functional options the way the teacher's pkg/vm.Option
// configures its VM (WithHeadless, WithTimeout, WithLogger, ...).
package config

import (
	"flag"
	"log/slog"
	"time"
)

// Config is the process-level configuration a host builds once at startup
// and passes down to its game and render loop.
type Config struct {
	Headless bool
	Timeout  time.Duration
	SaveDir  string
	LogLevel string
	Script   string
	Log      *slog.Logger
}

// Option configures a Config at construction time.
type Option func(*Config)

// WithHeadless disables the Ebitengine window, running the interpreter
// without a renderer (used by scripted playthroughs and CI smoke checks).
func WithHeadless(headless bool) Option {
	return func(c *Config) { c.Headless = headless }
}

// WithTimeout bounds how long a single Next() call may run before the host
// treats the script as stuck (an infinite jump loop with no yielding
// command). Zero means no timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) { c.Timeout = timeout }
}

// WithSaveDir sets the directory save files are written to and read from.
func WithSaveDir(dir string) Option {
	return func(c *Config) { c.SaveDir = dir }
}

// WithLogLevel sets the slog level name ("debug", "info", "warn", "error").
func WithLogLevel(level string) Option {
	return func(c *Config) { c.LogLevel = level }
}

// WithScript sets the path to the YAML script to load.
func WithScript(path string) Option {
	return func(c *Config) { c.Script = path }
}

// WithLogger overrides the logger stored on the Config.
func WithLogger(log *slog.Logger) Option {
	return func(c *Config) { c.Log = log }
}

// defaults mirrors the teacher's VM defaults: a 30 second timeout, info
// level logging, a local "./saves" directory.
func defaults() *Config {
	return &Config{
		Headless: false,
		Timeout:  30 * time.Second,
		SaveDir:  "./saves",
		LogLevel: "info",
		Script:   "script.yaml",
	}
}

// New builds a Config from defaults, then applies opts in order.
func New(opts ...Option) *Config {
	c := defaults()
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FromFlags parses the process's command-line flags into a Config,
// layering any additional opts on top (opts win over flag defaults but not
// over values the user actually passed on the command line).
func FromFlags(args []string, opts ...Option) (*Config, error) {
	c := defaults()
	for _, opt := range opts {
		opt(c)
	}
	fs := flag.NewFlagSet("sealed-away", flag.ContinueOnError)
	fs.BoolVar(&c.Headless, "headless", c.Headless, "run without opening a window")
	fs.DurationVar(&c.Timeout, "timeout", c.Timeout, "maximum duration of a single Next() call")
	fs.StringVar(&c.SaveDir, "save-dir", c.SaveDir, "directory to read/write save files")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&c.Script, "script", c.Script, "path to the YAML script to load")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return c, nil
}

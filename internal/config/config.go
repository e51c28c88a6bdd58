package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/docker/go-units"
	"gopkg.in/yaml.v3"
)

const (
	TypeSync  = "sync"
	TypeAsync = "async"

	LauncherExec   = "exec"
	LauncherDocker = "docker"
)

// Config is the immutable run configuration shared by every component of a
// single invocation. Core options are pointers so a missing key can be told
// apart from an explicit zero.
type Config struct {
	Type     string   `yaml:"type"`
	Depth    *int     `yaml:"depth"`
	Launches *int     `yaml:"launches"`
	MaxStdev *float64 `yaml:"max_stdev"`
	Retries  *int     `yaml:"retries"`
	Basedir  string   `yaml:"basedir"`
	Suites   Suites   `yaml:"suites"`
	Launcher Launcher `yaml:"launcher"`
	Results  Results  `yaml:"results"`
	Metrics  Metrics  `yaml:"metrics"`
}

type Suites struct {
	Dir string `yaml:"dir"`
	Ext string `yaml:"ext"`
}

type Launcher struct {
	Kind    string            `yaml:"kind"`
	Command []string          `yaml:"command"`
	Image   string            `yaml:"image"`
	Timeout time.Duration     `yaml:"timeout"`
	Env     map[string]string `yaml:"env"`
	EnvFile string            `yaml:"env_file"`
	// CPUs and Memory cap each container; docker launcher only.
	CPUs   float64 `yaml:"cpus"`
	Memory string  `yaml:"memory"`
}

type Results struct {
	Dir string `yaml:"dir"`
}

type Metrics struct {
	Textfile string `yaml:"textfile"`
}

// Error reports an invalid or missing configuration value.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Overrides carries command-line values that replace file values when set.
type Overrides struct {
	Type     string
	Depth    *int
	Launches *int
	MaxStdev *float64
	Retries  *int
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// Apply merges overrides into cfg and re-validates the result.
func (cfg *Config) Apply(o Overrides) error {
	if o.Type != "" {
		cfg.Type = o.Type
	}
	if o.Depth != nil {
		cfg.Depth = o.Depth
	}
	if o.Launches != nil {
		cfg.Launches = o.Launches
	}
	if o.MaxStdev != nil {
		cfg.MaxStdev = o.MaxStdev
	}
	if o.Retries != nil {
		cfg.Retries = o.Retries
	}
	return Validate(cfg)
}

// Validate checks required options and fills plumbing defaults.
func Validate(cfg *Config) error {
	switch cfg.Type {
	case TypeSync, TypeAsync:
	case "":
		return &Error{Field: "type", Reason: "is required"}
	default:
		return &Error{Field: "type", Reason: fmt.Sprintf("must be %q or %q, got %q", TypeSync, TypeAsync, cfg.Type)}
	}
	if cfg.Depth == nil {
		return &Error{Field: "depth", Reason: "is required"}
	}
	if *cfg.Depth < 0 {
		return &Error{Field: "depth", Reason: "must not be negative"}
	}
	if cfg.Launches == nil {
		return &Error{Field: "launches", Reason: "is required"}
	}
	if *cfg.Launches < 1 {
		return &Error{Field: "launches", Reason: "must be at least 1"}
	}
	if cfg.MaxStdev == nil {
		return &Error{Field: "max_stdev", Reason: "is required"}
	}
	if *cfg.MaxStdev < 0 {
		return &Error{Field: "max_stdev", Reason: "must not be negative"}
	}
	if cfg.Retries == nil {
		return &Error{Field: "retries", Reason: "is required"}
	}
	if *cfg.Retries < 0 {
		return &Error{Field: "retries", Reason: "must not be negative"}
	}

	if cfg.Suites.Dir == "" {
		cfg.Suites.Dir = "suites"
	}
	if cfg.Results.Dir == "" {
		cfg.Results.Dir = "results"
	}
	if cfg.Basedir == "" {
		cfg.Basedir = "."
	}
	switch cfg.Launcher.Kind {
	case "":
		cfg.Launcher.Kind = LauncherExec
	case LauncherExec, LauncherDocker:
	default:
		return &Error{Field: "launcher.kind", Reason: fmt.Sprintf("unknown launcher %q", cfg.Launcher.Kind)}
	}
	if len(cfg.Launcher.Command) == 0 {
		cfg.Launcher.Command = []string{"node"}
	}
	if cfg.Launcher.Kind == LauncherDocker && cfg.Launcher.Image == "" {
		return &Error{Field: "launcher.image", Reason: "is required for the docker launcher"}
	}
	if cfg.Launcher.Timeout < 0 {
		return &Error{Field: "launcher.timeout", Reason: "must not be negative"}
	}
	if cfg.Launcher.CPUs < 0 {
		return &Error{Field: "launcher.cpus", Reason: "must not be negative"}
	}
	if cfg.Launcher.Memory != "" {
		n, err := units.RAMInBytes(cfg.Launcher.Memory)
		if err != nil {
			return &Error{Field: "launcher.memory", Reason: err.Error()}
		}
		if n < 0 {
			return &Error{Field: "launcher.memory", Reason: "must not be negative"}
		}
	}
	if cfg.Launcher.Kind != LauncherDocker && (cfg.Launcher.CPUs > 0 || cfg.Launcher.Memory != "") {
		return &Error{Field: "launcher.kind", Reason: "cpus and memory limits need the docker launcher"}
	}
	return nil
}

// SuitesPath is the directory holding suites for the configured type.
func (cfg *Config) SuitesPath() string {
	return filepath.Join(cfg.Suites.Dir, cfg.Type)
}

// AbsBasedir resolves the working directory exported to workers.
func (cfg *Config) AbsBasedir() (string, error) {
	abs, err := filepath.Abs(cfg.Basedir)
	if err != nil {
		return "", fmt.Errorf("resolving basedir: %w", err)
	}
	return abs, nil
}

// MemoryLimit is launcher.memory in bytes, 0 when unset.
func (cfg *Config) MemoryLimit() int64 {
	if cfg.Launcher.Memory == "" {
		return 0
	}
	n, _ := units.RAMInBytes(cfg.Launcher.Memory)
	return n
}

// The accessors below are only valid on a validated Config.

func (cfg *Config) LaunchCount() int { return *cfg.Launches }

func (cfg *Config) MaxDeviation() float64 { return *cfg.MaxStdev }

func (cfg *Config) RetryBudget() int { return *cfg.Retries }

func (cfg *Config) Nesting() int { return *cfg.Depth }

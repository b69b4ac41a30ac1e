package sched

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	yaml "github.com/goccy/go-yaml"

	zerr "coopsched/errors"
)

// Config mirrors config.yml
type Config struct {
	TimeSliceMS int            `yaml:"time_slice_ms"` // 5 (by default)
	FrameMS     int            `yaml:"frame_ms"`      // 16 (by default), frame host only
	Host        string         `yaml:"host"`          // manual | loop | frame
	LogLevel    string         `yaml:"log_level"`     // zerolog level name
	LogOutput   string         `yaml:"log_output"`    // empty = stderr
	TimeoutsMS  map[string]int `yaml:"timeouts_ms"`   // priority name -> timeout
}

// If the config file is not found, we use default values
func DefaultConfig() Config {
	timeouts := make(map[string]int, len(Priorities()))
	def := DefaultTimeouts()
	for _, p := range Priorities() {
		timeouts[p.String()] = int(def.Timeout(p) / time.Millisecond)
	}

	return Config{
		TimeSliceMS: 5,
		FrameMS:     16,
		Host:        "loop",
		LogLevel:    "info",
		TimeoutsMS:  timeouts,
	}
}

// Load reads YAML and overrides defaults; empty path or a missing file means
// defaults only. Timeouts given in the file are merged over the defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("%w: %w", zerr.ErrBadConfig, err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cfg, fmt.Errorf("%w: %s: %w", zerr.ErrBadConfig, path, err)
	}
	if err := cfg.merge(file); err != nil {
		return cfg, err
	}

	// sanity clamps
	if cfg.TimeSliceMS <= 0 {
		cfg.TimeSliceMS = 5
	}
	if cfg.FrameMS <= 0 {
		cfg.FrameMS = 16
	}

	if _, err := cfg.Policy(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// merge overlays the non-zero fields of file. Timeout keys are stored under
// their canonical priority names.
func (c *Config) merge(file Config) error {
	if file.TimeSliceMS != 0 {
		c.TimeSliceMS = file.TimeSliceMS
	}
	if file.FrameMS != 0 {
		c.FrameMS = file.FrameMS
	}
	if file.Host != "" {
		c.Host = file.Host
	}
	if file.LogLevel != "" {
		c.LogLevel = file.LogLevel
	}
	if file.LogOutput != "" {
		c.LogOutput = file.LogOutput
	}
	seen := make(map[Priority]string, len(file.TimeoutsMS))
	for name, ms := range file.TimeoutsMS {
		p, err := ParsePriority(name)
		if err != nil {
			return fmt.Errorf("%w: timeouts_ms: %w", zerr.ErrBadConfig, err)
		}
		if prev, ok := seen[p]; ok {
			return fmt.Errorf("%w: timeouts_ms: %q and %q both set %s", zerr.ErrBadConfig, prev, name, p)
		}
		seen[p] = name
		c.TimeoutsMS[p.String()] = ms
	}
	return nil
}

// Policy builds and validates the timeout policy described by the config.
// Two keys naming the same priority are rejected.
func (c Config) Policy() (TimeoutPolicy, error) {
	tp := DefaultTimeouts()
	seen := make(map[Priority]string, len(c.TimeoutsMS))
	for name, ms := range c.TimeoutsMS {
		p, err := ParsePriority(name)
		if err != nil {
			return tp, fmt.Errorf("%w: timeouts_ms: %w", zerr.ErrBadConfig, err)
		}
		if prev, ok := seen[p]; ok {
			return tp, fmt.Errorf("%w: timeouts_ms: %q and %q both set %s", zerr.ErrBadConfig, prev, name, p)
		}
		seen[p] = name
		tp = tp.With(p, time.Duration(ms)*time.Millisecond)
	}
	if err := tp.Validate(); err != nil {
		return tp, fmt.Errorf("%w: timeouts_ms: %w", zerr.ErrBadConfig, err)
	}
	return tp, nil
}

// TimeSlice returns the configured work loop budget.
func (c Config) TimeSlice() time.Duration {
	return time.Duration(c.TimeSliceMS) * time.Millisecond
}

// FrameInterval returns the configured frame host tick.
func (c Config) FrameInterval() time.Duration {
	return time.Duration(c.FrameMS) * time.Millisecond
}

// Options converts the config into scheduler options.
func (c Config) Options() ([]Option, error) {
	tp, err := c.Policy()
	if err != nil {
		return nil, err
	}
	return []Option{WithTimeSlice(c.TimeSlice()), WithTimeouts(tp)}, nil
}

// Marshal renders the config back as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

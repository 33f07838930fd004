// Package config loads decode session settings from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/user/decodebridge/pkg/pipeline"
	"github.com/user/decodebridge/pkg/ports"
)

// Engine names
const (
	EngineLibde265 = "libde265"
	EngineSoft     = "soft"
	EngineVP8      = "vp8"
)

// Input formats
const (
	InputAnnexB = "annexb"
	InputMP4    = "mp4"
	InputRTP    = "rtp"
	InputIVF    = "ivf"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid configuration")

// Config represents the full configuration of a decode session.
type Config struct {
	// Input
	Input       string `yaml:"input"`
	InputFormat string `yaml:"input_format"`
	ChunkSize   int    `yaml:"chunk_size"`

	// Decoding
	Engine    string `yaml:"engine"`
	Mode      string `yaml:"mode"` // empty follows the input source
	FrameRate string `yaml:"framerate"`
	Threads   int    `yaml:"threads"`

	// Output
	Output   string         `yaml:"output"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Summary  string         `yaml:"summary"`

	LogLevel string `yaml:"log_level"`

	Soft SoftConfig `yaml:"soft"`
}

// SnapshotConfig controls thumbnail output.
type SnapshotConfig struct {
	Dir      string `yaml:"dir"`
	Every    int    `yaml:"every"`
	MaxWidth int    `yaml:"max_width"`
	Label    bool   `yaml:"label"`
}

// SoftConfig tunes the pure-Go reference engine.
type SoftConfig struct {
	QueueCapacity int `yaml:"queue_capacity"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		InputFormat: InputAnnexB,
		ChunkSize:   4096,

		Engine:    EngineLibde265,
		FrameRate: "0/1",

		Snapshot: SnapshotConfig{
			Every:    30,
			MaxWidth: 320,
			Label:    true,
		},

		LogLevel: "info",

		Soft: SoftConfig{
			QueueCapacity: 4,
		},
	}
}

// LoadFromFile loads configuration from a YAML file over Defaults.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks enumerated values and ranges.
func (c Config) Validate() error {
	var errs []error

	switch c.Engine {
	case EngineLibde265, EngineSoft, EngineVP8:
	default:
		errs = append(errs, fmt.Errorf("engine %q (want %s, %s or %s)", c.Engine, EngineLibde265, EngineSoft, EngineVP8))
	}
	switch c.InputFormat {
	case InputAnnexB, InputMP4, InputRTP, InputIVF:
	default:
		errs = append(errs, fmt.Errorf("input_format %q (want %s, %s, %s or %s)", c.InputFormat, InputAnnexB, InputMP4, InputRTP, InputIVF))
	}
	// VP8 has no NAL units, so it only pairs with IVF frame records.
	if (c.Engine == EngineVP8) != (c.InputFormat == InputIVF) {
		errs = append(errs, fmt.Errorf("engine %s requires input_format %s and the reverse", EngineVP8, InputIVF))
	}
	if c.Mode != "" {
		m, err := pipeline.ParseFramingMode(c.Mode)
		if err != nil {
			errs = append(errs, err)
		} else if c.Engine == EngineVP8 && m == pipeline.FramingPacketized {
			errs = append(errs, fmt.Errorf("mode %s is not supported by engine %s", m, EngineVP8))
		}
	}
	if _, err := pipeline.ParseFraction(c.FrameRate); err != nil {
		errs = append(errs, err)
	}
	if c.Threads < 0 {
		errs = append(errs, fmt.Errorf("threads %d is negative", c.Threads))
	}
	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk_size %d must be positive", c.ChunkSize))
	}
	if c.Snapshot.Dir != "" && c.Snapshot.Every <= 0 {
		errs = append(errs, fmt.Errorf("snapshot.every %d must be positive", c.Snapshot.Every))
	}
	if c.Soft.QueueCapacity <= 0 {
		errs = append(errs, fmt.Errorf("soft.queue_capacity %d must be positive", c.Soft.QueueCapacity))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

// Framing returns the configured framing mode. An empty mode follows the
// framing reported by the input source.
func (c Config) Framing(source pipeline.FramingMode) pipeline.FramingMode {
	if c.Mode == "" {
		return source
	}
	m, _ := pipeline.ParseFramingMode(c.Mode)
	return m
}

// Rate returns the parsed frame-rate override. An invalid value yields the
// unset fraction.
func (c Config) Rate() pipeline.Fraction {
	f, err := pipeline.ParseFraction(c.FrameRate)
	if err != nil {
		return pipeline.Fraction{Num: 0, Den: 1}
	}
	return f
}

// Level returns the parsed log level.
func (c Config) Level() ports.LogLevel {
	return ports.ParseLogLevel(strings.ToLower(c.LogLevel))
}

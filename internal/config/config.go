// Package config handles engine configuration file management: the
// construction-time parameters every session and the engine's
// capacity limits are built from.
//
// The Manager load/save/get shape is carried over from the teacher's
// internal/config/config.go; file format moves from plain JSON to
// YAML (gopkg.in/yaml.v2, sourced from other_examples/phase4's
// go.mod) and struct validation is added via
// github.com/go-playground/validator/v10 (same source), since a
// hand-rolled daemon config has no validation step worth copying.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"

	"github.com/huntmasteracademy/gamecalls-engine/internal/types"
)

// Config is the engine's construction-time configuration, covering
// session capacity, signal-processing geometry, and similarity
// weighting.
type Config struct {
	MaxSessions         int `yaml:"maxSessions" validate:"gte=1"`
	MasterCacheCapacity int `yaml:"masterCacheCapacity" validate:"gte=1"`
	MasterCallDir       string `yaml:"masterCallDir" validate:"required"`

	Audio AudioConfig `yaml:"audio" validate:"required"`

	DTWBandRadius             int `yaml:"dtwBandRadius" validate:"gte=1"`
	ScoringCadenceFrames      int `yaml:"scoringCadenceFrames" validate:"gte=1"`
	EnhancedInactivityTimeoutMs int `yaml:"enhancedInactivityTimeoutMs" validate:"gte=1"`

	Weights SimilarityWeights `yaml:"similarityWeights"`
}

// AudioConfig describes the sample geometry every session's MFCC
// pipeline is built from.
type AudioConfig struct {
	SampleRate int    `yaml:"sampleRate" validate:"gte=8000,lte=192000"`
	FrameSize  int    `yaml:"frameSize" validate:"gte=256"`
	HopSize    int    `yaml:"hopSize" validate:"gte=1"`
	NumCoeffs  int    `yaml:"numCoeffs" validate:"gte=1"`
	NumFilters int    `yaml:"numFilters" validate:"gte=1"`
	Window     string `yaml:"window" validate:"oneof=hann hamming blackman"`
}

// WindowKind parses the configured window name into a types.WindowKind.
func (a AudioConfig) WindowKind() types.WindowKind {
	switch a.Window {
	case "hamming":
		return types.WindowHamming
	case "blackman":
		return types.WindowBlackman
	default:
		return types.WindowHann
	}
}

// SimilarityWeights mirrors internal/similarity.Weights for
// serialization. The daemon does not pass it to the engine; sessions
// score with similarity.DefaultWeights.
type SimilarityWeights struct {
	Offset      float64 `yaml:"offset"`
	DTW         float64 `yaml:"dtw"`
	Mean        float64 `yaml:"mean"`
	Subsequence float64 `yaml:"subsequence"`
}

// DefaultConfig returns the spec's default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxSessions:                 1000,
		MasterCacheCapacity:         32,
		MasterCallDir:               "./masters",
		Audio: AudioConfig{
			SampleRate: 16000,
			FrameSize:  512,
			HopSize:    256,
			NumCoeffs:  13,
			NumFilters: 26,
			Window:     "hann",
		},
		DTWBandRadius:               50,
		ScoringCadenceFrames:        4,
		EnhancedInactivityTimeoutMs: 2000,
		Weights: SimilarityWeights{
			Offset: 0.15, DTW: 0.45, Mean: 0.15, Subsequence: 0.25,
		},
	}
}

var validate = validator.New()

// Validate checks c against its struct tags, the way the teacher's
// Manager trusted unchecked JSON never had to.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Manager handles loading and saving configuration, the same
// load-parse-or-default-and-save flow as the teacher's
// internal/config/config.go Manager.
type Manager struct {
	configDir  string
	configPath string
	config     *Config
}

// NewManager creates a configuration manager rooted at configDir.
func NewManager(configDir string) *Manager {
	return &Manager{
		configDir:  configDir,
		configPath: filepath.Join(configDir, "config.yaml"),
		config:     DefaultConfig(),
	}
}

// Load reads the configuration from disk, writing out defaults if no
// file exists yet.
func (m *Manager) Load() error {
	if err := os.MkdirAll(m.configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(m.configPath); os.IsNotExist(err) {
		m.config = DefaultConfig()
		return m.Save()
	}

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	m.config = cfg
	return nil
}

// Save writes the configuration to disk as YAML.
func (m *Manager) Save() error {
	if err := os.MkdirAll(m.configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(m.config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Get returns the current configuration.
func (m *Manager) Get() *Config { return m.config }

// GetPath returns the config file path.
func (m *Manager) GetPath() string { return m.configPath }

// Update replaces and persists the configuration, validating first.
func (m *Manager) Update(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.config = cfg
	return m.Save()
}

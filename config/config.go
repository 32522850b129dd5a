// Package config holds the tunable parameters of a ledger node.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/luca-patrignani/resonance/domain/token"
)

// Config is the top level configuration. The zero value is not usable, start
// from Default.
type Config struct {
	Consensus ConsensusConfig `yaml:"consensus"`
	Mining    MiningConfig    `yaml:"mining"`
	Rewards   RewardsConfig   `yaml:"rewards"`
	Graph     GraphConfig     `yaml:"graph"`
	Log       LogConfig       `yaml:"log"`
}

type ConsensusConfig struct {
	// Share of active witnesses that must accept a block.
	Threshold float64 `yaml:"threshold" validate:"gt=0,lte=1"`
	// Allowed drop of global coherence between consecutive blocks.
	CoherenceTolerance float64 `yaml:"coherence_tolerance" validate:"gte=0"`
	MinimumStake       uint64  `yaml:"minimum_stake"`
	MaxWitnesses       int     `yaml:"max_witnesses" validate:"gte=1"`
}

type MiningConfig struct {
	TargetBlockTime   time.Duration `yaml:"target_block_time" validate:"gt=0"`
	AdjustmentWindow  int           `yaml:"adjustment_window" validate:"gte=2"`
	InitialDifficulty int           `yaml:"initial_difficulty" validate:"gte=1,lte=64"`
}

type RewardsConfig struct {
	// Resonance is minted to the witness and to each event sender of an
	// accepted block. Creators of validated nodes receive half.
	Resonance uint64 `yaml:"resonance" validate:"gt=0"`
}

type GraphConfig struct {
	// StrictValidate rejects blocks with Validate events on unknown nodes.
	StrictValidate bool `yaml:"strict_validate"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Consensus: ConsensusConfig{
			Threshold:          0.67,
			CoherenceTolerance: 0.01,
			MinimumStake:       token.Unit,
			MaxWitnesses:       21,
		},
		Mining: MiningConfig{
			TargetBlockTime:   5 * time.Second,
			AdjustmentWindow:  10,
			InitialDifficulty: 1,
		},
		Rewards: RewardsConfig{
			Resonance: token.Unit / 100,
		},
		Graph: GraphConfig{StrictValidate: true},
		Log:   LogConfig{Level: "info"},
	}
}

// Load reads a YAML file over the defaults, applies RESONANCE_* environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c Config) Validate() error {
	return validate.Struct(c)
}

// SlogLevel maps Log.Level to a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("RESONANCE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("RESONANCE_CONSENSUS_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RESONANCE_CONSENSUS_THRESHOLD: %w", err)
		}
		cfg.Consensus.Threshold = f
	}
	if v := os.Getenv("RESONANCE_MINING_INITIAL_DIFFICULTY"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RESONANCE_MINING_INITIAL_DIFFICULTY: %w", err)
		}
		cfg.Mining.InitialDifficulty = d
	}
	if v := os.Getenv("RESONANCE_MINING_TARGET_BLOCK_TIME"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("RESONANCE_MINING_TARGET_BLOCK_TIME: %w", err)
		}
		cfg.Mining.TargetBlockTime = d
	}
	return nil
}

package decoder

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/arloliu/bufr/expand"
	"github.com/arloliu/bufr/internal/options"
)

// Config holds decoder settings. The zero value of a limit selects its default.
type Config struct {
	// MaxReplication bounds delayed replication counts read from the data.
	MaxReplication int `yaml:"max_replication"`
	// MaxDepth bounds the nesting of sequences and replications.
	MaxDepth int `yaml:"max_depth"`
	// MaxInstructions bounds the expanded length of one subset.
	MaxInstructions int `yaml:"max_instructions"`
	// SupportedMasterTables lists the accepted section 1 master table numbers.
	SupportedMasterTables []int `yaml:"supported_master_tables"`

	Logger *slog.Logger `yaml:"-"`
}

// DefaultConfig returns the default settings: WMO master table 0 only, expand's
// default limits and a logger that discards everything.
func DefaultConfig() Config {
	return Config{
		MaxReplication:        expand.DefaultMaxReplication,
		MaxDepth:              expand.DefaultMaxDepth,
		MaxInstructions:       expand.DefaultMaxInstructions,
		SupportedMasterTables: []int{0},
		Logger:                slog.New(slog.DiscardHandler),
	}
}

func (c *Config) limits() expand.Limits {
	return expand.Limits{
		MaxDepth:        c.MaxDepth,
		MaxReplication:  c.MaxReplication,
		MaxInstructions: c.MaxInstructions,
	}
}

func (c *Config) supports(masterTable int) bool {
	for _, t := range c.SupportedMasterTables {
		if t == masterTable {
			return true
		}
	}

	return false
}

// Option configures a Decoder.
type Option = options.Option[*Config]

func positive(name string, n int) error {
	if n <= 0 {
		return fmt.Errorf("decoder: %s must be positive, got %d", name, n)
	}

	return nil
}

// WithMaxReplication sets the largest accepted delayed replication count.
func WithMaxReplication(n int) Option {
	return options.New(func(c *Config) error {
		if err := positive("max replication", n); err != nil {
			return err
		}
		c.MaxReplication = n

		return nil
	})
}

// WithMaxDepth sets the maximum nesting depth.
func WithMaxDepth(n int) Option {
	return options.New(func(c *Config) error {
		if err := positive("max depth", n); err != nil {
			return err
		}
		c.MaxDepth = n

		return nil
	})
}

// WithMaxInstructions sets the maximum number of expanded instructions per subset.
func WithMaxInstructions(n int) Option {
	return options.New(func(c *Config) error {
		if err := positive("max instructions", n); err != nil {
			return err
		}
		c.MaxInstructions = n

		return nil
	})
}

// WithSupportedMasterTables replaces the accepted master table numbers.
func WithSupportedMasterTables(tables ...int) Option {
	return options.New(func(c *Config) error {
		if len(tables) == 0 {
			return fmt.Errorf("decoder: at least one master table is required")
		}
		c.SupportedMasterTables = append([]int(nil), tables...)

		return nil
	})
}

// WithLogger sets the logger; nil restores the discarding default.
func WithLogger(l *slog.Logger) Option {
	return options.NoError(func(c *Config) {
		if l == nil {
			l = slog.New(slog.DiscardHandler)
		}
		c.Logger = l
	})
}

// WithConfig copies the non-zero settings of cfg.
func WithConfig(cfg Config) Option {
	return options.NoError(func(c *Config) {
		if cfg.MaxReplication > 0 {
			c.MaxReplication = cfg.MaxReplication
		}
		if cfg.MaxDepth > 0 {
			c.MaxDepth = cfg.MaxDepth
		}
		if cfg.MaxInstructions > 0 {
			c.MaxInstructions = cfg.MaxInstructions
		}
		if len(cfg.SupportedMasterTables) > 0 {
			c.SupportedMasterTables = append([]int(nil), cfg.SupportedMasterTables...)
		}
		if cfg.Logger != nil {
			c.Logger = cfg.Logger
		}
	})
}

// LoadConfig reads settings from YAML:
//
//	max_replication: 4096
//	max_depth: 32
//	max_instructions: 1000000
//	supported_master_tables: [0, 10]
//
// Omitted keys keep their defaults; limits must be positive.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decoder: parse config: %w", err)
	}

	for name, v := range map[string]int{
		"max_replication":  cfg.MaxReplication,
		"max_depth":        cfg.MaxDepth,
		"max_instructions": cfg.MaxInstructions,
	} {
		if err := positive(name, v); err != nil {
			return Config{}, err
		}
	}
	if len(cfg.SupportedMasterTables) == 0 {
		return Config{}, fmt.Errorf("decoder: supported_master_tables must not be empty")
	}

	return cfg, nil
}

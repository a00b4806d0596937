package domainio

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level verify.yaml run configuration.
type Config struct {
	// Solver configures the safe-solver resource caps and backend.
	Solver SolverConfig `yaml:"solver"`

	// Budgets configures the SMT resolution stage's wall-clock limits.
	Budgets BudgetConfig `yaml:"budgets"`

	// Passes toggles individual semantic passes by ID. Every pass is
	// enabled unless explicitly set to false here.
	Passes map[string]bool `yaml:"passes,omitempty"`

	// FailFast stops scheduling new passes after the first failing one.
	FailFast bool `yaml:"fail_fast,omitempty"`

	// CachePath points at the sqlite report/query cache; empty disables
	// caching.
	CachePath string `yaml:"cache_path,omitempty"`
}

// SolverConfig selects a backend and its pre-flight limits.
type SolverConfig struct {
	// Backend is "local" (the in-process bounded decision procedure) or
	// "grpc" (an external solver process via internal/solverrpc).
	Backend string `yaml:"backend,omitempty"`

	// Target is the gRPC address of the external solver. Only used when
	// Backend is "grpc".
	Target string `yaml:"target,omitempty"`

	// ProtoPath optionally overrides the bundled solver service contract.
	ProtoPath string `yaml:"proto_path,omitempty"`

	MaxVariables  int `yaml:"max_variables,omitempty"`
	MaxAssertions int `yaml:"max_assertions,omitempty"`
	MaxExprDepth  int `yaml:"max_expr_depth,omitempty"`
	MaxNodeCount  int `yaml:"max_node_count,omitempty"`
}

// BudgetConfig mirrors the resolution stage's two limits.
type BudgetConfig struct {
	TimeoutPerClause time.Duration `yaml:"timeout_per_clause,omitempty"`
	GlobalTimeout    time.Duration `yaml:"global_timeout,omitempty"`
}

// LoadConfig reads and parses a verify.yaml file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return ParseConfig(data, path)
}

// ParseConfig parses verify.yaml content from bytes. The path argument
// is used only for error messages.
func ParseConfig(data []byte, path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return &cfg, nil
}

// DefaultConfig returns the configuration used when no verify.yaml is
// present.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

func (c *Config) validate(path string) error {
	switch c.Solver.Backend {
	case "", "local":
	case "grpc":
		if c.Solver.Target == "" {
			return fmt.Errorf("config %s: solver.backend \"grpc\" requires solver.target", path)
		}
	default:
		return fmt.Errorf("config %s: unknown solver.backend %q (want \"local\" or \"grpc\")", path, c.Solver.Backend)
	}
	if c.Budgets.TimeoutPerClause < 0 || c.Budgets.GlobalTimeout < 0 {
		return fmt.Errorf("config %s: budgets must not be negative", path)
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Solver.Backend == "" {
		c.Solver.Backend = "local"
	}
	if c.Solver.MaxVariables == 0 {
		c.Solver.MaxVariables = 200
	}
	if c.Solver.MaxAssertions == 0 {
		c.Solver.MaxAssertions = 500
	}
	if c.Solver.MaxExprDepth == 0 {
		c.Solver.MaxExprDepth = 64
	}
	if c.Solver.MaxNodeCount == 0 {
		c.Solver.MaxNodeCount = 5000
	}
	if c.Budgets.TimeoutPerClause == 0 {
		c.Budgets.TimeoutPerClause = 5 * time.Second
	}
	if c.Budgets.GlobalTimeout == 0 {
		c.Budgets.GlobalTimeout = 60 * time.Second
	}
}

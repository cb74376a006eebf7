package middleware

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/reoring/gomodel/function"
)

// Config configures the default middleware chain.
//
//	max_selection_depth: 3   # 0 disables the guard
//	output_check: log        # log | throw | off
type Config struct {
	MaxSelectionDepth int    `yaml:"max_selection_depth"`
	OutputCheck       string `yaml:"output_check"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{MaxSelectionDepth: 3, OutputCheck: "log"}
}

// ParseConfig reads a YAML configuration. Keys that are absent keep their
// default value.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("middleware: parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("middleware: read config: %w", err)
	}
	return ParseConfig(data)
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	if c.MaxSelectionDepth < 0 {
		return fmt.Errorf("middleware: max_selection_depth must not be negative, got %d", c.MaxSelectionDepth)
	}
	switch c.OutputCheck {
	case "", "off", "log", "throw":
		return nil
	}
	return fmt.Errorf("middleware: output_check must be one of log, throw, off; got %q", c.OutputCheck)
}

// Middlewares builds the chain: the depth guard, then the output check, then
// extra (typically CheckPolicies). The output check therefore sees the result
// after policy mappers ran.
func (c Config) Middlewares(extra ...function.Middleware) []function.Middleware {
	var out []function.Middleware
	if c.MaxSelectionDepth > 0 {
		out = append(out, CheckMaxSelectionDepth(c.MaxSelectionDepth))
	}
	switch c.OutputCheck {
	case "log":
		out = append(out, CheckOutputType(Log))
	case "throw":
		out = append(out, CheckOutputType(Throw))
	}
	return append(out, extra...)
}

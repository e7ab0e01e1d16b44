// Package config loads YAML configuration files, expanding environment
// variable references before parsing.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Validator is implemented by configuration types that can check themselves
// after loading.
type Validator interface {
	Validate() error
}

// Load reads filename, expands ${VAR} references against the environment,
// unmarshals the result into target, and validates it when target implements
// Validator. target keeps any values it already holds for keys the file
// omits, so callers can pre-fill defaults.
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", filename, err)
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), target); err != nil {
		return fmt.Errorf("config: parse %s: %w", filename, err)
	}

	if v, ok := any(target).(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("config: validate %s: %w", filename, err)
		}
	}

	return nil
}

// LoadWithDefaults loads filename, falling back to defaultFile when filename
// does not exist.
func LoadWithDefaults[T any](filename, defaultFile string, target *T) error {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		if defaultFile != "" {
			return Load(defaultFile, target)
		}
		return fmt.Errorf("config: file not found: %s", filename)
	}
	return Load(filename, target)
}

// MustLoad loads configuration and panics on failure.
func MustLoad[T any](filename string, target *T) {
	if err := Load(filename, target); err != nil {
		panic(err)
	}
}

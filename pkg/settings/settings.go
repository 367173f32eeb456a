// Package settings holds the user-editable model parameters of a session.
package settings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/aretw0/panel/pkg/domain"
)

// Store holds the current ModelConfig. Safe for concurrent use.
type Store struct {
	mu  sync.RWMutex
	cfg domain.ModelConfig
}

// New creates a store. A zero cfg selects domain.DefaultModelConfig.
func New(cfg domain.ModelConfig) (*Store, error) {
	if cfg == (domain.ModelConfig{}) {
		cfg = domain.DefaultModelConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Store{cfg: cfg}, nil
}

// Current returns the active configuration.
func (s *Store) Current() domain.ModelConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Set validates and applies cfg. On error the previous value is kept.
func (s *Store) Set(cfg domain.ModelConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	return nil
}

// Export serializes the configuration as indented JSON.
func (s *Store) Export() ([]byte, error) {
	return Encode(s.Current())
}

// Import replaces the configuration with the document in data.
// Both fields are required; on any violation *domain.InvalidSnapshotError is
// returned and the previous configuration is kept.
func (s *Store) Import(data []byte) error {
	cfg, err := Decode(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	return nil
}

// Encode renders cfg in the model settings document format.
func Encode(cfg domain.ModelConfig) ([]byte, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal model config: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses and validates a model settings document.
func Decode(data []byte) (domain.ModelConfig, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.ModelConfig{}, invalid("malformed JSON", err)
	}

	rawName, ok := doc["model_name"]
	if !ok {
		return domain.ModelConfig{}, invalid("missing model_name", nil)
	}
	rawTemp, ok := doc["temperature"]
	if !ok {
		return domain.ModelConfig{}, invalid("missing temperature", nil)
	}

	var cfg domain.ModelConfig
	if err := json.Unmarshal(rawName, &cfg.ModelName); err != nil {
		return domain.ModelConfig{}, invalid("model_name must be a string", err)
	}
	if bytes.Equal(bytes.TrimSpace(rawTemp), []byte("null")) {
		return domain.ModelConfig{}, invalid("temperature must be a number", nil)
	}
	if err := json.Unmarshal(rawTemp, &cfg.Temperature); err != nil {
		return domain.ModelConfig{}, invalid("temperature must be a number", err)
	}
	if err := cfg.Validate(); err != nil {
		return domain.ModelConfig{}, invalid("rejected model config", err)
	}
	return cfg, nil
}

func invalid(reason string, err error) error {
	return &domain.InvalidSnapshotError{Reason: reason, Err: err}
}

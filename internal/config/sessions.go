package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"panelprofits/internal/engine"
)

//go:embed market_sessions.yaml
var defaultSessionsYAML []byte

type sessionsFile struct {
	Sessions []engine.MarketSession `yaml:"sessions"`
}

// LoadMarketSessions reads a YAML session file, expanding ${VAR} references.
// An empty path loads the built-in exchanges.
func LoadMarketSessions(path string) ([]engine.MarketSession, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultMarketSessions()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read market sessions: %w", err)
	}
	return parseSessions([]byte(os.ExpandEnv(string(data))))
}

// DefaultMarketSessions returns the built-in exchanges.
func DefaultMarketSessions() ([]engine.MarketSession, error) {
	return parseSessions(defaultSessionsYAML)
}

func parseSessions(data []byte) ([]engine.MarketSession, error) {
	var f sessionsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse market sessions yaml: %w", err)
	}
	if len(f.Sessions) == 0 {
		return nil, fmt.Errorf("%w: no sessions defined", engine.ErrInvalidSession)
	}
	seen := make(map[string]bool, len(f.Sessions))
	for i := range f.Sessions {
		s := &f.Sessions[i]
		s.Code = strings.ToUpper(strings.TrimSpace(s.Code))
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("validate session %d: %w", i, err)
		}
		if seen[s.Code] {
			return nil, fmt.Errorf("%w: duplicate code %s", engine.ErrInvalidSession, s.Code)
		}
		seen[s.Code] = true
	}
	return f.Sessions, nil
}

package providers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Package providers contains pluggable feed configs (YAML/JSON) and the
// fetchers that turn them into candidate articles.

// Provider describes one upstream feed of candidate articles.
type Provider struct {
	ID             string         `json:"id" yaml:"id"`
	Name           string         `json:"name" yaml:"name"`
	Type           string         `json:"type" yaml:"type"`
	SourceURL      string         `json:"source_url" yaml:"source_url"`
	ResponseFormat string         `json:"response_format" yaml:"response_format"`
	RequestDelayMs int            `json:"request_delay_ms" yaml:"request_delay_ms"`
	Limit          int            `json:"limit" yaml:"limit"`
	Config         map[string]any `json:"config" yaml:"config"`
}

type registryFile struct {
	Providers []Provider `json:"providers" yaml:"providers"`
}

// Registry is an immutable, validated set of feeds.
type Registry struct {
	providers []Provider
	idx       map[string]Provider
}

const defaultRequestDelayMs = 500

// LoadRegistry reads and validates a feeds file (YAML or JSON by extension).
func LoadRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("providers file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open providers file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read providers file: %w", err)
	}

	// ${VAR} references (API keys) are resolved from the environment.
	reg, err := parseRegistry([]byte(os.ExpandEnv(string(raw))), filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	return NewRegistry(reg.Providers)
}

// NewRegistry validates the given feeds and builds a registry.
func NewRegistry(list []Provider) (*Registry, error) {
	if len(list) == 0 {
		return nil, errors.New("providers file contains no providers entries")
	}

	out := make([]Provider, 0, len(list))
	idx := make(map[string]Provider, len(list))
	for i := range list {
		p := sanitizeProvider(list[i])
		if err := validateProvider(p); err != nil {
			return nil, fmt.Errorf("provider[%d]: %w", i, err)
		}
		if _, exists := idx[p.ID]; exists {
			return nil, fmt.Errorf("duplicate provider id %q", p.ID)
		}
		out = append(out, p)
		idx[p.ID] = p
	}

	return &Registry{providers: out, idx: idx}, nil
}

// All returns a copy of the loaded feeds in file order.
func (r *Registry) All() []Provider {
	if r == nil || len(r.providers) == 0 {
		return nil
	}
	out := make([]Provider, len(r.providers))
	copy(out, r.providers)
	return out
}

// ByID returns the feed entry for the given id, if loaded.
func (r *Registry) ByID(id string) (Provider, bool) {
	id = strings.TrimSpace(id)
	if r == nil || id == "" {
		return Provider{}, false
	}
	p, ok := r.idx[id]
	return p, ok
}

func parseRegistry(data []byte, ext string) (registryFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   unmarshalFn
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		if reg, err := unmarshalRegistry(d.name, data, d.fn); err == nil {
			return reg, nil
		}
	}

	return registryFile{}, errors.New("providers file format not recognized (expected YAML or JSON)")
}

type unmarshalFn func([]byte, any) error

func unmarshalRegistry(name string, data []byte, fn unmarshalFn) (registryFile, error) {
	var reg registryFile
	if err := fn(data, &reg); err != nil {
		return registryFile{}, fmt.Errorf("decode %s providers: %w", name, err)
	}
	return reg, nil
}

func sanitizeProvider(p Provider) Provider {
	p.ID = strings.TrimSpace(p.ID)
	p.Name = strings.TrimSpace(p.Name)
	p.Type = strings.ToLower(strings.TrimSpace(p.Type))
	p.SourceURL = strings.TrimSpace(p.SourceURL)
	p.ResponseFormat = strings.TrimSpace(p.ResponseFormat)

	if p.Config == nil {
		p.Config = map[string]any{}
	}
	if p.RequestDelayMs <= 0 {
		p.RequestDelayMs = defaultRequestDelayMs
	}
	if p.ResponseFormat == "" {
		p.ResponseFormat = defaultResponseFormat(p.Type)
	}

	return p
}

func defaultResponseFormat(typ string) string {
	switch typ {
	case ProviderTypeGoogleNews, ProviderTypeRSS:
		return "xml"
	default:
		return "json"
	}
}

func validateProvider(p Provider) error {
	if p.ID == "" {
		return errors.New("id is required")
	}
	if p.Name == "" {
		return fmt.Errorf("name is required for provider %q", p.ID)
	}
	if p.Type == "" {
		return fmt.Errorf("type is required for provider %q", p.ID)
	}
	if !knownType(p.Type) {
		return fmt.Errorf("unknown type %q for provider %q", p.Type, p.ID)
	}
	if p.SourceURL == "" {
		return fmt.Errorf("source_url is required for provider %q", p.ID)
	}
	if p.Limit < 0 {
		return fmt.Errorf("limit must be >= 0 for provider %q", p.ID)
	}
	return nil
}

// RequestDelay returns the per-request throttle duration for the provider.
func (p Provider) RequestDelay() time.Duration {
	if p.RequestDelayMs <= 0 {
		return time.Duration(defaultRequestDelayMs) * time.Millisecond
	}
	return time.Duration(p.RequestDelayMs) * time.Millisecond
}

// CurationLimit returns the feed's own limit, or fallback when unset.
func (p Provider) CurationLimit(fallback int) int {
	if p.Limit > 0 {
		return p.Limit
	}
	return fallback
}

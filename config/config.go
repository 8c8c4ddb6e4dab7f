// Package config provides thread-safe access to application configuration.
//
// Configuration is a two-level section/key map loaded from a YAML (or
// JSON) file. Reads are synchronous, non-blocking, and side-effect
// free; callers supply a default for every lookup, so a missing or
// mistyped value never fails a thread start.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360/threadkit/errors"
)

// Values holds raw configuration as section -> key -> value.
type Values map[string]map[string]any

// Provider is a thread-safe configuration source. Lookups are
// case-insensitive on both section and key.
type Provider struct {
	mu     sync.RWMutex
	values Values
}

// New creates a provider from in-memory values.
func New(values Values) *Provider {
	p := &Provider{values: make(Values)}
	p.replace(values)
	return p
}

// LoadFile reads a YAML or JSON configuration file. The top level must
// be a mapping of sections to key/value mappings.
func LoadFile(path string) (*Provider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "Config", "LoadFile", fmt.Sprintf("read %s", path))
	}
	return Parse(data)
}

// Parse builds a provider from raw YAML or JSON bytes.
func Parse(data []byte) (*Provider, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.WrapInvalid(err, "Config", "Parse", "unmarshal configuration")
	}

	values := make(Values, len(raw))
	for section, v := range raw {
		keys, ok := v.(map[string]any)
		if !ok {
			return nil, errors.WrapInvalid(errors.ErrInvalidArgument, "Config", "Parse",
				fmt.Sprintf("section %q is not a mapping", section))
		}
		values[section] = keys
	}
	return New(values), nil
}

// Update atomically replaces the configuration.
func (p *Provider) Update(values Values) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values = make(Values)
	p.replaceLocked(values)
}

func (p *Provider) replace(values Values) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replaceLocked(values)
}

func (p *Provider) replaceLocked(values Values) {
	for section, keys := range values {
		normalized := make(map[string]any, len(keys))
		for key, v := range keys {
			normalized[strings.ToLower(key)] = v
		}
		p.values[strings.ToLower(section)] = normalized
	}
}

func (p *Provider) lookup(section, key string) (any, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	keys, ok := p.values[strings.ToLower(section)]
	if !ok {
		return nil, false
	}
	v, ok := keys[strings.ToLower(key)]
	return v, ok
}

// GetString returns a string value, or def when absent.
func (p *Provider) GetString(section, key, def string) string {
	v, ok := p.lookup(section, key)
	if !ok {
		return def
	}
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return def
}

// GetInt returns an integer value, or def when absent or unparseable.
func (p *Provider) GetInt(section, key string, def int) int {
	v, ok := p.lookup(section, key)
	if !ok {
		return def
	}
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case uint64:
		return int(t)
	case float64:
		return int(t)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n
		}
	}
	return def
}

// GetBool returns a boolean value, or def when absent or unparseable.
func (p *Provider) GetBool(section, key string, def bool) bool {
	v, ok := p.lookup(section, key)
	if !ok {
		return def
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(t)); err == nil {
			return b
		}
	case int:
		return t != 0
	}
	return def
}

// GetUint16 returns a 16-bit unsigned value (ports and similar), or
// def when absent or out of range.
func (p *Provider) GetUint16(section, key string, def uint16) uint16 {
	n := p.GetInt(section, key, int(def))
	if n < 0 || n > 65535 {
		return def
	}
	return uint16(n)
}

// GetDuration returns a duration value, or def when absent or
// unparseable. Strings use Go duration syntax ("250ms", "5s"); bare
// integers are taken as milliseconds.
func (p *Provider) GetDuration(section, key string, def time.Duration) time.Duration {
	v, ok := p.lookup(section, key)
	if !ok {
		return def
	}
	switch t := v.(type) {
	case string:
		if d, err := time.ParseDuration(strings.TrimSpace(t)); err == nil {
			return d
		}
	case int:
		return time.Duration(t) * time.Millisecond
	case int64:
		return time.Duration(t) * time.Millisecond
	case float64:
		return time.Duration(t) * time.Millisecond
	}
	return def
}

// Sections returns the configured section names.
func (p *Provider) Sections() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	sections := make([]string, 0, len(p.values))
	for section := range p.values {
		sections = append(sections, section)
	}
	return sections
}

package confloader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/knadh/koanf/maps"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the default environment variable prefix.
const DefaultEnvPrefix = "AUTHRELAY_"

// Loader merges the YAML file, the environment and explicit overrides, in
// that order, over a caller-supplied default value.
type Loader struct {
	k         *koanf.Koanf
	envPrefix string
	filePath  string
	overrides map[string]any
}

// Option configures the Loader.
type Option func(*Loader)

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) { l.envPrefix = prefix }
}

// WithConfigFile sets the YAML file path. An empty path disables the file.
func WithConfigFile(path string) Option {
	return func(l *Loader) { l.filePath = path }
}

// WithOverrides sets dotted-key values applied after the environment.
// Empty strings are ignored so unset flags do not clobber lower layers.
func WithOverrides(values map[string]any) Option {
	return func(l *Loader) { l.overrides = values }
}

// NewLoader creates a configuration loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{k: koanf.New("."), envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// FilePath returns the configured file path.
func (l *Loader) FilePath() string { return l.filePath }

// Load reads every layer and unmarshals over target. Fields with no
// matching key keep the value target already holds.
func (l *Loader) Load(target any) error {
	layers := []func() error{
		func() error { return l.LoadFile(l.filePath) },
		l.loadEnv,
		l.loadOverrides,
	}
	for _, load := range layers {
		if err := load(); err != nil {
			return err
		}
	}
	if err := l.k.Unmarshal("", target); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}

// Reload discards loaded values and loads every layer again into target.
func (l *Loader) Reload(target any) error {
	l.k = koanf.New(".")
	return l.Load(target)
}

// LoadFile merges a YAML file. An empty path is a no-op.
func (l *Loader) LoadFile(path string) error {
	if path == "" {
		return nil
	}
	if err := l.k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("load config file %s: %w", path, err)
	}
	return nil
}

// String returns a loaded value by dotted key.
func (l *Loader) String(key string) string {
	return l.k.String(key)
}

// loadEnv maps PREFIX_SECTION_KEY to section.key, so
// AUTHRELAY_SESSION_TOKENTTL=5m sets session.tokenttl.
func (l *Loader) loadEnv() error {
	key := func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, l.envPrefix)), "_", ".")
	}
	if err := l.k.Load(env.Provider(l.envPrefix, ".", key), nil); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	return nil
}

func (l *Loader) loadOverrides() error {
	set := make(dottedMap, len(l.overrides))
	for k, v := range l.overrides {
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		set[k] = v
	}
	if len(set) == 0 {
		return nil
	}
	if err := l.k.Load(set, nil); err != nil {
		return fmt.Errorf("load overrides: %w", err)
	}
	return nil
}

// dottedMap is a koanf.Provider over flat dotted keys.
type dottedMap map[string]any

func (m dottedMap) ReadBytes() ([]byte, error) {
	return nil, errors.New("confloader: dotted map has no byte form")
}

func (m dottedMap) Read() (map[string]any, error) {
	return maps.Unflatten(m, "."), nil
}

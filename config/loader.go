package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/c360/bee/errors"
	"github.com/c360/bee/value"
)

// DefaultEnvPrefix is the prefix of environment overrides. BEECFG_SOURCE__URI
// sets source.uri.
const DefaultEnvPrefix = "BEECFG_"

// Format is a configuration document syntax.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", errors.Newf(errors.InvalidPath, "unsupported config file extension: %s", path)
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Loader merges configuration layers and applies environment overrides.
// Later layers win; nested tables are merged key by key.
type Loader struct {
	layers    []string
	envPrefix string
	environ   func() []string
	lookupEnv func(string) (string, bool)
}

// NewLoader creates a loader that reads overrides from the process
// environment.
func NewLoader() *Loader {
	return &Loader{
		envPrefix: DefaultEnvPrefix,
		environ:   os.Environ,
		lookupEnv: os.LookupEnv,
	}
}

// AddLayer adds a configuration file layer
func (l *Loader) AddLayer(path string) *Loader {
	l.layers = append(l.layers, path)
	return l
}

// WithEnvPrefix changes the override prefix. An empty prefix disables
// overrides.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithEnviron replaces the environment source, mainly for tests.
func (l *Loader) WithEnviron(env map[string]string) *Loader {
	l.environ = func() []string {
		out := make([]string, 0, len(env))
		for k, v := range env {
			out = append(out, k+"="+v)
		}
		return out
	}
	l.lookupEnv = func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	return l
}

// LoadFile loads configuration from a single file
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load reads every layer, merges them and applies overrides.
func (l *Loader) Load() (*Config, error) {
	merged := Table{}
	for _, path := range l.layers {
		format, err := FormatFromPath(path)
		if err != nil {
			return nil, err
		}
		data, err := readLimited(path)
		if err != nil {
			return nil, err
		}
		layer, err := l.parse(format, string(data))
		if err != nil {
			return nil, errors.Wrap(err, "Loader", "Load", "parse "+path)
		}
		merged = deepMergeMaps(merged, layer)
	}

	if err := l.applyEnvOverrides(merged); err != nil {
		return nil, err
	}
	return New(merged), nil
}

// Load reads a single configuration file using the process environment.
func Load(path string) (*Config, error) {
	return NewLoader().LoadFile(path)
}

// FromString parses an in-memory document. ${VAR} references in string
// values are expanded from the process environment; overrides are not
// applied.
func FromString(format Format, text string) (*Config, error) {
	l := NewLoader()
	t, err := l.parse(format, text)
	if err != nil {
		return nil, err
	}
	return New(t), nil
}

func (l *Loader) parse(format Format, text string) (Table, error) {
	var doc any
	switch format {
	case FormatTOML:
		var m map[string]any
		if _, err := toml.Decode(text, &m); err != nil {
			return nil, errors.Newf(errors.IOInvalidData, "config file is not valid TOML - %v", err)
		}
		doc = m
	case FormatYAML:
		if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
			return nil, errors.Newf(errors.IOInvalidData, "config file is not valid YAML - %v", err)
		}
	case FormatJSON:
		if err := checkJSONDepth([]byte(text)); err != nil {
			return nil, err
		}
		dec := json.NewDecoder(bytes.NewReader([]byte(text)))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return nil, errors.Newf(errors.IOInvalidData, "config file is not valid JSON - %v", err)
		}
	default:
		return nil, errors.Newf(errors.InvalidNotSupport, "unsupported config format %q", format)
	}

	if doc == nil {
		return Table{}, nil
	}
	table, ok := normalize(doc).(map[string]any)
	if !ok {
		return nil, errors.New(errors.IOInvalidData, "config file must be a table")
	}
	if err := checkDepth(table, 0); err != nil {
		return nil, err
	}
	expanded, err := l.expand(table)
	if err != nil {
		return nil, err
	}
	return expanded.(map[string]any), nil
}

// expand replaces ${NAME} in string leaves of the decoded document, so an
// environment value can never alter the document's structure. A leaf that
// is exactly one reference is typed with value.Parse, the way overrides
// are. Unset variables are an invalid-param error.
func (l *Loader) expand(v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			x, err := l.expand(e)
			if err != nil {
				return nil, err
			}
			t[k] = x
		}
		return t, nil
	case []any:
		for i, e := range t {
			x, err := l.expand(e)
			if err != nil {
				return nil, err
			}
			t[i] = x
		}
		return t, nil
	case string:
		return l.expandString(t)
	}
	return v, nil
}

func (l *Loader) expandString(s string) (any, error) {
	refs := envRef.FindAllStringSubmatchIndex(s, -1)
	if len(refs) == 0 {
		return s, nil
	}
	var b strings.Builder
	last := 0
	for _, m := range refs {
		name := s[m[2]:m[3]]
		val, ok := l.lookupEnv(name)
		if !ok {
			return nil, errors.Newf(errors.InvalidParam, "config references unset environment variable %s", name)
		}
		if err := checkEnv(name, val); err != nil {
			return nil, err
		}
		b.WriteString(s[last:m[0]])
		b.WriteString(val)
		last = m[1]
	}
	b.WriteString(s[last:])
	if len(refs) == 1 && refs[0][0] == 0 && refs[0][1] == len(s) {
		return value.Parse(b.String()), nil
	}
	return b.String(), nil
}

// normalize turns YAML's map[any]any into map[string]any, recursively.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = normalize(e)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = normalize(e)
		}
		return out
	case []any:
		for i, e := range t {
			t[i] = normalize(e)
		}
		return t
	}
	return v
}

// deepMergeMaps recursively merges two maps, with override taking precedence
func deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		result[k] = v
	}
	for k, v := range override {
		if v == nil {
			continue
		}
		if baseMap, ok := asTable(base[k]); ok {
			if overrideMap, ok := asTable(v); ok {
				result[k] = deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}
		result[k] = v
	}
	return result
}

// applyEnvOverrides writes PREFIX_A__B=text into a.b, typing the text with
// value.Parse. Segments are lower-cased.
func (l *Loader) applyEnvOverrides(t Table) error {
	if l.envPrefix == "" {
		return nil
	}
	for _, kv := range l.environ() {
		name, raw, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, l.envPrefix) {
			continue
		}
		if err := checkEnv(name, raw); err != nil {
			return err
		}
		key := strings.ToLower(strings.TrimPrefix(name, l.envPrefix))
		if key == "" {
			continue
		}
		path := strings.Split(key, "__")
		setPath(t, path, value.Parse(raw))
	}
	return nil
}

func setPath(t map[string]any, path []string, v value.Value) {
	for _, seg := range path[:len(path)-1] {
		next, ok := asTable(t[seg])
		if !ok {
			next = map[string]any{}
			t[seg] = next
		}
		t = next
	}
	t[path[len(path)-1]] = v
}

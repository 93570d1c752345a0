package config

import (
	"sort"
	"strings"
	"time"

	"github.com/c360/bee/errors"
	"github.com/c360/bee/value"
)

// maxKeyDepth bounds the number of segments in a dotted key.
const maxKeyDepth = 64

// Table is a decoded configuration document. Values are scalars, []any,
// value.Value, or nested tables (Table or map[string]any).
type Table map[string]any

// Resolver looks up dotted keys.
type Resolver interface {
	Lookup(key string) (value.Value, error)
}

// Config resolves dotted keys over a Table. It never mutates the table, so
// one Config may be shared by every stage without locking.
type Config struct {
	table Table
}

// New wraps t. A nil table behaves as an empty one.
func New(t Table) *Config {
	if t == nil {
		t = Table{}
	}
	return &Config{table: t}
}

// Lookup resolves key to a Value.
//
// The key is split at its first dot. When the left segment names a nested
// table, lookup continues in that table with the remainder; otherwise the
// whole remaining key is looked up as a leaf of the current table. Tables
// found as leaves resolve to value.Nil.
func (c *Config) Lookup(key string) (value.Value, error) {
	if key == "" {
		return nil, errors.New(errors.InvalidIndex, "can't get config[]: empty key")
	}

	table := c.table
	rest := key
	for depth := 0; ; depth++ {
		if depth >= maxKeyDepth {
			return nil, errors.Newf(errors.InvalidIndex, "can't get config[%s]: key deeper than %d segments", key, maxKeyDepth)
		}
		if head, tail, found := strings.Cut(rest, "."); found {
			if sub, ok := asTable(table[head]); ok {
				table, rest = sub, tail
				continue
			}
		}
		raw, ok := table[rest]
		if !ok {
			return nil, errors.Newf(errors.InvalidIndex, "can't get config[%s]", key)
		}
		return value.FromAny(raw), nil
	}
}

// Has reports whether key resolves.
func (c *Config) Has(key string) bool {
	_, err := c.Lookup(key)
	return err == nil
}

// Sub returns a Config scoped to the nested table at key.
func (c *Config) Sub(key string) (*Config, error) {
	table := c.table
	for _, seg := range strings.Split(key, ".") {
		raw, ok := table[seg]
		if !ok {
			return nil, errors.Newf(errors.InvalidIndex, "can't get config[%s]", key)
		}
		sub, ok := asTable(raw)
		if !ok {
			return nil, errors.Newf(errors.InvalidType, "config[%s] is not a table", key)
		}
		table = sub
	}
	return &Config{table: table}, nil
}

// Keys returns the top-level keys in sorted order.
func (c *Config) Keys() []string {
	keys := make([]string, 0, len(c.table))
	for k := range c.table {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get resolves key and coerces the result to T.
func Get[T any](r Resolver, key string) (T, error) {
	v, err := r.Lookup(key)
	if err != nil {
		var zero T
		return zero, err
	}
	out, err := value.As[T](v)
	if err != nil {
		return out, errors.Wrap(err, "Config", "Get", "coerce config["+key+"]")
	}
	return out, nil
}

// GetOr is Get with a fallback for missing keys. Type mismatches are still
// reported.
func GetOr[T any](r Resolver, key string, fallback T) (T, error) {
	out, err := Get[T](r, key)
	if errors.IsOneOf(err, errors.InvalidIndex) {
		return fallback, nil
	}
	return out, err
}

// GetDuration reads a duration written either as a Go duration string
// ("250ms") or as an integer number of milliseconds.
func GetDuration(r Resolver, key string) (time.Duration, error) {
	v, err := r.Lookup(key)
	if err != nil {
		return 0, err
	}
	switch t := v.(type) {
	case value.Integer:
		return time.Duration(t) * time.Millisecond, nil
	case value.String:
		d, err := time.ParseDuration(string(t))
		if err != nil {
			return 0, errors.Wrap(err, "Config", "GetDuration", "parse config["+key+"]")
		}
		return d, nil
	}
	return 0, errors.Newf(errors.InvalidType, "failed to parse duration for %s", value.Debug(v))
}

// GetDurationOr is GetDuration with a fallback for missing keys.
func GetDurationOr(r Resolver, key string, fallback time.Duration) (time.Duration, error) {
	d, err := GetDuration(r, key)
	if errors.IsOneOf(err, errors.InvalidIndex) {
		return fallback, nil
	}
	return d, err
}

// GetFloat reads a Number, widening an Integer. TOML and YAML write 100
// and 100.0 differently; both are valid rates.
func GetFloat(r Resolver, key string) (float64, error) {
	v, err := r.Lookup(key)
	if err != nil {
		return 0, err
	}
	switch t := v.(type) {
	case value.Number:
		return float64(t), nil
	case value.Integer:
		return float64(t), nil
	}
	return 0, errors.Newf(errors.InvalidType, "failed to parse float64 for %s", value.Debug(v))
}

// GetFloatOr is GetFloat with a fallback for missing keys.
func GetFloatOr(r Resolver, key string, fallback float64) (float64, error) {
	f, err := GetFloat(r, key)
	if errors.IsOneOf(err, errors.InvalidIndex) {
		return fallback, nil
	}
	return f, err
}

// GetStrings reads either a single string or an array of strings.
func GetStrings(r Resolver, key string) ([]string, error) {
	v, err := r.Lookup(key)
	if err != nil {
		return nil, err
	}
	if s, ok := v.(value.String); ok {
		return []string{string(s)}, nil
	}
	out, err := value.AsSlice[string](v)
	if err != nil {
		return nil, errors.Wrap(err, "Config", "GetStrings", "coerce config["+key+"]")
	}
	return out, nil
}

func asTable(raw any) (map[string]any, bool) {
	switch t := raw.(type) {
	case Table:
		return t, true
	case map[string]any:
		return t, true
	}
	return nil, false
}

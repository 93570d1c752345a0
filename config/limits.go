package config

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/c360/bee/errors"
)

// Limits applied to anything read from disk or the environment.
const (
	maxFileBytes = 10 << 20
	maxDepth     = 100
	maxEnvBytes  = 10000
	maxPathBytes = 4096
)

// checkPath rejects empty, overlong and unknown-extension paths. Relative
// paths must stay below the working directory.
func checkPath(path string) error {
	switch {
	case path == "":
		return errors.New(errors.InvalidPath, "empty config path")
	case len(path) > maxPathBytes:
		return errors.Newf(errors.InvalidPath, "config path longer than %d bytes", maxPathBytes)
	}
	if !filepath.IsAbs(path) {
		clean := filepath.Clean(path)
		if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
			return errors.Newf(errors.InvalidPath, "config path %s leaves the working directory", path)
		}
	}
	_, err := FormatFromPath(path)
	return err
}

// readLimited reads a regular file of at most maxFileBytes.
func readLimited(path string) ([]byte, error) {
	if err := checkPath(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "Config", "readLimited", "open "+path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "Config", "readLimited", "stat "+path)
	}
	if !info.Mode().IsRegular() {
		return nil, errors.Newf(errors.InvalidPath, "%s is not a regular file", path)
	}
	data, err := io.ReadAll(io.LimitReader(f, maxFileBytes+1))
	if err != nil {
		return nil, errors.Wrap(err, "Config", "readLimited", "read "+path)
	}
	if len(data) > maxFileBytes {
		return nil, errors.Newf(errors.IOInvalidData, "%s exceeds %d bytes", path, maxFileBytes)
	}
	return data, nil
}

// checkEnv rejects values no config key could reasonably hold.
func checkEnv(name, val string) error {
	if len(val) > maxEnvBytes {
		return errors.Newf(errors.InvalidParam, "environment variable %s exceeds %d bytes", name, maxEnvBytes)
	}
	if strings.IndexByte(val, 0) >= 0 {
		return errors.Newf(errors.InvalidParam, "environment variable %s contains a NUL byte", name)
	}
	return nil
}

// checkJSONDepth walks the token stream so a hostile document is refused
// before it is materialized.
func checkJSONDepth(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	depth := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Newf(errors.IOInvalidData, "config file is not valid JSON - %v", err)
		}
		switch tok {
		case json.Delim('{'), json.Delim('['):
			if depth++; depth > maxDepth {
				return errors.Newf(errors.IOInvalidData, "config nesting deeper than %d", maxDepth)
			}
		case json.Delim('}'), json.Delim(']'):
			depth--
		}
	}
}

// checkDepth bounds the nesting of a decoded document of any format.
func checkDepth(v any, depth int) error {
	if depth > maxDepth {
		return errors.Newf(errors.IOInvalidData, "config nesting deeper than %d", maxDepth)
	}
	var children []any
	switch t := v.(type) {
	case map[string]any:
		for _, c := range t {
			children = append(children, c)
		}
	case Table:
		for _, c := range t {
			children = append(children, c)
		}
	case []any:
		children = t
	}
	for _, c := range children {
		if err := checkDepth(c, depth+1); err != nil {
			return err
		}
	}
	return nil
}

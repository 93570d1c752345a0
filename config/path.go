package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/c360/bee/errors"
)

// Mode selects how FindPath anchors a relative configuration path.
type Mode int

const (
	// ModeDebug uses the path as given, relative to the process directory.
	ModeDebug Mode = iota
	// ModeTest anchors the path at the current working directory.
	ModeTest
	// ModeProduction anchors the path next to the executable.
	ModeProduction
)

func (m Mode) String() string {
	switch m {
	case ModeDebug:
		return "debug"
	case ModeTest:
		return "test"
	case ModeProduction:
		return "production"
	default:
		return "unknown"
	}
}

// ParseMode accepts test, debug, prod and production.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "":
		return ModeDebug, nil
	case "test":
		return ModeTest, nil
	case "prod", "production":
		return ModeProduction, nil
	}
	return ModeDebug, errors.Newf(errors.InvalidParam, "unknown mode %q", s)
}

// FindPath resolves name for mode. Absolute names are returned unchanged.
func FindPath(mode Mode, name string) (string, error) {
	if filepath.IsAbs(name) {
		return name, nil
	}

	switch mode {
	case ModeTest:
		cwd, err := os.Getwd()
		if err != nil {
			return "", errors.Wrap(err, "Config", "FindPath", "get working directory")
		}
		return filepath.Join(cwd, name), nil
	case ModeProduction:
		exe, err := os.Executable()
		if err != nil {
			return "", errors.WrapAs(errors.OSSystem, err, "Config", "FindPath", "locate executable")
		}
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		return filepath.Join(filepath.Dir(exe), name), nil
	default:
		return name, nil
	}
}

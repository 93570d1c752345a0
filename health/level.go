package health

import (
	"github.com/c360/bee/errors"
)

// Level orders health states from best to worst, so the worst of several
// is their maximum.
type Level uint8

const (
	Healthy Level = iota
	Degraded
	Unhealthy
)

var levelNames = [...]string{"healthy", "degraded", "unhealthy"}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}

// MarshalText writes the level name.
func (l Level) MarshalText() ([]byte, error) {
	if int(l) >= len(levelNames) {
		return nil, errors.Newf(errors.InvalidParam, "health level %d out of range", l)
	}
	return []byte(levelNames[l]), nil
}

// UnmarshalText accepts the names written by MarshalText.
func (l *Level) UnmarshalText(text []byte) error {
	for i, name := range levelNames {
		if string(text) == name {
			*l = Level(i)
			return nil
		}
	}
	return errors.Newf(errors.InvalidParam, "unknown health level %q", text)
}

// Worst returns the most severe of levels, or Healthy for none.
func Worst(levels ...Level) Level {
	worst := Healthy
	for _, l := range levels {
		if l > worst {
			worst = l
		}
	}
	return worst
}

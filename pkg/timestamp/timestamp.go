// Package timestamp handles event times as int64 Unix milliseconds.
//
// A value of 0 means "not set". Parse accepts the shapes that show up in
// event payloads: integer seconds or milliseconds, fractional seconds,
// RFC3339 text and numeric text.
//
//	now := timestamp.Now()
//	ms, err := timestamp.Parse(value.String("2023-01-01T12:00:00Z"))
//	display := timestamp.Format(ms)
package timestamp

import (
	"strconv"
	"time"

	"github.com/c360/bee/errors"
	"github.com/c360/bee/value"
)

// msThreshold separates seconds from milliseconds: 1e12 ms is 2001-09-09,
// while 1e12 s is tens of thousands of years away.
const msThreshold = 1e12

// maxMs is 3000-01-01T00:00:00Z.
const maxMs = 32503680000000

// Now returns the current time as Unix milliseconds.
func Now() int64 {
	return time.Now().UnixMilli()
}

// FromTime converts t, mapping the zero time to 0.
func FromTime(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// ToTime converts ms, mapping 0 to the zero time.
func ToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// Format renders ms as RFC3339 with millisecond precision, or "" for 0.
func Format(ms int64) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// Parse reads a timestamp out of v. Integers and numbers above 1e12 are
// milliseconds, smaller ones seconds. Nil parses as 0. Anything else is
// invalid-type.
func Parse(v value.Value) (int64, error) {
	switch t := v.(type) {
	case nil, value.Nil:
		return 0, nil
	case value.Integer:
		return fromNumber(float64(t), int64(t))
	case value.Number:
		return fromNumber(float64(t), int64(t))
	case value.String:
		s := string(t)
		if s == "" {
			return 0, nil
		}
		if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return FromTime(parsed), Validate(FromTime(parsed))
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return fromNumber(float64(n), n)
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return fromNumber(f, int64(f))
		}
	}
	return 0, errors.Newf(errors.InvalidType, "failed to parse timestamp for %s", value.Debug(v))
}

func fromNumber(f float64, n int64) (int64, error) {
	var ms int64
	switch {
	case f == 0:
		return 0, nil
	case f > msThreshold:
		ms = n
	default:
		ms = int64(f * 1000)
	}
	return ms, Validate(ms)
}

// Since returns the time elapsed since ms, or 0 when ms is unset.
func Since(ms int64) time.Duration {
	if ms == 0 {
		return 0
	}
	return time.Since(time.UnixMilli(ms))
}

// Validate rejects negative timestamps and ones after the year 3000.
func Validate(ms int64) error {
	if ms < 0 {
		return errors.Newf(errors.InvalidParam, "timestamp cannot be negative: %d", ms)
	}
	if ms > maxMs {
		return errors.Newf(errors.InvalidParam, "timestamp too far in future: %d", ms)
	}
	return nil
}

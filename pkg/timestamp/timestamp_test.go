package timestamp

import (
	"testing"
	"time"

	"github.com/c360/bee/errors"
	"github.com/c360/bee/value"
)

func TestParse(t *testing.T) {
	const want = int64(1672574400000) // 2023-01-01T12:00:00Z

	tests := []struct {
		name  string
		input value.Value
		want  int64
	}{
		{"milliseconds", value.Integer(want), want},
		{"seconds", value.Integer(want / 1000), want},
		{"fractional seconds", value.Number(1672574400.5), want + 500},
		{"rfc3339", value.String("2023-01-01T12:00:00Z"), want},
		{"rfc3339 nano", value.String("2023-01-01T12:00:00.250Z"), want + 250},
		{"numeric text", value.String("1672574400"), want},
		{"float text", value.String("1672574400.5"), want + 500},
		{"empty", value.String(""), 0},
		{"nil", value.Nil{}, 0},
		{"zero", value.Integer(0), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%s) error: %v", value.Debug(tt.input), err)
			}
			if got != tt.want {
				t.Errorf("Parse(%s) = %d, want %d", value.Debug(tt.input), got, tt.want)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, v := range []value.Value{value.String("yesterday"), value.Boolean(true), value.Array{}} {
		if _, err := Parse(v); !errors.IsOneOf(err, errors.InvalidType) {
			t.Errorf("Parse(%s) error = %v, want invalid-type", value.Debug(v), err)
		}
	}
	if _, err := Parse(value.Integer(-5)); !errors.IsOneOf(err, errors.InvalidParam) {
		t.Errorf("negative timestamp error = %v, want invalid-param", err)
	}
}

func TestFormat(t *testing.T) {
	if got := Format(1672574400250); got != "2023-01-01T12:00:00.250Z" {
		t.Errorf("Format = %q", got)
	}
	if got := Format(0); got != "" {
		t.Errorf("Format(0) = %q, want empty", got)
	}
}

func TestTimeConversions(t *testing.T) {
	now := time.Now()
	ms := FromTime(now)
	if diff := now.Sub(ToTime(ms)).Abs(); diff >= time.Millisecond {
		t.Errorf("round trip lost %v", diff)
	}
	if FromTime(time.Time{}) != 0 || !ToTime(0).IsZero() {
		t.Error("zero values must map to each other")
	}
	if Since(0) != 0 {
		t.Error("Since(0) must be 0")
	}
	if Since(Now()-1000) < time.Second {
		t.Error("Since must measure elapsed time")
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(Now()); err != nil {
		t.Errorf("Validate(now) = %v", err)
	}
	if err := Validate(maxMs + 1); err == nil {
		t.Error("Validate must reject the far future")
	}
}

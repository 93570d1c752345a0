package filter

import (
	"strings"

	"github.com/c360/bee/errors"
	"github.com/c360/bee/event"
	"github.com/c360/bee/value"
)

// Operator is a rule comparison.
type Operator string

// Supported operators
const (
	OpEq       Operator = "eq"
	OpNe       Operator = "ne"
	OpGt       Operator = "gt"
	OpGte      Operator = "gte"
	OpLt       Operator = "lt"
	OpLte      Operator = "lte"
	OpContains Operator = "contains"
	OpExists   Operator = "exists"
	OpMissing  Operator = "missing"
)

func (o Operator) valid() bool {
	switch o {
	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpContains, OpExists, OpMissing:
		return true
	}
	return false
}

func (o Operator) unary() bool { return o == OpExists || o == OpMissing }

// Rule tests one event field.
type Rule struct {
	Field    string
	Operator Operator
	Value    value.Value
}

// ParseRule reads "<field> <op> <value>", or "<field> exists|missing". The
// value is typed with value.Parse, so "100" compares as an Integer and
// "'100'" as a String.
func ParseRule(text string) (Rule, error) {
	parts := strings.Fields(text)
	if len(parts) < 2 {
		return Rule{}, errors.Newf(errors.InvalidParam, "filter rule %q needs a field and an operator", text)
	}
	r := Rule{Field: parts[0], Operator: Operator(strings.ToLower(parts[1]))}
	if !r.Operator.valid() {
		return Rule{}, errors.Newf(errors.InvalidParam, "filter rule %q: unknown operator %q", text, parts[1])
	}
	if r.Operator.unary() {
		if len(parts) != 2 {
			return Rule{}, errors.Newf(errors.InvalidParam, "filter rule %q: %s takes no value", text, r.Operator)
		}
		return r, nil
	}
	if len(parts) < 3 {
		return Rule{}, errors.Newf(errors.InvalidParam, "filter rule %q: %s needs a value", text, r.Operator)
	}
	// The value is the remaining text, so quoted values may contain spaces.
	rest := strings.TrimSpace(text)
	rest = strings.TrimSpace(rest[len(parts[0]):])
	rest = strings.TrimSpace(rest[len(parts[1]):])
	r.Value = value.Parse(rest)
	return r, nil
}

// Match reports whether e satisfies the rule. A missing field matches only
// the missing operator.
func (r Rule) Match(e event.Event) bool {
	v, ok := e.Get(r.Field)
	switch r.Operator {
	case OpExists:
		return ok
	case OpMissing:
		return !ok
	}
	if !ok {
		return false
	}

	switch r.Operator {
	case OpEq:
		return equal(v, r.Value)
	case OpNe:
		return !equal(v, r.Value)
	case OpContains:
		return contains(v, r.Value)
	}

	c, ok := compare(v, r.Value)
	if !ok {
		return false
	}
	switch r.Operator {
	case OpGt:
		return c > 0
	case OpGte:
		return c >= 0
	case OpLt:
		return c < 0
	case OpLte:
		return c <= 0
	}
	return false
}

// equal compares numbers by value across Integer and Number, and
// everything else by its string form, case-insensitively for hex-looking
// text so checksummed addresses match lower-case rules.
func equal(a, b value.Value) bool {
	if c, ok := compare(a, b); ok {
		return c == 0
	}
	as, bs := a.String(), b.String()
	if strings.HasPrefix(as, "0x") || strings.HasPrefix(as, "0X") {
		return strings.EqualFold(as, bs)
	}
	return as == bs
}

func contains(field, needle value.Value) bool {
	if arr, ok := field.(value.Array); ok {
		for _, elem := range arr {
			if equal(elem, needle) {
				return true
			}
		}
		return false
	}
	return strings.Contains(field.String(), needle.String())
}

// compare orders two numeric values. ok is false unless both are numeric.
func compare(a, b value.Value) (int, bool) {
	x, ok := number(a)
	if !ok {
		return 0, false
	}
	y, ok := number(b)
	if !ok {
		return 0, false
	}
	switch {
	case x < y:
		return -1, true
	case x > y:
		return 1, true
	}
	return 0, true
}

func number(v value.Value) (float64, bool) {
	switch t := v.(type) {
	case value.Integer:
		return float64(t), true
	case value.Number:
		return float64(t), true
	}
	return 0, false
}

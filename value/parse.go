package value

import (
	"strconv"
	"strings"
)

// Parse guesses a Value from free text. Rules are tried in order and the
// first match wins:
//
//  1. text containing ' becomes a String with every ' removed; double
//     quotes are kept, so JSON text survives
//  2. text containing "true" or "false" becomes a Boolean when it is exactly
//     one of them, otherwise a String
//  3. text containing "." becomes a Number when it parses as a float,
//     otherwise a String
//  4. null, NULL, Null, nil and Nil become Nil
//  5. anything else becomes an Integer when it parses, otherwise a String
//
// The order matters: "10.0" is a Number because rule 3 runs before rule 5,
// and "10.false" is a String because rule 2 claims it first.
func Parse(text string) Value {
	switch {
	case strings.Contains(text, "'"):
		return String(strings.ReplaceAll(text, "'", ""))

	case strings.Contains(text, "true") || strings.Contains(text, "false"):
		switch text {
		case "true":
			return Boolean(true)
		case "false":
			return Boolean(false)
		}
		return String(text)

	case strings.Contains(text, "."):
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return Number(f)
		}
		return String(text)

	case text == "null" || text == "NULL" || text == "Null" || text == "nil" || text == "Nil":
		return Nil{}
	}

	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return Integer(n)
	}
	return String(text)
}

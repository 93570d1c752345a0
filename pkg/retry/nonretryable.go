package retry

import "errors"

type nonRetryable struct{ err error }

func (e nonRetryable) Error() string { return "non-retryable: " + e.err.Error() }
func (e nonRetryable) Unwrap() error { return e.err }

// NonRetryable marks err so Do returns it without another attempt.
func NonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return nonRetryable{err}
}

// IsNonRetryable reports whether err, or anything it wraps, was marked by
// NonRetryable.
func IsNonRetryable(err error) bool {
	var nr nonRetryable
	return errors.As(err, &nr)
}

package errors

import (
	"errors"
	"fmt"
	"time"

	"github.com/c360/bee/pkg/retry"
)

// Error pairs a packed Code with a message. It is immutable and has no cause
// chain: wrapping re-codes and flattens the wrapped text into the message.
type Error struct {
	code Code
	msg  string
}

// New creates an Error. Construction never fails.
func New(code Code, msg string) *Error {
	return &Error{code: code, msg: msg}
}

// Newf creates an Error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{code: code, msg: fmt.Sprintf(format, args...)}
}

// Make packs base and sub and creates an Error in one step.
func Make(base int32, sub uint8, msg string) *Error {
	return New(MakeCode(base, sub), msg)
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.code, e.msg)
}

// Code returns the packed code.
func (e *Error) Code() Code { return e.code }

// Message returns the message without the code prefix.
func (e *Error) Message() string { return e.msg }

// Decode returns (base, sub).
func (e *Error) Decode() (int32, uint8) { return e.code.Decode() }

// IsFamily reports whether the error belongs to the family base.
func (e *Error) IsFamily(base int32) bool {
	return e.code.Base() == base
}

// IsOneOf reports whether the error carries any of the given codes.
func (e *Error) IsOneOf(codes ...Code) bool {
	for _, c := range codes {
		if e.code == c {
			return true
		}
	}
	return false
}

// Is matches any *Error target with the same code, so sentinels declared
// with New work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.code == e.code
}

// CodeOf extracts the code of err. Foreign errors are converted first.
func CodeOf(err error) Code {
	if err == nil {
		return 0
	}
	return Convert(err).code
}

// IsFamily reports whether err (after conversion) belongs to base.
func IsFamily(err error, base int32) bool {
	return err != nil && Convert(err).IsFamily(base)
}

// IsOneOf reports whether err (after conversion) carries one of codes.
func IsOneOf(err error, codes ...Code) bool {
	return err != nil && Convert(err).IsOneOf(codes...)
}

func IsInternal(err error) bool { return IsFamily(err, BaseInternal) }
func IsInvalid(err error) bool  { return IsFamily(err, BaseInvalid) }
func IsChannel(err error) bool  { return IsFamily(err, BaseChannel) }
func IsIO(err error) bool       { return IsFamily(err, BaseIO) }
func IsOther(err error) bool    { return IsFamily(err, BaseOther) }
func IsOS(err error) bool       { return IsFamily(err, BaseOS) }
func IsWeb3(err error) bool     { return IsFamily(err, BaseWeb3) }
func IsSQL(err error) bool      { return IsFamily(err, BaseSQL) }

// IsTimeout reports an I/O timeout.
func IsTimeout(err error) bool { return IsOneOf(err, IOTimedOut) }

// IsConnection reports a dropped or unusable connection.
func IsConnection(err error) bool {
	return IsOneOf(err,
		IOConnAborted, IOConnRefused, IOConnReset, IOInterrupted,
		IONotConnected, IOUnexpectedEOF, IOWriteZero, IOWouldBlock)
}

// IsAddrInUse reports a bind failure.
func IsAddrInUse(err error) bool {
	return IsOneOf(err, IOAddrInUse, IOAddrNotAvailable)
}

func IsHostUnreachable(err error) bool { return IsOneOf(err, IOHostUnreachable) }
func IsConnectionLimit(err error) bool { return IsOneOf(err, SQLConnectionLimit) }
func IsInvalidAuth(err error) bool     { return IsOneOf(err, InvalidAuth) }
func IsInvalidDatabase(err error) bool { return IsOneOf(err, InvalidDatabase) }

// Is and As forward to the standard library so callers need only this
// package.
func Is(err, target error) bool { return errors.Is(err, target) }
func As(err error, target any) bool { return errors.As(err, target) }

// Wrap re-codes err with context following the pattern
// "component.method: action failed: <text>". The code of err is kept.
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	c := Convert(err)
	return WrapAs(c.code, c, component, method, action)
}

// WrapAs is Wrap with an explicit code.
func WrapAs(code Code, err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return Newf(code, "%s.%s: %s failed: %s", component, method, action, Convert(err).msg)
}

// ErrorClass groups codes by how a caller should react to them.
type ErrorClass int

const (
	// ErrorTransient represents temporary errors that may be retried
	ErrorTransient ErrorClass = iota
	// ErrorInvalid represents errors due to invalid input or configuration
	ErrorInvalid
	// ErrorFatal represents unrecoverable errors that should stop processing
	ErrorFatal
)

// String returns the string representation of ErrorClass
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorTransient:
		return "transient"
	case ErrorInvalid:
		return "invalid"
	case ErrorFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Classify returns the class of err based on its code.
func Classify(err error) ErrorClass {
	if err == nil {
		return ErrorTransient
	}
	e := Convert(err)
	switch {
	case e.IsOneOf(
		IOConnRefused, IOConnReset, IOConnAborted, IONotConnected,
		IOTimedOut, IOInterrupted, IOWouldBlock, IOUnexpectedEOF,
		IOWriteZero, IOBrokenPipe, IOHostUnreachable,
		ChannelSend, ChannelRecv, SQLConnectionLimit):
		return ErrorTransient
	case e.IsFamily(BaseInvalid), e.IsOneOf(IOInvalidInput, IOInvalidData, Web3Decode):
		return ErrorInvalid
	default:
		return ErrorFatal
	}
}

func IsTransient(err error) bool { return err != nil && Classify(err) == ErrorTransient }
func IsFatal(err error) bool     { return err != nil && Classify(err) == ErrorFatal }

// RetryConfig defines configuration for retry operations
type RetryConfig struct {
	MaxRetries     int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	BackoffFactor  float64
	RetryableCodes []Code
}

// DefaultRetryConfig returns a sensible default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
	}
}

// ShouldRetry reports whether attempt (zero-based) may be followed by
// another one. Only transient errors are retried; RetryableCodes narrows the
// set further when non-empty.
func (rc RetryConfig) ShouldRetry(err error, attempt int) bool {
	if err == nil || attempt >= rc.MaxRetries {
		return false
	}
	if !IsTransient(err) {
		return false
	}
	if len(rc.RetryableCodes) > 0 {
		return IsOneOf(err, rc.RetryableCodes...)
	}
	return true
}

// ToRetryConfig converts to the retry package's Config. MaxRetries counts
// additional attempts, so one is added for the total. Only errors
// ShouldRetry accepts are retried.
func (rc RetryConfig) ToRetryConfig() retry.Config {
	return retry.Config{
		MaxAttempts:  rc.MaxRetries + 1,
		InitialDelay: rc.InitialDelay,
		MaxDelay:     rc.MaxDelay,
		Multiplier:   rc.BackoffFactor,
		AddJitter:    true,
		Retryable: func(err error) bool {
			return rc.ShouldRetry(err, 0)
		},
	}
}

// BackoffDelay returns the delay before retry attempt.
func (rc RetryConfig) BackoffDelay(attempt int) time.Duration {
	delay := rc.InitialDelay
	for i := 0; i < attempt; i++ {
		delay = time.Duration(float64(delay) * rc.BackoffFactor)
		if delay > rc.MaxDelay {
			return rc.MaxDelay
		}
	}
	return delay
}

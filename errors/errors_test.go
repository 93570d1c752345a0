package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestMakeCode_Decode(t *testing.T) {
	tests := []struct {
		base int32
		sub  uint8
		want Code
	}{
		{BaseInvalid, 0x01, 0x0201},
		{BaseIO, 0x13, 0x0413},
		{BaseSQL, 0x01, 0x0A01},
		{BaseInternal, 0x00, 0x0100},
	}

	for _, test := range tests {
		t.Run(test.want.String(), func(t *testing.T) {
			code := MakeCode(test.base, test.sub)
			if code != test.want {
				t.Fatalf("expected %s, got %s", test.want, code)
			}
			base, sub := code.Decode()
			if base != test.base || sub != test.sub {
				t.Errorf("expected (%#x, %#x), got (%#x, %#x)", test.base, test.sub, base, sub)
			}
		})
	}
}

func TestMake_RoundTrip(t *testing.T) {
	err := Make(0x02, 0x01, "bad type")
	base, sub := err.Decode()
	if base != 0x02 || sub != 0x01 {
		t.Fatalf("expected (0x02, 0x01), got (%#x, %#x)", base, sub)
	}
	if err.Code() != InvalidType {
		t.Errorf("expected InvalidType, got %s", err.Code())
	}
	if err.Message() != "bad type" {
		t.Errorf("unexpected message %q", err.Message())
	}
	if err.Error() != "[0x0201] bad type" {
		t.Errorf("unexpected text %q", err.Error())
	}
}

func TestSubCodesUniqueWithinFamily(t *testing.T) {
	all := []Code{
		InvalidType, InvalidUTF8, InvalidPath, InvalidIndex, InvalidParam,
		InvalidNotSupport, InvalidAuth, InvalidDatabase, InvalidURL, InvalidUTF16,
		ChannelSend, ChannelRecv, ChannelClose,
		IONotFound, IOPermissionDenied, IOConnRefused, IOConnReset, IOConnAborted,
		IONotConnected, IOAddrInUse, IOAddrNotAvailable, IOBrokenPipe,
		IOAlreadyExists, IOInvalidInput, IOInvalidData, IOTimedOut, IOWriteZero,
		IOUnexpectedEOF, IOInterrupted, IOWouldBlock, IOHostUnreachable,
		IOUnsupported, IOOutOfMemory,
		OSSystem, Web3Contract, Web3Decode, SQLConnectionLimit,
	}
	seen := make(map[Code]bool, len(all))
	for _, c := range all {
		if seen[c] {
			t.Errorf("duplicate code %s", c)
		}
		seen[c] = true
		if c.Base() == 0 {
			t.Errorf("code %s has zero base", c)
		}
	}
}

func TestError_FamilyAndOneOf(t *testing.T) {
	err := New(IOTimedOut, "read")

	if !err.IsFamily(BaseIO) {
		t.Error("expected I/O family")
	}
	if err.IsFamily(BaseInvalid) {
		t.Error("unexpected invalid family")
	}
	if !err.IsOneOf(IOConnReset, IOTimedOut) {
		t.Error("expected IsOneOf match")
	}
	if err.IsOneOf() {
		t.Error("empty code list must not match")
	}
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{"timeout", New(IOTimedOut, ""), IsTimeout, true},
		{"connection reset", New(IOConnReset, ""), IsConnection, true},
		{"connection eof", New(IOUnexpectedEOF, ""), IsConnection, true},
		{"not connection", New(IONotFound, ""), IsConnection, false},
		{"addr in use", New(IOAddrInUse, ""), IsAddrInUse, true},
		{"addr not available", New(IOAddrNotAvailable, ""), IsAddrInUse, true},
		{"channel send", New(ChannelSend, ""), IsChannel, true},
		{"channel family", New(Channel, ""), IsChannel, true},
		{"sql limit", New(SQLConnectionLimit, ""), IsConnectionLimit, true},
		{"sql family", New(SQLConnectionLimit, ""), IsSQL, true},
		{"auth", New(InvalidAuth, ""), IsInvalidAuth, true},
		{"database", New(InvalidDatabase, ""), IsInvalidDatabase, true},
		{"host unreachable", New(IOHostUnreachable, ""), IsHostUnreachable, true},
		{"os", New(OSSystem, ""), IsOS, true},
		{"web3", New(Web3Contract, ""), IsWeb3, true},
		{"internal", New(Internal, ""), IsInternal, true},
		{"other", New(Other, ""), IsOther, true},
		{"nil", nil, IsIO, false},
		{"wrapped foreign", fmt.Errorf("ctx: %w", New(IONotFound, "x")), IsIO, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := test.check(test.err); got != test.want {
				t.Errorf("expected %v, got %v for %v", test.want, got, test.err)
			}
		})
	}
}

func TestStdlibIsMatchesByCode(t *testing.T) {
	sentinel := New(ChannelClose, "channel closed")
	err := fmt.Errorf("send: %w", New(ChannelClose, "other text"))

	if !errors.Is(err, sentinel) {
		t.Error("expected errors.Is to match by code")
	}
	if errors.Is(New(ChannelSend, "x"), sentinel) {
		t.Error("different codes must not match")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "C", "M", "a") != nil {
		t.Fatal("wrapping nil must return nil")
	}

	err := Wrap(New(IOConnRefused, "dial tcp"), "Source", "Run", "connect")
	if !IsOneOf(err, IOConnRefused) {
		t.Errorf("expected code to be kept, got %s", CodeOf(err))
	}
	want := "Source.Run: connect failed: dial tcp"
	var e *Error
	if !errors.As(err, &e) || e.Message() != want {
		t.Errorf("expected message %q, got %v", want, err)
	}

	foreign := Wrap(errors.New("boom"), "Sink", "Write", "write")
	if !IsOther(foreign) {
		t.Errorf("foreign errors convert to other, got %s", CodeOf(foreign))
	}
	if !strings.Contains(foreign.Error(), "boom") {
		t.Errorf("message must be flattened, got %q", foreign.Error())
	}

	recoded := WrapAs(InvalidParam, errors.New("negative"), "Config", "Validate", "check")
	if CodeOf(recoded) != InvalidParam {
		t.Errorf("expected InvalidParam, got %s", CodeOf(recoded))
	}
}

func TestErrorClass_String(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected string
	}{
		{ErrorTransient, "transient"},
		{ErrorInvalid, "invalid"},
		{ErrorFatal, "fatal"},
		{ErrorClass(999), "unknown"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			if result := test.class.String(); result != test.expected {
				t.Errorf("expected %s, got %s", test.expected, result)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorClass
	}{
		{"nil error", nil, ErrorTransient},
		{"connection refused", New(IOConnRefused, ""), ErrorTransient},
		{"timeout", New(IOTimedOut, ""), ErrorTransient},
		{"channel send", New(ChannelSend, ""), ErrorTransient},
		{"invalid type", New(InvalidType, ""), ErrorInvalid},
		{"invalid data", New(IOInvalidData, ""), ErrorInvalid},
		{"not found", New(IONotFound, ""), ErrorFatal},
		{"channel closed", New(ChannelClose, ""), ErrorFatal},
		{"unknown error", fmt.Errorf("unknown error"), ErrorFatal},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if result := Classify(test.err); result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestRetryConfig_ShouldRetry(t *testing.T) {
	config := DefaultRetryConfig()

	tests := []struct {
		name     string
		err      error
		attempt  int
		expected bool
	}{
		{"nil error", nil, 0, false},
		{"max retries exceeded", New(IOTimedOut, ""), 3, false},
		{"transient error within limit", New(IOTimedOut, ""), 1, true},
		{"fatal error", New(OSSystem, ""), 1, false},
		{"invalid error", New(InvalidParam, ""), 1, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := config.ShouldRetry(test.err, test.attempt)
			if result != test.expected {
				t.Errorf("expected %v, got %v for error: %v, attempt: %d",
					test.expected, result, test.err, test.attempt)
			}
		})
	}
}

func TestRetryConfig_ShouldRetry_WithSpecificCodes(t *testing.T) {
	config := RetryConfig{
		MaxRetries:     3,
		InitialDelay:   100 * time.Millisecond,
		BackoffFactor:  2.0,
		RetryableCodes: []Code{IOConnRefused},
	}

	if !config.ShouldRetry(New(IOConnRefused, ""), 1) {
		t.Error("should retry connection refused")
	}
	if config.ShouldRetry(New(IOConnReset, ""), 1) {
		t.Error("should not retry connection reset when not in retryable list")
	}
}

func TestRetryConfig_BackoffDelay(t *testing.T) {
	config := RetryConfig{
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      1 * time.Second,
		BackoffFactor: 2.0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{4, 1 * time.Second},
	}

	for _, test := range tests {
		t.Run(fmt.Sprintf("attempt_%d", test.attempt), func(t *testing.T) {
			if result := config.BackoffDelay(test.attempt); result != test.expected {
				t.Errorf("expected %v, got %v", test.expected, result)
			}
		})
	}
}

func TestRetryConfig_ToRetryConfig(t *testing.T) {
	rc := RetryConfig{
		MaxRetries:    5,
		InitialDelay:  200 * time.Millisecond,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 1.5,
	}.ToRetryConfig()

	if rc.MaxAttempts != 6 {
		t.Errorf("expected MaxAttempts 6, got %d", rc.MaxAttempts)
	}
	if rc.Multiplier != 1.5 || !rc.AddJitter {
		t.Errorf("unexpected conversion %+v", rc)
	}
	if rc.Retryable == nil || !rc.Retryable(New(IOConnReset, "reset")) {
		t.Error("expected connection reset to be retryable")
	}
	if rc.Retryable(New(InvalidParam, "bad")) {
		t.Error("expected invalid param not to be retryable")
	}
}

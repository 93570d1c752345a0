package errors

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strconv"
	"syscall"
	"time"
	"unicode/utf16"
	"unicode/utf8"
)

// IOKind classifies a platform I/O failure.
type IOKind int

const (
	KindOther IOKind = iota
	KindNotFound
	KindPermissionDenied
	KindConnRefused
	KindConnReset
	KindConnAborted
	KindNotConnected
	KindAddrInUse
	KindAddrNotAvailable
	KindBrokenPipe
	KindAlreadyExists
	KindInvalidInput
	KindInvalidData
	KindTimedOut
	KindWriteZero
	KindUnexpectedEOF
	KindInterrupted
	KindWouldBlock
	KindHostUnreachable
	KindUnsupported
	KindOutOfMemory
)

// KindOf inspects err and returns the matching IOKind, or KindOther.
// Errno checks run before the generic timeout check because EAGAIN also
// reports itself as a timeout.
func KindOf(err error) IOKind {
	switch {
	case err == nil:
		return KindOther
	case errors.Is(err, syscall.ECONNREFUSED):
		return KindConnRefused
	case errors.Is(err, syscall.ECONNRESET):
		return KindConnReset
	case errors.Is(err, syscall.ECONNABORTED):
		return KindConnAborted
	case errors.Is(err, syscall.ENOTCONN), errors.Is(err, net.ErrClosed), errors.Is(err, fs.ErrClosed):
		return KindNotConnected
	case errors.Is(err, syscall.EADDRINUSE):
		return KindAddrInUse
	case errors.Is(err, syscall.EADDRNOTAVAIL):
		return KindAddrNotAvailable
	case errors.Is(err, syscall.EPIPE):
		return KindBrokenPipe
	case errors.Is(err, syscall.EHOSTUNREACH), errors.Is(err, syscall.ENETUNREACH):
		return KindHostUnreachable
	case errors.Is(err, syscall.EINTR):
		return KindInterrupted
	case errors.Is(err, syscall.EAGAIN):
		return KindWouldBlock
	case errors.Is(err, syscall.ENOMEM):
		return KindOutOfMemory
	case errors.Is(err, syscall.ENOTSUP), errors.Is(err, syscall.EOPNOTSUPP), errors.Is(err, errors.ErrUnsupported):
		return KindUnsupported
	case errors.Is(err, fs.ErrNotExist):
		return KindNotFound
	case errors.Is(err, fs.ErrPermission):
		return KindPermissionDenied
	case errors.Is(err, fs.ErrExist):
		return KindAlreadyExists
	case errors.Is(err, fs.ErrInvalid), errors.Is(err, syscall.EINVAL):
		return KindInvalidInput
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		return KindUnexpectedEOF
	case errors.Is(err, io.ErrShortWrite):
		return KindWriteZero
	case errors.Is(err, os.ErrDeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return KindTimedOut
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimedOut
	}
	return KindOther
}

// FromIO maps an I/O failure to its code by kind. Unknown kinds fall back to
// the generic I/O code.
func FromIO(err error) *Error {
	if err == nil {
		return nil
	}
	var code Code
	switch KindOf(err) {
	case KindNotFound:
		code = IONotFound
	case KindPermissionDenied:
		code = IOPermissionDenied
	case KindConnRefused:
		code = IOConnRefused
	case KindConnReset:
		code = IOConnReset
	case KindConnAborted:
		code = IOConnAborted
	case KindNotConnected:
		code = IONotConnected
	case KindAddrInUse:
		code = IOAddrInUse
	case KindAddrNotAvailable:
		code = IOAddrNotAvailable
	case KindBrokenPipe:
		code = IOBrokenPipe
	case KindAlreadyExists:
		code = IOAlreadyExists
	case KindInvalidInput:
		code = IOInvalidInput
	case KindInvalidData:
		code = IOInvalidData
	case KindTimedOut:
		code = IOTimedOut
	case KindWriteZero:
		code = IOWriteZero
	case KindUnexpectedEOF:
		code = IOUnexpectedEOF
	case KindInterrupted:
		code = IOInterrupted
	case KindWouldBlock:
		code = IOWouldBlock
	case KindHostUnreachable:
		code = IOHostUnreachable
	case KindUnsupported:
		code = IOUnsupported
	case KindOutOfMemory:
		code = IOOutOfMemory
	default:
		code = IO
	}
	return New(code, err.Error())
}

// Convert maps any error onto the taxonomy. The mapping is fixed per source
// type; an *Error is returned unchanged and nil stays nil.
func Convert(err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, context.Canceled) {
		return New(IOInterrupted, err.Error())
	}

	var numErr *strconv.NumError
	if errors.As(err, &numErr) {
		return New(InvalidType, err.Error())
	}
	var timeErr *time.ParseError
	if errors.As(err, &timeErr) {
		return New(InvalidType, err.Error())
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Op == "parse" {
		return New(InvalidURL, err.Error())
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return New(IOInvalidData, err.Error())
	}

	if KindOf(err) != KindOther {
		return FromIO(err)
	}

	var opErr *net.OpError
	var pathErr *fs.PathError
	if errors.As(err, &opErr) || errors.As(err, &pathErr) {
		return New(IO, err.Error())
	}
	var sysErr *os.SyscallError
	var errno syscall.Errno
	if errors.As(err, &sysErr) || errors.As(err, &errno) {
		return New(OSSystem, err.Error())
	}

	return New(Other, err.Error())
}

// CheckUTF8 returns an invalid-utf8 error when b is not valid UTF-8.
func CheckUTF8(b []byte) error {
	if utf8.Valid(b) {
		return nil
	}
	return New(InvalidUTF8, "invalid utf-8 sequence")
}

// CheckUTF16 returns an invalid-utf16 error when s contains an unpaired
// surrogate.
func CheckUTF16(s []uint16) error {
	for i := 0; i < len(s); i++ {
		r := rune(s[i])
		if !utf16.IsSurrogate(r) {
			continue
		}
		if i+1 < len(s) && utf16.DecodeRune(r, rune(s[i+1])) != utf8.RuneError {
			i++
			continue
		}
		return Newf(InvalidUTF16, "unpaired surrogate at index %d", i)
	}
	return nil
}

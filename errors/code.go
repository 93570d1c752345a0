package errors

import "fmt"

// Code is a packed error code: the family base in the upper bits and the
// cause within that family in the low 8 bits.
type Code int32

// MakeCode packs a base and a sub-code into a Code.
func MakeCode(base int32, sub uint8) Code {
	return Code(base<<8 | int32(sub))
}

// Base returns the family part of the code.
func (c Code) Base() int32 {
	return int32(c) >> 8
}

// Sub returns the cause part of the code.
func (c Code) Sub() uint8 {
	return uint8(int32(c) & 0xFF)
}

// Decode splits the code into (base, sub).
func (c Code) Decode() (int32, uint8) {
	return c.Base(), c.Sub()
}

// String renders the code as a zero-padded hex number, e.g. 0x0401.
func (c Code) String() string {
	return fmt.Sprintf("%#06x", int32(c))
}

// Family bases.
const (
	BaseInternal int32 = 0x01
	BaseInvalid  int32 = 0x02
	BaseChannel  int32 = 0x03
	BaseIO       int32 = 0x04
	BaseOther    int32 = 0x05
	BaseOS       int32 = 0x08
	BaseWeb3     int32 = 0x09
	BaseSQL      int32 = 0x0A
)

// Generic family codes. Sub-code zero means "no specific cause".
var (
	Internal = MakeCode(BaseInternal, 0x00)
	Invalid  = MakeCode(BaseInvalid, 0x00)
	Channel  = MakeCode(BaseChannel, 0x00)
	IO       = MakeCode(BaseIO, 0x00)
	Other    = MakeCode(BaseOther, 0x00)
	OS       = MakeCode(BaseOS, 0x00)
	Web3     = MakeCode(BaseWeb3, 0x00)
	SQL      = MakeCode(BaseSQL, 0x00)
)

// Invalid-argument causes.
var (
	InvalidType       = MakeCode(BaseInvalid, 0x01)
	InvalidUTF8       = MakeCode(BaseInvalid, 0x02)
	InvalidPath       = MakeCode(BaseInvalid, 0x03)
	InvalidIndex      = MakeCode(BaseInvalid, 0x04)
	InvalidParam      = MakeCode(BaseInvalid, 0x05)
	InvalidNotSupport = MakeCode(BaseInvalid, 0x06)
	InvalidAuth       = MakeCode(BaseInvalid, 0x07)
	InvalidDatabase   = MakeCode(BaseInvalid, 0x08)
	InvalidURL        = MakeCode(BaseInvalid, 0x09)
	InvalidUTF16      = MakeCode(BaseInvalid, 0x10)
)

// Channel causes.
var (
	ChannelSend  = MakeCode(BaseChannel, 0x01)
	ChannelRecv  = MakeCode(BaseChannel, 0x02)
	ChannelClose = MakeCode(BaseChannel, 0x03)
)

// I/O causes. Gaps in the numbering are reserved.
var (
	IONotFound         = MakeCode(BaseIO, 0x01)
	IOPermissionDenied = MakeCode(BaseIO, 0x02)
	IOConnRefused      = MakeCode(BaseIO, 0x03)
	IOConnReset        = MakeCode(BaseIO, 0x04)
	IOConnAborted      = MakeCode(BaseIO, 0x05)
	IONotConnected     = MakeCode(BaseIO, 0x06)
	IOAddrInUse        = MakeCode(BaseIO, 0x07)
	IOAddrNotAvailable = MakeCode(BaseIO, 0x08)
	IOBrokenPipe       = MakeCode(BaseIO, 0x09)
	IOAlreadyExists    = MakeCode(BaseIO, 0x10)
	IOInvalidInput     = MakeCode(BaseIO, 0x11)
	IOInvalidData      = MakeCode(BaseIO, 0x12)
	IOTimedOut         = MakeCode(BaseIO, 0x13)
	IOWriteZero        = MakeCode(BaseIO, 0x14)
	IOUnexpectedEOF    = MakeCode(BaseIO, 0x16)
	IOInterrupted      = MakeCode(BaseIO, 0x17)
	IOWouldBlock       = MakeCode(BaseIO, 0x18)
	IOHostUnreachable  = MakeCode(BaseIO, 0x19)
	IOUnsupported      = MakeCode(BaseIO, 0x1A)
	IOOutOfMemory      = MakeCode(BaseIO, 0x1B)
)

// OS, domain and SQL causes.
var (
	OSSystem = MakeCode(BaseOS, 0x01)

	Web3Contract = MakeCode(BaseWeb3, 0x01)
	Web3Decode   = MakeCode(BaseWeb3, 0x02)

	SQLConnectionLimit = MakeCode(BaseSQL, 0x01)
)

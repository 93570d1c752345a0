package buffer

import (
	"strings"

	"github.com/c360/bee/errors"
)

// OverflowPolicy defines how a Send behaves when the channel is full.
type OverflowPolicy int

const (
	// Block makes Send wait until a consumer frees a slot. This is the
	// default and the only policy that never loses items.
	Block OverflowPolicy = iota

	// DropNewest discards the item being sent.
	DropNewest

	// DropOldest discards the oldest buffered item to make room.
	DropOldest
)

// String returns the configuration name of the policy.
func (p OverflowPolicy) String() string {
	switch p {
	case Block:
		return "block"
	case DropNewest:
		return "drop_newest"
	case DropOldest:
		return "drop_oldest"
	default:
		return "unknown"
	}
}

// ParseOverflowPolicy reads a channel.overflow setting. Empty means Block.
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "block":
		return Block, nil
	case "drop_newest":
		return DropNewest, nil
	case "drop_oldest":
		return DropOldest, nil
	}
	return Block, errors.Newf(errors.InvalidParam, "unknown overflow policy %q", s)
}

// DropCallback is called with every item an overflow policy discards.
type DropCallback[T any] func(item T)

// Sentinel errors. They match with errors.Is by code.
var (
	// ErrClosed is returned by Recv after the last item has been drained,
	// and by Send on a closed Sender.
	ErrClosed = errors.New(errors.ChannelClose, "channel closed")

	// ErrSendCancelled is returned when the context ends while Send waits
	// for space.
	ErrSendCancelled = errors.New(errors.ChannelSend, "send cancelled")

	// ErrRecvCancelled is returned when the context ends while Recv waits
	// for an item.
	ErrRecvCancelled = errors.New(errors.ChannelRecv, "receive cancelled")
)

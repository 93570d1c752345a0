// Package buffer provides Channel, the bounded multi-producer queue that
// connects pipeline stages.
//
// # Producers and end of stream
//
// A Channel has a fixed capacity and any number of producers. Each producer
// owns a Sender; the channel closes when the last Sender closes, and that
// close is the only end-of-stream signal. Consumers keep receiving buffered
// items after the close and then see ErrClosed:
//
//	ch, err := buffer.New[[]byte](1024,
//		buffer.WithMetrics[[]byte](registry, "raw"),
//	)
//	senders, err := ch.Senders(workers)
//
//	// producer i
//	defer senders[i].Close()
//	if err := senders[i].Send(ctx, payload); err != nil {
//		return err
//	}
//
//	// consumer
//	for {
//		item, err := ch.Recv(ctx)
//		if errors.Is(err, buffer.ErrClosed) {
//			return nil
//		}
//		...
//	}
//
// # Overflow policies
//
//   - Block (default): Send waits for space or for its context to end.
//   - DropNewest: the item being sent is discarded.
//   - DropOldest: the oldest buffered item is discarded to make room.
//
// Dropped items are counted in Statistics, exported as
// bee_channel_dropped_total when metrics are enabled, and passed to the
// optional DropCallback.
package buffer

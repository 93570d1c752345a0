// Package udp provides the "udp" source, which forwards every datagram it
// receives as one raw payload.
//
// # Configuration
//
//	[source]
//	type = "udp"
//	port = 5140
//	bind = "0.0.0.0"          # default
//	read_buffer = 2097152     # OS socket buffer, best effort
//	max_packet = 65535        # longer datagrams are dropped and counted
//
// # Behavior
//
// Run binds when it starts and releases the port when it returns, so a
// restart after a transient failure binds again. The read loop wakes every
// 100ms to observe cancellation; cancellation ends Run with nil.
//
// Datagrams are not acknowledged, so backpressure cannot reach the sender.
// While the pipeline channel is full the loop blocks in Send and the kernel
// buffers (and eventually discards) incoming packets.
//
// Binding the same port from a second worker fails with an address-in-use
// error, so keep source.max_thread at 1.
package udp

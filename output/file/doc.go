// Package file provides a sink that writes events to a file.
//
// # Configuration
//
//	[sink]
//	type = "file"
//	directory = "/var/lib/bee"
//	file_prefix = "events"    # file name is <prefix>.<format>
//	format = "jsonl"          # jsonl or json (indented)
//	append = true
//	buffer_size = 100         # events held before a write
//	flush_interval = "1s"
//
// # Buffering and Flushing
//
// Encoded events are held in memory and written when buffer_size events are
// pending, on every flush_interval tick, and on Close. The pipeline closes
// the sink after its last worker exits, so a clean stop loses nothing. A
// hard stop may lose up to one buffer.
//
// All sink workers share one Output; writes are serialized internally.
package file

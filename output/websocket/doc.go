// Package websocket provides the "websocket" sink: an HTTP server that
// upgrades clients on one path and pushes every event to all of them.
//
// # Configuration
//
//	[sink]
//	type = "websocket"
//	bind = "0.0.0.0"
//	port = 8081
//	path = "/ws"
//	write_timeout = "5s"
//	ping_interval = "30s"
//
// # Wire format
//
// Each event is sent as one text frame holding a MessageEnvelope:
//
//	{"type":"data","id":"msg-1700000000000-42","timestamp":1700000000000,"payload":{...}}
//
// The payload is the event rendered as a JSON object with sorted keys.
//
// # Delivery
//
// Delivery is at most once. Write fans the frame out to all clients in
// parallel and returns once every write finished or timed out; clients that
// fail or time out are disconnected and counted under
// bee_websocket_output_disconnections_total. Write itself only fails for
// events that cannot be encoded, so a slow dashboard never stops ingestion.
package websocket

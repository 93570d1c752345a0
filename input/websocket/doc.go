// Package websocket provides a WebSocket source for the pipeline.
//
// # Overview
//
// The source dials one endpoint per Run call, optionally sends a
// subscription request as a text frame, and forwards every text or binary
// frame as one raw payload on the stage's output channel. It is the usual
// way to follow a blockchain node's eth_subscribe stream.
//
// # Configuration
//
//	[source]
//	type = "websocket"
//	uri = "wss://mainnet.example/ws"
//	subscribe = '{"jsonrpc":"2.0","id":1,"method":"eth_subscribe","params":["logs",{}]}'
//	read_timeout = "2m"
//	bearer_token_env = "NODE_TOKEN"
//
// # Failure Semantics
//
// A normal close from the peer ends Run with nil: the stream is exhausted.
// Dial failures and dropped connections are I/O-family errors, which the
// pipeline driver retries with backoff per source.retry.*. A handshake
// rejected with 401 or 403 is invalid-auth and is not retried.
//
// # Metrics
//
//	bee_websocket_input_messages_received_total
//	bee_websocket_input_bytes_received_total
//	bee_websocket_input_connections_active
//	bee_websocket_input_connections_total
//	bee_websocket_input_errors_total{type}
package websocket

// Package bee is an event-ingestion pipeline: it pulls raw payloads from a
// source, decodes them into events, runs them through a chain of
// processors and hands the survivors to a sink.
//
// # Architecture
//
// Four stages are connected by bounded channels and driven by one shared
// scheduler:
//
//	┌──────────┐  []byte  ┌──────────┐  Event  ┌────────────┐  Event  ┌──────────┐
//	│  Source  │ ───────> │ Decoder  │ ──────> │ Processors │ ──────> │   Sink   │
//	│ websocket│  chan N  │ json     │ chan N  │ filter ... │ chan N  │ console  │
//	│ file udp │          │ ethlog   │         │            │         │ file ... │
//	└──────────┘          └──────────┘         └────────────┘         └──────────┘
//
// Every stage runs up to <stage>.max_thread workers. A full channel blocks
// its producers, so a slow sink slows the source down instead of growing
// memory. Shutdown flows downstream: when the source returns, its channel
// closes, the decoder drains and returns, and so on until the sink has
// written the last event.
//
// # Packages
//
// Core types:
//   - errors: the error taxonomy (packed family and sub-codes, predicates,
//     conversion of foreign errors)
//   - value: dynamically typed event field values and their coercions
//   - event: an event as a map of field name to value
//   - config: dotted-key lookup over TOML, YAML or JSON documents with
//     layered files and environment overrides
//
// Runtime:
//   - component: collaborator interfaces, stage states and the factory registry
//   - pipeline: wires the stages together and owns their lifecycle
//   - pkg/buffer: the bounded multi-producer channel
//   - pkg/worker: the shared scheduler enforcing per-stage worker limits
//   - metric, health: Prometheus metrics and stage health reporting
//
// Collaborators live under input/, decoder/, processor/ and output/ and are
// registered by componentregistry. The cmd/bee binary loads a configuration,
// builds the pipeline and runs it until interrupted.
//
// # Configuration
//
// A minimal bee.toml that tails a file of JSON lines to stdout:
//
//	buffer_size = 256
//
//	[source]
//	type = "file"
//	path = "/var/log/events.jsonl"
//	follow = true
//
//	[decoder]
//	type = "json"
//	max_thread = 2
//
//	[processor]
//	type = ["filter", "enrich"]
//	filter.rules = ["level eq error"]
//
//	[sink]
//	type = "console"
package bee

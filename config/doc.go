// Package config loads bee configuration documents and resolves dotted keys.
//
// A document is a nested table written in TOML, YAML or JSON:
//
//	buffer_size = 1024
//
//	[source]
//	type = "websocket"
//	uri = "wss://node.example/ws"
//
// Keys are resolved with Get, which walks nested tables by dot-separated
// segments and coerces the leaf through the value package:
//
//	cfg, err := config.Load("bee.toml")
//	size, err := config.Get[int](cfg, "buffer_size")
//	uri, err := config.Get[string](cfg, "source.uri")
//
// A missing key is an invalid-index error naming the full key; a value of
// the wrong shape is an invalid-type error. A key that stops at a table
// resolves to Nil and therefore fails coercion rather than lookup.
//
// # Loading
//
// Loader merges several files in order, later files winning. Inside string
// values, ${NAME} is replaced with the environment variable NAME after
// parsing; a value that is only a reference is typed with value.Parse, and
// an unset NAME fails the load. After merging, variables starting with BEECFG_ override keys:
// BEECFG_SOURCE__MAX_THREAD=4 sets source.max_thread to Integer(4). The
// override text is typed with value.Parse.
//
// Files are size-limited and must be regular files; documents nested more
// than 100 levels deep are rejected.
//
// # Paths
//
// FindPath anchors a relative file name according to Mode: as given
// (debug), at the working directory (test), or next to the executable
// (production).
//
// The decoded table is never modified after loading, so one *Config can be
// read concurrently by every pipeline stage.
package config

// Package event defines Event, the unit of data that flows from the decode
// stage through processors to a sink.
//
// An Event is a flat map from field name to value.Value. Decoders build
// events from raw payloads (FromMap flattens nested objects into dotted
// field names), processors add, remove, or rewrite fields, and sinks render
// events with MarshalJSON, which always emits keys in sorted order.
package event

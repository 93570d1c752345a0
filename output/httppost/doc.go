// Package httppost provides the "http" sink, which POSTs every event as a
// JSON document to a webhook endpoint.
//
// # Configuration
//
//	[sink]
//	type = "http"
//	url = "https://hooks.example/bee"
//	timeout = "10s"
//
//	[sink.headers]
//	Authorization = "Bearer ${HOOK_TOKEN}"
//
//	[sink.retry]
//	max_attempts = 5
//	initial_delay = "200ms"
//	max_delay = "10s"
//
//	[sink.tls]
//	ca_files = ["/etc/bee/hooks-ca.pem"]
//
// # Delivery
//
// Each Write performs up to retry.max_attempts requests with exponential
// backoff and jitter. Connection failures, 429 and 5xx responses are
// transient and retried; other 4xx responses are reported as invalid data
// and dropped by the pipeline without retrying. When the attempts run out
// the last transient error is returned, so the pipeline counts the event
// as failed and keeps running.
//
// The HTTP client is shared by every sink worker; raise sink.max_thread to
// deliver concurrently. Ordering across workers is not preserved.
package httppost

// Package fanout answers a greeting request by combining this node's own
// contribution with the contributions of its peers.
//
// # Overview
//
// Aggregate is the heart of a chorus node. Given the local greeting and the
// ordered peer slots for the current request it:
//
//  1. Skips absent slots without making a call
//  2. Calls GET <peer>/helloFromNode on every present slot, concurrently
//  3. Bounds all calls with one deadline derived from the request context
//  4. Records a tagged Outcome per slot, indexed by input position
//  5. Joins local and the successful bodies with ", "
//
// For peers [A ok, B absent, C unreachable, D ok] the result is
//
//	Hello World!, <A>, <D>
//
// # Failure Isolation
//
// A failing peer is logged at warn level and dropped. Connection errors,
// timeouts, non-2xx answers, non-text bodies and malformed addresses are all
// handled the same way. Aggregate itself has no error return.
//
// # Concurrency Model
//
// One goroutine per present peer runs under an errgroup.Group, optionally
// capped by Options.MaxConcurrency. Goroutines write only to their own slot of
// the outcome slice, so no locking is needed and ordering never depends on
// which peer answers first. Cancelling the request context cancels every
// in-flight call.
//
// # Metrics
//
// NewMetrics registers:
//
//	chorus_aggregations_total
//	chorus_peer_requests_total{slot, outcome}
//	chorus_peer_request_duration_seconds{slot}
package fanout

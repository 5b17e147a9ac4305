// Package cluster holds the data model shared by every chorus node: the
// node's own identity, the named peer slots it may greet, and the outbound
// HTTP call used to reach a sibling.
//
// # Overview
//
// A chorus cluster has no coordinator. Each node knows its own name and an
// ordered list of peer slots ("node1", "node2", ...). A slot either carries a
// base address or is absent for the current request:
//
//	┌──────────┐   GET /helloFromNode   ┌──────────┐
//	│  node1   │ ─────────────────────▶ │  node2   │
//	│          │ ◀───────────────────── │          │
//	└──────────┘  "Hello from 'node2'"  └──────────┘
//
// # Core Types
//
// NodeIdentity: the process-wide node name
//   - Built once at startup and passed by value
//   - Identify renders the greeting peers receive
//
// PeerAddress: one slot in the peer list
//   - Present reports whether the slot has an address
//   - Endpoint resolves a well-known path against the base address
//
// NodeInfo, PeerSummary: the JSON body of a node's /info endpoint
//
// # Communication Protocol
//
// Peers are reached with a single GET on HelloFromNodePath. GetText treats
// any non-2xx status, non-text content type, invalid UTF-8 body or oversized body as an error
// and reports it with one of the sentinel errors:
//
//	ErrInvalidAddress - the slot address cannot be parsed into an http(s) URL
//	ErrBadStatus      - the peer answered outside the 2xx range
//	ErrNotText        - the body is not plain text
//	ErrTooLarge       - the body is larger than 1 MiB
//
// Network and timeout errors come back unwrapped from net/http. Callers bound
// each call with a context deadline; the shared client's own timeout is only
// a backstop.
//
// # Request IDs
//
// WithRequestID stores an inbound request ID in a context. GetText forwards
// it in the X-Request-ID header so one greeting can be followed through the
// logs of every node it touched.
package cluster

// Package domain contains pure business types — no infrastructure imports.
package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────

var (
	// Patch application
	ErrDeserialization = errors.New("message payload failed to deserialize")
	ErrSelfRemoved     = errors.New("applying this patch would remove the local peer from the map")
	ErrRealitySkew     = errors.New("patch result diverges from the expected reality token")

	// Node construction
	ErrMissingEngine = errors.New("flower: no engine configured")
	ErrMissingAddr   = errors.New("flower: no local address available from engine")
	ErrNoSeeds       = errors.New("flower: no seed peers configured and not forced to bootstrap")

	// Engine/transport
	ErrEngineClosed    = errors.New("engine: connection pool is closed")
	ErrUnknownPeer     = errors.New("engine: no connection registered for address")
	ErrConnExhausted   = errors.New("engine: connection registry has no free slots")

	// Propagativity
	ErrNotPropagating = errors.New("propagativity: node is not currently offering to fork")
)

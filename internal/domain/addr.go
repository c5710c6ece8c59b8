package domain

import "strconv"

// MemAddr addresses a node inside the in-memory engine's shared world
// registry: a slot index.
type MemAddr int

func (a MemAddr) String() string { return strconv.Itoa(int(a)) }

// NetAddr addresses a node reachable over the network, as a "host:port"
// pair — used by both the gRPC streaming engine and the plain HTTP engine.
type NetAddr string

func (a NetAddr) String() string { return string(a) }

package domain

// Topic names a single gossip group. A Flower runtime may multiplex several
// topics over one set of connections; routing by Topic happens above the
// node (see internal/flower), not inside the causal map itself.
type Topic string

func (t Topic) String() string { return string(t) }

package domain

import (
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// RealityToken is a commutative, order-independent summary of the set of
// peer identities ever pushed into it. Two replicas that have seen the same
// multiset of joins/departures — in any order, with any duplication — end
// up with the same token; a mismatch after an otherwise-successful merge
// signals that the two replicas have diverged onto different realities
// (a partition healed into two incompatible histories) and must be
// resolved by dropping one side's core (see internal/pollination).
type RealityToken [16]byte

// ZeroToken is the token of a replica that has observed no peers at all.
var ZeroToken RealityToken

// Push folds id into the token via XOR. Pushing the same id twice cancels
// out (so an add followed by a remove of the same peer returns the token to
// its prior value), which is what lets two replicas that processed the same
// events in different orders still agree.
func (t RealityToken) Push(id uuid.UUID) RealityToken {
	var out RealityToken
	for i := range out {
		out[i] = t[i] ^ id[i]
	}
	return out
}

// Equal reports whether two tokens match byte-for-byte.
func (t RealityToken) Equal(other RealityToken) bool { return t == other }

// Less provides a total order over tokens, used to tie-break which side of
// a reality skew defects (see spec §4.5): the side with fewer peers loses;
// when peer counts are equal, the lexicographically smaller token loses and
// adopts the other's core.
func (t RealityToken) Less(other RealityToken) bool {
	for i := range t {
		if t[i] != other[i] {
			return t[i] < other[i]
		}
	}
	return false
}

func (t RealityToken) String() string {
	return fmt.Sprintf("%x", [16]byte(t))
}

// ParseRealityToken parses the hex form String produces, for codecs (like
// message's JSON codec) that carry the token as text instead of raw bytes.
func ParseRealityToken(s string) (RealityToken, error) {
	var t RealityToken
	b, err := hex.DecodeString(s)
	if err != nil {
		return t, fmt.Errorf("domain: invalid reality token %q: %w", s, err)
	}
	if len(b) != len(t) {
		return t, fmt.Errorf("domain: reality token %q has %d bytes, want %d", s, len(b), len(t))
	}
	copy(t[:], b)
	return t, nil
}

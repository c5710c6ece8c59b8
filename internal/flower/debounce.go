package flower

import (
	"time"

	"github.com/byronwasti/florescence/internal/itc"
	"github.com/byronwasti/florescence/internal/message"
)

// DefaultDebounceWindow matches the original source's constants.rs
// DEBOUNCE_TIMEOUT.
const DefaultDebounceWindow = 2 * time.Second

// debouncer coalesces a connection's outbound chatter: within window of the
// previous send, a Heartbeat is dropped if the previous message was a
// Heartbeat or Update carrying a timestamp at or past the new one, and an
// Update is dropped if the previous message was an Update carrying a
// timestamp at or past the new one — a fresher one is already in flight or
// about to be. Once the window lapses the comparison no longer applies.
// RealitySkew, Seed, and NewMember always go through immediately — silently
// losing one of those would stall a join or leave a defection unresolved.
type debouncer struct {
	window   time.Duration
	now      func() time.Time
	lastSent time.Time
	lastKind message.Kind
	lastTS   itc.EventTree
	hasSent  bool
}

func newDebouncer(window time.Duration, now func() time.Time) *debouncer {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	if now == nil {
		now = time.Now
	}
	return &debouncer{window: window, now: now}
}

// allow reports whether a message of kind k carrying clock ts should be sent
// now, recording the send if so.
func (d *debouncer) allow(k message.Kind, ts itc.EventTree) bool {
	if k != message.Heartbeat && k != message.Update {
		return true
	}

	now := d.now()
	withinWindow := d.hasSent && now.Sub(d.lastSent) < d.window
	if withinWindow {
		cmp := itc.Compare(d.lastTS, ts)
		stale := cmp == itc.Greater || cmp == itc.Equivalent
		supersedes := k == message.Heartbeat || d.lastKind == message.Update
		if stale && supersedes {
			return false
		}
	}

	d.lastSent = now
	d.lastKind = k
	d.lastTS = ts
	d.hasSent = true
	return true
}

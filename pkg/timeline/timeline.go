// Package timeline merges the two message sources a viewer has — the durable
// fetch and the live channel — into one gap-free, duplicate-free sequence.
// The durable fetch is always the authority: live frames are treated as
// notifications of possibly-not-yet-durable events and are retired once the
// fetch corroborates them (or discards them after a bounded window).
package timeline

import (
	"sort"
	"sync"
	"time"
)

// DedupWindow bounds rule (b): live-only frames may carry a client id that
// differs from the server-assigned id of the same logical message, so equal
// sender+content closer than this window count as one message.
const DedupWindow = 1000 * time.Millisecond

// DefaultConfirmWindow is how long an uncorroborated live-only entry survives
// durable re-fetches before being dropped as never-persisted.
const DefaultConfirmWindow = 30 * time.Second

type Message struct {
	ID        int64
	SubjectID int64
	Sender    string
	Content   string
	Timestamp time.Time
}

// Duplicate reports whether a and b are the same logical message:
// equal non-zero ids, or equal sender+content within DedupWindow.
func Duplicate(a, b Message) bool {
	if a.ID != 0 && a.ID == b.ID {
		return true
	}
	if a.Sender != b.Sender || a.Content != b.Content {
		return false
	}
	d := a.Timestamp.Sub(b.Timestamp)
	if d < 0 {
		d = -d
	}
	return d < DedupWindow
}

type pendingEntry struct {
	msg        Message
	receivedAt time.Time
}

// Timeline is the per-subject view state of one client.
type Timeline struct {
	mu            sync.Mutex
	confirmed     []Message // durable state, ascending (timestamp, id)
	pending       []pendingEntry
	confirmWindow time.Duration
	lastViewedAt  time.Time
}

func New(confirmWindow time.Duration) *Timeline {
	if confirmWindow <= 0 {
		confirmWindow = DefaultConfirmWindow
	}
	return &Timeline{confirmWindow: confirmWindow}
}

// Reconcile replaces the durable base with a fresh fetch result (any order)
// and re-applies the dedup rule to pending live entries. Pending entries not
// corroborated within the confirm window are dropped: they were relayed but
// never persisted.
func (t *Timeline) Reconcile(fetched []Message, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.confirmed = append(t.confirmed[:0], fetched...)
	sortMessages(t.confirmed)

	kept := t.pending[:0]
	for _, p := range t.pending {
		if t.duplicateOfConfirmed(p.msg) {
			continue
		}
		if now.Sub(p.receivedAt) > t.confirmWindow {
			continue
		}
		kept = append(kept, p)
	}
	t.pending = kept
}

// AddLive appends a live frame unless it duplicates an existing entry.
// Reports whether the frame was added.
func (t *Timeline) AddLive(m Message, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.duplicateOfConfirmed(m) {
		return false
	}
	for _, p := range t.pending {
		if Duplicate(m, p.msg) {
			return false
		}
	}
	t.pending = append(t.pending, pendingEntry{msg: m, receivedAt: now})
	return true
}

// Messages returns the merged sequence, ascending by (timestamp, id).
func (t *Timeline) Messages() []Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Message, 0, len(t.confirmed)+len(t.pending))
	out = append(out, t.confirmed...)
	for _, p := range t.pending {
		out = append(out, p.msg)
	}
	sortMessages(out)
	return out
}

// HasUnread reports whether any message is newer than the view watermark.
func (t *Timeline) HasUnread() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, m := range t.confirmed {
		if m.Timestamp.After(t.lastViewedAt) {
			return true
		}
	}
	for _, p := range t.pending {
		if p.msg.Timestamp.After(t.lastViewedAt) {
			return true
		}
	}
	return false
}

// MarkViewed moves the watermark; the thread view calls this on open.
func (t *Timeline) MarkViewed(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastViewedAt = now
}

func (t *Timeline) duplicateOfConfirmed(m Message) bool {
	for _, c := range t.confirmed {
		if Duplicate(m, c) {
			return true
		}
	}
	return false
}

func sortMessages(ms []Message) {
	sort.SliceStable(ms, func(i, j int) bool {
		if ms[i].Timestamp.Equal(ms[j].Timestamp) {
			return ms[i].ID < ms[j].ID
		}
		return ms[i].Timestamp.Before(ms[j].Timestamp)
	})
}

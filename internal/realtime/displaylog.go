package realtime

import (
	"sync"
	"time"

	"github.com/erikakettleson-openai/erika-webrtc/pkg/types"
)

// DisplayLog keeps the most recent server events, newest first. A cap of
// zero keeps everything.
type DisplayLog struct {
	mu      sync.RWMutex
	limit   int
	seq     uint64
	entries []types.LogEntry
	subs    []func(types.LogEntry)
}

func NewDisplayLog(limit int) *DisplayLog {
	return &DisplayLog{limit: limit}
}

func (l *DisplayLog) Append(ev ServerEvent) types.LogEntry {
	l.mu.Lock()
	l.seq++
	e := types.LogEntry{
		Seq:        l.seq,
		EventID:    ev.EventID,
		Type:       ev.Type,
		ReceivedAt: time.Now().UnixMilli(),
		Event:      ev.Raw,
	}
	l.entries = append(l.entries, types.LogEntry{})
	copy(l.entries[1:], l.entries)
	l.entries[0] = e
	if l.limit > 0 && len(l.entries) > l.limit {
		clear(l.entries[l.limit:])
		l.entries = l.entries[:l.limit]
	}
	subs := l.subs
	l.mu.Unlock()

	for _, fn := range subs {
		fn(e)
	}
	return e
}

// Entries returns a snapshot, newest first.
func (l *DisplayLog) Entries() []types.LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]types.LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *DisplayLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Subscribe registers fn to be called after every append, outside the lock.
func (l *DisplayLog) Subscribe(fn func(types.LogEntry)) {
	l.mu.Lock()
	l.subs = append(l.subs[:len(l.subs):len(l.subs)], fn)
	l.mu.Unlock()
}

package session

import (
	"sort"
	"time"
)

// NoticeTTL is how long a transient notice stays visible.
const NoticeTTL = 5 * time.Second

type NoticeKind string

const (
	NoticeError   NoticeKind = "error"
	NoticeSuccess NoticeKind = "success"
)

type Notice struct {
	Kind      NoticeKind `json:"kind"`
	Text      string     `json:"text"`
	ShownAt   time.Time  `json:"shown_at"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// notices keeps the latest notice per kind. Callers synchronize access.
type notices struct {
	ttl   time.Duration
	now   func() time.Time
	items map[NoticeKind]Notice
}

func newNotices(ttl time.Duration, now func() time.Time) *notices {
	return &notices{ttl: ttl, now: now, items: make(map[NoticeKind]Notice)}
}

func (n *notices) show(kind NoticeKind, text string) Notice {
	at := n.now()
	notice := Notice{Kind: kind, Text: text, ShownAt: at, ExpiresAt: at.Add(n.ttl)}
	n.items[kind] = notice
	return notice
}

// active drops expired notices and returns the rest, oldest first.
func (n *notices) active() []Notice {
	at := n.now()
	out := make([]Notice, 0, len(n.items))
	for kind, notice := range n.items {
		if !at.Before(notice.ExpiresAt) {
			delete(n.items, kind)
			continue
		}
		out = append(out, notice)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ShownAt.Equal(out[j].ShownAt) {
			return out[i].Kind < out[j].Kind
		}
		return out[i].ShownAt.Before(out[j].ShownAt)
	})
	return out
}

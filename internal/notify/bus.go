// Package notify fans out balance and settlement events to the real-time
// push transport. Delivery is best-effort: a slow subscriber drops events
// rather than blocking the publisher.
package notify

import (
	"sync"
	"time"
)

const (
	EventOrderSettled   = "order_settled"
	EventBalanceChanged = "balance_changed"
)

type Event struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
	TS     int64  `json:"ts"`
	Data   any    `json:"data"`
}

type Bus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

func NewBus() *Bus {
	return &Bus{subs: make(map[chan Event]struct{})}
}

func (b *Bus) Subscribe() chan Event {
	ch := make(chan Event, 100)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Bus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

func (b *Bus) Publish(evtType, userID string, data any) {
	evt := Event{Type: evtType, UserID: userID, TS: time.Now().UnixMilli(), Data: data}
	b.mu.RLock()
	for ch := range b.subs {
		select {
		case ch <- evt:
		default:
		}
	}
	b.mu.RUnlock()
}

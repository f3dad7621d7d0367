// Package keylock serializes work per string key. It is an in-process
// throughput aid: money-moving sufficiency checks are still enforced by the
// ledger store's atomic read-then-append, which holds across instances.
package keylock

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type holder struct {
	done       chan struct{}
	acquiredAt time.Time
}

type KeyLock struct {
	mu      sync.Mutex
	holders map[string]*holder
	timeout time.Duration
	log     logrus.FieldLogger
	done    chan struct{}
	once    sync.Once
}

// New creates a lock set whose holders are force-released after timeout. A
// background sweep clears expired holders even when nobody is waiting on them.
func New(timeout, sweepInterval time.Duration, log logrus.FieldLogger) *KeyLock {
	l := &KeyLock{
		holders: make(map[string]*holder),
		timeout: timeout,
		log:     log,
		done:    make(chan struct{}),
	}
	go l.sweep(sweepInterval)
	return l
}

// Acquire blocks until the key is free, waiting at most until the current
// holder's timeout elapses. A holder that never releases is force-released
// with a warning: liveness wins over strict exclusion.
func (l *KeyLock) Acquire(key string) (release func()) {
	for {
		l.mu.Lock()
		h := l.holders[key]
		if h == nil {
			mine := &holder{done: make(chan struct{}), acquiredAt: time.Now()}
			l.holders[key] = mine
			l.mu.Unlock()
			var once sync.Once
			return func() {
				once.Do(func() {
					l.mu.Lock()
					if l.holders[key] == mine {
						delete(l.holders, key)
					}
					l.mu.Unlock()
					close(mine.done)
				})
			}
		}
		remaining := time.Until(h.acquiredAt.Add(l.timeout))
		l.mu.Unlock()
		if remaining <= 0 {
			l.forceRelease(key, h)
			continue
		}
		timer := time.NewTimer(remaining)
		select {
		case <-h.done:
			timer.Stop()
		case <-timer.C:
			l.forceRelease(key, h)
		}
	}
}

func (l *KeyLock) forceRelease(key string, h *holder) {
	l.mu.Lock()
	if l.holders[key] == h {
		delete(l.holders, key)
		l.log.WithFields(logrus.Fields{
			"key":      key,
			"held_for": time.Since(h.acquiredAt).String(),
		}).Warn("keylock: holder exceeded timeout, force-released")
	}
	l.mu.Unlock()
}

func (l *KeyLock) Close() {
	l.once.Do(func() { close(l.done) })
}

func (l *KeyLock) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.mu.Lock()
			for key, h := range l.holders {
				if time.Since(h.acquiredAt) > l.timeout {
					delete(l.holders, key)
					l.log.WithField("key", key).Warn("keylock: expired holder swept")
				}
			}
			l.mu.Unlock()
		}
	}
}

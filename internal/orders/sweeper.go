package orders

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Sweeper drives settlement on a fixed interval. A slow batch simply finishes
// before the next tick fires; the ticker drops missed ticks.
type Sweeper struct {
	svc      *Service
	interval time.Duration
	log      logrus.FieldLogger
	done     chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
}

func NewSweeper(svc *Service, interval time.Duration, log logrus.FieldLogger) *Sweeper {
	return &Sweeper{svc: svc, interval: interval, log: log, done: make(chan struct{})}
}

func (s *Sweeper) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.done:
				return
			case now := <-ticker.C:
				if n := s.svc.SettleDue(context.Background(), now.UTC()); n > 0 {
					s.log.WithField("count", n).Info("orders settled")
				}
			}
		}
	}()
}

func (s *Sweeper) Stop() {
	s.once.Do(func() { close(s.done) })
	s.wg.Wait()
}

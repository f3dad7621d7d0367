package keylock

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestAcquireSerializesSameKey(t *testing.T) {
	t.Parallel()
	l := New(30*time.Second, time.Second, testLogger())
	defer l.Close()

	const workers = 20
	counter := 0
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			release := l.Acquire("user-1:real")
			defer release()
			v := counter
			time.Sleep(time.Millisecond)
			counter = v + 1
		}()
	}
	wg.Wait()
	assert.Equal(t, workers, counter)
}

func TestAcquireDifferentKeysDoNotBlock(t *testing.T) {
	t.Parallel()
	l := New(30*time.Second, time.Second, testLogger())
	defer l.Close()

	releaseA := l.Acquire("a")
	defer releaseA()

	done := make(chan struct{})
	go func() {
		releaseB := l.Acquire("b")
		releaseB()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("acquire on an unrelated key blocked")
	}
}

func TestTimeoutForcesRelease(t *testing.T) {
	t.Parallel()
	l := New(50*time.Millisecond, time.Hour, testLogger())
	defer l.Close()

	// Never released.
	_ = l.Acquire("stuck")

	start := time.Now()
	release := l.Acquire("stuck")
	release()
	assert.Less(t, time.Since(start), time.Second)
}

func TestReleaseIsIdempotent(t *testing.T) {
	t.Parallel()
	l := New(30*time.Second, time.Second, testLogger())
	defer l.Close()

	release := l.Acquire("k")
	release()
	release()

	second := l.Acquire("k")
	second()
}

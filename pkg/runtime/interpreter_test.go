package runtime

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseLockMode(t *testing.T) {
	assert.Equal(t, Parallel, ParseLockMode("parallel"))
	assert.Equal(t, Parallel, ParseLockMode("  PARALLEL "))
	assert.Equal(t, Exclusive, ParseLockMode("exclusive"))
	assert.Equal(t, Exclusive, ParseLockMode(""))
	assert.Equal(t, Exclusive, ParseLockMode("garbage"))
}

func TestExclusiveSerializesDo(t *testing.T) {
	ip := NewInterpreter(Exclusive)

	var running, peak atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ip.Do(func() {
				cur := running.Add(1)
				for {
					old := peak.Load()
					if cur <= old || peak.CompareAndSwap(old, cur) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				running.Add(-1)
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), peak.Load())
	assert.False(t, ip.Held())
}

func TestParallelAllowsOverlap(t *testing.T) {
	ip := NewInterpreter(Parallel)

	entered := make(chan struct{})
	release := make(chan struct{})
	go ip.Do(func() {
		close(entered)
		<-release
	})

	<-entered
	done := make(chan struct{})
	go ip.Do(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("parallel mode blocked a second caller")
	}
	assert.True(t, ip.Held())
	close(release)
}

func TestPendingDoesNotRunAtConstruction(t *testing.T) {
	var ran atomic.Bool
	p := NewPending(func(ctx context.Context) (any, error) {
		ran.Store(true)
		return nil, nil
	})

	assert.False(t, ran.Load())

	v, err := p.Run(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, v)
	assert.True(t, ran.Load())
}

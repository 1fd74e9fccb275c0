package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func TestStepClock_Advances(t *testing.T) {
	clock := NewStepClock(epoch, time.Second)

	assert.Equal(t, epoch, clock.Now())
	assert.Equal(t, epoch.Add(time.Second), clock.Now())
	assert.Equal(t, epoch.Add(2*time.Second), clock.Now())
}

func TestStepClock_Reset(t *testing.T) {
	clock := NewStepClock(epoch, time.Minute)
	clock.Now()
	clock.Now()

	clock.Reset(epoch)
	assert.Equal(t, epoch, clock.Now())
}

func TestStepClock_ConcurrentReadingsAreDistinct(t *testing.T) {
	clock := NewStepClock(epoch, time.Millisecond)
	const n = 100

	var wg sync.WaitGroup
	seen := make(chan time.Time, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- clock.Now()
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[time.Time]bool)
	for ts := range seen {
		unique[ts] = true
	}
	assert.Len(t, unique, n)
}

func TestSequentialIDs(t *testing.T) {
	ids := NewSequentialIDs("")
	assert.Equal(t, "cmd-0001", ids.Generate())
	assert.Equal(t, "cmd-0002", ids.Generate())

	other := NewSequentialIDs("job")
	assert.Equal(t, "job-0001", other.Generate())
}

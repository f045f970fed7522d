//go:build integration

package registration

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "eventreg/pkg/domain"
	"eventreg/pkg/testutil/containers"
)

func TestRedisLocker_SerializesPerOccurrence(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	t.Cleanup(func() { _ = rc.Client.Close() })

	locker := NewRedisLocker(rc.Client)
	occurrenceID := id.NewOccurrenceID()
	ctx := context.Background()

	var inside, overlaps int32

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Acquire(ctx, occurrenceID)
			require.NoError(t, err)
			defer release()

			if atomic.AddInt32(&inside, 1) > 1 {
				atomic.AddInt32(&overlaps, 1)
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()

	assert.Zero(t, atomic.LoadInt32(&overlaps), "two holders inside the critical section")
}

func TestRedisLocker_ReleaseAllowsNextHolder(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	t.Cleanup(func() { _ = rc.Client.Close() })

	locker := NewRedisLocker(rc.Client)
	occurrenceID := id.NewOccurrenceID()
	ctx := context.Background()

	release, err := locker.Acquire(ctx, occurrenceID)
	require.NoError(t, err)
	release()

	release, err = locker.Acquire(ctx, occurrenceID)
	require.NoError(t, err)
	release()
}

func TestRedisLocker_IndependentOccurrences(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	t.Cleanup(func() { _ = rc.Client.Close() })

	locker := NewRedisLocker(rc.Client)
	ctx := context.Background()

	releaseA, err := locker.Acquire(ctx, id.NewOccurrenceID())
	require.NoError(t, err)
	defer releaseA()

	releaseB, err := locker.Acquire(ctx, id.NewOccurrenceID())
	require.NoError(t, err)
	releaseB()
}

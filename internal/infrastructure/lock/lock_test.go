package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestLocalSerializesPerKey(t *testing.T) {
	l := NewLocal(0)
	var inside, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "conversation:a")
			if !assert.NoError(t, err) {
				return
			}
			n := inside.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), peak.Load())
	assert.Empty(t, l.locks, "idle keys are released")
}

func TestLocalKeysAreIndependent(t *testing.T) {
	l := NewLocal(0)
	unlockA, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockB, err := l.Lock(ctx, "b")
	require.NoError(t, err)
	unlockB()
}

func TestLocalHonoursContext(t *testing.T) {
	l := NewLocal(0)
	unlock, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Lock(ctx, "a")
	assert.ErrorIs(t, err, context.Canceled)

	unlock()
	unlock()
	again, err := l.Lock(context.Background(), "a")
	require.NoError(t, err, "double unlock must not corrupt the key")
	again()
}

func TestLocalWaitTimeout(t *testing.T) {
	l := NewLocal(20 * time.Millisecond)
	unlock, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer unlock()

	_, err = l.Lock(context.Background(), "a")
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestNewRedisRequiresURL(t *testing.T) {
	_, err := NewRedis(context.Background(), "", time.Second, time.Second, zerolog.Nop())
	assert.Error(t, err)

	_, err = NewRedis(context.Background(), "://bad", time.Second, time.Second, zerolog.Nop())
	assert.Error(t, err)
}

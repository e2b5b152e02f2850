package remediation

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGuard_TryAcquireAndRelease(t *testing.T) {
	g := NewGuard()

	release, ok := g.TryAcquire("report:r1")
	require.True(t, ok)
	require.True(t, g.Busy("report:r1"))

	_, ok = g.TryAcquire("report:r1")
	require.False(t, ok)

	other, ok := g.TryAcquire("report:r2")
	require.True(t, ok)
	other()

	release()
	release()
	require.False(t, g.Busy("report:r1"))

	again, ok := g.TryAcquire("report:r1")
	require.True(t, ok)
	again()
}

func TestGuard_ReleaseIsScopedToHolder(t *testing.T) {
	g := NewGuard()
	first, ok := g.TryAcquire("k")
	require.True(t, ok)
	first()

	second, ok := g.TryAcquire("k")
	require.True(t, ok)
	first() // stale release must not free the new holder
	require.True(t, g.Busy("k"))
	second()
}

func TestGuard_ExactlyOneWinner(t *testing.T) {
	g := NewGuard()
	var (
		wins  atomic.Int32
		wg    sync.WaitGroup
		start = make(chan struct{})
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, ok := g.TryAcquire("location:Lagos"); ok {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()
	require.Equal(t, int32(1), wins.Load())
}

package waitingroom

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

func TestWaitingRoom(t *testing.T) {
	t.Run("1", func(t *testing.T) {
		wr := Create(5 * time.Millisecond)
		defer wr.Stop()

		var wg sync.WaitGroup
		wg.Add(4)

		var mutex sync.Mutex
		order := make([]int, 0)
		record := func(n int) func() {
			return func() {
				mutex.Lock()
				order = append(order, n)
				mutex.Unlock()
				wg.Done()
			}
		}
		wr.WaitUntil(time.Now().Add(200*time.Millisecond), record(4))
		wr.CallDelayed(10*time.Millisecond, record(1))
		wr.CallDelayed(100*time.Millisecond, record(3))
		wr.CallDelayed(50*time.Millisecond, record(2))

		wg.Wait()
		require.EqualValues(t, []int{1, 2, 3, 4}, order)
		require.EqualValues(t, 0, wr.Len())
	})
	t.Run("cancel", func(t *testing.T) {
		wr := Create(5 * time.Millisecond)
		defer wr.Stop()

		counter := atomic.NewInt32(0)
		cancel := wr.CallDelayed(50*time.Millisecond, func() {
			counter.Inc()
		})
		done := make(chan struct{})
		wr.CallDelayed(100*time.Millisecond, func() {
			close(done)
		})
		require.EqualValues(t, 2, wr.Len())
		require.True(t, cancel())
		require.False(t, cancel())
		<-done
		require.EqualValues(t, 0, counter.Load())
	})
	t.Run("cancel after call", func(t *testing.T) {
		wr := Create(5 * time.Millisecond)
		defer wr.Stop()

		done := make(chan struct{})
		cancel := wr.CallDelayed(time.Millisecond, func() {
			close(done)
		})
		<-done
		require.False(t, cancel())
	})
	t.Run("stopped", func(t *testing.T) {
		wr := Create()
		wr.Stop()
		require.Panics(t, func() {
			wr.CallDelayed(time.Millisecond, func() {})
		})
	})
}

func TestTimer(t *testing.T) {
	t.Run("1", func(t *testing.T) {
		done := make(chan struct{})
		Timer{}.CallDelayed(time.Millisecond, func() {
			close(done)
		})
		<-done
	})
	t.Run("cancel", func(t *testing.T) {
		counter := atomic.NewInt32(0)
		cancel := Timer{}.CallDelayed(50*time.Millisecond, func() {
			counter.Inc()
		})
		require.True(t, cancel())
		time.Sleep(100 * time.Millisecond)
		require.EqualValues(t, 0, counter.Load())
	})
}

package eventloop

import (
	"testing"
	"time"

	"github.com/lunfardo314/easysym/util/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"go.uber.org/zap/zapcore"
)

func TestLoop(t *testing.T) {
	t.Run("1", func(t *testing.T) {
		l := New(testutil.NewSimpleLogger(true))
		res := make([]int, 0)
		for i := 0; i < 100; i++ {
			i := i
			require.True(t, l.Post(func() {
				res = append(res, i)
			}))
		}
		l.Stop()
		require.EqualValues(t, 100, len(res))
		for i := range res {
			require.EqualValues(t, i, res[i])
		}
		require.EqualValues(t, 100, l.Tasks())
		require.False(t, l.Post(func() {}))
	})
	t.Run("panic in task", func(t *testing.T) {
		l := New(testutil.NewSimpleLogger(false))
		defer l.Stop()

		counter := 0
		l.Post(func() { panic("oops") })
		l.Post(func() { counter++ })
		l.Sync()
		require.EqualValues(t, 1, counter)
	})
	t.Run("delayed", func(t *testing.T) {
		l := New(nil)
		defer l.Stop()

		done := make(chan struct{})
		start := time.Now()
		cancel := l.CallDelayed(20*time.Millisecond, func() {
			close(done)
		})
		<-done
		require.True(t, time.Since(start) >= 20*time.Millisecond)
		require.False(t, cancel())
	})
	t.Run("delayed after stop", func(t *testing.T) {
		log, logs := testutil.NewObservedLogger(zapcore.WarnLevel)
		l := New(log)
		counter := atomic.NewInt32(0)
		l.CallDelayed(5*time.Millisecond, func() { counter.Inc() })
		l.Stop()
		time.Sleep(50 * time.Millisecond)
		require.EqualValues(t, 0, counter.Load())
		require.EqualValues(t, 1, logs.FilterMessageSnippet("delayed call dropped").Len())
	})
	t.Run("delayed cancel", func(t *testing.T) {
		l := New(nil)
		defer l.Stop()

		counter := atomic.NewInt32(0)
		cancel := l.CallDelayed(20*time.Millisecond, func() {
			counter.Inc()
		})
		require.True(t, cancel())
		time.Sleep(50 * time.Millisecond)
		l.Sync()
		require.EqualValues(t, 0, counter.Load())
	})
	t.Run("cancel from a task", func(t *testing.T) {
		l := New(nil)
		defer l.Stop()

		counter := atomic.NewInt32(0)
		cancel := l.CallDelayed(time.Millisecond, func() {
			counter.Inc()
		})
		// the delayed call is posted behind this task and must not run
		l.Post(func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		})
		time.Sleep(30 * time.Millisecond)
		l.Sync()
		require.EqualValues(t, 0, counter.Load())
	})
}

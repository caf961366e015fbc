// Package eventloop runs tasks one at a time on a single goroutine
package eventloop

import (
	"time"

	"github.com/lunfardo314/easysym/util/fifoqueue"
	"github.com/lunfardo314/unitrie/common"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Loop executes posted tasks sequentially in the order they were posted.
// Delayed calls are posted to the loop when their timer expires, so they never
// run concurrently with other tasks
type Loop struct {
	queue *fifoqueue.FIFOQueue[func()]
	log   *zap.SugaredLogger
	done  chan struct{}
	tasks *atomic.Uint64
}

const (
	delayedWaiting = int32(iota)
	delayedStarted
	delayedCanceled
)

func New(log *zap.SugaredLogger) *Loop {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	ret := &Loop{
		queue: fifoqueue.New[func()](),
		log:   log.Named("loop"),
		done:  make(chan struct{}),
		tasks: atomic.NewUint64(0),
	}
	go ret.run()
	return ret
}

func (l *Loop) run() {
	l.queue.Consume(func(task func()) {
		err := common.CatchPanicOrError(func() error {
			task()
			return nil
		})
		if err != nil {
			l.log.Errorf("task failed: %v", err)
		}
		l.tasks.Inc()
	})
	close(l.done)
	l.log.Debugf("stopped after %d tasks", l.tasks.Load())
}

// Post enqueues task. Returns false if the loop is stopped
func (l *Loop) Post(task func()) bool {
	return l.queue.Write(task)
}

// CallDelayed posts fun to the loop after t. The returned function cancels the
// call and reports if it has not started yet. A call which expires after Stop
// is dropped and logged
func (l *Loop) CallDelayed(t time.Duration, fun func()) (cancel func() bool) {
	state := atomic.NewInt32(delayedWaiting)
	timer := time.AfterFunc(t, func() {
		posted := l.Post(func() {
			if state.CompareAndSwap(delayedWaiting, delayedStarted) {
				fun()
			}
		})
		if !posted && state.Load() == delayedWaiting {
			l.log.Warnf("delayed call dropped: loop is stopped")
		}
	})
	return func() bool {
		timer.Stop()
		return state.CompareAndSwap(delayedWaiting, delayedCanceled)
	}
}

// Sync waits until all tasks posted before it are executed
func (l *Loop) Sync() {
	ch := make(chan struct{})
	if !l.Post(func() { close(ch) }) {
		return
	}
	<-ch
}

// Stop executes tasks already posted, then stops the loop and waits for it.
// Delayed calls still waiting are never executed, so users of the loop, such as
// debouncers, stop executing with it. Must not be called from a task
func (l *Loop) Stop() {
	l.queue.Close()
	<-l.done
}

// Tasks returns the number of tasks executed so far
func (l *Loop) Tasks() uint64 {
	return l.tasks.Load()
}

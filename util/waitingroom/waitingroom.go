// Package waitingroom runs delayed calls. WaitingRoom checks deadlines with a
// polling goroutine, Timer schedules each call on its own runtime timer
package waitingroom

import (
	"sort"
	"sync"
	"time"

	"github.com/lunfardo314/unitrie/common"
	"go.uber.org/atomic"
)

type WaitingRoom struct {
	mutex   sync.Mutex
	d       map[uint64]*waiting
	period  time.Duration
	nextID  atomic.Uint64
	stopped atomic.Bool
}

type waiting struct {
	id       uint64
	deadline time.Time
	fun      func()
}

var defaultPollingPeriod = 10 * time.Millisecond

func Create(pollEvery ...time.Duration) *WaitingRoom {
	ret := &WaitingRoom{
		d:      make(map[uint64]*waiting),
		period: defaultPollingPeriod,
	}
	if len(pollEvery) > 0 {
		common.Assert(pollEvery[0] > 0, "polling period must be positive")
		ret.period = pollEvery[0]
	}

	go ret.polling()
	return ret
}

func (d *WaitingRoom) polling() {
	for {
		time.Sleep(d.period)

		if d.stopped.Load() {
			return
		}
		for _, w := range d.takeDue(time.Now()) {
			w.fun()
		}
	}
}

// takeDue removes entries with deadline not after nowis, ordered by deadline
// and then by the order they were scheduled
func (d *WaitingRoom) takeDue(nowis time.Time) []*waiting {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	ret := make([]*waiting, 0)
	for id, w := range d.d {
		if w.deadline.After(nowis) {
			continue
		}
		ret = append(ret, w)
		delete(d.d, id)
	}
	sort.Slice(ret, func(i, j int) bool {
		if ret[i].deadline.Equal(ret[j].deadline) {
			return ret[i].id < ret[j].id
		}
		return ret[i].deadline.Before(ret[j].deadline)
	})
	return ret
}

// Stop terminates polling. Calls still waiting are never made
func (d *WaitingRoom) Stop() {
	d.stopped.Store(true)
}

// WaitUntil schedules fun to be called from the polling goroutine at the first
// poll after t. The returned function cancels the call and reports if it
// was still waiting
func (d *WaitingRoom) WaitUntil(t time.Time, fun func()) (cancel func() bool) {
	common.Assert(!d.stopped.Load(), "WaitingRoom already stopped")

	id := d.nextID.Inc()

	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.d[id] = &waiting{
		id:       id,
		deadline: t,
		fun:      fun,
	}
	return func() bool {
		d.mutex.Lock()
		defer d.mutex.Unlock()

		_, ok := d.d[id]
		delete(d.d, id)
		return ok
	}
}

func (d *WaitingRoom) CallDelayed(t time.Duration, fun func()) (cancel func() bool) {
	return d.WaitUntil(time.Now().Add(t), fun)
}

// Len is the number of calls waiting
func (d *WaitingRoom) Len() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	return len(d.d)
}

// Timer schedules calls with time.AfterFunc. Each call runs on its own goroutine
type Timer struct{}

func (Timer) CallDelayed(t time.Duration, fun func()) (cancel func() bool) {
	return time.AfterFunc(t, fun).Stop
}

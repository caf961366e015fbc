// Package debounce rate limits expensive re-evaluations triggered by a stream
// of update requests.
//
// QueuedDebouncer keeps at most one request pending. A new request replaces the
// pending one, so the target is always executed with the latest payload. The
// last request is never lost: if a request arrives while the target is running,
// it is executed after the minimum interval elapses.
package debounce

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lunfardo314/easysym/util/waitingroom"
	"github.com/lunfardo314/unitrie/common"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Substrate delays calls. CallDelayed returns a function which cancels the call
// and reports if it was still waiting
type Substrate interface {
	CallDelayed(d time.Duration, fun func()) (cancel func() bool)
}

type options struct {
	substrate Substrate
	log       *zap.SugaredLogger
	name      string
	onError   func(err error)
}

type Option func(opts *options)

// WithSubstrate replaces the default timer substrate
func WithSubstrate(s Substrate) Option {
	return func(opts *options) {
		opts.substrate = s
	}
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(opts *options) {
		opts.log = log
	}
}

// WithName names the debouncer in logs
func WithName(name string) Option {
	return func(opts *options) {
		opts.name = name
	}
}

// OnError is called with the error of each failed execution, after it is logged
func OnError(fun func(err error)) Option {
	return func(opts *options) {
		opts.onError = fun
	}
}

type QueuedDebouncer[T any] struct {
	id        uuid.UUID
	target    func(T) error
	interval  time.Duration
	substrate Substrate
	log       *zap.SugaredLogger
	onError   func(err error)

	mutex      sync.Mutex
	pending    T
	hasPending bool
	running    bool
	// cancelTimer is not nil while an execution is scheduled
	cancelTimer func() bool
	// generation identifies the latest scheduled execution
	generation uint64
	lastStart  time.Time
	closed     bool

	requests   *atomic.Uint64
	executions *atomic.Uint64
	failures   *atomic.Uint64
	dropped    *atomic.Uint64
}

// Stats counts requests, started executions, failed executions and requests
// superseded or canceled before execution
type Stats struct {
	Requests   uint64
	Executions uint64
	Failures   uint64
	Dropped    uint64
}

// New creates a debouncer calling target at most rateLimit times per second
func New[T any](target func(T) error, rateLimit float64, opts ...Option) (*QueuedDebouncer[T], error) {
	if target == nil {
		return nil, errors.New("debounce.New: target is nil")
	}
	if !(rateLimit > 0) || math.IsInf(rateLimit, 1) {
		return nil, fmt.Errorf("debounce.New: rate limit must be positive and finite, got %v", rateLimit)
	}
	interval := float64(time.Second) / rateLimit
	if interval >= math.MaxInt64 {
		return nil, fmt.Errorf("debounce.New: rate limit %v/s is too small, the interval does not fit in time.Duration", rateLimit)
	}
	options := &options{}
	for _, opt := range opts {
		opt(options)
	}
	if options.substrate == nil {
		options.substrate = waitingroom.Timer{}
	}
	if options.log == nil {
		options.log = zap.NewNop().Sugar()
	}
	if options.name == "" {
		options.name = "debounce"
	}
	ret := &QueuedDebouncer[T]{
		id:         uuid.New(),
		target:     target,
		interval:   time.Duration(interval),
		substrate:  options.substrate,
		onError:    options.onError,
		requests:   atomic.NewUint64(0),
		executions: atomic.NewUint64(0),
		failures:   atomic.NewUint64(0),
		dropped:    atomic.NewUint64(0),
	}
	ret.log = options.log.Named(options.name).With("id", ret.id.String())
	ret.log.Debugf("created with interval %v", ret.interval)
	return ret, nil
}

func (d *QueuedDebouncer[T]) ID() uuid.UUID {
	return d.id
}

// Interval is the minimum time between starts of two executions
func (d *QueuedDebouncer[T]) Interval() time.Duration {
	return d.interval
}

// Request makes payload the pending one. It never blocks on the execution
// and never fails. Requests after Close are ignored
func (d *QueuedDebouncer[T]) Request(payload T) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.closed {
		d.log.Debugf("request ignored: closed")
		return
	}
	d.requests.Inc()
	if d.hasPending {
		d.dropped.Inc()
	}
	d.pending = payload
	d.hasPending = true

	if d.running || d.cancelTimer != nil {
		// the pending payload is picked up by the execution already scheduled
		// or by the one scheduled when the running one finishes
		return
	}
	d.schedule(d.interval)
}

// schedule arms the substrate. Must be called with the mutex locked
func (d *QueuedDebouncer[T]) schedule(delay time.Duration) {
	common.Assert(d.cancelTimer == nil, "debouncer: execution already scheduled")
	if delay < 0 {
		delay = 0
	}
	d.generation++
	gen := d.generation
	d.cancelTimer = d.substrate.CallDelayed(delay, func() {
		d.fire(gen)
	})
}

func (d *QueuedDebouncer[T]) fire(gen uint64) {
	d.mutex.Lock()
	if gen != d.generation || d.cancelTimer == nil {
		// canceled or superseded while the substrate was delivering the call
		d.mutex.Unlock()
		return
	}
	d.cancelTimer = nil
	if !d.hasPending || d.closed {
		d.mutex.Unlock()
		return
	}
	payload := d.pending
	var nothing T
	d.pending = nothing
	d.hasPending = false
	d.running = true
	d.lastStart = time.Now()
	d.mutex.Unlock()

	d.execute(payload)

	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.running = false
	if d.hasPending && !d.closed && d.cancelTimer == nil {
		d.schedule(time.Until(d.lastStart.Add(d.interval)))
	}
}

// execute is the failure boundary: neither errors nor panics of the target
// leave it
func (d *QueuedDebouncer[T]) execute(payload T) {
	d.executions.Inc()
	err := common.CatchPanicOrError(func() error {
		return d.target(payload)
	})
	if err == nil {
		return
	}
	d.failures.Inc()
	d.log.Errorf("execution failed: %v", err)
	if d.onError == nil {
		return
	}
	if errHook := common.CatchPanicOrError(func() error {
		d.onError(err)
		return nil
	}); errHook != nil {
		d.log.Errorf("error hook failed: %v", errHook)
	}
}

// Cancel drops the pending request and disarms the scheduled execution.
// An execution already running is not interrupted
func (d *QueuedDebouncer[T]) Cancel() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.cancel()
}

func (d *QueuedDebouncer[T]) cancel() {
	if d.cancelTimer != nil {
		d.cancelTimer()
		d.cancelTimer = nil
		// a call already being delivered by the substrate sees another generation
		d.generation++
	}
	if d.hasPending {
		d.dropped.Inc()
		var nothing T
		d.pending = nothing
		d.hasPending = false
	}
}

// Close cancels pending work and ignores further requests
func (d *QueuedDebouncer[T]) Close() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.cancel()
	d.closed = true
	d.log.Debugf("closed. %s", d.stats())
}

// Pending reports if a request waits for execution
func (d *QueuedDebouncer[T]) Pending() bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	return d.hasPending
}

func (d *QueuedDebouncer[T]) Stats() Stats {
	return d.stats()
}

func (d *QueuedDebouncer[T]) stats() Stats {
	return Stats{
		Requests:   d.requests.Load(),
		Executions: d.executions.Load(),
		Failures:   d.failures.Load(),
		Dropped:    d.dropped.Load(),
	}
}

func (s Stats) String() string {
	return fmt.Sprintf("requests: %d, executions: %d, failures: %d, dropped: %d",
		s.Requests, s.Executions, s.Failures, s.Dropped)
}

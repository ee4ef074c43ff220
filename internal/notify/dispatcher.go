package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

const (
	defaultQueueSize       = 256
	defaultDeliveryTimeout = 5 * time.Second
)

// Dispatcher queues events and delivers them to a Sink on its own
// goroutine. Publish never blocks: when the queue is full the event is
// dropped and counted.
type Dispatcher struct {
	sink    Sink
	queue   chan Event
	timeout time.Duration
	log     *slog.Logger
	dropped atomic.Int64
	failed  atomic.Int64
}

// NewDispatcher creates a Dispatcher with the given queue size.
// A size <= 0 selects the default of 256.
func NewDispatcher(sink Sink, size int, log *slog.Logger) *Dispatcher {
	if size <= 0 {
		size = defaultQueueSize
	}
	return &Dispatcher{
		sink:    sink,
		queue:   make(chan Event, size),
		timeout: defaultDeliveryTimeout,
		log:     log,
	}
}

// Publish enqueues ev for delivery.
func (d *Dispatcher) Publish(ev Event) {
	select {
	case d.queue <- ev:
	default:
		d.dropped.Add(1)
		d.log.Warn("notification queue full, dropping event", "kind", ev.Kind, "timer_id", ev.TimerID)
	}
}

// Run delivers queued events until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case ev := <-d.queue:
			d.deliver(ctx, ev)
		case <-ctx.Done():
			return
		}
	}
}

// Dropped returns how many events were discarded because the queue was full.
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

// Failed returns how many deliveries returned an error or panicked.
func (d *Dispatcher) Failed() int64 {
	return d.failed.Load()
}

func (d *Dispatcher) deliver(ctx context.Context, ev Event) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.safeDeliver(ctx, ev); err != nil {
		d.failed.Add(1)
		d.log.Warn("notification delivery failed", "kind", ev.Kind, "timer_id", ev.TimerID, "error", err)
	}
}

func (d *Dispatcher) safeDeliver(ctx context.Context, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panic: %v", r)
		}
	}()
	return d.sink.Deliver(ctx, ev)
}

// Package notify delivers moderation and order lifecycle events to
// interested parties without blocking the request path.
package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultBufferSize = 256

// Event is one notification. Kind names what happened, Payload carries the
// identifiers the receiver needs.
type Event struct {
	Kind    string
	Payload map[string]string
	At      time.Time
}

const (
	KindPlacementApproved = "placement.approved"
	KindPlacementRejected = "placement.rejected"
	KindCreativeApproved  = "creative.approved"
	KindCreativeRejected  = "creative.rejected"
	KindOrderCompleted    = "order.completed"
)

// Publisher accepts events for delivery. Implementations must never block
// the caller.
type Publisher interface {
	Publish(event Event)
}

// Sink receives events on the dispatcher's worker goroutine.
type Sink interface {
	Deliver(ctx context.Context, event Event)
}

// Dispatcher fans events out to sinks from a single worker, dropping when
// the buffer is full rather than stalling request handling.
type Dispatcher struct {
	Logger *zap.Logger

	ch     chan Event
	sinks  []Sink
	wg     sync.WaitGroup
	cancel context.CancelFunc
	once   sync.Once
}

func NewDispatcher(logger *zap.Logger, bufferSize int, sinks ...Sink) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Dispatcher{
		Logger: logger,
		ch:     make(chan Event, bufferSize),
		sinks:  sinks,
	}
}

// Start launches the delivery worker. Safe to call once.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case <-ctx.Done():
				d.drain(ctx)
				return
			case ev := <-d.ch:
				for _, s := range d.sinks {
					s.Deliver(ctx, ev)
				}
			}
		}
	}()
}

// Publish enqueues the event, dropping it when the buffer is full.
func (d *Dispatcher) Publish(event Event) {
	if d == nil || d.ch == nil {
		return
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	select {
	case d.ch <- event:
	default:
		if d.Logger != nil {
			d.Logger.Warn("notify buffer full, event dropped", zap.String("kind", event.Kind))
		}
	}
}

// drain delivers whatever is still buffered after cancellation. Publishes
// racing with shutdown may still be dropped, buffered events are not.
func (d *Dispatcher) drain(ctx context.Context) {
	for {
		select {
		case ev := <-d.ch:
			for _, s := range d.sinks {
				s.Deliver(ctx, ev)
			}
		default:
			return
		}
	}
}

// Stop cancels the worker and waits for it to drain.
func (d *Dispatcher) Stop() {
	d.once.Do(func() {
		if d.cancel != nil {
			d.cancel()
		}
		d.wg.Wait()
	})
}

// LogSink writes every event to the structured log. It is the default sink
// until an outbound channel (mail, webhook) is configured.
type LogSink struct {
	Logger *zap.Logger
}

func (s *LogSink) Deliver(_ context.Context, event Event) {
	if s == nil || s.Logger == nil {
		return
	}
	fields := make([]zap.Field, 0, len(event.Payload)+2)
	fields = append(fields, zap.String("kind", event.Kind), zap.Time("at", event.At))
	for k, v := range event.Payload {
		fields = append(fields, zap.String(k, v))
	}
	s.Logger.Info("notification", fields...)
}

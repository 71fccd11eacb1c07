package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Config controls dispatcher buffering behavior.
//
// Critical lists event types that are never dropped: with DropIfFull set,
// they wait for buffer space (bounded by the caller's context) like every
// event does when DropIfFull is off.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	Critical   []string
}

// Dispatcher stamps events and forwards them asynchronously to a sink.
type Dispatcher struct {
	sink       Sink
	queue      chan Event
	done       chan struct{}
	dropIfFull bool
	critical   map[string]struct{}
	now        func() time.Time

	wg        sync.WaitGroup
	closed    atomic.Bool
	closeOnce sync.Once

	dropped     atomic.Uint64
	dropMu      sync.Mutex
	dropsByType map[string]uint64
}

// NewDispatcher starts the delivery goroutine. It returns nil when cfg is
// disabled; every method is safe on a nil Dispatcher.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		sink:        sink,
		queue:       make(chan Event, cfg.BufferSize),
		done:        make(chan struct{}),
		dropIfFull:  cfg.DropIfFull,
		critical:    make(map[string]struct{}, len(cfg.Critical)),
		now:         time.Now,
		dropsByType: make(map[string]uint64),
	}
	for _, t := range cfg.Critical {
		d.critical[t] = struct{}{}
	}

	d.wg.Add(1)
	go d.deliver()

	return d
}

func (d *Dispatcher) deliver() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.queue:
			d.sink.Emit(context.Background(), event)
		case <-d.done:
			d.drain()
			return
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case event := <-d.queue:
			d.sink.Emit(context.Background(), event)
		default:
			return
		}
	}
}

// Emit assigns a missing ID and timestamp, then queues event. Non-critical
// events are counted and dropped when the buffer is full and DropIfFull is set.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = d.now().UTC()
	}

	if d.dropIfFull && !d.isCritical(event.EventType) {
		select {
		case d.queue <- event:
		case <-d.done:
		default:
			d.recordDrop(event.EventType)
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.recordDrop(event.EventType)
	case <-d.done:
	}
}

func (d *Dispatcher) isCritical(eventType string) bool {
	_, ok := d.critical[eventType]
	return ok
}

func (d *Dispatcher) recordDrop(eventType string) {
	d.dropped.Add(1)
	d.dropMu.Lock()
	d.dropsByType[eventType]++
	d.dropMu.Unlock()
}

// Close stops accepting events and delivers what is already queued.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped returns the total number of events that never reached the sink.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// DroppedByType returns a copy of the drop counts keyed by event type.
func (d *Dispatcher) DroppedByType() map[string]uint64 {
	out := map[string]uint64{}
	if d == nil {
		return out
	}
	d.dropMu.Lock()
	defer d.dropMu.Unlock()
	for k, v := range d.dropsByType {
		out[k] = v
	}
	return out
}

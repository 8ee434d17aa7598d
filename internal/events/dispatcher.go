package events

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const defaultQueueSize = 100

// Dispatcher queues events and hands them to a Publisher from a single worker.
// A full queue drops the event.
type Dispatcher struct {
	publisher Publisher
	logger    log.FieldLogger
	timeout   time.Duration

	queue chan Event
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher starts the worker. Call Close to drain and stop it.
func NewDispatcher(publisher Publisher, logger log.FieldLogger, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	d := &Dispatcher{
		publisher: publisher,
		logger:    logger,
		timeout:   5 * time.Second,
		queue:     make(chan Event, queueSize),
		done:      make(chan struct{}),
	}
	go d.worker()
	return d
}

func (d *Dispatcher) worker() {
	defer close(d.done)
	for ev := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		if err := d.publisher.Publish(ctx, ev); err != nil {
			d.logger.WithError(err).WithField("event", ev.Type).Warn("Failed to publish event")
		}
		cancel()
	}
}

// Emit queues ev for publishing.
func (d *Dispatcher) Emit(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	select {
	case d.queue <- ev:
	default:
		d.logger.WithField("event", ev.Type).Warn("Event queue full, dropping event")
	}
}

// Close stops accepting events and waits for the queued ones to be published.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	<-d.done
}

package mqtt

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/sweeney/security-sensor/internal/metrics"
)

// ErrClosed is returned when publishing through a closed AsyncPublisher.
var ErrClosed = errors.New("mqtt: publisher closed")

// AsyncPublisher queues messages for a wrapped Publisher and sends them from
// a single worker goroutine in the order they were queued. Publish calls
// never block: when the queue is full the oldest frame is dropped, or the
// oldest message if no frame is waiting.
type AsyncPublisher struct {
	next         Publisher
	logger       *zap.Logger
	drainTimeout time.Duration

	mu     sync.Mutex
	queue  *ringBuffer
	closed bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

// NewAsyncPublisher starts the worker. capacity bounds the queue;
// drainTimeout bounds how long Close waits for queued messages.
func NewAsyncPublisher(next Publisher, capacity int, drainTimeout time.Duration, logger *zap.Logger) *AsyncPublisher {
	if capacity < 1 {
		capacity = 1
	}
	a := &AsyncPublisher{
		next:         next,
		logger:       logger,
		drainTimeout: drainTimeout,
		queue:        newRingBuffer(capacity),
		wake:         make(chan struct{}, 1),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *AsyncPublisher) enqueue(msg bufferedMsg) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrClosed
	}
	evicted, first := a.queue.push(msg)
	metrics.PublishQueueDepth.Set(float64(a.queue.len()))
	a.mu.Unlock()

	if evicted != "" {
		metrics.PublishDroppedTotal.WithLabelValues(string(evicted)).Inc()
		if first {
			a.logger.Warn("publish queue full, dropping",
				zap.String("kind", string(evicted)), zap.Int("capacity", a.queue.capacity))
		}
	}

	select {
	case a.wake <- struct{}{}:
	default:
	}
	return nil
}

// PublishAlert queues an alert.
func (a *AsyncPublisher) PublishAlert(alert Alert) error {
	return a.enqueue(bufferedMsg{kind: kindAlert, alert: alert})
}

// PublishFrame queues a bitmap.
func (a *AsyncPublisher) PublishFrame(frame []byte) error {
	return a.enqueue(bufferedMsg{kind: kindFrame, frame: frame})
}

// PublishSystem queues a system event.
func (a *AsyncPublisher) PublishSystem(event SystemEvent) error {
	return a.enqueue(bufferedMsg{kind: kindSystem, system: event})
}

// IsConnected reports the wrapped publisher's connection state, or false if
// it does not expose one.
func (a *AsyncPublisher) IsConnected() bool {
	if cs, ok := a.next.(ConnectionStatus); ok {
		return cs.IsConnected()
	}
	return false
}

// Pending returns the number of queued messages.
func (a *AsyncPublisher) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.queue.len()
}

func (a *AsyncPublisher) run() {
	defer close(a.done)
	for {
		select {
		case <-a.wake:
			a.flush()
		case <-a.stop:
			a.flush()
			return
		}
	}
}

func (a *AsyncPublisher) flush() {
	a.mu.Lock()
	batch := a.queue.drainAll()
	metrics.PublishQueueDepth.Set(0)
	a.mu.Unlock()

	for _, msg := range batch {
		if err := a.send(msg); err != nil {
			metrics.PublishErrorsTotal.WithLabelValues(string(msg.kind)).Inc()
			a.logger.Warn("publish failed", zap.String("kind", string(msg.kind)), zap.Error(err))
		}
	}
}

func (a *AsyncPublisher) send(msg bufferedMsg) error {
	switch msg.kind {
	case kindAlert:
		return a.next.PublishAlert(msg.alert)
	case kindFrame:
		return a.next.PublishFrame(msg.frame)
	case kindSystem:
		return a.next.PublishSystem(msg.system)
	}
	return fmt.Errorf("unknown message kind %q", msg.kind)
}

// Close stops accepting messages, waits up to the drain timeout for the
// queue to empty, then closes the wrapped publisher.
func (a *AsyncPublisher) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()
	close(a.stop)

	var err error
	timer := time.NewTimer(a.drainTimeout)
	defer timer.Stop()
	select {
	case <-a.done:
	case <-timer.C:
		err = fmt.Errorf("mqtt: queue not drained within %v", a.drainTimeout)
	}
	return multierr.Append(err, a.next.Close())
}

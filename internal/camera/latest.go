package camera

import (
	"image"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/security-sensor/internal/metrics"
)

// errBackoff is the pause after a failed device read.
const errBackoff = 100 * time.Millisecond

// Latest continuously reads a Source on its own goroutine and keeps only the
// newest frame. Frames the consumer did not pick up in time are dropped, so
// a slow classifier never builds a backlog.
type Latest struct {
	src      Source
	interval time.Duration
	logger   *zap.Logger

	mu       sync.Mutex
	frame    image.Image
	fresh    bool
	drops    uint64
	failures uint64

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewLatest starts grabbing from src. interval paces reads for sources that
// do not block (0 reads as fast as the source allows).
func NewLatest(src Source, interval time.Duration, logger *zap.Logger) *Latest {
	l := &Latest{
		src:      src,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go l.grab()
	return l
}

func (l *Latest) grab() {
	defer close(l.done)
	for {
		started := time.Now()
		img, err := l.src.Read()

		select {
		case <-l.stop:
			return
		default:
		}

		wait := l.interval - time.Since(started)
		if err != nil {
			metrics.CameraReadErrorsTotal.Inc()
			l.mu.Lock()
			l.failures++
			n := l.failures
			l.mu.Unlock()
			if n == 1 || n%100 == 0 {
				l.logger.Warn("camera read failed", zap.Error(err), zap.Uint64("failures", n))
			}
			wait = errBackoff
		} else {
			l.put(img)
		}

		if wait > 0 {
			t := time.NewTimer(wait)
			select {
			case <-l.stop:
				t.Stop()
				return
			case <-t.C:
			}
		}
	}
}

func (l *Latest) put(img image.Image) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fresh {
		l.drops++
		metrics.CameraFramesDroppedTotal.Inc()
	}
	l.frame = img
	l.fresh = true
}

// Read returns the newest frame, or ErrNoFrame if none arrived since the
// previous Read.
func (l *Latest) Read() (image.Image, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.fresh {
		return nil, ErrNoFrame
	}
	l.fresh = false
	return l.frame, nil
}

// Drops returns the number of frames overwritten before being read.
func (l *Latest) Drops() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.drops
}

// Close stops the grabber and closes the underlying source.
func (l *Latest) Close() error {
	var err error
	l.once.Do(func() {
		close(l.stop)
		// Closing the device unblocks a pending Read.
		err = l.src.Close()
		<-l.done
	})
	return err
}

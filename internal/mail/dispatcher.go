// AngelaMos | 2026
// dispatcher.go

package mail

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/carterperez-dev/contacts-backend/internal/config"
	"github.com/carterperez-dev/contacts-backend/internal/metrics"
)

// Dispatcher delivers mail on a fixed pool of workers fed by a bounded
// queue. Callers never wait on delivery and never see its errors.
type Dispatcher struct {
	sender  Sender
	log     *slog.Logger
	queue   chan Message
	workers int
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	start  sync.Once
}

func NewDispatcher(
	sender Sender,
	cfg config.MailConfig,
	log *slog.Logger,
) *Dispatcher {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	size := cfg.QueueSize
	if size < 1 {
		size = 1
	}

	return &Dispatcher{
		sender:  sender,
		log:     log,
		queue:   make(chan Message, size),
		workers: workers,
		timeout: cfg.Timeout,
	}
}

func (d *Dispatcher) Start() {
	d.start.Do(func() {
		d.wg.Add(d.workers)
		for i := 0; i < d.workers; i++ {
			go d.work(i)
		}
	})
}

// Enqueue hands msg to the workers. It reports false, after logging, when
// the queue is full or the dispatcher is shut down.
func (d *Dispatcher) Enqueue(msg Message) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(msg, "dispatcher stopped")
		return false
	}

	select {
	case d.queue <- msg:
		metrics.MailQueueDepth.Inc()
		return true
	default:
		d.drop(msg, "queue full")
		return false
	}
}

// Shutdown stops accepting messages and waits for queued ones to be
// delivered or for ctx to end.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("mail dispatcher shutdown: %w", ctx.Err())
	}
}

func (d *Dispatcher) work(id int) {
	defer d.wg.Done()

	for msg := range d.queue {
		metrics.MailQueueDepth.Dec()
		d.deliver(id, msg)
	}
}

func (d *Dispatcher) deliver(id int, msg Message) {
	ctx := context.Background()
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	err := d.sender.Send(ctx, msg)
	metrics.MailMessagesTotal.WithLabelValues(metrics.Result(err)).Inc()

	if err != nil {
		d.log.Error("mail delivery failed",
			"worker", id,
			"to", msg.To,
			"subject", msg.Subject,
			"error", err,
		)
		return
	}

	d.log.Debug("mail delivered",
		"worker", id,
		"to", msg.To,
		"duration", time.Since(start),
	)
}

func (d *Dispatcher) drop(msg Message, reason string) {
	metrics.MailMessagesTotal.WithLabelValues(metrics.ResultDropped).Inc()
	d.log.Warn("mail dropped",
		"reason", reason,
		"to", msg.To,
		"subject", msg.Subject,
	)
}

// Package deliver dispatches composed messages through a transport, either
// synchronously or on an in-process worker pool.
package deliver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shineum/supermail/internal/compose"
	"github.com/shineum/supermail/internal/email"
	"github.com/shineum/supermail/internal/transport"
)

const (
	defaultWorkers    = 2
	defaultQueueSize  = 100
	defaultJobTimeout = 60 * time.Second
)

var (
	// ErrQueueFull is returned by DeliverLater when no queue slot is free.
	ErrQueueFull = errors.New("deliver: queue is full")

	// ErrClosed is returned once the Dispatcher has been closed.
	ErrClosed = errors.New("deliver: dispatcher is closed")
)

// Config holds the configuration for a Dispatcher.
type Config struct {
	// Transport is the delivery backend. Required.
	Transport transport.Transport

	// Workers is the number of background delivery goroutines.
	Workers int

	// QueueSize bounds the number of pending background jobs.
	QueueSize int

	// JobTimeout bounds a single background send.
	JobTimeout time.Duration

	// MessageIDDomain, when set, stamps a Message-ID of the form
	// <uuid@domain> on messages that lack one.
	MessageIDDomain string

	// OnResult is called after every background job finishes.
	OnResult func(Result)

	Logger *slog.Logger
}

// Result reports the outcome of a background job.
type Result struct {
	JobID     uuid.UUID
	MessageID string
	Transport string
	Duration  time.Duration
	Err       error
}

// job is a queued background delivery.
type job struct {
	id       uuid.UUID
	msg      *compose.Message
	queuedAt time.Time
}

// Dispatcher validates, composes and sends messages. It is safe for
// concurrent use.
type Dispatcher struct {
	cfg    Config
	logger *slog.Logger
	queue  chan job
	now    func() time.Time

	mu     sync.RWMutex
	closed bool

	// wg tracks worker goroutines for Close.
	wg sync.WaitGroup
}

// New creates a Dispatcher and starts its workers.
func New(cfg Config) (*Dispatcher, error) {
	if cfg.Transport == nil {
		return nil, errors.New("deliver: transport is required")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = defaultJobTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		cfg:    cfg,
		logger: logger.With("transport", cfg.Transport.Name()),
		queue:  make(chan job, cfg.QueueSize),
		now:    time.Now,
	}

	d.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go d.work(i)
	}

	return d, nil
}

// DeliverNow validates and composes m, then sends it synchronously. The
// composed message is returned even when the transport fails.
func (d *Dispatcher) DeliverNow(ctx context.Context, m email.Mailer) (*compose.Message, error) {
	msg, err := d.prepare(m)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	if err := d.cfg.Transport.Send(ctx, msg); err != nil {
		d.logger.Error("delivery failed",
			"to", msg.To,
			"message_id", msg.MessageID,
			"error", err,
		)
		return msg, fmt.Errorf("deliver via %s: %w", d.cfg.Transport.Name(), err)
	}

	d.logger.Info("email delivered",
		"to", msg.To,
		"message_id", msg.MessageID,
		"duration", time.Since(start),
	)
	return msg, nil
}

// DeliverLater validates and composes m and queues it for a background
// worker. The send does not inherit ctx; it is bounded by JobTimeout.
func (d *Dispatcher) DeliverLater(ctx context.Context, m email.Mailer) (uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, err
	}

	msg, err := d.prepare(m)
	if err != nil {
		return uuid.Nil, err
	}

	j := job{id: uuid.New(), msg: msg, queuedAt: time.Now()}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return uuid.Nil, ErrClosed
	}

	select {
	case d.queue <- j:
	default:
		return uuid.Nil, ErrQueueFull
	}

	d.logger.Debug("email queued", "job_id", j.id, "to", msg.To)
	return j.id, nil
}

// Close stops accepting jobs and waits for queued jobs to finish. If ctx
// ends first, Close returns its error and workers keep draining.
func (d *Dispatcher) Close(ctx context.Context) error {
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
		d.logger.Debug("all delivery workers stopped")
		return nil
	case <-ctx.Done():
		d.logger.Warn("close deadline reached with jobs in flight", "pending", len(d.queue))
		return ctx.Err()
	}
}

// prepare validates the fields and composes them. A missing Date is set
// to the current time and a missing Message-ID is stamped when configured.
func (d *Dispatcher) prepare(m email.Mailer) (*compose.Message, error) {
	f := m.Fields()
	if err := f.Validate(); err != nil {
		return nil, err
	}

	msg := compose.Compose(f)
	if err := msg.ValidateHeader(); err != nil {
		return nil, err
	}
	if msg.Date.IsZero() {
		msg.SetDate(d.now())
	}
	if msg.MessageID == "" && d.cfg.MessageIDDomain != "" {
		msg.SetMessageID(newMessageID(d.cfg.MessageIDDomain))
	}
	return msg, nil
}

func (d *Dispatcher) work(worker int) {
	defer d.wg.Done()

	for j := range d.queue {
		d.process(worker, j)
	}
}

func (d *Dispatcher) process(worker int, j job) {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.JobTimeout)
	defer cancel()

	start := time.Now()
	err := d.cfg.Transport.Send(ctx, j.msg)

	res := Result{
		JobID:     j.id,
		MessageID: j.msg.MessageID,
		Transport: d.cfg.Transport.Name(),
		Duration:  time.Since(start),
		Err:       err,
	}

	if err != nil {
		d.logger.Error("background delivery failed",
			"worker", worker,
			"job_id", j.id,
			"to", j.msg.To,
			"error", err,
		)
	} else {
		d.logger.Info("background delivery completed",
			"worker", worker,
			"job_id", j.id,
			"to", j.msg.To,
			"queued_for", start.Sub(j.queuedAt),
			"duration", res.Duration,
		)
	}

	if d.cfg.OnResult != nil {
		d.cfg.OnResult(res)
	}
}

// newMessageID returns a globally unique Message-ID for domain.
func newMessageID(domain string) string {
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)
}

package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/aryan0dhankhar/onboardhr/internal/domain"
	"github.com/aryan0dhankhar/onboardhr/internal/observability/metrics"
	"github.com/aryan0dhankhar/onboardhr/internal/reliability/circuitbreaker"
	"github.com/aryan0dhankhar/onboardhr/internal/reliability/retry"
)

// DispatcherConfig tunes the notification worker pool
type DispatcherConfig struct {
	Workers     int
	QueueSize   int
	SendTimeout time.Duration
	Retry       *retry.Config
}

// NotificationDispatcher sends invitation emails in the background. The
// invite has already committed when a message is queued, so delivery
// failures are logged and counted but never reported to the caller.
type NotificationDispatcher struct {
	notifier domain.Notifier
	breaker  *circuitbreaker.CircuitBreaker
	queue    chan domain.InvitationMessage
	cfg      DispatcherConfig
	logger   *slog.Logger

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

// NewNotificationDispatcher creates a dispatcher for notifier
func NewNotificationDispatcher(notifier domain.Notifier, cfg DispatcherConfig, logger *slog.Logger) *NotificationDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 2
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 100
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if cfg.Retry == nil {
		cfg.Retry = &retry.Config{
			MaxAttempts:       3,
			InitialBackoff:    500 * time.Millisecond,
			MaxBackoff:        5 * time.Second,
			BackoffMultiplier: 2.0,
		}
	}
	cfg.Retry.ShouldRetry = func(err error) bool {
		return !errors.Is(err, circuitbreaker.ErrOpen)
	}

	breaker := circuitbreaker.NewCircuitBreaker("notifier-"+notifier.Name(), 5, 2, 30*time.Second)
	breaker.SetStateChangeCallback(func(from, to circuitbreaker.State) {
		logger.Warn("notification circuit breaker state changed",
			slog.String("channel", notifier.Name()),
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})

	return &NotificationDispatcher{
		notifier: notifier,
		breaker:  breaker,
		queue:    make(chan domain.InvitationMessage, cfg.QueueSize),
		cfg:      cfg,
		logger:   logger,
	}
}

// Breaker exposes the circuit breaker guarding the notifier
func (d *NotificationDispatcher) Breaker() *circuitbreaker.CircuitBreaker {
	return d.breaker
}

// Start launches the worker goroutines. Workers run until Stop drains the queue.
func (d *NotificationDispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.started = true

	base := context.WithoutCancel(ctx)
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.run(base, i)
	}
	d.logger.Info("notification dispatcher started",
		slog.String("channel", d.notifier.Name()),
		slog.Int("workers", d.cfg.Workers),
		slog.Int("queue_size", d.cfg.QueueSize),
	)
}

// Enqueue implements service.InvitationQueue. It never blocks; a full queue or
// an open breaker drops the message.
func (d *NotificationDispatcher) Enqueue(ctx context.Context, msg domain.InvitationMessage) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}
	if !d.breaker.AllowRequest() {
		d.logger.WarnContext(ctx, "notifier unavailable, dropping invitation email",
			slog.String("employee_id", msg.EmployeeID),
		)
		metrics.ObserveNotification(d.notifier.Name(), "dropped")
		return false
	}

	select {
	case d.queue <- msg:
		metrics.SetNotificationQueueDepth(len(d.queue))
		return true
	default:
		d.logger.WarnContext(ctx, "notification queue full, dropping invitation email",
			slog.String("employee_id", msg.EmployeeID),
		)
		metrics.ObserveNotification(d.notifier.Name(), "dropped")
		return false
	}
}

// Stop closes the queue and waits for queued messages to be sent
func (d *NotificationDispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	d.logger.Info("notification dispatcher stopped")
}

func (d *NotificationDispatcher) run(ctx context.Context, id int) {
	defer d.wg.Done()
	for msg := range d.queue {
		metrics.SetNotificationQueueDepth(len(d.queue))
		d.deliver(ctx, id, msg)
	}
}

func (d *NotificationDispatcher) deliver(ctx context.Context, workerID int, msg domain.InvitationMessage) {
	logger := d.logger.With(
		slog.Int("worker", workerID),
		slog.String("employee_id", msg.EmployeeID),
		slog.String("channel", d.notifier.Name()),
	)

	_, err := retry.Do(ctx, d.cfg.Retry, logger, "send_invitation", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, d.breaker.Execute(func() error {
			sendCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
			defer cancel()
			return d.notifier.SendInvitation(sendCtx, msg)
		})
	})
	if err != nil {
		logger.Error("failed to deliver invitation email", slog.String("error", err.Error()))
		metrics.ObserveNotification(d.notifier.Name(), "failed")
		return
	}
	logger.Info("invitation email delivered")
	metrics.ObserveNotification(d.notifier.Name(), "sent")
}

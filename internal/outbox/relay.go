package outbox

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/metrics"
)

// Handler delivers one record. A returned error schedules a retry.
type Handler func(ctx context.Context, rec Record) error

// Source is the persistence side of the relay; *Store implements it.
type Source interface {
	Claim(ctx context.Context, limit int, lease time.Duration) ([]Record, error)
	MarkSent(ctx context.Context, id int64) error
	Retry(ctx context.Context, id int64, attempts int, lastErr string, next time.Time) error
	Park(ctx context.Context, id int64, attempts int, lastErr string) error
}

type RelayConfig struct {
	PollInterval    time.Duration
	BatchSize       int
	MaxAttempts     int
	DispatchTimeout time.Duration
	BaseBackoff     time.Duration
	MaxBackoff      time.Duration
}

func (c RelayConfig) withDefaults() RelayConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 8
	}
	if c.DispatchTimeout <= 0 {
		c.DispatchTimeout = 5 * time.Second
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 5 * time.Minute
	}
	return c
}

var errUnknownKind = errors.New("no handler registered")

// Relay moves committed outbox records to their handlers. It runs on its own
// context, never on a request's.
type Relay struct {
	src      Source
	handlers map[string]Handler
	cfg      RelayConfig
	logger   *log.Logger
	metrics  *metrics.Registry
	wake     chan struct{}
	now      func() time.Time
}

func NewRelay(src Source, handlers map[string]Handler, cfg RelayConfig, logger *log.Logger, m *metrics.Registry) *Relay {
	return &Relay{
		src:      src,
		handlers: handlers,
		cfg:      cfg.withDefaults(),
		logger:   logger,
		metrics:  m,
		wake:     make(chan struct{}, 1),
		now:      time.Now,
	}
}

// Wake asks the relay to drain soon. It never blocks.
func (r *Relay) Wake() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Run drains on every wake-up and poll tick until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	r.logger.Printf("outbox relay started poll=%s batch=%d max_attempts=%d", r.cfg.PollInterval, r.cfg.BatchSize, r.cfg.MaxAttempts)
	r.drain(ctx)
	for {
		select {
		case <-ctx.Done():
			r.logger.Printf("outbox relay stopped")
			return
		case <-ticker.C:
		case <-r.wake:
		}
		r.drain(ctx)
	}
}

func (r *Relay) drain(ctx context.Context) {
	for ctx.Err() == nil {
		n, err := r.DrainOnce(ctx)
		if err != nil {
			r.logger.Printf("outbox relay: %v", err)
			return
		}
		if n < r.cfg.BatchSize {
			return
		}
	}
}

// DrainOnce claims one batch and dispatches every record in it. It returns
// the number of records claimed.
func (r *Relay) DrainOnce(ctx context.Context) (int, error) {
	lease := r.lease()
	claimed := r.now()
	recs, err := r.src.Claim(ctx, r.cfg.BatchSize, lease)
	if err != nil {
		return 0, err
	}
	for i, rec := range recs {
		// A record started after this point could outlive its lease and be
		// claimed again elsewhere; leave it for the next claim instead.
		if r.now().Sub(claimed) > lease-r.cfg.DispatchTimeout {
			r.logger.Printf("outbox lease nearly spent, leaving %d records for the next claim", len(recs)-i)
			break
		}
		r.dispatch(ctx, rec)
	}
	return len(recs), nil
}

// lease is how long claimed records stay hidden from other relays: a full
// batch dispatched back to back at the timeout, plus one poll interval.
func (r *Relay) lease() time.Duration {
	return time.Duration(r.cfg.BatchSize)*r.cfg.DispatchTimeout + r.cfg.PollInterval
}

func (r *Relay) dispatch(ctx context.Context, rec Record) {
	attempts := rec.Attempts + 1

	h, ok := r.handlers[rec.Kind]
	if !ok {
		r.park(ctx, rec, attempts, fmt.Errorf("%w for kind %q", errUnknownKind, rec.Kind))
		return
	}

	dctx, cancel := context.WithTimeout(ctx, r.cfg.DispatchTimeout)
	err := h(dctx, rec)
	cancel()

	if err == nil {
		if err := r.src.MarkSent(ctx, rec.ID); err != nil {
			r.logger.Printf("outbox mark sent id=%d event=%s: %v", rec.ID, rec.EventID, err)
		}
		r.metrics.ObserveDispatch(rec.Kind, "sent")
		return
	}

	if attempts >= r.cfg.MaxAttempts {
		r.park(ctx, rec, attempts, err)
		return
	}

	next := r.now().Add(r.backoff(attempts))
	if uerr := r.src.Retry(ctx, rec.ID, attempts, err.Error(), next); uerr != nil {
		r.logger.Printf("outbox retry bookkeeping id=%d event=%s: %v", rec.ID, rec.EventID, uerr)
	}
	r.metrics.ObserveDispatch(rec.Kind, "retry")
	r.logger.Printf("outbox dispatch failed kind=%s event=%s correlation=%s attempt=%d next=%s: %v",
		rec.Kind, rec.EventID, rec.CorrelationID, attempts, next.Format(time.RFC3339), err)
}

func (r *Relay) park(ctx context.Context, rec Record, attempts int, cause error) {
	if err := r.src.Park(ctx, rec.ID, attempts, cause.Error()); err != nil {
		r.logger.Printf("outbox park bookkeeping id=%d event=%s: %v", rec.ID, rec.EventID, err)
	}
	r.metrics.ObserveDispatch(rec.Kind, "parked")
	r.metrics.ObserveParked()
	r.logger.Printf("ALERT outbox record parked kind=%s event=%s key=%s correlation=%s attempts=%d: %v",
		rec.Kind, rec.EventID, rec.PartitionKey, rec.CorrelationID, attempts, cause)
}

// backoff doubles from BaseBackoff per attempt, capped at MaxBackoff.
func (r *Relay) backoff(attempts int) time.Duration {
	d := r.cfg.BaseBackoff
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= r.cfg.MaxBackoff {
			return r.cfg.MaxBackoff
		}
	}
	return d
}

package submission

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/trialiq-server/internal/domain"
)

// BreakerStore wraps a store with a circuit breaker. Backend failures and
// calls rejected while the breaker is open surface as ErrStoreUnavailable so
// callers can offer a retry.
type BreakerStore struct {
	next    domain.SubmissionStore
	breaker *gobreaker.CircuitBreaker
	logger  *logrus.Logger
}

// NewBreakerStore wraps next with a breaker configured from cfg.
func NewBreakerStore(next domain.SubmissionStore, cfg domain.StoreBreakerConfig, logger *logrus.Logger) *BreakerStore {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 3
	}

	b := &BreakerStore{next: next, logger: logger}
	b.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "submission-store",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= threshold && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrNotFound) || isCallerDone(err)
		},
	})
	return b
}

// State reports the breaker state for health checks.
func (b *BreakerStore) State() gobreaker.State {
	return b.breaker.State()
}

func (b *BreakerStore) execute(op string, fn func() (interface{}, error)) (interface{}, error) {
	result, err := b.breaker.Execute(fn)
	if err == nil {
		return result, nil
	}
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrStoreUnavailable) || isCallerDone(err) {
		return nil, err
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %s rejected: %v", domain.ErrStoreUnavailable, op, err)
	}
	b.logger.WithError(err).WithField("operation", op).Warn("Submission store call failed")
	return nil, fmt.Errorf("%w: %s: %v", domain.ErrStoreUnavailable, op, err)
}

// isCallerDone reports a cancelled or expired caller context. These neither
// trip the breaker nor become ErrStoreUnavailable.
func isCallerDone(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Append appends through the breaker.
func (b *BreakerStore) Append(ctx context.Context, s *domain.Submission) (string, error) {
	result, err := b.execute("append", func() (interface{}, error) {
		return b.next.Append(ctx, s)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// Query queries through the breaker.
func (b *BreakerStore) Query(ctx context.Context, filter domain.SubmissionFilter) ([]*domain.Submission, error) {
	result, err := b.execute("query", func() (interface{}, error) {
		return b.next.Query(ctx, filter)
	})
	if err != nil {
		return nil, err
	}
	return result.([]*domain.Submission), nil
}

// Get reads one submission through the breaker.
func (b *BreakerStore) Get(ctx context.Context, id string) (*domain.Submission, error) {
	result, err := b.execute("get", func() (interface{}, error) {
		return b.next.Get(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.Submission), nil
}

// Count counts through the breaker.
func (b *BreakerStore) Count(ctx context.Context) (int, error) {
	result, err := b.execute("count", func() (interface{}, error) {
		return b.next.Count(ctx)
	})
	if err != nil {
		return 0, err
	}
	return result.(int), nil
}

// ExportJSON exports through the breaker.
func (b *BreakerStore) ExportJSON(ctx context.Context, w io.Writer) error {
	_, err := b.execute("export", func() (interface{}, error) {
		return nil, b.next.ExportJSON(ctx, w)
	})
	return err
}

// Close closes the wrapped store.
func (b *BreakerStore) Close() error {
	return b.next.Close()
}

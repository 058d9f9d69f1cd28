// Package poller maintains the fetch-and-dispatch cycle against the Telegram
// long-polling transport, owning the update cursor and retry backoff.
package poller

import (
	"context"
	"errors"
	"time"

	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"tg_calendar_bot/internal/logging"
)

const (
	// DefaultTimeoutSeconds is the server-side long-poll timeout.
	DefaultTimeoutSeconds = 30

	minIntervalSeconds = 1
	maxIntervalSeconds = 5
)

// Source fetches update batches. A nil offset means "from the beginning of
// the backlog".
type Source interface {
	GetUpdates(ctx context.Context, offset *int64, timeoutSeconds int) ([]*models.Update, error)
}

// Handler processes a single update. Errors are logged and never stop the
// loop or cursor advancement.
type Handler func(ctx context.Context, update *models.Update) error

// Poller owns one update cursor. It must not be shared between goroutines.
type Poller struct {
	source  Source
	handler Handler
	timeout int
	logger  *logrus.Entry

	offset   *int64
	interval int
}

// Option customizes a Poller.
type Option func(*Poller)

// WithTimeout sets the long-poll timeout in seconds.
func WithTimeout(seconds int) Option {
	return func(p *Poller) {
		if seconds > 0 {
			p.timeout = seconds
		}
	}
}

// WithLogger attaches a logger entry.
func WithLogger(logger *logrus.Entry) Option {
	return func(p *Poller) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New constructs a Poller reading from source and handing each update to
// handler.
func New(source Source, handler Handler, opts ...Option) *Poller {
	p := &Poller{
		source:   source,
		handler:  handler,
		timeout:  DefaultTimeoutSeconds,
		logger:   logging.Logger(),
		interval: minIntervalSeconds,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// PollOnce runs a single fetch-and-dispatch cycle. A non-empty batch resets
// the backoff interval; an empty one grows it up to the cap. The offset
// advances past an update only after its handler has returned, so a crash
// mid-batch redelivers the remainder instead of losing it.
func (p *Poller) PollOnce(ctx context.Context) error {
	if p == nil || p.source == nil || p.handler == nil {
		return errors.New("poller is not initialized")
	}

	updates, err := p.source.GetUpdates(ctx, p.offset, p.timeout)
	if err != nil {
		return err
	}

	if len(updates) == 0 {
		if p.interval < maxIntervalSeconds {
			p.interval++
		}
		return nil
	}

	for _, update := range updates {
		if update == nil {
			continue
		}

		if err := p.handler(ctx, update); err != nil {
			p.logger.WithFields(logging.Fields{
				"event":     "update_handler_error",
				"update_id": update.ID,
			}).WithError(err).Error("update handler failed")
		}

		next := update.ID + 1
		p.offset = &next
	}

	p.interval = minIntervalSeconds

	return nil
}

// Run polls until ctx is canceled, sleeping for the current backoff interval
// between cycles. Fetch failures are logged and retried.
func (p *Poller) Run(ctx context.Context) {
	p.logger.WithFields(logging.Fields{
		"event":   "poller_start",
		"timeout": p.timeout,
	}).Info("starting update polling")

	for {
		if err := p.PollOnce(ctx); err != nil && ctx.Err() == nil {
			p.logger.WithField("event", "poll_error").WithError(err).Error("polling cycle failed")
		}

		select {
		case <-ctx.Done():
			p.logger.WithField("event", "poller_stop").Info("update polling stopped")
			return
		case <-time.After(time.Duration(p.interval) * time.Second):
		}
	}
}

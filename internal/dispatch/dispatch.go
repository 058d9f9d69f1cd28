// Package dispatch turns one inbound text plus user state into exactly one
// reply string: it guards the authorization gate, routes slash commands, and
// delegates free text to the translator.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"tg_calendar_bot/internal/domain"
	"tg_calendar_bot/internal/logging"
	"tg_calendar_bot/internal/parser"
	"tg_calendar_bot/internal/translator"
)

// HandlerError marks a user-facing validation failure. Its message is sent
// back to the chat verbatim and never aborts update processing.
type HandlerError struct {
	Message string
}

func (e *HandlerError) Error() string {
	return e.Message
}

// Store is the storage capability the dispatcher mutates and queries.
type Store interface {
	AuthorizeUser(ctx context.Context, userID int64) error
	UpdateUserLanguage(ctx context.Context, userID int64, code string) error
	UpdateUserTimezone(ctx context.Context, userID int64, name string) error
	CreateEvent(ctx context.Context, ownerID int64, start time.Time, title string, end *time.Time) (domain.Event, error)
	UpdateEvent(ctx context.Context, ownerID, eventID int64, start time.Time, title string, end *time.Time) (domain.Event, error)
	ListEvents(ctx context.Context, ownerID int64, includeClosed bool) ([]domain.Event, error)
	ListEventsBetween(ctx context.Context, ownerID int64, from, to *time.Time) ([]domain.Event, error)
	CloseEvents(ctx context.Context, ownerID int64, ids []int64) ([]int64, error)
}

// Translator converts free text into a structured command.
type Translator interface {
	Translate(ctx context.Context, text, language, timezone string) (translator.Result, error)
}

// Dispatcher answers inbound messages for authorized and pending users.
type Dispatcher struct {
	store      Store
	translator Translator
	secret     string
	now        func() time.Time
	logger     *logrus.Entry
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithTranslator enables free-text delegation.
func WithTranslator(t Translator) Option {
	return func(d *Dispatcher) {
		d.translator = t
	}
}

// WithNow overrides the time source; used by handlers that compare event
// start times against the current moment.
func WithNow(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// WithLogger attaches a logger entry.
func WithLogger(logger *logrus.Entry) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// New constructs a Dispatcher guarding access with the given secret.
func New(store Store, secret string, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:  store,
		secret: secret,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logging.Logger(),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Dispatch resolves text for user and returns the reply. Validation failures
// come back as *HandlerError; any other error is a collaborator failure and
// means no reply should be sent.
func (d *Dispatcher) Dispatch(ctx context.Context, user *domain.User, text string) (string, error) {
	if d == nil || d.store == nil {
		return "", errors.New("dispatcher is not initialized")
	}
	if user == nil {
		return "", errors.New("user is required")
	}

	if !user.IsAuthorized {
		return d.dispatchUnauthorized(ctx, user, text)
	}

	if strings.HasPrefix(text, "/") {
		command, args, _ := strings.Cut(text, " ")
		return d.runCommand(ctx, user, command, args)
	}

	if d.translator == nil {
		return "", &HandlerError{Message: "No translator provided for free text"}
	}

	result, err := d.translator.Translate(ctx, text, user.Language, user.Timezone)
	if err != nil {
		return "", fmt.Errorf("translate free text: %w", err)
	}
	if result.Error != "" {
		return "", &HandlerError{Message: result.Error}
	}

	// Canonical args representation is a token list; handlers receive a
	// single-space join.
	return d.runCommand(ctx, user, result.Command, strings.Join(result.Args, " "))
}

// dispatchUnauthorized is the total gate in front of every command: until the
// exact secret arrives nothing else is reachable.
func (d *Dispatcher) dispatchUnauthorized(ctx context.Context, user *domain.User, text string) (string, error) {
	if text == d.secret {
		if err := d.store.AuthorizeUser(ctx, user.UserID); err != nil {
			return "", fmt.Errorf("authorize user: %w", err)
		}
		user.IsAuthorized = true

		d.logger.WithFields(logging.Fields{
			"event":   "user_authorized",
			"user_id": user.UserID,
		}).Info("user provided correct secret")

		return `Please write your preferred language using command "/lang en"`, nil
	}

	if strings.HasPrefix(text, "/start") {
		return "Please provide a secret", nil
	}

	return "The secret is wrong. Please provide a secret", nil
}

func (d *Dispatcher) runCommand(ctx context.Context, user *domain.User, command, args string) (string, error) {
	handler, ok := commandHandlers[command]
	if !ok {
		return "", &HandlerError{Message: "Unknown command"}
	}

	d.logger.WithFields(logging.Fields{
		"event":   "dispatch_command",
		"user_id": user.UserID,
		"command": command,
	}).Debug("dispatching command")

	return handler(ctx, d, user, args)
}

// userFacing converts known argument-grammar failures into handler errors so
// their text becomes the reply.
func userFacing(err error) error {
	var parseErr *parser.ParseError
	if errors.As(err, &parseErr) {
		return &HandlerError{Message: parseErr.Error()}
	}

	if errors.Is(err, parser.ErrInvalidRangeFormat) ||
		errors.Is(err, parser.ErrInvalidFromDatetime) ||
		errors.Is(err, parser.ErrInvalidToDatetime) {
		return &HandlerError{Message: err.Error()}
	}

	return err
}

package telegram

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"tg_calendar_bot/internal/dispatch"
	"tg_calendar_bot/internal/domain"
	"tg_calendar_bot/internal/logging"
)

// UserStore loads or creates the user a message belongs to.
type UserStore interface {
	GetByTelegramID(ctx context.Context, telegramID int64) (domain.User, error)
	Create(ctx context.Context, telegramID int64, username string) (domain.User, error)
}

// Dispatcher resolves one inbound text into one reply.
type Dispatcher interface {
	Dispatch(ctx context.Context, user *domain.User, text string) (string, error)
}

// Sender delivers reply text to a chat.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Handler is the per-update callback invoked by the poller: it resolves the
// sending user, dispatches the text, and sends back the single reply.
type Handler struct {
	users      UserStore
	dispatcher Dispatcher
	sender     Sender
	logger     *logrus.Entry
}

// NewHandler constructs the update callback.
func NewHandler(users UserStore, dispatcher Dispatcher, sender Sender, logger *logrus.Entry) *Handler {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Handler{
		users:      users,
		dispatcher: dispatcher,
		sender:     sender,
		logger:     logger,
	}
}

// HandleUpdate processes one update. Updates without message text, chat, or
// sender are ignored without error. Validation failures become the reply;
// collaborator failures are returned so the poller can log them.
func (h *Handler) HandleUpdate(ctx context.Context, update *models.Update) error {
	if h == nil || h.users == nil || h.dispatcher == nil || h.sender == nil {
		return errors.New("update handler is not initialized")
	}
	if update == nil || update.Message == nil {
		return nil
	}

	message := update.Message
	if message.Text == "" || message.Chat.ID == 0 || message.From == nil || message.From.ID == 0 {
		return nil
	}

	user, err := h.users.GetByTelegramID(ctx, message.From.ID)
	if errors.Is(err, domain.ErrUserNotFound) {
		user, err = h.users.Create(ctx, message.From.ID, message.From.Username)
	}
	if err != nil {
		return fmt.Errorf("load user %d: %w", message.From.ID, err)
	}

	reply, err := h.dispatcher.Dispatch(ctx, &user, message.Text)
	if err != nil {
		var handlerErr *dispatch.HandlerError
		if !errors.As(err, &handlerErr) {
			return fmt.Errorf("dispatch update %d: %w", update.ID, err)
		}
		reply = handlerErr.Message
	}

	// Delivery is best-effort: a failed send must not fail the update.
	if err := h.sender.SendMessage(ctx, message.Chat.ID, reply); err != nil {
		h.logger.WithFields(logging.Fields{
			"event":   "reply_send_failed",
			"chat_id": message.Chat.ID,
			"user_id": message.From.ID,
		}).WithError(err).Warn("failed to send reply")
	}

	return nil
}

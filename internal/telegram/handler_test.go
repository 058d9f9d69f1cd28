package telegram

import (
	"context"
	"errors"
	"testing"

	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"tg_calendar_bot/internal/dispatch"
	"tg_calendar_bot/internal/domain"
)

type fakeUserStore struct {
	users       map[int64]domain.User
	getErr      error
	createErr   error
	createCalls int
}

func (f *fakeUserStore) GetByTelegramID(_ context.Context, telegramID int64) (domain.User, error) {
	if f.getErr != nil {
		return domain.User{}, f.getErr
	}
	user, ok := f.users[telegramID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserStore) Create(_ context.Context, telegramID int64, username string) (domain.User, error) {
	f.createCalls++
	if f.createErr != nil {
		return domain.User{}, f.createErr
	}
	user := domain.User{
		UserID:   telegramID,
		Username: username,
		Language: domain.DefaultLanguage,
		Timezone: domain.DefaultTimezone,
	}
	if f.users == nil {
		f.users = make(map[int64]domain.User)
	}
	f.users[telegramID] = user
	return user, nil
}

type fakeDispatcher struct {
	reply   string
	err     error
	gotText string
	gotUser *domain.User
}

func (f *fakeDispatcher) Dispatch(_ context.Context, user *domain.User, text string) (string, error) {
	f.gotUser = user
	f.gotText = text
	return f.reply, f.err
}

type fakeSender struct {
	err     error
	gotChat int64
	gotText string
	calls   int
}

func (f *fakeSender) SendMessage(_ context.Context, chatID int64, text string) error {
	f.calls++
	f.gotChat = chatID
	f.gotText = text
	return f.err
}

func textUpdate(updateID, userID, chatID int64, text string) *models.Update {
	return &models.Update{
		ID: updateID,
		Message: &models.Message{
			Text: text,
			Chat: models.Chat{ID: chatID},
			From: &models.User{ID: userID, Username: "sam"},
		},
	}
}

func newTestHandler(users UserStore, dispatcher Dispatcher, sender Sender) (*Handler, *logtest.Hook) {
	hookLogger, hook := logtest.NewNullLogger()
	return NewHandler(users, dispatcher, sender, logrus.NewEntry(hookLogger)), hook
}

func TestHandleUpdateIgnoresNonMessageUpdates(t *testing.T) {
	users := &fakeUserStore{}
	dispatcher := &fakeDispatcher{}
	sender := &fakeSender{}
	h, _ := newTestHandler(users, dispatcher, sender)

	tests := []struct {
		name   string
		update *models.Update
	}{
		{name: "nil update", update: nil},
		{name: "no message", update: &models.Update{ID: 1}},
		{name: "empty text", update: textUpdate(1, 7, 7, "")},
		{name: "no sender", update: &models.Update{ID: 1, Message: &models.Message{Text: "hi", Chat: models.Chat{ID: 7}}}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if err := h.HandleUpdate(context.Background(), tt.update); err != nil {
				t.Fatalf("HandleUpdate returned error: %v", err)
			}
			if sender.calls != 0 {
				t.Fatalf("expected no reply sent")
			}
		})
	}
}

func TestHandleUpdateCreatesUnknownUser(t *testing.T) {
	users := &fakeUserStore{}
	dispatcher := &fakeDispatcher{reply: "ok"}
	sender := &fakeSender{}
	h, _ := newTestHandler(users, dispatcher, sender)

	if err := h.HandleUpdate(context.Background(), textUpdate(1, 7, 700, "/help")); err != nil {
		t.Fatalf("HandleUpdate returned error: %v", err)
	}

	if users.createCalls != 1 {
		t.Fatalf("expected user created once, got %d", users.createCalls)
	}
	if dispatcher.gotUser == nil || dispatcher.gotUser.UserID != 7 || dispatcher.gotUser.Username != "sam" {
		t.Fatalf("unexpected dispatched user: %+v", dispatcher.gotUser)
	}
	if sender.gotChat != 700 || sender.gotText != "ok" {
		t.Fatalf("unexpected reply: chat=%d text=%q", sender.gotChat, sender.gotText)
	}
}

func TestHandleUpdateExistingUserNotRecreated(t *testing.T) {
	users := &fakeUserStore{users: map[int64]domain.User{
		7: {UserID: 7, Language: "fr", Timezone: "Europe/Paris", IsAuthorized: true},
	}}
	dispatcher := &fakeDispatcher{reply: "bonjour"}
	sender := &fakeSender{}
	h, _ := newTestHandler(users, dispatcher, sender)

	if err := h.HandleUpdate(context.Background(), textUpdate(1, 7, 700, "/help")); err != nil {
		t.Fatalf("HandleUpdate returned error: %v", err)
	}

	if users.createCalls != 0 {
		t.Fatalf("expected no user creation")
	}
	if dispatcher.gotUser.Language != "fr" {
		t.Fatalf("expected stored user dispatched, got %+v", dispatcher.gotUser)
	}
}

func TestHandleUpdateHandlerErrorBecomesReply(t *testing.T) {
	users := &fakeUserStore{users: map[int64]domain.User{7: {UserID: 7}}}
	dispatcher := &fakeDispatcher{err: &dispatch.HandlerError{Message: "Unknown command"}}
	sender := &fakeSender{}
	h, _ := newTestHandler(users, dispatcher, sender)

	if err := h.HandleUpdate(context.Background(), textUpdate(1, 7, 700, "/nope")); err != nil {
		t.Fatalf("HandleUpdate returned error: %v", err)
	}

	if sender.gotText != "Unknown command" {
		t.Fatalf("expected validation message as reply, got %q", sender.gotText)
	}
}

func TestHandleUpdateInfrastructureErrorPropagates(t *testing.T) {
	users := &fakeUserStore{users: map[int64]domain.User{7: {UserID: 7}}}
	boom := errors.New("mongo down")
	dispatcher := &fakeDispatcher{err: boom}
	sender := &fakeSender{}
	h, _ := newTestHandler(users, dispatcher, sender)

	err := h.HandleUpdate(context.Background(), textUpdate(1, 7, 700, "/list_events"))
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped dispatch error, got %v", err)
	}
	if sender.calls != 0 {
		t.Fatalf("expected no reply on infrastructure failure")
	}
}

func TestHandleUpdateSendFailureIsTolerated(t *testing.T) {
	users := &fakeUserStore{users: map[int64]domain.User{7: {UserID: 7}}}
	dispatcher := &fakeDispatcher{reply: "ok"}
	sender := &fakeSender{err: errors.New("chat blocked")}
	h, hook := newTestHandler(users, dispatcher, sender)

	if err := h.HandleUpdate(context.Background(), textUpdate(1, 7, 700, "/help")); err != nil {
		t.Fatalf("HandleUpdate returned error: %v", err)
	}

	var logged bool
	for _, entry := range hook.AllEntries() {
		if entry.Data["event"] == "reply_send_failed" {
			logged = true
		}
	}
	if !logged {
		t.Fatalf("expected reply_send_failed log entry")
	}
}

func TestHandleUpdateUserLoadFailure(t *testing.T) {
	users := &fakeUserStore{getErr: errors.New("mongo down")}
	dispatcher := &fakeDispatcher{}
	sender := &fakeSender{}
	h, _ := newTestHandler(users, dispatcher, sender)

	if err := h.HandleUpdate(context.Background(), textUpdate(1, 7, 700, "/help")); err == nil {
		t.Fatalf("expected error when the user cannot be loaded")
	}
}

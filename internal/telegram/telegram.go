// Package telegram hosts the Telegram transport client and the per-update
// callback that feeds the dispatcher.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"tg_calendar_bot/internal/config"
	"tg_calendar_bot/internal/logging"
)

// botAPI captures the subset of bot.Bot methods the client relies on, so
// tests can stub the Telegram API without network access.
type botAPI interface {
	GetUpdates(ctx context.Context, params *bot.GetUpdatesParams) ([]*models.Update, error)
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SetMyCommands(ctx context.Context, params *bot.SetMyCommandsParams) (bool, error)
}

// createBot is overridable for tests.
var createBot = func(token string) (botAPI, error) {
	return bot.New(token, bot.WithSkipGetMe())
}

// publicCommands is the command list advertised to Telegram clients.
var publicCommands = []models.BotCommand{
	{Command: "start", Description: "Begin conversation"},
	{Command: "lang", Description: "Change language"},
	{Command: "timezone", Description: "Set timezone"},
	{Command: "add_event", Description: "Add a calendar event"},
	{Command: "edit_event", Description: "Edit a calendar event"},
	{Command: "list_events", Description: "List upcoming events"},
	{Command: "list_all_events", Description: "List events in range"},
	{Command: "close_event", Description: "Close events"},
	{Command: "help", Description: "Show help"},
}

// Client wraps the Telegram Bot API. Polling is driven externally by the
// poller package; the client only exposes the raw calls.
type Client struct {
	api    botAPI
	logger *logrus.Entry
}

// NewClient initializes the Telegram API client.
func NewClient(cfg config.Config, logger *logrus.Entry) (*Client, error) {
	if strings.TrimSpace(cfg.TelegramToken) == "" {
		return nil, errors.New("telegram token is required")
	}
	if logger == nil {
		logger = logging.Logger()
	}

	api, err := createBot(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot client: %w", err)
	}

	return &Client{
		api:    api,
		logger: logger,
	}, nil
}

// GetUpdates fetches the next batch of message updates. A nil offset asks for
// the whole backlog; timeoutSeconds is the server-side long-poll timeout.
func (c *Client) GetUpdates(ctx context.Context, offset *int64, timeoutSeconds int) ([]*models.Update, error) {
	params := &bot.GetUpdatesParams{
		Timeout:        timeoutSeconds,
		AllowedUpdates: []string{"message"},
	}
	if offset != nil {
		params.Offset = *offset
	}

	updates, err := c.api.GetUpdates(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("get updates: %w", err)
	}

	return updates, nil
}

// SendMessage delivers a plain-text reply to a chat.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	if _, err := c.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}); err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	return nil
}

// RegisterCommands publishes the bot command list to Telegram.
func (c *Client) RegisterCommands(ctx context.Context) error {
	if _, err := c.api.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: publicCommands,
	}); err != nil {
		return fmt.Errorf("set my commands: %w", err)
	}

	c.logger.WithFields(logging.Fields{
		"event":    "commands_registered",
		"commands": len(publicCommands),
	}).Info("registered bot commands")

	return nil
}

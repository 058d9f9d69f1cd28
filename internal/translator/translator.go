// Package translator converts free-form chat messages into bot commands via
// an OpenRouter chat-completions exchange.
package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"tg_calendar_bot/internal/logging"
)

const (
	// DefaultBaseURL is the OpenRouter API root.
	DefaultBaseURL = "https://openrouter.ai/api"

	// DefaultModel lets OpenRouter pick a suitable model.
	DefaultModel = "openrouter/auto"

	requestTimeout = 60 * time.Second
)

// Result is the structured translation of one free-text message. Exactly one
// of Command or Error is expected to be populated.
type Result struct {
	Command string   `json:"command"`
	Args    []string `json:"args"`
	Error   string   `json:"error"`
}

// Client calls the OpenRouter chat completions endpoint.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
	now     func() time.Time
	logger  *logrus.Entry
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the API root; used in tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithModel overrides the completion model.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.http = httpClient
		}
	}
}

// WithNow overrides the time source embedded in the system prompt.
func WithNow(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger attaches a logger entry.
func WithLogger(logger *logrus.Entry) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient constructs a translator client authenticated with apiKey.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("openrouter api key is required")
	}

	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		model:   DefaultModel,
		http:    &http.Client{Timeout: requestTimeout},
		now:     func() time.Time { return time.Now().UTC() },
		logger:  logging.Logger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Translate maps text to a supported command. Transport and decoding failures
// are returned as errors; an unrecognized message comes back with the Error
// field populated instead.
func (c *Client) Translate(ctx context.Context, text, language, timezone string) (Result, error) {
	if c == nil {
		return Result{}, errors.New("translator client is not initialized")
	}

	body := chatCompletionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: c.systemPrompt(timezone)},
			{Role: "user", Content: fmt.Sprintf("%s>>> %s", language, text)},
		},
		Temperature: 0,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return Result{}, fmt.Errorf("marshal translation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("build translation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("translation request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read translation response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("translation request failed with status %d", resp.StatusCode)
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(raw, &completion); err != nil {
		return Result{}, fmt.Errorf("decode translation response: %w", err)
	}
	if completion.Error != nil {
		return Result{}, fmt.Errorf("translation api error: %s", completion.Error.Message)
	}
	if len(completion.Choices) == 0 {
		return Result{}, errors.New("translation response has no choices")
	}

	content := strings.TrimSpace(completion.Choices[0].Message.Content)

	c.logger.WithFields(logging.Fields{
		"event":   "translator_response",
		"content": content,
	}).Debug("received translation")

	var result Result
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return Result{}, fmt.Errorf("decode translation content: %w", err)
	}

	return result, nil
}

func (c *Client) systemPrompt(timezone string) string {
	if timezone == "" {
		timezone = "UTC"
	}

	return fmt.Sprintf(`You are a translation layer for a Telegram calendar bot.
Current time: %s.
User timezone: %s. Resolve relative dates in that timezone and output UTC-naive date/times.
Translate the user message into one of the supported commands:
/start, /lang <code>, /add_event <event_line>, /edit_event <id event_line>,
/list_events, /list_all_events [from to], /close_event <id ...>,
/timezone <name>, /help.
Return a single JSON object with optional fields:
  "command": one of the commands above,
  "args": a list of argument tokens,
  "error": "Unrecognized" when the text does not map to a known command.
The answer must contain nothing but the JSON object.

Here is the help description of all commands:
%s`, c.now().Format("2006-01-02 15:04:05 MST"), timezone, helpReference)
}

const helpReference = `/start
/lang <code>
/add_event <YYYY-MM-DD HH:mm [YYYY-MM-DD HH:mm] title>
    Required: start date/time and title
    Optional: end date/time in brackets
    Example: /add_event 2024-05-17 14:30 Team meeting
    Example: /add_event 2024-05-17 14:30 2024-05-17 15:30 Team meeting
/edit_event <id> <YYYY-MM-DD HH:mm [YYYY-MM-DD HH:mm] title>
    Example: /edit_event 5 2024-05-17 14:30 Updated meeting
/list_events
/list_all_events [<YYYY-MM-DD HH:mm> [YYYY-MM-DD HH:mm]]
    Example: /list_all_events 2024-05-01 00:00 2024-05-31 23:59
/timezone <name>
    Example: /timezone Europe/Paris
/close_event <id ...>
/help`

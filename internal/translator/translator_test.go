package translator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

func completionBody(t *testing.T, content string) string {
	t.Helper()

	payload := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal completion: %v", err)
	}

	return string(raw)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	hookLogger, _ := logtest.NewNullLogger()
	client, err := NewClient("sk-or-test",
		WithBaseURL(server.URL),
		WithNow(func() time.Time { return time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC) }),
		WithLogger(logrus.NewEntry(hookLogger)),
	)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	return client
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	if _, err := NewClient("  "); err == nil {
		t.Fatalf("expected error for blank api key")
	}
}

func TestTranslateSuccess(t *testing.T) {
	var gotRequest chatCompletionRequest
	var gotAuth string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotRequest); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(completionBody(t, `{"command":"/add_event","args":["2025-05-21","10:00","Dentist"]}`)))
	})

	result, err := client.Translate(context.Background(), "dentist tomorrow at 10", "en", "Europe/Paris")
	if err != nil {
		t.Fatalf("Translate returned error: %v", err)
	}

	if result.Command != "/add_event" {
		t.Fatalf("unexpected command: %q", result.Command)
	}
	if len(result.Args) != 3 || result.Args[2] != "Dentist" {
		t.Fatalf("unexpected args: %v", result.Args)
	}

	if gotAuth != "Bearer sk-or-test" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
	if gotRequest.Temperature != 0 {
		t.Fatalf("temperature = %v, want 0", gotRequest.Temperature)
	}
	if len(gotRequest.Messages) != 2 {
		t.Fatalf("expected system and user messages, got %d", len(gotRequest.Messages))
	}
	if !strings.Contains(gotRequest.Messages[0].Content, "Europe/Paris") {
		t.Fatalf("expected timezone in system prompt")
	}
	if gotRequest.Messages[1].Content != "en>>> dentist tomorrow at 10" {
		t.Fatalf("unexpected user message: %q", gotRequest.Messages[1].Content)
	}
}

func TestTranslateUnrecognized(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(completionBody(t, `{"error":"Unrecognized"}`)))
	})

	result, err := client.Translate(context.Background(), "asdfgh", "en", "UTC")
	if err != nil {
		t.Fatalf("Translate returned error: %v", err)
	}
	if result.Error != "Unrecognized" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestTranslateNonOKStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	if _, err := client.Translate(context.Background(), "hi", "en", "UTC"); err == nil {
		t.Fatalf("expected error for non-200 status")
	}
}

func TestTranslateAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"error":{"message":"model unavailable"}}`))
	})

	_, err := client.Translate(context.Background(), "hi", "en", "UTC")
	if err == nil || !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected api error, got %v", err)
	}
}

func TestTranslateMalformedContent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(completionBody(t, "sure, here is your command!")))
	})

	if _, err := client.Translate(context.Background(), "hi", "en", "UTC"); err == nil {
		t.Fatalf("expected error for non-JSON content")
	}
}

func TestTranslateNoChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	if _, err := client.Translate(context.Background(), "hi", "en", "UTC"); err == nil {
		t.Fatalf("expected error for empty choices")
	}
}

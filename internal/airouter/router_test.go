package airouter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"carebot/internal/providers"
	"carebot/internal/storage"
)

type fakeSettings struct {
	row storage.ProviderSettings
	err error
}

func (f fakeSettings) ProviderSettings(ctx context.Context, userID int64) (storage.ProviderSettings, error) {
	if f.err != nil {
		return storage.ProviderSettings{}, f.err
	}
	return f.row, nil
}

type plainSecrets struct{}

func (plainSecrets) Open(raw string) (string, error) { return raw, nil }

func newTestRouter(t *testing.T, settings fakeSettings, readTimeout time.Duration) *Router {
	t.Helper()
	return New(Config{
		Settings:    settings,
		Secrets:     plainSecrets{},
		ReadTimeout: readTimeout,
		Logger:      zerolog.Nop(),
	})
}

func ollamaSettings(endpoint string) storage.ProviderSettings {
	return storage.ProviderSettings{
		Provider:    "ollama",
		ModelName:   "llama3.2",
		APIEndpoint: endpoint,
		MaxTokens:   100,
	}
}

func TestChatEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var payload struct {
			Messages []providers.Message `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode upstream payload: %v", err)
		}
		if len(payload.Messages) != 1 || payload.Messages[0].Content != "hello" {
			t.Errorf("unexpected messages %+v", payload.Messages)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"role": "assistant", "content": "hi there"},
		})
	}))
	defer srv.Close()

	r := newTestRouter(t, fakeSettings{row: ollamaSettings(srv.URL)}, 5*time.Second)
	text, err := r.Chat(context.Background(), 1, []providers.Message{{Role: providers.RoleUser, Content: "hello"}})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if text != "hi there" {
		t.Fatalf("unexpected reply %q", text)
	}
}

func TestChatNotConfigured(t *testing.T) {
	r := newTestRouter(t, fakeSettings{err: storage.ErrNotFound}, time.Second)
	_, err := r.Chat(context.Background(), 1, []providers.Message{{Role: providers.RoleUser, Content: "hello"}})
	if !errors.Is(err, providers.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestChatEmptyEndpoint(t *testing.T) {
	r := newTestRouter(t, fakeSettings{row: storage.ProviderSettings{Provider: "openai"}}, time.Second)
	_, err := r.Chat(context.Background(), 1, []providers.Message{{Role: providers.RoleUser, Content: "hello"}})
	if !errors.Is(err, providers.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestChatRejectedDoesNotLeakKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key"}}`))
	}))
	defer srv.Close()

	key := "sk-very-secret-value"
	row := storage.ProviderSettings{
		Provider:    "openai",
		APIEndpoint: srv.URL,
		EncAPIKey:   &key,
	}
	r := newTestRouter(t, fakeSettings{row: row}, 5*time.Second)
	_, err := r.Chat(context.Background(), 1, []providers.Message{{Role: providers.RoleUser, Content: "hello"}})
	if !errors.Is(err, providers.ErrUpstreamRejected) {
		t.Fatalf("expected ErrUpstreamRejected, got %v", err)
	}

	var rejected *providers.RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected RejectedError, got %T", err)
	}
	if rejected.Status != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rejected.Status)
	}
	if strings.Contains(err.Error(), key) {
		t.Fatalf("error must not contain the api key: %v", err)
	}
}

func TestChatReadTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	r := newTestRouter(t, fakeSettings{row: ollamaSettings(srv.URL)}, 50*time.Millisecond)
	_, err := r.Chat(context.Background(), 1, []providers.Message{{Role: providers.RoleUser, Content: "hello"}})
	if !errors.Is(err, providers.ErrUpstreamTimeout) {
		t.Fatalf("expected ErrUpstreamTimeout, got %v", err)
	}
}

func TestChatUnavailable(t *testing.T) {
	// Grab a port that is guaranteed closed.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	r := newTestRouter(t, fakeSettings{row: ollamaSettings(addr)}, time.Second)
	_, err := r.Chat(context.Background(), 1, []providers.Message{{Role: providers.RoleUser, Content: "hello"}})
	if !errors.Is(err, providers.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestChatMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"done":true}`))
	}))
	defer srv.Close()

	r := newTestRouter(t, fakeSettings{row: ollamaSettings(srv.URL)}, 5*time.Second)
	_, err := r.Chat(context.Background(), 1, []providers.Message{{Role: providers.RoleUser, Content: "hello"}})
	if !errors.Is(err, providers.ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestTestConnectionProbe(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf [4096]byte
		n, _ := r.Body.Read(buf[:])
		gotBody = buf[:n]
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"role": "assistant", "content": "OK"},
		})
	}))
	defer srv.Close()

	r := newTestRouter(t, fakeSettings{}, 5*time.Second)
	reply, err := r.TestConnection(context.Background(), providers.Config{
		Provider: providers.ProviderOllama,
		Endpoint: srv.URL,
	})
	if err != nil {
		t.Fatalf("test connection: %v", err)
	}
	if reply != "OK" {
		t.Fatalf("unexpected reply %q", reply)
	}
	if !strings.Contains(string(gotBody), "Reply with only the word: OK") {
		t.Fatalf("probe message missing from upstream payload: %s", gotBody)
	}
}

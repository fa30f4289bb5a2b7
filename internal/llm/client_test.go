package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cognicore/labelrisk/pkg/labelrisk/internalerr"
)

type roundTrip func(*http.Request) *http.Response

func (rt roundTrip) RoundTrip(req *http.Request) (*http.Response, error) {
	return rt(req), nil
}

func respond(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func TestChat(t *testing.T) {
	client := NewClient("https://api.test/v1/chat/completions", "secret", "gpt-test", &http.Client{
		Transport: roundTrip(func(req *http.Request) *http.Response {
			if got := req.Header.Get("Authorization"); got != "Bearer secret" {
				t.Errorf("authorization header = %q", got)
			}
			var body chatRequest
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			if body.Model != "gpt-test" || len(body.Messages) != 2 || body.Messages[0].Role != "system" {
				t.Errorf("unexpected request %+v", body)
			}
			return respond(200, `{"choices":[{"message":{"role":"assistant","content":"hi"}}]}`)
		}),
	})
	out, err := client.Chat(context.Background(), "system", "user prompt")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if out != "hi" {
		t.Fatalf("unexpected chat output %s", out)
	}
	if client.Model() != "gpt-test" {
		t.Errorf("model = %s", client.Model())
	}
}

func TestChatErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"api error", 200, `{"error":{"message":"bad"}}`, internalerr.ErrUnavailable},
		{"http 500", 500, `oops`, internalerr.ErrUnavailable},
		{"http 401", 401, `{}`, internalerr.ErrUnavailable},
		{"no choices", 200, `{"choices":[]}`, internalerr.ErrMalformedResponse},
		{"not json", 200, `<html>`, internalerr.ErrMalformedResponse},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := NewClient("https://api.test/v1/chat/completions", "", "gpt-test", &http.Client{
				Transport: roundTrip(func(*http.Request) *http.Response { return respond(tc.status, tc.body) }),
			})
			if _, err := client.Chat(context.Background(), "s", "u"); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestChatNotConfigured(t *testing.T) {
	client := NewClient("", "", "gpt-test", nil)
	if _, err := client.Chat(context.Background(), "s", "u"); !errors.Is(err, internalerr.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestChatTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", "gpt-test", srv.Client())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Chat(ctx, "s", "u")
	if !errors.Is(err, internalerr.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestNewSelectsProvider(t *testing.T) {
	ctx := context.Background()

	if _, err := New(ctx, Settings{}); !errors.Is(err, internalerr.ErrNotConfigured) {
		t.Fatalf("empty settings: %v", err)
	}
	if _, err := New(ctx, Settings{Endpoint: "http://x", Provider: "mystery"}); !errors.Is(err, internalerr.ErrNotConfigured) {
		t.Fatalf("unknown provider: %v", err)
	}
	c, err := New(ctx, Settings{Endpoint: "http://x", Model: "m"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(*Client); !ok {
		t.Fatalf("default provider should be openai, got %T", c)
	}
	if (Settings{Provider: ProviderGemini, Endpoint: "http://x"}).Configured() {
		t.Error("gemini needs an API key")
	}
}

func TestGeminiChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "gemini-test") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"[{\"name\":\"water\"}]"}]}}]}`)
	}))
	defer srv.Close()

	c, err := New(context.Background(), Settings{
		Provider:   ProviderGemini,
		Endpoint:   srv.URL,
		APIKey:     "key",
		Model:      "gemini-test",
		HTTPClient: srv.Client(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := c.Chat(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if out != `[{"name":"water"}]` {
		t.Fatalf("unexpected output %q", out)
	}
}

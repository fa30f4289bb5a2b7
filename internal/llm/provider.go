package llm

import (
	"context"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/cognicore/labelrisk/pkg/labelrisk/internalerr"
)

// Provider names accepted by New.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Settings select and configure a chat backend.
type Settings struct {
	Provider   string
	Endpoint   string
	APIKey     string
	Model      string
	HTTPClient *http.Client
}

// Configured reports whether s names enough to attempt a call: an endpoint
// for OpenAI-compatible servers, an API key for Gemini.
func (s Settings) Configured() bool {
	switch strings.ToLower(s.Provider) {
	case ProviderGemini:
		return s.APIKey != ""
	default:
		return s.Endpoint != ""
	}
}

// New builds the ChatClient for s.Provider (default openai).
func New(ctx context.Context, s Settings) (ChatClient, error) {
	if !s.Configured() {
		return nil, eris.Wrap(internalerr.ErrNotConfigured, "llm: no endpoint or credential")
	}
	switch strings.ToLower(s.Provider) {
	case "", ProviderOpenAI:
		if s.Model == "" {
			return nil, eris.Wrap(internalerr.ErrNotConfigured, "llm: model required")
		}
		return NewClient(s.Endpoint, s.APIKey, s.Model, s.HTTPClient), nil
	case ProviderGemini:
		return NewGeminiClient(ctx, s.APIKey, s.Model, s.Endpoint, s.HTTPClient)
	default:
		return nil, eris.Wrapf(internalerr.ErrNotConfigured, "llm: unknown provider %q", s.Provider)
	}
}

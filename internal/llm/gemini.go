package llm

import (
	"context"
	"net/http"

	"github.com/rotisserie/eris"
	genai "google.golang.org/genai"

	"github.com/cognicore/labelrisk/pkg/labelrisk/internalerr"
)

// GeminiClient is a thin wrapper around the official genai client.
type GeminiClient struct {
	cli   *genai.Client
	model string
}

// NewGeminiClient builds a Gemini API client. baseURL overrides the API host
// and is empty in production.
func NewGeminiClient(ctx context.Context, apiKey, model, baseURL string, httpClient *http.Client) (*GeminiClient, error) {
	if apiKey == "" || model == "" {
		return nil, eris.Wrap(internalerr.ErrNotConfigured, "gemini: api key and model required")
	}
	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	cli, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, eris.Wrapf(internalerr.ErrNotConfigured, "gemini: %v", err)
	}
	return &GeminiClient{cli: cli, model: model}, nil
}

// Model returns the configured model name.
func (g *GeminiClient) Model() string { return g.model }

// Chat concatenates the system and user prompts and asks for JSON output.
func (g *GeminiClient) Chat(ctx context.Context, system, user string) (string, error) {
	full := system + "\n\n" + user
	temp := float32(0)
	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: full}}}},
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json", Temperature: &temp},
	)
	if err != nil {
		return "", eris.Wrapf(internalerr.Transport(err), "gemini: %v", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", eris.Wrap(internalerr.ErrMalformedResponse, "gemini: empty response")
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/cognicore/labelrisk/pkg/labelrisk/internalerr"
)

// ChatClient sends one system+user exchange and returns the reply text.
type ChatClient interface {
	Chat(ctx context.Context, system, user string) (string, error)
	Model() string
}

// Client calls an OpenAI-compatible chat completion endpoint.
type Client struct {
	BaseURL   string
	APIKey    string
	ModelName string

	HTTPClient *http.Client
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// NewClient creates an OpenAI-compatible client. A nil httpClient uses a
// default with a 30s ceiling; per-call deadlines come from ctx.
func NewClient(baseURL, apiKey, model string, httpClient *http.Client) *Client {
	return &Client{BaseURL: baseURL, APIKey: apiKey, ModelName: model, HTTPClient: httpClient}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.ModelName }

// Chat sends a deterministic (temperature 0) two-message exchange.
func (c *Client) Chat(ctx context.Context, system, user string) (string, error) {
	if c.BaseURL == "" || c.ModelName == "" {
		return "", eris.Wrap(internalerr.ErrNotConfigured, "llm: base URL and model required")
	}
	messages := []chatMessage{{Role: "system", Content: system}, {Role: "user", Content: user}}
	payload, err := c.send(ctx, messages)
	if err != nil {
		return "", err
	}
	if len(payload.Choices) == 0 {
		return "", eris.Wrap(internalerr.ErrMalformedResponse, "llm: empty response")
	}
	return payload.Choices[0].Message.Content, nil
}

func (c *Client) send(ctx context.Context, messages []chatMessage) (*chatResponse, error) {
	reqBody, err := json.Marshal(chatRequest{Model: c.ModelName, Messages: messages})
	if err != nil {
		return nil, eris.Wrap(err, "llm: encode request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, eris.Wrapf(internalerr.ErrNotConfigured, "llm: bad endpoint: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, eris.Wrapf(internalerr.Transport(err), "llm: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, eris.Wrapf(internalerr.ErrUnavailable, "llm: http %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var payload chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		if ctx.Err() != nil {
			return nil, eris.Wrapf(internalerr.Transport(ctx.Err()), "llm: %v", err)
		}
		return nil, eris.Wrapf(internalerr.ErrMalformedResponse, "llm: decode: %v", err)
	}
	if payload.Error != nil {
		return nil, eris.Wrapf(internalerr.ErrUnavailable, "llm error: %s", payload.Error.Message)
	}
	return &payload, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

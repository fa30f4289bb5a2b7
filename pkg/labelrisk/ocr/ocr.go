// Package ocr is the client side of the text extraction collaborator. The
// engine treats every failure here as "no text".
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

var (
	ErrOCRUnavailable = errors.New("ocr unavailable")
	ErrOCRTimeout     = errors.New("ocr timed out")
	ErrOCRAuthFailed  = errors.New("ocr authentication failed")
)

// Extractor turns an image into text.
type Extractor interface {
	Extract(ctx context.Context, image []byte) (string, error)
}

// HTTPExtractor posts raw image bytes to an OCR service that answers with
// {"text": "..."}.
type HTTPExtractor struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration

	HTTPClient *http.Client
}

type response struct {
	Text  string `json:"text"`
	Error string `json:"error"`
}

// Extract implements Extractor.
func (e *HTTPExtractor) Extract(ctx context.Context, image []byte) (string, error) {
	if e == nil || e.Endpoint == "" {
		return "", eris.Wrap(ErrOCRUnavailable, "ocr: no endpoint configured")
	}
	if len(image) == 0 {
		return "", nil
	}
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.Endpoint, bytes.NewReader(image))
	if err != nil {
		return "", eris.Wrapf(ErrOCRUnavailable, "ocr: %v", err)
	}
	req.Header.Set("Content-Type", http.DetectContentType(image))
	if e.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.APIKey)
	}

	resp, err := e.httpClient().Do(req)
	if err != nil {
		return "", eris.Wrapf(transportErr(err), "ocr: %v", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", eris.Wrapf(ErrOCRAuthFailed, "ocr: http %d", resp.StatusCode)
	case resp.StatusCode == http.StatusGatewayTimeout || resp.StatusCode == http.StatusRequestTimeout:
		return "", eris.Wrapf(ErrOCRTimeout, "ocr: http %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return "", eris.Wrapf(ErrOCRUnavailable, "ocr: http %d", resp.StatusCode)
	}

	var payload response
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&payload); err != nil {
		return "", eris.Wrapf(transportErr(err), "ocr: decode: %v", err)
	}
	if payload.Error != "" {
		return "", eris.Wrapf(ErrOCRUnavailable, "ocr: %s", payload.Error)
	}
	return strings.TrimSpace(payload.Text), nil
}

func (e *HTTPExtractor) httpClient() *http.Client {
	if e.HTTPClient != nil {
		return e.HTTPClient
	}
	return http.DefaultClient
}

func transportErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrOCRTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ErrOCRTimeout
	}
	return ErrOCRUnavailable
}

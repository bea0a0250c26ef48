package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var ErrGeneratorUnavailable = errors.New("text generator unavailable")

// TextGenerator produces an optional free-text elaboration for an
// alert body. Implementations may fail or time out; the compiler
// always has a deterministic fallback and never blocks on one.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// DeterministicGenerator is the default strategy: no external calls,
// no elaboration. It keeps the compiler's happy path identical whether
// or not an external model is configured.
type DeterministicGenerator struct{}

func (DeterministicGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return "", nil
}

// HTTPGenerator calls an external text model over HTTP with a strict
// timeout. Any failure is recoverable; callers fall back to the plan
// summary.
type HTTPGenerator struct {
	url    string
	apiKey string
	client *http.Client
}

func NewHTTPGenerator(url, apiKey string, timeout time.Duration) *HTTPGenerator {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPGenerator{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

type generateResponse struct {
	Text string `json:"text"`
}

func (g *HTTPGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.url == "" || g.apiKey == "" {
		return "", ErrGeneratorUnavailable
	}

	body, err := json.Marshal(generateRequest{Prompt: prompt})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneratorUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrGeneratorUnavailable, resp.StatusCode)
	}

	var out generateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneratorUnavailable, err)
	}
	return out.Text, nil
}

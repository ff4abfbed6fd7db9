// Package gemini calls the generative language REST API to produce chapter
// notes and MCQ sets when no admin-curated content exists.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"app/internal/model"

	"github.com/rs/zerolog"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// ErrAllKeysExhausted is returned once every configured API key has been
// rejected for quota or authorization in a single request cycle.
var ErrAllKeysExhausted = errors.New("all API keys exhausted")

// Client is a generative text client with rotation across multiple API keys:
// a quota error on one key moves to the next instead of failing the job.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     zerolog.Logger

	mu   sync.Mutex
	keys []string
	idx  int
}

// New creates a client over the given keys. At least one key is required for
// Generate to succeed.
func New(keys []string, modelName string, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		model:      modelName,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		logger:     logger.With().Str("service", "GeminiClient").Logger(),
		keys:       keys,
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Generate produces free-form text for the prompt, rotating keys on quota or
// authorization errors.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	c.mu.Lock()
	keys := append([]string(nil), c.keys...)
	start := c.idx
	c.mu.Unlock()

	if len(keys) == 0 {
		return "", ErrAllKeysExhausted
	}

	var lastErr error
	for attempt := 0; attempt < len(keys); attempt++ {
		keyPos := (start + attempt) % len(keys)
		text, err := c.generateWithKey(ctx, keys[keyPos], prompt)
		if err == nil {
			c.mu.Lock()
			c.idx = keyPos
			c.mu.Unlock()
			return text, nil
		}
		lastErr = err
		if !isRotatable(err) {
			return "", err
		}
		c.logger.Warn().Err(err).Int("key_index", keyPos).Msg("API key rejected, rotating")
	}
	return "", fmt.Errorf("%w: %v", ErrAllKeysExhausted, lastErr)
}

// GenerateMCQs asks for a JSON question list and decodes it.
func (c *Client) GenerateMCQs(ctx context.Context, prompt string, count int) ([]model.MCQItem, error) {
	full := fmt.Sprintf(
		"%s\n\nReturn exactly %d questions as a JSON array of objects with "+
			`keys "question", "options" (4 strings), "correct" (0-based index) and "explanation". `+
			"Return only the JSON array.", prompt, count)
	text, err := c.Generate(ctx, full)
	if err != nil {
		return nil, err
	}

	// Models wrap JSON in markdown fences more often than not.
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var items []model.MCQItem
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &items); err != nil {
		return nil, fmt.Errorf("decoding generated question list: %w", err)
	}
	return items, nil
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("generation API returned %d: %s", e.code, e.body)
}

func isRotatable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests ||
			se.code == http.StatusForbidden ||
			se.code == http.StatusUnauthorized
	}
	return false
}

func (c *Client) generateWithKey(ctx context.Context, key, prompt string) (string, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, key)
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling generation API: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("reading generation response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(data))}
	}

	var out generateResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("decoding generation response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("generation response contained no candidates")
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}

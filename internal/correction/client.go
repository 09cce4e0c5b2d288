// Package correction talks to the external text-correction service. The
// rest of the program only sees ordered comment texts in, ordered corrected
// texts out; transport, auth, batching, and retries all live here.
package correction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"neospeller/internal/interpolation"
	"neospeller/internal/worker"
)

// ErrBadResponse marks a malformed or incomplete service response: missing
// choices, unparseable content, or a comment set that does not echo every
// key we sent. Partial results are never returned.
var ErrBadResponse = errors.New("malformed correction response")

const (
	defaultBaseURL   = "https://api.openai.com"
	defaultBatchSize = 20
	maxRetries       = 3
)

// Options configures a Client.
type Options struct {
	APIKey  string
	Model   string
	BaseURL string
	// Language is the human-readable language name used in the prompt.
	Language string
	// BatchSize caps how many comments go into a single request.
	BatchSize int
}

// Client corrects comment text through the OpenAI chat completions API.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	language   string
	batchSize  int
	httpClient *http.Client
}

// NewClient creates a correction client. Zero-value options fall back to
// defaults; the API key is required at request time.
func NewClient(opts Options) *Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Client{
		apiKey:    opts.APIKey,
		model:     opts.Model,
		baseURL:   baseURL,
		language:  opts.Language,
		batchSize: batchSize,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// --- chat completions request/response types ---

type chatRequest struct {
	Model               string          `json:"model"`
	Messages            []chatMessage   `json:"messages"`
	MaxCompletionTokens int             `json:"max_completion_tokens,omitempty"`
	Temperature         float64         `json:"temperature"`
	ResponseFormat      *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *apiError    `json:"error,omitempty"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// commentSet is the wire format shared by request and response: comment
// texts keyed by their 1-based ordinal, which pins the order across the
// round trip.
type commentSet struct {
	Comments map[string]string `json:"comments"`
}

// Correct sends the ordered comment texts for correction and returns the
// corrected texts in the same order. Texts are chunked into batches; if any
// batch fails the whole call fails, so callers never see partial results.
func (c *Client) Correct(ctx context.Context, texts []string) ([]string, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if c.apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY is not set")
	}

	results := make([]string, 0, len(texts))
	batches := worker.Batch(texts, c.batchSize)
	for i, batch := range batches {
		corrected, err := c.correctBatch(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("correct batch %d/%d: %w", i+1, len(batches), err)
		}
		results = append(results, corrected...)
	}
	return results, nil
}

func (c *Client) correctBatch(ctx context.Context, texts []string) ([]string, error) {
	// Shield format verbs and identifiers before the text leaves the
	// process; the prompt alone cannot guarantee they come back intact.
	protected := make([]string, len(texts))
	mappings := make([][]interpolation.Mapping, len(texts))
	for i, t := range texts {
		protected[i], mappings[i] = interpolation.Protect(t)
	}

	payload := commentSet{Comments: make(map[string]string, len(protected))}
	for i, t := range protected {
		payload.Comments[strconv.Itoa(i+1)] = t
	}
	userContent, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal comments: %w", err)
	}

	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt(c.language)},
			{Role: "user", Content: string(userContent)},
		},
		MaxCompletionTokens: 2000,
		Temperature:         0.5,
		ResponseFormat:      &responseFormat{Type: "json_object"},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal correction request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*2) * time.Second
			log.Warn().Int("attempt", attempt+1).Dur("backoff", backoff).Msg("Retrying correction")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		corrected, err := c.doRequest(ctx, bodyBytes, len(texts))
		if err == nil {
			for i := range corrected {
				corrected[i] = interpolation.Restore(corrected[i], mappings[i])
			}
			return corrected, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// Only transport failures and throttling are worth retrying; a
		// rejected request or malformed answer will not improve.
		var te *transientError
		if !errors.As(err, &te) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("correction failed after %d attempts: %w", maxRetries, lastErr)
}

// transientError marks failures that may succeed on retry.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func (c *Client) doRequest(ctx context.Context, bodyBytes []byte, want int) ([]string, error) {
	url := c.baseURL + "/v1/chat/completions"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &transientError{err: fmt.Errorf("API call: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &transientError{err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &transientError{err: fmt.Errorf("service unavailable (status %d): %s", resp.StatusCode, string(respBody))}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var apiResp chatResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if apiResp.Error != nil {
		return nil, fmt.Errorf("API error [%s]: %s", apiResp.Error.Type, apiResp.Error.Message)
	}
	if len(apiResp.Choices) == 0 {
		return nil, fmt.Errorf("no choices: %w", ErrBadResponse)
	}

	return parseCommentSet(apiResp.Choices[0].Message.Content, want)
}

// parseCommentSet decodes the model's JSON content and reassembles the
// ordered result. Every ordinal key must be present and no extras allowed —
// a short or reshuffled answer would desynchronize reinsertion.
func parseCommentSet(content string, want int) ([]string, error) {
	var set commentSet
	if err := json.Unmarshal([]byte(content), &set); err != nil {
		return nil, fmt.Errorf("unmarshal comment content: %v: %w", err, ErrBadResponse)
	}
	if len(set.Comments) != want {
		return nil, fmt.Errorf("sent %d comments, got %d back: %w", want, len(set.Comments), ErrBadResponse)
	}

	results := make([]string, want)
	for i := 0; i < want; i++ {
		text, ok := set.Comments[strconv.Itoa(i+1)]
		if !ok {
			return nil, fmt.Errorf("comment %d missing from response: %w", i+1, ErrBadResponse)
		}
		results[i] = text
	}
	return results, nil
}

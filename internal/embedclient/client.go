// Package embedclient computes fixed-dimension embedding vectors against an
// OpenAI-compatible embeddings endpoint, tolerating "input too large" errors
// from the model via split-and-average recovery.
package embedclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/aborroy/alfresco-lake-bridge/internal/errs"
)

const (
	safetyCapChars   = 3000
	queryInstruction = "Represent this sentence for searching relevant passages: "
)

// Client calls an OpenAI-compatible /embeddings endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// Option configures Client construction.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client (useful for tests).
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// New constructs an embedding client.
func New(baseURL, apiKey, model string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

var horizontalWhitespace = regexp.MustCompile(`[ \t\v\f\r]+`)
var newlineRuns = regexp.MustCompile(`\n{3,}`)

// sanitize drops NULs, collapses horizontal whitespace, compresses runs of
// more than two newlines down to exactly two, and trims the result.
func sanitize(text string) string {
	text = strings.ReplaceAll(text, "\x00", "")
	text = horizontalWhitespace.ReplaceAllString(text, " ")
	text = newlineRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func isInputTooLargeError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "is too large") || strings.Contains(msg, "physical batch size")
}

// callOnce sends a single embedding request for exactly one text and returns
// its vector.
func (c *Client) callOnce(ctx context.Context, text string) ([]float64, error) {
	body, err := json.Marshal(embeddingRequest{Input: []string{text}, Model: c.model})
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", errs.ErrTransientBackend)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		var errBody struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		if errBody.Error.Message != "" {
			return nil, fmt.Errorf("embedding model returned %s: %s", resp.Status, errBody.Error.Message)
		}
		if e := errs.Classify(resp.StatusCode); e != nil {
			return nil, fmt.Errorf("embedding model returned %s: %w", resp.Status, e)
		}
		return nil, fmt.Errorf("embedding model returned unexpected status %s", resp.Status)
	}
	var out embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}
	if len(out.Data) == 0 {
		return nil, fmt.Errorf("embedding model returned no vectors")
	}
	return out.Data[0].Embedding, nil
}

// Embed computes a vector for text, sanitizing and capping its length, and
// recovering from "input too large" errors by splitting and averaging.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	return c.embedWithPrefix(ctx, text, "")
}

// EmbedQuery is like Embed but prepends the asymmetric-protocol instruction
// prefix used for query-side embeddings.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float64, error) {
	return c.embedWithPrefix(ctx, text, queryInstruction)
}

func (c *Client) embedWithPrefix(ctx context.Context, text, prefix string) ([]float64, error) {
	clean := sanitize(text)
	if len(clean) > safetyCapChars {
		clean = clean[:safetyCapChars]
	}
	return c.embedRecovering(ctx, prefix+clean, clean)
}

// embedRecovering attempts a direct call with sent (which may carry a query
// prefix), falling back to split-and-average keyed on stored (the
// prefix-free text) when the model rejects the input as too large.
func (c *Client) embedRecovering(ctx context.Context, sent, stored string) ([]float64, error) {
	vec, err := c.callOnce(ctx, sent)
	if err == nil {
		return vec, nil
	}
	if !isInputTooLargeError(err) {
		return nil, err
	}

	if len(stored) <= 200 {
		trimmed := trimWorstParts(stored)
		if trimmed == stored {
			n := len(stored) / 2
			if n < 1 {
				n = 1
			}
			trimmed = stored[:n]
		}
		return c.callOnce(ctx, trimmed)
	}

	left, right := splitAtSemanticBoundary(stored)
	if strings.TrimSpace(left) == "" {
		return c.embedRecovering(ctx, right, right)
	}
	if strings.TrimSpace(right) == "" {
		return c.embedRecovering(ctx, left, left)
	}
	leftVec, err := c.embedRecovering(ctx, left, left)
	if err != nil {
		return nil, err
	}
	rightVec, err := c.embedRecovering(ctx, right, right)
	if err != nil {
		return nil, err
	}
	if len(leftVec) != len(rightVec) {
		return nil, fmt.Errorf("split embedding halves produced mismatched dimensions: %w", errs.ErrInvariantViolation)
	}
	mean := make([]float64, len(leftVec))
	for i := range mean {
		mean[i] = (leftVec[i] + rightVec[i]) / 2
	}
	return mean, nil
}

var longToken = regexp.MustCompile(`\S{81,}`)

// trimWorstParts drops whitespace-separated tokens longer than 80 chars.
func trimWorstParts(text string) string {
	return strings.Join(strings.Fields(longToken.ReplaceAllString(text, "")), " ")
}

// splitAtSemanticBoundary splits near the midpoint of text, preferring a
// newline, then a period, then a space, within 120 chars of the midpoint.
func splitAtSemanticBoundary(text string) (string, string) {
	mid := len(text) / 2
	lo := mid - 120
	if lo < 0 {
		lo = 0
	}
	hi := mid + 120
	if hi > len(text) {
		hi = len(text)
	}
	window := text[lo:hi]

	boundary := -1
	if idx := strings.LastIndex(window, "\n"); idx >= 0 {
		boundary = lo + idx + 1
	} else if idx := strings.LastIndex(window, "."); idx >= 0 {
		boundary = lo + idx + 1
	} else if idx := strings.LastIndex(window, " "); idx >= 0 {
		boundary = lo + idx + 1
	} else {
		boundary = mid
	}
	return text[:boundary], text[boundary:]
}

// EmbedChunks embeds a batch of chunk texts, optionally prepending a
// document context block to the text sent to the model only. It returns
// one vector per chunk; the caller's chunk texts are not modified.
func (c *Client) EmbedChunks(ctx context.Context, chunks []string, documentContext string) ([][]float64, error) {
	vectors := make([][]float64, len(chunks))
	for i, chunk := range chunks {
		stored := sanitize(chunk)
		if len(stored) > safetyCapChars {
			stored = stored[:safetyCapChars]
		}
		sent := stored
		if documentContext != "" {
			sent = documentContext + "\n\n" + stored
		}
		vec, err := c.embedRecovering(ctx, sent, stored)
		if err != nil {
			return nil, fmt.Errorf("embed chunk %d: %w", i, err)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

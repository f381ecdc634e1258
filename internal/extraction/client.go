// Package extraction is a typed wrapper over the external text-extraction
// service: multipart upload returning transformed bytes, and a cached,
// fail-open view of which source→target mimetype transforms it supports.
package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/aborroy/alfresco-lake-bridge/internal/errs"
)

func decodeJSON(body io.Reader, v any) error {
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("decode engine config: %w", err)
	}
	return nil
}

const engineConfigTTL = 5 * time.Minute

// Client uploads content to the extraction service and caches its engine
// configuration.
type Client struct {
	baseURL    string
	httpClient *http.Client

	cfgMu      sync.Mutex
	cfgExpires time.Time
	cfg        engineConfig
}

// Option configures Client construction.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client (useful for tests).
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// New constructs an extraction client.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// engineConfig is the supported source→target matrix the extraction
// service advertises.
type engineConfig struct {
	Transformers []struct {
		SourceMimetype string   `json:"sourceMimetype"`
		TargetMimetype []string `json:"targetMimetype"`
	} `json:"transformers"`
}

func (c *Client) fetchEngineConfig(ctx context.Context) (engineConfig, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/transform/config", nil)
	if err != nil {
		return engineConfig{}, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return engineConfig{}, fmt.Errorf("fetch engine config: %w", errs.ErrTransientBackend)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return engineConfig{}, fmt.Errorf("engine config returned status %s", resp.Status)
	}
	var cfg engineConfig
	if err := decodeJSON(resp.Body, &cfg); err != nil {
		return engineConfig{}, err
	}
	return cfg, nil
}

// Ping verifies the extraction service is reachable by fetching its engine
// configuration, bypassing the cache.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.fetchEngineConfig(ctx)
	return err
}

// IsSupported reports whether the engine configuration advertises a
// src→tgt transform, consulting a 5-minute cache. A lookup failure is
// fail-open: the transform is allowed.
func (c *Client) IsSupported(ctx context.Context, src, tgt string) bool {
	c.cfgMu.Lock()
	needsRefresh := time.Now().After(c.cfgExpires)
	cfg := c.cfg
	c.cfgMu.Unlock()

	if needsRefresh {
		fresh, err := c.fetchEngineConfig(ctx)
		if err != nil {
			return true
		}
		c.cfgMu.Lock()
		c.cfg = fresh
		c.cfgExpires = time.Now().Add(engineConfigTTL)
		cfg = fresh
		c.cfgMu.Unlock()
	}

	for _, t := range cfg.Transformers {
		if t.SourceMimetype != src {
			continue
		}
		for _, target := range t.TargetMimetype {
			if target == tgt {
				return true
			}
		}
	}
	return false
}

// Transform uploads a resource's content and returns the transformed bytes,
// with a request timeout expressed in milliseconds on the query string.
func (c *Client) Transform(ctx context.Context, content io.Reader, sourceMimetype, targetMimetype, targetExtension string, timeoutMs int) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "content")
	if err != nil {
		return nil, fmt.Errorf("build multipart file part: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("copy content into multipart request: %w", err)
	}
	_ = writer.WriteField("sourceMimetype", sourceMimetype)
	_ = writer.WriteField("targetMimetype", targetMimetype)
	_ = writer.WriteField("targetExtension", targetExtension)
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	q := url.Values{}
	q.Set("timeout", strconv.Itoa(timeoutMs))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transform?"+q.Encode(), &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transform request failed: %w", errs.ErrTransientBackend)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		if e := errs.Classify(resp.StatusCode); e != nil {
			return nil, fmt.Errorf("transform returned %s: %w", resp.Status, e)
		}
		return nil, fmt.Errorf("transform returned unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// TransformToText is a convenience wrapper targeting text/plain with UTF-8
// decoding of the response.
func (c *Client) TransformToText(ctx context.Context, content io.Reader, sourceMimetype string, timeoutMs int) (string, error) {
	out, err := c.Transform(ctx, content, sourceMimetype, "text/plain", "txt", timeoutMs)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Package chatclient generates an answer from a system prompt and a user
// prompt, selecting between an OpenAI and an Anthropic backend by
// configuration, and reports the model identifier that answered.
package chatclient

import (
	"context"
	"net/http"
	"strings"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	openaisdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

const defaultMaxTokens int64 = 1024

// Client generates chat completions from one of two backends.
type Client struct {
	provider string
	model    string

	openai    openaisdk.Client
	anthropic anthropicsdk.Client
}

// Config selects and configures the backend.
type Config struct {
	Provider string // "openai" or "anthropic"
	BaseURL  string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// New constructs a chat client for the configured provider.
func New(cfg Config) *Client {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = "openai"
	}

	c := &Client{provider: provider, model: cfg.Model}

	switch provider {
	case "anthropic":
		opts := []anthropicoption.RequestOption{
			anthropicoption.WithAPIKey(cfg.APIKey),
			anthropicoption.WithHTTPClient(httpClient),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, anthropicoption.WithBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")))
		}
		c.anthropic = anthropicsdk.NewClient(opts...)
	default:
		opts := []option.RequestOption{
			option.WithAPIKey(cfg.APIKey),
			option.WithHTTPClient(httpClient),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")))
		}
		c.openai = openaisdk.NewClient(opts...)
	}
	return c
}

// Generate produces an answer for a system/user prompt pair, returning the
// model identifier that answered.
func (c *Client) Generate(ctx context.Context, systemPrompt, userPrompt string) (answer, model string, err error) {
	if c.provider == "anthropic" {
		return c.generateAnthropic(ctx, systemPrompt, userPrompt)
	}
	return c.generateOpenAI(ctx, systemPrompt, userPrompt)
}

func (c *Client) generateOpenAI(ctx context.Context, systemPrompt, userPrompt string) (string, string, error) {
	params := openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(c.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(systemPrompt),
			openaisdk.UserMessage(userPrompt),
		},
	}
	comp, err := c.openai.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", "", err
	}
	if len(comp.Choices) == 0 {
		return "", string(params.Model), nil
	}
	return comp.Choices[0].Message.Content, string(params.Model), nil
}

func (c *Client) generateAnthropic(ctx context.Context, systemPrompt, userPrompt string) (string, string, error) {
	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(c.model),
		MaxTokens: defaultMaxTokens,
		System: []anthropicsdk.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropicsdk.MessageParam{
			anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(userPrompt)),
		},
	}
	resp, err := c.anthropic.Messages.New(ctx, params)
	if err != nil {
		return "", "", err
	}
	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), string(params.Model), nil
}

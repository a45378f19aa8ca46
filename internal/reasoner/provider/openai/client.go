package openai

import (
	"context"
	"fmt"
	"os"

	goopenai "github.com/sashabaranov/go-openai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = goopenai.GPT4o

// Client implements the OpenAI chat completion API as a reasoner provider.
type Client struct {
	client *goopenai.Client
	model  string
}

// NewClient creates an OpenAI provider client. An empty apiKey falls back to
// the OPENAI_API_KEY environment variable.
func NewClient(apiKey, model string) (*Client, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("openai: API key not provided and OPENAI_API_KEY not set")
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		client: goopenai.NewClient(apiKey),
		model:  model,
	}, nil
}

// Provider returns the provider name.
func (c *Client) Provider() string { return "openai" }

// Complete sends a single-turn chat completion and returns the first choice.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: system},
			{Role: goopenai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: response contained no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

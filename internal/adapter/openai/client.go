// Package openaiadapter wraps the OpenAI chat completions API behind the
// domain Generator interface.
package openaiadapter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"

	"github.com/danbi-studio/disaster-sim-service/internal/config"
	"github.com/danbi-studio/disaster-sim-service/internal/domain"
)

// Client calls the chat completions API with a fixed model configuration.
// It implements domain.Generator.
type Client struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int64
	logger      *slog.Logger
}

// NewClient builds a Client from config. OPENAI_BASE_URL, when set, points
// the client at a compatible backend such as a local inference server.
func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	opts := []option.RequestOption{option.WithAPIKey(cfg.OpenAIAPIKey)}
	if cfg.OpenAIBaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.OpenAIBaseURL))
	}

	return &Client{
		client:      openai.NewClient(opts...),
		model:       cfg.ModelName,
		temperature: cfg.ModelTemperature,
		maxTokens:   cfg.ModelMaxTokens,
		logger:      logger,
	}
}

func (c *Client) params(system, user string) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(c.temperature),
		MaxTokens:   openai.Int(c.maxTokens),
	}
}

// Invoke runs a single completion and returns the full response text.
func (c *Client) Invoke(ctx context.Context, system, user string) (string, error) {
	completion, err := c.client.Chat.Completions.New(ctx, c.params(system, user))
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty response")
	}
	return completion.Choices[0].Message.Content, nil
}

// Stream runs a completion and returns the response as incremental text
// fragments. Empty delta chunks are skipped.
func (c *Client) Stream(ctx context.Context, system, user string) (domain.TextStream, error) {
	stream := c.client.Chat.Completions.NewStreaming(ctx, c.params(system, user))
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("chat completion stream: %w", err)
	}
	return &textStream{stream: stream}, nil
}

// textStream adapts the SSE chunk stream to plain text fragments.
type textStream struct {
	stream  *ssestream.Stream[openai.ChatCompletionChunk]
	current string
}

func (s *textStream) Next() bool {
	for s.stream.Next() {
		chunk := s.stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			s.current = delta
			return true
		}
	}
	return false
}

func (s *textStream) Current() string {
	return s.current
}

func (s *textStream) Err() error {
	if err := s.stream.Err(); err != nil {
		return fmt.Errorf("chat completion stream: %w", err)
	}
	return nil
}

func (s *textStream) Close() error {
	return s.stream.Close()
}

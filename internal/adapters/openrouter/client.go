package openrouter

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/bnema/hubwatch/internal/domain"
	"github.com/bnema/hubwatch/internal/ports"
)

const defaultBaseURL = "https://openrouter.ai/api/v1"

type Config struct {
	APIKey  string
	BaseURL string

	// GeneratorModel phrases challenges, verdicts, and summaries.
	// ResponderModel is the opposing side of a battle.
	GeneratorModel string
	ResponderModel string
}

// Client talks to an OpenRouter-compatible chat-completions endpoint and
// implements every LLM collaborator port.
type Client struct {
	client         openai.Client
	generatorModel string
	responderModel string
	available      bool
}

var (
	_ ports.ChallengeGenerator = (*Client)(nil)
	_ ports.Responder          = (*Client)(nil)
	_ ports.Judge              = (*Client)(nil)
	_ ports.Summarizer         = (*Client)(nil)
)

func New(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(baseURL),
	}

	generatorModel := cfg.GeneratorModel
	if generatorModel == "" {
		generatorModel = "google/gemini-2.5-flash-lite"
	}
	responderModel := cfg.ResponderModel
	if responderModel == "" {
		responderModel = generatorModel
	}

	return &Client{
		client:         openai.NewClient(opts...),
		generatorModel: generatorModel,
		responderModel: responderModel,
		available:      cfg.APIKey != "",
	}
}

// Available reports whether an API key is configured. Battle and summary
// features degrade gracefully when it is not.
func (c *Client) Available() bool {
	return c.available
}

func (c *Client) Generate(ctx context.Context) (domain.Challenge, error) {
	challenges, err := c.GenerateBank(ctx, 1)
	if err != nil {
		return domain.Challenge{}, err
	}
	if len(challenges) == 0 {
		return domain.Challenge{}, fmt.Errorf("%w: empty challenge batch", domain.ErrGeneration)
	}

	return challenges[0], nil
}

func (c *Client) GenerateBank(ctx context.Context, count int) ([]domain.Challenge, error) {
	raw, err := c.complete(ctx, c.generatorModel, "", bankPrompt(count))
	if err != nil {
		return nil, err
	}

	challenges, err := parseChallenges(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: parse challenge batch: %v", domain.ErrGeneration, err)
	}

	return challenges, nil
}

func (c *Client) Answer(ctx context.Context, question string) (string, error) {
	return c.complete(ctx, c.responderModel, responderSystemPrompt, question)
}

func (c *Client) Verdict(ctx context.Context, challenge domain.Challenge, answer string) (string, error) {
	return c.complete(ctx, c.generatorModel, "", verdictPrompt(challenge, answer))
}

func (c *Client) Summarize(ctx context.Context, id domain.ModelID, readme string) (string, error) {
	return c.complete(ctx, c.generatorModel, "", summaryPrompt(id, readme))
}

func (c *Client) complete(ctx context.Context, model, systemPrompt, userPrompt string) (string, error) {
	if !c.available {
		return "", fmt.Errorf("%w: no API key configured", domain.ErrGeneration)
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	messages = append(messages, openai.UserMessage(userPrompt))

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    model,
		Messages: messages,
	})
	if err != nil {
		// Keep the cause in the chain so a context deadline stays
		// recognizable through the battle teardown.
		return "", fmt.Errorf("%w: chat completion: %w", domain.ErrGeneration, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", domain.ErrGeneration)
	}

	return resp.Choices[0].Message.Content, nil
}

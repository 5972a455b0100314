package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/santiagomed/chef/logger"
	tellm "github.com/santiagomed/tellm/sdk"
	"github.com/sashabaranov/go-openai"
)

var (
	ErrUnauthorized = errors.New("unauthorized: invalid API key")
	ErrRateLimited  = errors.New("rate limited by provider")
	ErrUpstream     = errors.New("provider server error")
)

// OpenAIClient talks to any OpenAI compatible chat endpoint (Groq included).
type OpenAIClient struct {
	openAIClient *openai.Client
	config       *LlmConfig
	tellmClient  *tellm.Client
	logger       logger.Logger
}

func newOpenAI(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

// NewOpenAIClient creates a chat completion client.
func NewOpenAIClient(cfg *LlmConfig, logger logger.Logger) (LlmClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("LLM API key is required")
	}
	c := &OpenAIClient{
		openAIClient: newOpenAI(cfg.APIKey, cfg.BaseURL),
		config:       cfg,
		logger:       logger,
	}
	if cfg.TellmURL != "" {
		c.tellmClient = tellm.NewClient(cfg.TellmURL)
	}
	return c, nil
}

func (c *OpenAIClient) GetCompletion(ctx context.Context, prompt, responseType string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.config.ModelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: getSystemPrompt(),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	}
	if responseType != "" && responseType != "text" {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatType(responseType)}
	}

	resp, err := c.openAIClient.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", mapAPIError(err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from model")
	}
	res := resp.Choices[0].Message.Content
	if c.tellmClient != nil {
		err = c.tellmClient.Log(c.config.BatchID, prompt, res)
		if err != nil {
			c.logger.WithField("warning", err).Warn("failed to log to tellm")
		}
	}

	return res, nil
}

// OpenAIImageClient generates step images through the images API.
type OpenAIImageClient struct {
	openAIClient *openai.Client
	config       *ImageConfig
	logger       logger.Logger
}

func NewOpenAIImageClient(cfg *ImageConfig, logger logger.Logger) (ImageGenerator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	return &OpenAIImageClient{
		openAIClient: newOpenAI(cfg.APIKey, cfg.BaseURL),
		config:       cfg,
		logger:       logger,
	}, nil
}

func (c *OpenAIImageClient) GenerateImage(ctx context.Context, prompt string) (*GeneratedImage, error) {
	resp, err := c.openAIClient.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          c.config.Model,
		N:              1,
		Size:           c.config.Size,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		return nil, mapAPIError(err)
	}

	img := &GeneratedImage{Created: resp.Created}
	for _, d := range resp.Data {
		img.Data = append(img.Data, GeneratedURL{URL: d.URL})
	}
	c.logger.WithField("images", len(img.Data)).Debug("image generated")
	return img, nil
}

func mapAPIError(err error) error {
	e := &openai.APIError{}
	if errors.As(err, &e) {
		switch {
		case e.HTTPStatusCode == http.StatusUnauthorized:
			return fmt.Errorf("%w: %s", ErrUnauthorized, e.Message)
		case e.HTTPStatusCode == http.StatusTooManyRequests:
			// rate limiting or engine overload
			return fmt.Errorf("%w: %s", ErrRateLimited, e.Message)
		case e.HTTPStatusCode >= http.StatusInternalServerError:
			return fmt.Errorf("%w: %s", ErrUpstream, e.Message)
		default:
			return fmt.Errorf("API error: %w", err)
		}
	}
	return fmt.Errorf("request failed: %w", err)
}

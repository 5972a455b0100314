package llm

import "context"

type LlmClient interface {
	GetCompletion(ctx context.Context, prompt, responseType string) (string, error)
}

// ImageGenerator produces images from a text prompt.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (*GeneratedImage, error)
}

// GeneratedImage is returned as-is by the image endpoint.
type GeneratedImage struct {
	Created int64          `json:"created"`
	Data    []GeneratedURL `json:"data"`
}

type GeneratedURL struct {
	URL string `json:"url"`
}

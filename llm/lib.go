package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santiagomed/chef/recipe"
)

var (
	// ErrInvalidRecipeJSON means the model answered, but not with a usable recipe.
	ErrInvalidRecipeJSON = errors.New("invalid JSON format received from AI")
	ErrNoImage           = errors.New("no image returned")
)

type LlmConfig struct {
	APIKey    string
	BaseURL   string
	ModelName string
	BatchID   string
	TellmURL  string
}

type ImageConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Size    string
}

// GenerateRecipe asks the model for a recipe that uses the given ingredients.
func GenerateRecipe(ctx context.Context, client LlmClient, ingredients []string) (*recipe.Recipe, error) {
	prompt := getRecipePrompt(ingredients)
	response, err := client.GetCompletion(ctx, prompt, "json_object")
	if err != nil {
		return nil, fmt.Errorf("failed to generate recipe: %w", err)
	}

	var r recipe.Recipe
	if err := json.Unmarshal([]byte(extractJSON(response)), &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecipeJSON, err)
	}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecipeJSON, err)
	}

	return &r, nil
}

// GenerateStepImage illustrates a single instruction step.
func GenerateStepImage(ctx context.Context, gen ImageGenerator, title string) (*GeneratedImage, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errors.New("step title is required")
	}
	img, err := gen.GenerateImage(ctx, getStepImagePrompt(title))
	if err != nil {
		return nil, fmt.Errorf("failed to generate image for %q: %w", title, err)
	}
	if len(img.Data) == 0 || img.Data[0].URL == "" {
		return nil, ErrNoImage
	}
	return img, nil
}

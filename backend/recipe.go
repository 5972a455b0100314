package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/santiagomed/chef/logger"
	"github.com/santiagomed/chef/recipe"
	"github.com/santiagomed/chef/utils"
)

var ErrRecipeUnavailable = errors.New("recipe unavailable")

type GenerateRequest struct {
	Ingredients string `json:"ingredients"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// RecipeClient talks to the recipe generation endpoint.
type RecipeClient struct {
	endpoint   string
	httpClient *http.Client
	logger     logger.Logger
}

func NewRecipeClient(baseURL string, timeout time.Duration, l logger.Logger) *RecipeClient {
	if l == nil {
		l = logger.NewNullLogger()
	}
	return &RecipeClient{
		endpoint:   baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     l,
	}
}

// Generate asks the service for a recipe using the given ingredients.
func (c *RecipeClient) Generate(ctx context.Context, ingredients []string) (*recipe.Recipe, error) {
	if len(ingredients) == 0 {
		return nil, fmt.Errorf("%w: no ingredients", ErrRecipeUnavailable)
	}

	jsonData, err := json.Marshal(GenerateRequest{Ingredients: utils.JoinIngredients(ingredients)})
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.WithField("ingredients", ingredients).Info("requesting recipe")
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecipeUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: error reading response body: %v", ErrRecipeUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp ErrorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			return nil, fmt.Errorf("%w: %s: %s", ErrRecipeUnavailable, resp.Status, errResp.Error)
		}
		return nil, fmt.Errorf("%w: %s", ErrRecipeUnavailable, resp.Status)
	}

	var r recipe.Recipe
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("%w: error unmarshaling response: %v", ErrRecipeUnavailable, err)
	}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecipeUnavailable, err)
	}

	c.logger.WithField("recipe", r.Name).WithField("duration", time.Since(start).String()).Info("recipe received")
	return &r, nil
}

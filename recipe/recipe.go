// Package recipe holds the data exchanged with the recipe and image services.
package recipe

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrInvalidRecipe = errors.New("invalid recipe")

// Instruction is one recipe step. Step is a display label; callers address
// instructions by their position in the list.
type Instruction struct {
	Step    int      `json:"step"`
	Title   string   `json:"title"`
	Details []string `json:"details"`
}

type NutritionInfo struct {
	Calories      string `json:"calories"`
	Protein       string `json:"protein"`
	Fat           string `json:"fat"`
	SaturatedFat  string `json:"saturated_fat"`
	Cholesterol   string `json:"cholesterol"`
	Sodium        string `json:"sodium"`
	Carbohydrates string `json:"carbohydrates"`
	Fiber         string `json:"fiber"`
	Sugar         string `json:"sugar"`
}

// Recipe mirrors the JSON document returned by the generate endpoint.
type Recipe struct {
	Name              string        `json:"recipe_name"`
	Servings          int           `json:"servings"`
	PrepTime          string        `json:"prep_time"`
	CookTime          string        `json:"cook_time"`
	TotalTime         string        `json:"total_time"`
	Ingredients       []string      `json:"ingredients"`
	Instructions      []Instruction `json:"instructions"`
	TipsAndVariations []string      `json:"tips_and_variations"`
	Nutrition         NutritionInfo `json:"nutrition_info_per_serving"`
}

// Validate checks the parts of a recipe the image pipeline depends on.
func (r *Recipe) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("%w: missing recipe_name", ErrInvalidRecipe)
	}
	return ValidateInstructions(r.Instructions)
}

func ValidateInstructions(instructions []Instruction) error {
	seen := make(map[int]struct{}, len(instructions))
	for i, in := range instructions {
		if in.Step < 1 {
			return fmt.Errorf("%w: instruction %d has step %d", ErrInvalidRecipe, i, in.Step)
		}
		if in.Title == "" {
			return fmt.Errorf("%w: instruction %d has no title", ErrInvalidRecipe, i)
		}
		if _, ok := seen[in.Step]; ok {
			return fmt.Errorf("%w: duplicate step %d", ErrInvalidRecipe, in.Step)
		}
		seen[in.Step] = struct{}{}
	}
	return nil
}

// ImageResult is the outcome of one step image request. The zero value is
// absent.
type ImageResult struct {
	URL string
}

// Absent is the result recorded for any failed image request.
var Absent = ImageResult{}

func Present(url string) ImageResult {
	return ImageResult{URL: url}
}

func (r ImageResult) Ok() bool {
	return r.URL != ""
}

func (r ImageResult) MarshalJSON() ([]byte, error) {
	if !r.Ok() {
		return []byte("null"), nil
	}
	return json.Marshal(r.URL)
}

func (r *ImageResult) UnmarshalJSON(data []byte) error {
	var url *string
	if err := json.Unmarshal(data, &url); err != nil {
		return err
	}
	if url == nil {
		*r = Absent
		return nil
	}
	*r = Present(*url)
	return nil
}

func (r ImageResult) String() string {
	if !r.Ok() {
		return "<absent>"
	}
	return r.URL
}

package recipe

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRecipe = `{
	"recipe_name": "Soft Boiled Eggs",
	"servings": 2,
	"prep_time": "2 minutes",
	"cook_time": "6 minutes",
	"total_time": "8 minutes",
	"ingredients": ["4 eggs", "water", "salt"],
	"instructions": [
		{"step": 1, "title": "Boil water", "details": ["Fill a pot.", "Bring to a boil."]},
		{"step": 2, "title": "Cook eggs", "details": ["Lower the eggs in.", "Cook 6 minutes."]}
	],
	"tips_and_variations": ["Add vinegar to help peeling."],
	"nutrition_info_per_serving": {"calories": "140", "protein": "12g"}
}`

func TestRecipe_Unmarshal(t *testing.T) {
	var r Recipe
	require.NoError(t, json.Unmarshal([]byte(sampleRecipe), &r))

	assert.Equal(t, "Soft Boiled Eggs", r.Name)
	assert.Equal(t, 2, r.Servings)
	require.Len(t, r.Instructions, 2)
	assert.Equal(t, "Cook eggs", r.Instructions[1].Title)
	assert.Equal(t, []string{"Fill a pot.", "Bring to a boil."}, r.Instructions[0].Details)
	assert.Equal(t, "12g", r.Nutrition.Protein)
	assert.NoError(t, r.Validate())
}

func TestRecipe_Validate(t *testing.T) {
	tests := []struct {
		name   string
		recipe Recipe
	}{
		{"missing name", Recipe{Instructions: []Instruction{{Step: 1, Title: "a"}}}},
		{"step zero", Recipe{Name: "x", Instructions: []Instruction{{Step: 0, Title: "a"}}}},
		{"empty title", Recipe{Name: "x", Instructions: []Instruction{{Step: 1}}}},
		{"duplicate step", Recipe{Name: "x", Instructions: []Instruction{{Step: 1, Title: "a"}, {Step: 1, Title: "b"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.recipe.Validate(), ErrInvalidRecipe)
		})
	}

	empty := Recipe{Name: "no steps"}
	assert.NoError(t, empty.Validate())
}

func TestImageResult_JSON(t *testing.T) {
	out, err := json.Marshal([]ImageResult{Present("http://img/1.png"), Absent})
	require.NoError(t, err)
	assert.JSONEq(t, `["http://img/1.png", null]`, string(out))

	var back []ImageResult
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, []ImageResult{Present("http://img/1.png"), Absent}, back)
	assert.True(t, back[0].Ok())
	assert.False(t, back[1].Ok())
}

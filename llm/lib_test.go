package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockLLM is a mock implementation of the LLM client
type MockLLM struct {
	mock.Mock
}

func (m *MockLLM) GetCompletion(ctx context.Context, prompt, responseType string) (string, error) {
	args := m.Called(prompt, responseType)
	return args.String(0), args.Error(1)
}

type MockImageGenerator struct {
	mock.Mock
}

func (m *MockImageGenerator) GenerateImage(ctx context.Context, prompt string) (*GeneratedImage, error) {
	args := m.Called(prompt)
	img, _ := args.Get(0).(*GeneratedImage)
	return img, args.Error(1)
}

const pancakeRecipe = `{
	"recipe_name": "Banana Pancakes",
	"servings": 2,
	"prep_time": "5 minutes",
	"cook_time": "10 minutes",
	"total_time": "15 minutes",
	"ingredients": ["1 banana", "2 eggs", "50g flour"],
	"instructions": [
		{"step": 1, "title": "Mash the banana", "details": ["Use a fork."]},
		{"step": 2, "title": "Whisk in eggs and flour", "details": ["Until smooth."]},
		{"step": 3, "title": "Fry the pancakes", "details": ["Medium heat, 2 minutes per side."]}
	],
	"tips_and_variations": ["Add cinnamon."],
	"nutrition_info_per_serving": {"calories": "250", "protein": "9g"}
}`

func TestGenerateRecipe(t *testing.T) {
	m := new(MockLLM)
	m.On("GetCompletion", mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "banana, eggs, flour")
	}), "json_object").Return(pancakeRecipe, nil)

	r, err := GenerateRecipe(context.Background(), m, []string{"banana", "eggs", "flour"})
	require.NoError(t, err)
	assert.Equal(t, "Banana Pancakes", r.Name)
	require.Len(t, r.Instructions, 3)
	assert.Equal(t, "Fry the pancakes", r.Instructions[2].Title)
	assert.Equal(t, "9g", r.Nutrition.Protein)
	m.AssertExpectations(t)
}

func TestGenerateRecipe_FencedJSON(t *testing.T) {
	m := new(MockLLM)
	m.On("GetCompletion", mock.Anything, "json_object").Return("```json\n"+pancakeRecipe+"\n```", nil)

	r, err := GenerateRecipe(context.Background(), m, []string{"banana"})
	require.NoError(t, err)
	assert.Equal(t, "Banana Pancakes", r.Name)
}

func TestGenerateRecipe_Errors(t *testing.T) {
	tests := []struct {
		name     string
		response string
		err      error
		invalid  bool
	}{
		{name: "provider failure", err: ErrRateLimited},
		{name: "not json", response: "Sure! Here is a recipe.", invalid: true},
		{name: "missing name", response: `{"instructions": []}`, invalid: true},
		{name: "untitled step", response: `{"recipe_name": "x", "instructions": [{"step": 1, "title": ""}]}`, invalid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(MockLLM)
			m.On("GetCompletion", mock.Anything, "json_object").Return(tt.response, tt.err)

			r, err := GenerateRecipe(context.Background(), m, []string{"rice"})
			assert.Nil(t, r)
			require.Error(t, err)
			assert.Equal(t, tt.invalid, errors.Is(err, ErrInvalidRecipeJSON))
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
			}
		})
	}
}

func TestGenerateStepImage(t *testing.T) {
	g := new(MockImageGenerator)
	g.On("GenerateImage", "A detailed photo illustrating this cooking step: Boil the pasta").
		Return(&GeneratedImage{Created: 1690584848, Data: []GeneratedURL{{URL: "https://img/pasta.png"}}}, nil)

	img, err := GenerateStepImage(context.Background(), g, "  Boil the pasta ")
	require.NoError(t, err)
	assert.Equal(t, int64(1690584848), img.Created)
	assert.Equal(t, "https://img/pasta.png", img.Data[0].URL)
	g.AssertExpectations(t)
}

func TestGenerateStepImage_Failures(t *testing.T) {
	t.Run("empty title", func(t *testing.T) {
		g := new(MockImageGenerator)
		_, err := GenerateStepImage(context.Background(), g, "   ")
		assert.Error(t, err)
		g.AssertNumberOfCalls(t, "GenerateImage", 0)
	})

	t.Run("no data", func(t *testing.T) {
		g := new(MockImageGenerator)
		g.On("GenerateImage", mock.Anything).Return(&GeneratedImage{Created: 1}, nil)
		_, err := GenerateStepImage(context.Background(), g, "Stir")
		assert.ErrorIs(t, err, ErrNoImage)
	})

	t.Run("provider error", func(t *testing.T) {
		g := new(MockImageGenerator)
		g.On("GenerateImage", mock.Anything).Return(nil, ErrUnauthorized)
		_, err := GenerateStepImage(context.Background(), g, "Stir")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestEnsureBatchID(t *testing.T) {
	valid := "0123456789abcdef01234567"
	assert.Equal(t, valid, EnsureBatchID(valid))

	generated := EnsureBatchID("nope")
	assert.Len(t, generated, 24)
	assert.True(t, isValidBatchID(generated))
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, extractJSON(`  {"a":1} `))
	assert.Equal(t, `{"a":1}`, extractJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, extractJSON("```\n{\"a\":1}\n```"))
}

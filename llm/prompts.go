package llm

import (
	"fmt"
	"strings"
)

func getSystemPrompt() string {
	return `You are a professional chef assistant. You write clear, practical home-cooking recipes.

Always answer with a single valid JSON object and nothing else. Do NOT wrap the object in markdown code blocks.`
}

func getRecipePrompt(ingredients []string) string {
	list := strings.Join(ingredients, ", ")
	return fmt.Sprintf(`You are a professional chef assistant. Your task is to generate a structured JSON object containing a detailed cooking recipe using the following ingredients: %s.
### **Instructions:**
- Follow the exact JSON structure provided below.
- Do **NOT** include any extra text, explanations, or comments. Only return a valid JSON object.
- Ensure the generated JSON is **well-formatted** and follows the exact structure.
### **Example JSON Format (Strictly Follow This):**
{
    "recipe_name": "Delicious Dish Name",
    "servings": 4,
    "prep_time": "XX minutes",
    "cook_time": "XX minutes",
    "total_time": "XX minutes",
    "ingredients": [
        "Ingredient 1",
        "Ingredient 2",
        "Ingredient 3"
    ],
    "instructions": [
        {
            "step": 1,
            "title": "Step 1 Title",
            "details": [
                "Step 1 detail line 1.",
                "Step 1 detail line 2."
            ]
        },
        {
            "step": 2,
            "title": "Step 2 Title",
            "details": [
                "Step 2 detail line 1.",
                "Step 2 detail line 2."
            ]
        }
    ],
    "tips_and_variations": [
        "Tip 1: Placeholder text for a useful tip.",
        "Tip 2: Placeholder text for a variation suggestion."
    ],
    "nutrition_info_per_serving": {
        "calories": "XXX",
        "protein": "XXg",
        "fat": "XXg",
        "saturated_fat": "XXg",
        "cholesterol": "XXXmg",
        "sodium": "XXXmg",
        "carbohydrates": "XXg",
        "fiber": "XXg",
        "sugar": "XXg"
    }
}
Now, generate a JSON object for a recipe using these ingredients: %s.
Only return a valid JSON object without any extra text.`, list, list)
}

func getStepImagePrompt(title string) string {
	return fmt.Sprintf("A detailed photo illustrating this cooking step: %s", title)
}

package utils

import (
	"regexp"
	"strings"
)

var (
	unsafeChars  = regexp.MustCompile(`[^\p{L}\p{N}\s\-_.,!?()'%/&]`)
	nameInvalid  = regexp.MustCompile(`[^a-zA-Z0-9\-_]+`)
	repeatedDash = regexp.MustCompile(`-{2,}`)
)

// SanitizeInput removes any potentially harmful characters from the input string
func SanitizeInput(input string) string {
	sanitized := unsafeChars.ReplaceAllString(input, "")
	return strings.TrimSpace(sanitized)
}

// SanitizeIngredients cleans every entry, splits entries that contain commas
// and drops the ones left empty.
func SanitizeIngredients(raw []string) []string {
	var out []string
	for _, entry := range raw {
		for _, part := range strings.Split(entry, ",") {
			if s := SanitizeInput(part); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// JoinIngredients renders the ingredient list the way the generate endpoint
// expects it.
func JoinIngredients(ingredients []string) string {
	return strings.Join(ingredients, ", ")
}

// SplitIngredients is the inverse of JoinIngredients.
func SplitIngredients(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// FormatRecipeName turns a recipe name into something usable as a file name.
func FormatRecipeName(name string) string {
	formatted := nameInvalid.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	formatted = repeatedDash.ReplaceAllString(formatted, "-")
	formatted = strings.Trim(formatted, "-_")

	if formatted == "" {
		formatted = "recipe"
	}

	return formatted
}

// TruncateString truncates a string to the specified length, adding an ellipsis if truncated
func TruncateString(s string, maxLength int) string {
	r := []rune(s)
	if len(r) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return string(r[:maxLength])
	}
	return string(r[:maxLength-3]) + "..."
}

package fs

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/santiagomed/chef/recipe"
)

const (
	RecipeFile = "recipe.md"
	ImagesFile = "images.json"
)

// StepImage is one entry of images.json. Image is null when the step has no
// image.
type StepImage struct {
	Step  int                `json:"step"`
	Title string             `json:"title"`
	Image recipe.ImageResult `json:"image"`
}

// WriteRecipe writes recipe.md and images.json into dir. results is indexed
// like r.Instructions; missing entries count as absent.
func (fs *FileSystem) WriteRecipe(dir string, r *recipe.Recipe, results []recipe.ImageResult, placeholder string) error {
	if err := fs.Fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating directory %s: %w", dir, err)
	}

	md := RenderMarkdown(r, results, placeholder)
	if err := fs.WriteFile(filepath.Join(dir, RecipeFile), []byte(md)); err != nil {
		return err
	}

	manifest := make([]StepImage, len(r.Instructions))
	for i, in := range r.Instructions {
		manifest[i] = StepImage{Step: in.Step, Title: in.Title, Image: resultAt(results, i)}
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding %s: %w", ImagesFile, err)
	}
	return fs.WriteFile(filepath.Join(dir, ImagesFile), data)
}

// Export writes the recipe to out. A path ending in .zip produces a single
// archive, anything else a directory.
func (fs *FileSystem) Export(out string, r *recipe.Recipe, results []recipe.ImageResult, placeholder string) error {
	if !isZipPath(out) {
		return fs.WriteRecipe(out, r, results, placeholder)
	}

	staging := strings.TrimSuffix(out, filepath.Ext(out)) + ".tmp"
	defer fs.Fs.RemoveAll(staging)

	if err := fs.WriteRecipe(staging, r, results, placeholder); err != nil {
		return err
	}
	return fs.WriteToZip(staging, out)
}

func resultAt(results []recipe.ImageResult, i int) recipe.ImageResult {
	if i < len(results) {
		return results[i]
	}
	return recipe.Absent
}

// RenderMarkdown renders the recipe with one image per step, falling back to
// placeholder for steps without one.
func RenderMarkdown(r *recipe.Recipe, results []recipe.ImageResult, placeholder string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", r.Name)

	var meta []string
	if r.Servings > 0 {
		meta = append(meta, fmt.Sprintf("**Servings:** %d", r.Servings))
	}
	for _, m := range []struct{ label, value string }{
		{"Prep", r.PrepTime},
		{"Cook", r.CookTime},
		{"Total", r.TotalTime},
	} {
		if m.value != "" {
			meta = append(meta, fmt.Sprintf("**%s:** %s", m.label, m.value))
		}
	}
	if len(meta) > 0 {
		b.WriteString(strings.Join(meta, " | "))
		b.WriteString("\n\n")
	}

	if len(r.Ingredients) > 0 {
		b.WriteString("## Ingredients\n\n")
		for _, ing := range r.Ingredients {
			fmt.Fprintf(&b, "- %s\n", ing)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Instructions\n\n")
	for i, in := range r.Instructions {
		fmt.Fprintf(&b, "### Step %d: %s\n\n", in.Step, in.Title)

		url := placeholder
		if res := resultAt(results, i); res.Ok() {
			url = res.URL
		}
		if url != "" {
			fmt.Fprintf(&b, "![%s](%s)\n\n", in.Title, url)
		}
		for _, d := range in.Details {
			fmt.Fprintf(&b, "- %s\n", d)
		}
		b.WriteString("\n")
	}

	if len(r.TipsAndVariations) > 0 {
		b.WriteString("## Tips and Variations\n\n")
		for _, tip := range r.TipsAndVariations {
			fmt.Fprintf(&b, "- %s\n", tip)
		}
		b.WriteString("\n")
	}

	n := r.Nutrition
	rows := []struct{ label, value string }{
		{"Calories", n.Calories},
		{"Protein", n.Protein},
		{"Fat", n.Fat},
		{"Saturated fat", n.SaturatedFat},
		{"Cholesterol", n.Cholesterol},
		{"Sodium", n.Sodium},
		{"Carbohydrates", n.Carbohydrates},
		{"Fiber", n.Fiber},
		{"Sugar", n.Sugar},
	}
	var nutrition []string
	for _, row := range rows {
		if row.value != "" {
			nutrition = append(nutrition, fmt.Sprintf("| %s | %s |", row.label, row.value))
		}
	}
	if len(nutrition) > 0 {
		b.WriteString("## Nutrition (per serving)\n\n| | |\n|---|---|\n")
		b.WriteString(strings.Join(nutrition, "\n"))
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

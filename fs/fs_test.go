package fs

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/santiagomed/chef/recipe"
)

const placeholder = "https://via.placeholder.com/300"

func sampleRecipe() *recipe.Recipe {
	return &recipe.Recipe{
		Name:      "Tomato Soup",
		Servings:  2,
		PrepTime:  "10 minutes",
		CookTime:  "20 minutes",
		TotalTime: "30 minutes",
		Ingredients: []string{
			"4 tomatoes",
			"1 onion",
		},
		Instructions: []recipe.Instruction{
			{Step: 1, Title: "Chop", Details: []string{"Dice the onion."}},
			{Step: 2, Title: "Simmer", Details: []string{"Cook for 20 minutes."}},
			{Step: 3, Title: "Blend", Details: []string{"Blend until smooth."}},
		},
		TipsAndVariations: []string{"Add basil."},
		Nutrition:         recipe.NutritionInfo{Calories: "120", Fiber: "4g"},
	}
}

func TestNewMemoryFileSystem(t *testing.T) {
	fs := NewMemoryFileSystem()
	assert.NotNil(t, fs)
	assert.IsType(t, &afero.MemMapFs{}, fs.Fs)
}

func TestNewOsFileSystem(t *testing.T) {
	fs := NewOsFileSystem()
	assert.NotNil(t, fs)
	assert.IsType(t, &afero.OsFs{}, fs.Fs)
}

func TestWriteFile(t *testing.T) {
	fs := NewMemoryFileSystem()
	err := fs.WriteFile("test/nested/file.txt", []byte("Hello, World!"))
	assert.NoError(t, err)

	content, err := afero.ReadFile(fs.Fs, "test/nested/file.txt")
	assert.NoError(t, err)
	assert.Equal(t, "Hello, World!", string(content))
	assert.True(t, fs.IsDir("test/nested"))
	assert.False(t, fs.IsDir("test/nonexistent"))
}

func TestWriteRecipe(t *testing.T) {
	fs := NewMemoryFileSystem()
	results := []recipe.ImageResult{
		recipe.Present("https://img/chop.png"),
		recipe.Absent,
		recipe.Present("https://img/blend.png"),
	}

	require.NoError(t, fs.WriteRecipe("soup", sampleRecipe(), results, placeholder))

	files, err := fs.ListFiles("soup")
	require.NoError(t, err)
	assert.Equal(t, []string{ImagesFile, RecipeFile}, files)

	md, err := afero.ReadFile(fs.Fs, "soup/recipe.md")
	require.NoError(t, err)
	assert.Contains(t, string(md), "# Tomato Soup")
	assert.Contains(t, string(md), "**Servings:** 2 | **Prep:** 10 minutes")
	assert.Contains(t, string(md), "### Step 1: Chop\n\n![Chop](https://img/chop.png)")
	assert.Contains(t, string(md), "### Step 2: Simmer\n\n![Simmer]("+placeholder+")")
	assert.Contains(t, string(md), "| Fiber | 4g |")

	data, err := afero.ReadFile(fs.Fs, "soup/images.json")
	require.NoError(t, err)
	var manifest []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &manifest))
	require.Len(t, manifest, 3)
	assert.Equal(t, "https://img/chop.png", manifest[0]["image"])
	assert.Nil(t, manifest[1]["image"])
	assert.Equal(t, "Simmer", manifest[1]["title"])
}

func TestWriteRecipe_ShortResults(t *testing.T) {
	fs := NewMemoryFileSystem()
	require.NoError(t, fs.WriteRecipe("soup", sampleRecipe(), nil, placeholder))

	data, err := afero.ReadFile(fs.Fs, "soup/images.json")
	require.NoError(t, err)
	var manifest []StepImage
	require.NoError(t, json.Unmarshal(data, &manifest))
	for _, m := range manifest {
		assert.False(t, m.Image.Ok())
	}
}

func TestRenderMarkdown_NoPlaceholder(t *testing.T) {
	md := RenderMarkdown(sampleRecipe(), nil, "")
	assert.NotContains(t, md, "![")
	assert.Contains(t, md, "- Blend until smooth.")
}

func TestWriteToZip(t *testing.T) {
	fs := NewMemoryFileSystem()
	require.NoError(t, fs.WriteFile("bundle/a.txt", []byte("alpha")))
	require.NoError(t, fs.WriteFile("bundle/sub/b.txt", []byte("beta")))

	require.NoError(t, fs.WriteToZip("bundle", "out/bundle.zip"))

	entries := readZip(t, fs, "out/bundle.zip")
	assert.Equal(t, map[string]string{"a.txt": "alpha", "sub/b.txt": "beta"}, entries)
}

func TestWriteToZip_Empty(t *testing.T) {
	fs := NewMemoryFileSystem()
	require.NoError(t, fs.Fs.MkdirAll("empty", 0755))
	assert.Error(t, fs.WriteToZip("empty", "empty.zip"))
}

func TestExport(t *testing.T) {
	results := []recipe.ImageResult{recipe.Present("https://img/1.png"), recipe.Absent, recipe.Absent}

	t.Run("directory", func(t *testing.T) {
		fs := NewMemoryFileSystem()
		require.NoError(t, fs.Export("out/soup", sampleRecipe(), results, placeholder))
		files, err := fs.ListFiles("out/soup")
		require.NoError(t, err)
		assert.Len(t, files, 2)
	})

	t.Run("zip", func(t *testing.T) {
		fs := NewMemoryFileSystem()
		require.NoError(t, fs.Export("out/soup.zip", sampleRecipe(), results, placeholder))

		entries := readZip(t, fs, "out/soup.zip")
		assert.Contains(t, entries, RecipeFile)
		assert.Contains(t, entries, ImagesFile)

		exists, err := afero.DirExists(fs.Fs, "out/soup.tmp")
		require.NoError(t, err)
		assert.False(t, exists, "staging directory is removed")
	})
}

func readZip(t *testing.T, fs *FileSystem, path string) map[string]string {
	t.Helper()
	data, err := afero.ReadFile(fs.Fs, path)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	entries := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		entries[f.Name] = string(content)
	}
	return entries
}

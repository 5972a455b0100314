package fs

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// FileSystem wraps the Afero Fs interface
type FileSystem struct {
	Fs afero.Fs
}

// NewMemoryFileSystem creates a new in-memory file system
func NewMemoryFileSystem() *FileSystem {
	return &FileSystem{
		Fs: afero.NewMemMapFs(),
	}
}

// NewOsFileSystem creates a new OS-based file system
func NewOsFileSystem() *FileSystem {
	return &FileSystem{
		Fs: afero.NewOsFs(),
	}
}

// WriteFile creates a new file with the given content or overwrites an existing file with the content
func (fs *FileSystem) WriteFile(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := fs.Fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating directory %s: %w", dir, err)
	}
	if err := afero.WriteFile(fs.Fs, path, content, 0644); err != nil {
		return fmt.Errorf("error writing file %s: %w", path, err)
	}
	return nil
}

// IsDir checks if a path is a directory
func (fs *FileSystem) IsDir(path string) bool {
	info, err := fs.Fs.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// WriteToZip bundles every file under dir into a zip archive at zipPath on
// the same file system. Entry names are relative to dir.
func (fs *FileSystem) WriteToZip(dir, zipPath string) error {
	files, err := fs.ListFiles(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files to zip")
	}

	if parent := filepath.Dir(zipPath); parent != "." {
		if err := fs.Fs.MkdirAll(parent, 0755); err != nil {
			return fmt.Errorf("error creating directory %s: %w", parent, err)
		}
	}
	zipFile, err := fs.Fs.Create(zipPath)
	if err != nil {
		return fmt.Errorf("error creating zip file: %w", err)
	}
	defer zipFile.Close()

	zipWriter := zip.NewWriter(zipFile)
	for _, name := range files {
		if err := fs.addToZip(zipWriter, filepath.Join(dir, name), name); err != nil {
			zipWriter.Close()
			return err
		}
	}

	if err := zipWriter.Close(); err != nil {
		return fmt.Errorf("error closing zip writer: %w", err)
	}
	return nil
}

func (fs *FileSystem) addToZip(zw *zip.Writer, path, name string) error {
	writer, err := zw.Create(filepath.ToSlash(name))
	if err != nil {
		return fmt.Errorf("error creating zip entry for file %s: %w", name, err)
	}

	file, err := fs.Fs.Open(path)
	if err != nil {
		return fmt.Errorf("error opening file %s: %w", path, err)
	}
	defer file.Close()

	if _, err := io.Copy(writer, file); err != nil {
		return fmt.Errorf("error writing file %s to zip: %w", path, err)
	}
	return nil
}

// ListFiles returns the sorted paths, relative to dir, of every regular file
// below dir.
func (fs *FileSystem) ListFiles(dir string) ([]string, error) {
	var files []string
	err := afero.Walk(fs.Fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking %s: %w", dir, err)
	}

	sort.Strings(files)
	return files, nil
}

func isZipPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".zip")
}

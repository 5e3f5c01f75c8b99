// Package dataset - Validation set discovery.
package dataset

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Images lists all image files in dir, sorted by name so runs over the
// same directory always visit images in the same order.
//
// Arguments:
// - dir: Directory containing the validation images.
//
// Returns:
// - []string: Sorted slice of image file paths.
// - error: Error if the directory cannot be read.
func Images(dir string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "reading image directory %s", dir)
	}

	var paths []string
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		switch strings.ToLower(filepath.Ext(file.Name())) {
		case ".jpg", ".jpeg", ".png", ".bmp":
			paths = append(paths, filepath.Join(dir, file.Name()))
		}
	}

	sort.Strings(paths)

	return paths, nil
}

// LabelPath resolves the ground-truth label file for an image: the
// image's stem with a .txt extension under labelsDir.
func LabelPath(labelsDir, imagePath string) string {
	return filepath.Join(labelsDir, Stem(imagePath)+".txt")
}

// Stem returns the file name of path without its extension.
func Stem(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

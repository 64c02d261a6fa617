package pairing

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ImageExtensions is the probe order for image lookup by stem. Matching is
// case-sensitive; both lowercase and uppercase spellings are probed.
var ImageExtensions = []string{".jpg", ".jpeg", ".png", ".JPG", ".JPEG", ".PNG"}

// Stem returns the filename without its directory and extension. It is the
// join key between caption files and image files.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// FindImageForStem probes <dir>/<stem><ext> for every known extension in
// order and returns the first existing file.
func FindImageForStem(dir, stem string) (string, bool) {
	for _, ext := range ImageExtensions {
		candidate := filepath.Join(dir, stem+ext)
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

// ScanCaptions returns the .txt files in dir. When recursive is true,
// subdirectories are walked as well. Results are sorted.
func ScanCaptions(dir string, recursive bool) ([]string, error) {
	if recursive {
		var files []string
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && filepath.Ext(path) == ".txt" {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan caption directory: %w", err)
		}
		sort.Strings(files)
		return files, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan caption directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".txt" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// ScanImages returns the image files directly inside dir, grouped by the
// extension probe order and name-sorted within each group. The grouping
// keeps "first match wins" stable when one stem exists in several formats.
func ScanImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan image directory: %w", err)
	}

	byExt := make(map[string][]string, len(ImageExtensions))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		byExt[ext] = append(byExt[ext], filepath.Join(dir, e.Name()))
	}

	var files []string
	for _, ext := range ImageExtensions {
		group := byExt[ext]
		sort.Strings(group)
		files = append(files, group...)
	}
	return files, nil
}

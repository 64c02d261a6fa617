package dataset

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Writer places image/caption pairs into the training directory in the
// layout the fine-tuning job expects: image file + same-stem .txt file.
type Writer struct {
	dir string
}

// NewWriter creates the training directory if needed.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create training directory: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// Dir returns the training directory path.
func (w *Writer) Dir() string {
	return w.dir
}

// PlaceResult reports how one pair landed in the training directory.
type PlaceResult struct {
	ImagePath   string
	CaptionPath string
	Linked      bool // placed as a symlink rather than a copy
	Existed     bool // image file was already present and left alone
}

// Place puts the image into the training directory under imageName and
// writes captionText beside it as <stem>.txt. An existing image file is
// left alone; the caption file is always rewritten (last write wins).
// Symlinking is attempted first, with a full copy as fallback.
func (w *Writer) Place(imagePath, imageName, captionText string) (PlaceResult, error) {
	res := PlaceResult{
		ImagePath: filepath.Join(w.dir, imageName),
	}

	ext := filepath.Ext(imageName)
	res.CaptionPath = filepath.Join(w.dir, strings.TrimSuffix(imageName, ext)+".txt")

	if _, err := os.Lstat(res.ImagePath); err == nil {
		res.Existed = true
	} else {
		src, err := filepath.Abs(imagePath)
		if err != nil {
			src = imagePath
		}
		if err := os.Symlink(src, res.ImagePath); err == nil {
			res.Linked = true
		} else if err := copyFile(imagePath, res.ImagePath); err != nil {
			return res, fmt.Errorf("failed to place image %s: %w", imageName, err)
		}
	}

	if err := os.WriteFile(res.CaptionPath, []byte(captionText), 0644); err != nil {
		return res, fmt.Errorf("failed to write caption for %s: %w", imageName, err)
	}

	return res, nil
}

// copyFile copies src to dst preserving the file mode.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}

	return out.Close()
}

package imagestore

import (
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

// Covers are normalized on ingest: resized to a fixed width and
// re-encoded as JPEG so the store never serves oversized originals.
const (
	coverWidth  = 700
	jpegQuality = 80
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9\-_]+`)

// Store keeps processed cover images on local disk, one file per book.
type Store struct {
	dir string
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save processes an uploaded cover and returns the stored filename.
// The name keeps a sanitized version of the original so files stay
// recognizable on disk, with a timestamp suffix for uniqueness.
func (s *Store) Save(file *multipart.FileHeader) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	img, err := imaging.Decode(src, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	resized := imaging.Resize(img, coverWidth, 0, imaging.Lanczos)

	filename := uniqueFilename(file.Filename)
	if err := imaging.Save(resized, filepath.Join(s.dir, filename), imaging.JPEGQuality(jpegQuality)); err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}
	return filename, nil
}

// Remove deletes a stored cover image.
func (s *Store) Remove(filename string) error {
	// filepath.Base guards against stored names escaping the directory
	return os.Remove(filepath.Join(s.dir, filepath.Base(filename)))
}

func uniqueFilename(original string) string {
	base := strings.TrimSuffix(filepath.Base(original), filepath.Ext(original))
	base = unsafeChars.ReplaceAllString(strings.ReplaceAll(base, " ", "_"), "")
	if base == "" {
		base = "cover"
	}
	return fmt.Sprintf("%s%d.jpg", base, time.Now().UnixMilli())
}

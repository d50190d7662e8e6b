// Package assets stores uploaded gallery images on local disk and maps
// them to the public /uploads/ URL space.
package assets

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// PublicPrefix is the URL prefix under which uploads are served
const PublicPrefix = "/uploads/"

var (
	ErrEmptyFile        = errors.New("file is empty")
	ErrNotAnUpload      = errors.New("reference is not an uploaded asset")
	ErrInvalidAsset     = errors.New("invalid asset reference")
	ErrUnsupportedImage = errors.New("unsupported image type")
)

// imageTypes maps sniffed MIME types to the extension files are saved with
var imageTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/avif": ".avif",
}

// Store writes image bytes under a single uploads directory
type Store struct {
	dir string
	now func() time.Time
}

// NewStore creates a store rooted at dir. The directory is created on
// first save.
func NewStore(dir string) *Store {
	return &Store{dir: dir, now: time.Now}
}

// Dir returns the uploads directory
func (s *Store) Dir() string {
	return s.dir
}

// Save persists data with a fresh id and returns its public reference
func (s *Store) Save(data []byte, ext string) (string, error) {
	return s.SaveFor(uuid.New().String(), data, ext)
}

// SaveFor persists data as <id>-<unix millis><ext> and returns its public
// reference, e.g. /uploads/<id>-1700000000000.png
func (s *Store) SaveFor(id string, data []byte, ext string) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyFile
	}
	if strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return "", ErrInvalidAsset
	}
	if !allowedExtension(ext) {
		return "", ErrUnsupportedImage
	}

	filename := fmt.Sprintf("%s-%d%s", id, s.now().UnixMilli(), ext)

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create uploads dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, filename), data, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}

	src := PublicPrefix + filename
	log.Info().Str("src", src).Int("bytes", len(data)).Msg("Image asset saved")
	return src, nil
}

// LocalPath resolves a public reference to a file inside the uploads
// directory. References outside /uploads/ or escaping it are rejected.
func (s *Store) LocalPath(src string) (string, error) {
	if !strings.HasPrefix(src, PublicPrefix) {
		return "", ErrNotAnUpload
	}

	relative := strings.TrimPrefix(src, PublicPrefix)
	if relative == "" || strings.Contains(relative, "..") || path.IsAbs(relative) || filepath.IsAbs(relative) {
		return "", ErrInvalidAsset
	}

	return filepath.Join(s.dir, filepath.FromSlash(relative)), nil
}

// Handler serves uploads below PublicPrefix. Only image files are served
// and browsers are told not to second-guess their type.
func (s *Store) Handler() http.Handler {
	files := http.StripPrefix(PublicPrefix, http.FileServer(http.Dir(s.dir)))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !allowedExtension(strings.ToLower(path.Ext(r.URL.Path))) {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("X-Content-Type-Options", "nosniff")
		files.ServeHTTP(w, r)
	})
}

// Delete removes an uploaded asset. Built-in assets (anything outside
// /uploads/) and files that are already gone are ignored.
func (s *Store) Delete(src string) error {
	local, err := s.LocalPath(src)
	if errors.Is(err, ErrNotAnUpload) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := os.Remove(local); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove upload: %w", err)
	}

	log.Info().Str("src", src).Msg("Image asset deleted")
	return nil
}

// DetectImage sniffs data and returns the file extension for its type.
// Only raster formats the gallery displays are accepted; the client's
// filename and Content-Type play no part.
func DetectImage(data []byte) (string, error) {
	if isAVIF(data) {
		return ".avif", nil
	}
	if ext, ok := imageTypes[http.DetectContentType(data)]; ok {
		return ext, nil
	}
	return "", ErrUnsupportedImage
}

// isAVIF matches the ISO-BMFF brand, which DetectContentType may not know
func isAVIF(data []byte) bool {
	if len(data) < 12 {
		return false
	}
	brand := string(data[4:12])
	return brand == "ftypavif" || brand == "ftypavis"
}

func allowedExtension(ext string) bool {
	for _, allowed := range imageTypes {
		if ext == allowed {
			return true
		}
	}
	return ext == ".jpeg"
}

// IsImage reports whether a MIME type is an image type
func IsImage(mimeType string) bool {
	return strings.HasPrefix(strings.ToLower(mimeType), "image/")
}

package assets

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(filepath.Join(t.TempDir(), "uploads"))
	s.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return s
}

func TestSaveFor(t *testing.T) {
	s := newTestStore(t)

	src, err := s.SaveFor("abc", []byte("png-bytes"), ".png")
	if err != nil {
		t.Fatalf("SaveFor() error = %v", err)
	}
	if src != "/uploads/abc-1700000000000.png" {
		t.Errorf("SaveFor() = %q", src)
	}

	data, err := os.ReadFile(filepath.Join(s.Dir(), "abc-1700000000000.png"))
	if err != nil || string(data) != "png-bytes" {
		t.Errorf("Saved file = %q, %v", data, err)
	}
}

func TestSave_GeneratesID(t *testing.T) {
	s := newTestStore(t)

	src, err := s.Save([]byte("x"), ".jpg")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !strings.HasPrefix(src, PublicPrefix) || !strings.HasSuffix(src, "-1700000000000.jpg") {
		t.Errorf("Save() = %q", src)
	}
}

func TestSaveFor_Rejects(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.SaveFor("abc", nil, ".png"); !errors.Is(err, ErrEmptyFile) {
		t.Errorf("Empty data error = %v, want ErrEmptyFile", err)
	}
	if _, err := s.SaveFor("../escape", []byte("x"), ".png"); !errors.Is(err, ErrInvalidAsset) {
		t.Errorf("Traversal id error = %v, want ErrInvalidAsset", err)
	}
}

func TestLocalPath(t *testing.T) {
	s := newTestStore(t)

	tests := []struct {
		name    string
		src     string
		wantErr error
	}{
		{"Upload", "/uploads/a.png", nil},
		{"Nested upload", "/uploads/2026/a.png", nil},
		{"Built-in asset", "/gallery/01.svg", ErrNotAnUpload},
		{"Prefix only", "/uploads/", ErrInvalidAsset},
		{"Traversal", "/uploads/../config.yaml", ErrInvalidAsset},
		{"Absolute", "/uploads//etc/passwd", ErrInvalidAsset},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			local, err := s.LocalPath(tt.src)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("LocalPath(%q) error = %v, want %v", tt.src, err, tt.wantErr)
			}
			if err == nil && !strings.HasPrefix(local, s.Dir()) {
				t.Errorf("LocalPath(%q) = %q escapes %q", tt.src, local, s.Dir())
			}
		})
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)

	src, err := s.SaveFor("abc", []byte("x"), ".png")
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Delete(src); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.Dir(), "abc-1700000000000.png")); !errors.Is(err, os.ErrNotExist) {
		t.Error("Asset still exists after Delete()")
	}

	// Already gone and built-in assets are not errors
	if err := s.Delete(src); err != nil {
		t.Errorf("Second Delete() error = %v", err)
	}
	if err := s.Delete("/gallery/01.svg"); err != nil {
		t.Errorf("Delete(built-in) error = %v", err)
	}
	if err := s.Delete("/uploads/../x"); !errors.Is(err, ErrInvalidAsset) {
		t.Errorf("Delete(traversal) error = %v, want ErrInvalidAsset", err)
	}
}

var (
	pngData  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	jpegData = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00")
	gifData  = []byte("GIF89a\x01\x00\x01\x00")
	webpData = []byte("RIFF\x24\x00\x00\x00WEBPVP8 ")
	avifData = []byte("\x00\x00\x00\x1cftypavif\x00\x00\x00\x00")
)

func TestDetectImage(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    string
		wantErr error
	}{
		{"PNG", pngData, ".png", nil},
		{"JPEG", jpegData, ".jpg", nil},
		{"GIF", gifData, ".gif", nil},
		{"WebP", webpData, ".webp", nil},
		{"AVIF", avifData, ".avif", nil},
		{"HTML", []byte("<html><script>alert(1)</script></html>"), "", ErrUnsupportedImage},
		{"SVG", []byte(`<svg xmlns="http://www.w3.org/2000/svg" onload="alert(1)"/>`), "", ErrUnsupportedImage},
		{"Plain text", []byte("hello"), "", ErrUnsupportedImage},
		{"Empty", nil, "", ErrUnsupportedImage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectImage(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("DetectImage() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("DetectImage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSaveFor_RejectsNonImageExtension(t *testing.T) {
	s := newTestStore(t)

	for _, ext := range []string{".html", ".svg", ".js", ""} {
		if _, err := s.SaveFor("abc", []byte("x"), ext); !errors.Is(err, ErrUnsupportedImage) {
			t.Errorf("SaveFor(%q) error = %v, want ErrUnsupportedImage", ext, err)
		}
	}
}

func TestHandler(t *testing.T) {
	s := newTestStore(t)

	src, err := s.SaveFor("abc", pngData, ".png")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(s.Dir(), "planted.html"), []byte("<script>alert(1)</script>"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		path     string
		wantCode int
	}{
		{"Image", src, http.StatusOK},
		{"HTML file", PublicPrefix + "planted.html", http.StatusNotFound},
		{"Directory listing", PublicPrefix, http.StatusNotFound},
		{"Missing image", PublicPrefix + "missing.png", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if w.Code != tt.wantCode {
				t.Fatalf("Expected status %d, got %d", tt.wantCode, w.Code)
			}
			if tt.wantCode == http.StatusOK {
				if ct := w.Header().Get("Content-Type"); ct != "image/png" {
					t.Errorf("Content-Type = %q, want image/png", ct)
				}
				if w.Header().Get("X-Content-Type-Options") != "nosniff" {
					t.Error("Missing nosniff header")
				}
			}
		})
	}
}

func TestIsImage(t *testing.T) {
	if !IsImage("image/png") || !IsImage("Image/JPEG") {
		t.Error("Expected image MIME types to be accepted")
	}
	if IsImage("application/pdf") || IsImage("") {
		t.Error("Expected non-image MIME types to be rejected")
	}
}

package store

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
)

// encodeDocument renders a store document the way it lives on disk:
// two-space indentation and a trailing newline.
func encodeDocument(doc interface{}) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// ensureFile creates the parent directory and, when the file does not
// exist yet, writes the default document. Creation never replaces a file
// that appeared in the meantime.
func ensureFile(path string, defaultDoc func() interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	tmpName, err := writeTemp(path, defaultDoc())
	if err != nil {
		return err
	}
	defer os.Remove(tmpName)

	if err := os.Link(tmpName, path); err != nil && !errors.Is(err, os.ErrExist) {
		return err
	}
	return nil
}

// writeFile replaces the document atomically via a temp file in the same
// directory followed by a rename.
func writeFile(path string, doc interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmpName, err := writeTemp(path, doc)
	if err != nil {
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func writeTemp(path string, doc interface{}) (string, error) {
	data, err := encodeDocument(doc)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return "", err
	}
	return tmpName, nil
}

// readRaw decodes the file into a generic JSON value so that callers can
// validate its shape before trusting any field.
func readRaw(path string) (interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

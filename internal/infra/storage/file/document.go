// Package file stores the candidate registry and the blacklist as two JSON
// documents that are rewritten in full on every mutation.
package file

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// document is a JSON file holding a single value of type T.
type document[T any] struct {
	path  string
	log   *slog.Logger
	empty func() T
}

// load reads the document into v. A missing file is created empty; a file
// that cannot be decoded is moved aside and v is reset to empty.
func (d *document[T]) load(v *T) error {
	data, err := os.ReadFile(d.path)
	if errors.Is(err, fs.ErrNotExist) {
		d.log.Warn("Document not found, creating empty", "path", d.path)
		*v = d.empty()
		return d.write(*v)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", d.path, err)
	}

	*v = d.empty()
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		aside := fmt.Sprintf("%s.corrupt-%d", d.path, time.Now().Unix())
		d.log.Error("Document is malformed, starting empty",
			"path", d.path, "moved_to", aside, "error", err)
		if rerr := os.Rename(d.path, aside); rerr != nil {
			d.log.Warn("Failed to move malformed document aside", "path", d.path, "error", rerr)
		}
		*v = d.empty()
		return d.write(*v)
	}
	return nil
}

// peek decodes the current file into v without repairing it. It reports false
// when the file is missing, empty or malformed.
func (d *document[T]) peek(v *T) (bool, error) {
	data, err := os.ReadFile(d.path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", d.path, err)
	}
	if len(data) == 0 {
		return false, nil
	}
	*v = d.empty()
	if err := json.Unmarshal(data, v); err != nil {
		d.log.Warn("Document changed on disk but is malformed, ignoring", "path", d.path, "error", err)
		return false, nil
	}
	return true, nil
}

// write replaces the document atomically with the encoding of v.
func (d *document[T]) write(v T) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", d.path, err)
	}

	dir := filepath.Dir(d.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(d.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, d.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", d.path, err)
	}
	return nil
}

package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/citc/clubhub/internal/domain/entities"
)

// Observer is notified after every load, create and write of a record file.
type Observer func(op, path string, duration time.Duration, err error)

// Handle is the live, in-memory view of one JSON document on disk. Data may be
// mutated freely; nothing reaches the file until Write is called.
type Handle[T any] struct {
	Data     T
	path     string
	observer Observer
}

// Path returns the backing file of the handle.
func (h *Handle[T]) Path() string {
	return h.path
}

// Open loads the JSON document at path. A missing file is created, together
// with any missing parent directory, holding def, and a handle wrapping def is
// returned. A file that exists but does not parse yields ErrCorruptData and is
// left untouched.
func Open[T any](ctx context.Context, path string, def T, observer Observer) (*Handle[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	h := &Handle[T]{path: path, observer: observer}

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		h.Data = def
		err = writeFile(path, def)
		h.observe("create", start, err)
		if err != nil {
			return nil, err
		}
		return h, nil
	}
	if err != nil {
		err = fmt.Errorf("read %s: %w", path, err)
		h.observe("load", start, err)
		return nil, err
	}

	if err := json.Unmarshal(raw, &h.Data); err != nil {
		err = fmt.Errorf("%w: %s: %v", entities.ErrCorruptData, path, err)
		h.observe("load", start, err)
		return nil, err
	}

	h.observe("load", start, nil)
	return h, nil
}

// Write serializes the handle's document and replaces the file's full content.
func (h *Handle[T]) Write(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	err := writeFile(h.path, h.Data)
	h.observe("write", start, err)
	return err
}

func (h *Handle[T]) observe(op string, start time.Time, err error) {
	if h.observer != nil {
		h.observer(op, h.path, time.Since(start), err)
	}
}

// writeFile writes v as indented JSON through a temp file in the same
// directory and renames it over path.
func writeFile(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

package publish

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

type WriteOptions struct {
	Indent bool
}

type pendingFile struct {
	name string
	tmp  string
}

// WriteAll encodes every document to a temporary file in dir and moves them
// into place only once all four encoded cleanly. A failed move restores the
// documents that were there before.
func WriteAll(dir string, docs Documents, opts WriteOptions) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("publish: create output dir: %w", err)
	}

	outputs := []struct {
		name  string
		value any
	}{
		{TimeseriesFile, docs.Timeseries},
		{TopOverallFile, nonNil(docs.TopOverall)},
		{YearTotalsFile, nonNil(docs.YearTotals)},
		{LookupFile, nonNil(docs.Lookup)},
	}

	pending := make([]pendingFile, 0, len(outputs))
	cleanup := func() {
		for _, p := range pending {
			_ = os.Remove(p.tmp)
		}
	}

	for _, output := range outputs {
		tmp, err := writeTemp(dir, output.name, output.value, opts)
		if err != nil {
			cleanup()
			return fmt.Errorf("publish: write %s: %w", output.name, err)
		}
		pending = append(pending, pendingFile{name: output.name, tmp: tmp})
	}

	if err := checkTargets(dir, pending); err != nil {
		cleanup()
		return err
	}
	return commit(dir, pending)
}

// checkTargets fails when an output path is taken by something a rename
// cannot replace.
func checkTargets(dir string, pending []pendingFile) error {
	for _, p := range pending {
		info, err := os.Lstat(filepath.Join(dir, p.name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("publish: check %s: %w", p.name, err)
		}
		if !info.Mode().IsRegular() {
			return fmt.Errorf("publish: %s exists and is not a regular file", p.name)
		}
	}
	return nil
}

type movedFile struct {
	target string
	backup string
}

// commit moves every temp file into place. Existing documents are set aside
// first and restored if any later move fails.
func commit(dir string, pending []pendingFile) error {
	moved := make([]movedFile, 0, len(pending))
	rollback := func(from int) {
		for _, rest := range pending[from:] {
			_ = os.Remove(rest.tmp)
		}
		for i := len(moved) - 1; i >= 0; i-- {
			m := moved[i]
			if m.backup == "" {
				_ = os.Remove(m.target)
				continue
			}
			_ = os.Rename(m.backup, m.target)
		}
	}

	for i, p := range pending {
		m := movedFile{target: filepath.Join(dir, p.name)}
		if _, err := os.Lstat(m.target); err == nil {
			m.backup = p.tmp + ".prev"
			if err := os.Rename(m.target, m.backup); err != nil {
				rollback(i)
				return fmt.Errorf("publish: set aside %s: %w", p.name, err)
			}
		}
		if err := os.Rename(p.tmp, m.target); err != nil {
			if m.backup != "" {
				_ = os.Rename(m.backup, m.target)
			}
			rollback(i)
			return fmt.Errorf("publish: move %s: %w", p.name, err)
		}
		moved = append(moved, m)
	}

	for _, m := range moved {
		if m.backup != "" {
			_ = os.Remove(m.backup)
		}
	}
	return nil
}

func writeTemp(dir, name string, value any, opts WriteOptions) (string, error) {
	file, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return "", err
	}
	path := file.Name()

	if err := writeJSON(file, value, opts); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return "", err
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(path)
		return "", err
	}
	if err := os.Chmod(path, 0o644); err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return path, nil
}

func writeJSON(file *os.File, value any, opts WriteOptions) error {
	encoder := json.NewEncoder(file)
	encoder.SetEscapeHTML(false)
	if opts.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(value)
}

// nonNil keeps empty documents encoding as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

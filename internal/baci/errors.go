package baci

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

var ErrEmptyFile = errors.New("baci: no usable rows")

type MissingFileError struct {
	Path string
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("baci: missing file: %s", e.Path)
}

func (e *MissingFileError) Unwrap() error {
	return fs.ErrNotExist
}

type SchemaError struct {
	Path    string
	Missing []string
	Found   []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("baci: %s missing columns %s (found: %s)",
		e.Path, strings.Join(e.Missing, ","), strings.Join(e.Found, ","))
}

// MixedYearError reports a trade-flow file holding more than one year.
type MixedYearError struct {
	Path   string
	Year   int
	Other  int
	Record int
}

func (e *MixedYearError) Error() string {
	return fmt.Sprintf("baci: %s mixes years %d and %d (record %d)", e.Path, e.Year, e.Other, e.Record)
}

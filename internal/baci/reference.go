package baci

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"productspace/internal/model"
)

const (
	columnCode        = "code"
	columnDescription = "description"
)

// ProductCodes maps HS6 product codes to their descriptions. It is built once
// and never mutated afterwards.
type ProductCodes struct {
	names map[int]string
}

func NewProductCodes(names map[int]string) *ProductCodes {
	copied := make(map[int]string, len(names))
	for code, name := range names {
		copied[code] = name
	}
	return &ProductCodes{names: copied}
}

// LoadProductCodes reads the comma-delimited product code table. Rows whose
// code does not parse are dropped; for duplicate codes the first row wins.
func LoadProductCodes(path string) (*ProductCodes, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &MissingFileError{Path: path}
		}
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rawHeader, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &SchemaError{Path: path, Missing: []string{columnCode, columnDescription}}
		}
		return nil, fmt.Errorf("baci: read header %s: %w", path, err)
	}
	header := normalizeHeader(rawHeader)
	if missing := missingColumns(header, []string{columnCode, columnDescription}); len(missing) > 0 {
		return nil, &SchemaError{Path: path, Missing: missing, Found: trimHeader(rawHeader)}
	}

	names := make(map[int]string)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("baci: read %s: %w", path, err)
		}
		code, ok := ParseInt(getCell(record, header, columnCode))
		if !ok {
			continue
		}
		if _, exists := names[code]; exists {
			continue
		}
		names[code] = rawCell(record, header, columnDescription)
	}

	return &ProductCodes{names: names}, nil
}

func (c *ProductCodes) Lookup(code int) (string, bool) {
	if c == nil {
		return "", false
	}
	name, ok := c.names[code]
	return name, ok
}

// Name returns the description of code, or "Unknown" when it is not listed.
func (c *ProductCodes) Name(code int) string {
	if name, ok := c.Lookup(code); ok {
		return name
	}
	return model.UnknownName
}

func (c *ProductCodes) Len() int {
	if c == nil {
		return 0
	}
	return len(c.names)
}

func rawCell(record []string, header map[string]int, key string) string {
	index, ok := header[key]
	if !ok || index >= len(record) {
		return ""
	}
	return record[index]
}

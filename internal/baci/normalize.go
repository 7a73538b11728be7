package baci

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"productspace/internal/model"
)

const (
	columnYear     = "t"
	columnReporter = "i"
	columnPartner  = "j"
	columnProduct  = "k"
	columnValue    = "v"
	columnQuantity = "q"
)

var requiredColumns = []string{columnYear, columnReporter, columnPartner, columnProduct, columnValue, columnQuantity}

var errSingleColumn = errors.New("baci: single column header")

// YearFile is the cleaned content of one BACI file. Every record carries Year.
type YearFile struct {
	Path        string
	Year        int
	Records     []model.TradeRecord
	RowsRead    int
	RowsDropped int
}

// Normalizer reads raw BACI trade-flow files. Rows with a value below
// MinValue are dropped when MinValue is positive.
type Normalizer struct {
	MinValue float64
}

// ReadFile parses path tab-delimited first and falls back to commas when the
// tab parse fails or yields a single column.
func (n Normalizer) ReadFile(path string) (*YearFile, error) {
	result, err := n.readDelimited(path, '\t')
	if err == nil {
		return result, nil
	}
	var parseErr *csv.ParseError
	if !errors.Is(err, errSingleColumn) && !errors.As(err, &parseErr) {
		return nil, err
	}
	result, err = n.readDelimited(path, ',')
	if errors.Is(err, errSingleColumn) {
		return nil, &SchemaError{Path: path, Missing: requiredColumns}
	}
	return result, err
}

func (n Normalizer) readDelimited(path string, comma rune) (*YearFile, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &MissingFileError{Path: path}
		}
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(bufio.NewReaderSize(file, 1<<20))
	reader.Comma = comma
	reader.LazyQuotes = true
	reader.ReuseRecord = true
	reader.FieldsPerRecord = -1

	rawHeader, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errSingleColumn
		}
		return nil, err
	}
	if len(rawHeader) <= 1 {
		return nil, errSingleColumn
	}
	width := len(rawHeader)
	header := normalizeHeader(rawHeader)
	if missing := missingColumns(header, requiredColumns); len(missing) > 0 {
		schemaErr := &SchemaError{Path: path, Missing: missing, Found: trimHeader(rawHeader)}
		// A malformed body outranks the header so the caller can retry
		// with another delimiter.
		if err := drain(reader, width); err != nil {
			return nil, err
		}
		return nil, schemaErr
	}

	result := &YearFile{Path: path, Records: make([]model.TradeRecord, 0, 1024)}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if err := checkWidth(reader, record, width); err != nil {
			return nil, err
		}
		result.RowsRead++

		row, ok := n.normalizeRow(record, header)
		if !ok {
			result.RowsDropped++
			continue
		}
		if len(result.Records) == 0 {
			result.Year = row.Year
		} else if row.Year != result.Year {
			return nil, &MixedYearError{Path: path, Year: result.Year, Other: row.Year, Record: result.RowsRead}
		}
		result.Records = append(result.Records, row)
	}

	if len(result.Records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}
	return result, nil
}

func drain(reader *csv.Reader, width int) error {
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := checkWidth(reader, record, width); err != nil {
			return err
		}
	}
}

// checkWidth lets short rows through (their missing cells read as empty)
// and rejects rows wider than the header.
func checkWidth(reader *csv.Reader, record []string, width int) error {
	if len(record) <= width {
		return nil
	}
	line, _ := reader.FieldPos(0)
	return &csv.ParseError{StartLine: line, Line: line, Column: 1, Err: csv.ErrFieldCount}
}

func (n Normalizer) normalizeRow(record []string, header map[string]int) (model.TradeRecord, bool) {
	year, ok := ParseInt(getCell(record, header, columnYear))
	if !ok {
		return model.TradeRecord{}, false
	}
	product, ok := ParseInt(getCell(record, header, columnProduct))
	if !ok {
		return model.TradeRecord{}, false
	}
	value, ok := ParseFloat(getCell(record, header, columnValue))
	if !ok {
		return model.TradeRecord{}, false
	}
	if n.MinValue > 0 && value < n.MinValue {
		return model.TradeRecord{}, false
	}
	return model.TradeRecord{
		Year:     year,
		Reporter: strings.Clone(getCell(record, header, columnReporter)),
		Partner:  strings.Clone(getCell(record, header, columnPartner)),
		Product:  product,
		Value:    value,
		Quantity: parseNullFloat(getCell(record, header, columnQuantity)),
	}, true
}

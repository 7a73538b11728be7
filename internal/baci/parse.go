package baci

import (
	"database/sql"
	"math"
	"strconv"
	"strings"
)

const utf8BOM = "\ufeff"

// ParseInt accepts plain integers and integral decimals such as "2020.0".
func ParseInt(value string) (int, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(value); err == nil {
		return n, true
	}
	f, ok := ParseFloat(value)
	if !ok || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// ParseFloat rejects NaN and infinities so every parsed value encodes to JSON.
func ParseFloat(value string) (float64, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseNullFloat(value string) sql.NullFloat64 {
	f, ok := ParseFloat(value)
	return sql.NullFloat64{Float64: f, Valid: ok}
}

func normalizeHeader(header []string) map[string]int {
	result := make(map[string]int, len(header))
	for i, value := range header {
		key := strings.TrimSpace(value)
		if i == 0 {
			key = strings.TrimSpace(strings.TrimPrefix(key, utf8BOM))
		}
		if key == "" {
			continue
		}
		if _, exists := result[key]; !exists {
			result[key] = i
		}
	}
	return result
}

func missingColumns(header map[string]int, required []string) []string {
	missing := make([]string, 0)
	for _, column := range required {
		if _, ok := header[column]; !ok {
			missing = append(missing, column)
		}
	}
	return missing
}

func getCell(record []string, header map[string]int, key string) string {
	index, ok := header[key]
	if !ok || index >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[index])
}

func trimHeader(header []string) []string {
	out := make([]string, len(header))
	for i, value := range header {
		out[i] = strings.TrimSpace(strings.TrimPrefix(value, utf8BOM))
	}
	return out
}

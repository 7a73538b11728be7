package baci

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseInt(t *testing.T) {
	tests := []struct {
		input string
		want  int
		ok    bool
	}{
		{"2020", 2020, true},
		{" 10 ", 10, true},
		{"010121", 10121, true},
		{"2020.0", 2020, true},
		{"1e3", 1000, true},
		{"10.5", 0, false},
		{"", 0, false},
		{"abc", 0, false},
		{"NaN", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseInt(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFloat(t *testing.T) {
	tests := []struct {
		input string
		want  float64
		ok    bool
	}{
		{"5.0", 5.0, true},
		{"   0.123", 0.123, true},
		{"-2", -2, true},
		{"NA", 0, false},
		{"", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
		{"-inf", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseFloat(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeHeader(t *testing.T) {
	header := normalizeHeader([]string{"\ufeff t", " i ", "", "k", "k"})

	assert.Equal(t, map[string]int{"t": 0, "i": 1, "k": 3}, header)
	assert.Equal(t, []string{"v"}, missingColumns(header, []string{"t", "v"}))
}

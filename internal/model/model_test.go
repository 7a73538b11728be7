package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHS6(t *testing.T) {
	tests := map[int]string{
		0:      "000000",
		10:     "000010",
		10121:  "010121",
		999999: "999999",
	}
	for code, want := range tests {
		got := HS6(code)
		assert.Equal(t, want, got)
		assert.Len(t, got, 6)
	}
}

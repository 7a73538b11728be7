package model

import (
	"database/sql"
	"fmt"
)

const UnknownName = "Unknown"

// TradeRecord is one cleaned BACI row. Reporter and Partner are carried
// through but not used by the aggregation.
type TradeRecord struct {
	Year     int
	Reporter string
	Partner  string
	Product  int
	Value    float64
	Quantity sql.NullFloat64
}

type ProductAggregate struct {
	Code     int
	HS6      string
	Name     string
	Value    float64
	Quantity sql.NullFloat64
}

// YearAggregate holds the ranked, possibly truncated products of one year.
// Total is the value summed over every product before truncation.
type YearAggregate struct {
	Year     int
	Source   string
	Total    float64
	Products []ProductAggregate
}

type YearTotal struct {
	Year  int
	Total float64
}

// YearProduct is a kept product row tagged with the year it belongs to.
type YearProduct struct {
	Year int
	ProductAggregate
}

// HS6 renders a product code as a zero-padded six digit string.
func HS6(code int) string {
	return fmt.Sprintf("%06d", code)
}

package aggregate

import (
	"sort"

	"productspace/internal/model"
)

// CodeTotal is the cumulative kept value of one product code.
type CodeTotal struct {
	Code  int
	Total float64
}

// Accumulator folds year aggregates in the order they are added. It only
// sees kept rows, so overall totals are scoped to truncated data.
type Accumulator struct {
	rows       []model.YearProduct
	yearTotals []model.YearTotal
	order      []int
	overall    map[int]float64
	seenYears  map[int]int
}

func NewAccumulator() *Accumulator {
	return &Accumulator{
		overall:   make(map[int]float64),
		seenYears: make(map[int]int),
	}
}

// Add folds one year into the accumulator and reports whether the year had
// already been added by an earlier file.
func (a *Accumulator) Add(year model.YearAggregate) (duplicate bool) {
	a.seenYears[year.Year]++
	duplicate = a.seenYears[year.Year] > 1

	a.yearTotals = append(a.yearTotals, model.YearTotal{Year: year.Year, Total: year.Total})
	for _, product := range year.Products {
		a.rows = append(a.rows, model.YearProduct{Year: year.Year, ProductAggregate: product})
		if _, ok := a.overall[product.Code]; !ok {
			a.order = append(a.order, product.Code)
		}
		a.overall[product.Code] += product.Value
	}
	return duplicate
}

// Rows returns every kept row of every year, in the order they were added.
func (a *Accumulator) Rows() []model.YearProduct {
	return append([]model.YearProduct(nil), a.rows...)
}

func (a *Accumulator) YearTotals() []model.YearTotal {
	return append([]model.YearTotal(nil), a.yearTotals...)
}

// OverallTotals returns cumulative values per code in first-seen order.
func (a *Accumulator) OverallTotals() []CodeTotal {
	totals := make([]CodeTotal, 0, len(a.order))
	for _, code := range a.order {
		totals = append(totals, CodeTotal{Code: code, Total: a.overall[code]})
	}
	return totals
}

// Years lists the distinct years that kept at least one row, ascending.
func (a *Accumulator) Years() []int {
	years := make([]int, 0, len(a.seenYears))
	seen := make(map[int]struct{}, len(a.seenYears))
	for _, row := range a.rows {
		if _, ok := seen[row.Year]; ok {
			continue
		}
		seen[row.Year] = struct{}{}
		years = append(years, row.Year)
	}
	sort.Ints(years)
	return years
}

func (a *Accumulator) Len() int {
	return len(a.rows)
}

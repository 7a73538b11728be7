package publish

import (
	"sort"

	"productspace/internal/aggregate"
	"productspace/internal/baci"
	"productspace/internal/model"
)

// Assemble builds every document from the accumulated state. topOverall
// caps the overall ranking; a non-positive value uses DefaultTopOverall.
func Assemble(acc *aggregate.Accumulator, codes *baci.ProductCodes, meta Meta, topOverall int) Documents {
	if topOverall <= 0 {
		topOverall = DefaultTopOverall
	}
	rows := acc.Rows()
	return Documents{
		Timeseries: buildTimeseries(rows, acc.Years(), meta),
		TopOverall: buildTopOverall(acc.OverallTotals(), codes, topOverall),
		YearTotals: buildYearTotals(acc.YearTotals()),
		Lookup:     buildLookup(rows),
	}
}

func buildTimeseries(rows []model.YearProduct, years []int, meta Meta) Timeseries {
	byYear := make(map[int][]model.YearProduct, len(years))
	for _, row := range rows {
		byYear[row.Year] = append(byYear[row.Year], row)
	}

	data := make([]YearBlock, 0, len(years))
	for _, year := range years {
		products := byYear[year]
		sort.SliceStable(products, func(i, j int) bool {
			if products[i].Value != products[j].Value {
				return products[i].Value > products[j].Value
			}
			return products[i].Code < products[j].Code
		})
		entries := make([]ProductEntry, 0, len(products))
		for _, product := range products {
			entry := ProductEntry{
				Code:  product.Code,
				HS6:   product.HS6,
				Name:  product.Name,
				Value: product.Value,
			}
			if product.Quantity.Valid {
				quantity := product.Quantity.Float64
				entry.Quantity = &quantity
			}
			entries = append(entries, entry)
		}
		data = append(data, YearBlock{Year: year, Products: entries})
	}

	return Timeseries{
		Meta:  meta,
		Years: append([]int{}, years...),
		Data:  data,
	}
}

func buildTopOverall(totals []aggregate.CodeTotal, codes *baci.ProductCodes, limit int) []OverallEntry {
	sort.SliceStable(totals, func(i, j int) bool {
		return totals[i].Total > totals[j].Total
	})
	if len(totals) > limit {
		totals = totals[:limit]
	}
	entries := make([]OverallEntry, 0, len(totals))
	for _, total := range totals {
		entries = append(entries, OverallEntry{
			Code:  total.Code,
			HS6:   model.HS6(total.Code),
			Name:  codes.Name(total.Code),
			Value: total.Total,
		})
	}
	return entries
}

func buildYearTotals(totals []model.YearTotal) []YearTotalEntry {
	sort.SliceStable(totals, func(i, j int) bool {
		return totals[i].Year < totals[j].Year
	})
	entries := make([]YearTotalEntry, 0, len(totals))
	for _, total := range totals {
		entries = append(entries, YearTotalEntry{Year: total.Year, Total: total.Total})
	}
	return entries
}

type lookupKey struct {
	code int
	hs6  string
	name string
}

type lookupStats struct {
	years map[int]struct{}
	rows  int
	total float64
	max   float64
}

func buildLookup(rows []model.YearProduct) []LookupEntry {
	stats := make(map[lookupKey]*lookupStats)
	keys := make([]lookupKey, 0)
	for _, row := range rows {
		key := lookupKey{code: row.Code, hs6: row.HS6, name: row.Name}
		s, ok := stats[key]
		if !ok {
			s = &lookupStats{years: make(map[int]struct{}), max: row.Value}
			stats[key] = s
			keys = append(keys, key)
		}
		s.years[row.Year] = struct{}{}
		s.rows++
		s.total += row.Value
		if row.Value > s.max {
			s.max = row.Value
		}
	}

	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.code != b.code {
			return a.code < b.code
		}
		if a.hs6 != b.hs6 {
			return a.hs6 < b.hs6
		}
		return a.name < b.name
	})
	sort.SliceStable(keys, func(i, j int) bool {
		return stats[keys[i]].total > stats[keys[j]].total
	})

	entries := make([]LookupEntry, 0, len(keys))
	for _, key := range keys {
		s := stats[key]
		entries = append(entries, LookupEntry{
			Code:         key.code,
			HS6:          key.hs6,
			Name:         key.name,
			YearsPresent: len(s.years),
			Total:        s.total,
			Average:      s.total / float64(s.rows),
			Max:          s.max,
		})
	}
	return entries
}

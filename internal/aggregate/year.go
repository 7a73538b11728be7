package aggregate

import (
	"database/sql"
	"path/filepath"
	"sort"

	"productspace/internal/baci"
	"productspace/internal/model"
)

type group struct {
	code        int
	value       float64
	quantity    float64
	hasQuantity bool
}

// AggregateYear groups a cleaned file by product code and ranks the groups by
// value. The returned Total covers every group; Products keeps the first topN
// groups when topN is set.
func AggregateYear(file *baci.YearFile, codes *baci.ProductCodes, topN *int) model.YearAggregate {
	groups := make(map[int]*group)
	for _, record := range file.Records {
		g, ok := groups[record.Product]
		if !ok {
			g = &group{code: record.Product}
			groups[record.Product] = g
		}
		g.value += record.Value
		if record.Quantity.Valid {
			g.quantity += record.Quantity.Float64
			g.hasQuantity = true
		}
	}

	ordered := make([]*group, 0, len(groups))
	for _, g := range groups {
		ordered = append(ordered, g)
	}
	// Emit groups in code order first so equal values rank by code.
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].code < ordered[j].code
	})

	total := 0.0
	for _, g := range ordered {
		total += g.value
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].value > ordered[j].value
	})
	if topN != nil && *topN >= 0 && len(ordered) > *topN {
		ordered = ordered[:*topN]
	}

	products := make([]model.ProductAggregate, 0, len(ordered))
	for _, g := range ordered {
		products = append(products, model.ProductAggregate{
			Code:     g.code,
			HS6:      model.HS6(g.code),
			Name:     codes.Name(g.code),
			Value:    g.value,
			Quantity: sql.NullFloat64{Float64: g.quantity, Valid: g.hasQuantity},
		})
	}

	return model.YearAggregate{
		Year:     file.Year,
		Source:   filepath.Base(file.Path),
		Total:    total,
		Products: products,
	}
}

package store

import (
	"context"

	"productspace/internal/model"
)

// Store persists the kept rows and the pre-truncation total of each year.
type Store interface {
	SaveYears(ctx context.Context, years []model.YearAggregate) error
	ListYearTotals(ctx context.Context) ([]model.YearTotal, error)
	ListTopProducts(ctx context.Context, limit int) ([]ProductTotal, error)
	Close() error
}

// ProductTotal is a product's kept value summed over every stored year.
type ProductTotal struct {
	Code  int
	HS6   string
	Name  string
	Years int
	Total float64
}

type NopStore struct{}

func (s *NopStore) SaveYears(ctx context.Context, years []model.YearAggregate) error {
	_ = ctx
	_ = years
	return nil
}

func (s *NopStore) ListYearTotals(ctx context.Context) ([]model.YearTotal, error) {
	_ = ctx
	return nil, nil
}

func (s *NopStore) ListTopProducts(ctx context.Context, limit int) ([]ProductTotal, error) {
	_ = ctx
	_ = limit
	return nil, nil
}

func (s *NopStore) Close() error {
	return nil
}

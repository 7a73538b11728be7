package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"productspace/internal/model"
	"productspace/internal/store"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	db *sql.DB
}

func New(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite: path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveYears writes all years in one transaction. Rows already stored for a
// year are replaced so a year never mixes two runs.
func (s *Store) SaveYears(ctx context.Context, years []model.YearAggregate) (err error) {
	if len(years) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	totalStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO year_totals (year, total_value_kusd, products_kept, source_file, ingested_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(year)
		DO UPDATE SET
			total_value_kusd = excluded.total_value_kusd,
			products_kept = excluded.products_kept,
			source_file = excluded.source_file,
			ingested_at = excluded.ingested_at
	`)
	if err != nil {
		return err
	}
	defer totalStmt.Close()

	productStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO year_products (year, code, hs6, name, position, value_kusd, qty_tons)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(year, code)
		DO UPDATE SET
			hs6 = excluded.hs6,
			name = excluded.name,
			position = excluded.position,
			value_kusd = excluded.value_kusd,
			qty_tons = excluded.qty_tons
	`)
	if err != nil {
		return err
	}
	defer productStmt.Close()

	now := time.Now().UTC()
	cleared := make(map[int]struct{}, len(years))
	for _, year := range years {
		if _, ok := cleared[year.Year]; !ok {
			if _, err = tx.ExecContext(ctx, `DELETE FROM year_products WHERE year = ?`, year.Year); err != nil {
				return err
			}
			cleared[year.Year] = struct{}{}
		}
		if _, err = totalStmt.ExecContext(ctx, year.Year, year.Total, len(year.Products), year.Source, now); err != nil {
			return err
		}
		for rank, product := range year.Products {
			_, err = productStmt.ExecContext(
				ctx,
				year.Year,
				product.Code,
				product.HS6,
				product.Name,
				rank+1,
				product.Value,
				product.Quantity,
			)
			if err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

func (s *Store) ListYearTotals(ctx context.Context) ([]model.YearTotal, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT year, total_value_kusd FROM year_totals ORDER BY year`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]model.YearTotal, 0)
	for rows.Next() {
		var total model.YearTotal
		if err := rows.Scan(&total.Year, &total.Total); err != nil {
			return nil, err
		}
		results = append(results, total)
	}
	return results, rows.Err()
}

func (s *Store) ListTopProducts(ctx context.Context, limit int) ([]store.ProductTotal, error) {
	query := `
		SELECT code, hs6, name, COUNT(DISTINCT year), SUM(value_kusd) AS total
		FROM year_products
		GROUP BY code, hs6, name
		ORDER BY total DESC, code ASC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]store.ProductTotal, 0)
	for rows.Next() {
		var product store.ProductTotal
		if err := rows.Scan(&product.Code, &product.HS6, &product.Name, &product.Years, &product.Total); err != nil {
			return nil, err
		}
		results = append(results, product)
	}
	return results, rows.Err()
}

func (s *Store) migrate() error {
	statements := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS year_totals (
			year INTEGER PRIMARY KEY,
			total_value_kusd REAL NOT NULL,
			products_kept INTEGER NOT NULL,
			source_file TEXT NOT NULL,
			ingested_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS year_products (
			year INTEGER NOT NULL,
			code INTEGER NOT NULL,
			hs6 TEXT NOT NULL,
			name TEXT NOT NULL,
			position INTEGER NOT NULL,
			value_kusd REAL NOT NULL,
			qty_tons REAL,
			PRIMARY KEY (year, code)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_year_products_code ON year_products (code);`,
	}

	for _, statement := range statements {
		if _, err := s.db.Exec(statement); err != nil {
			return err
		}
	}

	return nil
}

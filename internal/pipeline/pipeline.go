package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"productspace/internal/aggregate"
	"productspace/internal/baci"
	"productspace/internal/config"
	"productspace/internal/model"
	"productspace/internal/observability"
	"productspace/internal/publish"
	"productspace/internal/store"
)

var ErrNoInput = errors.New("pipeline: no trade-flow files found")

type Deps struct {
	Logger  *slog.Logger
	Store   store.Store
	Metrics *observability.Metrics
}

// Result summarizes a completed build.
type Result struct {
	Files        []string
	Years        []model.YearAggregate
	Documents    publish.Documents
	RowsRead     int
	RowsDropped  int
	KeptRows     int
	MatchedNames int
}

type fileResult struct {
	year    model.YearAggregate
	read    int
	dropped int
}

// Run executes one build. Nothing is written unless every file aggregated.
func Run(ctx context.Context, cfg *config.Config, deps Deps) (*Result, error) {
	deps = withDefaults(deps)
	logger := deps.Logger
	started := time.Now()

	logger.Info("loading product codes", "path", cfg.CodesPath())
	codes, err := baci.LoadProductCodes(cfg.CodesPath())
	if err != nil {
		return nil, err
	}
	logger.Debug("product codes loaded", "codes", codes.Len())

	files, err := ResolveInputs(cfg.InputGlob())
	if err != nil {
		return nil, err
	}

	results, err := mapFiles(ctx, files, codes, cfg, logger)
	if err != nil {
		return nil, err
	}

	acc := aggregate.NewAccumulator()
	result := &Result{Files: files, Years: make([]model.YearAggregate, 0, len(results))}
	for i, fr := range results {
		if acc.Add(fr.year) {
			logger.Warn("year already aggregated from an earlier file", "year", fr.year.Year, "file", filepath.Base(files[i]))
		}
		result.Years = append(result.Years, fr.year)
		result.RowsRead += fr.read
		result.RowsDropped += fr.dropped

		deps.Metrics.FilesProcessed.Inc()
		deps.Metrics.RowsRead.Add(float64(fr.read))
		deps.Metrics.RowsDropped.Add(float64(fr.dropped))
		deps.Metrics.RecordYear(fr.year.Year, len(fr.year.Products), fr.year.Total)
	}

	meta := publish.Meta{
		TopNPerYear: cfg.TopN(),
		MinValue:    cfg.Aggregate.MinValue,
		Units:       publish.Units{Value: publish.ValueUnit, Quantity: publish.QuantityUnit},
		Source:      cfg.Meta.Source,
		CodesFile:   cfg.Data.CodesFile,
	}
	result.Documents = publish.Assemble(acc, codes, meta, cfg.Aggregate.TopOverall)

	if err := publish.WriteAll(cfg.Output.Dir, result.Documents, publish.WriteOptions{Indent: cfg.Output.Indent}); err != nil {
		return nil, err
	}

	// Persist only once the documents are in place.
	if err := deps.Store.SaveYears(ctx, result.Years); err != nil {
		return nil, fmt.Errorf("pipeline: persist years: %w", err)
	}

	result.KeptRows, result.MatchedNames = nameCoverage(acc.Rows())
	deps.Metrics.UnmatchedNames.Set(float64(result.KeptRows - result.MatchedNames))
	deps.Metrics.RecordSuccess(started, time.Now())
	if cfg.Metrics.Textfile != "" {
		if err := deps.Metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.Warn("failed to write metrics textfile", "path", cfg.Metrics.Textfile, "error", err)
		}
	}

	logger.Info("name coverage",
		"matched", humanize.Comma(int64(result.MatchedNames)),
		"total", humanize.Comma(int64(result.KeptRows)),
	)
	if result.MatchedNames < result.KeptRows {
		logger.Warn("some HS6 codes did not match the product code file",
			"unmatched", result.KeptRows-result.MatchedNames,
		)
	}
	logger.Info("build complete", "out", cfg.Output.Dir, "files", len(files), "elapsed", time.Since(started).Round(time.Millisecond))

	return result, nil
}

// ResolveInputs expands pattern and sorts the matches by file name.
func ResolveInputs(pattern string) ([]string, error) {
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("pipeline: bad pattern %q: %w", pattern, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoInput, pattern)
	}
	sort.Strings(files)
	return files, nil
}

// mapFiles normalizes and aggregates each file. Results are slotted by file
// index so callers fold them in sorted file order whatever the worker count.
func mapFiles(ctx context.Context, files []string, codes *baci.ProductCodes, cfg *config.Config, logger *slog.Logger) ([]fileResult, error) {
	normalizer := baci.Normalizer{MinValue: cfg.Aggregate.MinValue}
	topN := cfg.TopN()
	results := make([]fileResult, len(files))

	process := func(ctx context.Context, i int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := files[i]
		file, err := normalizer.ReadFile(path)
		if err != nil {
			return err
		}
		year := aggregate.AggregateYear(file, codes, topN)
		results[i] = fileResult{year: year, read: file.RowsRead, dropped: file.RowsDropped}

		logger.Info("processed file",
			"file", filepath.Base(path),
			"year", year.Year,
			"rows_kept", len(year.Products),
		)
		logger.Debug("file rows",
			"file", filepath.Base(path),
			"read", humanize.Comma(int64(file.RowsRead)),
			"dropped", humanize.Comma(int64(file.RowsDropped)),
			"total_value_kusd", year.Total,
		)
		return nil
	}

	workers := cfg.Workers
	if workers <= 1 {
		for i := range files {
			if err := process(ctx, i); err != nil {
				return nil, err
			}
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range files {
		i := i
		g.Go(func() error {
			return process(gctx, i)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func nameCoverage(rows []model.YearProduct) (total, matched int) {
	for _, row := range rows {
		total++
		if row.Name != model.UnknownName {
			matched++
		}
	}
	return total, matched
}

func withDefaults(deps Deps) Deps {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Store == nil {
		deps.Store = &store.NopStore{}
	}
	if deps.Metrics == nil {
		deps.Metrics = observability.NewMetrics("")
	}
	return deps
}

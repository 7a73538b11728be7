package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"productspace/internal/baci"
	"productspace/internal/config"
	"productspace/internal/model"
	"productspace/internal/observability"
	"productspace/internal/publish"
	"productspace/internal/store"
	"productspace/internal/store/sqlite"
)

const codesCSV = "code,description\n10,Live animals\n20,Fish\n20,Fish (duplicate)\n"

func setupData(t *testing.T, files map[string]string) *config.Config {
	t.Helper()
	root := t.TempDir()
	dataDir := filepath.Join(root, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "product_codes_HS92_V202601.csv"), []byte(codesCSV), 0o644))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dataDir, name), []byte(content), 0o644))
	}

	return &config.Config{
		Data: config.DataConfig{
			Dir:       dataDir,
			CodesFile: "product_codes_HS92_V202601.csv",
			Pattern:   "BACI_HS92_Y*_V202601.csv",
		},
		Output:    config.OutputConfig{Dir: filepath.Join(root, "out")},
		Aggregate: config.AggregateConfig{TopNPerYear: 300, TopOverall: 1000},
		Meta:      config.MetaConfig{Source: "CEPII BACI HS92"},
		Logging:   config.LoggingConfig{Level: "info", Format: "text"},
		Workers:   1,
	}
}

func quietDeps() Deps {
	return Deps{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestRun_EndToEnd(t *testing.T) {
	cfg := setupData(t, map[string]string{
		"BACI_HS92_Y2020_V202601.csv": "t\ti\tj\tk\tv\tq\n2020\t4\t8\t10\t5.0\t1.0\n2020\t4\t12\t10\t3.0\t2.0\n",
	})

	result, err := Run(context.Background(), cfg, quietDeps())
	require.NoError(t, err)

	require.Len(t, result.Years, 1)
	require.Len(t, result.Years[0].Products, 1)
	got := result.Years[0].Products[0]
	assert.Equal(t, 10, got.Code)
	assert.Equal(t, "000010", got.HS6)
	assert.Equal(t, "Live animals", got.Name)
	assert.Equal(t, 8.0, got.Value)
	assert.True(t, got.Quantity.Valid)
	assert.Equal(t, 3.0, got.Quantity.Float64)

	raw, err := os.ReadFile(filepath.Join(cfg.Output.Dir, publish.YearTotalsFile))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"year":2020,"total_value_kusd":8}]`, string(raw))

	raw, err = os.ReadFile(filepath.Join(cfg.Output.Dir, publish.TopOverallFile))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"k":10,"hs6":"000010","name":"Live animals","value_kusd":8}]`, string(raw))

	raw, err = os.ReadFile(filepath.Join(cfg.Output.Dir, publish.TimeseriesFile))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"meta": {
			"top_n_per_year": 300,
			"min_value_kusd": 0,
			"units": {"v": "thousand USD", "q": "metric tons"},
			"source": "CEPII BACI HS92",
			"codes_file": "product_codes_HS92_V202601.csv"
		},
		"years": [2020],
		"data": [{"year": 2020, "products": [{"k": 10, "hs6": "000010", "name": "Live animals", "v": 8, "q": 3}]}]
	}`, string(raw))

	raw, err = os.ReadFile(filepath.Join(cfg.Output.Dir, publish.LookupFile))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"k":10,"hs6":"000010","name":"Live animals","years_present":1,"total_value_kusd":8,"avg_value_kusd":8,"max_value_kusd":8}]`, string(raw))

	assert.Equal(t, 1, result.KeptRows)
	assert.Equal(t, 1, result.MatchedNames)
}

func multiYearFiles() map[string]string {
	return map[string]string{
		"BACI_HS92_Y2021_V202601.csv": "t,i,j,k,v,q\n" +
			"2021,4,8,10,40,\n" +
			"2021,4,8,20,60,2\n" +
			"2021,4,8,30,5,1\n" +
			"2021,4,8,99,bad,1\n",
		"BACI_HS92_Y2020_V202601.csv": "t,i,j,k,v,q\n" +
			"2020,4,8,10,30,1\n" +
			"2020,4,8,40,10,\n" +
			"2020,4,8,20,1,1\n",
	}
}

func TestRun_TruncationAndTotals(t *testing.T) {
	cfg := setupData(t, multiYearFiles())
	cfg.Aggregate.TopNPerYear = 2
	metrics := observability.NewMetrics("")
	deps := quietDeps()
	deps.Metrics = metrics

	result, err := Run(context.Background(), cfg, deps)
	require.NoError(t, err)

	require.Len(t, result.Years, 2)
	assert.Equal(t, 2020, result.Years[0].Year)
	assert.Equal(t, 41.0, result.Years[0].Total)
	assert.Equal(t, 105.0, result.Years[1].Total)
	for _, year := range result.Years {
		assert.Len(t, year.Products, 2)
	}

	docs := result.Documents
	assert.Equal(t, []publish.YearTotalEntry{{Year: 2020, Total: 41}, {Year: 2021, Total: 105}}, docs.YearTotals)
	assert.Equal(t, []publish.OverallEntry{
		{Code: 10, HS6: "000010", Name: "Live animals", Value: 70},
		{Code: 20, HS6: "000020", Name: "Fish", Value: 60},
		{Code: 40, HS6: "000040", Name: "Unknown", Value: 10},
	}, docs.TopOverall)

	assert.Equal(t, 7, result.RowsRead)
	assert.Equal(t, 1, result.RowsDropped)
	assert.Equal(t, 4, result.KeptRows)
	assert.Equal(t, 3, result.MatchedNames)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.FilesProcessed))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RowsDropped))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.UnmatchedNames))
}

func TestRun_ParallelMatchesSequential(t *testing.T) {
	files := multiYearFiles()
	files["BACI_HS92_Y2019_V202601.csv"] = "t,i,j,k,v,q\n2019,1,2,20,7,\n2019,1,2,10,7,\n"

	sequential := setupData(t, files)
	_, err := Run(context.Background(), sequential, quietDeps())
	require.NoError(t, err)

	parallel := setupData(t, files)
	parallel.Workers = 4
	_, err = Run(context.Background(), parallel, quietDeps())
	require.NoError(t, err)

	for _, name := range []string{publish.TimeseriesFile, publish.TopOverallFile, publish.YearTotalsFile, publish.LookupFile} {
		want, err := os.ReadFile(filepath.Join(sequential.Output.Dir, name))
		require.NoError(t, err)
		got, err := os.ReadFile(filepath.Join(parallel.Output.Dir, name))
		require.NoError(t, err)
		assert.Equal(t, string(want), string(got), name)
	}
}

func TestRun_Deterministic(t *testing.T) {
	cfg := setupData(t, multiYearFiles())

	_, err := Run(context.Background(), cfg, quietDeps())
	require.NoError(t, err)
	first, err := os.ReadFile(filepath.Join(cfg.Output.Dir, publish.TopOverallFile))
	require.NoError(t, err)

	_, err = Run(context.Background(), cfg, quietDeps())
	require.NoError(t, err)
	second, err := os.ReadFile(filepath.Join(cfg.Output.Dir, publish.TopOverallFile))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRun_NoInput(t *testing.T) {
	cfg := setupData(t, nil)

	_, err := Run(context.Background(), cfg, quietDeps())

	assert.True(t, errors.Is(err, ErrNoInput))
	assert.NoDirExists(t, cfg.Output.Dir)
}

func TestRun_MissingReference(t *testing.T) {
	cfg := setupData(t, multiYearFiles())
	cfg.Data.CodesFile = "absent.csv"

	_, err := Run(context.Background(), cfg, quietDeps())

	var missing *baci.MissingFileError
	assert.ErrorAs(t, err, &missing)
}

func TestRun_BadFileAbortsWithoutOutput(t *testing.T) {
	files := multiYearFiles()
	files["BACI_HS92_Y2022_V202601.csv"] = "t,i,j,k,v\n2022,4,8,10,1\n"
	cfg := setupData(t, files)

	_, err := Run(context.Background(), cfg, quietDeps())

	var schemaErr *baci.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.NoDirExists(t, cfg.Output.Dir)
}

func TestRun_MixedYearFile(t *testing.T) {
	cfg := setupData(t, map[string]string{
		"BACI_HS92_Y2020_V202601.csv": "t,i,j,k,v,q\n2020,4,8,10,1,1\n2021,4,8,10,1,1\n",
	})

	_, err := Run(context.Background(), cfg, quietDeps())

	var mixed *baci.MixedYearError
	assert.ErrorAs(t, err, &mixed)
}

func TestRun_Canceled(t *testing.T) {
	cfg := setupData(t, multiYearFiles())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, cfg, quietDeps())

	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRun_PersistsToStore(t *testing.T) {
	cfg := setupData(t, multiYearFiles())
	st, err := sqlite.New(filepath.Join(t.TempDir(), "productspace.db"))
	require.NoError(t, err)
	defer st.Close()
	deps := quietDeps()
	deps.Store = st

	_, err = Run(context.Background(), cfg, deps)
	require.NoError(t, err)

	totals, err := st.ListYearTotals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.YearTotal{{Year: 2020, Total: 41}, {Year: 2021, Total: 105}}, totals)
}

func TestRun_MetricsTextfile(t *testing.T) {
	cfg := setupData(t, multiYearFiles())
	cfg.Metrics.Textfile = filepath.Join(t.TempDir(), "productspace.prom")

	_, err := Run(context.Background(), cfg, quietDeps())
	require.NoError(t, err)

	assert.FileExists(t, cfg.Metrics.Textfile)
}

func TestResolveInputs_Sorted(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"BACI_Y2021.csv", "BACI_Y1995.csv", "BACI_Y2000.csv", "other.csv"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	files, err := ResolveInputs(filepath.Join(dir, "BACI_Y*.csv"))
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "BACI_Y1995.csv"),
		filepath.Join(dir, "BACI_Y2000.csv"),
		filepath.Join(dir, "BACI_Y2021.csv"),
	}, files)
}

type recordingStore struct {
	store.NopStore
	outDir    string
	saves     int
	docsReady bool
}

func (s *recordingStore) SaveYears(ctx context.Context, years []model.YearAggregate) error {
	s.saves++
	_, err := os.Stat(filepath.Join(s.outDir, publish.LookupFile))
	s.docsReady = err == nil
	return nil
}

func TestRun_PersistsAfterDocuments(t *testing.T) {
	cfg := setupData(t, multiYearFiles())
	rec := &recordingStore{outDir: cfg.Output.Dir}
	deps := quietDeps()
	deps.Store = rec

	_, err := Run(context.Background(), cfg, deps)
	require.NoError(t, err)

	assert.Equal(t, 1, rec.saves)
	assert.True(t, rec.docsReady)
}

func TestRun_WriteFailureSkipsStore(t *testing.T) {
	cfg := setupData(t, multiYearFiles())
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.Output.Dir, publish.LookupFile), 0o755))
	rec := &recordingStore{outDir: cfg.Output.Dir}
	deps := quietDeps()
	deps.Store = rec

	_, err := Run(context.Background(), cfg, deps)
	require.Error(t, err)

	assert.Zero(t, rec.saves)
	assert.NoFileExists(t, filepath.Join(cfg.Output.Dir, publish.TimeseriesFile))
}

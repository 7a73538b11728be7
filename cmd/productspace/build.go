package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"productspace/internal/config"
	"productspace/internal/observability"
	"productspace/internal/pipeline"
	"productspace/internal/store"
	"productspace/internal/store/sqlite"
)

func newBuildCmd(root *rootOptions) *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Aggregate every trade-flow file and write the JSON documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, root.cfgFile)
			if err != nil {
				return err
			}
			logger := newLogger(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format, root.verbose)

			st, err := openStore(cfg.Store.DB)
			if err != nil {
				return err
			}
			defer st.Close()

			_, err = pipeline.Run(cmd.Context(), cfg, pipeline.Deps{
				Logger:  logger,
				Store:   st,
				Metrics: observability.NewMetrics(""),
			})
			return err
		},
	}

	flags := cmd.Flags()
	flags.String("data-dir", "", "directory holding the BACI files")
	flags.String("codes-file", "", "product code table file name inside the data dir")
	flags.String("pattern", "", "trade-flow file name pattern inside the data dir")
	flags.String("out-dir", "", "output directory")
	flags.Bool("indent", false, "indent the JSON documents")
	flags.Int("top-n", 0, "products kept per year (0 keeps all)")
	flags.Float64("min-value", 0, "drop rows below this value in thousand USD")
	flags.Int("workers", 1, "files processed concurrently")
	flags.String("db", "", "sqlite database path (empty disables persistence)")
	flags.String("metrics-file", "", "write run metrics to this textfile")

	bindings := map[string]string{
		"data.dir":                 "data-dir",
		"data.codes_file":          "codes-file",
		"data.pattern":             "pattern",
		"output.dir":               "out-dir",
		"output.indent":            "indent",
		"aggregate.top_n_per_year": "top-n",
		"aggregate.min_value_kusd": "min-value",
		"workers":                  "workers",
		"store.db":                 "db",
		"metrics.textfile":         "metrics-file",
	}
	for key, flag := range bindings {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}

	return cmd
}

func openStore(path string) (store.Store, error) {
	if strings.TrimSpace(path) == "" {
		return &store.NopStore{}, nil
	}
	return sqlite.New(path)
}

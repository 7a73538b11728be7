package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	cfgFile string
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "productspace",
		Short: "Aggregate BACI trade flows into product space documents",
		Long: `productspace reads the CEPII BACI HS92 trade-flow files, aggregates value
and quantity per HS6 product and year, and writes the JSON documents used by
the product space front end.

Example usage:
  productspace build                       # build with .productspace.yaml or defaults
  productspace build --top-n 0             # keep every product of every year
  productspace build --db productspace.db  # also persist kept rows to sqlite
  productspace summary --db productspace.db`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default is .productspace.yaml)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(newBuildCmd(opts))
	cmd.AddCommand(newSummaryCmd(opts))
	return cmd
}

func newLogger(w io.Writer, level, format string, verbose bool) *slog.Logger {
	logLevel := slog.LevelInfo
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	if verbose {
		logLevel = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"productspace/internal/model"
	"productspace/internal/store"
	"productspace/internal/store/sqlite"
)

func newSummaryCmd(root *rootOptions) *cobra.Command {
	var (
		dbPath string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print year totals and top products stored by a previous build",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(dbPath) == "" {
				return errors.New("--db is required")
			}
			st, err := sqlite.New(dbPath)
			if err != nil {
				return err
			}
			defer st.Close()

			totals, err := st.ListYearTotals(cmd.Context())
			if err != nil {
				return err
			}
			products, err := st.ListTopProducts(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if root.verbose {
				fmt.Fprintf(cmd.ErrOrStderr(), "summary db=%s years=%d products=%d\n", dbPath, len(totals), len(products))
			}
			return renderSummary(cmd.OutOrStdout(), totals, products)
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "sqlite database written by build --db")
	cmd.Flags().IntVar(&limit, "limit", 20, "number of products to list (0 = all)")
	return cmd
}

func renderSummary(w io.Writer, totals []model.YearTotal, products []store.ProductTotal) error {
	yearRows := make([][]string, 0, len(totals))
	for _, total := range totals {
		yearRows = append(yearRows, []string{
			strconv.Itoa(total.Year),
			humanize.CommafWithDigits(total.Total, 1),
		})
	}
	if err := renderTable(w, []string{"Year", "Total value (kUSD)"}, yearRows); err != nil {
		return err
	}
	fmt.Fprintln(w)

	productRows := make([][]string, 0, len(products))
	for i, product := range products {
		productRows = append(productRows, []string{
			strconv.Itoa(i + 1),
			product.HS6,
			truncate(product.Name, 60),
			strconv.Itoa(product.Years),
			humanize.CommafWithDigits(product.Total, 1),
		})
	}
	return renderTable(w, []string{"#", "HS6", "Name", "Years", "Kept value (kUSD)"}, productRows)
}

func renderTable(w io.Writer, header []string, rows [][]string) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{
					AutoWrap: tw.WrapNone,
				},
				Alignment: tw.CellAlignment{
					Global: tw.AlignLeft,
				},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{
					AutoFormat: tw.On,
				},
				Alignment: tw.CellAlignment{
					Global: tw.AlignLeft,
				},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{
					ShowHeader: tw.Off,
				},
			},
		}),
	)
	table.Header(header)
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

func truncate(value string, max int) string {
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max-1]) + "…"
}

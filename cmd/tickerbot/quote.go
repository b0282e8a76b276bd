package main

import (
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nanzhong/tickerbot/market"
)

func newQuoteCmd(opts *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "quote SYMBOL...",
		Short: "Print current quotes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validOutput(output); err != nil {
				return err
			}
			a, err := opts.load(false)
			if err != nil {
				return err
			}

			var (
				quotes []market.Quote
				rows   []quoteRow
				errs   []error
			)
			for _, symbol := range args {
				q, err := a.Service.GetQuote(cmd.Context(), symbol)
				if err != nil {
					a.Log.WithError(err).WithField("symbol", symbol).Error("fetching quote")
					errs = append(errs, fmt.Errorf("%s: %w", symbol, err))
					continue
				}
				quotes = append(quotes, q)
				rows = append(rows, newQuoteRow(q))
			}
			if len(rows) > 0 {
				if err := writeRows(cmd.OutOrStdout(), output, quoteHeader, rows, quotes); err != nil {
					return err
				}
			}
			return errors.Join(errs...)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "Output format: table, csv or json.")
	return cmd
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search for symbols",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validOutput(output); err != nil {
				return err
			}
			a, err := opts.load(false)
			if err != nil {
				return err
			}

			query := strings.Join(args, " ")
			results := a.Service.SearchSymbols(cmd.Context(), query)
			a.Log.WithFields(log.Fields{"query": query, "results": len(results)}).Debug("searched symbols")

			rows := make([]searchRow, 0, len(results))
			for _, r := range results {
				rows = append(rows, searchRow(r))
			}
			return writeRows(cmd.OutOrStdout(), output, searchHeader, rows, results)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "Output format: table, csv or json.")
	return cmd
}

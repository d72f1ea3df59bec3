package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/heartmarshall/lettertrack/internal/app"
	"github.com/heartmarshall/lettertrack/internal/domain"
)

func newReportCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summaries over the letter store",
	}
	cmd.AddCommand(newReportStatusCommand(ctx))
	cmd.AddCommand(newReportSponseeCommand(ctx))
	cmd.AddCommand(newReportRangeCommand(ctx))
	return cmd
}

type statusCountView struct {
	Status       string  `json:"status"`
	Count        int     `json:"count"`
	EarliestScan *string `json:"earliest_scan"`
	LatestScan   *string `json:"latest_scan"`
}

func newReportStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Count letters per status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(cmd, func(svc *app.Services) error {
				counts, err := svc.Reports.StatusSummary(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					views := make([]statusCountView, 0, len(counts))
					for _, c := range counts {
						views = append(views, statusCountView{
							Status:       c.Status.String(),
							Count:        c.Count,
							EarliestScan: isoDate(c.EarliestScan),
							LatestScan:   isoDate(c.LatestScan),
						})
					}
					return writeJSON(cmd, views)
				}
				printStatusSummary(cmd.OutOrStdout(), counts)
				return nil
			})
		},
	}
}

func printStatusSummary(w io.Writer, counts []domain.StatusCount) {
	if len(counts) == 0 {
		fmt.Fprintln(w, "No letters")
		return
	}
	rows := make([][]string, 0, len(counts))
	total := 0
	for _, c := range counts {
		total += c.Count
		rows = append(rows, []string{
			c.Status.String(),
			strconv.Itoa(c.Count),
			domain.DisplayDate(c.EarliestScan),
			domain.DisplayDate(c.LatestScan),
		})
	}
	rows = append(rows, []string{"total", strconv.Itoa(total), "", ""})
	fmt.Fprintln(w, renderTable(w,
		[]string{"STATUS", "LETTERS", "EARLIEST SCAN", "LATEST SCAN"},
		rows,
		[]columnAlignment{alignLeft, alignRight},
	))
}

func newReportSponseeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sponsee <index>",
		Short: "List the letters of one sponsee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil || index <= 0 {
				return domain.NewValidationError("sponsee_index", "must be a positive integer")
			}
			return ctx.withServices(cmd, func(svc *app.Services) error {
				letters, err := svc.Reports.LettersForSponsee(cmd.Context(), index)
				if err != nil {
					return err
				}
				return ctx.emitLetters(cmd, letters)
			})
		},
	}
}

func newReportRangeCommand(ctx *commandContext) *cobra.Command {
	var (
		field string
		from  string
		to    string
	)

	cmd := &cobra.Command{
		Use:   "range",
		Short: "List letters whose date field falls in a range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fromDate, err := domain.ParseDate(from)
			if err != nil {
				return domain.NewValidationError("from", "unrecognized date "+from)
			}
			toDate, err := domain.ParseDate(to)
			if err != nil {
				return domain.NewValidationError("to", "unrecognized date "+to)
			}
			dateField := domain.LetterField(strings.ToLower(strings.TrimSpace(field)))

			return ctx.withServices(cmd, func(svc *app.Services) error {
				letters, err := svc.Reports.LettersInRange(cmd.Context(), dateField, fromDate, toDate)
				if err != nil {
					return err
				}
				return ctx.emitLetters(cmd, letters)
			})
		},
	}

	cmd.Flags().StringVar(&field, "field", domain.FieldDateScanned.String(), "Date field to bound")
	cmd.Flags().StringVar(&from, "from", "", "Earliest date (inclusive)")
	cmd.Flags().StringVar(&to, "to", "", "Latest date (inclusive)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func (c *commandContext) emitLetters(cmd *cobra.Command, letters []*domain.Letter) error {
	if c.jsonOutput() {
		views := make([]letterView, 0, len(letters))
		for _, l := range letters {
			views = append(views, newLetterView(l))
		}
		return writeJSON(cmd, views)
	}
	printLetterList(cmd.OutOrStdout(), letters)
	return nil
}

func isoDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := domain.FormatDate(*t)
	return &s
}

package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/heartmarshall/lettertrack/internal/app"
	"github.com/heartmarshall/lettertrack/internal/domain"
	"github.com/heartmarshall/lettertrack/internal/service/letter"
	"github.com/heartmarshall/lettertrack/internal/service/report"
)

func newAuditCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit <letter-id>",
		Short: "Show the audit trail of a letter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseLetterID(args[0])
			if err != nil {
				return err
			}
			return ctx.withServices(cmd, func(svc *app.Services) error {
				entries, err := svc.Reports.AuditTrail(cmd.Context(), id)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					records := make([]report.AuditRecord, 0, len(entries))
					for _, e := range entries {
						records = append(records, report.NewAuditRecord(e))
					}
					return writeJSON(cmd, records)
				}
				printAuditEntries(cmd.OutOrStdout(), entries)
				return nil
			})
		},
	}

	cmd.AddCommand(newAuditExportCommand(ctx))
	return cmd
}

func newAuditExportCommand(ctx *commandContext) *cobra.Command {
	var (
		letterID int64
		action   string
		field    string
		by       string
		afterLog int64
		since    string
		until    string
		limit    int
		output   string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export audit entries as JSON Lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := domain.AuditFilter{AfterLogID: afterLog, Limit: limit}
			if letterID > 0 {
				filter.LetterID = &letterID
			}
			if action != "" {
				a := domain.AuditAction(strings.ToLower(action))
				filter.Action = &a
			}
			if field != "" {
				f := domain.LetterField(strings.ToLower(field))
				filter.Field = &f
			}
			if by != "" {
				filter.Actor = &by
			}
			var err error
			if filter.Since, err = optionalDate("since", since); err != nil {
				return err
			}
			if filter.Until, err = optionalDate("until", until); err != nil {
				return err
			}
			if filter.Until != nil {
				end := filter.Until.Add(24*time.Hour - time.Nanosecond)
				filter.Until = &end
			}
			if err := filter.Validate(); err != nil {
				return err
			}

			return ctx.withServices(cmd, func(svc *app.Services) error {
				var w io.Writer = cmd.OutOrStdout()
				if output != "" && output != "-" {
					f, err := os.Create(output)
					if err != nil {
						return fmt.Errorf("create %s: %w", output, err)
					}
					defer f.Close()
					w = f
				}
				n, err := svc.Reports.ExportAudit(cmd.Context(), w, filter)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "exported %d audit entries\n", n)
				return nil
			})
		},
	}

	flags := cmd.Flags()
	flags.Int64Var(&letterID, "letter", 0, "Only entries of this letter")
	flags.StringVar(&action, "action", "", "Only entries with this action")
	flags.StringVar(&field, "field", "", "Only entries for this field")
	flags.StringVar(&by, "by", "", "Only entries written by this actor")
	flags.Int64Var(&afterLog, "after", 0, "Only entries with a greater log id")
	flags.StringVar(&since, "since", "", "Earliest day (inclusive)")
	flags.StringVar(&until, "until", "", "Latest day (inclusive)")
	flags.IntVar(&limit, "limit", 0, "Maximum number of entries (0 = all)")
	flags.StringVarP(&output, "output", "o", "-", "Output file")

	return cmd
}

func printAuditEntries(w io.Writer, entries []domain.AuditEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No audit entries")
		return
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			strconv.FormatInt(e.LogID, 10),
			e.Timestamp.UTC().Format(time.DateTime),
			e.Action.String(),
			e.Field.String(),
			e.OldValue,
			e.NewValue,
			e.Actor,
			e.Details,
		})
	}
	fmt.Fprintln(w, renderTable(w,
		[]string{"LOG", "TIME", "ACTION", "FIELD", "OLD", "NEW", "ACTOR", "DETAILS"},
		rows,
		[]columnAlignment{alignRight},
	))
}

func newVerifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "verify [letter-id]...",
		Short: "Check that audit trails explain the current letters",
		Long:  "Replay the audit trail of the given letters, or of every letter when none\nis given, and report values the trail does not account for.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, raw := range args {
				id, err := parseLetterID(raw)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}

			return ctx.withServices(cmd, func(svc *app.Services) error {
				if len(ids) == 0 {
					letters, err := letter.Collect(svc.Letters.List(cmd.Context(), domain.LetterFilter{}))
					if err != nil {
						return err
					}
					for _, l := range letters {
						ids = append(ids, l.ID)
					}
				}

				reports := make([]*report.TrailReport, 0, len(ids))
				broken := 0
				for _, id := range ids {
					rep, err := svc.Reports.VerifyTrail(cmd.Context(), id)
					if err != nil {
						return err
					}
					if !rep.OK() {
						broken++
					}
					reports = append(reports, rep)
				}

				if ctx.jsonOutput() {
					if err := writeJSON(cmd, reports); err != nil {
						return err
					}
				} else {
					printTrailReports(cmd.OutOrStdout(), reports)
				}
				if broken > 0 {
					return fmt.Errorf("%d of %d letters have audit discrepancies", broken, len(reports))
				}
				return nil
			})
		},
	}
}

func printTrailReports(w io.Writer, reports []*report.TrailReport) {
	var rows [][]string
	for _, rep := range reports {
		for _, d := range rep.Discrepancies {
			logID := ""
			if d.LogID > 0 {
				logID = strconv.FormatInt(d.LogID, 10)
			}
			rows = append(rows, []string{
				strconv.FormatInt(rep.LetterID, 10),
				d.Field.String(),
				logID,
				d.Expected,
				d.Actual,
				d.Problem,
			})
		}
	}
	if len(rows) == 0 {
		fmt.Fprintf(w, "Verified %d letters: all audit trails consistent\n", len(reports))
		return
	}
	fmt.Fprintln(w, renderTable(w,
		[]string{"LETTER", "FIELD", "LOG", "EXPECTED", "ACTUAL", "PROBLEM"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight},
	))
}

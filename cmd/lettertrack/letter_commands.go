package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/heartmarshall/lettertrack/internal/app"
	"github.com/heartmarshall/lettertrack/internal/domain"
	"github.com/heartmarshall/lettertrack/internal/service/ingest"
	"github.com/heartmarshall/lettertrack/internal/service/letter"
	"github.com/heartmarshall/lettertrack/internal/service/lifecycle"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var (
		envelope      string
		pages         string
		stepWork      string
		pickedUp      string
		postmarked    string
		ocrText       string
		ocrFile       string
		confidence    float64
		returnAddress string
		artifact      string
		extractedID   string
		sponseeIndex  int64
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Record a scanned envelope and its OCR output as a new letter",
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := ctx.actor()
			if err != nil {
				return err
			}
			if ocrFile != "" {
				data, err := os.ReadFile(ocrFile)
				if err != nil {
					return fmt.Errorf("read ocr text: %w", err)
				}
				ocrText = string(data)
			}
			pickedUpDate, err := optionalDate("picked_up", pickedUp)
			if err != nil {
				return err
			}
			postmarkedDate, err := optionalDate("postmarked", postmarked)
			if err != nil {
				return err
			}

			input := ingest.Input{
				Scan: domain.EnvelopeScan{
					EnvelopeImagePath:    envelope,
					LetterPagesImagePath: optionalString(pages),
					DatePickedUp:         pickedUpDate,
					DatePostmarked:       postmarkedDate,
					StepWork:             optionalString(stepWork),
				},
				OCR: domain.OCRResult{
					Text:                   ocrText,
					Confidence:             confidence,
					ExtractedReturnAddress: optionalString(returnAddress),
					ArtifactPath:           artifact,
					ExtractedID:            optionalString(extractedID),
				},
				Actor: actor,
			}
			if sponseeIndex > 0 {
				input.SponseeIndex = &sponseeIndex
			}

			return ctx.withServices(cmd, func(svc *app.Services) error {
				l, err := svc.Ingest.Ingest(cmd.Context(), input)
				if err != nil {
					return err
				}
				return ctx.emitLetter(cmd, l)
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&envelope, "envelope", "", "Envelope image path")
	flags.StringVar(&pages, "pages", "", "Letter pages image path")
	flags.StringVar(&stepWork, "step-work", "", "Step the letter works on")
	flags.StringVar(&pickedUp, "picked-up", "", "Pick-up date (YYYY-MM-DD or DDMonYYYY)")
	flags.StringVar(&postmarked, "postmarked", "", "Postmark date")
	flags.StringVar(&ocrText, "ocr-text", "", "OCR text")
	flags.StringVar(&ocrFile, "ocr-file", "", "Read OCR text from a file")
	flags.Float64Var(&confidence, "confidence", 0, "OCR confidence in [0, 1]")
	flags.StringVar(&returnAddress, "return-address", "", "Return address extracted by OCR")
	flags.StringVar(&artifact, "artifact", "", "Raw OCR artifact path")
	flags.StringVar(&extractedID, "extracted-id", "", "Sponsee identifier read from the envelope")
	flags.Int64Var(&sponseeIndex, "sponsee", 0, "Known sponsee index; overrides --extracted-id")
	_ = cmd.MarkFlagRequired("envelope")
	cmd.MarkFlagsMutuallyExclusive("ocr-text", "ocr-file")

	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <letter-id>",
		Short: "Show one letter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseLetterID(args[0])
			if err != nil {
				return err
			}
			return ctx.withServices(cmd, func(svc *app.Services) error {
				l, err := svc.Letters.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				return ctx.emitLetter(cmd, l)
			})
		},
	}
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var (
		statuses  []string
		sponsee   int64
		dateField string
		from      string
		to        string
		afterID   int64
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List letters",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := domain.LetterFilter{
				DateField: domain.LetterField(strings.ToLower(strings.TrimSpace(dateField))),
				AfterID:   afterID,
				Limit:     limit,
			}
			for _, raw := range statuses {
				s, err := domain.ParseStatus(raw)
				if err != nil {
					return err
				}
				filter.Statuses = append(filter.Statuses, s)
			}
			if sponsee > 0 {
				filter.SponseeIndex = &sponsee
			}
			var err error
			if filter.From, err = optionalDate("from", from); err != nil {
				return err
			}
			if filter.To, err = optionalDate("to", to); err != nil {
				return err
			}
			if err := filter.Validate(); err != nil {
				return err
			}

			return ctx.withServices(cmd, func(svc *app.Services) error {
				letters, err := letter.Collect(svc.Letters.List(cmd.Context(), filter))
				if err != nil {
					return err
				}
				return ctx.emitLetters(cmd, letters)
			})
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVar(&statuses, "status", nil, "Only letters in these statuses")
	flags.Int64Var(&sponsee, "sponsee", 0, "Only letters of this sponsee index")
	flags.StringVar(&dateField, "date-field", domain.FieldDateScanned.String(), "Date field bounded by --from/--to")
	flags.StringVar(&from, "from", "", "Earliest date (inclusive)")
	flags.StringVar(&to, "to", "", "Latest date (inclusive)")
	flags.Int64Var(&afterID, "after", 0, "Only letters with a greater id")
	flags.IntVar(&limit, "limit", 0, "Maximum number of letters (0 = all)")

	return cmd
}

func newSetCommand(ctx *commandContext) *cobra.Command {
	var (
		clearField bool
		reason string
	)

	cmd := &cobra.Command{
		Use:   "set <letter-id> <field> [value]",
		Short: "Update one field of a letter",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := ctx.actor()
			if err != nil {
				return err
			}
			id, err := parseLetterID(args[0])
			if err != nil {
				return err
			}
			field := domain.LetterField(strings.ToLower(strings.TrimSpace(args[1])))
			if !field.IsValid() {
				return domain.NewValidationError("field", fmt.Sprintf("unknown field %q", args[1]))
			}

			var value *string
			switch {
			case clearField && len(args) == 3:
				return domain.NewValidationError("value", "cannot be combined with --clear")
			case len(args) == 3:
				value = &args[2]
			case !clearField:
				return domain.NewValidationError("value", "required unless --clear is given")
			}

			return ctx.withServices(cmd, func(svc *app.Services) error {
				l, err := svc.Lifecycle.UpdateField(cmd.Context(), letter.UpdateFieldInput{
					LetterID: id,
					Field:    field,
					Value:    value,
					Actor:    actor,
					Reason:   reason,
				})
				if err != nil {
					return err
				}
				return ctx.emitLetter(cmd, l)
			})
		},
	}

	cmd.Flags().BoolVar(&clearField, "clear", false, "Clear the field")
	cmd.Flags().StringVar(&reason, "reason", "", "Reason recorded in the audit log")

	return cmd
}

func newTransitionCommand(ctx *commandContext) *cobra.Command {
	var (
		sets   []string
		reason string
	)

	cmd := &cobra.Command{
		Use:   "transition <letter-id> <status>",
		Short: "Move a letter to the next status",
		Long: "Move a letter to the next status. Fields the target status requires can be\n" +
			"set in the same update with --set field=value; an empty value clears the field.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := ctx.actor()
			if err != nil {
				return err
			}
			id, err := parseLetterID(args[0])
			if err != nil {
				return err
			}
			to, err := domain.ParseStatus(args[1])
			if err != nil {
				return err
			}
			changes, err := parseChanges(sets)
			if err != nil {
				return err
			}

			return ctx.withServices(cmd, func(svc *app.Services) error {
				l, err := svc.Lifecycle.Transition(cmd.Context(), lifecycle.TransitionInput{
					LetterID: id,
					To:       to,
					Changes:  changes,
					Actor:    actor,
					Reason:   reason,
				})
				if err != nil {
					return err
				}
				return ctx.emitLetter(cmd, l)
			})
		},
	}

	cmd.Flags().StringArrayVar(&sets, "set", nil, "Field to change in the same update (field=value)")
	cmd.Flags().StringVar(&reason, "reason", "", "Reason recorded in the audit log")

	return cmd
}

func parseChanges(sets []string) ([]letter.Change, error) {
	changes := make([]letter.Change, 0, len(sets))
	for _, raw := range sets {
		name, value, ok := strings.Cut(raw, "=")
		if !ok {
			return nil, domain.NewValidationError("set", fmt.Sprintf("%q is not field=value", raw))
		}
		field := domain.LetterField(strings.ToLower(strings.TrimSpace(name)))
		if !field.IsValid() {
			return nil, domain.NewValidationError("set", fmt.Sprintf("unknown field %q", name))
		}
		c := letter.Change{Field: field}
		if value != "" {
			c.Value = &value
		}
		changes = append(changes, c)
	}
	return changes, nil
}

func newNoteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "note <letter-id> <text>...",
		Short: "Append a line to the processor notes",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := ctx.actor()
			if err != nil {
				return err
			}
			id, err := parseLetterID(args[0])
			if err != nil {
				return err
			}
			return ctx.withServices(cmd, func(svc *app.Services) error {
				l, err := svc.Lifecycle.AppendNote(cmd.Context(), id, strings.Join(args[1:], " "), actor)
				if err != nil {
					return err
				}
				return ctx.emitLetter(cmd, l)
			})
		},
	}
}

func newArchiveCommand(ctx *commandContext) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "archive <letter-id>",
		Short: "Archive a letter (requires --admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := ctx.actor()
			if err != nil {
				return err
			}
			id, err := parseLetterID(args[0])
			if err != nil {
				return err
			}
			return ctx.withServices(cmd, func(svc *app.Services) error {
				l, err := svc.Lifecycle.Archive(cmd.Context(), id, reason, actor)
				if err != nil {
					return err
				}
				return ctx.emitLetter(cmd, l)
			})
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "Why the letter is archived")
	_ = cmd.MarkFlagRequired("reason")

	return cmd
}

func (c *commandContext) emitLetter(cmd *cobra.Command, l *domain.Letter) error {
	if c.jsonOutput() {
		return writeJSON(cmd, newLetterView(l))
	}
	printLetter(cmd.OutOrStdout(), l)
	return nil
}

package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var (
		configFlag string
		jsonFlag   bool
		actorFlag  string
		adminFlag  bool
	)

	ctx := newCommandContext(&configFlag, &jsonFlag, &actorFlag, &adminFlag)

	rootCmd := &cobra.Command{
		Use:           "lettertrack",
		Short:         "Track sponsee letters and their audit trail",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "Print JSON instead of tables")
	rootCmd.PersistentFlags().StringVar(&actorFlag, "actor", defaultActor(), "Actor recorded in the audit log (env LETTERTRACK_ACTOR)")
	rootCmd.PersistentFlags().BoolVar(&adminFlag, "admin", false, "Act with admin rights (archive, sync-codes, admin tokens)")

	rootCmd.AddCommand(newMigrateCommand(ctx))
	rootCmd.AddCommand(newIngestCommand(ctx))
	rootCmd.AddCommand(newShowCommand(ctx))
	rootCmd.AddCommand(newListCommand(ctx))
	rootCmd.AddCommand(newSetCommand(ctx))
	rootCmd.AddCommand(newTransitionCommand(ctx))
	rootCmd.AddCommand(newNoteCommand(ctx))
	rootCmd.AddCommand(newArchiveCommand(ctx))
	rootCmd.AddCommand(newAuditCommand(ctx))
	rootCmd.AddCommand(newVerifyCommand(ctx))
	rootCmd.AddCommand(newReportCommand(ctx))
	rootCmd.AddCommand(newSyncCodesCommand(ctx))
	rootCmd.AddCommand(newTokenCommand(ctx))

	return rootCmd
}

func defaultActor() string {
	if v := os.Getenv("LETTERTRACK_ACTOR"); v != "" {
		return v
	}
	return os.Getenv("USER")
}

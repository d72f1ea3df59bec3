package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/heartmarshall/lettertrack/internal/app"
	"github.com/heartmarshall/lettertrack/internal/auth"
	"github.com/heartmarshall/lettertrack/internal/domain"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending storage migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStorage(cmd, true, func(st *app.Storage, _ *app.Services) error {
				if err := st.Ping(cmd.Context()); err != nil {
					return fmt.Errorf("ping storage: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Storage %s is up to date\n", st.Driver)
				return nil
			})
		},
	}
}

func newSyncCodesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-codes",
		Short: "Rewrite letter sponsee codes that drifted from the registry (requires --admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := ctx.actor()
			if err != nil {
				return err
			}
			if !actor.Admin {
				return fmt.Errorf("sync-codes requires --admin: %w", domain.ErrForbidden)
			}
			return ctx.withServices(cmd, func(svc *app.Services) error {
				n, err := svc.Ingest.SyncSponseeCodes(cmd.Context(), actor)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]int{"updated": n})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated %d letters\n", n)
				return nil
			})
		},
	}
}

type tokenView struct {
	AccessToken string `json:"access_token"`
	Subject     string `json:"subject"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

func newTokenCommand(ctx *commandContext) *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API access token for --actor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			actor, err := ctx.actor()
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = cfg.Auth.AccessTokenTTL
			}

			tok, err := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, ttl).Issue(actor)
			if err != nil {
				return err
			}
			if !ctx.jsonOutput() {
				fmt.Fprintln(cmd.OutOrStdout(), tok.Value)
				return nil
			}
			return writeJSON(cmd, tokenView{
				AccessToken: tok.Value,
				Subject:     tok.Subject,
				Role:        tok.Role,
				ExpiresAt:   tok.ExpiresAt.Format(time.RFC3339),
			})
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (defaults to auth.access_token_ttl)")
	return cmd
}

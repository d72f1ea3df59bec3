// Command verify-trails replays the audit trail of every letter and reports
// letters whose current values are not explained by their history. It is
// intended to be invoked by an external cron job.
//
// Exit codes: 0 = all trails consistent, 1 = error, 2 = discrepancies found.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/heartmarshall/lettertrack/internal/app"
	"github.com/heartmarshall/lettertrack/internal/config"
	"github.com/heartmarshall/lettertrack/internal/domain"
	"github.com/heartmarshall/lettertrack/internal/service/letter"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	st, err := app.OpenStorage(ctx, cfg, logger, false)
	if err != nil {
		logger.Error("open storage", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer st.Close()

	svc := app.NewServices(logger, st, cfg)

	letters, err := letter.Collect(svc.Letters.List(ctx, domain.LetterFilter{}))
	if err != nil {
		logger.Error("list letters", slog.String("error", err.Error()))
		os.Exit(1)
	}

	broken := 0
	for _, l := range letters {
		rep, err := svc.Reports.VerifyTrail(ctx, l.ID)
		if err != nil {
			logger.Error("verify trail failed",
				slog.Int64("letter_id", l.ID),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
		if !rep.OK() {
			broken++
		}
	}

	logger.Info("trail verification completed",
		slog.Int("letters", len(letters)),
		slog.Int("inconsistent", broken),
	)
	if broken > 0 {
		os.Exit(2)
	}
}

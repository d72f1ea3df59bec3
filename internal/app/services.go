package app

import (
	"log/slog"

	"github.com/heartmarshall/lettertrack/internal/config"
	"github.com/heartmarshall/lettertrack/internal/service/ingest"
	"github.com/heartmarshall/lettertrack/internal/service/letter"
	"github.com/heartmarshall/lettertrack/internal/service/lifecycle"
	"github.com/heartmarshall/lettertrack/internal/service/report"
	"github.com/heartmarshall/lettertrack/internal/service/sponsee"
)

// Services holds the wired service layer shared by the server and the CLI.
type Services struct {
	Letters   *letter.Service
	Sponsees  *sponsee.Service
	Lifecycle *lifecycle.Service
	Ingest    *ingest.Service
	Reports   *report.Service
}

// NewServices wires every service on top of st.
func NewServices(logger *slog.Logger, st *Storage, cfg *config.Config) *Services {
	letters := letter.NewService(logger, st.Letters, st.Audit, st.Sponsees, st.Tx, cfg.Letters)
	sponsees := sponsee.NewService(logger, st.Sponsees, st.Tx, cfg.Sponsee)

	return &Services{
		Letters:   letters,
		Sponsees:  sponsees,
		Lifecycle: lifecycle.NewService(logger, letters),
		Ingest:    ingest.NewService(logger, letters, sponsees, cfg.Ingest),
		Reports:   report.NewService(logger, letters, st.Letters, st.Audit),
	}
}

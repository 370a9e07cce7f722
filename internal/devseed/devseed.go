// Package devseed populates a development database with demo lists and a few
// finished import jobs so the API has data to show on first boot.
package devseed

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lettermill/import-api/config"
	"github.com/lettermill/import-api/internal/data"
	apperrors "github.com/lettermill/import-api/internal/errors"
	"github.com/lettermill/import-api/internal/service"
)

// Services bundles the dependencies needed for development seeding.
type Services struct {
	DB       *sql.DB
	importer *service.ImporterService
}

// NewServices constructs the importer stack for seeding using the provided DB.
// Seeding runs without a snapshot cache or metrics sink.
func NewServices(db *sql.DB, cfg config.ImporterConfig, logger *slog.Logger) (Services, error) {
	repoCfg := data.RepoConfig{Logger: logger}
	registry := data.NewJobRepo(db, repoCfg)
	destination := data.NewSubscriberRepo(db, repoCfg)

	pool, err := service.NewWorkerPool(service.WorkerPoolOptions{
		Registry:    registry,
		Destination: destination,
		Config:      cfg,
		Logger:      logger,
	})
	if err != nil {
		return Services{}, err
	}

	importer, err := service.NewImporterService(service.ImporterServiceOptions{
		Registry:    registry,
		Destination: destination,
		Pool:        pool,
		Config:      cfg,
		Logger:      logger,
	})
	if err != nil {
		return Services{}, err
	}

	return Services{DB: db, importer: importer}, nil
}

// Run executes the full development seeding workflow against the provided DB.
// Each demo list is imported inline through the real service layer, so seeded
// jobs carry genuine progress counters and terminal states. Conflicts (a list
// already holding a job) are treated as "already seeded" and skipped.
func Run(ctx context.Context, svcs Services, logger *slog.Logger) error {
	failures := 0
	for _, req := range demoImports() {
		outcome, err := svcs.importer.CreateImport(ctx, req)
		if err != nil {
			if apperrors.GetCode(err) == apperrors.ErrCodeConflict {
				if logger != nil {
					logger.InfoContext(ctx, "list already seeded", "list", req.ListName)
				}
				continue
			}
			if logger != nil {
				logger.ErrorContext(ctx, "failed to seed list", "list", req.ListName, "error", err)
			}
			failures++
			continue
		}
		if logger != nil && outcome.Inline != nil {
			logger.InfoContext(ctx, "seeded list",
				"list", req.ListName,
				"succeeded", outcome.Inline.Succeeded,
				"skipped", outcome.Inline.Skipped,
			)
		}
	}
	if failures > 0 {
		return fmt.Errorf("%d seed errors; check logs", failures)
	}
	return nil
}

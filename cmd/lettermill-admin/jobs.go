package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/lettermill/import-api/internal/bootstrap"
	"github.com/lettermill/import-api/internal/data"
	"github.com/lettermill/import-api/internal/domain/model"
	"github.com/lettermill/import-api/internal/service"
	"github.com/lettermill/import-api/internal/util"
)

func runMigrate(cmdCtx *commandContext, _ []string) error {
	db, err := connectDB(cmdCtx)
	if err != nil {
		return err
	}
	defer closeDB(cmdCtx, db)

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultMigrationTimeout)
	defer cancel()

	return bootstrap.RunMigrations(ctx, db, cmdCtx.Logger)
}

func runJobs(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("jobs", flag.ContinueOnError)
	statusFlag := fs.String("status", "", "filter by status (pending|processing|completed|failed|cancelled)")
	listFlag := fs.String("list", "", "filter by destination list name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	filter := model.JobFilter{ListName: *listFlag}
	if *statusFlag != "" {
		var status model.JobStatus
		if err := status.UnmarshalText([]byte(*statusFlag)); err != nil {
			return err
		}
		filter.Status = status
	}

	db, err := connectDB(cmdCtx)
	if err != nil {
		return err
	}
	defer closeDB(cmdCtx, db)

	registry := data.NewJobRepo(db, data.RepoConfig{Logger: cmdCtx.Logger})
	jobs, err := registry.List(cmdCtx.Ctx, filter)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}

	return printJobTable(jobs)
}

func printJobTable(jobs []*model.ImportJob) error {
	now := time.Now()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writef(w, "ID\tLIST\tSTATUS\tPHASE\tPROGRESS\tCHUNKS\tRATE\tAGE\tUPDATED\n"); err != nil {
		return err
	}
	for _, job := range jobs {
		if err := writef(w, "%s\t%s\t%s\t%s\t%d/%d\t%d/%d\t%s\t%s\t%s\n",
			job.ID,
			job.ListName,
			job.Status,
			job.Phase,
			job.ProcessedRecords, job.TotalRecords,
			job.ChunksCompleted, job.ChunksTotal,
			util.FormatRate(job.RecordsPerSecond),
			util.FormatAge(job.CreatedAt, now),
			job.UpdatedAt.Format(time.RFC3339),
		); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return writef(os.Stdout, "\nTotal jobs: %d\n", len(jobs))
}

func runClearFailed(cmdCtx *commandContext, _ []string) error {
	svc, db, err := buildImporter(cmdCtx)
	if err != nil {
		return err
	}
	defer closeDB(cmdCtx, db)

	cleared, err := svc.ClearAllFailed(cmdCtx.Ctx)
	if err != nil {
		return err
	}
	return writef(os.Stdout, "Cleared %d failed jobs\n", cleared)
}

func runForceCleanup(cmdCtx *commandContext, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: force-cleanup <list>")
	}
	listName := args[0]

	svc, db, err := buildImporter(cmdCtx)
	if err != nil {
		return err
	}
	defer closeDB(cmdCtx, db)

	deleted, err := svc.DeleteList(cmdCtx.Ctx, listName, true)
	if err != nil {
		return err
	}
	return writef(os.Stdout, "Deleted list %q (%d subscribers)\n", listName, deleted)
}

// buildImporter wires an ImporterService over a direct database connection.
// Admin commands skip the snapshot cache and the metrics sink.
func buildImporter(cmdCtx *commandContext) (*service.ImporterService, *sql.DB, error) {
	db, err := connectDB(cmdCtx)
	if err != nil {
		return nil, nil, err
	}

	repoCfg := data.RepoConfig{Logger: cmdCtx.Logger}
	registry := data.NewJobRepo(db, repoCfg)
	destination := data.NewSubscriberRepo(db, repoCfg)

	pool, err := service.NewWorkerPool(service.WorkerPoolOptions{
		Registry:    registry,
		Destination: destination,
		Config:      cmdCtx.Config.Importer,
		Logger:      cmdCtx.Logger,
	})
	if err != nil {
		closeDB(cmdCtx, db)
		return nil, nil, err
	}

	svc, err := service.NewImporterService(service.ImporterServiceOptions{
		Registry:    registry,
		Destination: destination,
		Pool:        pool,
		Config:      cmdCtx.Config.Importer,
		Logger:      cmdCtx.Logger,
	})
	if err != nil {
		closeDB(cmdCtx, db)
		return nil, nil, err
	}
	return svc, db, nil
}

func connectDB(cmdCtx *commandContext) (*sql.DB, error) {
	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{
		DBConfig: cmdCtx.Config.Postgres,
		Logger:   cmdCtx.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	return db, nil
}

func closeDB(cmdCtx *commandContext, db *sql.DB) {
	if err := db.Close(); err != nil {
		cmdCtx.Logger.Error("close database failed", "error", err)
	}
}

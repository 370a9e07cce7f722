package main

import (
	"github.com/lettermill/import-api/internal/devseed"
)

// runDBSeed populates the database with demo lists and imports. Intended for
// development environments only; seeding is idempotent per list.
func runDBSeed(cmdCtx *commandContext, _ []string) error {
	db, err := connectDB(cmdCtx)
	if err != nil {
		return err
	}
	defer closeDB(cmdCtx, db)

	svcs, err := devseed.NewServices(db, cmdCtx.Config.Importer, cmdCtx.Logger)
	if err != nil {
		return err
	}
	return devseed.Run(cmdCtx.Ctx, svcs, cmdCtx.Logger)
}

package main

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/bootstrap"
	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/data"
)

// connectDB connects to the workflow database using the loaded config.
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

func newJobRepo(cmdCtx *commandContext, db *sql.DB) *data.JobRepo {
	return data.NewJobRepo(db, data.JobRepoConfig{
		RetryBaseSeconds:   int(cmdCtx.Config.Queue.RetryBase.Seconds()),
		DefaultMaxAttempts: cmdCtx.Config.Queue.DefaultMaxAttempts,
		Logger:             cmdCtx.Logger,
	})
}

func closeQuietly(logger *slog.Logger, c io.Closer) {
	if err := c.Close(); err != nil {
		logger.Warn("close failed", "error", err)
	}
}

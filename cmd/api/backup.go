package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"priyom/internal/config"
	"priyom/internal/database"
	"priyom/internal/logging"
)

func runBackup(configPath string) error {
	cfg, baseLogger, closer, err := loadConfigAndLogger(configPath)
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}
	logger := logging.Component(baseLogger, "backup")

	if cfg.Database.Driver != config.DriverSQLite {
		return errors.New("backup command supports the sqlite driver only; use pg_dump for postgres")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.Database.Path, cfg.Database.BusyTimeoutMS, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	backups := database.NewBackupService(db, cfg.Backup, logger)
	path, err := backups.PerformBackup(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("backup failed")
		return err
	}
	removed, err := backups.CleanupOldBackups()
	if err != nil {
		logger.Warn().Err(err).Msg("backup cleanup failed")
	}
	logger.Info().Str("path", path).Int("removed_old", removed).Msg("backup written")
	return nil
}

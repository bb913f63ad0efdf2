package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"priyom/internal/export"
	"priyom/internal/logging"
	"priyom/internal/service"

	"github.com/spf13/cobra"
)

func exportCmd(configPath *string) *cobra.Command {
	var token, from, to string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write an owner's reservations to an XLSX file in exports.path",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(*configPath, token, from, to)
		},
	}
	cmd.Flags().StringVar(&token, "token", os.Getenv("PRIYOM_MANAGEMENT_TOKEN"), "owner management token")
	cmd.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last day, YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func runExport(configPath, token, from, to string) error {
	cfg, baseLogger, closer, err := loadConfigAndLogger(configPath)
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}
	logger := logging.Component(baseLogger, "export")
	ctx := context.Background()

	repo, _, err := openRepository(ctx, cfg, baseLogger)
	if err != nil {
		return err
	}
	defer repo.Close()

	loc, err := cfg.Booking.Location()
	if err != nil {
		return err
	}
	slots := service.NewSlotService(repo, repo, cfg.Booking.SlotDuration(), loc, logger)
	firstDay, err := slots.ParseDate(from)
	if err != nil {
		return err
	}
	lastDay, err := slots.ParseDate(to)
	if err != nil {
		return err
	}

	owners := service.NewOwnerService(repo, repo, service.NewManagementTokenGenerator(), cfg.Booking.DefaultWindows, logger)
	owner, reservations, err := owners.OwnerReservations(ctx, token, firstDay, lastDay.AddDate(0, 0, 1))
	if err != nil {
		return err
	}

	f, err := export.Reservations(owner, reservations, firstDay, lastDay, loc)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	path := filepath.Join(cfg.Exports.Path, export.FileName(owner.ID, firstDay, lastDay))
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save export: %w", err)
	}

	logger.Info().Str("path", path).Int("reservations", len(reservations)).Msg("export written")
	return nil
}

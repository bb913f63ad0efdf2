package postgres

import (
	"context"
	"fmt"
	"time"

	"priyom/internal/domain"
	"priyom/internal/models"

	"github.com/jackc/pgx/v5"
)

const windowColumns = `id, owner_id, weekday, start_time, end_time, created_at, updated_at`

func (s *Store) ListWindows(ctx context.Context, ownerID int64, weekday time.Weekday) ([]*models.AvailabilityWindow, error) {
	return s.queryWindows(ctx, `SELECT `+windowColumns+` FROM availability_windows
		WHERE owner_id = $1 AND weekday = $2 ORDER BY start_time, id`, ownerID, int(weekday))
}

func (s *Store) ListOwnerWindows(ctx context.Context, ownerID int64) ([]*models.AvailabilityWindow, error) {
	return s.queryWindows(ctx, `SELECT `+windowColumns+` FROM availability_windows
		WHERE owner_id = $1 ORDER BY weekday, start_time, id`, ownerID)
}

func (s *Store) CreateWindow(ctx context.Context, w *models.AvailabilityWindow, now time.Time) error {
	if w == nil {
		return fmt.Errorf("%w: window is nil", domain.ErrValidation)
	}
	return insertWindow(ctx, s.pool, w, now)
}

func (s *Store) DeleteWindow(ctx context.Context, ownerID, windowID int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM availability_windows WHERE id = $1 AND owner_id = $2`, windowID, ownerID)
	if err != nil {
		return false, storageErr("delete window", err)
	}
	return tag.RowsAffected() > 0, nil
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertWindow(ctx context.Context, q queryRower, w *models.AvailabilityWindow, now time.Time) error {
	err := q.QueryRow(ctx, `INSERT INTO availability_windows (
			owner_id, weekday, start_time, end_time, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		w.OwnerID, int(w.Weekday), w.StartTime.String(), w.EndTime.String(), now, now,
	).Scan(&w.ID)
	if err != nil {
		return storageErr("insert window", err)
	}
	w.CreatedAt = now
	w.UpdatedAt = now
	return nil
}

func (s *Store) queryWindows(ctx context.Context, query string, args ...any) ([]*models.AvailabilityWindow, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storageErr("list windows", err)
	}
	defer rows.Close()

	var windows []*models.AvailabilityWindow
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, storageErr("scan window", err)
		}
		windows = append(windows, w)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list windows", err)
	}
	return windows, nil
}

func scanWindow(r rowScanner) (*models.AvailabilityWindow, error) {
	var (
		w          models.AvailabilityWindow
		weekday    int16
		start, end string
	)
	if err := r.Scan(&w.ID, &w.OwnerID, &weekday, &start, &end, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if w.StartTime, err = models.ParseTimeOfDay(start); err != nil {
		return nil, err
	}
	if w.EndTime, err = models.ParseTimeOfDay(end); err != nil {
		return nil, err
	}
	w.Weekday = time.Weekday(weekday)
	return &w, nil
}

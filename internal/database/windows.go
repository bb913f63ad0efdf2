package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"priyom/internal/domain"
	"priyom/internal/models"
)

const windowColumns = `id, owner_id, weekday, start_time, end_time, created_at, updated_at`

// ListWindows returns the owner's windows for weekday ordered by start time.
func (db *DB) ListWindows(ctx context.Context, ownerID int64, weekday time.Weekday) ([]*models.AvailabilityWindow, error) {
	return db.queryWindows(ctx, `SELECT `+windowColumns+` FROM availability_windows
		WHERE owner_id = ? AND weekday = ? ORDER BY start_time, id`, ownerID, int(weekday))
}

// ListOwnerWindows returns every window of the owner ordered by weekday and start time.
func (db *DB) ListOwnerWindows(ctx context.Context, ownerID int64) ([]*models.AvailabilityWindow, error) {
	return db.queryWindows(ctx, `SELECT `+windowColumns+` FROM availability_windows
		WHERE owner_id = ? ORDER BY weekday, start_time, id`, ownerID)
}

func (db *DB) CreateWindow(ctx context.Context, w *models.AvailabilityWindow, now time.Time) error {
	if w == nil {
		return fmt.Errorf("%w: window is nil", domain.ErrValidation)
	}
	return db.withTx(ctx, func(tx *sql.Tx) error {
		return insertWindow(ctx, tx, w, now)
	})
}

// DeleteWindow removes the window only if it belongs to ownerID.
func (db *DB) DeleteWindow(ctx context.Context, ownerID, windowID int64) (bool, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM availability_windows WHERE id = ? AND owner_id = ?`, windowID, ownerID)
	if err != nil {
		return false, storageErr("delete window", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, storageErr("delete window rows affected", err)
	}
	return rows > 0, nil
}

func insertWindow(ctx context.Context, tx *sql.Tx, w *models.AvailabilityWindow, now time.Time) error {
	res, err := tx.ExecContext(ctx, `INSERT INTO availability_windows (
			owner_id, weekday, start_time, end_time, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?)`,
		w.OwnerID, int(w.Weekday), w.StartTime, w.EndTime, now, now,
	)
	if err != nil {
		return storageErr("insert window", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return storageErr("window last insert id", err)
	}
	w.ID = id
	w.CreatedAt = now
	w.UpdatedAt = now
	return nil
}

func (db *DB) queryWindows(ctx context.Context, query string, args ...any) ([]*models.AvailabilityWindow, error) {
	rows, err := db.QueryContext(ctx, query, args...)
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
	var w models.AvailabilityWindow
	var weekday int
	if err := r.Scan(&w.ID, &w.OwnerID, &weekday, &w.StartTime, &w.EndTime, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	w.Weekday = time.Weekday(weekday)
	return &w, nil
}

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"priyom/internal/domain"
	"priyom/internal/models"
)

const reservationColumns = `id, owner_id, requester_name, requester_contact, scheduled_at,
	status, cancellation_secret, created_at, updated_at, version`

// ListActiveReservations returns non-cancelled reservations with scheduled_at in [from, to).
func (db *DB) ListActiveReservations(ctx context.Context, ownerID int64, from, to time.Time) ([]*models.Reservation, error) {
	return db.queryReservations(ctx, `SELECT `+reservationColumns+` FROM reservations
		WHERE owner_id = ? AND scheduled_at >= ? AND scheduled_at < ? AND status <> ?
		ORDER BY scheduled_at`,
		ownerID, from.Unix(), to.Unix(), models.StatusCancelled)
}

// ListOwnerReservations returns all reservations in [from, to), newest first.
func (db *DB) ListOwnerReservations(ctx context.Context, ownerID int64, from, to time.Time) ([]*models.Reservation, error) {
	return db.queryReservations(ctx, `SELECT `+reservationColumns+` FROM reservations
		WHERE owner_id = ? AND scheduled_at >= ? AND scheduled_at < ?
		ORDER BY scheduled_at DESC, id DESC`,
		ownerID, from.Unix(), to.Unix())
}

// FindActiveReservation returns nil, nil when the slot is free.
func (db *DB) FindActiveReservation(ctx context.Context, ownerID int64, at time.Time) (*models.Reservation, error) {
	row := db.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations
		WHERE owner_id = ? AND scheduled_at = ? AND status <> ?`,
		ownerID, at.Unix(), models.StatusCancelled)
	r, err := scanReservation(row, at.Location())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("find active reservation", err)
	}
	return r, nil
}

// CreateReservation inserts r as one atomic operation. A concurrent active
// reservation for the same slot yields ErrSlotConflict; the partial unique
// index decides races the in-transaction check cannot see.
func (db *DB) CreateReservation(ctx context.Context, r *models.Reservation, now time.Time) error {
	if r == nil {
		return fmt.Errorf("%w: reservation is nil", domain.ErrValidation)
	}
	if r.Status == "" {
		r.Status = models.StatusPending
	}

	var id int64
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var taken bool
		err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM reservations
			WHERE owner_id = ? AND scheduled_at = ? AND status <> ?)`,
			r.OwnerID, r.ScheduledAt.Unix(), models.StatusCancelled).Scan(&taken)
		if err != nil {
			return storageErr("check slot in tx", err)
		}
		if taken {
			return domain.ErrSlotConflict
		}

		res, err := tx.ExecContext(ctx, `INSERT INTO reservations (
				owner_id, requester_name, requester_contact, scheduled_at,
				status, cancellation_secret, created_at, updated_at, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.OwnerID, r.RequesterName, r.RequesterContact, r.ScheduledAt.Unix(),
			r.Status, r.CancellationSecret, now, now, 1,
		)
		if err != nil {
			return classifyInsertErr(err)
		}

		id, err = res.LastInsertId()
		if err != nil {
			return storageErr("reservation last insert id", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.ID = id
	r.CreatedAt = now
	r.UpdatedAt = now
	r.Version = 1
	return nil
}

func classifyInsertErr(err error) error {
	switch {
	case uniqueViolationOn(err, "cancellation_secret"):
		return storageErr("duplicate cancellation secret", err)
	case isUniqueViolation(err):
		return fmt.Errorf("%w: %w", domain.ErrSlotConflict, err)
	default:
		return storageErr("insert reservation", err)
	}
}

func (db *DB) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	row := db.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	r, err := scanReservation(row, time.UTC)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", domain.ErrReservationNotFound, id)
	}
	if err != nil {
		return nil, storageErr("get reservation", err)
	}
	return r, nil
}

// UpdateReservationStatusWithVersion is a compare-and-set on version.
func (db *DB) UpdateReservationStatusWithVersion(ctx context.Context, id, version int64, status models.ReservationStatus, now time.Time) error {
	res, err := db.ExecContext(ctx, `UPDATE reservations
		SET status = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		status, now, id, version)
	if err != nil {
		return storageErr("update reservation status", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return storageErr("update reservation status rows affected", err)
	}
	if rows == 0 {
		return domain.ErrConcurrentModification
	}
	return nil
}

// CancelBySecret cancels the reservation holding secret unless it is already
// cancelled and returns it as stored after the update.
func (db *DB) CancelBySecret(ctx context.Context, secret string, now time.Time) (*models.Reservation, error) {
	var cancelled *models.Reservation
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations
			WHERE cancellation_secret = ? AND status <> ?`,
			secret, models.StatusCancelled)
		r, err := scanReservation(row, time.UTC)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return storageErr("find reservation by secret", err)
		}

		if _, err := tx.ExecContext(ctx, `UPDATE reservations
			SET status = ?, version = version + 1, updated_at = ?
			WHERE id = ?`,
			models.StatusCancelled, now, r.ID); err != nil {
			return storageErr("cancel by secret", err)
		}
		r.Status = models.StatusCancelled
		r.Version++
		r.UpdatedAt = now
		cancelled = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

func (db *DB) queryReservations(ctx context.Context, query string, args ...any) ([]*models.Reservation, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("list reservations", err)
	}
	defer rows.Close()

	var reservations []*models.Reservation
	for rows.Next() {
		r, err := scanReservation(rows, time.UTC)
		if err != nil {
			return nil, storageErr("scan reservation", err)
		}
		reservations = append(reservations, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list reservations", err)
	}
	return reservations, nil
}

func scanReservation(r rowScanner, loc *time.Location) (*models.Reservation, error) {
	var res models.Reservation
	var scheduledAt int64
	var status string
	err := r.Scan(
		&res.ID, &res.OwnerID, &res.RequesterName, &res.RequesterContact, &scheduledAt,
		&status, &res.CancellationSecret, &res.CreatedAt, &res.UpdatedAt, &res.Version,
	)
	if err != nil {
		return nil, err
	}
	res.ScheduledAt = time.Unix(scheduledAt, 0).In(loc)
	res.Status = models.ReservationStatus(status)
	return &res, nil
}

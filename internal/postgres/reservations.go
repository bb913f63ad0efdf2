package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"priyom/internal/domain"
	"priyom/internal/models"

	"github.com/jackc/pgx/v5"
)

const reservationColumns = `id, owner_id, requester_name, requester_contact, scheduled_at,
	status, cancellation_secret, created_at, updated_at, version`

func (s *Store) ListActiveReservations(ctx context.Context, ownerID int64, from, to time.Time) ([]*models.Reservation, error) {
	return s.queryReservations(ctx, `SELECT `+reservationColumns+` FROM reservations
		WHERE owner_id = $1 AND scheduled_at >= $2 AND scheduled_at < $3 AND status <> $4
		ORDER BY scheduled_at`,
		ownerID, from.Unix(), to.Unix(), string(models.StatusCancelled))
}

func (s *Store) ListOwnerReservations(ctx context.Context, ownerID int64, from, to time.Time) ([]*models.Reservation, error) {
	return s.queryReservations(ctx, `SELECT `+reservationColumns+` FROM reservations
		WHERE owner_id = $1 AND scheduled_at >= $2 AND scheduled_at < $3
		ORDER BY scheduled_at DESC, id DESC`,
		ownerID, from.Unix(), to.Unix())
}

func (s *Store) FindActiveReservation(ctx context.Context, ownerID int64, at time.Time) (*models.Reservation, error) {
	r, err := scanReservation(s.pool.QueryRow(ctx, `SELECT `+reservationColumns+` FROM reservations
		WHERE owner_id = $1 AND scheduled_at = $2 AND status <> $3`,
		ownerID, at.Unix(), string(models.StatusCancelled)), at.Location())
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("find active reservation", err)
	}
	return r, nil
}

// CreateReservation relies on ux_reservations_active_slot: under READ
// COMMITTED a concurrent insert blocks on the index and fails with 23505
// once the winner commits.
func (s *Store) CreateReservation(ctx context.Context, r *models.Reservation, now time.Time) error {
	if r == nil {
		return fmt.Errorf("%w: reservation is nil", domain.ErrValidation)
	}
	if r.Status == "" {
		r.Status = models.StatusPending
	}

	var id int64
	err := s.pool.QueryRow(ctx, `INSERT INTO reservations (
			owner_id, requester_name, requester_contact, scheduled_at,
			status, cancellation_secret, created_at, updated_at, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1) RETURNING id`,
		r.OwnerID, r.RequesterName, r.RequesterContact, r.ScheduledAt.Unix(),
		string(r.Status), r.CancellationSecret, now, now,
	).Scan(&id)
	switch {
	case err == nil:
	case uniqueViolationOn(err, "ux_reservations_active_slot"):
		return fmt.Errorf("%w: %w", domain.ErrSlotConflict, err)
	default:
		return storageErr("insert reservation", err)
	}

	r.ID = id
	r.CreatedAt = now
	r.UpdatedAt = now
	r.Version = 1
	return nil
}

func (s *Store) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	r, err := scanReservation(s.pool.QueryRow(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id), time.UTC)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", domain.ErrReservationNotFound, id)
	}
	if err != nil {
		return nil, storageErr("get reservation", err)
	}
	return r, nil
}

func (s *Store) UpdateReservationStatusWithVersion(ctx context.Context, id, version int64, status models.ReservationStatus, now time.Time) error {
	tag, err := s.pool.Exec(ctx, `UPDATE reservations
		SET status = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND version = $4`,
		string(status), now, id, version)
	if err != nil {
		return storageErr("update reservation status", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConcurrentModification
	}
	return nil
}

func (s *Store) CancelBySecret(ctx context.Context, secret string, now time.Time) (*models.Reservation, error) {
	r, err := scanReservation(s.pool.QueryRow(ctx, `UPDATE reservations
		SET status = $1, version = version + 1, updated_at = $2
		WHERE cancellation_secret = $3 AND status <> $1
		RETURNING `+reservationColumns,
		string(models.StatusCancelled), now, secret), time.UTC)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("cancel by secret", err)
	}
	return r, nil
}

func (s *Store) queryReservations(ctx context.Context, query string, args ...any) ([]*models.Reservation, error) {
	rows, err := s.pool.Query(ctx, query, args...)
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
	var (
		res         models.Reservation
		scheduledAt int64
		status      string
	)
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

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

const ownerColumns = `id, name, specialization, experience_years, contact_info,
	email, password_hash, management_token, created_at, updated_at`

func (s *Store) CreateOwnerWithWindows(ctx context.Context, owner *models.Owner, windows []*models.AvailabilityWindow, now time.Time) error {
	if owner == nil {
		return fmt.Errorf("%w: owner is nil", domain.ErrValidation)
	}

	var ownerID int64
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `INSERT INTO owners (
				name, specialization, experience_years, contact_info,
				email, password_hash, management_token, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
			owner.Name, owner.Specialization, owner.ExperienceYears, owner.ContactInfo,
			owner.Email, owner.PasswordHash, owner.ManagementToken, now, now,
		).Scan(&ownerID)
		if err != nil {
			if uniqueViolationOn(err, "owners_email_key") {
				return fmt.Errorf("%w: owner with email %s", domain.ErrAlreadyExists, owner.Email)
			}
			return storageErr("insert owner", err)
		}

		for _, w := range windows {
			w.OwnerID = ownerID
			if err := insertWindow(ctx, tx, w, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) || errors.Is(err, domain.ErrStorage) {
			return err
		}
		return storageErr("create owner", err)
	}

	owner.ID = ownerID
	owner.CreatedAt = now
	owner.UpdatedAt = now
	return nil
}

func (s *Store) GetOwner(ctx context.Context, id int64) (*models.Owner, error) {
	owner, err := scanOwner(s.pool.QueryRow(ctx, `SELECT `+ownerColumns+` FROM owners WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", domain.ErrOwnerNotFound, id)
	}
	if err != nil {
		return nil, storageErr("get owner", err)
	}
	return owner, nil
}

func (s *Store) ListOwners(ctx context.Context) ([]*models.Owner, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+ownerColumns+` FROM owners ORDER BY name, id`)
	if err != nil {
		return nil, storageErr("list owners", err)
	}
	defer rows.Close()

	var owners []*models.Owner
	for rows.Next() {
		owner, err := scanOwner(rows)
		if err != nil {
			return nil, storageErr("scan owner", err)
		}
		owners = append(owners, owner)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list owners", err)
	}
	return owners, nil
}

func (s *Store) UpdateOwner(ctx context.Context, id int64, patch models.OwnerPatch, now time.Time) (*models.Owner, error) {
	var updated *models.Owner
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		owner, err := scanOwner(tx.QueryRow(ctx, `SELECT `+ownerColumns+` FROM owners WHERE id = $1 FOR UPDATE`, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: %d", domain.ErrOwnerNotFound, id)
		}
		if err != nil {
			return storageErr("get owner", err)
		}

		patch.Apply(owner)
		owner.UpdatedAt = now

		_, err = tx.Exec(ctx, `UPDATE owners
			SET name = $1, specialization = $2, experience_years = $3, contact_info = $4, updated_at = $5
			WHERE id = $6`,
			owner.Name, owner.Specialization, owner.ExperienceYears, owner.ContactInfo, owner.UpdatedAt, id,
		)
		if err != nil {
			return storageErr("update owner", err)
		}
		updated = owner
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrOwnerNotFound) || errors.Is(err, domain.ErrStorage) {
			return nil, err
		}
		return nil, storageErr("update owner", err)
	}
	return updated, nil
}

func (s *Store) OwnerIDByToken(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, domain.ErrAuthorization
	}

	var id int64
	err := s.pool.QueryRow(ctx, `SELECT id FROM owners WHERE management_token = $1`, token).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrAuthorization
	}
	if err != nil {
		return 0, storageErr("resolve token", err)
	}
	return id, nil
}

func (s *Store) OwnerExists(ctx context.Context, ownerID int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM owners WHERE id = $1)`, ownerID).Scan(&exists)
	if err != nil {
		return false, storageErr("owner exists", err)
	}
	return exists, nil
}

func scanOwner(r rowScanner) (*models.Owner, error) {
	var o models.Owner
	err := r.Scan(
		&o.ID, &o.Name, &o.Specialization, &o.ExperienceYears, &o.ContactInfo,
		&o.Email, &o.PasswordHash, &o.ManagementToken, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

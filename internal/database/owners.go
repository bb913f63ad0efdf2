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

const ownerColumns = `id, name, specialization, experience_years, contact_info,
	email, password_hash, management_token, created_at, updated_at`

// CreateOwnerWithWindows inserts the owner and its initial availability
// windows in one transaction. Nothing is stored if any insert fails.
func (db *DB) CreateOwnerWithWindows(ctx context.Context, owner *models.Owner, windows []*models.AvailabilityWindow, now time.Time) error {
	if owner == nil {
		return fmt.Errorf("%w: owner is nil", domain.ErrValidation)
	}

	var ownerID int64
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO owners (
				name, specialization, experience_years, contact_info,
				email, password_hash, management_token, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			owner.Name, owner.Specialization, owner.ExperienceYears, owner.ContactInfo,
			owner.Email, owner.PasswordHash, owner.ManagementToken, now, now,
		)
		if err != nil {
			if uniqueViolationOn(err, "owners.email") {
				return fmt.Errorf("%w: owner with email %s", domain.ErrAlreadyExists, owner.Email)
			}
			return storageErr("insert owner", err)
		}

		ownerID, err = res.LastInsertId()
		if err != nil {
			return storageErr("owner last insert id", err)
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
		return err
	}

	owner.ID = ownerID
	owner.CreatedAt = now
	owner.UpdatedAt = now
	return nil
}

func (db *DB) GetOwner(ctx context.Context, id int64) (*models.Owner, error) {
	row := db.QueryRowContext(ctx, `SELECT `+ownerColumns+` FROM owners WHERE id = ?`, id)
	owner, err := scanOwner(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", domain.ErrOwnerNotFound, id)
	}
	if err != nil {
		return nil, storageErr("get owner", err)
	}
	return owner, nil
}

func (db *DB) ListOwners(ctx context.Context) ([]*models.Owner, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+ownerColumns+` FROM owners ORDER BY name, id`)
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

// UpdateOwner applies patch to the stored profile and returns the result.
func (db *DB) UpdateOwner(ctx context.Context, id int64, patch models.OwnerPatch, now time.Time) (*models.Owner, error) {
	var updated *models.Owner
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+ownerColumns+` FROM owners WHERE id = ?`, id)
		owner, err := scanOwner(row)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %d", domain.ErrOwnerNotFound, id)
		}
		if err != nil {
			return storageErr("get owner", err)
		}

		patch.Apply(owner)
		owner.UpdatedAt = now

		_, err = tx.ExecContext(ctx, `UPDATE owners
			SET name = ?, specialization = ?, experience_years = ?, contact_info = ?, updated_at = ?
			WHERE id = ?`,
			owner.Name, owner.Specialization, owner.ExperienceYears, owner.ContactInfo, owner.UpdatedAt, id,
		)
		if err != nil {
			return storageErr("update owner", err)
		}
		updated = owner
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// OwnerIDByToken resolves a management token. Unknown tokens yield ErrAuthorization.
func (db *DB) OwnerIDByToken(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, domain.ErrAuthorization
	}

	var id int64
	err := db.QueryRowContext(ctx, `SELECT id FROM owners WHERE management_token = ?`, token).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrAuthorization
	}
	if err != nil {
		return 0, storageErr("resolve token", err)
	}
	return id, nil
}

func (db *DB) OwnerExists(ctx context.Context, ownerID int64) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM owners WHERE id = ?)`, ownerID).Scan(&exists)
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

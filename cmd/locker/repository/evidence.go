package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/alibi/locker/cmd/locker/models"
	"github.com/alibi/locker/common/db"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// EvidenceRepository handles database operations for evidence records
type EvidenceRepository struct {
	db *db.DB
}

// NewEvidenceRepository creates a new evidence repository
func NewEvidenceRepository(database *db.DB) *EvidenceRepository {
	return &EvidenceRepository{db: database}
}

const evidenceColumns = `
	evidence_id, owner_id, item_type, storage_key, size_bytes, mime_type,
	title, description, tags, latitude, longitude, location_name,
	content_hash, captured_at, timestamped_at, timestamp_authority
`

// Insert persists a new evidence record
func (r *EvidenceRepository) Insert(ctx context.Context, e *models.Evidence) error {
	query := `
		INSERT INTO evidence_item (` + evidenceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.db.Exec(ctx, query,
		e.ID,
		e.OwnerID,
		e.ItemType,
		e.StorageKey,
		e.SizeBytes,
		e.MimeType,
		e.Title,
		e.Description,
		e.Tags,
		e.Latitude,
		e.Longitude,
		e.LocationName,
		e.ContentHash,
		e.CapturedAt,
		e.TimestampedAt,
		e.TimestampAuthority,
	)

	if err != nil {
		return fmt.Errorf("failed to insert evidence: %w", err)
	}

	return nil
}

// GetByOwnerAndID retrieves a single record scoped to its owner.
// A record owned by a different user is models.ErrNotFound, not a
// permission error.
func (r *EvidenceRepository) GetByOwnerAndID(ctx context.Context, ownerID string, id uuid.UUID) (*models.Evidence, error) {
	query := `
		SELECT ` + evidenceColumns + `
		FROM evidence_item
		WHERE evidence_id = $1 AND owner_id = $2
	`

	e := &models.Evidence{}
	err := r.db.QueryRow(ctx, query, id, ownerID).Scan(
		&e.ID,
		&e.OwnerID,
		&e.ItemType,
		&e.StorageKey,
		&e.SizeBytes,
		&e.MimeType,
		&e.Title,
		&e.Description,
		&e.Tags,
		&e.Latitude,
		&e.Longitude,
		&e.LocationName,
		&e.ContentHash,
		&e.CapturedAt,
		&e.TimestampedAt,
		&e.TimestampAuthority,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get evidence: %w", err)
	}

	return e, nil
}

// ListByOwner retrieves all records for an owner, newest capture first
func (r *EvidenceRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Evidence, error) {
	query := `
		SELECT ` + evidenceColumns + `
		FROM evidence_item
		WHERE owner_id = $1
		ORDER BY captured_at DESC
	`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list evidence: %w", err)
	}
	defer rows.Close()

	var items []*models.Evidence
	for rows.Next() {
		e := &models.Evidence{}
		err := rows.Scan(
			&e.ID,
			&e.OwnerID,
			&e.ItemType,
			&e.StorageKey,
			&e.SizeBytes,
			&e.MimeType,
			&e.Title,
			&e.Description,
			&e.Tags,
			&e.Latitude,
			&e.Longitude,
			&e.LocationName,
			&e.ContentHash,
			&e.CapturedAt,
			&e.TimestampedAt,
			&e.TimestampAuthority,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan evidence: %w", err)
		}
		items = append(items, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating evidence: %w", err)
	}

	return items, nil
}

// DeleteByOwnerAndID removes a record. The rows-affected check makes a
// concurrent second delete observe models.ErrNotFound rather than
// double-deleting.
func (r *EvidenceRepository) DeleteByOwnerAndID(ctx context.Context, ownerID string, id uuid.UUID) error {
	query := `
		DELETE FROM evidence_item
		WHERE evidence_id = $1 AND owner_id = $2
	`

	tag, err := r.db.Exec(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete evidence: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

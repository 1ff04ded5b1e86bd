package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a record does not exist or belongs to a
// different owner. The two cases are deliberately indistinguishable.
var ErrNotFound = errors.New("evidence not found")

// ItemType classifies an evidence item for client-side rendering.
// It has no effect on storage behavior.
type ItemType string

const (
	ItemTypePhoto    ItemType = "photo"
	ItemTypeDocument ItemType = "document"
	ItemTypeNote     ItemType = "note"
	ItemTypeReceipt  ItemType = "receipt"
	ItemTypeLocation ItemType = "location"
)

// ValidItemType reports whether t is one of the closed set of item types.
func ValidItemType(t ItemType) bool {
	switch t {
	case ItemTypePhoto, ItemTypeDocument, ItemTypeNote, ItemTypeReceipt, ItemTypeLocation:
		return true
	}
	return false
}

// TimestampAuthorityLocal marks records attested by this system's own
// clock rather than an external timestamping authority.
const TimestampAuthorityLocal = "local"

// Evidence represents a timestamped evidence record.
// Maps to: evidence_item table
//
// Records are append-only: every field is fixed at ingest and never
// mutated. The only lifecycle transition is deletion.
type Evidence struct {
	// Unique record ID, generated at ingest
	ID uuid.UUID `db:"evidence_id" json:"id"`

	// Opaque identifier of the owning user; every query and mutation
	// is scoped by this value
	OwnerID string `db:"owner_id" json:"owner_id"`

	// One of the closed item type set
	ItemType ItemType `db:"item_type" json:"item_type"`

	// Object store key; nil for metadata-only items
	StorageKey *string `db:"storage_key" json:"storage_key,omitempty"`

	// Descriptive metadata captured at ingest, never recomputed
	SizeBytes int64   `db:"size_bytes" json:"size_bytes"`
	MimeType  *string `db:"mime_type" json:"mime_type,omitempty"`

	Title        *string  `db:"title" json:"title,omitempty"`
	Description  *string  `db:"description" json:"description,omitempty"`
	Tags         []string `db:"tags" json:"tags,omitempty"`
	Latitude     *float64 `db:"latitude" json:"latitude,omitempty"`
	Longitude    *float64 `db:"longitude" json:"longitude,omitempty"`
	LocationName *string  `db:"location_name" json:"location_name,omitempty"`

	// Hex-encoded SHA-256 digest of the exact bytes stored. Recomputing
	// the hash over the retrieved bytes must always equal this field.
	ContentHash string `db:"content_hash" json:"content_hash"`

	// When the event occurred (caller-supplied or ingest time)
	CapturedAt time.Time `db:"captured_at" json:"captured_at"`

	// When this system attested to the hash. Never user-suppliable.
	TimestampedAt time.Time `db:"timestamped_at" json:"timestamped_at"`

	// What stamped the record; currently always "local"
	TimestampAuthority string `db:"timestamp_authority" json:"timestamp_authority"`
}

// HasObject reports whether the record references stored binary content.
func (e *Evidence) HasObject() bool {
	return e.StorageKey != nil && *e.StorageKey != ""
}

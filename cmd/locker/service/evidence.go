package service

import (
	"context"
	"fmt"
	"time"

	"github.com/alibi/locker/cmd/locker/models"
	"github.com/alibi/locker/common/hash"
	"github.com/alibi/locker/common/logger"
	"github.com/alibi/locker/common/storage"
	"github.com/google/uuid"
)

// Repository is the persistence surface the service needs. Implemented by
// repository.EvidenceRepository; tests substitute a map-backed fake.
type Repository interface {
	Insert(ctx context.Context, e *models.Evidence) error
	GetByOwnerAndID(ctx context.Context, ownerID string, id uuid.UUID) (*models.Evidence, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Evidence, error)
	DeleteByOwnerAndID(ctx context.Context, ownerID string, id uuid.UUID) error
}

// ValidationError rejects a request before any storage or persistence
// action is attempted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// EvidenceService orchestrates hashing, object storage and record
// persistence for evidence items.
type EvidenceService struct {
	repo  Repository
	store storage.ObjectStore
	log   *logger.Logger
	now   func() time.Time
}

// NewEvidenceService creates a new evidence service
func NewEvidenceService(repo Repository, store storage.ObjectStore, log *logger.Logger) *EvidenceService {
	return &EvidenceService{
		repo:  repo,
		store: store,
		log:   log,
		now:   time.Now,
	}
}

// IngestRequest carries the content and metadata of a new evidence item.
// Content may be empty for metadata-only items.
type IngestRequest struct {
	OwnerID      string
	Content      []byte
	Filename     string
	ContentType  string
	ItemType     models.ItemType
	Title        *string
	Description  *string
	Tags         []string
	Latitude     *float64
	Longitude    *float64
	LocationName *string
	CapturedAt   *time.Time
}

// IngestResult is returned to the caller after a successful ingest
type IngestResult struct {
	ID            uuid.UUID `json:"id"`
	Title         *string   `json:"title,omitempty"`
	ContentHash   string    `json:"content_hash"`
	TimestampedAt time.Time `json:"timestamped_at"`
}

// Item is the retrieval view of a record: the record plus a resolved
// locator. FileURL is nil when the record has no object or when the
// locator could not be resolved.
type Item struct {
	*models.Evidence
	FileURL *string
}

// VerifyResult reports an integrity check of stored bytes against the
// hash persisted at ingest.
type VerifyResult struct {
	ID           uuid.UUID `json:"id"`
	ContentHash  string    `json:"content_hash"`
	ComputedHash string    `json:"computed_hash"`
	Match        bool      `json:"match"`
}

// Ingest hashes the content, stores the object and persists the record
// with a local timestamp attestation.
//
// Ordering is deliberate: validation first (nothing touched on bad
// input), object store second (a put failure aborts with no record), the
// record last. If the record insert fails after a successful put, the
// stored object is removed best-effort so neither side leaks.
func (s *EvidenceService) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	if err := validateIngest(&req); err != nil {
		return nil, err
	}

	contentHash := hash.SHA256Hex(req.Content)

	var storageKey *string
	if len(req.Content) > 0 {
		key, err := s.store.Put(ctx, storage.PutRequest{
			Content:     req.Content,
			Filename:    req.Filename,
			ContentType: req.ContentType,
			OwnerID:     req.OwnerID,
			ContentHash: contentHash,
		})
		if err != nil {
			s.log.Error("object store put failed", "owner_id", req.OwnerID, "error", err)
			return nil, fmt.Errorf("store content: %w", err)
		}
		storageKey = &key
	}

	now := s.now().UTC()
	capturedAt := now
	if req.CapturedAt != nil {
		capturedAt = req.CapturedAt.UTC()
	}

	var mimeType *string
	if req.ContentType != "" {
		mimeType = &req.ContentType
	}

	record := &models.Evidence{
		ID:                 uuid.New(),
		OwnerID:            req.OwnerID,
		ItemType:           req.ItemType,
		StorageKey:         storageKey,
		SizeBytes:          int64(len(req.Content)),
		MimeType:           mimeType,
		Title:              req.Title,
		Description:        req.Description,
		Tags:               req.Tags,
		Latitude:           req.Latitude,
		Longitude:          req.Longitude,
		LocationName:       req.LocationName,
		ContentHash:        contentHash,
		CapturedAt:         capturedAt,
		TimestampedAt:      now,
		TimestampAuthority: models.TimestampAuthorityLocal,
	}

	if err := s.repo.Insert(ctx, record); err != nil {
		// Don't leave an unreferenced object behind
		if storageKey != nil {
			if delErr := s.store.Delete(ctx, *storageKey); delErr != nil {
				s.log.Warn("orphaned object after failed insert", "storage_key", *storageKey, "error", delErr)
			}
		}
		return nil, fmt.Errorf("persist record: %w", err)
	}

	s.log.Info("evidence ingested",
		"evidence_id", record.ID,
		"owner_id", record.OwnerID,
		"item_type", record.ItemType,
		"size_bytes", record.SizeBytes,
		"content_hash", record.ContentHash)

	return &IngestResult{
		ID:            record.ID,
		Title:         record.Title,
		ContentHash:   record.ContentHash,
		TimestampedAt: record.TimestampedAt,
	}, nil
}

// List returns all records owned by ownerID, newest capture first,
// optionally narrowed by a CEL filter expression. Locator failures
// degrade the affected item's FileURL to nil without failing the list.
func (s *EvidenceService) List(ctx context.Context, ownerID, filterExpr string) ([]*Item, error) {
	var filter *Filter
	if filterExpr != "" {
		var err error
		filter, err = NewFilter(filterExpr)
		if err != nil {
			return nil, &ValidationError{Field: "filter", Reason: err.Error()}
		}
	}

	records, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	items := make([]*Item, 0, len(records))
	for _, record := range records {
		if filter != nil {
			match, err := filter.Match(record)
			if err != nil {
				return nil, &ValidationError{Field: "filter", Reason: err.Error()}
			}
			if !match {
				continue
			}
		}
		items = append(items, s.toItem(ctx, record))
	}

	return items, nil
}

// Get returns a single record scoped to its owner
func (s *EvidenceService) Get(ctx context.Context, ownerID string, id uuid.UUID) (*Item, error) {
	record, err := s.repo.GetByOwnerAndID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	return s.toItem(ctx, record), nil
}

// Delete removes the stored object and then the record. An object delete
// failure is logged, not surfaced: the record is removed regardless and
// the orphaned object is left for later cleanup.
func (s *EvidenceService) Delete(ctx context.Context, ownerID string, id uuid.UUID) error {
	record, err := s.repo.GetByOwnerAndID(ctx, ownerID, id)
	if err != nil {
		return err
	}

	if record.HasObject() {
		if err := s.store.Delete(ctx, *record.StorageKey); err != nil {
			s.log.Warn("object delete failed, record removed anyway",
				"evidence_id", id,
				"storage_key", *record.StorageKey,
				"error", err)
		}
	}

	if err := s.repo.DeleteByOwnerAndID(ctx, ownerID, id); err != nil {
		return err
	}

	s.log.Info("evidence deleted", "evidence_id", id, "owner_id", ownerID)
	return nil
}

// Verify recomputes the hash over the currently stored bytes and compares
// it to the hash persisted at ingest. Metadata-only records verify
// against the empty byte string they were hashed over.
func (s *EvidenceService) Verify(ctx context.Context, ownerID string, id uuid.UUID) (*VerifyResult, error) {
	record, err := s.repo.GetByOwnerAndID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	var content []byte
	if record.HasObject() {
		content, err = s.store.Get(ctx, *record.StorageKey)
		if err != nil {
			return nil, fmt.Errorf("read stored object: %w", err)
		}
	}

	computed := hash.SHA256Hex(content)

	result := &VerifyResult{
		ID:           record.ID,
		ContentHash:  record.ContentHash,
		ComputedHash: computed,
		Match:        computed == record.ContentHash,
	}

	if !result.Match {
		s.log.Warn("integrity check failed",
			"evidence_id", id,
			"expected", record.ContentHash,
			"computed", computed)
	}

	return result, nil
}

// toItem resolves a retrieval locator for the record. Resolution failure
// is non-fatal and leaves FileURL nil.
func (s *EvidenceService) toItem(ctx context.Context, record *models.Evidence) *Item {
	item := &Item{Evidence: record}

	if record.HasObject() {
		url, err := s.store.Locate(ctx, *record.StorageKey)
		if err != nil {
			s.log.Warn("locator resolution failed",
				"evidence_id", record.ID,
				"storage_key", *record.StorageKey,
				"error", err)
		} else {
			item.FileURL = &url
		}
	}

	return item
}

func validateIngest(req *IngestRequest) error {
	if req.OwnerID == "" {
		return &ValidationError{Field: "owner_id", Reason: "required"}
	}
	if !models.ValidItemType(req.ItemType) {
		return &ValidationError{Field: "item_type", Reason: fmt.Sprintf("unknown type %q", req.ItemType)}
	}
	if req.Latitude != nil && (*req.Latitude < -90 || *req.Latitude > 90) {
		return &ValidationError{Field: "latitude", Reason: "must be within [-90, 90]"}
	}
	if req.Longitude != nil && (*req.Longitude < -180 || *req.Longitude > 180) {
		return &ValidationError{Field: "longitude", Reason: "must be within [-180, 180]"}
	}
	return nil
}

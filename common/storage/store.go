// Package storage provides object store backends for evidence content.
// Two interchangeable implementations exist: a local filesystem store and
// an S3-compatible store. Exactly one is constructed per deployment,
// selected by configuration, and injected into the evidence service.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no object exists under the requested key.
var ErrNotFound = errors.New("object not found")

// PutRequest carries the content and metadata for a store write.
type PutRequest struct {
	Content     []byte
	Filename    string
	ContentType string
	OwnerID     string
	ContentHash string
}

// ObjectStore stores evidence content under opaque keys.
//
// Keys are unique per upload, so concurrent Puts never collide. Delete is
// idempotent: removing a missing key is not an error. Locate may fail
// independently of Get (e.g. URL signing); callers treat that as
// non-fatal and degrade to no URL.
type ObjectStore interface {
	Put(ctx context.Context, req PutRequest) (key string, err error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Locate(ctx context.Context, key string) (string, error)
}

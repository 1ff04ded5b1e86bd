package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/alibi/locker/cmd/locker/models"
	"github.com/alibi/locker/cmd/locker/service"
	"github.com/alibi/locker/common/logger"
	"github.com/alibi/locker/common/storage"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memRepo is a minimal in-memory service.Repository
type memRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID]*models.Evidence
}

func newMemRepo() *memRepo {
	return &memRepo{records: make(map[uuid.UUID]*models.Evidence)}
}

func (r *memRepo) Insert(ctx context.Context, e *models.Evidence) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *e
	r.records[e.ID] = &clone
	return nil
}

func (r *memRepo) GetByOwnerAndID(ctx context.Context, ownerID string, id uuid.UUID) (*models.Evidence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.records[id]
	if !ok || e.OwnerID != ownerID {
		return nil, models.ErrNotFound
	}
	clone := *e
	return &clone, nil
}

func (r *memRepo) ListByOwner(ctx context.Context, ownerID string) ([]*models.Evidence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Evidence
	for _, e := range r.records {
		if e.OwnerID == ownerID {
			clone := *e
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CapturedAt.After(out[j].CapturedAt)
	})
	return out, nil
}

func (r *memRepo) DeleteByOwnerAndID(ctx context.Context, ownerID string, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.records[id]
	if !ok || e.OwnerID != ownerID {
		return models.ErrNotFound
	}
	delete(r.records, id)
	return nil
}

// memStore is a minimal in-memory storage.ObjectStore
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	seq     int
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (s *memStore) Put(ctx context.Context, req storage.PutRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	key := fmt.Sprintf("%s/obj-%d", req.OwnerID, s.seq)
	s.objects[key] = append([]byte(nil), req.Content...)
	return key, nil
}

func (s *memStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return content, nil
}

func (s *memStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *memStore) Locate(ctx context.Context, key string) (string, error) {
	return "/api/v1/files/" + key, nil
}

func newTestHandler(t *testing.T) *EvidenceHandler {
	t.Helper()
	log := logger.New("error", "text")
	svc := service.NewEvidenceService(newMemRepo(), newMemStore(), log)
	return NewEvidenceHandler(svc, log)
}

func multipartBody(t *testing.T, fields map[string]string, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func uploadRequest(t *testing.T, e *echo.Echo, h *EvidenceHandler, owner string, fields map[string]string, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, fields, filename, content)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/evidence/upload", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("owner_id", owner)

	err := h.Upload(c)
	if err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestUpload_HelloNote(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t)

	rec := uploadRequest(t, e, h, "alice",
		map[string]string{"title": "greeting", "item_type": "note"},
		"a.txt", []byte("hello"))

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		ID            string `json:"id"`
		ContentHash   string `json:"content_hash"`
		TimestampedAt string `json:"timestamped_at"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", resp.ContentHash)
	assert.NotEmpty(t, resp.TimestampedAt)

	// Subsequent get reports the item as verified with a resolvable URL.
	id := resp.ID
	req := httptest.NewRequest(http.MethodGet, "/api/v1/evidence/"+id, nil)
	getRec := httptest.NewRecorder()
	c := e.NewContext(req, getRec)
	c.SetParamNames("id")
	c.SetParamValues(id)
	c.Set("owner_id", "alice")

	require.NoError(t, h.Get(c))
	require.Equal(t, http.StatusOK, getRec.Code)

	var item struct {
		Verified bool    `json:"verified"`
		FileURL  *string `json:"file_url"`
		Type     string  `json:"type"`
	}
	require.NoError(t, json.Unmarshal(getRec.Body.Bytes(), &item))
	assert.True(t, item.Verified)
	assert.NotNil(t, item.FileURL)
	assert.Equal(t, "note", item.Type)
}

func TestUpload_InvalidItemType(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t)

	rec := uploadRequest(t, e, h, "alice",
		map[string]string{"item_type": "selfie"},
		"a.jpg", []byte("x"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpload_MalformedCoordinates(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t)

	rec := uploadRequest(t, e, h, "alice",
		map[string]string{"item_type": "photo", "latitude": "north"},
		"a.jpg", []byte("x"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGet_ForeignOwnerIs404(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t)

	rec := uploadRequest(t, e, h, "bob",
		map[string]string{"item_type": "document"},
		"d.pdf", []byte("confidential"))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/evidence/"+resp.ID, nil)
	getRec := httptest.NewRecorder()
	c := e.NewContext(req, getRec)
	c.SetParamNames("id")
	c.SetParamValues(resp.ID)
	c.Set("owner_id", "alice")

	err := h.Get(c)
	require.Error(t, err)
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusNotFound, he.Code)
}

func TestDelete_ThenGetIs404(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t)

	rec := uploadRequest(t, e, h, "alice",
		map[string]string{"item_type": "receipt"},
		"r.png", []byte("receipt bytes"))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/evidence/"+resp.ID, nil)
	delRec := httptest.NewRecorder()
	c := e.NewContext(req, delRec)
	c.SetParamNames("id")
	c.SetParamValues(resp.ID)
	c.Set("owner_id", "alice")
	require.NoError(t, h.Delete(c))
	assert.Equal(t, http.StatusOK, delRec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/evidence/"+resp.ID, nil)
	getRec := httptest.NewRecorder()
	c = e.NewContext(req, getRec)
	c.SetParamNames("id")
	c.SetParamValues(resp.ID)
	c.Set("owner_id", "alice")

	err := h.Get(c)
	require.Error(t, err)
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusNotFound, he.Code)
}

func TestList_ReturnsItemsAndTotal(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t)

	for i := 0; i < 2; i++ {
		rec := uploadRequest(t, e, h, "alice",
			map[string]string{"item_type": "photo"},
			fmt.Sprintf("p%d.jpg", i), []byte{byte(i)})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/evidence", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("owner_id", "alice")

	require.NoError(t, h.List(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Items []json.RawMessage `json:"items"`
		Total int               `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	assert.Len(t, resp.Items, 2)
}

func TestList_InvalidFilterIs400(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/evidence?filter=item.type+%3D%3D", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("owner_id", "alice")

	err := h.List(c)
	require.Error(t, err)
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestVerify_ReportsMatch(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t)

	rec := uploadRequest(t, e, h, "alice",
		map[string]string{"item_type": "document"},
		"d.txt", []byte("attested content"))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/evidence/"+resp.ID+"/verify", nil)
	verifyRec := httptest.NewRecorder()
	c := e.NewContext(req, verifyRec)
	c.SetParamNames("id")
	c.SetParamValues(resp.ID)
	c.Set("owner_id", "alice")

	require.NoError(t, h.Verify(c))
	require.Equal(t, http.StatusOK, verifyRec.Code)

	var verify struct {
		Match bool `json:"match"`
	}
	require.NoError(t, json.Unmarshal(verifyRec.Body.Bytes(), &verify))
	assert.True(t, verify.Match)
}

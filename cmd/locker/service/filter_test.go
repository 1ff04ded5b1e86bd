package service

import (
	"testing"
	"time"

	"github.com/alibi/locker/cmd/locker/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord(itemType models.ItemType, size int64, tags []string) *models.Evidence {
	return &models.Evidence{
		ItemType:    itemType,
		SizeBytes:   size,
		Tags:        tags,
		ContentHash: "abc",
		CapturedAt:  time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestFilter_MatchByType(t *testing.T) {
	filter, err := NewFilter(`item.type == 'photo'`)
	require.NoError(t, err)

	match, err := filter.Match(testRecord(models.ItemTypePhoto, 10, nil))
	require.NoError(t, err)
	assert.True(t, match)

	match, err = filter.Match(testRecord(models.ItemTypeNote, 10, nil))
	require.NoError(t, err)
	assert.False(t, match)
}

func TestFilter_MatchBySizeAndTags(t *testing.T) {
	filter, err := NewFilter(`item.size_bytes > 1024 && 'court' in item.tags`)
	require.NoError(t, err)

	match, err := filter.Match(testRecord(models.ItemTypeDocument, 4096, []string{"court", "2026"}))
	require.NoError(t, err)
	assert.True(t, match)

	match, err = filter.Match(testRecord(models.ItemTypeDocument, 4096, nil))
	require.NoError(t, err)
	assert.False(t, match)

	match, err = filter.Match(testRecord(models.ItemTypeDocument, 12, []string{"court"}))
	require.NoError(t, err)
	assert.False(t, match)
}

func TestFilter_HasFile(t *testing.T) {
	filter, err := NewFilter(`!item.has_file`)
	require.NoError(t, err)

	match, err := filter.Match(testRecord(models.ItemTypeNote, 0, nil))
	require.NoError(t, err)
	assert.True(t, match)
}

func TestNewFilter_CompileError(t *testing.T) {
	_, err := NewFilter(`item.type ==`)
	assert.Error(t, err)
}

func TestFilter_NonBooleanExpression(t *testing.T) {
	filter, err := NewFilter(`item.size_bytes`)
	require.NoError(t, err)

	_, err = filter.Match(testRecord(models.ItemTypePhoto, 10, nil))
	assert.Error(t, err)
}

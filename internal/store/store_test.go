// Copyright Medscrub Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "medscrub.db"), filepath.Join(dir, "blobs"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndGet(t *testing.T) {
	s := newTestStore(t)

	rec, err := s.Create("", "befund.pdf")
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, StatusUploaded, rec.Status)

	got, err := s.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "befund.pdf", got.Filename)
}

func TestGetUnknownID(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateStatus(t *testing.T) {
	s := newTestStore(t)
	rec, err := s.Create("doc-1", "a.pdf")
	require.NoError(t, err)

	require.NoError(t, s.UpdateStatus(rec.ID, StatusFailed, "ocr exploded"))

	got, err := s.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "ocr exploded", got.Error)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt) || got.UpdatedAt.Equal(got.CreatedAt))
}

func TestTryQueueStateMachine(t *testing.T) {
	s := newTestStore(t)
	rec, err := s.Create("doc-1", "a.pdf")
	require.NoError(t, err)

	// Fresh upload queues.
	queued, err := s.TryQueue(rec.ID)
	require.NoError(t, err)
	assert.True(t, queued)

	// Already queued: no-op.
	queued, err = s.TryQueue(rec.ID)
	require.NoError(t, err)
	assert.False(t, queued)

	// Processing: no-op.
	require.NoError(t, s.UpdateStatus(rec.ID, StatusProcessing, ""))
	queued, err = s.TryQueue(rec.ID)
	require.NoError(t, err)
	assert.False(t, queued)

	// Terminal: may be re-queued, clearing the old error.
	require.NoError(t, s.UpdateStatus(rec.ID, StatusFailed, "boom"))
	queued, err = s.TryQueue(rec.ID)
	require.NoError(t, err)
	assert.True(t, queued)

	got, err := s.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, got.Status)
	assert.Empty(t, got.Error)
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.False(t, StatusUploaded.Terminal())
	assert.False(t, StatusQueued.Terminal())
	assert.False(t, StatusProcessing.Terminal())
}

func TestStoreBlobAndGetPath(t *testing.T) {
	s := newTestStore(t)
	rec, err := s.Create("doc-1", "a.pdf")
	require.NoError(t, err)

	path, err := s.StoreBlob(rec.ID, []byte("%PDF-1.4 fake"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 fake", string(data))

	got, err := s.GetPath(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, path, got)
}

func TestGetPathWithoutBlob(t *testing.T) {
	s := newTestStore(t)
	rec, err := s.Create("doc-1", "a.pdf")
	require.NoError(t, err)

	_, err = s.GetPath(rec.ID)
	assert.Error(t, err)
}

func TestOCRDataRoundTrip(t *testing.T) {
	s := newTestStore(t)
	rec, err := s.Create("doc-1", "a.pdf")
	require.NoError(t, err)

	_, err = s.GetOCRData(rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.StoreOCRData(rec.ID, []byte(`{"pages":[]}`)))
	data, err := s.GetOCRData(rec.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"pages":[]}`, string(data))
}

func TestSetResult(t *testing.T) {
	s := newTestStore(t)
	rec, err := s.Create("doc-1", "a.pdf")
	require.NoError(t, err)

	require.NoError(t, s.SetResult(rec.ID, json.RawMessage(`{"entities":3}`)))
	got, err := s.Get(rec.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"entities":3}`, string(got.Result))
}

func TestListOrderedByCreation(t *testing.T) {
	s := newTestStore(t)
	for _, id := range []string{"c", "a", "b"} {
		_, err := s.Create(id, id+".pdf")
		require.NoError(t, err)
	}

	records, err := s.List()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "c", records[0].ID)
	for i := 1; i < len(records); i++ {
		assert.False(t, records[i].CreatedAt.Before(records[i-1].CreatedAt))
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "medscrub.db")

	s, err := Open(dbPath, filepath.Join(dir, "blobs"))
	require.NoError(t, err)
	_, err = s.Create("doc-1", "a.pdf")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2, err := Open(dbPath, filepath.Join(dir, "blobs"))
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.Get("doc-1")
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", got.Filename)
}

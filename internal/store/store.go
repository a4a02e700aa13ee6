// Copyright Medscrub Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package store persists per-document processing state in an embedded
// bbolt database. Document bytes live as files next to the database;
// the store records their paths. The status record is the only state
// shared across workers, and every mutation is one atomic read-modify-
// write transaction keyed by document id.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

// Status is the lifecycle state of one uploaded document.
type Status string

const (
	StatusUploaded   Status = "UPLOADED"
	StatusQueued     Status = "QUEUED"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// Terminal reports whether the status is final. Terminal documents may
// be re-queued; everything else ignores further queue attempts.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ErrNotFound is returned for unknown document ids.
var ErrNotFound = errors.New("store: document not found")

// Record is the persisted state of one document.
type Record struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Status   Status `json:"status"`

	// Error holds the failure message for StatusFailed documents.
	Error string `json:"error,omitempty"`

	// Result is the serialized pipeline output (anonymized text,
	// entities, predictions). Opaque to the store.
	Result json.RawMessage `json:"result,omitempty"`

	// Path is where the original upload lives on disk; RedactedPath is
	// where the redacted PDF was written, once it exists.
	Path         string `json:"path,omitempty"`
	RedactedPath string `json:"redacted_path,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	documentsBucket = "documents"
	ocrBucket       = "ocr"
)

// Store is safe for concurrent use; bbolt serializes writers.
type Store struct {
	db      *bolt.DB
	blobDir string
}

// Open opens (or creates) the database at dbPath and ensures buckets
// and the blob directory exist. Blobs are stored under blobDir.
func Open(dbPath, blobDir string) (*Store, error) {
	if err := os.MkdirAll(blobDir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create blob dir: %w", err)
	}

	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("store: open %q: %w", dbPath, err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{documentsBucket, ocrBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create buckets: %w", err)
	}

	return &Store{db: db, blobDir: blobDir}, nil
}

// Close releases the database file handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create registers a new uploaded document and returns its record. An
// empty id gets a generated UUID.
func (s *Store) Create(id, filename string) (Record, error) {
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC()
	rec := Record{
		ID:        id,
		Filename:  filename,
		Status:    StatusUploaded,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.put(rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Get returns the record for id, or ErrNotFound.
func (s *Store) Get(id string) (Record, error) {
	var rec Record
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(documentsBucket)).Get([]byte(id))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &rec)
	})
	return rec, err
}

// List returns all records ordered by creation time, oldest first.
func (s *Store) List() ([]Record, error) {
	var records []Record
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(documentsBucket)).ForEach(func(_, v []byte) error {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			records = append(records, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return records, nil
}

// UpdateStatus sets the document's status and, for failures, the error
// message. One atomic transaction per call.
func (s *Store) UpdateStatus(id string, status Status, errMsg string) error {
	return s.update(id, func(rec *Record) {
		rec.Status = status
		rec.Error = errMsg
	})
}

// TryQueue flips a document to QUEUED and reports whether it did.
// Fresh uploads and terminal documents may be queued; documents
// already QUEUED or PROCESSING are left alone, making duplicate queue
// clicks harmless.
func (s *Store) TryQueue(id string) (bool, error) {
	queued := false
	err := s.updateRecord(id, func(rec *Record) error {
		if rec.Status == StatusQueued || rec.Status == StatusProcessing {
			return nil
		}
		rec.Status = StatusQueued
		rec.Error = ""
		queued = true
		return nil
	})
	return queued, err
}

// SetResult attaches the serialized pipeline output to the document.
func (s *Store) SetResult(id string, result json.RawMessage) error {
	return s.update(id, func(rec *Record) {
		rec.Result = result
	})
}

// SetRedactedPath records where the redacted PDF was written.
func (s *Store) SetRedactedPath(id, path string) error {
	return s.update(id, func(rec *Record) {
		rec.RedactedPath = path
	})
}

// StoreBlob writes the original document bytes to the blob directory
// and records the path on the document.
func (s *Store) StoreBlob(id string, data []byte) (string, error) {
	path := filepath.Join(s.blobDir, id+".pdf")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("store: write blob: %w", err)
	}
	if err := s.update(id, func(rec *Record) { rec.Path = path }); err != nil {
		return "", err
	}
	return path, nil
}

// GetPath returns the on-disk location of the original document.
func (s *Store) GetPath(id string) (string, error) {
	rec, err := s.Get(id)
	if err != nil {
		return "", err
	}
	if rec.Path == "" {
		return "", fmt.Errorf("store: document %s has no blob", id)
	}
	return rec.Path, nil
}

// StoreOCRData caches the serialized OCR index for a document so
// re-highlighting never re-runs Tesseract.
func (s *Store) StoreOCRData(id string, data []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(ocrBucket)).Put([]byte(id), data)
	})
}

// GetOCRData returns the cached OCR index, or ErrNotFound.
func (s *Store) GetOCRData(id string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(ocrBucket)).Get([]byte(id))
		if v == nil {
			return ErrNotFound
		}
		data = append([]byte(nil), v...)
		return nil
	})
	return data, err
}

func (s *Store) put(rec Record) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return tx.Bucket([]byte(documentsBucket)).Put([]byte(rec.ID), data)
	})
}

func (s *Store) update(id string, mutate func(*Record)) error {
	return s.updateRecord(id, func(rec *Record) error {
		mutate(rec)
		return nil
	})
}

func (s *Store) updateRecord(id string, mutate func(*Record) error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(documentsBucket))
		data := b.Get([]byte(id))
		if data == nil {
			return ErrNotFound
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		if err := mutate(&rec); err != nil {
			return err
		}
		rec.UpdatedAt = time.Now().UTC()
		updated, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), updated)
	})
}

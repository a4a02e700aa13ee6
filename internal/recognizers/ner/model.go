// Copyright Medscrub Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package ner wraps the sequence-tagging sidecar that provides neural
// named-entity recognition. The Go process owns the model weights cache
// and talks to the tagger over HTTP; the Model handle is constructed
// once at startup and shared read-only by all pipeline workers.
package ner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultWeightsURL is where the German NER model weights are fetched
// from on first use when no local copy exists yet.
const DefaultWeightsURL = "https://huggingface.co/flair/ner-german-large/resolve/main/pytorch_model.bin"

const tagTimeout = 60 * time.Second

// Model is a process-wide handle on the tagger sidecar. It is safe for
// concurrent use; the weights cache is ensured exactly once, lazily.
type Model struct {
	baseURL    string
	weightsURL string
	cachePath  string
	http       *http.Client
	log        zerolog.Logger

	once    sync.Once
	initErr error
}

// Options configures a Model. BaseURL is required; the zero value of
// everything else picks sensible defaults.
type Options struct {
	// BaseURL of the tagger sidecar, e.g. "http://localhost:8001".
	BaseURL string
	// WeightsURL overrides DefaultWeightsURL.
	WeightsURL string
	// CachePath is the local file the weights are persisted to.
	CachePath string
	// HTTPClient overrides the default client (mainly for tests).
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// NewModel builds a Model handle. No network traffic happens until the
// first Tag or Ensure call.
func NewModel(opts Options) *Model {
	m := &Model{
		baseURL:    opts.BaseURL,
		weightsURL: opts.WeightsURL,
		cachePath:  opts.CachePath,
		http:       opts.HTTPClient,
		log:        opts.Logger,
	}
	if m.weightsURL == "" {
		m.weightsURL = DefaultWeightsURL
	}
	if m.cachePath == "" {
		m.cachePath = filepath.Join(os.TempDir(), "medscrub", "ner-german-large.bin")
	}
	if m.http == nil {
		m.http = &http.Client{Timeout: tagTimeout}
	}
	return m
}

// Span is one tagged entity as reported by the sidecar.
type Span struct {
	Start int     `json:"start"`
	End   int     `json:"end"`
	Label string  `json:"label"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

type tagRequest struct {
	Text string `json:"text"`
}

type tagResponse struct {
	Spans []Span `json:"spans"`
}

// Ensure makes the model usable: the weights file must exist locally.
// Download is attempted twice; a second failure is fatal, because
// running de-identification without the neural recognizer would
// silently leave names and places in the output.
func (m *Model) Ensure(ctx context.Context) error {
	m.once.Do(func() {
		if _, err := os.Stat(m.cachePath); err == nil {
			return
		}
		m.log.Info().Str("url", m.weightsURL).Str("path", m.cachePath).
			Msg("downloading NER model weights")
		if err := m.download(ctx); err != nil {
			m.log.Warn().Err(err).Msg("model download failed, retrying once")
			if err = m.download(ctx); err != nil {
				m.initErr = fmt.Errorf("ner: model download failed: %w", err)
			}
		}
	})
	return m.initErr
}

func (m *Model) download(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.weightsURL, nil)
	if err != nil {
		return err
	}
	resp, err := m.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(m.cachePath), 0o755); err != nil {
		return err
	}
	// Write to a temp file first so a torn download never passes the
	// existence check on the next start.
	tmp, err := os.CreateTemp(filepath.Dir(m.cachePath), ".weights-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), m.cachePath)
}

// Tag sends text to the sidecar and returns the raw tagged spans. Safe
// for concurrent use.
func (m *Model) Tag(ctx context.Context, text string) ([]Span, error) {
	if err := m.Ensure(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(tagRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("ner: marshal: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, tagTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/tag", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ner: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ner: tagger unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ner: unexpected status %d", resp.StatusCode)
	}

	var result tagResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("ner: decode: %w", err)
	}
	return result.Spans, nil
}

// Copyright Medscrub Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ocr

import (
	"bytes"
	"context"
	"image"
	"strings"

	// Registered so image.DecodeConfig understands the raster formats
	// the PDF extractor produces.
	_ "image/jpeg"
	_ "image/png"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultPageWorkers bounds the per-document OCR fan-out.
const DefaultPageWorkers = 4

// Indexer runs an Engine over document pages.
type Indexer struct {
	engine  Engine
	workers int
	dpi     float64
	log     zerolog.Logger
}

// NewIndexer builds an Indexer with DefaultPageWorkers and DefaultDPI.
func NewIndexer(engine Engine, opts ...IndexerOption) *Indexer {
	ix := &Indexer{
		engine:  engine,
		workers: DefaultPageWorkers,
		dpi:     DefaultDPI,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// IndexerOption customizes an Indexer.
type IndexerOption func(*Indexer)

// WithPageWorkers bounds the concurrent page fan-out.
func WithPageWorkers(n int) IndexerOption {
	return func(ix *Indexer) {
		if n > 0 {
			ix.workers = n
		}
	}
}

// WithFallbackDPI overrides the DPI assumed for images without
// resolution metadata.
func WithFallbackDPI(dpi float64) IndexerOption {
	return func(ix *Indexer) {
		if dpi > 0 {
			ix.dpi = dpi
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(log zerolog.Logger) IndexerOption {
	return func(ix *Indexer) { ix.log = log }
}

// IndexImage OCRs a single page image. Empty and zero-confidence
// words are discarded; the page text is the space-joined remainder.
func (ix *Indexer) IndexImage(page int, img []byte) (PageIndex, error) {
	words, err := ix.engine.Words(img)
	if err != nil {
		return PageIndex{}, err
	}

	idx := PageIndex{Page: page, DPI: detectDPI(img, ix.dpi)}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(img)); err == nil {
		idx.WidthPx = cfg.Width
		idx.HeightPx = cfg.Height
	}

	var texts []string
	for _, w := range words {
		if w.Text == "" || w.Confidence <= 0 {
			continue
		}
		w.Page = page
		idx.Words = append(idx.Words, w)
		texts = append(texts, w.Text)
	}
	idx.Text = strings.Join(texts, " ")
	return idx, nil
}

// IndexDocument fans the given page images out across the worker
// bound and collects results strictly by page number, so the
// concatenated text is identical no matter which page finishes first.
// A failing page is logged and contributes an empty index; the rest of
// the document still goes through.
func (ix *Indexer) IndexDocument(ctx context.Context, images [][]byte) (DocumentIndex, error) {
	pages := make([]PageIndex, len(images))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.workers)

	for i, img := range images {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			idx, err := ix.IndexImage(i, img)
			if err != nil {
				ix.log.Warn().Err(err).Int("page", i).
					Msg("page OCR failed, leaving page blank")
				pages[i] = PageIndex{Page: i, DPI: ix.dpi}
				return nil
			}
			pages[i] = idx
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return DocumentIndex{}, err
	}
	return DocumentIndex{Pages: pages}, nil
}

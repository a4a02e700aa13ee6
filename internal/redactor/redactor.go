// Copyright Medscrub Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package redactor

import (
	"errors"
	"image"

	"github.com/rs/zerolog"

	"medscrub/internal/detector"
	"medscrub/internal/ocr"
)

// Redactor applies entity redactions and quote highlights to
// rasterized document pages.
type Redactor struct {
	log zerolog.Logger
}

// New returns a Redactor logging through the given logger.
func New(log zerolog.Logger) *Redactor {
	return &Redactor{log: log}
}

// RedactByEntities draws opaque boxes over every detected entity on
// every page and returns the modified page rasters. Character offsets
// are useless here (OCR boxes are per word, not per character), so
// each entity's text is re-tokenized and located as a word sequence.
// Failures degrade per unit: an oversized entity is skipped, a failing
// page keeps its original raster, and processing continues.
func (r *Redactor) RedactByEntities(doc ocr.DocumentIndex, pageImages [][]byte, entities []detector.Entity) ([][]byte, error) {
	out := make([][]byte, len(pageImages))
	copy(out, pageImages)

	for i := range pageImages {
		if i >= len(doc.Pages) {
			break
		}
		page := doc.Pages[i]

		var boxes []image.Rectangle
		for _, ent := range entities {
			idxs, err := FindPhrase(page.Words, PhraseWords(ent.Text))
			if err != nil {
				if errors.Is(err, ErrPhraseTooLong) {
					r.log.Warn().Stringer("entity", ent).Msg("entity too long to redact, skipping")
					continue
				}
				return nil, err
			}
			for _, idx := range idxs {
				boxes = append(boxes, page.Words[idx].Box)
			}
		}

		redacted, err := applyBoxes(pageImages[i], boxes, ModeRedact)
		if err != nil {
			r.log.Warn().Err(err).Int("page", i).Msg("page redaction failed, keeping original raster")
			continue
		}
		out[i] = redacted
	}
	return out, nil
}

// HighlightPhrase draws translucent boxes over one phrase on one page
// and returns the new raster plus the matched boxes in point space.
// An unmatched phrase returns the raster unchanged; an oversized one
// returns ErrPhraseTooLong and the raster unchanged, so callers can
// show a notice without losing the document.
func (r *Redactor) HighlightPhrase(page ocr.PageIndex, pageImg []byte, phrase string) ([]byte, []Rect, error) {
	idxs, err := FindPhrase(page.Words, PhraseWords(phrase))
	if err != nil {
		return pageImg, nil, err
	}
	if len(idxs) == 0 {
		return pageImg, nil, nil
	}

	boxes := make([]image.Rectangle, 0, len(idxs))
	for _, idx := range idxs {
		boxes = append(boxes, page.Words[idx].Box)
	}

	highlighted, err := applyBoxes(pageImg, boxes, ModeHighlight)
	if err != nil {
		return pageImg, nil, err
	}
	return highlighted, PointBoxes(page, idxs), nil
}

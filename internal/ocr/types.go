// Copyright Medscrub Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package ocr turns rasterized document pages into text plus a
// word-level index carrying pixel-space bounding boxes. The index is
// what lets the redactor map detected entities back onto page
// coordinates.
package ocr

import (
	"image"
	"strings"
)

// WordRecord is one recognized word with its bounding box in raster
// pixel space. Records are produced once per OCR pass and never
// mutated afterwards.
type WordRecord struct {
	Text string
	Box  image.Rectangle

	// Page is the 0-based page number, matching the PDF's page order.
	Page int

	// Confidence is normalized to [0,1].
	Confidence float64

	Block     int
	Paragraph int
	Line      int
	Word      int
}

// PageIndex is the OCR result of one page.
type PageIndex struct {
	Page  int
	Text  string
	Words []WordRecord

	// DPI the page was rasterized at; the redactor derives its
	// pixel-to-point scale factor from it.
	DPI float64

	WidthPx  int
	HeightPx int
}

// DocumentIndex is the OCR result of a whole document, pages in order.
type DocumentIndex struct {
	Pages []PageIndex
}

// Text concatenates all page texts in page order.
func (d DocumentIndex) Text() string {
	parts := make([]string, 0, len(d.Pages))
	for _, p := range d.Pages {
		parts = append(parts, p.Text)
	}
	return strings.Join(parts, "\n")
}

// Words flattens the per-page word records in page order.
func (d DocumentIndex) Words() []WordRecord {
	var all []WordRecord
	for _, p := range d.Pages {
		all = append(all, p.Words...)
	}
	return all
}

// Copyright Medscrub Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ocr

import (
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// TesseractEngine implements Engine on top of the system Tesseract
// installation via gosseract. A fresh client is created per call;
// gosseract clients are cheap but not safe for concurrent use.
type TesseractEngine struct {
	lang string
}

// NewTesseractEngine returns an engine recognizing the given language
// (e.g. "deu"). An empty language falls back to Tesseract's default.
func NewTesseractEngine(lang string) *TesseractEngine {
	return &TesseractEngine{lang: lang}
}

// Words implements Engine.
func (e *TesseractEngine) Words(img []byte) ([]WordRecord, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if e.lang != "" {
		if err := client.SetLanguage(e.lang); err != nil {
			return nil, fmt.Errorf("ocr: set language %q: %w", e.lang, err)
		}
	}
	if err := client.SetImageFromBytes(img); err != nil {
		return nil, fmt.Errorf("ocr: set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxesVerbose()
	if err != nil {
		return nil, fmt.Errorf("ocr: bounding boxes: %w", err)
	}

	words := make([]WordRecord, 0, len(boxes))
	for _, b := range boxes {
		words = append(words, WordRecord{
			Text: strings.TrimSpace(b.Word),
			Box:  b.Box,
			// Tesseract reports confidence as 0-100.
			Confidence: b.Confidence / 100,
			Block:      b.BlockNum,
			Paragraph:  b.ParNum,
			Line:       b.LineNum,
			Word:       b.WordNum,
		})
	}
	return words, nil
}

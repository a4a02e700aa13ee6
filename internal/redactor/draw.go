// Copyright Medscrub Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package redactor

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	_ "image/jpeg"
)

// Mode selects what gets drawn over matched words.
type Mode int

const (
	// ModeHighlight draws a translucent yellow box; the text below
	// stays readable for review.
	ModeHighlight Mode = iota
	// ModeRedact draws an opaque black box; the underlying pixels are
	// gone for good once the page is re-encoded.
	ModeRedact
)

// applyBoxes decodes a page raster, draws all boxes in the given mode
// and re-encodes as PNG. The input bytes are never modified.
func applyBoxes(pageImg []byte, boxes []image.Rectangle, mode Mode) ([]byte, error) {
	if len(boxes) == 0 {
		return pageImg, nil
	}

	src, _, err := image.Decode(bytes.NewReader(pageImg))
	if err != nil {
		return nil, fmt.Errorf("redactor: decode page image: %w", err)
	}

	canvas := image.NewRGBA(src.Bounds())
	draw.Draw(canvas, canvas.Bounds(), src, src.Bounds().Min, draw.Src)

	for _, box := range boxes {
		drawBox(canvas, box.Intersect(canvas.Bounds()), mode)
	}

	var out bytes.Buffer
	if err := png.Encode(&out, canvas); err != nil {
		return nil, fmt.Errorf("redactor: encode page image: %w", err)
	}
	return out.Bytes(), nil
}

func drawBox(canvas *image.RGBA, box image.Rectangle, mode Mode) {
	switch mode {
	case ModeRedact:
		draw.Draw(canvas, box, image.NewUniform(color.Black), image.Point{}, draw.Src)
	case ModeHighlight:
		yellow := image.NewUniform(color.RGBA{R: 255, G: 235, B: 59, A: 128})
		draw.Draw(canvas, box, yellow, image.Point{}, draw.Over)
	}
}

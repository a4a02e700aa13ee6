// Copyright Medscrub Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package redactor

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medscrub/internal/detector"
	"medscrub/internal/ocr"
)

func whitePage(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func TestScaleFactor(t *testing.T) {
	assert.InDelta(t, 0.24, ScaleFactor(300), 1e-9)
	assert.InDelta(t, 0.48, ScaleFactor(150), 1e-9)
	// Zero DPI falls back to the 300dpi scale instead of dividing by zero.
	assert.InDelta(t, 0.24, ScaleFactor(0), 1e-9)
}

func TestPixelToPointFlipsYAxis(t *testing.T) {
	// A box at the top of a 1000px page lands at the top of the page in
	// point space too, which means a *high* Y value there.
	r := PixelToPoint(image.Rect(100, 50, 300, 80), ScaleFactor(300), 1000)

	assert.InDelta(t, 24.0, r.X0, 1e-9)
	assert.InDelta(t, 72.0, r.X1, 1e-9)
	assert.InDelta(t, (1000-80)*0.24, r.Y0, 1e-9)
	assert.InDelta(t, (1000-50)*0.24, r.Y1, 1e-9)
	assert.Less(t, r.Y0, r.Y1)
}

func TestApplyBoxesRedactBlackensPixels(t *testing.T) {
	page := whitePage(t, 50, 20)
	out, err := applyBoxes(page, []image.Rectangle{image.Rect(10, 5, 20, 15)}, ModeRedact)
	require.NoError(t, err)

	img := decodePNG(t, out)
	r, g, b, _ := img.At(15, 10).RGBA()
	assert.Zero(t, r)
	assert.Zero(t, g)
	assert.Zero(t, b)

	// Outside the box stays white.
	r, _, _, _ = img.At(30, 10).RGBA()
	assert.Equal(t, uint32(0xffff), r)
}

func TestApplyBoxesHighlightKeepsTextVisible(t *testing.T) {
	page := whitePage(t, 50, 20)
	out, err := applyBoxes(page, []image.Rectangle{image.Rect(0, 0, 50, 20)}, ModeHighlight)
	require.NoError(t, err)

	// Blending yellow over white must not blacken the pixel.
	r, g, b, _ := decodePNG(t, out).At(25, 10).RGBA()
	assert.NotZero(t, r)
	assert.NotZero(t, g)
	// Blue drops, because the overlay is yellow.
	assert.Less(t, b, r)
}

func TestApplyBoxesNoBoxesReturnsInput(t *testing.T) {
	page := whitePage(t, 10, 10)
	out, err := applyBoxes(page, nil, ModeRedact)
	require.NoError(t, err)
	assert.Equal(t, page, out)
}

func TestRedactByEntities(t *testing.T) {
	page := ocr.PageIndex{
		Page:     0,
		Words:    pageWords("Herr", "Max", "Mustermann", "aus", "Berlin"),
		DPI:      300,
		HeightPx: 20,
		WidthPx:  60,
	}
	doc := ocr.DocumentIndex{Pages: []ocr.PageIndex{page}}
	raster := whitePage(t, 60, 20)

	entities := []detector.Entity{
		{Text: "Max Mustermann", Type: detector.TypePerson, Start: 5, End: 19, Score: 0.99},
	}

	out, err := New(zerolog.Nop()).RedactByEntities(doc, [][]byte{raster}, entities)
	require.NoError(t, err)
	require.Len(t, out, 1)

	img := decodePNG(t, out[0])
	// "Max" occupies x 10-18, "Mustermann" x 20-28.
	r, _, _, _ := img.At(14, 6).RGBA()
	assert.Zero(t, r)
	r, _, _, _ = img.At(24, 6).RGBA()
	assert.Zero(t, r)
	// "Berlin" at x 40-48 is untouched.
	r, _, _, _ = img.At(44, 6).RGBA()
	assert.Equal(t, uint32(0xffff), r)
}

func TestHighlightPhraseUnmatchedReturnsOriginal(t *testing.T) {
	page := ocr.PageIndex{Words: pageWords("nur", "text"), DPI: 300, HeightPx: 20}
	raster := whitePage(t, 30, 20)

	out, boxes, err := New(zerolog.Nop()).HighlightPhrase(page, raster, "Kniegelenk")
	require.NoError(t, err)
	assert.Equal(t, raster, out)
	assert.Empty(t, boxes)
}

func TestHighlightPhraseOversizedReturnsOriginal(t *testing.T) {
	page := ocr.PageIndex{Words: pageWords("wort"), DPI: 300, HeightPx: 20}
	raster := whitePage(t, 30, 20)

	long := make([]byte, 0)
	for i := 0; i < MaxPhraseWords+1; i++ {
		long = append(long, "wort "...)
	}

	out, _, err := New(zerolog.Nop()).HighlightPhrase(page, raster, string(long))
	assert.ErrorIs(t, err, ErrPhraseTooLong)
	assert.Equal(t, raster, out)
}

func TestHighlightPhraseReturnsPointBoxes(t *testing.T) {
	page := ocr.PageIndex{
		Words:    pageWords("starke", "Schmerzen"),
		DPI:      300,
		HeightPx: 20,
	}
	raster := whitePage(t, 30, 20)

	_, boxes, err := New(zerolog.Nop()).HighlightPhrase(page, raster, "starke Schmerzen")
	require.NoError(t, err)
	require.Len(t, boxes, 2)
	assert.InDelta(t, 0.0, boxes[0].X0, 1e-9)
	assert.InDelta(t, float64(10)*0.24, boxes[1].X0, 1e-9)
}

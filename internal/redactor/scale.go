// Copyright Medscrub Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package redactor

import (
	"image"

	"medscrub/internal/ocr"
)

// Rect is an axis-aligned box in PDF point space, origin bottom-left.
type Rect struct {
	X0, Y0, X1, Y1 float64
}

// ScaleFactor converts raster pixels to PDF points for a page
// rasterized at the given DPI. PDF user space is 72 points per inch.
func ScaleFactor(dpi float64) float64 {
	if dpi <= 0 {
		return 72.0 / 300.0
	}
	return 72.0 / dpi
}

// PixelToPoint maps a pixel-space bounding box (origin top-left, as
// OCR reports it) into point space (origin bottom-left, as PDF wants
// it). pageHeightPx is the raster height of the page the box sits on;
// without it the vertical flip cannot be computed.
func PixelToPoint(box image.Rectangle, scale float64, pageHeightPx int) Rect {
	return Rect{
		X0: float64(box.Min.X) * scale,
		Y0: (float64(pageHeightPx) - float64(box.Max.Y)) * scale,
		X1: float64(box.Max.X) * scale,
		Y1: (float64(pageHeightPx) - float64(box.Min.Y)) * scale,
	}
}

// PointBoxes converts the boxes of the given word indices on a page to
// point space.
func PointBoxes(page ocr.PageIndex, indices []int) []Rect {
	scale := ScaleFactor(page.DPI)
	out := make([]Rect, 0, len(indices))
	for _, idx := range indices {
		out = append(out, PixelToPoint(page.Words[idx].Box, scale, page.HeightPx))
	}
	return out
}

// Copyright Medscrub Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ocr

import (
	"bytes"

	"github.com/rwcarlsen/goexif/exif"
)

// DefaultDPI is assumed when a page image carries no resolution
// metadata. Scanned documents are overwhelmingly 300dpi.
const DefaultDPI = 300.0

// detectDPI reads the horizontal resolution from the image's EXIF
// block. Most PNG rasters carry none; the fallback keeps coordinate
// mapping working instead of failing the page.
func detectDPI(img []byte, fallback float64) float64 {
	meta, err := exif.Decode(bytes.NewReader(img))
	if err != nil {
		return fallback
	}
	tag, err := meta.Get(exif.XResolution)
	if err != nil {
		return fallback
	}
	num, den, err := tag.Rat2(0)
	if err != nil || den == 0 || num <= 0 {
		return fallback
	}
	return float64(num) / float64(den)
}

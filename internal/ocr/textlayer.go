// Copyright Medscrub Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ocr

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractTextLayer pulls the embedded text layer out of a PDF, one
// string per page. Digitally produced documents have one; for those,
// the pipeline can skip OCR entirely. An empty result means the
// document is a scan.
func ExtractTextLayer(path string) ([]string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ocr: open pdf: %w", err)
	}
	defer f.Close()

	var pages []string
	nonEmpty := false
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		text = strings.TrimSpace(text)
		if text != "" {
			nonEmpty = true
		}
		pages = append(pages, text)
	}

	if !nonEmpty {
		return nil, nil
	}
	return pages, nil
}

// Copyright Medscrub Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ocr

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PageImages pulls the embedded page scans out of a PDF, ordered by
// page number. Scanned clinical documents are one full-page image per
// page; when a page embeds several images, the largest one is taken as
// the page scan.
func PageImages(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ocr: open pdf: %w", err)
	}
	defer f.Close()

	byPage := map[int][]byte{}
	digest := func(img model.Image, singleImgPerPage bool, maxPageDigits int) error {
		data, err := io.ReadAll(img)
		if err != nil {
			return err
		}
		if len(data) > len(byPage[img.PageNr]) {
			byPage[img.PageNr] = data
		}
		return nil
	}

	if err := api.ExtractImages(f, nil, digest, model.NewDefaultConfiguration()); err != nil {
		return nil, fmt.Errorf("ocr: extract page images: %w", err)
	}
	if len(byPage) == 0 {
		return nil, nil
	}

	pageNrs := make([]int, 0, len(byPage))
	for nr := range byPage {
		pageNrs = append(pageNrs, nr)
	}
	sort.Ints(pageNrs)

	images := make([][]byte, 0, len(pageNrs))
	for _, nr := range pageNrs {
		images = append(images, byPage[nr])
	}
	return images, nil
}

// PageCount reports the number of pages in a PDF.
func PageCount(path string) (int, error) {
	return api.PageCountFile(path)
}

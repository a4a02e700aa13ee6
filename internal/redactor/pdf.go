// Copyright Medscrub Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package redactor

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// WritePDF reassembles page rasters into a PDF at outPath, one image
// per page in slice order.
func WritePDF(pageImages [][]byte, outPath string) error {
	if len(pageImages) == 0 {
		return fmt.Errorf("redactor: no pages to write")
	}

	dir, err := os.MkdirTemp("", "medscrub-pages-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	files := make([]string, 0, len(pageImages))
	for i, img := range pageImages {
		name := filepath.Join(dir, fmt.Sprintf("page-%04d.png", i))
		if err := os.WriteFile(name, img, 0o644); err != nil {
			return err
		}
		files = append(files, name)
	}

	if err := api.ImportImagesFile(files, outPath, nil, model.NewDefaultConfiguration()); err != nil {
		return fmt.Errorf("redactor: assemble pdf: %w", err)
	}
	return nil
}

// Copyright Medscrub Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"medscrub/internal/logger"
	"medscrub/internal/ocr"
	"medscrub/internal/redactor"
)

var highlightCmd = &cobra.Command{
	Use:   "highlight [document-id]",
	Short: "Highlight a phrase on a processed document",
	Long: `Draw a reviewable highlight over every occurrence of a phrase on a
previously processed document. The cached OCR index is reused, so no
OCR pass runs; the highlighted pages are written as a new PDF.`,
	Example: `  # Mark the passage behind a billing code for review
  medscrub highlight 7f3c2a1e-... --phrase "Operation am Leistenkanal" -o review.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runHighlight,
}

func init() {
	rootCmd.AddCommand(highlightCmd)

	highlightCmd.Flags().String("phrase", "", "Phrase to highlight (required)")
	highlightCmd.Flags().StringP("output", "o", "", "Output PDF path (required)")
	_ = highlightCmd.MarkFlagRequired("phrase")
	_ = highlightCmd.MarkFlagRequired("output")
}

func runHighlight(cmd *cobra.Command, args []string) error {
	phrase, _ := cmd.Flags().GetString("phrase")
	outputPath, _ := cmd.Flags().GetString("output")

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	id := args[0]
	path, err := st.GetPath(id)
	if err != nil {
		return err
	}
	data, err := st.GetOCRData(id)
	if err != nil {
		return fmt.Errorf("no OCR index for document %s, process it first: %w", id, err)
	}
	var doc ocr.DocumentIndex
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode OCR index: %w", err)
	}

	images, err := ocr.PageImages(path)
	if err != nil {
		return err
	}

	red := redactor.New(logger.WithComponent("redactor"))
	matchedPages := 0
	for i := range images {
		if i >= len(doc.Pages) {
			break
		}
		highlighted, boxes, err := red.HighlightPhrase(doc.Pages[i], images[i], phrase)
		if err != nil {
			if errors.Is(err, redactor.ErrPhraseTooLong) {
				color.Yellow("Phrase is too long to highlight; document left unchanged.")
				return nil
			}
			return err
		}
		if len(boxes) > 0 {
			matchedPages++
		}
		images[i] = highlighted
	}

	if matchedPages == 0 {
		color.Yellow("Phrase not found; writing document unchanged.")
	}
	if err := redactor.WritePDF(images, outputPath); err != nil {
		return err
	}
	fmt.Printf("Wrote %s (%d page(s) highlighted)\n", outputPath, matchedPages)
	return nil
}

// Copyright Medscrub Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"medscrub/internal/logger"
	"medscrub/internal/ocr"
	"medscrub/internal/predictor"
	"medscrub/internal/processor"
	"medscrub/internal/quotes"
	"medscrub/internal/redactor"
	"medscrub/internal/store"
)

var processCmd = &cobra.Command{
	Use:   "process [pdf-file]",
	Short: "Run the full pipeline over a PDF document",
	Long: `Upload a PDF into the local document store and run it through the
complete pipeline: text extraction (embedded layer or OCR),
de-identification, entity redaction on the page scans, billing-code
prediction and quote localization.

Requires the prediction service to be configured (predictor.url and
predictor.api_key, or MEDSCRUB_PREDICTOR_URL / MEDSCRUB_PREDICTOR_API_KEY).`,
	Example: `  # Process a scanned operation report
  medscrub process op-bericht.pdf

  # Different billing category, result to file
  medscrub process brief.pdf --category Gastroskopie -o result.json`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().String("category", "", "Billing category (default from config)")
	processCmd.Flags().StringP("output", "o", "", "Write the result JSON to this file")
	processCmd.Flags().Int("timeout", 600, "Processing timeout in seconds")
}

func runProcess(cmd *cobra.Command, args []string) error {
	category, _ := cmd.Flags().GetString("category")
	outputPath, _ := cmd.Flags().GetString("output")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	if category == "" {
		category = cfg.Predictor.Category
	}
	if cfg.Predictor.URL == "" || cfg.Predictor.APIKey == "" {
		return fmt.Errorf("prediction service not configured, set MEDSCRUB_PREDICTOR_URL and MEDSCRUB_PREDICTOR_API_KEY")
	}

	pdfPath := args[0]
	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := st.Create("", filepath.Base(pdfPath))
	if err != nil {
		return err
	}
	if _, err := st.StoreBlob(rec.ID, data); err != nil {
		return err
	}

	log := logger.WithComponent("process")
	log.Info().Str("document", rec.ID).Str("file", pdfPath).Str("category", category).
		Msg("document uploaded")

	pipeline := processor.NewPipeline(processor.Deps{
		Store:      st,
		Indexer:    newIndexer(),
		Anonymizer: buildEngine(),
		Predictor:  predictor.New(cfg.Predictor.URL, cfg.Predictor.APIKey),
		Localizer:  quotes.NewLocalizer(),
		Redactor:   redactor.New(logger.WithComponent("redactor")),
	}, category, logger.WithComponent("pipeline"))

	proc := processor.New(st, pipeline, cfg.Processing.Workers, logger.WithComponent("processor"))
	proc.Start()
	defer proc.Stop()

	if _, err := proc.Queue(rec.ID); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, time.Duration(timeoutSecs)*time.Second)
	defer cancelTimeout()

	final, err := waitForDocument(ctx, st, rec.ID)
	if err != nil {
		return err
	}
	if final.Status == store.StatusFailed {
		return fmt.Errorf("processing failed: %s", final.Error)
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, final.Result, 0o644); err != nil {
			return err
		}
		fmt.Printf("Result written to %s\n", outputPath)
	}
	return printSummary(final)
}

// newIndexer wires the configured Tesseract engine into a page indexer.
func newIndexer() *ocr.Indexer {
	return ocr.NewIndexer(ocr.NewTesseractEngine(cfg.OCR.Language),
		ocr.WithPageWorkers(cfg.OCR.PageWorkers),
		ocr.WithFallbackDPI(cfg.OCR.FallbackDPI),
		ocr.WithLogger(logger.WithComponent("ocr")),
	)
}

// openStore opens the document store under the configured data dir.
func openStore() (*store.Store, error) {
	if err := os.MkdirAll(cfg.Processing.DataDir, 0o755); err != nil {
		return nil, err
	}
	return store.Open(cfg.DatabasePath(), cfg.BlobDir())
}

// waitForDocument polls the store until the document reaches a terminal
// state or the context runs out.
func waitForDocument(ctx context.Context, st *store.Store, id string) (store.Record, error) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return store.Record{}, fmt.Errorf("processing interrupted: %w", ctx.Err())
		case <-ticker.C:
			rec, err := st.Get(id)
			if err != nil {
				return store.Record{}, err
			}
			if rec.Status.Terminal() {
				return rec, nil
			}
		}
	}
}

// printSummary renders the pipeline result for human consumption.
func printSummary(rec store.Record) error {
	var res processor.Result
	if err := json.Unmarshal(rec.Result, &res); err != nil {
		return fmt.Errorf("decode stored result: %w", err)
	}

	heading := color.New(color.Bold)
	heading.Println("De-identified text")
	fmt.Println(res.AnonymizedText)
	fmt.Println()

	heading.Printf("Entities (%d)\n", len(res.Entities))
	typeColor := color.New(color.FgCyan)
	for _, e := range res.Entities {
		fmt.Printf("  %s [%d:%d] score=%.2f\n", typeColor.Sprint(e.Type), e.Start, e.End, e.Score)
	}
	fmt.Println()

	heading.Printf("Predictions (%d)\n", len(res.Predictions))
	for _, p := range res.Predictions {
		fmt.Printf("  %s  x%.0f  Faktor %.1f  %s\n",
			color.GreenString(p.GoaZiffer), p.Quantitaet, p.Faktor, p.Beschreibung)
		if p.Zitat != "" {
			fmt.Printf("      %q\n", truncate(p.Zitat, 100))
		}
	}

	if rec.RedactedPath != "" {
		fmt.Println()
		fmt.Printf("Redacted PDF: %s\n", rec.RedactedPath)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

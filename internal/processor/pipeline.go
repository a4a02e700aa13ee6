// Copyright Medscrub Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"medscrub/internal/anonymizer"
	"medscrub/internal/detector"
	"medscrub/internal/ocr"
	"medscrub/internal/predictor"
	"medscrub/internal/quotes"
	"medscrub/internal/redactor"
	"medscrub/internal/store"
)

// Anonymizer de-identifies document text.
type Anonymizer interface {
	Anonymize(text string) (anonymizer.Result, error)
}

// Predictor returns billing-code predictions for anonymized text.
type Predictor interface {
	Predict(ctx context.Context, text, category string) ([]predictor.Prediction, error)
}

// Localizer maps prediction quotes back onto the document text.
type Localizer interface {
	Locate(quoteList []quotes.Quote, fullText string) []quotes.Segment
}

// PageIndexer OCRs rasterized pages into a searchable index.
type PageIndexer interface {
	IndexDocument(ctx context.Context, images [][]byte) (ocr.DocumentIndex, error)
}

// PageRedactor blacks out detected entities on page rasters.
type PageRedactor interface {
	RedactByEntities(doc ocr.DocumentIndex, pageImages [][]byte, entities []detector.Entity) ([][]byte, error)
}

// Deps are the pipeline's collaborators. All fields are required except
// Redactor, which may be nil to skip redacted-PDF output.
type Deps struct {
	Store      *store.Store
	Indexer    PageIndexer
	Anonymizer Anonymizer
	Predictor  Predictor
	Localizer  Localizer
	Redactor   PageRedactor

	// ExtractText, PageImages and WritePDF default to the ocr and
	// redactor package functions; tests swap them out so no real PDFs
	// are needed.
	ExtractText func(path string) ([]string, error)
	PageImages  func(path string) ([][]byte, error)
	WritePDF    func(pageImages [][]byte, outPath string) error
}

// Pipeline runs one document end to end: text extraction (embedded
// layer or OCR), de-identification, raster redaction, billing-code
// prediction and quote localization. It implements Runner.
type Pipeline struct {
	deps     Deps
	category string
	log      zerolog.Logger
}

// NewPipeline builds a Pipeline predicting against the given category.
func NewPipeline(deps Deps, category string, log zerolog.Logger) *Pipeline {
	if deps.ExtractText == nil {
		deps.ExtractText = ocr.ExtractTextLayer
	}
	if deps.PageImages == nil {
		deps.PageImages = ocr.PageImages
	}
	if deps.WritePDF == nil {
		deps.WritePDF = redactor.WritePDF
	}
	return &Pipeline{deps: deps, category: category, log: log}
}

// Result is the persisted output of one pipeline run.
type Result struct {
	Text           string                 `json:"text"`
	AnonymizedText string                 `json:"anonymized_text"`
	Entities       []ResultEntity         `json:"entities"`
	Predictions    []predictor.Prediction `json:"predictions"`
	Segments       []ResultSegment        `json:"segments"`
}

// ResultEntity is the serialized form of one detected entity.
type ResultEntity struct {
	Text  string  `json:"text"`
	Type  string  `json:"type"`
	Start int     `json:"start"`
	End   int     `json:"end"`
	Score float64 `json:"score"`
}

// ResultSegment is the serialized form of one annotated text segment.
type ResultSegment struct {
	Text    string `json:"text"`
	Label   string `json:"label,omitempty"`
	Matched bool   `json:"matched"`
}

// Run executes the full pipeline for one document and persists the
// result. The processor wraps it with the status lifecycle.
func (pl *Pipeline) Run(ctx context.Context, job Job) error {
	id := job.DocumentID
	log := pl.log.With().Str("document", id).Logger()

	path, err := pl.deps.Store.GetPath(id)
	if err != nil {
		return err
	}

	text, doc, pageImages, err := pl.extract(ctx, id, path, log)
	if err != nil {
		return err
	}

	anon, err := pl.deps.Anonymizer.Anonymize(text)
	if err != nil {
		return fmt.Errorf("anonymize: %w", err)
	}

	if pageImages != nil {
		pl.writeRedactedPDF(id, path, doc, pageImages, anon.Applied, log)
	}

	preds, err := pl.deps.Predictor.Predict(ctx, anon.AnonymizedText, pl.category)
	if err != nil {
		return fmt.Errorf("predict: %w", err)
	}

	// Quote labels carry the prediction index, not the Ziffer: two
	// predictions can share a Ziffer while citing different passages,
	// and each must keep its own rank. Display labels are restored by
	// orderByAppearance.
	quoteList := make([]quotes.Quote, 0, len(preds))
	for i, p := range preds {
		if strings.TrimSpace(p.Zitat) == "" {
			continue
		}
		quoteList = append(quoteList, quotes.Quote{Text: p.Zitat, Label: strconv.Itoa(i)})
	}
	segments := pl.deps.Localizer.Locate(quoteList, anon.AnonymizedText)

	ordered, segments := orderByAppearance(preds, segments)
	result := Result{
		Text:           text,
		AnonymizedText: anon.AnonymizedText,
		Entities:       resultEntities(anon.Entities),
		Predictions:    ordered,
		Segments:       resultSegments(segments),
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return pl.deps.Store.SetResult(id, payload)
}

// extract returns the document text, preferring the embedded text
// layer. Scans fall back to rasterization plus OCR; for those, the
// page index and rasters come back too so redaction can reuse them,
// and the index is cached in the store.
func (pl *Pipeline) extract(ctx context.Context, id, path string, log zerolog.Logger) (string, ocr.DocumentIndex, [][]byte, error) {
	layer, err := pl.deps.ExtractText(path)
	if err != nil {
		log.Debug().Err(err).Msg("no embedded text layer, falling back to OCR")
	}
	if layer != nil {
		return postProcessText(strings.Join(layer, "\n")), ocr.DocumentIndex{}, nil, nil
	}

	images, err := pl.deps.PageImages(path)
	if err != nil {
		return "", ocr.DocumentIndex{}, nil, fmt.Errorf("rasterize: %w", err)
	}
	if len(images) == 0 {
		return "", ocr.DocumentIndex{}, nil, fmt.Errorf("document has no pages")
	}

	doc, err := pl.deps.Indexer.IndexDocument(ctx, images)
	if err != nil {
		return "", ocr.DocumentIndex{}, nil, fmt.Errorf("ocr: %w", err)
	}
	text := doc.Text()
	if strings.TrimSpace(text) == "" {
		return "", ocr.DocumentIndex{}, nil, fmt.Errorf("document yields no text")
	}

	if data, err := json.Marshal(doc); err == nil {
		if err := pl.deps.Store.StoreOCRData(id, data); err != nil {
			log.Warn().Err(err).Msg("cannot cache OCR index")
		}
	}
	return text, doc, images, nil
}

// writeRedactedPDF draws the applied entities onto the page rasters and
// reassembles them into a PDF next to the original. Redaction output is
// best-effort: a failure is logged, the run continues.
func (pl *Pipeline) writeRedactedPDF(id, path string, doc ocr.DocumentIndex, pageImages [][]byte, applied []detector.Entity, log zerolog.Logger) {
	if pl.deps.Redactor == nil || pl.deps.WritePDF == nil {
		return
	}

	redacted, err := pl.deps.Redactor.RedactByEntities(doc, pageImages, applied)
	if err != nil {
		log.Warn().Err(err).Msg("page redaction failed, skipping redacted PDF")
		return
	}

	outPath := strings.TrimSuffix(path, ".pdf") + ".redacted.pdf"
	if err := pl.deps.WritePDF(redacted, outPath); err != nil {
		log.Warn().Err(err).Msg("cannot write redacted PDF")
		return
	}
	if err := pl.deps.Store.SetRedactedPath(id, outPath); err != nil {
		log.Warn().Err(err).Msg("cannot record redacted PDF path")
	}
}

// postProcessText reflows extracted text into paragraphs: consecutive
// non-empty lines join into one paragraph, blank lines separate
// paragraphs.
func postProcessText(text string) string {
	var paragraphs []string
	var current []string

	flush := func() {
		if len(current) > 0 {
			paragraphs = append(paragraphs, strings.Join(current, " "))
			current = current[:0]
		}
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	return strings.Join(paragraphs, "\n\n")
}

// orderByAppearance reorders predictions so they follow their quotes'
// positions in the document, and swaps the index labels on matched
// segments for the billing codes they stand for. Predictions whose
// quote matched nowhere keep their relative order at the end.
func orderByAppearance(preds []predictor.Prediction, segments []quotes.Segment) ([]predictor.Prediction, []quotes.Segment) {
	rank := make(map[int]int)
	out := make([]quotes.Segment, len(segments))
	copy(out, segments)
	for i, seg := range out {
		if !seg.Matched {
			continue
		}
		idx, err := strconv.Atoi(seg.Label)
		if err != nil || idx < 0 || idx >= len(preds) {
			continue
		}
		if _, ok := rank[idx]; !ok {
			rank[idx] = len(rank)
		}
		out[i].Label = preds[idx].GoaZiffer
	}

	indices := make([]int, len(preds))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		ra, aok := rank[indices[a]]
		rb, bok := rank[indices[b]]
		if aok != bok {
			return aok
		}
		return aok && ra < rb
	})

	ordered := make([]predictor.Prediction, len(preds))
	for i, idx := range indices {
		ordered[i] = preds[idx]
	}
	return ordered, out
}

func resultEntities(entities []detector.Entity) []ResultEntity {
	out := make([]ResultEntity, len(entities))
	for i, e := range entities {
		out[i] = ResultEntity{
			Text:  e.Text,
			Type:  string(e.Type),
			Start: e.Start,
			End:   e.End,
			Score: e.Score,
		}
	}
	return out
}

func resultSegments(segments []quotes.Segment) []ResultSegment {
	out := make([]ResultSegment, len(segments))
	for i, s := range segments {
		out[i] = ResultSegment{Text: s.Text, Label: s.Label, Matched: s.Matched}
	}
	return out
}

// Copyright Medscrub Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package date detects German date expressions, including dates that OCR
// has split across several whitespace-separated tokens or garbled with
// letter/digit confusions (O vs 0).
package date

import (
	"regexp"
	"strconv"
	"strings"

	"medscrub/internal/detector"
)

// Numeric and mixed date formats seen in German clinical documents.
// The last pattern tolerates the classic OCR confusion of O for 0.
var datePatterns = []string{
	`\b\d{1,2}[\.\-/]\d{1,2}[\.\-/]\d{4}\b`,
	`\b\d{4}[\-/]\d{1,2}[\-/]\d{1,2}\b`,
	`\b\d{1,2}[\.\-/]\d{1,2}[\.\-/]\d{2}\b`,
	`\b\d{2}[\-/]\d{1,2}[\-/]\d{1,2}\b`,
	`\b\d{1,2}\.\d{1,2}\.`,
	`[a-zA-Z]{0,3}\d{1,2}[\.\-][a-zA-Z]{0,3}\d{1,2}[\.\-][a-zA-Z]{0,3}\d{2,4}`,
	`\d{1,2}[a-zA-Z]{0,3}[\.\-][a-zA-Z]{0,3}\d{1,2}[a-zA-Z]{0,3}[\.\-][a-zA-Z]{0,3}\d{2,4}`,
	`\b\d{1,2}[\.\-/][O0]\d[\.\-/][O0\d]{2,4}\b`,
}

var germanWeekdays = map[string]struct{}{
	"montag": {}, "dienstag": {}, "mittwoch": {}, "donnerstag": {},
	"freitag": {}, "samstag": {}, "sonntag": {},
	"mo": {}, "di": {}, "mi": {}, "do": {}, "fr": {}, "sa": {}, "so": {},
	"mo.": {}, "di.": {}, "mi.": {}, "do.": {}, "fr.": {}, "sa.": {}, "so.": {},
}

var germanMonths = map[string]struct{}{
	"januar": {}, "februar": {}, "märz": {}, "april": {}, "mai": {},
	"juni": {}, "juli": {}, "august": {}, "september": {}, "oktober": {},
	"november": {}, "dezember": {},
	"jan": {}, "feb": {}, "mär": {}, "apr": {}, "jun": {}, "jul": {},
	"aug": {}, "sep": {}, "okt": {}, "nov": {}, "dez": {},
	"jan.": {}, "feb.": {}, "mär.": {}, "apr.": {}, "jun.": {}, "jul.": {},
	"aug.": {}, "sep.": {}, "okt.": {}, "nov.": {}, "dez.": {},
}

// Recognizer implements detector.Recognizer for DATE_TIME spans.
type Recognizer struct {
	patterns []*regexp.Regexp
}

// NewRecognizer compiles the date patterns once and returns a ready
// recognizer. All matches carry a fixed score of 1.0.
func NewRecognizer() *Recognizer {
	r := &Recognizer{}
	for _, p := range datePatterns {
		r.patterns = append(r.patterns, regexp.MustCompile(`(?i)`+p))
	}
	return r
}

// Name implements detector.Recognizer.
func (r *Recognizer) Name() string { return "date" }

// Detect implements detector.Recognizer.
func (r *Recognizer) Detect(text string) ([]detector.Entity, error) {
	var entities []detector.Entity

	for _, re := range r.patterns {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			entities = append(entities, detector.Entity{
				Text:  text[loc[0]:loc[1]],
				Type:  detector.TypeDateTime,
				Start: loc[0],
				End:   loc[1],
				Score: 1.0,
			})
		}
	}

	entities = append(entities, r.detectSplitDates(text)...)
	return entities, nil
}

// detectSplitDates finds dates whose parts are separate tokens, e.g.
// "Montag 12. März" or "12 03 1980". Starting from any plausible date
// part, up to 3 subsequent tokens are absorbed greedily; the run is
// accepted if it contains a number and either names a month/weekday or
// spans at least 3 parts.
func (r *Recognizer) detectSplitDates(text string) []detector.Entity {
	tokens := detector.Tokenize(text)
	var entities []detector.Entity

	for i := 0; i < len(tokens); i++ {
		if !isDatePart(tokens[i].Text) {
			continue
		}

		parts := []detector.Token{tokens[i]}
		for j := 1; j < 4 && i+j < len(tokens); j++ {
			if isDatePart(tokens[i+j].Text) {
				parts = append(parts, tokens[i+j])
			} else if len(parts) < 2 {
				break
			}
		}
		if len(parts) < 2 {
			continue
		}

		hasNumber := false
		hasName := false
		for _, p := range parts {
			if isNumericPart(p.Text) {
				hasNumber = true
			}
			if isMonthOrWeekday(p.Text) {
				hasName = true
			}
		}
		if !hasNumber || (!hasName && len(parts) < 3) {
			continue
		}

		start := parts[0].Start
		end := parts[len(parts)-1].End()
		entities = append(entities, detector.Entity{
			Text:  text[start:end],
			Type:  detector.TypeDateTime,
			Start: start,
			End:   end,
			Score: 1.0,
		})
		i += len(parts) - 1
	}

	return entities
}

// isDatePart reports whether a token could be part of a date: a German
// month or weekday name, or a number in a day/month/year range.
func isDatePart(tok string) bool {
	if isMonthOrWeekday(tok) {
		return true
	}
	return isNumericPart(tok)
}

func isMonthOrWeekday(tok string) bool {
	norm := strings.ToLower(strings.Trim(tok, ",.!?;: "))
	if _, ok := germanWeekdays[norm]; ok {
		return true
	}
	// Names stripped of trailing punctuation and dotted abbreviations
	// are both present in the lexicon.
	if _, ok := germanMonths[norm]; ok {
		return true
	}
	_, ok := germanMonths[strings.ToLower(strings.TrimRight(tok, ",!?;: "))]
	return ok
}

// isNumericPart reports whether a token reads as a day, month, two-digit
// or four-digit year once dots are stripped and OCR'd O is read as 0.
func isNumericPart(tok string) bool {
	norm := strings.Trim(tok, ",.!?;: ")
	norm = strings.NewReplacer("O", "0", "o", "0").Replace(norm)
	norm = strings.ReplaceAll(norm, ".", "")
	if norm == "" {
		return false
	}
	n, err := strconv.Atoi(norm)
	if err != nil {
		return false
	}
	return (n >= 1 && n <= 31) || (n >= 20 && n <= 99) || (n >= 1900 && n <= 2100)
}

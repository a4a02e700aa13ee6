// Copyright Medscrub Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package financial detects German financial and administrative
// identifiers: tax numbers, VAT IDs, IBAN/BIC, commercial-register and
// account numbers, and phone numbers in the many shapes OCR produces.
package financial

import (
	"regexp"
	"strings"

	"medscrub/internal/detector"
)

// financialPatterns covers labeled identifiers. Patterns containing
// uppercase letters (DE, BIC, HRB, ...) are compiled case-sensitively;
// matching them against lowercase prose would over-trigger badly.
var financialPatterns = []string{
	`St-Nr\.?\s*:?\s*[\d/]+`,
	`\b\d{2}/\d{3}/\d{5}\b`,
	`USt-IdNr\.?\s*:?\s*DE\d{9}`,
	`\bDE\d{9}\b`,
	`\bDE\d{2}[\s\d]{20,}\b`,
	`IBAN\s*:?\s*DE\d{2}[\s\d]{20,}`,
	`\b(?:BIC|SWIFT)\s*:?\s*[A-Z]{6}[A-Z0-9]{2}(?:[A-Z0-9]{3})?\b`,
	`HRB\s*:?\s*\d{1,6}`,
	`\bHRB\s*\d{1,6}\b`,
	`IK-Nr\.?\s*:?\s*\d{9}`,
	`Konto-?Nr\.?\s*:?\s*\d{4,12}`,
	`Kontonummer\s*:?\s*\d{4,12}`,
	`Ref(?:erenz)?[\-\.]?Nr\.?\s*:?\s*\d{4,15}`,
}

// phonePatterns covers German phone-number shapes, again tolerating the
// OCR O-for-0 confusion in the last group.
var phonePatterns = []string{
	`\+49[\s\-]?[1-9]\d{1,2}[\s\-]?\d{1,4}[\s\-]?\d{4,8}`,
	`0[1-9]\d{1,4}/\d{4,8}`,
	`\([0-9]\d{1,4}\)\s*\d{4,8}`,
	`0[1-9]\d{1,4}\s\d{3,4}\s\d{4}`,
	`0[1-9]\d{8,14}`,
	`\d{3,4}\-\d{4,8}`,
	`01[567]\d[\-\s]?\d{3,4}[\-\s]?\d{4}`,
	`01[567]\d\s\d{3}\s\d{4}`,
	`0[1-9]\d{1,4}\.\d{4,8}`,
	`\+49\(0\)\d{2,4}[\-\s]?\d{4,8}`,
	`040\s*[/\-]?\s*\d{5}\-?\d{1,4}`,
	`040[\-\s]?\d{3}[\-\s]?\d{3}[\-\s]?\d{0,3}`,
	`\d{2,5}\s*[/\-]?\s*\d{4,6}\-?\d{0,4}`,
	`\d{2,5}[\-\s/]?\d{2,3}[\-\s]?\d{2,3}[\-\s]?[O0\d]{2,3}`,
}

// Recognizer implements detector.Recognizer for FINANCIAL_ID spans.
type Recognizer struct {
	patterns []*regexp.Regexp

	// bicShape needs corroboration: a bare 8/11-char SWIFT code shape
	// matches too much ordinary uppercase text, so it only counts when
	// the document mentions BIC or SWIFT somewhere.
	bicShape *regexp.Regexp
}

// NewRecognizer compiles all patterns once. All matches score 1.0.
func NewRecognizer() *Recognizer {
	r := &Recognizer{
		bicShape: regexp.MustCompile(`\b[A-Z]{6}[A-Z0-9]{2}(?:[A-Z0-9]{3})?\b`),
	}
	for _, p := range append(append([]string{}, financialPatterns...), phonePatterns...) {
		if strings.ToLower(p) == p {
			p = `(?i)` + p
		}
		r.patterns = append(r.patterns, regexp.MustCompile(p))
	}
	return r
}

// Name implements detector.Recognizer.
func (r *Recognizer) Name() string { return "financial" }

// Detect implements detector.Recognizer.
func (r *Recognizer) Detect(text string) ([]detector.Entity, error) {
	var entities []detector.Entity

	for _, re := range r.patterns {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			match := text[loc[0]:loc[1]]
			if !containsIDChar(match) {
				continue
			}
			entities = append(entities, entity(match, loc[0], loc[1]))
		}
	}

	if strings.Contains(text, "BIC") || strings.Contains(text, "SWIFT") {
		for _, loc := range r.bicShape.FindAllStringIndex(text, -1) {
			entities = append(entities, entity(text[loc[0]:loc[1]], loc[0], loc[1]))
		}
	}

	entities = append(entities, detectConsecutiveNumbers(text)...)
	return entities, nil
}

func entity(match string, start, end int) detector.Entity {
	return detector.Entity{
		Text:  match,
		Type:  detector.TypeFinancialID,
		Start: start,
		End:   end,
		Score: 1.0,
	}
}

// containsIDChar filters out matches without a single digit or
// identifier separator; those are labels, not identifiers.
func containsIDChar(s string) bool {
	return strings.ContainsAny(s, "0123456789/:.-")
}

// detectConsecutiveNumbers merges runs of two or more short numeric
// groups ("040 23 45 678") into one FINANCIAL_ID span. Such runs are
// almost always phone numbers that the shape patterns miss.
func detectConsecutiveNumbers(text string) []detector.Entity {
	tokens := detector.Tokenize(text)
	var entities []detector.Entity

	for i := 0; i < len(tokens); i++ {
		if !isPhoneGroup(tokens[i].Text) {
			continue
		}

		run := []detector.Token{tokens[i]}
		for i+1 < len(tokens) && isPhoneGroup(tokens[i+1].Text) {
			i++
			run = append(run, tokens[i])
		}
		if len(run) < 2 {
			continue
		}

		start := run[0].Start
		end := run[len(run)-1].End()
		entities = append(entities, entity(text[start:end], start, end))
	}

	return entities
}

// isPhoneGroup reports whether a token is a 2-5 digit group once
// dashes and slashes are stripped and OCR'd O is read as 0. Tokens
// containing a dot are excluded; those are dates or decimals.
func isPhoneGroup(tok string) bool {
	if strings.Contains(tok, ".") {
		return false
	}
	cleaned := strings.NewReplacer("O", "0", "o", "0", "-", "", "/", "").Replace(tok)
	if len(cleaned) < 2 || len(cleaned) > 5 {
		return false
	}
	for _, c := range cleaned {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

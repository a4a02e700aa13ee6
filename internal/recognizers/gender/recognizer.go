// Copyright Medscrub Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package gender detects German gender-indicating words (Frau, Herr,
// Patientin, ...). Clinical letters rarely name patients more than once
// or twice, but they repeat gendered forms of address throughout.
package gender

import (
	"strings"

	"medscrub/internal/detector"
)

var genderWords = map[string]struct{}{
	"frau":         {},
	"frauen":       {},
	"mann":         {},
	"männer":       {},
	"herr":         {},
	"herrn":        {},
	"herren":       {},
	"dame":         {},
	"damen":        {},
	"fräulein":     {},
	"mädchen":      {},
	"junge":        {},
	"jungen":       {},
	"jugendliche":  {},
	"jugendlicher": {},
	"jugendlichen": {},
	"person":       {},
	"personen":     {},
}

// Recognizer implements detector.Recognizer for GENDER_WORD spans.
type Recognizer struct{}

// NewRecognizer returns a ready recognizer; the lexicon is static.
func NewRecognizer() *Recognizer { return &Recognizer{} }

// Name implements detector.Recognizer.
func (r *Recognizer) Name() string { return "gender" }

// Detect implements detector.Recognizer. Matching is per whole token
// after lowercasing and stripping trailing punctuation; the reported
// span always covers the full token including that punctuation, so
// replacing it never leaves a dangling comma fragment mid-word.
func (r *Recognizer) Detect(text string) ([]detector.Entity, error) {
	var entities []detector.Entity

	for _, tok := range detector.Tokenize(text) {
		norm := strings.ToLower(strings.TrimRight(tok.Text, ",.!?;:"))
		if _, ok := genderWords[norm]; !ok {
			continue
		}
		entities = append(entities, detector.Entity{
			Text:  tok.Text,
			Type:  detector.TypeGenderWord,
			Start: tok.Start,
			End:   tok.End(),
			Score: 1.0,
		})
	}

	return entities, nil
}

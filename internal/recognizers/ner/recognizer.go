// Copyright Medscrub Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ner

import (
	"context"
	"strings"

	"medscrub/internal/detector"
)

// labelTypes remaps the tagger's native labels onto output entity
// types. Labels without a mapping (MISC and friends) are dropped.
var labelTypes = map[string]detector.EntityType{
	"PER": detector.TypePerson,
	"LOC": detector.TypeLocation,
	"ORG": detector.TypeOrganization,
}

// whitelist holds known false positives of the German model on
// clinical text, mostly anatomical terms and mesh product names.
var whitelist = map[string]struct{}{
	"lichtenstein":      {},
	"fcds":              {},
	"n. ilioinguinalis": {},
	"n. ilioniguinalis": {},
	"n.":                {},
	"ilioinguinalis":    {},
	"dynamesh":          {},
	"endolap":           {},
	"dynamesh endolap":  {},
	"fk":                {},
	"urursf":            {},
	"lma":               {},
}

// Recognizer implements detector.Recognizer on top of a shared Model.
type Recognizer struct {
	model *Model
}

// NewRecognizer wraps the given model handle. The handle is shared, so
// callers construct it once and hand it to every recognizer instance.
func NewRecognizer(model *Model) *Recognizer {
	return &Recognizer{model: model}
}

// Name implements detector.Recognizer.
func (r *Recognizer) Name() string { return "ner" }

// Detect implements detector.Recognizer. Single-character spans and
// whitelisted terms are discarded; scores are the model's own.
func (r *Recognizer) Detect(text string) ([]detector.Entity, error) {
	spans, err := r.model.Tag(context.Background(), text)
	if err != nil {
		return nil, err
	}

	var entities []detector.Entity
	for _, s := range spans {
		if len(strings.TrimSpace(s.Text)) <= 1 {
			continue
		}
		if _, ok := whitelist[strings.ToLower(strings.TrimSpace(s.Text))]; ok {
			continue
		}
		typ, ok := labelTypes[s.Label]
		if !ok {
			continue
		}
		entities = append(entities, detector.Entity{
			Text:  s.Text,
			Type:  typ,
			Start: s.Start,
			End:   s.End,
			Score: s.Score,
		})
	}
	return entities, nil
}

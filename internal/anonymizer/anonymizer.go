// Copyright Medscrub Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package anonymizer runs the recognizer ensemble over a document text
// and splices placeholder tags over everything that must not leave the
// building.
package anonymizer

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"medscrub/internal/detector"
)

// DefaultThreshold is the minimum confidence a candidate must exceed
// (strictly) before it is redacted. Regex recognizers always score 1.0;
// the threshold only gates neural detections.
const DefaultThreshold = 0.7

// Result carries the redacted text together with the complete candidate
// list. Entities is unfiltered: sub-threshold and disabled-type
// candidates stay in for audit display, sorted by descending start.
// Applied is the subset that was actually spliced out, after threshold,
// type filtering and overlap resolution; the page redactor works from
// this list.
type Result struct {
	AnonymizedText string
	Entities       []detector.Entity
	Applied        []detector.Entity
}

// Engine orchestrates a fixed set of recognizers.
type Engine struct {
	recognizers []detector.Recognizer
	enabled     map[detector.EntityType]struct{}
	threshold   float64
	log         zerolog.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithThreshold overrides DefaultThreshold.
func WithThreshold(t float64) Option {
	return func(e *Engine) { e.threshold = t }
}

// WithEnabledTypes restricts which entity types get spliced out.
// Detection still runs for all types.
func WithEnabledTypes(types ...detector.EntityType) Option {
	return func(e *Engine) {
		e.enabled = make(map[detector.EntityType]struct{}, len(types))
		for _, t := range types {
			e.enabled[t] = struct{}{}
		}
	}
}

// WithLogger attaches a logger; the default is a no-op logger.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// NewEngine builds an Engine over the given recognizers. By default all
// entity types are enabled and the threshold is DefaultThreshold.
func NewEngine(recognizers []detector.Recognizer, opts ...Option) *Engine {
	e := &Engine{
		recognizers: recognizers,
		threshold:   DefaultThreshold,
		log:         zerolog.Nop(),
	}
	WithEnabledTypes(detector.AllTypes...)(e)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Anonymize runs every recognizer over the unmodified input text and
// splices "<TYPE>" over each accepted candidate, back to front so that
// earlier offsets stay valid. A failing recognizer is logged and
// skipped; the ensemble result is still produced from the rest.
func (e *Engine) Anonymize(text string) (Result, error) {
	var candidates []detector.Entity

	for _, r := range e.recognizers {
		entities, err := r.Detect(text)
		if err != nil {
			e.log.Warn().Err(err).Str("recognizer", r.Name()).
				Msg("recognizer failed, continuing without it")
			continue
		}
		for _, ent := range entities {
			if !ent.Valid(text) {
				e.log.Warn().Str("recognizer", r.Name()).Stringer("entity", ent).
					Msg("dropping entity with inconsistent offsets")
				continue
			}
			candidates = append(candidates, ent)
		}
	}

	// Last occurring first, so each splice leaves all earlier
	// candidates' offsets untouched.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Start > candidates[j].Start
	})

	applied := resolveOverlaps(e.accepted(candidates))
	anonymized := text
	for _, ent := range applied {
		anonymized = anonymized[:ent.Start] + placeholder(ent.Type) + anonymized[ent.End:]
	}

	return Result{AnonymizedText: anonymized, Entities: candidates, Applied: applied}, nil
}

// accepted filters candidates down to those the engine will actually
// redact: enabled type and score strictly above the threshold.
func (e *Engine) accepted(candidates []detector.Entity) []detector.Entity {
	var out []detector.Entity
	for _, ent := range candidates {
		if _, ok := e.enabled[ent.Type]; !ok {
			continue
		}
		if ent.Score <= e.threshold {
			continue
		}
		out = append(out, ent)
	}
	return out
}

// resolveOverlaps keeps at most one candidate per overlapping region.
// Splicing two overlapping spans independently would corrupt the text:
// the outer splice lands on offsets the inner one already shifted.
// Preference order: higher score, then longer span, then lower start.
// Input and output are sorted by descending start.
func resolveOverlaps(candidates []detector.Entity) []detector.Entity {
	if len(candidates) < 2 {
		return candidates
	}

	ranked := make([]detector.Entity, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.End-a.Start != b.End-b.Start {
			return a.End-a.Start > b.End-b.Start
		}
		return a.Start < b.Start
	})

	var kept []detector.Entity
	for _, cand := range ranked {
		overlaps := false
		for _, k := range kept {
			if cand.Start < k.End && k.Start < cand.End {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, cand)
		}
	}

	sort.Slice(kept, func(i, j int) bool { return kept[i].Start > kept[j].Start })
	return kept
}

func placeholder(t detector.EntityType) string {
	return fmt.Sprintf("<%s>", t)
}

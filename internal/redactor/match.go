// Copyright Medscrub Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package redactor maps detected entities and prediction quotes onto
// page coordinates and applies highlight or redaction boxes to the
// rasterized pages. The mapping runs as three small transforms: phrase
// text to word sequence, word sequence to pixel boxes, pixel boxes to
// point space.
package redactor

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"medscrub/internal/ocr"
)

// MaxPhraseWords caps how long a phrase may be before matching is
// refused outright. Without the cap a degenerate quote could scan the
// whole word map once per word.
const MaxPhraseWords = 100

// matchLookahead is how many page words may be skipped while chasing
// the next phrase word; minMatchRatio is the fraction of phrase words
// that must be found for an anchored candidate to count.
const (
	matchLookahead = 5
	minMatchRatio  = 0.7
)

// ErrPhraseTooLong rejects phrases above MaxPhraseWords; callers show
// a notice and leave the document untouched.
var ErrPhraseTooLong = errors.New("phrase exceeds maximum word count")

// PhraseWords tokenizes a phrase into normalized words, the unit the
// word-map search operates on.
func PhraseWords(phrase string) []string {
	var words []string
	for _, f := range strings.Fields(phrase) {
		if w := normalizeWord(f); w != "" {
			words = append(words, w)
		}
	}
	return words
}

// normalizeWord lowercases and strips surrounding punctuation so OCR
// output and predictor quotes compare on equal footing.
func normalizeWord(w string) string {
	return strings.ToLower(strings.Trim(w, `.,;:!?()"'`))
}

// FindPhrase locates a normalized phrase inside one page's word
// records and returns the indices of every matched word, ascending and
// deduplicated.
//
// Phrases of one or two words match each target word independently at
// its first occurrence, which tolerates reordering within short
// phrases. Longer phrases use an anchored sequential search: every
// occurrence of the first word starts a candidate, subsequent words
// are chased with a bounded lookahead (non-matches are skipped, not
// fatal), and a candidate is accepted when it matched at least
// minMatchRatio of the phrase. All accepted candidates contribute
// their matched words. No backtracking; this is a greedy heuristic,
// not an optimal aligner.
func FindPhrase(words []ocr.WordRecord, phrase []string) ([]int, error) {
	if len(phrase) > MaxPhraseWords {
		return nil, fmt.Errorf("%w: %d words", ErrPhraseTooLong, len(phrase))
	}
	if len(phrase) == 0 || len(words) == 0 {
		return nil, nil
	}

	if len(phrase) <= 2 {
		return matchShortPhrase(words, phrase), nil
	}

	seen := map[int]struct{}{}
	for anchor := range words {
		if normalizeWord(words[anchor].Text) != phrase[0] {
			continue
		}
		matched := matchFromAnchor(words, phrase, anchor)
		if float64(len(matched))/float64(len(phrase)) < minMatchRatio {
			continue
		}
		for _, idx := range matched {
			seen[idx] = struct{}{}
		}
	}

	return sortedIndices(seen), nil
}

func matchShortPhrase(words []ocr.WordRecord, phrase []string) []int {
	seen := map[int]struct{}{}
	for _, target := range phrase {
		for i := range words {
			if normalizeWord(words[i].Text) == target {
				seen[i] = struct{}{}
				break
			}
		}
	}
	return sortedIndices(seen)
}

func matchFromAnchor(words []ocr.WordRecord, phrase []string, anchor int) []int {
	matched := []int{anchor}
	pos := anchor
	for _, target := range phrase[1:] {
		for j := pos + 1; j <= pos+matchLookahead && j < len(words); j++ {
			if normalizeWord(words[j].Text) == target {
				matched = append(matched, j)
				pos = j
				break
			}
		}
	}
	return matched
}

func sortedIndices(seen map[int]struct{}) []int {
	if len(seen) == 0 {
		return nil
	}
	out := make([]int, 0, len(seen))
	for idx := range seen {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

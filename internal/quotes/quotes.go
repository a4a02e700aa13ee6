// Copyright Medscrub Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package quotes localizes prediction quotes inside the full document
// text. The predictor returns the passages it based each billing code
// on, but OCR noise means those passages rarely match the document
// verbatim; a sliding-window edit-distance search finds the best
// approximate span for each one.
package quotes

import (
	"sort"
	"strings"
)

// DefaultDistanceThreshold is the largest edit distance at which a
// window still counts as a match. Ten edits absorbs typical OCR noise
// (doubled letters, O/0 swaps) without latching onto unrelated text.
const DefaultDistanceThreshold = 10

// Quote is one passage to localize, carrying the label shown in the UI.
type Quote struct {
	Text  string
	Label string
}

// Segment is one piece of the annotated sequence. Matched segments
// carry the label of the quote that produced them; gap segments carry
// plain text only. Concatenating all segment texts in order yields the
// original document text exactly.
type Segment struct {
	Text    string
	Label   string
	Matched bool
}

// Localizer finds quote spans in document text.
type Localizer struct {
	distanceThreshold int
}

// NewLocalizer returns a Localizer using DefaultDistanceThreshold.
func NewLocalizer() *Localizer {
	return &Localizer{distanceThreshold: DefaultDistanceThreshold}
}

// NewLocalizerWithThreshold overrides the distance threshold, mainly
// for boundary tests.
func NewLocalizerWithThreshold(threshold int) *Localizer {
	return &Localizer{distanceThreshold: threshold}
}

type match struct {
	start, end int
	label      string
}

// Locate finds the best span for each quote fragment and returns the
// full text as an ordered, gap-filled segment sequence. Quotes that
// match nowhere within the distance threshold are silently omitted;
// if nothing matches at all, the whole text comes back as one
// unmatched segment.
func (l *Localizer) Locate(quoteList []Quote, fullText string) []Segment {
	// Newlines become spaces so windows can match across line breaks.
	// The replacement is length-preserving, so every index into the
	// normalized text is also a valid index into the original.
	normalized := normalize(fullText)

	var matches []match
	for _, q := range quoteList {
		for _, fragment := range cleanQuote(q.Text) {
			m, ok := l.bestWindow(normalize(fragment), normalized)
			if !ok {
				continue
			}
			m.label = q.Label
			matches = append(matches, m)
		}
	}

	if len(matches) == 0 {
		return []Segment{{Text: fullText}}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].start < matches[j].start })

	var segments []Segment
	pos := 0
	for _, m := range matches {
		// Later fragments can land inside an earlier match; clamp them
		// so the rebuilt sequence never repeats or drops text.
		if m.start < pos {
			m.start = pos
		}
		if m.end <= m.start {
			continue
		}
		if m.start > pos {
			segments = append(segments, Segment{Text: fullText[pos:m.start]})
		}
		segments = append(segments, Segment{
			Text:    fullText[m.start:m.end],
			Label:   m.label,
			Matched: true,
		})
		pos = m.end
	}
	if pos < len(fullText) {
		segments = append(segments, Segment{Text: fullText[pos:]})
	}
	return segments
}

// bestWindow slides a fragment-sized window across text and keeps the
// lowest-distance position. Only strict improvement replaces the
// running best, so ties resolve to the first occurrence.
func (l *Localizer) bestWindow(fragment, text string) (match, bool) {
	if len(fragment) == 0 || len(fragment) > len(text) {
		return match{}, false
	}

	bestDistance := l.distanceThreshold + 1
	best := match{start: -1}

	for i := 0; i+len(fragment) <= len(text); i++ {
		d := levenshtein(fragment, text[i:i+len(fragment)])
		if d < bestDistance {
			bestDistance = d
			best = match{start: i, end: i + len(fragment)}
			if d == 0 {
				break
			}
		}
	}
	if best.start < 0 {
		return match{}, false
	}

	// A window can cut a word in half; extend to the next space so the
	// highlighted span reads naturally.
	for best.end < len(text) && text[best.end] != ' ' {
		best.end++
	}
	return best, true
}

// cleanQuote splits a quote on newlines and on the literal elision
// marker "[...]" into independently-localizable fragments.
func cleanQuote(quote string) []string {
	var fragments []string
	for _, line := range strings.Split(quote, "\n") {
		for _, part := range strings.Split(line, "[...]") {
			part = strings.TrimSpace(part)
			if part != "" {
				fragments = append(fragments, part)
			}
		}
	}
	return fragments
}

func normalize(s string) string {
	out := []byte(s)
	for i := 0; i < len(out); i++ {
		if out[i] == '\n' || out[i] == '\r' {
			out[i] = ' '
		}
	}
	return string(out)
}

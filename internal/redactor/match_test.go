// Copyright Medscrub Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package redactor

import (
	"image"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medscrub/internal/ocr"
)

// pageWords builds a word map with deterministic boxes: word i sits at
// x = i*10.
func pageWords(texts ...string) []ocr.WordRecord {
	words := make([]ocr.WordRecord, 0, len(texts))
	for i, t := range texts {
		words = append(words, ocr.WordRecord{
			Text:       t,
			Box:        image.Rect(i*10, 0, i*10+8, 12),
			Confidence: 0.9,
		})
	}
	return words
}

func TestPhraseWords(t *testing.T) {
	assert.Equal(t,
		[]string{"schmerzen", "im", "knie"},
		PhraseWords("  Schmerzen im Knie. "))
	assert.Empty(t, PhraseWords("  ... "))
}

func TestFindPhraseShortMatchesIndependently(t *testing.T) {
	words := pageWords("Knie", "links", "Schmerzen", "im", "Knie")

	// Order in the phrase does not matter for short phrases; each word
	// matches its first occurrence on the page.
	idxs, err := FindPhrase(words, []string{"im", "knie"})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 3}, idxs)
}

func TestFindPhraseShortNoMatch(t *testing.T) {
	idxs, err := FindPhrase(pageWords("ganz", "anderer", "Text"), []string{"knie"})
	require.NoError(t, err)
	assert.Empty(t, idxs)
}

func TestFindPhraseAnchoredExact(t *testing.T) {
	words := pageWords("Der", "Patient", "berichtet", "über", "starke", "Schmerzen")
	idxs, err := FindPhrase(words, []string{"patient", "berichtet", "über", "starke"})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, idxs)
}

func TestFindPhraseAnchoredSkipsOCRNoise(t *testing.T) {
	// "xx" is OCR noise between phrase words; the lookahead skips it.
	words := pageWords("Patient", "xx", "berichtet", "xx", "xx", "über", "starke", "Schmerzen")
	idxs, err := FindPhrase(words, []string{"patient", "berichtet", "über", "starke", "schmerzen"})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 5, 6, 7}, idxs)
}

func TestFindPhraseAnchoredRatioBoundary(t *testing.T) {
	// 3 of 5 phrase words present: ratio 0.6, below 0.7, rejected.
	words := pageWords("alpha", "beta", "gamma")
	idxs, err := FindPhrase(words, []string{"alpha", "beta", "gamma", "delta", "epsilon"})
	require.NoError(t, err)
	assert.Empty(t, idxs)

	// 4 of 5 present: ratio 0.8, accepted.
	words = pageWords("alpha", "beta", "gamma", "delta")
	idxs, err = FindPhrase(words, []string{"alpha", "beta", "gamma", "delta", "epsilon"})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3}, idxs)
}

func TestFindPhraseLookaheadIsBounded(t *testing.T) {
	// "ende" sits six words after the anchor, one past the lookahead;
	// the remaining phrase words are still chased and found, so the
	// candidate passes the ratio at 3/4 without the unreachable word.
	words := pageWords("start", "x", "y", "a", "b", "c", "ende")
	idxs, err := FindPhrase(words, []string{"start", "ende", "x", "y"})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 2}, idxs)
	assert.NotContains(t, idxs, 6)
}

func TestFindPhraseRejectsOversized(t *testing.T) {
	phrase := make([]string, MaxPhraseWords+1)
	for i := range phrase {
		phrase[i] = "wort"
	}
	_, err := FindPhrase(pageWords("wort"), phrase)
	assert.ErrorIs(t, err, ErrPhraseTooLong)

	// Exactly at the cap is still allowed.
	_, err = FindPhrase(pageWords("wort"), phrase[:MaxPhraseWords])
	assert.NoError(t, err)
}

func TestFindPhraseEmpty(t *testing.T) {
	idxs, err := FindPhrase(pageWords("a"), nil)
	require.NoError(t, err)
	assert.Empty(t, idxs)

	idxs, err = FindPhrase(nil, []string{"a"})
	require.NoError(t, err)
	assert.Empty(t, idxs)
}

func TestNormalizeWord(t *testing.T) {
	assert.Equal(t, "knie", normalizeWord(`"Knie,"`))
	assert.Equal(t, "12.03.1980", normalizeWord("12.03.1980,"))
	assert.Equal(t, "", normalizeWord("..."))
	assert.Equal(t, strings.ToLower("ÜBER"), normalizeWord("ÜBER"))
}

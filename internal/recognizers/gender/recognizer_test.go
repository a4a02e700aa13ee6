// Copyright Medscrub Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package gender

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medscrub/internal/detector"
)

func detect(t *testing.T, text string) []detector.Entity {
	t.Helper()
	entities, err := NewRecognizer().Detect(text)
	require.NoError(t, err)
	return entities
}

func TestDetectGenderWords(t *testing.T) {
	entities := detect(t, "Sehr geehrte Frau Doktor, Herr Mustermann wartet")
	require.Len(t, entities, 2)
	assert.Equal(t, "Frau", entities[0].Text)
	assert.Equal(t, "Herr", entities[1].Text)
}

func TestDetectIsCaseInsensitive(t *testing.T) {
	entities := detect(t, "die FRAU und der mann")
	require.Len(t, entities, 2)
}

func TestSpanIncludesTrailingPunctuation(t *testing.T) {
	text := "Liebe Frau, bitte kommen Sie"
	entities := detect(t, text)
	require.Len(t, entities, 1)
	assert.Equal(t, "Frau,", entities[0].Text)
	assert.True(t, entities[0].Valid(text))
}

func TestNoSubstringMatches(t *testing.T) {
	// "Mannheim" and "Personal" contain gender words but are not ones.
	assert.Empty(t, detect(t, "verlegt nach Mannheim, das Personal ist informiert"))
}

func TestDeclinedForms(t *testing.T) {
	entities := detect(t, "mit Herrn Meier und der Jugendlichen")
	require.Len(t, entities, 2)
	assert.Equal(t, "Herrn", entities[0].Text)
	assert.Equal(t, "Jugendlichen", entities[1].Text)
}

func TestMetadata(t *testing.T) {
	text := "Die Person wurde entlassen"
	entities := detect(t, text)
	require.Len(t, entities, 1)
	assert.Equal(t, detector.TypeGenderWord, entities[0].Type)
	assert.Equal(t, 1.0, entities[0].Score)
	assert.True(t, entities[0].Valid(text))
}

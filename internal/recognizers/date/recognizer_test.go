// Copyright Medscrub Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package date

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

func texts(entities []detector.Entity) []string {
	out := make([]string, 0, len(entities))
	for _, e := range entities {
		out = append(out, e.Text)
	}
	return out
}

func TestDetectNumericFormats(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"geboren am 12.03.1980 in Berlin", "12.03.1980"},
		{"Befund vom 2023-11-05 liegt vor", "2023-11-05"},
		{"Kontrolle am 01.02.24 vereinbart", "01.02.24"},
		{"OP-Termin 3/12/2021 wurde verschoben", "3/12/2021"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Contains(t, texts(detect(t, tt.text)), tt.want)
		})
	}
}

func TestDetectOCRGarbledDate(t *testing.T) {
	// OCR frequently reads 0 as O.
	entities := detect(t, "aufgenommen am 12.O3.1980 nachts")
	assert.Contains(t, texts(entities), "12.O3.1980")
}

func TestDetectSplitDate(t *testing.T) {
	entities := detect(t, "Der Eingriff fand am Montag 12. März statt")
	assert.Contains(t, texts(entities), "Montag 12. März")
}

func TestDetectSplitDateNumbersOnly(t *testing.T) {
	// Three numeric parts suffice even without a month or weekday name.
	entities := detect(t, "Datum: 12 03 1980 Unterschrift")
	assert.Contains(t, texts(entities), "12 03 1980")
}

func TestSplitDateRequiresNumber(t *testing.T) {
	// Two name tokens without any number are not a date.
	for _, e := range detect(t, "Montag Dienstag Sprechstunde") {
		assert.NotEqual(t, "Montag Dienstag", e.Text)
	}
}

func TestNoFalsePositiveOnPlainText(t *testing.T) {
	assert.Empty(t, detect(t, "Der Patient berichtet über Schmerzen im Knie"))
}

func TestOffsetsValid(t *testing.T) {
	text := "am 12.03.1980 und erneut am Montag 12. März je 10 Uhr"
	for _, e := range detect(t, text) {
		assert.True(t, e.Valid(text), "entity %v has inconsistent offsets", e)
		assert.Equal(t, detector.TypeDateTime, e.Type)
		assert.Equal(t, 1.0, e.Score)
	}
}

func TestIsNumericPart(t *testing.T) {
	assert.True(t, isNumericPart("12."))
	assert.True(t, isNumericPart("1980"))
	assert.True(t, isNumericPart("O3")) // OCR O -> 0
	assert.True(t, isNumericPart("32")) // reads as a two-digit year
	assert.False(t, isNumericPart("0"))
	assert.False(t, isNumericPart("150"))
	assert.False(t, isNumericPart("Knie"))
}

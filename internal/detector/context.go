// Copyright Medscrub Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detector

// ContextRadius is how many bytes of surrounding text Context shows on
// each side of an entity.
const ContextRadius = 40

// Context returns the text surrounding an entity for audit display,
// clipped to whitespace so the snippet never starts or ends mid-word.
// An entity with inconsistent offsets yields an empty string.
func Context(text string, e Entity) string {
	if !e.Valid(text) {
		return ""
	}

	start := e.Start - ContextRadius
	if start < 0 {
		start = 0
	}
	end := e.End + ContextRadius
	if end > len(text) {
		end = len(text)
	}

	for start > 0 && !isSpace(text[start-1]) {
		start--
	}
	for end < len(text) && !isSpace(text[end]) {
		end++
	}
	return text[start:end]
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

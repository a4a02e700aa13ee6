// Copyright Medscrub Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detector

import "fmt"

// EntityType identifies the category of a detected entity.
type EntityType string

// Entity types surfaced to collaborators (engine, redactor, UI).
const (
	TypeLocation     EntityType = "LOCATION"
	TypePerson       EntityType = "PERSON"
	TypeOrganization EntityType = "ORGANIZATION"
	TypeDateTime     EntityType = "DATE_TIME"
	TypeGenderWord   EntityType = "GENDER_WORD"
	TypeIDNumber     EntityType = "ID_NUMBER"
	TypeFinancialID  EntityType = "FINANCIAL_ID"
)

// AllTypes lists every entity type in a stable order.
var AllTypes = []EntityType{
	TypeLocation,
	TypePerson,
	TypeOrganization,
	TypeDateTime,
	TypeGenderWord,
	TypeIDNumber,
	TypeFinancialID,
}

// Entity represents one detected sensitive span in a text.
// Start and End are half-open byte offsets into the exact text the
// entity was detected on, so text[Start:End] == Text always holds.
type Entity struct {
	Text  string
	Type  EntityType
	Start int
	End   int
	Score float64
}

// Valid reports whether the entity's offsets are consistent with text.
func (e Entity) Valid(text string) bool {
	if e.Start < 0 || e.End <= e.Start || e.End > len(text) {
		return false
	}
	return text[e.Start:e.End] == e.Text
}

// String implements fmt.Stringer for log output. The span text itself is
// deliberately omitted; entities are sensitive by definition.
func (e Entity) String() string {
	return fmt.Sprintf("%s[%d:%d] score=%.2f", e.Type, e.Start, e.End, e.Score)
}

// Recognizer detects entity candidates of one category in raw text.
// Implementations must be pure functions of their input: they are run
// concurrently over many documents and must not mutate shared state.
// A recognizer returning an error never aborts the ensemble; the engine
// logs the failure and continues with the remaining recognizers.
type Recognizer interface {
	// Name returns a short identifier used in logs.
	Name() string

	// Detect scans text and returns all entity candidates found.
	// An empty result is not an error.
	Detect(text string) ([]Entity, error)
}

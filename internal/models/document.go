package models

import (
	"time"
)

// Disposition represents the top-level lifecycle phase of a document in
// the editorial pipeline.
type Disposition string

const (
	DispositionCreated    Disposition = "created"
	DispositionInProgress Disposition = "in_progress"
	DispositionPublished  Disposition = "published"
	DispositionWithdrawn  Disposition = "withdrawn"
)

// Terminal reports whether the disposition is final. A published or
// withdrawn document is immutable.
func (d Disposition) Terminal() bool {
	return d == DispositionPublished || d == DispositionWithdrawn
}

// Label slugs with gating meaning. Labels are an open set; only these
// participate in blocking decisions.
const (
	LabelStreamHold          = "Stream Hold"
	LabelExtRefHold          = "ExtRef Hold"
	LabelAuthorInputRequired = "Author Input Required"
	LabelIANAHold            = "IANA Hold"
	LabelToolsIssue          = "Tools Issue"
)

// RfcToBe represents a document moving through the production pipeline
type RfcToBe struct {
	ID          int64       `json:"id" db:"id"`
	DraftName   string      `json:"draft_name" db:"draft_name"`
	RfcNumber   *int        `json:"rfc_number,omitempty" db:"rfc_number"`
	Title       string      `json:"title" db:"title"`
	Disposition Disposition `json:"disposition" db:"disposition"`
	Labels      []string    `json:"labels,omitempty" db:"-"`
	PublishedAt *time.Time  `json:"published_at,omitempty" db:"published_at"`
	StdLevel    string      `json:"std_level,omitempty" db:"std_level"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}

// IsAprilFirst reports whether the document was published on April 1st.
// Those entries carry a day-precision date in the text index.
func (r *RfcToBe) IsAprilFirst() bool {
	return r.PublishedAt != nil && r.PublishedAt.Month() == time.April && r.PublishedAt.Day() == 1
}

// HasLabel reports whether the document currently carries the label
func (r *RfcToBe) HasLabel(slug string) bool {
	for _, l := range r.Labels {
		if l == slug {
			return true
		}
	}
	return false
}

// Person is someone who can hold editorial assignments
type Person struct {
	ID    int64  `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Email string `json:"email" db:"email"`
}

// UnusableRfcNumber is a number that will never be issued; it still
// appears in the published index as "Not Issued."
type UnusableRfcNumber struct {
	Number  int    `json:"number" db:"number"`
	Comment string `json:"comment,omitempty" db:"comment"`
}

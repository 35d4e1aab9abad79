package model

import (
	"strings"
	"time"
)

// WildcardMarker terminates a prefix-matching rule source, e.g. "/blog/*".
const WildcardMarker = "*"

var redirectStatusCodes = map[int]struct{}{
	301: {}, 302: {}, 304: {}, 307: {}, 308: {},
}

func ValidRedirectStatusCode(code int) bool {
	_, ok := redirectStatusCodes[code]
	return ok
}

type Redirect struct {
	ID              int64     `json:"id"`
	Source          string    `json:"source"`
	Destination     string    `json:"destination"`
	Domain          *string   `json:"domain"`
	StatusCode      int       `json:"status_code"`
	Enabled         bool      `json:"enabled"`
	IsCaseSensitive bool      `json:"is_case_sensitive"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	// Derived from Source on every write: the literal prefix before the
	// first wildcard marker, and the raw source length used for
	// longest-match ordering.
	SourcePrefix string `json:"-"`
	SourceLength int    `json:"-"`
}

// RuleMatch is the slice of a rule the public resolution path needs.
type RuleMatch struct {
	Source      string
	Destination string
	Domain      *string
	StatusCode  int
}

// SourceIndex computes the derived indexing fields for a rule source.
func SourceIndex(source string) (prefix string, length int) {
	if i := strings.Index(source, WildcardMarker); i >= 0 {
		return source[:i], len(source)
	}
	return source, len(source)
}

// RedirectPatch carries a partial update; nil fields are untouched.
type RedirectPatch struct {
	Source          *string `json:"source"`
	Destination     *string `json:"destination"`
	Domain          *string `json:"domain"`
	StatusCode      *int    `json:"status_code"`
	Enabled         *bool   `json:"enabled"`
	IsCaseSensitive *bool   `json:"is_case_sensitive"`
}

// BatchUpdateResult reports the outcome of one item of a batch update.
type BatchUpdateResult struct {
	ID       int64     `json:"id"`
	Updated  bool      `json:"updated"`
	Error    string    `json:"error,omitempty"`
	Redirect *Redirect `json:"redirect,omitempty"`
}

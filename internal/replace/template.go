// Package replace applies regex search/replace rules to release-related
// files such as changelogs and badges.
package replace

import (
	"strings"
	"time"
)

// Template tokens. They are literal and case-sensitive.
const (
	TokenPrevVersion  = "{{prev_version}}"
	TokenPrevMetadata = "{{prev_metadata}}"
	TokenVersion      = "{{version}}"
	TokenMetadata     = "{{metadata}}"
	TokenCrateName    = "{{crate_name}}"
	TokenDate         = "{{date}}"
	TokenPrefix       = "{{prefix}}"
	TokenTagName      = "{{tag_name}}"
)

// Template holds the values substituted into replacement text. A nil field
// leaves its token in place; a pointer to "" substitutes the empty string.
type Template struct {
	PrevVersion  *string
	PrevMetadata *string
	Version      *string
	Metadata     *string
	CrateName    *string
	Date         *string
	Prefix       *string
	TagName      *string
}

// Value returns a pointer to s for building a Template.
func Value(s string) *string { return &s }

// Render substitutes every set token in input. Tokens are replaced one kind
// at a time in a fixed order; unknown tokens pass through unchanged.
func (t Template) Render(input string) string {
	s := input
	for _, sub := range []struct {
		token string
		value *string
	}{
		{TokenPrevVersion, t.PrevVersion},
		{TokenPrevMetadata, t.PrevMetadata},
		{TokenVersion, t.Version},
		{TokenMetadata, t.Metadata},
		{TokenCrateName, t.CrateName},
		{TokenDate, t.Date},
		{TokenPrefix, t.Prefix},
		{TokenTagName, t.TagName},
	} {
		if sub.value != nil {
			s = strings.ReplaceAll(s, sub.token, *sub.value)
		}
	}
	return s
}

// Today formats now as the {{date}} value (UTC, YYYY-MM-DD).
func Today(now time.Time) string {
	return now.UTC().Format(time.DateOnly)
}

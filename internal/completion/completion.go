// Package completion suggests SQL keywords, tables, columns and operators
// from the text before the cursor.
//
// It is a lexical classifier, not a parser: each rule matches a local pattern
// at the end of the text before the cursor and the first matching rule wins.
// Malformed or half-typed SQL is therefore never an error; when no rule
// matches there is simply nothing to suggest.
package completion

import (
	"strings"
	"unicode"

	"github.com/calebcauthon/sqlee/internal/catalog"
)

// Kind classifies a suggestion.
type Kind int

// Suggestion kinds.
const (
	Keyword Kind = iota
	Table
	Field
	Function
	Operator
	Type
)

func (k Kind) String() string {
	switch k {
	case Keyword:
		return "keyword"
	case Table:
		return "table"
	case Field:
		return "field"
	case Function:
		return "function"
	case Operator:
		return "operator"
	case Type:
		return "type"
	}
	return "unknown"
}

// Suggestion is one completion candidate.
type Suggestion struct {
	Label  string
	Kind   Kind
	Detail string
}

// Completion is the result of a matching rule. Rule names the position that
// matched. From is the rune offset where the partial word under the cursor
// starts; accepting a suggestion replaces the text between From and the
// cursor. Items are in display order.
type Completion struct {
	Rule  string
	From  int
	Items []Suggestion
}

// Context is the part of the document a rule looks at.
type Context struct {
	Before   string
	Explicit bool
}

// NewContext cuts text at the rune offset, clamped to the text bounds.
func NewContext(text string, offset int, explicit bool) Context {
	r := []rune(text)
	if offset < 0 {
		offset = 0
	}
	if offset > len(r) {
		offset = len(r)
	}
	return Context{Before: string(r[:offset]), Explicit: explicit}
}

// Suggest returns the suggestions for the cursor at rune offset in text.
// The boolean is false when no rule applies.
func Suggest(text string, offset int, explicit bool, cat catalog.Catalog) (Completion, bool) {
	ctx := NewContext(text, offset, explicit)
	for _, r := range rules {
		if !r.match(ctx) {
			continue
		}
		return Completion{Rule: r.name, From: wordStart(ctx.Before), Items: r.build(cat)}, true
	}
	return Completion{}, false
}

// Filter keeps the items whose label starts with prefix, ignoring case.
func Filter(items []Suggestion, prefix string) []Suggestion {
	if prefix == "" {
		return items
	}
	p := strings.ToLower(prefix)
	var out []Suggestion
	for _, it := range items {
		if strings.HasPrefix(strings.ToLower(it.Label), p) {
			out = append(out, it)
		}
	}
	return out
}

// wordStart returns the rune offset of the trailing run of word characters.
func wordStart(before string) int {
	r := []rune(before)
	i := len(r)
	for i > 0 && isWord(r[i-1]) {
		i--
	}
	return i
}

// isWord matches the regexp \w class, which is ASCII only.
func isWord(r rune) bool {
	return r < unicode.MaxASCII && (r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r))
}

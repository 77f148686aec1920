// Package match implements the pattern matchers the filtering engine
// evaluates rules with. Matchers are pure: one pattern against one
// pre-derived search text, no shared state.
package match

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind identifies a pattern-matching algorithm.
type Kind string

const (
	KindKeyword  Kind = "keyword"
	KindRegex    Kind = "regex"
	KindWildcard Kind = "wildcard"
	KindFuzzy    Kind = "fuzzy"
)

// Field selects which part of an item a pattern is matched against.
type Field string

const (
	FieldTitle       Field = "title"
	FieldChannel     Field = "channel"
	FieldDescription Field = "description"
	FieldTags        Field = "tags"
	FieldAll         Field = "all"
)

// Fixed confidence per algorithm. Fuzzy derives its confidence from the
// similarity instead.
const (
	keywordConfidence  = 85
	regexConfidence    = 90
	wildcardConfidence = 80
)

// Result is the outcome of evaluating one pattern against one text.
// Confidence is a heuristic score in [0,100], not a probability.
type Result struct {
	Matched    bool
	Confidence int
	Reason     string
}

// Fields holds the raw item fields search text is derived from.
type Fields struct {
	Title       string
	Channel     string
	Description string
	Tags        []string
}

// SearchText derives the lowercased text a pattern is matched against.
// Missing fields contribute the empty string, never a nil deref.
func SearchText(field Field, f Fields) string {
	switch field {
	case FieldTitle:
		return strings.ToLower(f.Title)
	case FieldChannel:
		return strings.ToLower(f.Channel)
	case FieldDescription:
		return strings.ToLower(f.Description)
	case FieldTags:
		return strings.ToLower(strings.Join(f.Tags, " "))
	case FieldAll:
		parts := []string{f.Title, f.Channel, f.Description, strings.Join(f.Tags, " ")}
		return strings.ToLower(strings.Join(parts, " "))
	default:
		return strings.ToLower(f.Title)
	}
}

// Evaluate dispatches to the matcher for kind. A compile error from the
// regex or wildcard matchers is returned so the caller can log it per
// rule; the accompanying Result is always a safe no-match.
func Evaluate(kind Kind, pattern, text string, caseSensitive bool) (Result, error) {
	switch kind {
	case KindKeyword:
		return Keyword(pattern, text), nil
	case KindRegex:
		return Regex(pattern, text, caseSensitive)
	case KindWildcard:
		return Wildcard(pattern, text, caseSensitive)
	case KindFuzzy:
		return Fuzzy(pattern, text), nil
	default:
		return Result{}, fmt.Errorf("unknown pattern kind %q", kind)
	}
}

// Keyword matches if any comma-separated keyword occurs in the text as
// a substring. Always case-insensitive.
func Keyword(pattern, text string) Result {
	lowered := strings.ToLower(text)
	for _, raw := range strings.Split(pattern, ",") {
		kw := strings.ToLower(strings.TrimSpace(raw))
		if kw == "" {
			continue
		}
		if strings.Contains(lowered, kw) {
			return Result{
				Matched:    true,
				Confidence: keywordConfidence,
				Reason:     fmt.Sprintf("keyword %q found", kw),
			}
		}
	}
	return Result{}
}

// Regex matches the text against pattern. Case-insensitive unless
// caseSensitive is set.
func Regex(pattern, text string, caseSensitive bool) (Result, error) {
	expr := pattern
	if !caseSensitive {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return Result{}, fmt.Errorf("compile regex %q: %w", pattern, err)
	}
	if re.MatchString(text) {
		return Result{
			Matched:    true,
			Confidence: regexConfidence,
			Reason:     fmt.Sprintf("regex %q matched", pattern),
		}, nil
	}
	return Result{}, nil
}

// Wildcard translates glob syntax (* and ?) to a regexp anchored to the
// full text and matches against it.
func Wildcard(pattern, text string, caseSensitive bool) (Result, error) {
	expr := translateGlob(pattern)
	if !caseSensitive {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return Result{}, fmt.Errorf("compile wildcard %q: %w", pattern, err)
	}
	if re.MatchString(text) {
		return Result{
			Matched:    true,
			Confidence: wildcardConfidence,
			Reason:     fmt.Sprintf("wildcard %q matched", pattern),
		}, nil
	}
	return Result{}, nil
}

// translateGlob quotes everything except * and ?, which become .* and .
// respectively, and anchors the expression to the whole string.
func translateGlob(pattern string) string {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return b.String()
}

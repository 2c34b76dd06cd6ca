package feed

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const maxKeywordLength = 200

// A keyword occurrence must not touch a letter, mark, digit or underscore on
// either side. RE2's \b only knows ASCII word characters.
const (
	wordBefore = `(?:^|[^\p{L}\p{M}\p{N}_])`
	wordAfter  = `(?:$|[^\p{L}\p{M}\p{N}_])`
)

var (
	ErrEmptyKeyword   = errors.New("keyword is empty")
	ErrInvalidKeyword = errors.New("keyword is not valid UTF-8")
	ErrKeywordTooLong = errors.New("keyword is too long")
)

type pattern struct {
	keyword Keyword
	re      *regexp.Regexp
}

// Matcher holds the compiled whole-word patterns of one keyword set.
type Matcher struct {
	patterns []pattern
}

// NewMatcher compiles keywords in the given order. Keywords that cannot be
// compiled are logged and left out.
func NewMatcher(keywords []Keyword) *Matcher {
	m := &Matcher{patterns: make([]pattern, 0, len(keywords))}

	for _, keyword := range keywords {
		re, err := CompileKeyword(keyword.Word)
		if err != nil {
			slog.Warn("Skipping keyword", "keyword_id", keyword.ID, "word", keyword.Word, "error", err)
			continue
		}
		m.patterns = append(m.patterns, pattern{keyword: keyword, re: re})
	}

	return m
}

// CompileKeyword builds the case-insensitive whole-word pattern for word.
func CompileKeyword(word string) (*regexp.Regexp, error) {
	if !utf8.ValidString(word) {
		return nil, ErrInvalidKeyword
	}

	word = norm.NFC.String(strings.TrimSpace(word))
	if word == "" {
		return nil, ErrEmptyKeyword
	}
	if utf8.RuneCountInString(word) > maxKeywordLength {
		return nil, ErrKeywordTooLong
	}

	re, err := regexp.Compile(`(?i)` + wordBefore + regexp.QuoteMeta(word) + wordAfter)
	if err != nil {
		return nil, fmt.Errorf("failed to compile pattern: %w", err)
	}

	return re, nil
}

func (m *Matcher) Len() int {
	return len(m.patterns)
}

// Match returns the keywords found in title or content, in compile order.
func (m *Matcher) Match(title, content string) []Keyword {
	if len(m.patterns) == 0 {
		return nil
	}

	title = norm.NFC.String(title)
	content = norm.NFC.String(content)

	var matched []Keyword
	for _, p := range m.patterns {
		if p.re.MatchString(title) || p.re.MatchString(content) {
			matched = append(matched, p.keyword)
		}
	}

	return matched
}

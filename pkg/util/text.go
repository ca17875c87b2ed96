package util

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Words is lower-cased text reduced to single-space separated tokens and
// padded with a space on both ends, so phrase lookups only match whole words.
type Words string

func Tokenize(s string) Words {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(fields) == 0 {
		return " "
	}
	return Words(" " + strings.Join(fields, " ") + " ")
}

// Has reports whether phrase occurs as a sequence of whole words.
func (w Words) Has(phrase string) bool {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return false
	}
	return strings.Contains(string(w), " "+phrase+" ")
}

func (w Words) HasAny(phrases ...string) bool {
	return w.First(phrases...) != ""
}

// First returns the first of phrases, in argument order, that w contains.
func (w Words) First(phrases ...string) string {
	for _, p := range phrases {
		if w.Has(p) {
			return p
		}
	}
	return ""
}

// After returns the token right after the first occurrence of word.
func (w Words) After(word string) (string, bool) {
	idx := strings.Index(string(w), " "+word+" ")
	if idx < 0 {
		return "", false
	}
	rest := strings.Fields(string(w)[idx+len(word)+2:])
	if len(rest) == 0 {
		return "", false
	}
	return rest[0], true
}

func (w Words) String() string {
	return strings.TrimSpace(string(w))
}

// Capitalize upper-cases the first letter and lower-cases the rest.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// Answer cleans a transcribed reply: surrounding spaces and sentence
// punctuation go, the first letter is capitalized.
func Answer(s string) string {
	return Capitalize(strings.Trim(s, " .?!"))
}

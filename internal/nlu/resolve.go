package nlu

import (
	"regexp"
	"strings"

	"voxcal/internal/calendar"
	"voxcal/pkg/util"
)

var ordinals = []string{
	"first", "second", "third", "fourth", "fifth",
	"sixth", "seventh", "eighth", "ninth", "tenth",
}

var explicitTitle = []*regexp.Regexp{titledRe, calledRe, regexp.MustCompile(`\bnamed\b`)}

// Resolve maps a spoken reference onto the title of an appointment in list.
// Priority: ordinal word, "last", "previous"/"recently", an explicit
// "titled|called|named X", then any listed title contained in the text.
// An explicit title is returned as spoken, without checking the list.
func Resolve(text string, list []calendar.Appointment, lastCreated string) (string, bool) {
	text = strings.ToLower(text)
	w := util.Tokenize(text)

	for i, word := range ordinals {
		if !w.Has(word) {
			continue
		}
		if i < len(list) && list[i].Title != "" {
			return list[i].Title, true
		}
		return "", false
	}

	if w.Has("last") {
		if len(list) == 0 {
			return "", false
		}
		return list[len(list)-1].Title, true
	}

	if w.HasAny("previous", "recently") {
		if lastCreated != "" {
			for _, a := range list {
				if a.Title == lastCreated {
					return lastCreated, true
				}
			}
		}
		if len(list) == 0 {
			return "", false
		}
		return list[len(list)-1].Title, true
	}

	for _, re := range explicitTitle {
		loc := re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		if title := util.Answer(text[loc[1]:]); title != "" {
			return title, true
		}
	}

	for _, a := range list {
		title := strings.ToLower(strings.TrimSpace(a.Title))
		if title != "" && strings.Contains(text, title) {
			return a.Title, true
		}
	}
	return "", false
}

package nlu

import (
	"regexp"
	"strings"
	"time"

	"voxcal/pkg/util"
)

const (
	DefaultTitle    = "New Meeting"
	DefaultLocation = "Not specified"
)

var leadingNoise = map[string]bool{
	"create": true, "add": true, "new": true, "appointment": true, "meeting": true,
	"schedule": true, "event": true, "reminder": true, "an": true, "a": true,
}

var (
	dateWordRe   = regexp.MustCompile(`\b(` + strings.Join(append(append(append([]string{}, months...), weekdayNames...), relativeDates...), "|") + `)\b`)
	titleNoiseRe = regexp.MustCompile(`\b(on|for|the|of|\d+st|\d+nd|\d+rd|\d+th|\d+)\b`)
	titledRe     = regexp.MustCompile(`\btitled\b`)
	calledRe     = regexp.MustCompile(`\bcalled\b`)
	leadingDigit = regexp.MustCompile(`^\d`)
)

// Draft is a new appointment assembled from a single utterance.
type Draft struct {
	Title    string
	Location string
	Date     Date
}

func (d Draft) Start() string { return d.Date.Start() }
func (d Draft) End() string   { return d.Date.End() }

// ParseAppointment builds a Draft from a create command.
func ParseAppointment(text string, today time.Time) Draft {
	title, location := Segment(text)
	date, _ := ExtractDate(text, today)
	return Draft{Title: title, Location: location, Date: date}
}

// Segment splits a create command into title and location around the word
// "at". An explicit "titled X" or "called X" takes precedence for the title.
func Segment(text string) (title, location string) {
	words := strings.Fields(NormalizeNumbers(strings.ToLower(text)))
	for len(words) > 0 && leadingNoise[words[0]] {
		words = words[1:]
	}
	text = strings.Join(words, " ")

	if loc := titledRe.FindStringIndex(text); loc != nil {
		text = strings.TrimSpace(text[loc[1]:])
	} else if loc := calledRe.FindStringIndex(text); loc != nil {
		text = strings.TrimSpace(text[loc[1]:])
	}

	parts := strings.Split(text, " at ")
	title = cleanTitle(parts[0])

	location = DefaultLocation
	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		if dateWordRe.MatchString(part) || leadingDigit.MatchString(part) {
			continue
		}
		part = strings.TrimSpace(strings.TrimPrefix(part, "the "))
		part = strings.TrimRight(part, ".?!,;:")
		if part != "" {
			location = util.Capitalize(part)
		}
	}
	return title, location
}

func cleanTitle(s string) string {
	s = dateWordRe.ReplaceAllString(s, "")
	s = titleNoiseRe.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")
	s = strings.TrimSpace(strings.TrimRight(s, ".?!,;:"))
	if s == "" {
		return DefaultTitle
	}
	return util.Capitalize(s)
}

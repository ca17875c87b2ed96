package nlu

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"voxcal/pkg/util"
)

var months = []string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

var weekdays = map[string]time.Weekday{
	"monday": time.Monday, "tuesday": time.Tuesday, "wednesday": time.Wednesday,
	"thursday": time.Thursday, "friday": time.Friday, "saturday": time.Saturday,
	"sunday": time.Sunday,
}

// Checked in this order.
var weekdayNames = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

var relativeDates = []string{"tomorrow", "today", "next"}

var (
	dayBeforeRe = regexp.MustCompile(`(\d+)(?:st|nd|rd|th)?(?:\s+of)?\s*$`)
	dayAfterRe  = regexp.MustCompile(`^\s*(\d+)`)
)

// Date is a calendar day as spoken, not normalized: the default "tomorrow"
// is today's day-of-month plus one and may run past the end of the month.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Start is 10:00 on the day.
func (d Date) Start() string {
	return d.String() + "T10:00"
}

// End is 11:00 on the day.
func (d Date) End() string {
	return d.String() + "T11:00"
}

func dateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// ExtractDate finds the date an utterance refers to, relative to today. The
// first signal wins: a weekday, then a month, then tomorrow/today. It also
// returns the word that decided, or "" when the default was used.
func ExtractDate(text string, today time.Time) (Date, string) {
	w := util.Tokenize(NormalizeNumbers(strings.ToLower(text)))
	fallback := Date{Year: today.Year(), Month: today.Month(), Day: today.Day() + 1}

	if name := w.First(weekdayNames...); name != "" {
		ahead := int(weekdays[name] - today.Weekday())
		if ahead <= 0 {
			ahead += 7
		}
		if w.Has("next " + name) {
			ahead += 7
		}
		return dateOf(today.AddDate(0, 0, ahead)), name
	}

	if name := w.First(months...); name != "" {
		month := monthNumber(name)
		d := Date{Year: today.Year(), Month: month, Day: fallback.Day}
		s := string(w)
		idx := strings.Index(s, " "+name+" ")
		if m := dayBeforeRe.FindStringSubmatch(s[:idx]); m != nil {
			d.Day, _ = strconv.Atoi(m[1])
		} else if m := dayAfterRe.FindStringSubmatch(s[idx+len(name)+1:]); m != nil {
			d.Day, _ = strconv.Atoi(m[1])
		}
		if month < today.Month() {
			d.Year++
		}
		return d, name
	}

	switch rel := w.First(relativeDates...); rel {
	case "tomorrow":
		return dateOf(today.AddDate(0, 0, 1)), rel
	case "today":
		return dateOf(today), rel
	case "next":
		return fallback, rel
	}
	return fallback, ""
}

func monthNumber(name string) time.Month {
	for i, m := range months {
		if m == name {
			return time.Month(i + 1)
		}
	}
	return 0
}

package weather

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"voxcal/pkg/util"
)

// Conditions as the forecast service names them.
var conditions = []string{
	"clear sky", "few clouds", "scattered clouds", "broken clouds",
	"shower rain", "rain", "thunderstorm", "snow", "mist",
}

// Spoken words mapped onto service conditions, checked in this order.
var synonyms = []struct {
	word, condition string
}{
	{"thunder", "thunderstorm"},
	{"storm", "thunderstorm"},
	{"lightning", "thunderstorm"},
	{"raining", "rain"},
	{"rainy", "rain"},
	{"drizzle", "shower rain"},
	{"snowing", "snow"},
	{"snowy", "snow"},
	{"sunny", "clear sky"},
	{"clear", "clear sky"},
	{"cloudy", "scattered clouds"},
	{"fog", "mist"},
	{"misty", "mist"},
}

var triggers = []string{
	"weather", "wether", "rain", "forecast", "temperature", "hot", "cold",
	"tomorrow", "today", "next", "yesterday", "about",
}

var nextDaysRe = regexp.MustCompile(`\bnext (\d+) days\b`)

// Mentions reports whether the utterance looks like a weather question.
func Mentions(w util.Words) bool {
	if w.HasAny(triggers...) || w.HasAny(conditions...) {
		return true
	}
	for _, s := range synonyms {
		if w.Has(s.word) {
			return true
		}
	}
	return false
}

// DayIndex picks the forecast day the utterance refers to. Yesterday yields
// -1, which callers treat as "no data" and keep their current index.
func DayIndex(text string, days []Day, current int) int {
	w := util.Tokenize(text)
	switch {
	case w.Has("yesterday"):
		return -1
	case w.Has("day after tomorrow"):
		return 2
	case w.Has("tomorrow"):
		return 1
	case w.Has("today"):
		return 0
	}
	for i, d := range days {
		if name := strings.ToLower(strings.TrimSpace(d.Name)); name != "" && w.Has(name) {
			return i
		}
	}
	if w.Has("next") && w.Has("days") {
		return 0
	}
	return current
}

// Summarize answers the utterance from the forecast, starting at day start.
// Number words in text must already be digits.
func Summarize(days []Day, text, city string, start int) string {
	if len(days) == 0 {
		return fmt.Sprintf("I couldn't find weather data for %s.", city)
	}
	if start < 0 || start >= len(days) {
		start = 0
	}
	w := util.Tokenize(text)

	if m := nextDaysRe.FindStringSubmatch(w.String()); m != nil {
		requested, _ := strconv.Atoi(m[1])
		return multiDay(days, city, start, requested)
	}

	day := days[start]
	actual := strings.ToLower(day.Weather)
	name := day.Name
	if name == "" {
		name = "today"
	}
	temps := fmt.Sprintf("with temperatures between %s and %s degrees", temp(day.Temperature.Min), temp(day.Temperature.Max))

	asked := w.First(conditions...)
	if asked == "" {
		for _, s := range synonyms {
			if w.Has(s.word) {
				asked = s.condition
				break
			}
		}
	}
	if asked != "" {
		if asked == actual || (strings.Contains(asked, "rain") && strings.Contains(actual, "rain")) {
			return fmt.Sprintf("Yes, on %s, it will be %s in %s %s.", name, actual, city, temps)
		}
		return fmt.Sprintf("No, on %s, it won't be %s, it will be %s in %s %s.", name, asked, actual, city, temps)
	}
	return fmt.Sprintf("The weather in %s on %s is %s %s.", city, name, actual, temps)
}

func multiDay(days []Day, city string, start, requested int) string {
	available := len(days) - start
	count := min(requested, available)

	var b strings.Builder
	if requested > available {
		fmt.Fprintf(&b, "I can only provide %d days. ", available)
	}
	fmt.Fprintf(&b, "Here is the weather in %s starting %s for the next %d days:\n", city, days[start].Name, count)
	for _, d := range days[start : start+count] {
		fmt.Fprintf(&b, "- %s: %s, %s to %s degrees.\n", util.Capitalize(d.Name), d.Weather, temp(d.Temperature.Min), temp(d.Temperature.Max))
	}
	return b.String()
}

func temp(n fmt.Stringer) string {
	if s := n.String(); s != "" {
		return s
	}
	return "?"
}

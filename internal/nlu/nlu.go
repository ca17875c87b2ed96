package nlu

import (
	"regexp"
	"strconv"
	"strings"

	"voxcal/internal/weather"
	"voxcal/pkg/util"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindAttachField
	KindClearField
	KindDeleteAll
	KindDeleteLast
	KindDeleteOne
	KindModify
	KindCreate
	KindRead
	KindCalendarOther
	KindWeather
	KindExit
	KindHistory
)

var kindNames = map[Kind]string{
	KindUnknown:       "unknown",
	KindAttachField:   "attach_field",
	KindClearField:    "clear_field",
	KindDeleteAll:     "delete_all",
	KindDeleteLast:    "delete_last",
	KindDeleteOne:     "delete_one",
	KindModify:        "modify",
	KindCreate:        "create",
	KindRead:          "read",
	KindCalendarOther: "calendar_other",
	KindWeather:       "weather",
	KindExit:          "exit",
	KindHistory:       "history",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

type Field int

const (
	FieldLocation Field = iota + 1
	FieldTime
)

type ReadMode int

const (
	ReadAll ReadMode = iota
	ReadWhere
	ReadWhen
)

// Slots names the appointment fields a modify request wants changed.
type Slots struct {
	Title    bool
	Location bool
	Date     bool
}

func (s Slots) Any() bool {
	return s.Title || s.Location || s.Date
}

// Intent is the classified form of one utterance. Only the fields relevant
// to Kind are set.
type Intent struct {
	Kind Kind

	Field Field    // KindClearField
	Count int      // KindDeleteLast
	Read  ReadMode // KindRead

	// KindModify: the wanted changes, the value spoken after " to ", and
	// the text before it, which names the appointment.
	Slots   Slots
	Inline  string
	Subject string

	City string // KindWeather, empty when not spoken
}

var (
	calendarWords = []string{
		"appointment", "appointments", "calendar", "schedule", "event", "events",
		"reminder", "reminders", "meeting", "meetings", "remainder",
	}
	readWords    = []string{"read", "what", "list", "where", "show", "display", "check", "when"}
	historyWords = []string{"history", "story", "hesprey", "hisprey", "histry", "estory", "conversation"}

	lastNRe = regexp.MustCompile(`\blast (\d+)\b`)
)

// Classify maps an utterance onto an Intent with layered keyword tests.
// Calendar keywords take precedence over everything else, so "create an
// event tomorrow" never reaches the weather branch.
func Classify(text string) Intent {
	text = strings.ToLower(strings.TrimSpace(text))
	w := util.Tokenize(text)

	if w.HasAny(calendarWords...) {
		return classifyCalendar(text, w)
	}
	if weather.Mentions(w) {
		return Intent{Kind: KindWeather, City: spokenCity(w)}
	}
	if w.HasAny("stop", "exit") {
		return Intent{Kind: KindExit}
	}
	if w.HasAny(historyWords...) {
		return Intent{Kind: KindHistory}
	}
	return Intent{Kind: KindUnknown}
}

func classifyCalendar(text string, w util.Words) Intent {
	switch {
	case w.Has("add") && w.HasAny("location", "place"):
		return Intent{Kind: KindAttachField, Field: FieldLocation}

	case w.HasAny("remove", "delete", "clear") && w.HasAny("location", "place", "time"):
		field := FieldTime
		if w.HasAny("location", "place") {
			field = FieldLocation
		}
		return Intent{Kind: KindClearField, Field: field}

	case w.HasAny("delete", "remove", "cancel"):
		if w.HasAny("all", "everything") {
			return Intent{Kind: KindDeleteAll}
		}
		// "the last one" names a single appointment, not a count.
		if m := lastNRe.FindStringSubmatch(NormalizeNumbers(w.String())); m != nil {
			if n, _ := strconv.Atoi(m[1]); n > 1 {
				return Intent{Kind: KindDeleteLast, Count: n}
			}
		}
		return Intent{Kind: KindDeleteOne}

	case w.HasAny("change", "modify", "move", "rename"):
		in := Intent{
			Kind: KindModify,
			Slots: Slots{
				Title:    w.HasAny("title", "name", "rename"),
				Location: w.HasAny("place", "location", "move"),
				Date:     w.HasAny("date", "time", "day"),
			},
			Subject: text,
		}
		if before, after, ok := strings.Cut(text, " to "); ok {
			in.Subject = before
			in.Inline = strings.Trim(after, " .?!")
		}
		return in

	case w.HasAny("add", "create", "new"):
		return Intent{Kind: KindCreate}

	case w.HasAny(readWords...):
		mode := ReadAll
		switch {
		case w.Has("where"):
			mode = ReadWhere
		case w.HasAny("when", "time"):
			mode = ReadWhen
		}
		return Intent{Kind: KindRead, Read: mode}
	}
	return Intent{Kind: KindCalendarOther}
}

func spokenCity(w util.Words) string {
	if city, ok := w.After("in"); ok {
		return util.Capitalize(city)
	}
	if city, ok := w.After("about"); ok && city != "today" && city != "tomorrow" {
		return util.Capitalize(city)
	}
	return ""
}

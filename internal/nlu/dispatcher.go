package nlu

import (
	"context"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"os"
	"strings"
	"time"

	"voxcal/internal/calendar"
	"voxcal/internal/session"
	"voxcal/internal/weather"
	"voxcal/pkg/util"
)

// Voice speaks to the user and captures a single spoken answer. An empty
// transcript means nothing usable was heard.
type Voice interface {
	Speak(ctx context.Context, text string) error
	Capture(ctx context.Context) (string, error)
}

// Store is the part of the calendar client the dispatcher drives.
type Store interface {
	List(ctx context.Context) []calendar.Appointment
	Create(ctx context.Context, title, description, start, end, location string) bool
	DeleteByTitle(ctx context.Context, title string) bool
	DeleteByID(ctx context.Context, id calendar.ID) bool
	DeleteAll(ctx context.Context) int
	Modify(ctx context.Context, oldTitle string, ch calendar.Changes) bool
}

type Forecaster interface {
	Forecast(ctx context.Context, city string) ([]weather.Day, error)
}

type IntentObserver interface {
	ObserveIntent(kind string)
}

// Delays are the waits the dispatcher adds on top of the store's own settle
// delays before it reports or re-reads.
type Delays struct {
	Sync     time.Duration
	BulkSync time.Duration
	Batch    time.Duration
}

func DefaultDelays() Delays {
	return Delays{
		Sync:     time.Second,
		BulkSync: 2 * time.Second,
		Batch:    500 * time.Millisecond,
	}
}

const (
	voiceEntry  = "Voice Entry"
	historySize = 10
	timeLayout  = "2006-01-02T15:04"
)

// Outcome is the result of one handled utterance.
type Outcome struct {
	Continue bool
	Response string
}

// Dispatcher handles one utterance at a time against a session. It is not
// safe for concurrent use.
type Dispatcher struct {
	store      Store
	forecaster Forecaster
	voice      Voice
	session    *session.Context

	display  io.Writer
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration)
	delays   Delays
	observer IntentObserver

	response string
}

type Option func(*Dispatcher)

// WithDisplay sets where listings and the history screen are printed.
func WithDisplay(w io.Writer) Option {
	return func(d *Dispatcher) {
		d.display = w
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

func WithSleeper(fn func(ctx context.Context, d time.Duration)) Option {
	return func(d *Dispatcher) {
		d.sleep = fn
	}
}

func WithDelays(delays Delays) Option {
	return func(d *Dispatcher) {
		d.delays = delays
	}
}

func WithIntentObserver(o IntentObserver) Option {
	return func(d *Dispatcher) {
		d.observer = o
	}
}

func NewDispatcher(store Store, forecaster Forecaster, voice Voice, sess *session.Context, opts ...Option) (*Dispatcher, error) {
	switch {
	case store == nil:
		return nil, errors.New("nlu: store must not be nil")
	case forecaster == nil:
		return nil, errors.New("nlu: forecaster must not be nil")
	case voice == nil:
		return nil, errors.New("nlu: voice must not be nil")
	case sess == nil:
		return nil, errors.New("nlu: session must not be nil")
	}
	d := &Dispatcher{
		store:      store,
		forecaster: forecaster,
		voice:      voice,
		session:    sess,
		display:    os.Stdout,
		now:        time.Now,
		sleep:      util.Sleep,
		delays:     DefaultDelays(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

func (d *Dispatcher) Session() *session.Context {
	return d.session
}

// Handle logs the utterance as a new turn, classifies it and runs the
// matching flow to completion, including any follow-up questions.
func (d *Dispatcher) Handle(ctx context.Context, text string) Outcome {
	text = strings.ToLower(strings.TrimSpace(text))
	d.session.Append(text, d.now())
	d.response = ""

	in := Classify(text)
	log.Debug("Classified utterance", "session", d.session.ID, "intent", in.Kind, "text", text)
	if d.observer != nil {
		d.observer.ObserveIntent(in.Kind.String())
	}

	switch in.Kind {
	case KindAttachField:
		d.attachLocation(ctx, text)
	case KindClearField:
		d.clearField(ctx, in, text)
	case KindDeleteAll:
		d.deleteAll(ctx)
	case KindDeleteLast:
		d.deleteLast(ctx, in.Count)
	case KindDeleteOne:
		d.deleteOne(ctx, text)
	case KindModify:
		d.modify(ctx, in)
	case KindCreate:
		d.create(ctx, text)
	case KindRead:
		d.read(ctx, in.Read)
	case KindWeather:
		d.weather(ctx, in, text)
	case KindExit:
		d.say(ctx, "Goodbye.")
		return Outcome{Continue: false, Response: d.response}
	case KindHistory:
		d.history(ctx)
	default:
		d.say(ctx, "I didn't understand.")
	}
	return Outcome{Continue: true, Response: d.response}
}

func (d *Dispatcher) say(ctx context.Context, text string) {
	d.response = text
	d.session.AttachResponse(text)
	if err := d.voice.Speak(ctx, text); err != nil {
		log.Error("Failed to speak", "err", err)
	}
}

// ask speaks prompt and waits for one answer. Failures count as silence.
func (d *Dispatcher) ask(ctx context.Context, prompt string) string {
	d.say(ctx, prompt)
	answer, err := d.voice.Capture(ctx)
	if err != nil {
		log.Error("Failed to capture answer", "prompt", prompt, "err", err)
		return ""
	}
	return strings.TrimSpace(answer)
}

func (d *Dispatcher) attachLocation(ctx context.Context, text string) {
	list := d.store.List(ctx)
	target, ok := Resolve(text, list, d.session.LastCreatedTitle)
	if !ok {
		target = util.Answer(d.ask(ctx, "Which appointment?"))
		if target == "" {
			d.say(ctx, "Could not find the appointment.")
			return
		}
	}

	location := util.Answer(d.ask(ctx, "What is the location?"))
	if location == "" {
		d.say(ctx, "I didn't hear a location.")
		return
	}

	d.say(ctx, fmt.Sprintf("Adding location %s to %s.", location, target))
	if d.store.Modify(ctx, target, calendar.Changes{Location: location}) {
		d.say(ctx, "Location added.")
	} else {
		d.say(ctx, "Could not update.")
	}
}

func (d *Dispatcher) clearField(ctx context.Context, in Intent, text string) {
	if in.Field == FieldTime {
		d.say(ctx, "I cannot remove the time from an appointment. Time is required. You can change the date or time instead.")
		return
	}

	list := d.store.List(ctx)
	if len(list) == 0 {
		d.say(ctx, "Could not find the appointment.")
		return
	}
	target, ok := Resolve(text, list, d.session.LastCreatedTitle)
	if !ok {
		target = list[0].Title
	}

	d.say(ctx, fmt.Sprintf("Removing location from %s.", target))
	if d.store.Modify(ctx, target, calendar.Changes{Location: DefaultLocation}) {
		d.say(ctx, "Location cleared.")
	} else {
		d.say(ctx, "Could not update.")
	}
}

func (d *Dispatcher) deleteAll(ctx context.Context) {
	d.say(ctx, "Deleting all appointments...")
	n := d.store.DeleteAll(ctx)
	d.sleep(ctx, d.delays.BulkSync)
	d.say(ctx, fmt.Sprintf("Deleted %d appointments. Calendar is empty.", n))
	d.session.LastCreatedTitle = ""
}

// deleteLast removes the newest count appointments, newest first, by id.
func (d *Dispatcher) deleteLast(ctx context.Context, count int) {
	list := d.store.List(ctx)
	if len(list) < count {
		d.say(ctx, fmt.Sprintf("You only have %d appointments.", len(list)))
		count = len(list)
	}

	d.say(ctx, fmt.Sprintf("Deleting last %d appointments...", count))
	deleted := 0
	for i := 0; i < count; i++ {
		a := list[len(list)-1-i]
		if d.store.DeleteByID(ctx, a.ID) {
			deleted++
			d.sleep(ctx, d.delays.Batch)
		}
	}
	d.say(ctx, fmt.Sprintf("Deleted %d appointments.", deleted))
	d.session.LastCreatedTitle = ""
}

func (d *Dispatcher) deleteOne(ctx context.Context, text string) {
	list := d.store.List(ctx)
	target, ok := Resolve(text, list, d.session.LastCreatedTitle)
	if !ok {
		target = util.Answer(d.ask(ctx, "Which appointment should I delete?"))
		if target == "" {
			d.say(ctx, "I didn't hear an appointment name.")
			return
		}
	}

	d.say(ctx, fmt.Sprintf("Deleting appointment: %s...", target))
	deleted := d.store.DeleteByTitle(ctx, target)
	d.sleep(ctx, d.delays.Sync)
	if !deleted {
		d.say(ctx, "Could not find that appointment.")
		return
	}
	d.say(ctx, "Done.")
	if strings.EqualFold(target, d.session.LastCreatedTitle) {
		d.session.LastCreatedTitle = ""
	}
}

func (d *Dispatcher) modify(ctx context.Context, in Intent) {
	var newTitle, newLocation, newDate string
	if in.Inline != "" {
		switch {
		case in.Slots.Title:
			newTitle = util.Answer(in.Inline)
		case in.Slots.Location:
			newLocation = util.Answer(in.Inline)
		case in.Slots.Date:
			newDate = in.Inline
		}
	}
	if in.Slots.Location && newLocation == "" {
		newLocation = util.Answer(d.ask(ctx, "What is the new location?"))
	}
	if in.Slots.Title && newTitle == "" {
		newTitle = util.Answer(d.ask(ctx, "What is the new title?"))
	}
	if in.Slots.Date && newDate == "" {
		newDate = strings.Trim(d.ask(ctx, "What is the new date?"), " .?!")
	}

	list := d.store.List(ctx)
	target := d.modifyTarget(in.Subject, list)
	if target == "" || (newTitle == "" && newLocation == "" && newDate == "") {
		d.say(ctx, "I need to know what to change, or the appointment was not found.")
		return
	}

	if newTitle != "" && strings.EqualFold(newTitle, target) {
		if newLocation == "" && newDate == "" {
			d.say(ctx, fmt.Sprintf("The title is already %s.", newTitle))
			return
		}
		newTitle = ""
	}

	var (
		ch       calendar.Changes
		announce []string
	)
	if newTitle != "" {
		ch.Title = newTitle
		announce = append(announce, fmt.Sprintf("Changing title of %s to %s.", target, newTitle))
	}
	if newLocation != "" {
		ch.Location = newLocation
		announce = append(announce, fmt.Sprintf("Moving appointment %s to %s.", target, newLocation))
	}
	if newDate != "" {
		date, _ := ExtractDate(newDate, d.now())
		ch.Start, ch.End = date.Start(), date.End()
		announce = append(announce, fmt.Sprintf("Changing date of %s to %s.", target, date))
	}

	d.say(ctx, strings.Join(announce, " "))
	if !d.store.Modify(ctx, target, ch) {
		d.say(ctx, "Could not update.")
		return
	}
	if newTitle != "" {
		d.session.LastCreatedTitle = newTitle
	}
	d.say(ctx, "Updated.")
}

// modifyTarget picks the appointment a modify request is about: a spoken
// reference, else one on the mentioned date, else the last one created in
// this session, else the first.
func (d *Dispatcher) modifyTarget(subject string, list []calendar.Appointment) string {
	if len(list) == 0 {
		return ""
	}
	if title, ok := Resolve(subject, list, d.session.LastCreatedTitle); ok {
		return title
	}
	if date, word := ExtractDate(subject, d.now()); word != "" && word != "next" {
		for _, a := range list {
			if a.Date() == date.String() {
				return a.Title
			}
		}
	}
	if last := d.session.LastCreatedTitle; last != "" {
		for _, a := range list {
			if a.Title == last {
				return last
			}
		}
		d.session.LastCreatedTitle = ""
	}
	return list[0].Title
}

func (d *Dispatcher) create(ctx context.Context, text string) {
	draft := ParseAppointment(text, d.now())

	msg := "Adding appointment called " + draft.Title
	if draft.Location != DefaultLocation {
		msg += " at " + draft.Location
	}
	d.say(ctx, msg+" on "+draft.Date.String()+".")

	ok := d.store.Create(ctx, draft.Title, voiceEntry, draft.Start(), draft.End(), draft.Location)
	d.sleep(ctx, d.delays.Sync)
	if !ok {
		d.say(ctx, "Could not create the appointment.")
		return
	}
	d.session.LastCreatedTitle = draft.Title
	d.say(ctx, "Appointment created successfully.")
}

func (d *Dispatcher) read(ctx context.Context, mode ReadMode) {
	d.sleep(ctx, d.delays.Sync)
	var list []calendar.Appointment
	for _, a := range d.store.List(ctx) {
		if strings.TrimSpace(a.Title) != "" {
			list = append(list, a)
		}
	}
	if len(list) == 0 {
		d.say(ctx, "You have no appointments.")
		return
	}

	switch mode {
	case ReadWhere:
		next := soonest(list, d.now())
		location := next.Location
		if location == "" {
			location = DefaultLocation
		}
		d.say(ctx, fmt.Sprintf("Your next appointment is at %s.", location))
	case ReadWhen:
		next := soonest(list, d.now())
		if date, clock := next.Date(), next.Clock(); date != "" {
			d.say(ctx, fmt.Sprintf("Your next appointment is on %s at %s.", date, clock))
		} else {
			d.say(ctx, fmt.Sprintf("Your next appointment is on %s.", next.StartTime))
		}
	default:
		if err := writeListing(d.display, list); err != nil {
			log.Warn("Failed to print appointments", "err", err)
		}
		if len(list) == 1 {
			d.say(ctx, fmt.Sprintf("You have 1 appointment: %s.", list[0].Title))
			return
		}
		titles := make([]string, len(list))
		for i, a := range list {
			titles[i] = fmt.Sprintf("%d. %s", i+1, a.Title)
		}
		d.say(ctx, fmt.Sprintf("You have %d appointments: %s.", len(list), strings.Join(titles, ", ")))
	}
}

// soonest returns the earliest appointment that has not started yet, or the
// earliest one overall when all are in the past.
func soonest(list []calendar.Appointment, now time.Time) calendar.Appointment {
	cutoff := now.Format(timeLayout)
	var upcoming, earliest *calendar.Appointment
	for i := range list {
		a := &list[i]
		if earliest == nil || a.StartTime < earliest.StartTime {
			earliest = a
		}
		if a.StartTime >= cutoff && (upcoming == nil || a.StartTime < upcoming.StartTime) {
			upcoming = a
		}
	}
	if upcoming != nil {
		return *upcoming
	}
	return *earliest
}

func writeListing(w io.Writer, list []calendar.Appointment) error {
	var b strings.Builder
	rule := strings.Repeat("=", 60)
	fmt.Fprintf(&b, "\n%s\nAPPOINTMENTS (%d total):\n%s\n", rule, len(list), rule)
	for i, a := range list {
		date, clock := a.Date(), a.Clock()
		if date == "" {
			date, clock = "No date", "No time"
		}
		location := a.Location
		if location == "" {
			location = "No location"
		}
		fmt.Fprintf(&b, "%d. %s\n   Date: %s\n   Time: %s\n   Location: %s\n\n", i+1, a.Title, date, clock, location)
	}
	b.WriteString(rule + "\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func (d *Dispatcher) weather(ctx context.Context, in Intent, text string) {
	city := in.City
	if city == "" {
		city = d.session.LastLocation
	}
	if city == "" {
		answer := d.ask(ctx, "Please tell me the location.")
		if c, ok := util.Tokenize(answer).After("in"); ok {
			city = util.Capitalize(c)
		} else {
			city = util.Answer(answer)
		}
	}
	if city == "" {
		d.say(ctx, "I didn't hear a location. Canceling.")
		return
	}
	d.session.LastLocation = city

	log.Info("Weather query", "city", city)
	days, err := d.forecaster.Forecast(ctx, city)
	if err != nil {
		log.Error("Failed to fetch forecast", "city", city, "err", err)
		d.say(ctx, fmt.Sprintf("I couldn't find weather data for %s.", city))
		return
	}

	if idx := weather.DayIndex(text, days, d.session.LastDayIndex); idx != -1 {
		d.session.LastDayIndex = idx
	}
	d.say(ctx, weather.Summarize(days, NormalizeNumbers(text), city, d.session.LastDayIndex))
}

// history shows the turns before the current one.
func (d *Dispatcher) history(ctx context.Context) {
	turns := d.session.Last(historySize + 1)
	if len(turns) > 0 {
		turns = turns[:len(turns)-1]
	}
	if len(turns) == 0 {
		d.say(ctx, "No conversation history yet.")
		return
	}
	if err := session.WriteDigest(d.display, turns); err != nil {
		log.Warn("Failed to print history", "err", err)
	}
	d.say(ctx, fmt.Sprintf("I've shown the last %d conversation turns before this one on screen.", len(turns)))
}

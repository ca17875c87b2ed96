package calendar

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Appointment is an entry owned by the remote calendar. ID is assigned by the
// remote store and changes when an appointment is modified.
type Appointment struct {
	ID          ID     `json:"id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Location    string `json:"location"`
}

// Date returns the date part of StartTime, or "" when it has no time part.
func (a Appointment) Date() string {
	date, _, ok := strings.Cut(a.StartTime, "T")
	if !ok {
		return ""
	}
	return date
}

// Clock returns the time-of-day part of StartTime, or "" when absent.
func (a Appointment) Clock() string {
	_, clock, ok := strings.Cut(a.StartTime, "T")
	if !ok {
		return ""
	}
	return clock
}

// ID is the opaque remote identifier. The backend has been seen returning
// both numbers and strings, so both decode.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// FindByTitle looks a title up in list order: case-insensitive exact match
// first, then the first case-insensitive substring match.
func FindByTitle(list []Appointment, title string) (Appointment, bool) {
	want := strings.ToLower(strings.TrimSpace(title))
	if want == "" {
		return Appointment{}, false
	}
	for _, a := range list {
		if strings.ToLower(a.Title) == want {
			return a, true
		}
	}
	for _, a := range list {
		if strings.Contains(strings.ToLower(a.Title), want) {
			return a, true
		}
	}
	return Appointment{}, false
}

func containsTitle(list []Appointment, title string) bool {
	for _, a := range list {
		if a.Title == title {
			return true
		}
	}
	return false
}

package nlu

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSegment(t *testing.T) {
	cases := []struct {
		text     string
		title    string
		location string
	}{
		{"add a meeting titled Budget Review at the main office", "Budget review", "Main office"},
		{"create appointment dentist tomorrow at the clinic", "Dentist", "Clinic"},
		{"schedule lunch with ana on the 5th of june at cafe luna", "Lunch with ana", "Cafe luna"},
		{"add a meeting called standup at the office at friday", "Standup", "Office"},
		{"add a meeting called standup at the office at 10", "Standup", "Office"},
		{"create an appointment on the twelfth of may called review", "Review", DefaultLocation},
		{"add a reminder", DefaultTitle, DefaultLocation},
		{"add an appointment gym session.", "Gym session", DefaultLocation},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			title, location := Segment(tc.text)
			require.Equal(t, tc.title, title)
			require.Equal(t, tc.location, location)
		})
	}
}

func TestSegmentNoiseOnlyStrippedFromFront(t *testing.T) {
	title, _ := Segment("add team event planning")
	require.Equal(t, "Team event planning", title)
}

func TestParseAppointment(t *testing.T) {
	d := ParseAppointment("add a meeting titled Budget Review at the main office on monday", today)
	require.Equal(t, "Budget review", d.Title)
	// "on monday" belongs to the location segment, which is then skipped as date-related.
	require.Equal(t, DefaultLocation, d.Location)
	require.Equal(t, "2026-10-19T10:00", d.Start())
	require.Equal(t, "2026-10-19T11:00", d.End())
}

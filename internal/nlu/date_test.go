package nlu

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// A Friday.
var today = time.Date(2026, 10, 16, 9, 0, 0, 0, time.Local)

func TestNormalizeNumbers(t *testing.T) {
	require.Equal(t, "delete the 3 appointment", NormalizeNumbers("delete the third appointment"))
	require.Equal(t, "2 meetings on the 12 of may", NormalizeNumbers("two meetings  on the twelfth of may"))
	require.Equal(t, "someone", NormalizeNumbers("someone"))
}

func TestExtractDate(t *testing.T) {
	cases := []struct {
		text string
		want string
		word string
	}{
		{"meeting next friday at the office", "2026-10-30", "friday"},
		{"meeting friday at the office", "2026-10-23", "friday"},
		{"lunch on monday", "2026-10-19", "monday"},
		{"review on the 15th of march", "2027-03-15", "march"},
		{"party on december 3", "2026-12-03", "december"},
		{"dentist on the third of november", "2026-11-03", "november"},
		{"call in october", "2026-10-17", "october"},
		{"standup tomorrow", "2026-10-17", "tomorrow"},
		{"standup today", "2026-10-16", "today"},
		{"standup next time", "2026-10-17", "next"},
		{"standup", "2026-10-17", ""},
		{"Meeting on FRIDAY", "2026-10-23", "friday"},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			got, word := ExtractDate(tc.text, today)
			require.Equal(t, tc.want, got.String())
			require.Equal(t, tc.word, word)
		})
	}
}

func TestExtractDateWordsMustStandAlone(t *testing.T) {
	got, word := ExtractDate("sundays are for mayonnaise", today)
	require.Equal(t, "", word)
	require.Equal(t, "2026-10-17", got.String())
}

func TestExtractDateDefaultDoesNotRollMonth(t *testing.T) {
	endOfMonth := time.Date(2026, 10, 31, 12, 0, 0, 0, time.Local)

	got, _ := ExtractDate("standup", endOfMonth)
	require.Equal(t, "2026-10-32", got.String())

	got, _ = ExtractDate("standup tomorrow", endOfMonth)
	require.Equal(t, "2026-11-01", got.String())
}

func TestDateStartEnd(t *testing.T) {
	d := Date{Year: 2026, Month: time.November, Day: 3}
	require.Equal(t, "2026-11-03T10:00", d.Start())
	require.Equal(t, "2026-11-03T11:00", d.End())
}

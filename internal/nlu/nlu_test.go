package nlu

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		text string
		want Intent
	}{
		{"add a location to the standup meeting", Intent{Kind: KindAttachField, Field: FieldLocation}},
		{"remove the location from my appointment", Intent{Kind: KindClearField, Field: FieldLocation}},
		{"clear the time of the meeting", Intent{Kind: KindClearField, Field: FieldTime}},
		{"delete all appointments", Intent{Kind: KindDeleteAll}},
		{"remove everything from my calendar", Intent{Kind: KindDeleteAll}},
		{"delete the last three appointments", Intent{Kind: KindDeleteLast, Count: 3}},
		{"delete the last 4 meetings", Intent{Kind: KindDeleteLast, Count: 4}},
		{"delete the last seven appointments", Intent{Kind: KindDeleteLast, Count: 7}},
		{"remove the last six meetings", Intent{Kind: KindDeleteLast, Count: 6}},
		{"delete the last one appointment", Intent{Kind: KindDeleteOne}},
		{"cancel the appointment called ball", Intent{Kind: KindDeleteOne}},
		{"add a meeting tomorrow at the office", Intent{Kind: KindCreate}},
		{"new reminder titled call mom", Intent{Kind: KindCreate}},
		{"read my appointments", Intent{Kind: KindRead, Read: ReadAll}},
		{"where is my next meeting", Intent{Kind: KindRead, Read: ReadWhere}},
		{"when is my next appointment", Intent{Kind: KindRead, Read: ReadWhen}},
		{"what time is the meeting", Intent{Kind: KindRead, Read: ReadWhen}},
		{"my calendar please", Intent{Kind: KindCalendarOther}},
		{"what is the weather in berlin", Intent{Kind: KindWeather, City: "Berlin"}},
		{"how about paris", Intent{Kind: KindWeather, City: "Paris"}},
		{"and what about tomorrow", Intent{Kind: KindWeather}},
		{"will it be sunny", Intent{Kind: KindWeather}},
		{"stop", Intent{Kind: KindExit}},
		{"please exit now", Intent{Kind: KindExit}},
		{"show my conversation", Intent{Kind: KindHistory}},
		{"show me the histry", Intent{Kind: KindHistory}},
		{"sing a song", Intent{Kind: KindUnknown}},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			require.Equal(t, tc.want, Classify(tc.text))
		})
	}
}

func TestClassifyModify(t *testing.T) {
	in := Classify("Rename the standup meeting to Daily Sync.")
	require.Equal(t, KindModify, in.Kind)
	require.Equal(t, Slots{Title: true}, in.Slots)
	require.Equal(t, "daily sync", in.Inline)
	require.Equal(t, "rename the standup meeting", in.Subject)

	in = Classify("move my appointment")
	require.Equal(t, KindModify, in.Kind)
	require.Equal(t, Slots{Location: true}, in.Slots)
	require.Empty(t, in.Inline)
	require.Equal(t, "move my appointment", in.Subject)

	in = Classify("change the date of the meeting")
	require.Equal(t, Slots{Date: true}, in.Slots)
	require.True(t, in.Slots.Any())
}

func TestClassifyCalendarWinsOverWeather(t *testing.T) {
	require.Equal(t, KindCreate, Classify("create an event for tomorrow").Kind)
	require.Equal(t, KindCalendarOther, Classify("is the meeting hot").Kind)
}

func TestKindString(t *testing.T) {
	require.Equal(t, "delete_last", KindDeleteLast.String())
	require.Equal(t, "kind(99)", Kind(99).String())
}

package nlu

import "strings"

var numberWords = map[string]string{
	"one": "1", "two": "2", "three": "3", "four": "4",
	"five": "5", "six": "6", "seven": "7",
	"first": "1", "second": "2", "third": "3", "fourth": "4", "fifth": "5",
	"sixth": "6", "seventh": "7", "eighth": "8", "ninth": "9", "tenth": "10",
	"eleventh": "11", "twelfth": "12", "thirteenth": "13", "fourteenth": "14",
	"fifteenth": "15", "twentieth": "20", "thirtieth": "30",
}

// NormalizeNumbers replaces number and ordinal words standing on their own
// with digits. Whitespace is collapsed to single spaces.
func NormalizeNumbers(text string) string {
	fields := strings.Fields(text)
	for i, f := range fields {
		if d, ok := numberWords[f]; ok {
			fields[i] = d
		}
	}
	return strings.Join(fields, " ")
}

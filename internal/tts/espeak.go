// Package tts speaks text through espeak-ng.
package tts

/*
#cgo LDFLAGS: -lespeak-ng
#include <stdlib.h>
#include <string.h>
#include <espeak-ng/speak_lib.h>

static int
voxcal_say(const char *text, const char *voice)
{
	if (!text || !voice)
	{ return -1; }

	if (espeak_Initialize(AUDIO_OUTPUT_SYNCH_PLAYBACK, 500, NULL, 0) < 0)
	{ return -2; }
	espeak_VOICE specs = { .languages = voice };
	espeak_SetVoiceByProperties(&specs);

	espeak_Synth(text, strlen(text) + 1, 0, POS_CHARACTER, 0, espeakCHARS_AUTO, NULL, NULL);
	espeak_Synchronize();
	espeak_Terminate();

	return 0;
}
*/
import "C"

import (
	"fmt"
	"strings"
	"sync"
	"unsafe"
)

// espeak keeps global state, so only one utterance plays at a time.
var mu sync.Mutex

type Speaker struct {
	voice string
}

// NewSpeaker selects a voice by language code, "en" when empty.
func NewSpeaker(voice string) *Speaker {
	if voice == "" {
		voice = "en"
	}
	return &Speaker{voice: voice}
}

func (s *Speaker) Speak(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))
	cvoice := C.CString(s.voice)
	defer C.free(unsafe.Pointer(cvoice))

	mu.Lock()
	rc := C.voxcal_say(ctext, cvoice)
	mu.Unlock()
	if rc != 0 {
		return fmt.Errorf("espeak failed: %d", int(rc))
	}
	return nil
}

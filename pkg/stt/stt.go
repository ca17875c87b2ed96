// Package stt turns 16 kHz mono PCM into text.
package stt

import (
	"context"
	"errors"
)

var ErrNoAudio = errors.New("no audio samples provided")

// Transcriber is satisfied by the local whisper model and the OpenAI API.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []float32) (string, error)
}

// Prompt biases recognition towards the assistant's vocabulary.
const Prompt = "Calendar and weather assistant. Appointment, meeting, schedule, location, forecast, tomorrow."

// Package voice implements the dispatcher's Voice over a microphone or a
// text console.
package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"os"
	"strings"
	"time"

	"voxcal/internal/audio"
	"voxcal/internal/config"
	"voxcal/pkg/audioconv"
	"voxcal/pkg/stt"
	"voxcal/pkg/util"
)

type Recorder interface {
	Record(ctx context.Context, ep audio.Endpoint) ([]float32, error)
}

type Speaker interface {
	Speak(text string) error
}

type Cue interface {
	Play() error
}

// Ducker lowers other playback while the microphone is open.
type Ducker interface {
	Duck(ctx context.Context) error
	Restore(ctx context.Context) error
}

// Mic listens through the recorder and transcriber and answers through the
// speaker. The cue plays before every capture.
type Mic struct {
	rec     Recorder
	stt     stt.Transcriber
	tts     Speaker
	cue     Cue
	ducker  Ducker
	command audio.Endpoint
	answer  audio.Endpoint

	speakDelay time.Duration
	display    io.Writer
	sleep      func(ctx context.Context, d time.Duration)
}

type MicOption func(*Mic)

func WithDisplay(w io.Writer) MicOption {
	return func(m *Mic) {
		m.display = w
	}
}

func WithDucker(d Ducker) MicOption {
	return func(m *Mic) {
		m.ducker = d
	}
}

func WithSleeper(fn func(ctx context.Context, d time.Duration)) MicOption {
	return func(m *Mic) {
		m.sleep = fn
	}
}

func NewMic(rec Recorder, tr stt.Transcriber, tts Speaker, cue Cue, cfg config.AudioConfig, opts ...MicOption) (*Mic, error) {
	switch {
	case rec == nil:
		return nil, errors.New("voice: recorder must not be nil")
	case tr == nil:
		return nil, errors.New("voice: transcriber must not be nil")
	case tts == nil:
		return nil, errors.New("voice: speaker must not be nil")
	}
	endpoint := func(silence time.Duration) audio.Endpoint {
		return audio.Endpoint{
			Silence:         silence,
			NoSpeechTimeout: cfg.NoSpeechTimeout,
			MaxDuration:     cfg.MaxDuration,
			Threshold:       float32(cfg.Threshold),
		}
	}
	m := &Mic{
		rec:        rec,
		stt:        tr,
		tts:        tts,
		cue:        cue,
		command:    endpoint(cfg.CommandSilence),
		answer:     endpoint(cfg.AnswerSilence),
		speakDelay: cfg.SpeakDelay,
		display:    os.Stdout,
		sleep:      util.Sleep,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Speak waits for the input device to be released, then talks.
func (m *Mic) Speak(ctx context.Context, text string) error {
	fmt.Fprintf(m.display, "Assistant: %s\n", text)
	if m.speakDelay > 0 {
		m.sleep(ctx, m.speakDelay)
	}
	return m.tts.Speak(text)
}

// Listen captures a command, allowing longer pauses than an answer.
func (m *Mic) Listen(ctx context.Context) (string, error) {
	return m.capture(ctx, m.command)
}

// Capture records one follow-up answer.
func (m *Mic) Capture(ctx context.Context) (string, error) {
	return m.capture(ctx, m.answer)
}

func (m *Mic) capture(ctx context.Context, ep audio.Endpoint) (string, error) {
	if m.cue != nil {
		if err := m.cue.Play(); err != nil {
			log.Warn("Failed to play cue", "err", err)
		}
	}
	fmt.Fprintln(m.display, "Listening...")

	if m.ducker != nil {
		if err := m.ducker.Duck(ctx); err != nil {
			log.Warn("Failed to duck playback", "err", err)
		}
		defer func() {
			if err := m.ducker.Restore(context.WithoutCancel(ctx)); err != nil {
				log.Warn("Failed to restore playback", "err", err)
			}
		}()
	}

	pcm, err := m.rec.Record(ctx, ep)
	if err != nil {
		return "", fmt.Errorf("record: %w", err)
	}
	if len(pcm) == 0 {
		fmt.Fprintln(m.display, "No speech detected.")
		return "", nil
	}
	log.Debug("Recorded", "samples", len(pcm))
	return m.transcribe(ctx, pcm)
}

// TranscribeFile runs an audio file through the same transcriber.
func (m *Mic) TranscribeFile(ctx context.Context, path string) (string, error) {
	pcm, err := audioconv.Decode(ctx, path, audioconv.Options{})
	if err != nil {
		return "", err
	}
	return m.transcribe(ctx, pcm)
}

func (m *Mic) transcribe(ctx context.Context, pcm []float32) (string, error) {
	text, err := m.stt.Transcribe(ctx, pcm)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	text = strings.TrimSpace(text)
	if text != "" {
		fmt.Fprintf(m.display, "You: %s\n", text)
	}
	return text, nil
}

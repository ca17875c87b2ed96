package voice

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"voxcal/internal/audio"
	"voxcal/internal/config"
)

type fakeRecorder struct {
	pcm []float32
	err error
	eps []audio.Endpoint
}

func (r *fakeRecorder) Record(_ context.Context, ep audio.Endpoint) ([]float32, error) {
	r.eps = append(r.eps, ep)
	return r.pcm, r.err
}

type fakeTranscriber struct {
	text  string
	calls int
}

func (f *fakeTranscriber) Transcribe(context.Context, []float32) (string, error) {
	f.calls++
	return f.text, nil
}

type fakeSpeaker struct{ said []string }

func (s *fakeSpeaker) Speak(text string) error {
	s.said = append(s.said, text)
	return nil
}

type fakeCue struct{ plays int }

func (c *fakeCue) Play() error {
	c.plays++
	return errors.New("no audio device")
}

type fakeDucker struct{ calls []string }

func (d *fakeDucker) Duck(context.Context) error {
	d.calls = append(d.calls, "duck")
	return nil
}

func (d *fakeDucker) Restore(context.Context) error {
	d.calls = append(d.calls, "restore")
	return nil
}

type micHarness struct {
	mic    *Mic
	rec    *fakeRecorder
	stt    *fakeTranscriber
	tts    *fakeSpeaker
	cue    *fakeCue
	duck   *fakeDucker
	out    *bytes.Buffer
	sleeps []time.Duration
}

func newMicHarness(t *testing.T) *micHarness {
	t.Helper()
	h := &micHarness{
		rec:  &fakeRecorder{pcm: []float32{0.2, 0.3}},
		stt:  &fakeTranscriber{text: "  read my calendar "},
		tts:  &fakeSpeaker{},
		cue:  &fakeCue{},
		duck: &fakeDucker{},
		out:  &bytes.Buffer{},
	}
	mic, err := NewMic(h.rec, h.stt, h.tts, h.cue, config.DefaultConfig().Audio,
		WithDisplay(h.out),
		WithDucker(h.duck),
		WithSleeper(func(_ context.Context, d time.Duration) { h.sleeps = append(h.sleeps, d) }),
	)
	require.NoError(t, err)
	h.mic = mic
	return h
}

func TestNewMicRequiresCollaborators(t *testing.T) {
	_, err := NewMic(nil, &fakeTranscriber{}, &fakeSpeaker{}, nil, config.AudioConfig{})
	require.EqualError(t, err, "voice: recorder must not be nil")
	_, err = NewMic(&fakeRecorder{}, nil, &fakeSpeaker{}, nil, config.AudioConfig{})
	require.EqualError(t, err, "voice: transcriber must not be nil")
}

func TestMicSpeakWaitsThenTalks(t *testing.T) {
	h := newMicHarness(t)

	require.NoError(t, h.mic.Speak(context.Background(), "Appointment created."))
	require.Equal(t, []time.Duration{500 * time.Millisecond}, h.sleeps)
	require.Equal(t, []string{"Appointment created."}, h.tts.said)
	require.Contains(t, h.out.String(), "Assistant: Appointment created.\n")
}

func TestMicDefaultSleeperHonoursCancel(t *testing.T) {
	cfg := config.DefaultConfig().Audio
	cfg.SpeakDelay = time.Hour
	tts := &fakeSpeaker{}
	mic, err := NewMic(&fakeRecorder{}, &fakeTranscriber{}, tts, nil, cfg, WithDisplay(&bytes.Buffer{}))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	require.NoError(t, mic.Speak(ctx, "Goodbye."))
	require.Less(t, time.Since(start), time.Second)
	require.Equal(t, []string{"Goodbye."}, tts.said)
}

func TestMicEndpointsDifferForCommandsAndAnswers(t *testing.T) {
	h := newMicHarness(t)
	ctx := context.Background()

	text, err := h.mic.Listen(ctx)
	require.NoError(t, err)
	require.Equal(t, "read my calendar", text)

	_, err = h.mic.Capture(ctx)
	require.NoError(t, err)

	require.Len(t, h.rec.eps, 2)
	require.Equal(t, 2500*time.Millisecond, h.rec.eps[0].Silence)
	require.Equal(t, 2*time.Second, h.rec.eps[1].Silence)
	require.Equal(t, 10*time.Second, h.rec.eps[1].NoSpeechTimeout)
	// A failing cue does not stop the capture.
	require.Equal(t, 2, h.cue.plays)
	require.Equal(t, []string{"duck", "restore", "duck", "restore"}, h.duck.calls)
	require.Contains(t, h.out.String(), "You: read my calendar\n")
}

func TestMicNoSpeechSkipsTranscription(t *testing.T) {
	h := newMicHarness(t)
	h.rec.pcm = nil

	text, err := h.mic.Capture(context.Background())
	require.NoError(t, err)
	require.Empty(t, text)
	require.Zero(t, h.stt.calls)
}

func TestMicRecordError(t *testing.T) {
	h := newMicHarness(t)
	h.rec.err = errors.New("device busy")

	_, err := h.mic.Listen(context.Background())
	require.ErrorContains(t, err, "device busy")
}

func TestConsole(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(strings.NewReader("what's on my calendar\n  Room 4  \n"), &out)
	ctx := context.Background()

	text, err := c.Listen(ctx)
	require.NoError(t, err)
	require.Equal(t, "what's on my calendar", text)

	require.NoError(t, c.Speak(ctx, "Where is it?"))

	text, err = c.Capture(ctx)
	require.NoError(t, err)
	require.Equal(t, "Room 4", text)

	_, err = c.Listen(ctx)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, "You: Assistant: Where is it?\nYou: You: ", out.String())
}

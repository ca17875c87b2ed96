// Package notify plays the short cue that tells the user the microphone is
// open.
package notify

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

// All cues go through one speaker, which is initialised at this rate.
const outputRate beep.SampleRate = 44100

var (
	initOnce sync.Once
	initErr  error
)

type Beeper struct {
	path string
}

// NewBeeper returns a Beeper for an mp3 file. An empty path disables the cue.
func NewBeeper(path string) *Beeper {
	return &Beeper{path: path}
}

// Play blocks until the cue has finished.
func (b *Beeper) Play() error {
	if b == nil || b.path == "" {
		return nil
	}
	f, err := os.Open(b.path)
	if err != nil {
		return fmt.Errorf("open cue: %w", err)
	}
	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("decode cue: %w", err)
	}
	defer streamer.Close()

	initOnce.Do(func() {
		initErr = speaker.Init(outputRate, outputRate.N(time.Second/10))
	})
	if initErr != nil {
		return fmt.Errorf("init speaker: %w", initErr)
	}

	var s beep.Streamer = streamer
	if format.SampleRate != outputRate {
		s = beep.Resample(4, format.SampleRate, outputRate, streamer)
	}
	done := make(chan struct{})
	speaker.Play(beep.Seq(s, beep.Callback(func() { close(done) })))
	<-done
	return nil
}

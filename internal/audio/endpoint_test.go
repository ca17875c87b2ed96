package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const frame = 20 * time.Millisecond

func frames(level float32, n int) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		out[i] = []float32{level, -level / 2}
	}
	return out
}

func run(d *detector, seq ...[][]float32) int {
	fed := 0
	for _, part := range seq {
		for _, f := range part {
			fed++
			if d.feed(f) {
				return fed
			}
		}
	}
	return fed
}

var ep = Endpoint{
	Silence:         100 * time.Millisecond,
	NoSpeechTimeout: 200 * time.Millisecond,
	MaxDuration:     time.Second,
	Threshold:       0.1,
}

func TestDetectorEndsAfterTrailingSilence(t *testing.T) {
	d := newDetector(ep, frame)

	fed := run(d, frames(0, 3), frames(0.5, 4), frames(0.01, 20))
	require.Equal(t, 3+4+5, fed)
	// Leading quiet dropped, trailing quiet kept.
	require.Len(t, d.result(), (4+5)*2)
}

func TestDetectorSilenceResetsOnSpeech(t *testing.T) {
	d := newDetector(ep, frame)

	fed := run(d, frames(0.5, 1), frames(0, 4), frames(0.5, 1), frames(0, 10))
	require.Equal(t, 1+4+1+5, fed)
}

func TestDetectorNoSpeech(t *testing.T) {
	d := newDetector(ep, frame)

	fed := run(d, frames(0.05, 50))
	require.Equal(t, 10, fed)
	require.Nil(t, d.result())
}

func TestDetectorMaxDuration(t *testing.T) {
	d := newDetector(ep, frame)

	fed := run(d, frames(0.9, 100))
	require.Equal(t, 50, fed)
	require.Len(t, d.result(), 100)
	require.True(t, d.feed([]float32{1}))
}

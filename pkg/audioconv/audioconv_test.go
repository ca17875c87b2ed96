package audioconv

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func sine(n, rate int, freq float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return out
}

func TestEncodeThenDecodeKeepsSignal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	want := sine(SampleRate/2, SampleRate, 440)

	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, EncodeWAV(f, want, SampleRate))
	require.NoError(t, f.Close())

	got, err := Decode(context.Background(), path, Options{})
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		require.InDelta(t, want[i], got[i], 1e-3)
	}
}

func TestDecodeResamplesAndCuts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, EncodeWAV(f, sine(8000, 8000, 220), 8000))
	require.NoError(t, f.Close())

	// No extension: the RIFF header decides.
	got, err := Decode(context.Background(), path, Options{})
	require.NoError(t, err)
	require.Len(t, got, SampleRate)

	got, err = Decode(context.Background(), path, Options{MaxSamples: 100})
	require.NoError(t, err)
	require.Len(t, got, 100)
}

func TestDecodeUnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o600))

	_, err := Decode(context.Background(), path, Options{})
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestDownmixAndResample(t *testing.T) {
	require.Equal(t, []float32{0.5, 0}, downmix([]float32{1, 0, 0.5, -0.5}, 2))
	require.Equal(t, []float32{0, 0.5, 1, 1}, resample([]float32{0, 1}, 8000, 16000))
	require.Equal(t, []int{32767, -32767, 0}, floatToInt16([]float32{2, -1, 0}))
}

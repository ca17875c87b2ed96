package stt

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/openai/openai-go/v3"

	"voxcal/pkg/audioconv"
)

// OpenAI sends audio to the hosted transcription endpoint.
type OpenAI struct {
	client   openai.Client
	model    openai.AudioModel
	language string
}

func NewOpenAI(client openai.Client, language string) *OpenAI {
	return &OpenAI{client: client, model: openai.AudioModelWhisper1, language: language}
}

func (o *OpenAI) Transcribe(ctx context.Context, pcm []float32) (string, error) {
	if len(pcm) == 0 {
		return "", ErrNoAudio
	}

	f, err := os.CreateTemp("", "voxcal-*.wav")
	if err != nil {
		return "", err
	}
	defer os.Remove(f.Name())
	defer f.Close()

	if err := audioconv.EncodeWAV(f, pcm, audioconv.SampleRate); err != nil {
		return "", fmt.Errorf("encode wav: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	params := openai.AudioTranscriptionNewParams{
		File:   f,
		Model:  o.model,
		Prompt: openai.String(Prompt),
	}
	if o.language != "" && o.language != "auto" {
		params.Language = openai.String(o.language)
	}
	resp, err := o.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

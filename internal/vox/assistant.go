// Package vox runs the assistant: one goroutine owns the dispatcher and
// handles commands from every ingress strictly one after another.
package vox

import (
	"context"
	"errors"
	log "log/slog"
	"sync/atomic"
	"time"

	"voxcal/internal/nlu"
)

var (
	ErrStopped    = errors.New("assistant stopped")
	ErrNoListener = errors.New("no microphone configured")
)

type Handler interface {
	Handle(ctx context.Context, text string) nlu.Outcome
}

type Listener interface {
	Listen(ctx context.Context) (string, error)
}

type FileTranscriber interface {
	TranscribeFile(ctx context.Context, path string) (string, error)
}

type TurnObserver interface {
	ObserveTurn(d time.Duration)
}

type source int

const (
	fromText source = iota
	fromMic
	fromFile
)

type request struct {
	src   source
	arg   string
	reply chan result
}

type result struct {
	out nlu.Outcome
	err error
}

type Assistant struct {
	handler  Handler
	listener Listener
	files    FileTranscriber
	observer TurnObserver
	now      func() time.Time

	requests chan request
	done     chan struct{}
	turns    atomic.Int64
}

type Option func(*Assistant)

func WithListener(l Listener) Option {
	return func(a *Assistant) {
		a.listener = l
	}
}

func WithFileTranscriber(f FileTranscriber) Option {
	return func(a *Assistant) {
		a.files = f
	}
}

func WithTurnObserver(o TurnObserver) Option {
	return func(a *Assistant) {
		a.observer = o
	}
}

func WithClock(now func() time.Time) Option {
	return func(a *Assistant) {
		a.now = now
	}
}

func NewAssistant(h Handler, opts ...Option) (*Assistant, error) {
	if h == nil {
		return nil, errors.New("vox: handler must not be nil")
	}
	a := &Assistant{
		handler:  h,
		now:      time.Now,
		requests: make(chan request),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Run consumes commands until the user says goodbye or ctx ends. It must be
// called once.
func (a *Assistant) Run(ctx context.Context) error {
	defer close(a.done)
	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-a.requests:
			res := a.process(ctx, req)
			req.reply <- res
			if res.err == nil && !res.out.Continue {
				log.Info("Assistant stopped by user")
				return nil
			}
		}
	}
}

// Turns counts handled utterances. It is safe to call from any goroutine.
func (a *Assistant) Turns() int64 { return a.turns.Load() }

// Done is closed once Run has returned.
func (a *Assistant) Done() <-chan struct{} { return a.done }

// Submit handles typed or relayed text.
func (a *Assistant) Submit(ctx context.Context, text string) (nlu.Outcome, error) {
	return a.do(ctx, fromText, text)
}

// Trigger listens on the microphone for one command.
func (a *Assistant) Trigger(ctx context.Context) (nlu.Outcome, error) {
	return a.do(ctx, fromMic, "")
}

// Play handles the speech in an audio file.
func (a *Assistant) Play(ctx context.Context, path string) (nlu.Outcome, error) {
	return a.do(ctx, fromFile, path)
}

func (a *Assistant) do(ctx context.Context, src source, arg string) (nlu.Outcome, error) {
	req := request{src: src, arg: arg, reply: make(chan result, 1)}
	select {
	case a.requests <- req:
	case <-a.done:
		return nlu.Outcome{}, ErrStopped
	case <-ctx.Done():
		return nlu.Outcome{}, ctx.Err()
	}
	select {
	case res := <-req.reply:
		return res.out, res.err
	case <-ctx.Done():
		return nlu.Outcome{}, ctx.Err()
	}
}

func (a *Assistant) process(ctx context.Context, req request) result {
	text, err := a.input(ctx, req)
	if err != nil {
		return result{err: err}
	}
	if text == "" {
		log.Info("Nothing heard")
		return result{out: nlu.Outcome{Continue: true}}
	}

	start := a.now()
	out := a.handler.Handle(ctx, text)
	a.turns.Add(1)
	if a.observer != nil {
		a.observer.ObserveTurn(a.now().Sub(start))
	}
	return result{out: out}
}

func (a *Assistant) input(ctx context.Context, req request) (string, error) {
	switch req.src {
	case fromMic:
		if a.listener == nil {
			return "", ErrNoListener
		}
		return a.listener.Listen(ctx)
	case fromFile:
		if a.files == nil {
			return "", ErrNoListener
		}
		return a.files.TranscribeFile(ctx, req.arg)
	}
	return req.arg, nil
}

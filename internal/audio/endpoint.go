package audio

import (
	"math"
	"time"
)

// Endpoint bounds one utterance.
type Endpoint struct {
	Silence         time.Duration // trailing quiet that ends speech
	NoSpeechTimeout time.Duration // give up if speech never starts
	MaxDuration     time.Duration // hard cap from the first frame
	Threshold       float32       // peak amplitude counted as speech
}

type state int

const (
	waiting state = iota
	speaking
	done
)

// detector consumes fixed-size frames and decides when an utterance is over.
// Leading silence is dropped, trailing silence up to the cut is kept.
type detector struct {
	ep       Endpoint
	frameDur time.Duration

	state   state
	elapsed time.Duration
	quiet   time.Duration
	heard   bool
	out     []float32
}

func newDetector(ep Endpoint, frameDur time.Duration) *detector {
	return &detector{ep: ep, frameDur: frameDur}
}

// feed returns true once no more frames are wanted.
func (d *detector) feed(frame []float32) bool {
	if d.state == done {
		return true
	}
	d.elapsed += d.frameDur
	loud := peak(frame) >= d.ep.Threshold

	switch d.state {
	case waiting:
		if loud {
			d.state, d.heard = speaking, true
			d.out = append(d.out, frame...)
		} else if d.ep.NoSpeechTimeout > 0 && d.elapsed >= d.ep.NoSpeechTimeout {
			d.state = done
		}
	case speaking:
		d.out = append(d.out, frame...)
		if loud {
			d.quiet = 0
		} else if d.quiet += d.frameDur; d.quiet >= d.ep.Silence {
			d.state = done
		}
	}
	if d.ep.MaxDuration > 0 && d.elapsed >= d.ep.MaxDuration {
		d.state = done
	}
	return d.state == done
}

// result is nil when speech never started.
func (d *detector) result() []float32 {
	if !d.heard {
		return nil
	}
	return d.out
}

func peak(f []float32) float32 {
	var p float64
	for _, x := range f {
		p = math.Max(p, math.Abs(float64(x)))
	}
	return float32(p)
}

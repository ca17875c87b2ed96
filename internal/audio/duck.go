package audio

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"voxcal/pkg/util"
)

const maxVolume = 150

// Stream is one playback stream known to the sound server.
type Stream struct {
	ID     int
	Volume int // percent
	App    string
}

// Mixer reads and sets per-stream playback volumes.
type Mixer interface {
	Streams(ctx context.Context) ([]Stream, error)
	SetVolume(ctx context.Context, id, percent int) error
}

// Ducker turns other applications down while the microphone is open and
// brings them back afterwards. Streams belonging to own are left alone.
type Ducker struct {
	mixer  Mixer
	own    []string
	factor float64
	fade   time.Duration
	sleep  func(ctx context.Context, d time.Duration)

	mu     sync.Mutex
	ducked map[int]int // id -> volume before ducking
}

func NewDucker(mixer Mixer, own []string, factor float64, fade time.Duration) *Ducker {
	return &Ducker{
		mixer:  mixer,
		own:    append([]string(nil), own...),
		factor: math.Max(0, factor),
		fade:   fade,
		sleep:  util.Sleep,
	}
}

// Duck scales every foreign stream by the factor. A second call before
// Restore does nothing.
func (d *Ducker) Duck(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ducked != nil {
		return nil
	}

	streams, err := d.mixer.Streams(ctx)
	if err != nil {
		return err
	}
	d.ducked = make(map[int]int)
	var moves []move
	for _, s := range streams {
		if d.isOwn(s) {
			continue
		}
		to := clampVolume(int(math.Round(float64(s.Volume) * d.factor)))
		d.ducked[s.ID] = s.Volume
		moves = append(moves, move{id: s.ID, from: s.Volume, to: to})
	}
	return d.ramp(ctx, moves)
}

// Restore fades ducked streams back. Streams opened since Duck are skipped.
func (d *Ducker) Restore(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ducked == nil {
		return nil
	}

	streams, err := d.mixer.Streams(ctx)
	if err != nil {
		return err
	}
	var moves []move
	for _, s := range streams {
		if orig, ok := d.ducked[s.ID]; ok {
			moves = append(moves, move{id: s.ID, from: s.Volume, to: orig})
		}
	}
	d.ducked = nil
	return d.ramp(ctx, moves)
}

func (d *Ducker) isOwn(s Stream) bool {
	for _, name := range d.own {
		if s.App == name {
			return true
		}
	}
	return false
}

type move struct {
	id, from, to int
}

// ramp steps every stream linearly in 10ms increments over the fade time.
func (d *Ducker) ramp(ctx context.Context, moves []move) error {
	if len(moves) == 0 {
		return nil
	}
	steps := max(int(d.fade/(10*time.Millisecond)), 1)
	if d.fade <= 0 {
		steps = 1
	}
	step := d.fade / time.Duration(steps)

	for i := 1; i <= steps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		frac := float64(i) / float64(steps)
		for _, m := range moves {
			v := int(math.Round(float64(m.from) + float64(m.to-m.from)*frac))
			if err := d.mixer.SetVolume(ctx, m.id, v); err != nil {
				return fmt.Errorf("set volume of stream %d: %w", m.id, err)
			}
		}
		if i < steps {
			d.sleep(ctx, step)
		}
	}
	return nil
}

func clampVolume(v int) int {
	return min(max(v, 0), maxVolume)
}

// Pactl talks to PulseAudio or PipeWire through the pactl command.
type Pactl struct{}

func (Pactl) Streams(ctx context.Context) ([]Stream, error) {
	out, err := exec.CommandContext(ctx, "pactl", "list", "sink-inputs").Output()
	if err != nil {
		return nil, fmt.Errorf("pactl list sink-inputs: %w", err)
	}
	return parseSinkInputs(string(out)), nil
}

func (Pactl) SetVolume(ctx context.Context, id, percent int) error {
	arg := strconv.Itoa(clampVolume(percent)) + "%"
	return exec.CommandContext(ctx, "pactl", "set-sink-input-volume", strconv.Itoa(id), arg).Run()
}

var (
	volumeRe = regexp.MustCompile(`(\d+)\s*%`)
	appRe    = regexp.MustCompile(`application\.name = "([^"]*)"`)
)

func parseSinkInputs(text string) []Stream {
	var res []Stream
	blocks := strings.Split(text, "Sink Input #")
	for _, block := range blocks[1:] {
		head, body, ok := strings.Cut(block, "\n")
		if !ok {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(head))
		if err != nil {
			continue
		}
		s := Stream{ID: id}
		for _, line := range strings.Split(body, "\n") {
			line = strings.TrimSpace(line)
			if strings.HasPrefix(line, "Volume:") && s.Volume == 0 {
				if m := volumeRe.FindStringSubmatch(line); m != nil {
					s.Volume, _ = strconv.Atoi(m[1])
				}
			}
			if m := appRe.FindStringSubmatch(line); m != nil && s.App == "" {
				s.App = m[1]
			}
		}
		if s.Volume == 0 && s.App == "" {
			continue
		}
		res = append(res, s)
	}
	return res
}

package indicator

import (
	"math"
	"time"
)

const toneRate = 22050

// note is one sine segment of a chime.
type note struct {
	hz     float64
	length time.Duration
	gain   float64
}

// chime is a short sequence of notes separated by silence.
type chime struct {
	notes []note
	rest  time.Duration
}

var (
	startChime    = chime{notes: []note{{523.25, 60 * time.Millisecond, 0.16}, {783.99, 90 * time.Millisecond, 0.16}}, rest: 18 * time.Millisecond}
	stopChime     = chime{notes: []note{{659.25, 110 * time.Millisecond, 0.16}}}
	completeChime = chime{notes: []note{{659.25, 60 * time.Millisecond, 0.15}, {880, 60 * time.Millisecond, 0.15}, {1046.5, 110 * time.Millisecond, 0.15}}, rest: 15 * time.Millisecond}
	cancelChime   = chime{notes: []note{{440, 80 * time.Millisecond, 0.16}, {329.63, 120 * time.Millisecond, 0.16}}, rest: 20 * time.Millisecond}
)

// render produces mono s16 samples at toneRate.
func (c chime) render() []int16 {
	var out []int16
	gap := sampleCount(c.rest)
	for i, n := range c.notes {
		if i > 0 && gap > 0 {
			out = append(out, make([]int16, gap)...)
		}
		out = append(out, n.render()...)
	}
	return out
}

func (n note) render() []int16 {
	count := sampleCount(n.length)
	if count == 0 || n.hz <= 0 || n.gain <= 0 {
		return nil
	}

	// 4ms linear fade at both ends, never more than a quarter of the note
	fade := min(toneRate*4/1000, count/4)
	fade = max(fade, 1)

	out := make([]int16, count)
	step := 2 * math.Pi * n.hz / toneRate
	for i := range out {
		env := 1.0
		if i < fade {
			env = float64(i) / float64(fade)
		}
		if tail := count - 1 - i; tail < fade {
			env = math.Min(env, float64(tail)/float64(fade))
		}
		out[i] = int16(math.Round(math.Sin(step*float64(i)) * n.gain * env * math.MaxInt16))
	}
	return out
}

func sampleCount(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * toneRate))
}

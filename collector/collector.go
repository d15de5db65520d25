// Package collector buffers timestamped events arriving from arbitrary
// goroutines (MIDI inputs, a plugin host, tests) and hands them out one
// audio block at a time, frames rebased to the block start.
package collector

import (
	"sync"
	"time"

	"github.com/ksalmela/soitin"
	"gitlab.com/gomidi/midi/v2"
)

// Events are stamped on arrival against a wall-clock origin, so the frame
// numbers drift relative to the audio clock pulling the blocks out. The
// drift is absorbed the same way the player's MIDI input has always done
// it: every block, the internal clock is nudged a fifth of the way toward
// the observed event times.
const driftDivisor = 5

// maxPending bounds the memory held for events that nobody is draining,
// e.g. MIDI arriving before the device has started. Newest are dropped
// first, like an overflowing input queue.
const maxPending = 4096

const defaultSampleRate = 44100

type Collector struct {
	mu         sync.Mutex
	sampleRate float64
	epoch      time.Time // wall-clock origin of the frame counter
	lastFrame  int       // frame stamp of the newest pending event
	blockStart int       // frame where the next block begins
	pending    []soitin.Event
}

func New() *Collector {
	return &Collector{sampleRate: defaultSampleRate}
}

// Add stamps the message with the current time and queues it. Safe to call
// from any goroutine at any time, including before the first Reset.
func (c *Collector) Add(msg midi.Message, source string) {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pending) >= maxPending {
		return
	}
	if c.epoch.IsZero() {
		c.epoch = now
	}
	frame := int(now.Sub(c.epoch).Seconds() * c.sampleRate)
	if frame < c.lastFrame {
		frame = c.lastFrame // keep stamps non-decreasing
	}
	c.lastFrame = frame
	c.pending = append(c.pending, soitin.Event{Frame: frame, Message: msg, Source: source})
}

// Reset reinitializes the internal clock for a new stream configuration.
// Events queued before the reset are not lost; they are rebased to the very
// start of the new stream and come out in the first block.
func (c *Collector) Reset(sampleRate float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sampleRate > 0 {
		c.sampleRate = sampleRate
	}
	c.epoch = time.Now()
	c.blockStart = 0
	c.lastFrame = 0
	for i := range c.pending {
		c.pending[i].Frame = 0
	}
}

// RemoveNextBlock appends to dst exactly the events belonging to the next
// numSamples samples, frames rebased into [0, numSamples), in non-decreasing
// order, and removes them from the queue. Later events stay queued for the
// following blocks. Callers pass dst[:0] of a slice they keep reusing, so
// the steady state does not allocate.
func (c *Collector) RemoveNextBlock(dst []soitin.Event, numSamples int) []soitin.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	blockEnd := c.blockStart + numSamples
	n := 0
	for n < len(c.pending) && c.pending[n].Frame < blockEnd {
		ev := c.pending[n]
		ev.Frame -= c.blockStart
		if ev.Frame < 0 {
			ev.Frame = 0
		}
		dst = append(dst, ev)
		n++
	}
	if n > 0 {
		rest := copy(c.pending, c.pending[n:])
		c.pending = c.pending[:rest]
	}
	c.blockStart = blockEnd
	if len(c.pending) > 0 {
		// the next event is still in the future; pull the block clock
		// toward it so wall-clock stamps and the audio clock stay close
		delta := c.blockStart - c.pending[0].Frame
		c.blockStart -= delta / driftDivisor
	}
	return dst
}

// Package meter measures per-channel peak and RMS levels of audio blocks.
// It is meant to hang off a device's block tap: Write is called on the
// audio goroutine, Levels from anywhere else.
package meter

import (
	"math"
	"sync"

	"github.com/viterin/vek/vek32"
)

type Decibel float32

// Silence is the floor reported for an all-zero signal.
const Silence Decibel = -120

// windowBlocks is how many recent blocks the peak window covers.
const windowBlocks = 16

type (
	Meter struct {
		mu       sync.Mutex
		channels []channelState
		tmp      []float32
	}

	channelState struct {
		window  ringBuffer[float32] // block peaks, for a short sliding window
		peak    float32             // peak within the window
		maxPeak float32             // all-time peak since Reset
		power   float32             // mean square of the latest block
	}

	ChannelLevels struct {
		Peak    Decibel // sliding-window peak
		MaxPeak Decibel // highest peak seen since Reset
		RMS     Decibel // RMS of the latest block
	}

	// ringBuffer is a fixed-size buffer with a wrapping cursor.
	ringBuffer[T any] struct {
		buffer []T
		cursor int
	}
)

func (r *ringBuffer[T]) writeWrapSingle(value T) {
	r.cursor = (r.cursor + 1) % len(r.buffer)
	r.buffer[r.cursor] = value
}

func New(numChannels int) *Meter {
	m := &Meter{channels: make([]channelState, numChannels)}
	for i := range m.channels {
		m.channels[i].window.buffer = make([]float32, windowBlocks)
	}
	return m
}

// Write feeds one block of output channels into the meter. Channels beyond
// the meter's configured count are ignored.
func (m *Meter) Write(outputs [][]float32, numSamples int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.channels {
		if i >= len(outputs) {
			break
		}
		ch := outputs[i][:numSamples]
		if len(m.tmp) < numSamples {
			m.tmp = make([]float32, numSamples)
		}
		tmp := m.tmp[:numSamples]
		copy(tmp, ch)
		vek32.Abs_Inplace(tmp)
		blockPeak := vek32.Max(tmp)

		s := &m.channels[i]
		s.window.writeWrapSingle(blockPeak)
		s.peak = vek32.Max(s.window.buffer)
		if blockPeak > s.maxPeak {
			s.maxPeak = blockPeak
		}
		sq := vek32.Mul_Into(tmp, ch, ch)
		s.power = vek32.Mean(sq)
	}
}

// Levels returns the current per-channel levels in decibels.
func (m *Meter) Levels() []ChannelLevels {
	m.mu.Lock()
	defer m.mu.Unlock()
	ret := make([]ChannelLevels, len(m.channels))
	for i := range m.channels {
		s := &m.channels[i]
		ret[i] = ChannelLevels{
			Peak:    linearToDecibel(float64(s.peak)),
			MaxPeak: linearToDecibel(float64(s.maxPeak)),
			RMS:     linearToDecibel(math.Sqrt(float64(s.power))),
		}
	}
	return ret
}

func (m *Meter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.channels {
		s := &m.channels[i]
		clear(s.window.buffer)
		s.window.cursor = 0
		s.peak = 0
		s.maxPeak = 0
		s.power = 0
	}
}

func linearToDecibel(v float64) Decibel {
	if v <= 0 {
		return Silence
	}
	db := Decibel(20 * math.Log10(v))
	if db < Silence {
		return Silence
	}
	return db
}

package main

import (
	"math"
	"sync"

	"github.com/ksalmela/soitin"
	"github.com/viterin/vek/vek32"
)

// toneUnit is a minimal processor for trying out the bridge: it renders a
// sine wave for the most recently held MIDI note and silence otherwise.
// Events are applied at their frame offsets, so note changes land mid-block
// where they belong.
type toneUnit struct {
	lock       sync.Mutex
	sampleRate float64
	gain       float32

	phase    float64
	note     byte
	sounding bool
}

func newToneUnit(gain float32) *toneUnit {
	return &toneUnit{gain: gain}
}

func (u *toneUnit) SetPlayConfig(numIn, numOut int, sampleRate float64, blockSize int) {
	u.sampleRate = sampleRate
}

func (u *toneUnit) PrepareToPlay(sampleRate float64, blockSize int) {
	u.sampleRate = sampleRate
	u.phase = 0
}

func (u *toneUnit) ReleaseResources() {}

func (u *toneUnit) Suspended() bool { return false }

func (u *toneUnit) CallbackLock() *sync.Mutex { return &u.lock }

func (u *toneUnit) ProcessBlock(buf *soitin.Buffer, events []soitin.Event) {
	numSamples := buf.NumSamples()
	from := 0
	for _, ev := range events {
		u.render(buf, from, ev.Frame)
		from = ev.Frame
		var channel, key, velocity uint8
		switch {
		case ev.Message.GetNoteOn(&channel, &key, &velocity):
			u.note = key
			u.sounding = true
		case ev.Message.GetNoteOff(&channel, &key, &velocity):
			if key == u.note {
				u.sounding = false
			}
		}
	}
	u.render(buf, from, numSamples)
}

func (u *toneUnit) render(buf *soitin.Buffer, from, to int) {
	if to <= from {
		return
	}
	first := buf.Channel(0)[from:to]
	if !u.sounding || u.sampleRate <= 0 {
		clear(first)
	} else {
		freq := 440 * math.Pow(2, (float64(u.note)-69)/12)
		step := 2 * math.Pi * freq / u.sampleRate
		for i := range first {
			first[i] = float32(math.Sin(u.phase))
			u.phase += step
		}
		vek32.MulNumber_Inplace(first, u.gain)
	}
	for ch := 1; ch < buf.NumChannels(); ch++ {
		copy(buf.Channel(ch)[from:to], first)
	}
}

// Package oto plays audio through the system output using
// github.com/hajimehoshi/oto, and provides a software output Device that
// drives a soitin.DeviceCallback one block at a time.
package oto

import (
	"fmt"

	"github.com/hajimehoshi/oto"
	"github.com/ksalmela/soitin"
)

type Context struct {
	ctx         *oto.Context
	sampleRate  int
	numChannels int
}

type Output struct {
	player    *oto.Player
	tmpBuffer []byte
}

// bufferSizeBytes is the byte size of the oto-internal buffer; its fill
// level is what paces the device loop.
const bufferSizeBytes = 8192

func NewContext(sampleRate, numChannels int) (*Context, error) {
	ctx, err := oto.NewContext(sampleRate, numChannels, 2, bufferSizeBytes)
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	return &Context{ctx: ctx, sampleRate: sampleRate, numChannels: numChannels}, nil
}

func (c *Context) Output() soitin.AudioSink {
	return &Output{player: c.ctx.NewPlayer(), tmpBuffer: make([]byte, 0)}
}

func (c *Context) SampleRate() int { return c.sampleRate }

func (c *Context) NumChannels() int { return c.numChannels }

func (c *Context) Close() error {
	if err := c.ctx.Close(); err != nil {
		return fmt.Errorf("cannot close oto context: %w", err)
	}
	return nil
}

// WriteAudio implements soitin.AudioSink. It blocks until the oto buffer has
// room, which is what meters the callback loop to real time.
func (o *Output) WriteAudio(floatBuffer []float32) error {
	// reuse the old capacity of tmpBuffer by truncating it to zero length,
	// then keep the result around for the next call
	o.tmpBuffer = FloatBufferTo16BitLE(floatBuffer, o.tmpBuffer[:0])
	if _, err := o.player.Write(o.tmpBuffer); err != nil {
		return fmt.Errorf("cannot write to player: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	if err := o.player.Close(); err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return nil
}

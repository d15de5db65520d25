package oto_test

import (
	"sync/atomic"
	"testing"

	"github.com/ksalmela/soitin"
	"github.com/ksalmela/soitin/oto"
)

// countingSink lets the device loop run for a fixed number of blocks and
// then parks, so tests control how many callbacks happen.
type countingSink struct {
	blocks  atomic.Int32
	limit   int32
	release chan struct{}
	written []float32
}

func newCountingSink(limit int32) *countingSink {
	return &countingSink{limit: limit, release: make(chan struct{})}
}

func (s *countingSink) WriteAudio(buffer []float32) error {
	if s.blocks.Add(1) >= s.limit {
		s.written = append([]float32(nil), buffer...)
		<-s.release
	}
	return nil
}

func (s *countingSink) Close() error { return nil }

type recordingCallback struct {
	started atomic.Int32
	stopped atomic.Int32
	blocks  atomic.Int32
	rate    float64
	size    int
	in, out int
	fill    float32
}

func (r *recordingCallback) DeviceStarting(device soitin.Device) {
	r.started.Add(1)
	r.rate = device.SampleRate()
	r.size = device.BufferSize()
	r.in = device.ActiveInputChannels()
	r.out = device.ActiveOutputChannels()
}

func (r *recordingCallback) DeviceStopped() {
	r.stopped.Add(1)
}

func (r *recordingCallback) IOCallback(inputs, outputs [][]float32, numSamples int) {
	r.blocks.Add(1)
	for i := range outputs {
		for j := 0; j < numSamples; j++ {
			outputs[i][j] = r.fill + float32(i)
		}
	}
}

func TestDeviceLifecycle(t *testing.T) {
	sink := newCountingSink(3)
	device := oto.NewDevice(sink, 48000, 64, 2)
	cb := &recordingCallback{fill: 0.25}

	if err := device.Start(cb); err != nil {
		t.Fatal(err)
	}
	if err := device.Start(cb); err == nil {
		t.Error("second Start did not fail")
	}
	close(sink.release)
	device.Stop()
	device.Stop() // safe when not running

	if cb.started.Load() != 1 || cb.stopped.Load() != 1 {
		t.Errorf("started/stopped = %d/%d, want 1/1", cb.started.Load(), cb.stopped.Load())
	}
	if cb.rate != 48000 || cb.size != 64 || cb.in != 0 || cb.out != 2 {
		t.Errorf("device reported (%v, %d, %d, %d)", cb.rate, cb.size, cb.in, cb.out)
	}
	if cb.blocks.Load() < 3 {
		t.Errorf("only %d blocks delivered", cb.blocks.Load())
	}
}

func TestDeviceInterleavesOutput(t *testing.T) {
	sink := newCountingSink(1)
	device := oto.NewDevice(sink, 44100, 4, 2)
	cb := &recordingCallback{fill: 0.5}

	if err := device.Start(cb); err != nil {
		t.Fatal(err)
	}
	close(sink.release)
	device.Stop()

	if len(sink.written) != 8 {
		t.Fatalf("wrote %d samples, want 8", len(sink.written))
	}
	for i, v := range sink.written {
		want := float32(0.5)
		if i%2 == 1 {
			want = 1.5
		}
		if v != want {
			t.Errorf("interleaved[%d] = %v, want %v", i, v, want)
		}
	}
}

func TestFloatBufferTo16BitLE(t *testing.T) {
	got := oto.FloatBufferTo16BitLE([]float32{0, 1, -1, 2, -2}, nil)
	want := []byte{0, 0, 0xff, 0x7f, 0x01, 0x80, 0xff, 0x7f, 0x01, 0x80}
	if len(got) != len(want) {
		t.Fatalf("got %d bytes, want %d", len(got), len(want))
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("byte %d = %#x, want %#x", i, got[i], want[i])
		}
	}
}

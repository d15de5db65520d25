package oto

import (
	"errors"
	"sync"

	"github.com/ksalmela/soitin"
)

// Device is a software output-only audio device: it pulls fixed-size blocks
// from a soitin.DeviceCallback on its own goroutine and writes them to an
// AudioSink. The sink's backpressure paces the loop, and the single loop
// goroutine guarantees one in-flight callback at a time.
type Device struct {
	sink       soitin.AudioSink
	sampleRate float64
	blockSize  int
	numOutputs int

	// Tap, if set, observes every output block right after the callback,
	// still on the device goroutine. Used for metering.
	Tap func(outputs [][]float32, numSamples int)

	mu       sync.Mutex
	callback soitin.DeviceCallback
	closer   chan struct{}
	finished chan struct{}

	outputs     [][]float32
	interleaved []float32
}

func NewDevice(sink soitin.AudioSink, sampleRate float64, blockSize, numOutputs int) *Device {
	d := &Device{
		sink:        sink,
		sampleRate:  sampleRate,
		blockSize:   blockSize,
		numOutputs:  numOutputs,
		outputs:     make([][]float32, numOutputs),
		interleaved: make([]float32, blockSize*numOutputs),
	}
	for i := range d.outputs {
		d.outputs[i] = make([]float32, blockSize)
	}
	return d
}

func (d *Device) SampleRate() float64      { return d.sampleRate }
func (d *Device) BufferSize() int          { return d.blockSize }
func (d *Device) ActiveInputChannels() int { return 0 }
func (d *Device) ActiveOutputChannels() int {
	return d.numOutputs
}

// Start invokes the callback's DeviceStarting hook and begins delivering
// blocks. Returns an error if the device is already running.
func (d *Device) Start(callback soitin.DeviceCallback) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closer != nil {
		return errors.New("device already started")
	}
	d.callback = callback
	d.closer = make(chan struct{})
	d.finished = make(chan struct{})
	callback.DeviceStarting(d)
	go d.run(callback, d.closer, d.finished)
	return nil
}

// Stop halts the block loop, waits for it to finish and invokes the
// callback's DeviceStopped hook. Safe to call when not running.
func (d *Device) Stop() {
	d.mu.Lock()
	closer, finished := d.closer, d.finished
	callback := d.callback
	d.closer, d.finished, d.callback = nil, nil, nil
	d.mu.Unlock()
	if closer == nil {
		return
	}
	close(closer)
	<-finished
	callback.DeviceStopped()
}

func (d *Device) run(callback soitin.DeviceCallback, closer, finished chan struct{}) {
	defer close(finished)
	for {
		select {
		case <-closer:
			return
		default:
		}
		callback.IOCallback(nil, d.outputs, d.blockSize)
		if d.Tap != nil {
			d.Tap(d.outputs, d.blockSize)
		}
		for ch, out := range d.outputs {
			for i, v := range out {
				d.interleaved[i*d.numOutputs+ch] = v
			}
		}
		if err := d.sink.WriteAudio(d.interleaved); err != nil {
			return
		}
	}
}

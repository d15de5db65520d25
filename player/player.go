// Package player implements the bridge between an audio I/O device and an
// installed soitin.Processor: it remaps mismatched channel counts on every
// block without allocating, merges queued control events into the right
// block, and lets the processor be swapped while callbacks are in flight.
package player

import (
	"sync"

	"github.com/ksalmela/soitin"
	"github.com/ksalmela/soitin/collector"
	"gitlab.com/gomidi/midi/v2"
)

// channelSlack is extra capacity in the channel-pointer table beyond
// max(inputs, outputs), so a device reporting one channel more than it
// announced does not force a resize in the callback.
const channelSlack = 2

// eventCapacity is the initial capacity of the per-block event slice.
const eventCapacity = 64

type (
	// Player owns the current stream configuration, the installed processor
	// and the scratch storage the real-time callback needs. One exclusive
	// lock serializes configuration changes, the processor swap step and
	// callback execution against each other; it is only ever held for
	// pointer and field updates, never across PrepareToPlay or
	// ReleaseResources calls.
	Player struct {
		mu sync.Mutex

		processor soitin.Processor
		prepared  bool

		sampleRate float64
		blockSize  int
		numInputs  int
		numOutputs int

		channels [][]float32    // per-block channel table, capacity fixed at configure time
		remap    [][]float32    // scratch channels for surplus inputs
		incoming []soitin.Event // events of the current block, reused every callback
		block    soitin.Buffer

		messages *collector.Collector
	}
)

func New() *Player {
	return &Player{
		incoming: make([]soitin.Event, 0, eventCapacity),
		messages: collector.New(),
	}
}

// PrepareToPlay configures the player for a stream. If a processor is
// installed it is uninstalled and immediately reinstalled, forcing a
// release-then-prepare cycle, so the processor never observes the channel
// counts changing mid-life.
func (p *Player) PrepareToPlay(sampleRate float64, blockSize, numInputs, numOutputs int) {
	p.mu.Lock()
	p.sampleRate = sampleRate
	p.blockSize = blockSize
	p.numInputs = numInputs
	p.numOutputs = numOutputs
	p.messages.Reset(sampleRate)
	p.channels = make([][]float32, max(numInputs, numOutputs)+channelSlack)
	processor := p.processor
	p.mu.Unlock()

	if processor != nil {
		p.SetProcessor(nil)
		p.SetProcessor(processor)
	}
}

// SetProcessor installs a processor, replacing and releasing the previous
// one. Passing the currently installed processor is a no-op; passing nil
// uninstalls. The new processor is prepared before it becomes visible to
// the callback and the old one is released only after it no longer is, both
// outside the lock, so slow lifecycle calls never stall the audio
// goroutine. Until the swap the old processor keeps serving callbacks.
func (p *Player) SetProcessor(processor soitin.Processor) {
	p.mu.Lock()
	if p.processor == processor {
		p.mu.Unlock()
		return
	}
	sampleRate, blockSize := p.sampleRate, p.blockSize
	numIn, numOut := p.numInputs, p.numOutputs
	p.mu.Unlock()

	if processor != nil && sampleRate > 0 && blockSize > 0 {
		processor.SetPlayConfig(numIn, numOut, sampleRate, blockSize)
		processor.PrepareToPlay(sampleRate, blockSize)
	}

	var old soitin.Processor
	p.mu.Lock()
	if p.prepared {
		old = p.processor
	}
	p.processor = processor
	p.prepared = true
	p.mu.Unlock()

	if old != nil {
		old.ReleaseResources()
	}
}

// Processor returns the currently installed processor, or nil.
func (p *Player) Processor() soitin.Processor {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.processor
}

// Close uninstalls and releases any installed processor.
func (p *Player) Close() {
	p.SetProcessor(nil)
}

// DeviceStarting implements soitin.DeviceCallback by configuring the player
// from the device that is about to start.
func (p *Player) DeviceStarting(device soitin.Device) {
	p.PrepareToPlay(device.SampleRate(), device.BufferSize(),
		device.ActiveInputChannels(), device.ActiveOutputChannels())
}

// DeviceStopped releases the installed processor, if it was prepared, and
// returns the player to the unconfigured state. Safe to call when already
// stopped.
func (p *Player) DeviceStopped() {
	p.mu.Lock()
	var release soitin.Processor
	if p.processor != nil && p.prepared {
		release = p.processor
	}
	p.prepared = false
	p.sampleRate = 0
	p.blockSize = 0
	p.remap = nil
	p.mu.Unlock()

	if release != nil {
		release.ReleaseResources()
	}
}

// HandleMessage queues a control message for delivery inside an upcoming
// block. Callable from any goroutine; this is the hook MIDI transports
// drive.
func (p *Player) HandleMessage(msg midi.Message, source string) {
	p.messages.Add(msg, source)
}

// IOCallback implements soitin.DeviceCallback. It runs on the real-time
// goroutine, never allocates after the first block at a given shape, and
// never fails: an absent processor leaves the passthrough or silence
// written during channel remapping (a direct-monitoring fallback), a
// suspended one gets its outputs re-zeroed.
//
// The unified channel layout handed to the processor is "processable
// output-aliased memory, plus scratch memory only for surplus inputs":
// when inputs outnumber outputs the first channels are the output buffers
// with input copied over and the surplus input channels live in the remap
// scratch; otherwise every channel is an output buffer, input-copied or
// zero-filled.
func (p *Player) IOCallback(inputs, outputs [][]float32, numSamples int) {
	numIn, numOut := len(inputs), len(outputs)

	p.incoming = p.messages.RemoveNextBlock(p.incoming[:0], numSamples)

	if need := max(numIn, numOut); len(p.channels) < need {
		// the device delivered more channels than it was configured for;
		// grow the table here rather than index past it
		p.channels = make([][]float32, need+channelSlack)
	}

	total := 0
	if numIn > numOut {
		p.resizeRemap(numIn-numOut, numSamples)
		for i := 0; i < numOut; i++ {
			ch := outputs[i][:numSamples]
			copy(ch, inputs[i][:numSamples])
			p.channels[total] = ch
			total++
		}
		for i := numOut; i < numIn; i++ {
			ch := p.remap[i-numOut][:numSamples]
			copy(ch, inputs[i][:numSamples])
			p.channels[total] = ch
			total++
		}
	} else {
		for i := 0; i < numIn; i++ {
			ch := outputs[i][:numSamples]
			copy(ch, inputs[i][:numSamples])
			p.channels[total] = ch
			total++
		}
		for i := numIn; i < numOut; i++ {
			ch := outputs[i][:numSamples]
			clear(ch)
			p.channels[total] = ch
			total++
		}
	}
	p.block = soitin.MakeBuffer(p.channels[:total], numSamples)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sampleRate <= 0 || p.blockSize <= 0 {
		// block delivered before DeviceStarting, or after DeviceStopped;
		// emit silence instead of trusting a stale configuration
		for i := range outputs {
			clear(outputs[i][:numSamples])
		}
		return
	}

	if p.processor == nil {
		return
	}

	lock := p.processor.CallbackLock()
	lock.Lock()
	defer lock.Unlock()

	if p.processor.Suspended() {
		for i := range outputs {
			clear(outputs[i][:numSamples])
		}
		return
	}
	p.processor.ProcessBlock(&p.block, p.incoming)
}

// resizeRemap brings the remap scratch to exactly numChannels channels of at
// least numSamples samples. In the steady state the shape matches and this
// does nothing.
func (p *Player) resizeRemap(numChannels, numSamples int) {
	if len(p.remap) == numChannels && (numChannels == 0 || len(p.remap[0]) >= numSamples) {
		return
	}
	p.remap = make([][]float32, numChannels)
	for i := range p.remap {
		p.remap[i] = make([]float32, numSamples)
	}
}

// Package soitin contains the core types of an audio-callback bridge: it
// connects an audio I/O device, which delivers fixed-size sample blocks on a
// real-time goroutine, to a pluggable Processor that can be swapped while
// audio is running. The player package has the orchestrator; this package
// only defines the capabilities the pieces agree on.
package soitin

import (
	"sync"

	"gitlab.com/gomidi/midi/v2"
)

type (
	// Processor is the installable entity that consumes and produces audio
	// for one block at a time. Implementations write their output in place
	// into the buffer they are given. All lifecycle calls (SetPlayConfig,
	// PrepareToPlay, ReleaseResources) come from control goroutines;
	// ProcessBlock comes from the real-time callback and must not block on
	// unbounded work or allocate.
	Processor interface {
		// SetPlayConfig tells the processor the channel layout and timing it
		// will be prepared with. Always called right before PrepareToPlay.
		SetPlayConfig(numInputs, numOutputs int, sampleRate float64, blockSize int)

		// PrepareToPlay lets the processor allocate whatever it needs for
		// rendering. Called before the processor is visible to the callback.
		PrepareToPlay(sampleRate float64, blockSize int)

		// ProcessBlock renders one block in place. The events are scoped to
		// this block, frames relative to its start, in non-decreasing order.
		ProcessBlock(buf *Buffer, events []Event)

		// ReleaseResources undoes PrepareToPlay. Called only after the
		// processor is no longer reachable from the callback.
		ReleaseResources()

		// Suspended reports whether the processor wants silence instead of
		// being asked to render.
		Suspended() bool

		// CallbackLock returns the processor-owned lock that protects its
		// internal state during ProcessBlock. The player holds it for the
		// duration of the dispatch.
		CallbackLock() *sync.Mutex
	}

	// Event is a timestamped control message, typically MIDI. Once delivered
	// to a Processor, Frame is the sample offset from the start of the block.
	Event struct {
		Frame   int
		Message midi.Message
		Source  string
	}

	// Device is the host-side view of a running audio I/O device, enough for
	// the player to configure itself when the device starts.
	Device interface {
		SampleRate() float64
		BufferSize() int
		ActiveInputChannels() int
		ActiveOutputChannels() int
	}

	// DeviceCallback is what an audio I/O device drives: lifecycle hooks
	// around the stream, and one IOCallback per block. The device guarantees
	// a single in-flight IOCallback at a time.
	DeviceCallback interface {
		DeviceStarting(device Device)
		DeviceStopped()
		IOCallback(inputs, outputs [][]float32, numSamples int)
	}
)

package soitin

// AudioSink consumes interleaved float32 audio, e.g. a system audio output.
type AudioSink interface {
	WriteAudio(buffer []float32) error
	Close() error
}

type AudioContext interface {
	Output() AudioSink
	Close() error
}

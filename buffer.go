package soitin

// Buffer is a lifetime-scoped view over a set of equally long sample
// channels. The player assembles one per block out of preallocated storage;
// neither constructing nor using it allocates. A Processor reads and writes
// the block through the channels, in place.
type Buffer struct {
	channels   [][]float32
	numSamples int
}

// MakeBuffer wraps the given channels, each at least numSamples long, into a
// Buffer of exactly numSamples samples.
func MakeBuffer(channels [][]float32, numSamples int) Buffer {
	return Buffer{channels: channels, numSamples: numSamples}
}

func (b *Buffer) NumChannels() int { return len(b.channels) }

func (b *Buffer) NumSamples() int { return b.numSamples }

// Channel returns the samples of one channel, sliced to the block length.
func (b *Buffer) Channel(index int) []float32 {
	return b.channels[index][:b.numSamples]
}

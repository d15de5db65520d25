//go:build plugin

// Command soitin-vsti wraps the player into a VST2 effect, so the bridge
// can run inside a DAW: host audio buffers drive IOCallback and host MIDI
// events are queued for block-aligned delivery.
package main

import (
	"gitlab.com/gomidi/midi/v2"
	"pipelined.dev/audio/vst2"

	"github.com/ksalmela/soitin/player"
)

const (
	pluginName = "Soitin"
	pluginID   = 'S'<<24 | 'o'<<16 | 'i'<<8 | 't'
)

const numChannels = 2

func init() {
	version := int32(100)
	vst2.PluginAllocator = func(h vst2.Host) (vst2.Plugin, vst2.Dispatcher) {
		p := player.New()
		var (
			ins        [numChannels][]float32
			outs       [numChannels][]float32
			sampleRate float64
			blockSize  int
		)
		return vst2.Plugin{
				UniqueID:       pluginID,
				Version:        version,
				InputChannels:  numChannels,
				OutputChannels: numChannels,
				Name:           pluginName,
				Vendor:         "ksalmela/soitin",
				Category:       vst2.PluginCategoryEffect,
				ProcessFloatFunc: func(in, out vst2.FloatBuffer) {
					rate := 44100.0
					if timeInfo := h.GetTimeInfo(0); timeInfo != nil && timeInfo.SampleRate > 0 {
						rate = timeInfo.SampleRate
					}
					if rate != sampleRate || out.Frames != blockSize {
						sampleRate, blockSize = rate, out.Frames
						p.PrepareToPlay(sampleRate, blockSize, numChannels, numChannels)
					}
					for ch := 0; ch < numChannels; ch++ {
						ins[ch] = in.Channel(ch)
						outs[ch] = out.Channel(ch)
					}
					p.IOCallback(ins[:], outs[:], out.Frames)
				},
			}, vst2.Dispatcher{
				CanDoFunc: func(pcds vst2.PluginCanDoString) vst2.CanDoResponse {
					switch pcds {
					case vst2.PluginCanReceiveEvents, vst2.PluginCanReceiveMIDIEvent, vst2.PluginCanReceiveTimeInfo:
						return vst2.YesCanDo
					}
					return vst2.NoCanDo
				},
				ProcessEventsFunc: func(ev *vst2.EventsPtr) {
					for i := 0; i < ev.NumEvents(); i++ {
						switch v := ev.Event(i).(type) {
						case *vst2.MIDIEvent:
							msg := midi.Message{v.Data[0], v.Data[1], v.Data[2]}
							p.HandleMessage(msg, "host")
						}
					}
				},
				CloseFunc: func() {
					p.Close()
				},
			}
	}
}

func main() {}

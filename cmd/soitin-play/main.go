// Command soitin-play runs the audio-callback bridge against the system
// audio output: it opens a MIDI input, installs a small test-tone processor
// and plays until interrupted, printing output levels.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ksalmela/soitin/gomidi"
	"github.com/ksalmela/soitin/meter"
	"github.com/ksalmela/soitin/oto"
	"github.com/ksalmela/soitin/player"
)

type config struct {
	SampleRate     int     `yaml:"sampleRate"`
	BufferSize     int     `yaml:"bufferSize"`
	OutputChannels int     `yaml:"outputChannels"`
	MIDIInput      string  `yaml:"midiInput"` // name prefix; empty takes the first device
	Gain           float32 `yaml:"gain"`
}

func defaultConfig() config {
	return config{
		SampleRate:     44100,
		BufferSize:     512,
		OutputChannels: 2,
		Gain:           0.2,
	}
}

func main() {
	configFile := flag.String("c", "", "Read playback configuration from this YAML file.")
	listMIDI := flag.Bool("l", false, "List MIDI input devices and exit.")
	quiet := flag.Bool("q", false, "Do not print output levels.")
	flag.Parse()

	conf := defaultConfig()
	if *configFile != "" {
		contents, err := os.ReadFile(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not read config: %v\n", err)
			os.Exit(1)
		}
		if err := yaml.Unmarshal(contents, &conf); err != nil {
			fmt.Fprintf(os.Stderr, "could not parse config: %v\n", err)
			os.Exit(1)
		}
	}

	p := player.New()
	midiContext := gomidi.NewContext(p)
	defer midiContext.Close()

	if *listMIDI {
		midiContext.InputDevices(func(device gomidi.Device) bool {
			fmt.Println(device)
			return true
		})
		return
	}

	if err := midiContext.TryToOpenBy(conf.MIDIInput, conf.MIDIInput == ""); err != nil {
		fmt.Fprintf(os.Stderr, "MIDI input unavailable: %v\n", err)
		// keep going; the bridge works fine without events
	}

	audioContext, err := oto.NewContext(conf.SampleRate, conf.OutputChannels)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not acquire audio output: %v\n", err)
		os.Exit(1)
	}
	defer audioContext.Close()

	device := oto.NewDevice(audioContext.Output(), float64(conf.SampleRate),
		conf.BufferSize, conf.OutputChannels)
	levels := meter.New(conf.OutputChannels)
	device.Tap = levels.Write

	if err := device.Start(p); err != nil {
		fmt.Fprintf(os.Stderr, "could not start device: %v\n", err)
		os.Exit(1)
	}
	p.SetProcessor(newToneUnit(conf.Gain))

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-interrupt:
			device.Stop()
			p.Close()
			return
		case <-ticker.C:
			if *quiet {
				continue
			}
			for i, l := range levels.Levels() {
				fmt.Printf("ch %d: peak %6.1f dB  rms %6.1f dB   ", i, l.Peak, l.RMS)
			}
			fmt.Println()
		}
	}
}

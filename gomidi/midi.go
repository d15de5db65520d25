// Package gomidi feeds MIDI input from system devices into a Receiver,
// typically a player, using the rtmidi driver.
package gomidi

import (
	"errors"
	"fmt"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

type (
	// Receiver gets every message arriving on the open input device, from
	// the driver's own goroutine.
	Receiver interface {
		HandleMessage(msg midi.Message, source string)
	}

	Context struct {
		driver             *rtmididrv.Driver
		receiver           Receiver
		currentIn          drivers.In
		inputDevices       []Device
		devicesInitialized bool
	}

	Device struct {
		context *Context
		in      drivers.In
	}
)

// NewContext opens the rtmidi driver. If no driver is available, the context
// still works but lists no devices; MIDI input is simply absent.
func NewContext(receiver Receiver) *Context {
	c := &Context{receiver: receiver}
	c.driver, _ = rtmididrv.New()
	return c
}

// InputDevices iterates over the system MIDI input devices.
func (c *Context) InputDevices(yield func(Device) bool) {
	if c.devicesInitialized {
		for _, device := range c.inputDevices {
			if !yield(device) {
				break
			}
		}
		return
	}
	if c.driver == nil {
		return
	}
	ins, err := c.driver.Ins()
	if err != nil {
		return
	}
	for _, in := range ins {
		device := Device{context: c, in: in}
		c.inputDevices = append(c.inputDevices, device)
		if !yield(device) {
			break
		}
	}
	c.devicesInitialized = true
}

// Open starts listening on the device, closing the previously open one if
// necessary.
func (d Device) Open() error {
	c := d.context
	if c.currentIn == d.in {
		return nil
	}
	if c.driver == nil {
		return errors.New("no MIDI driver available")
	}
	if c.HasDeviceOpen() {
		c.currentIn.Close()
	}
	c.currentIn = d.in
	if err := d.in.Open(); err != nil {
		c.currentIn = nil
		return fmt.Errorf("opening MIDI input failed: %w", err)
	}
	source := d.in.String()
	_, err := midi.ListenTo(d.in, func(msg midi.Message, timestampms int32) {
		c.receiver.HandleMessage(msg, source)
	})
	if err != nil {
		d.in.Close()
		c.currentIn = nil
		return fmt.Errorf("listening to MIDI input failed: %w", err)
	}
	return nil
}

func (d Device) String() string {
	return d.in.String()
}

// TryToOpenBy opens the first input device whose name starts with
// namePrefix, or just the first device if takeFirst is set.
func (c *Context) TryToOpenBy(namePrefix string, takeFirst bool) error {
	if namePrefix == "" && !takeFirst {
		return nil
	}
	var found *Device
	c.InputDevices(func(device Device) bool {
		if takeFirst || strings.HasPrefix(device.String(), namePrefix) {
			found = &device
			return false
		}
		return true
	})
	if found == nil {
		if takeFirst {
			return errors.New("no MIDI inputs found")
		}
		return fmt.Errorf("no MIDI input starting with %q", namePrefix)
	}
	return found.Open()
}

func (c *Context) HasDeviceOpen() bool {
	return c.currentIn != nil && c.currentIn.IsOpen()
}

func (c *Context) Close() {
	if c.driver == nil {
		return
	}
	if c.currentIn != nil && c.currentIn.IsOpen() {
		c.currentIn.Close()
	}
	c.driver.Close()
}

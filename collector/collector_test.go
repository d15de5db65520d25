package collector_test

import (
	"sync"
	"testing"

	"github.com/ksalmela/soitin"
	"github.com/ksalmela/soitin/collector"
	"gitlab.com/gomidi/midi/v2"
)

func TestAddBeforeResetIsBuffered(t *testing.T) {
	c := collector.New()
	c.Add(midi.NoteOn(0, 60, 100), "early")
	c.Reset(48000)

	events := c.RemoveNextBlock(nil, 128)
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Frame != 0 {
		t.Errorf("pre-reset event frame = %d, want 0", events[0].Frame)
	}
	if events[0].Source != "early" {
		t.Errorf("source = %q, want %q", events[0].Source, "early")
	}
}

func TestBlockScopedDelivery(t *testing.T) {
	c := collector.New()
	c.Reset(44100)
	c.Add(midi.NoteOn(1, 64, 90), "in")
	c.Add(midi.NoteOff(1, 64), "in")

	events := c.RemoveNextBlock(nil, 512)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	prev := 0
	for i, ev := range events {
		if ev.Frame < 0 || ev.Frame >= 512 {
			t.Errorf("event %d frame %d outside [0, 512)", i, ev.Frame)
		}
		if ev.Frame < prev {
			t.Errorf("event %d out of order", i)
		}
		prev = ev.Frame
	}

	if again := c.RemoveNextBlock(nil, 512); len(again) != 0 {
		t.Errorf("events delivered twice: %d", len(again))
	}
}

func TestDstReuseDoesNotGrow(t *testing.T) {
	c := collector.New()
	c.Reset(44100)

	buf := make([]soitin.Event, 0, 8)
	for i := 0; i < 100; i++ {
		c.Add(midi.NoteOn(0, 60, 1), "in")
		got := c.RemoveNextBlock(buf[:0], 64)
		if len(got) != 1 {
			t.Fatalf("round %d: got %d events, want 1", i, len(got))
		}
		if cap(got) != cap(buf) {
			t.Fatalf("round %d: RemoveNextBlock reallocated the slice", i)
		}
	}
}

func TestConcurrentProducers(t *testing.T) {
	c := collector.New()
	c.Reset(44100)

	const producers = 8
	const perProducer = 50
	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				c.Add(midi.NoteOn(0, 60, 100), "in")
			}
		}()
	}
	wg.Wait()

	total := 0
	for i := 0; i < 100 && total < producers*perProducer; i++ {
		total += len(c.RemoveNextBlock(nil, 4096))
	}
	if total != producers*perProducer {
		t.Errorf("drained %d events, want %d", total, producers*perProducer)
	}
}

func TestOverflowDropsNewest(t *testing.T) {
	c := collector.New()
	c.Reset(44100)
	for i := 0; i < 10000; i++ {
		c.Add(midi.NoteOn(0, 60, 100), "in")
	}
	total := 0
	for i := 0; i < 100; i++ {
		n := len(c.RemoveNextBlock(nil, 1<<20))
		total += n
		if n == 0 {
			break
		}
	}
	if total > 4096 {
		t.Errorf("collector held %d events, want at most 4096", total)
	}
	if total == 0 {
		t.Error("collector dropped everything")
	}
}

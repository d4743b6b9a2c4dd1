package player

import (
	"sync"
	"testing"
)

func TestRemoteTransportQueuesAndDrains(t *testing.T) {
	rt := NewRemoteTransport()
	defer rt.Close()

	rt.Load(7)
	rt.Play()
	rt.Seek(30)

	cmds := rt.DrainCommands()
	if len(cmds) != 3 {
		t.Fatalf("expected 3 queued commands, got %d", len(cmds))
	}
	if cmds[0].Action != "load" || cmds[0].TrackID != 7 {
		t.Errorf("first command = %+v, want load track 7", cmds[0])
	}
	if cmds[2].Action != "seek" || cmds[2].Seconds != 30 {
		t.Errorf("third command = %+v, want seek 30", cmds[2])
	}

	if again := rt.DrainCommands(); len(again) != 0 {
		t.Errorf("second drain returned %d commands, want 0", len(again))
	}
}

func TestRemoteTransportClosedIsInert(t *testing.T) {
	rt := NewRemoteTransport()
	rt.Close()
	rt.Close() // idempotent

	rt.Play()
	if cmds := rt.DrainCommands(); len(cmds) != 0 {
		t.Errorf("closed transport queued %d commands, want 0", len(cmds))
	}

	// Must not panic on the closed events channel.
	rt.Report(Event{Type: EventTimeUpdate, Time: 5})

	if _, ok := <-rt.Events(); ok {
		t.Error("expected events channel to be closed")
	}
}

// Report must never send on the channel Close is closing, no matter how
// the two interleave.
func TestRemoteTransportReportDuringClose(t *testing.T) {
	for i := 0; i < 1000; i++ {
		rt := NewRemoteTransport()

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				rt.Report(Event{Type: EventTimeUpdate, Time: j})
			}
		}()
		go func() {
			defer wg.Done()
			rt.Close()
		}()
		wg.Wait()
	}
}

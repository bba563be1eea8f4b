package agent

import "testing"

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
	}{
		{"notInitialized", StatusNotInitialized},
		{"ready", StatusReady},
		{"disconnected", StatusDisconnected},
		{"unauthorized", StatusUnauthorized},
		{"bogus", StatusNotInitialized},
		{"", StatusNotInitialized},
		{"Ready", StatusNotInitialized},
	}
	for _, tt := range tests {
		if got := ParseStatus(tt.in); got != tt.want {
			t.Errorf("ParseStatus(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestStatus_StringRoundTrip(t *testing.T) {
	for _, s := range []Status{StatusNotInitialized, StatusReady, StatusDisconnected, StatusUnauthorized} {
		if got := ParseStatus(s.String()); got != s {
			t.Errorf("ParseStatus(%q) = %v, want %v", s.String(), got, s)
		}
	}
}

func TestStatusTracker_SetOnlyReportsChanges(t *testing.T) {
	tracker := newStatusTracker()
	if tracker.get() != StatusNotInitialized {
		t.Fatalf("initial status = %v, want notInitialized", tracker.get())
	}
	if tracker.set(StatusNotInitialized) {
		t.Error("set() to the current value should report no change")
	}
	if !tracker.set(StatusReady) {
		t.Error("set(ready) should report a change")
	}
	if tracker.get() != StatusReady {
		t.Errorf("get() = %v, want ready", tracker.get())
	}
}

func TestStatusTracker_WatchConflates(t *testing.T) {
	tracker := newStatusTracker()
	updates, stop := tracker.watch()
	defer stop()

	if got := <-updates; got != StatusNotInitialized {
		t.Fatalf("first value = %v, want notInitialized", got)
	}

	// Nobody reads in between: only the latest value is kept.
	tracker.set(StatusReady)
	tracker.set(StatusDisconnected)
	tracker.set(StatusUnauthorized)

	if got := <-updates; got != StatusUnauthorized {
		t.Errorf("buffered value = %v, want unauthorized", got)
	}
	select {
	case got := <-updates:
		t.Errorf("unexpected extra value %v", got)
	default:
	}
}

func TestStatusTracker_StopWatcher(t *testing.T) {
	tracker := newStatusTracker()
	updates, stop := tracker.watch()
	<-updates
	stop()
	stop()

	if _, ok := <-updates; ok {
		t.Error("channel should be closed after stop")
	}
	// Must not panic sending to a closed channel.
	tracker.set(StatusReady)
}

func TestStatusTracker_StopAll(t *testing.T) {
	tracker := newStatusTracker()
	tracker.set(StatusReady)
	updates, _ := tracker.watch()
	tracker.stop()

	if got, ok := <-updates; !ok || got != StatusReady {
		t.Errorf("first value = %v (ok=%v), want ready", got, ok)
	}
	if _, ok := <-updates; ok {
		t.Error("channel should be closed after tracker stop")
	}

	late, stopLate := tracker.watch()
	defer stopLate()
	if got := <-late; got != StatusReady {
		t.Errorf("late watcher value = %v, want ready", got)
	}
	if _, ok := <-late; ok {
		t.Error("late watcher channel should already be closed")
	}
}

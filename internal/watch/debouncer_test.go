package watch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncerSingleEventPassesThrough(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "test.go", Operation: OpCreate, Timestamp: time.Now()})

	select {
	case events := <-d.Output():
		require.Len(t, events, 1)
		assert.Equal(t, "test.go", events[0].Path)
		assert.Equal(t, OpCreate, events[0].Operation)
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for debounced event")
	}
}

func TestDebouncerCreateThenDeleteCancels(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "new.go", Operation: OpCreate})
	d.Add(FileEvent{Path: "new.go", Operation: OpDelete})

	select {
	case events := <-d.Output():
		t.Fatalf("expected no events, got %v", events)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestDebouncerDeleteThenCreateBecomesModify(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "swap.go", Operation: OpDelete})
	d.Add(FileEvent{Path: "swap.go", Operation: OpCreate})

	select {
	case events := <-d.Output():
		require.Len(t, events, 1)
		assert.Equal(t, OpModify, events[0].Operation)
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for debounced event")
	}
}

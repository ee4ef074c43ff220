package clock

import (
	"testing"
	"time"
)

// TestManualAdvance verifies that Manual only moves when advanced.
func TestManualAdvance(t *testing.T) {
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	c := NewManual(start)

	if got := c.Now(); !got.Equal(start) {
		t.Errorf("Now() = %v, want %v", got, start)
	}
	got := c.Advance(90 * time.Second)
	if want := start.Add(90 * time.Second); !got.Equal(want) {
		t.Errorf("Advance() = %v, want %v", got, want)
	}
	if !c.Now().Equal(got) {
		t.Errorf("Now() after Advance = %v, want %v", c.Now(), got)
	}
}

// TestManualSet verifies that Set replaces the current instant.
func TestManualSet(t *testing.T) {
	c := NewManual(time.Time{})
	target := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.Set(target)
	if !c.Now().Equal(target) {
		t.Errorf("Now() = %v, want %v", c.Now(), target)
	}
}

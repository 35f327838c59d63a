package netconn

import (
	"testing"
	"time"
)

func TestBackoff_IdleSequence(t *testing.T) {
	b := NewBackoff(DefaultMinPoll, DefaultMaxPoll)

	if b.Current() != 100*time.Microsecond {
		t.Fatalf("Expected initial sleep 100µs, got: %v", b.Current())
	}

	expected := []time.Duration{
		200 * time.Microsecond,
		400 * time.Microsecond,
		800 * time.Microsecond,
		1600 * time.Microsecond,
		3200 * time.Microsecond,
		6400 * time.Microsecond,
		10 * time.Millisecond,
		10 * time.Millisecond,
		10 * time.Millisecond,
	}

	prev := b.Current()
	for i, want := range expected {
		got := b.Next(false)
		if got != want {
			t.Errorf("Iteration %d: expected %v, got: %v", i, want, got)
		}
		if got < prev {
			t.Errorf("Iteration %d: sleep decreased from %v to %v while idle", i, prev, got)
		}
		if got > DefaultMaxPoll {
			t.Errorf("Iteration %d: sleep %v exceeds cap", i, got)
		}
		prev = got
	}
}

func TestBackoff_ActivityResets(t *testing.T) {
	b := NewBackoff(DefaultMinPoll, DefaultMaxPoll)
	for i := 0; i < 20; i++ {
		b.Next(false)
	}
	if b.Current() != DefaultMaxPoll {
		t.Fatalf("Expected escalated sleep %v, got: %v", DefaultMaxPoll, b.Current())
	}

	if got := b.Next(true); got != DefaultMinPoll {
		t.Errorf("Expected reset to %v, got: %v", DefaultMinPoll, got)
	}
	if got := b.Next(false); got != 2*DefaultMinPoll {
		t.Errorf("Expected %v after reset, got: %v", 2*DefaultMinPoll, got)
	}

	b.Reset()
	if b.Current() != DefaultMinPoll {
		t.Errorf("Expected Reset to restore %v, got: %v", DefaultMinPoll, b.Current())
	}
}

func TestNewBackoff_Bounds(t *testing.T) {
	tests := []struct {
		name    string
		min     time.Duration
		max     time.Duration
		wantMin time.Duration
		wantMax time.Duration
	}{
		{"defaults for zero", 0, 0, DefaultMinPoll, DefaultMaxPoll},
		{"negative", -1, -1, DefaultMinPoll, DefaultMaxPoll},
		{"max below min", time.Millisecond, time.Microsecond, time.Millisecond, time.Millisecond},
		{"custom", time.Millisecond, 50 * time.Millisecond, time.Millisecond, 50 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBackoff(tt.min, tt.max)
			if b.Current() != tt.wantMin {
				t.Errorf("Expected min %v, got: %v", tt.wantMin, b.Current())
			}
			for i := 0; i < 30; i++ {
				b.Next(false)
			}
			if b.Current() != tt.wantMax {
				t.Errorf("Expected max %v, got: %v", tt.wantMax, b.Current())
			}
		})
	}
}

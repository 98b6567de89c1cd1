package quota

import (
	"testing"
	"time"
)

func TestAdmit(t *testing.T) {
	tracker := NewTracker(10000)
	tests := []struct {
		name     string
		used     int64
		expected Verdict
	}{
		{"fresh key", 0, Allow},
		{"below soft threshold", 7998, Allow},
		{"soft threshold boundary", 7999, AllowWithWarning},
		{"exactly at soft threshold", 8000, AllowWithWarning},
		{"last admitted check", 9999, AllowWithWarning},
		{"ceiling reached", 10000, Reject},
		{"well past ceiling", 15000, Reject},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := tracker.Admit(tc.used)
			if d.Verdict != tc.expected {
				t.Fatalf("used=%d: expected %s got %s", tc.used, tc.expected, d.Verdict)
			}
		})
	}
}

func TestAdmitCeilingProgression(t *testing.T) {
	tracker := NewTracker(10000)

	// With L-1 checks used the next one is still admitted ...
	if d := tracker.Admit(9999); d.Verdict == Reject {
		t.Fatal("check at L-1 must be admitted")
	}
	// ... and once it lands, a further check is rejected.
	if d := tracker.Admit(10000); d.Verdict != Reject {
		t.Fatalf("check beyond ceiling must be rejected, got %s", d.Verdict)
	}
}

func TestAdmitDecisionFields(t *testing.T) {
	tracker := NewTracker(100)
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return fixed }

	d := tracker.Admit(100)
	if d.Verdict != Reject {
		t.Fatalf("expected reject, got %s", d.Verdict)
	}
	if d.Limit != 100 || d.Used != 100 {
		t.Fatalf("unexpected figures limit=%d used=%d", d.Limit, d.Used)
	}
	if want := fixed.Add(Window); !d.ResetAt.Equal(want) {
		t.Fatalf("expected reset at %v got %v", want, d.ResetAt)
	}
}

func TestNewTrackerDefaults(t *testing.T) {
	if got := NewTracker(0).Limit(); got != DefaultDailyLimit {
		t.Fatalf("expected default limit %d got %d", DefaultDailyLimit, got)
	}
	if got := NewTracker(-5).Limit(); got != DefaultDailyLimit {
		t.Fatalf("expected default limit %d got %d", DefaultDailyLimit, got)
	}
}

package httpcall

import (
	"testing"
)

func TestNewResponseSizeEstimate(t *testing.T) {
	if _, err := NewResponseSizeEstimate(0); err == nil {
		t.Fatal("expected error for zero estimate")
	}
	if _, err := NewResponseSizeEstimate(MaxPayloadSize + 1); err == nil {
		t.Fatal("expected error for estimate above max payload size")
	}

	e, err := NewResponseSizeEstimate(256)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Get() != 256 {
		t.Fatalf("Get() = %d, want 256", e.Get())
	}
	if e.Effective() != 256+2048 {
		t.Fatalf("Effective() = %d, want %d", e.Effective(), 256+2048)
	}

	max, err := NewResponseSizeEstimate(MaxPayloadSize)
	if err != nil {
		t.Fatalf("max payload size must be a valid estimate: %v", err)
	}
	if max.Get() != MaxPayloadSize {
		t.Fatalf("Get() = %d, want %d", max.Get(), uint64(MaxPayloadSize))
	}
}

func TestResponseSizeEstimateAdjust(t *testing.T) {
	tests := []struct {
		name string
		in   uint64
		want uint64
	}{
		{"small estimates round up to 1 KiB before doubling", 1, 2048},
		{"just below the floor", 1023, 2048},
		{"at the floor", 1024, 2048},
		{"above the floor doubles", 4096, 8192},
		{"doubling is capped at the max payload size", MaxPayloadSize - 10, MaxPayloadSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewResponseSizeEstimate(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := e.Adjust().Get(); got != tt.want {
				t.Fatalf("Adjust(%d) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestAdjustNeverExceedsMax(t *testing.T) {
	e, err := NewResponseSizeEstimate(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 64; i++ {
		e = e.Adjust()
		if e.Get() > MaxPayloadSize {
			t.Fatalf("estimate %d exceeds max payload size after %d adjustments", e.Get(), i+1)
		}
	}
	if e.Get() != MaxPayloadSize {
		t.Fatalf("repeated adjustment should converge to max payload size, got %d", e.Get())
	}
}

func TestRequestCost(t *testing.T) {
	// cost = (400_000_000 + 100_000 * 2 * effective) * 34 / 13
	effective := uint64(256 + 2048)
	want := (uint64(400_000_000) + uint64(100_000)*2*effective) * 34 / 13
	if got := RequestCost(effective); got != want {
		t.Fatalf("RequestCost(%d) = %d, want %d", effective, got, want)
	}

	// Cost must be monotonic in the declared size.
	if RequestCost(100) >= RequestCost(1000) {
		t.Fatal("request cost must grow with the declared response size")
	}
}

package resample

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestResampleLowerBound(t *testing.T) {
	got, err := Resample([]float64{0, 0.2, 0.5, 0.5, 1.0}, 3)
	if err != nil {
		t.Fatalf("Resample: %v", err)
	}
	if diff := cmp.Diff(IndexMap{0, 2, 4}, got); diff != "" {
		t.Fatalf("index map mismatch (-want +got):\n%s", diff)
	}
}

func TestResampleAlwaysReturnsTEntries(t *testing.T) {
	curves := [][]float64{
		{0},
		{0, 1},
		{0, 0.1, 0.2, 0.9, 1},
		{0, 0, 0, 0.01, 0.02, 0.5, 0.99, 1},
	}
	for _, curve := range curves {
		for _, target := range []int{1, 2, 3, 17, 90} {
			got, err := Resample(curve, target)
			if err != nil {
				t.Fatalf("Resample(%v, %d): %v", curve, target, err)
			}
			if len(got) != target {
				t.Fatalf("expected %d entries, got %d", target, len(got))
			}
			for _, idx := range got {
				if idx < 0 || idx >= len(curve) {
					t.Fatalf("index %d out of range for N=%d", idx, len(curve))
				}
			}
			for k := 1; k < len(got); k++ {
				if got[k] < got[k-1] {
					t.Fatalf("index map not monotonic: %v", got)
				}
			}
		}
	}
}

func TestResampleSingleFrame(t *testing.T) {
	got, err := Resample([]float64{0}, 90)
	if err != nil {
		t.Fatalf("Resample: %v", err)
	}
	for k, idx := range got {
		if idx != 0 {
			t.Fatalf("slot %d = %d, want 0", k, idx)
		}
	}
}

func TestResampleClampsWhenCurveNeverReachesOne(t *testing.T) {
	got, err := Resample([]float64{0, 0.3, 0.6}, 3)
	if err != nil {
		t.Fatalf("Resample: %v", err)
	}
	if diff := cmp.Diff(IndexMap{0, 2, 2}, got); diff != "" {
		t.Fatalf("index map mismatch (-want +got):\n%s", diff)
	}
}

func TestResampleIsIdempotent(t *testing.T) {
	curve := []float64{0, 0.05, 0.3, 0.31, 0.7, 0.95, 1}
	first, err := Resample(curve, 12)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Resample(curve, 12)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("resample not deterministic (-first +second):\n%s", diff)
	}
	if curve[2] != 0.3 {
		t.Fatal("input curve mutated")
	}
}

func TestResampleIdentityForUniformRamp(t *testing.T) {
	got, err := Resample([]float64{0, 0.25, 0.5, 0.75, 1}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(IndexMap{0, 1, 2, 3, 4}, got); diff != "" {
		t.Fatalf("index map mismatch (-want +got):\n%s", diff)
	}
	if got.Distinct() != 5 {
		t.Fatalf("expected 5 distinct frames, got %d", got.Distinct())
	}
}

func TestResampleErrors(t *testing.T) {
	if _, err := Resample(nil, 90); !errors.Is(err, ErrEmptyCurve) {
		t.Fatalf("expected ErrEmptyCurve, got %v", err)
	}
	if _, err := Resample([]float64{0}, 0); err == nil {
		t.Fatal("expected error for zero target")
	}
}

func TestDesired(t *testing.T) {
	if diff := cmp.Diff([]float64{0, 0.5, 1}, Desired(3)); diff != "" {
		t.Fatalf("desired mismatch:\n%s", diff)
	}
	if diff := cmp.Diff([]float64{0}, Desired(1)); diff != "" {
		t.Fatalf("desired mismatch:\n%s", diff)
	}
}

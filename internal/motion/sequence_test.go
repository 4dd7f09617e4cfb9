package motion

import (
	"context"
	"errors"
	"os"
	"testing"

	"turntable/internal/frames"
	"turntable/internal/testsupport"
)

func TestEstimateSequenceUnreadableFrameKeepsReference(t *testing.T) {
	dir := t.TempDir()
	scene := testsupport.NewScene(120, 90, 24, 9)
	seq := testsupport.WriteSequence(t, dir, scene, [][2]float64{{0, 0}, {2, 0}, {4, 0}, {6, 0}})
	if err := os.WriteFile(seq.Path(2), []byte("corrupt"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := EstimateSequence(context.Background(), NewNative(DefaultParams()), seq, nil)
	if err != nil {
		t.Fatalf("EstimateSequence: %v", err)
	}
	if len(got) != seq.Len()-1 {
		t.Fatalf("expected %d estimates, got %d", seq.Len()-1, len(got))
	}
	if got[0].Outcome != Measured || got[0].DX < 1.5 || got[0].DX > 2.5 {
		t.Fatalf("unexpected first estimate %+v", got[0])
	}
	if got[1].Outcome != Unreadable || got[1].Displacement != (Displacement{}) {
		t.Fatalf("expected unreadable zero estimate, got %+v", got[1])
	}
	// Frame 3 is compared with frame 1, the last readable reference.
	if got[2].Outcome != Measured || got[2].DX < 3.3 || got[2].DX > 4.7 {
		t.Fatalf("expected ~4px against retained reference, got %+v", got[2])
	}
}

func TestEstimateSequenceShortInputs(t *testing.T) {
	for _, n := range []int{0, 1} {
		seq := frames.Sequence{Dir: t.TempDir(), Names: make([]string, n)}
		got, err := EstimateSequence(context.Background(), NewNative(DefaultParams()), seq, nil)
		if err != nil || len(got) != 0 {
			t.Fatalf("n=%d: expected no estimates, got %d (err=%v)", n, len(got), err)
		}
	}
}

func TestEstimateSequenceHonoursCancellation(t *testing.T) {
	dir := t.TempDir()
	seq := testsupport.WriteSequence(t, dir, testsupport.NewScene(40, 30, 4, 1), [][2]float64{{0, 0}, {1, 0}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := EstimateSequence(ctx, NewNative(DefaultParams()), seq, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDisplacements(t *testing.T) {
	in := []Estimate{{Displacement: Displacement{DX: 1, DY: 2}}, {Outcome: NoFeatures}}
	out := Displacements(in)
	if len(out) != 2 || out[0] != (Displacement{1, 2}) || out[1] != (Displacement{}) {
		t.Fatalf("unexpected displacements %v", out)
	}
}

package ghostsim

import (
	"testing"
)

func TestGhostDriftAndReset(t *testing.T) {
	home := []float64{0, 1, 2}
	g := NewGhost(home, 0.1)

	moved := g.Step()
	if len(moved) != 3 {
		t.Fatalf("unexpected pose length: %d", len(moved))
	}
	same := true
	for i := range home {
		if moved[i] != home[i] {
			same = false
		}
		if d := moved[i] - home[i]; d > 0.1 || d < -0.1 {
			t.Fatalf("joint %d drifted past amplitude: %v", i, d)
		}
	}
	if same {
		t.Fatal("expected drift to move the ghost")
	}

	g.Reset()
	got := g.Pose()
	for i := range home {
		if got[i] != home[i] {
			t.Fatalf("expected home pose after reset, got %v", got)
		}
	}
}

func TestGhostWithoutDriftStaysHome(t *testing.T) {
	g := NewGhost([]float64{0.5}, 0)
	for range 5 {
		if p := g.Step(); p[0] != 0.5 {
			t.Fatalf("expected static ghost, got %v", p)
		}
	}
}

func TestGhostPoseIsCopy(t *testing.T) {
	g := NewGhost([]float64{1, 2}, 0)
	p := g.Pose()
	p[0] = 99
	if g.Pose()[0] != 1 {
		t.Fatal("caller mutation leaked into ghost pose")
	}
}

func TestMarkerJammed(t *testing.T) {
	m := NewMarker(true)
	ok, msg := m.Reset()
	if ok || msg != "jammed" {
		t.Fatalf("expected jammed refusal, got ok=%v msg=%q", ok, msg)
	}
	if m.Resets() != 0 {
		t.Fatalf("jammed reset must not count, got %d", m.Resets())
	}

	m.SetJammed(false)
	ok, _ = m.Reset()
	if !ok || m.Resets() != 1 {
		t.Fatalf("expected successful reset, ok=%v resets=%d", ok, m.Resets())
	}
}

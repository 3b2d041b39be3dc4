package pose

import (
	"slices"
	"sync"
	"testing"
)

func TestCacheReadReturnsIndependentCopy(t *testing.T) {
	c := NewCache("base_link", []string{"j1", "j2", "j3"})
	in := []float64{0.1, 0.2, 0.3}
	c.Update(in)

	in[0] = 9
	snap := c.Read()
	if snap.Positions[0] != 0.1 {
		t.Fatalf("update should copy input, got %v", snap.Positions)
	}

	snap.Positions[1] = 9
	snap.Names[0] = "mutated"
	again := c.Read()
	if again.Positions[1] != 0.2 || again.Names[0] != "j1" {
		t.Fatalf("read should return a copy, got %+v", again)
	}
}

func TestCacheUpdatePreservesHeader(t *testing.T) {
	c := NewCache("base_link", []string{"j1"})
	c.Update([]float64{1})
	c.Update([]float64{2})

	snap := c.Read()
	if snap.Header.FrameID != "base_link" {
		t.Fatalf("unexpected frame: %q", snap.Header.FrameID)
	}
	if snap.Header.Seq != 2 {
		t.Fatalf("unexpected seq: %d", snap.Header.Seq)
	}
	if snap.Header.Stamp.IsZero() {
		t.Fatalf("expected stamp to be set")
	}
	if !slices.Equal(snap.Positions, []float64{2}) {
		t.Fatalf("unexpected positions: %v", snap.Positions)
	}
}

func TestCacheEmptyRead(t *testing.T) {
	snap := NewCache("", nil).Read()
	if len(snap.Positions) != 0 || snap.Header.Seq != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
}

func TestCacheNoTornReads(t *testing.T) {
	c := NewCache("base_link", nil)
	c.Update([]float64{0, 0, 0, 0, 0, 0})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= 2000; i++ {
			v := float64(i)
			c.Update([]float64{v, v, v, v, v, v})
		}
	}()

	for i := 0; i < 2000; i++ {
		snap := c.Read()
		for _, p := range snap.Positions {
			if p != snap.Positions[0] {
				t.Fatalf("torn read: %v", snap.Positions)
			}
		}
	}
	wg.Wait()
}

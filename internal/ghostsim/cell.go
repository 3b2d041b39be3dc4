package ghostsim

import (
	"math"
	"slices"
	"sync"
	"sync/atomic"
)

// Ghost is the teaching pose published on the ghost topic.
type Ghost struct {
	home  []float64
	drift float64

	mu   sync.RWMutex
	pose []float64
	tick uint64
}

func NewGhost(home []float64, drift float64) *Ghost {
	return &Ghost{
		home:  slices.Clone(home),
		drift: drift,
		pose:  slices.Clone(home),
	}
}

// Pose returns a copy of the current ghost pose.
func (g *Ghost) Pose() []float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.pose)
}

// Reset puts the ghost back on its home pose.
func (g *Ghost) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pose = slices.Clone(g.home)
	g.tick = 0
}

// Step advances the drift by one tick and returns the new pose.
func (g *Ghost) Step() []float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.drift == 0 {
		return slices.Clone(g.pose)
	}
	g.tick++
	phase := float64(g.tick) * 0.05
	for i := range g.pose {
		g.pose[i] = g.home[i] + g.drift*math.Sin(phase+float64(i))
	}
	return slices.Clone(g.pose)
}

// Marker is the teaching marker. A jammed marker refuses to reset.
type Marker struct {
	jammed atomic.Bool
	resets atomic.Uint64
}

func NewMarker(jammed bool) *Marker {
	m := &Marker{}
	m.jammed.Store(jammed)
	return m
}

func (m *Marker) SetJammed(jammed bool) {
	m.jammed.Store(jammed)
}

func (m *Marker) Resets() uint64 {
	return m.resets.Load()
}

// Reset reports (success, message) the way the trigger service answers.
func (m *Marker) Reset() (bool, string) {
	if m.jammed.Load() {
		return false, "jammed"
	}
	m.resets.Add(1)
	return true, "teaching marker reset"
}

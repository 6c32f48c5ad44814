// Package volatility tracks the recent history of price-delta plateaus and
// answers how far the delta has drifted within a trailing window.
package volatility

import (
	"math"

	"github.com/rewired-gh/polyflip/internal/models"
)

// Tracker maintains an insertion-ordered history of delta samples. Consecutive
// samples never share a delta: many ticks repeat the same delta while the
// reference price is static between feed pulses, and the history records
// plateau transitions rather than tick density.
type Tracker struct {
	history []models.DeltaSample
}

// New creates an empty tracker.
func New() *Tracker {
	return &Tracker{}
}

// Insert appends a sample unless its delta equals the delta of the most
// recently appended sample. The comparison is exact, not within-tolerance.
func (t *Tracker) Insert(delta, remainingSec float64) {
	if n := len(t.history); n > 0 && t.history[n-1].Delta == delta {
		return
	}
	t.history = append(t.history, models.DeltaSample{Delta: delta, RemainingSec: remainingSec})
}

// Query returns the sample whose delta, measured as distance from the current
// delta, is largest in magnitude among samples recorded within one
// current-remaining-time window. The returned sample carries the transformed
// delta (stored - current); its sign tells which direction the drift went.
//
// The window is expressed in remaining-time space: a sample survives when
// stored.RemainingSec - remainingSec <= remainingSec, so the trailing window
// shrinks as the session runs out. Ties keep the earliest surviving sample
// (strict > in the reduction). ok is false when no sample survives.
func (t *Tracker) Query(remainingSec, delta float64) (models.DeltaSample, bool) {
	var best models.DeltaSample
	found := false
	for _, s := range t.history {
		if s.RemainingSec-remainingSec > remainingSec {
			continue
		}
		mapped := models.DeltaSample{Delta: s.Delta - delta, RemainingSec: s.RemainingSec}
		if !found || math.Abs(mapped.Delta) > math.Abs(best.Delta) {
			best = mapped
			found = true
		}
	}
	return best, found
}

// Clear empties the history. Called once per session at resolution.
func (t *Tracker) Clear() {
	t.history = nil
}

// Len returns the number of recorded plateaus.
func (t *Tracker) Len() int {
	return len(t.history)
}

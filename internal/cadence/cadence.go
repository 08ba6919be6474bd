// Package cadence detects onsets and estimates call repetition tempo
// (C8 in the spec): spectral-flux onset strength, adaptive
// median+MAD thresholding, autocorrelation tempo estimation, and beat
// projection.
//
// Grounded on the teacher's internal/analysis/features.go
// computeSpectralFlux/estimateTempo (autocorrelation over onset
// strengths, BPM clamp) and on
// other_examples/4443991f_andrewarrow-cutlass's find_beats.go for the
// onset/threshold shape.
package cadence

import (
	"math"
	"sort"

	"github.com/huntmasteracademy/gamecalls-engine/internal/enginerr"
)

const (
	minBPM = 20.0
	maxBPM = 400.0

	madThresholdScale = 1.4826 // MAD-to-stddev scale for a normal distribution
	onsetMADMultiple  = 3.0
)

// Tracker accumulates per-frame spectral energy and derives onset
// times and a tempo estimate from it. One Tracker is owned per
// session.
type Tracker struct {
	frameHopSeconds float64

	prevSpectrum []float64
	flux         []float64 // onset strength per frame, oldest first
	onsetFrames  []int     // frame indices flagged as onsets
}

// NewTracker builds a Tracker. hopSeconds is the time, in seconds,
// advanced per analyzed frame (HopSize/SampleRate).
func NewTracker(hopSeconds float64) (*Tracker, error) {
	if hopSeconds <= 0 {
		return nil, enginerr.New("cadence.NewTracker", enginerr.InvalidConfig)
	}
	return &Tracker{frameHopSeconds: hopSeconds}, nil
}

// Reset clears all accumulated onset/flux history.
func (t *Tracker) Reset() {
	t.prevSpectrum = nil
	t.flux = nil
	t.onsetFrames = nil
}

// PushSpectrum folds in one frame's power spectrum, computing
// spectral flux against the previous frame (positive-only energy
// increase, per the teacher's computeSpectralFlux) and appending it
// to the onset-strength history.
func (t *Tracker) PushSpectrum(spectrum []float64) {
	if t.prevSpectrum == nil {
		t.prevSpectrum = append([]float64(nil), spectrum...)
		t.flux = append(t.flux, 0)
		return
	}

	var flux float64
	n := len(spectrum)
	if len(t.prevSpectrum) < n {
		n = len(t.prevSpectrum)
	}
	for i := 0; i < n; i++ {
		d := spectrum[i] - t.prevSpectrum[i]
		if d > 0 {
			flux += d
		}
	}
	t.flux = append(t.flux, flux)
	t.prevSpectrum = append(t.prevSpectrum[:0], spectrum...)
}

// DetectOnsets applies an adaptive median+MAD threshold over the
// accumulated flux history and records frame indices that exceed it,
// returning their timestamps in seconds.
func (t *Tracker) DetectOnsets() []float64 {
	if len(t.flux) < 3 {
		return nil
	}

	sorted := append([]float64(nil), t.flux...)
	sort.Float64s(sorted)
	median := sorted[len(sorted)/2]

	deviations := make([]float64, len(t.flux))
	for i, v := range t.flux {
		deviations[i] = math.Abs(v - median)
	}
	sortedDev := append([]float64(nil), deviations...)
	sort.Float64s(sortedDev)
	mad := sortedDev[len(sortedDev)/2] * madThresholdScale

	threshold := median + onsetMADMultiple*mad

	t.onsetFrames = t.onsetFrames[:0]
	var times []float64
	for i, v := range t.flux {
		if v > threshold {
			t.onsetFrames = append(t.onsetFrames, i)
			times = append(times, float64(i)*t.frameHopSeconds)
		}
	}
	return times
}

// EstimateTempo autocorrelates the flux history to find the
// dominant repetition period, clamping to [minBPM, maxBPM], following
// the teacher's estimateTempo. Returns 0 if there isn't enough history
// to estimate from.
func (t *Tracker) EstimateTempo() float64 {
	n := len(t.flux)
	if n < 8 {
		return 0
	}

	minLagFrames := int(60.0 / maxBPM / t.frameHopSeconds)
	maxLagFrames := int(60.0 / minBPM / t.frameHopSeconds)
	if minLagFrames < 1 {
		minLagFrames = 1
	}
	if maxLagFrames >= n {
		maxLagFrames = n - 1
	}
	if minLagFrames >= maxLagFrames {
		return 0
	}

	bestLag, bestScore := 0, -math.MaxFloat64
	for lag := minLagFrames; lag <= maxLagFrames; lag++ {
		var score float64
		for i := 0; i+lag < n; i++ {
			score += t.flux[i] * t.flux[i+lag]
		}
		if score > bestScore {
			bestScore, bestLag = score, lag
		}
	}
	if bestLag == 0 {
		return 0
	}

	periodSeconds := float64(bestLag) * t.frameHopSeconds
	bpm := 60.0 / periodSeconds
	return clamp(bpm, minBPM, maxBPM)
}

// ProjectNextBeat returns the expected time, in seconds from call
// start, of the next beat after the last detected onset, given a
// tempo in BPM. Returns 0 if no onsets have been detected yet.
func (t *Tracker) ProjectNextBeat(bpm float64) float64 {
	if len(t.onsetFrames) == 0 || bpm <= 0 {
		return 0
	}
	lastOnsetTime := float64(t.onsetFrames[len(t.onsetFrames)-1]) * t.frameHopSeconds
	period := 60.0 / bpm
	return lastOnsetTime + period
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

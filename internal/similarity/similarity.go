// Package similarity combines MFCC alignment into the per-chunk and
// finalized similarity score (C5 in the spec): component distances,
// weighted combination, monotonic normalization, exponential
// smoothing, and the reliability/finalize state machine.
//
// Weighted-combination shape and component naming are grounded on the
// teacher's internal/analysis/similarity.go (FeatureWeights,
// ComputeSimilarity); the component/score/dominant result shape is
// grounded on other_examples/398c822f_CWBudde-algo-piano's
// distance.go (Metrics, Score, Dominant).
package similarity

import (
	"github.com/huntmasteracademy/gamecalls-engine/internal/dtw"
	"github.com/huntmasteracademy/gamecalls-engine/internal/enginerr"
)

// Weights controls how the four alignment components combine into a
// single score, per spec §4.4. Defaults mirror the teacher's
// DefaultWeights but renamed to this domain's four components.
type Weights struct {
	Offset      float64
	DTW         float64
	Mean        float64
	Subsequence float64
}

// DefaultWeights returns the spec's default component weighting:
// offset 0.15, dtw 0.45, mean 0.15, subsequence 0.25.
func DefaultWeights() Weights {
	return Weights{Offset: 0.15, DTW: 0.45, Mean: 0.15, Subsequence: 0.25}
}

// Components holds the raw (unnormalized) distance for each
// alignment component computed for one scoring pass.
type Components struct {
	Offset      float64
	DTW         float64
	Mean        float64
	Subsequence float64
}

// Dominant names the component contributing the largest weighted
// distance, for diagnostics/explainability the way CWBudde's
// Metrics.Dominant does.
func (c Components) Dominant(w Weights) string {
	weighted := map[string]float64{
		"offset":      c.Offset * w.Offset,
		"dtw":         c.DTW * w.DTW,
		"mean":        c.Mean * w.Mean,
		"subsequence": c.Subsequence * w.Subsequence,
	}
	best, bestVal := "", -1.0
	for name, v := range weighted {
		if v > bestVal {
			best, bestVal = name, v
		}
	}
	return best
}

// normScale controls how steeply the 1/(1+x/scale) map falls off;
// larger scale means a given raw distance maps closer to 1.
const normScale = 8.0

// normalize maps a non-negative raw distance to a similarity in
// (0,1], monotonically decreasing, per spec §4.4 step 3.
func normalize(dist float64) float64 {
	if dist < 0 {
		dist = 0
	}
	return 1 / (1 + dist/normScale)
}

// Score computes the combined, normalized similarity in [0,1] for one
// set of component distances under w.
func Score(c Components, w Weights) float64 {
	s := w.Offset*normalize(c.Offset) +
		w.DTW*normalize(c.DTW) +
		w.Mean*normalize(c.Mean) +
		w.Subsequence*normalize(c.Subsequence)
	total := w.Offset + w.DTW + w.Mean + w.Subsequence
	if total == 0 {
		return 0
	}
	return clamp01(s / total)
}

// ComputeComponents aligns the live sequence against the master
// reference using full DTW (dtw/mean components), mean-vector offset
// distance, and subsequence DTW (locating the live span inside the
// longer master), per spec §4.3-4.5.
func ComputeComponents(master, live [][]float64, bandRadius int) (Components, error) {
	if len(master) == 0 || len(live) == 0 {
		return Components{}, enginerr.New("similarity.ComputeComponents", enginerr.EmptyInput)
	}

	full, err := dtw.Align(master, live, bandRadius)
	if err != nil {
		return Components{}, err
	}
	// live is the query (fully traversed); master is the longer
	// reference it is searched within, per §4.4's subsequenceDistance.
	sub, err := dtw.AlignSubsequence(live, master, bandRadius)
	if err != nil {
		return Components{}, err
	}

	meanMaster := meanVector(master)
	meanLive := meanVector(live)
	offsetDist := sqEuclid(meanMaster, meanLive)

	return Components{
		Offset:      offsetDist,
		DTW:         full.Cost / float64(len(master)+len(live)),
		Mean:        full.NormalizedCost(),
		Subsequence: sub.NormalizedCost(),
	}, nil
}

func meanVector(frames [][]float64) []float64 {
	out := make([]float64, len(frames[0]))
	for _, f := range frames {
		for i, v := range f {
			out[i] += v
		}
	}
	for i := range out {
		out[i] /= float64(len(frames))
	}
	return out
}

// sqEuclid returns the squared-Euclidean distance between a and b, per
// §4.5's offset/mean components (unlike a true distance metric, no
// sqrt is taken).
func sqEuclid(a, b []float64) float64 {
	var sum float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Smoother exponentially smooths successive raw scores, per spec
// §4.4's s_t = 0.7*s_{t-1} + 0.3*new, carried over from the teacher's
// internal/audio/analyzer.go smoothingFactor pattern.
type Smoother struct {
	alpha   float64 // weight retained from the previous smoothed value
	current float64
	primed  bool
}

// NewSmoother builds a Smoother with the spec default alpha=0.7.
func NewSmoother() *Smoother { return &Smoother{alpha: 0.7} }

// Push folds in a new raw score and returns the updated smoothed
// value. The first call seeds the smoother with raw unchanged.
func (s *Smoother) Push(raw float64) float64 {
	if !s.primed {
		s.current = raw
		s.primed = true
		return s.current
	}
	s.current = s.alpha*s.current + (1-s.alpha)*raw
	return s.current
}

// Value returns the last smoothed value without mutating state.
func (s *Smoother) Value() float64 { return s.current }

// Reset clears the smoother back to an unprimed state.
func (s *Smoother) Reset() { s.current = 0; s.primed = false }

// MinFramesRequired returns the minimum number of live frames needed
// before a score is considered reliable, per spec §4.4's
// max(25, 0.25*masterFrameCount) gate.
func MinFramesRequired(masterFrames int) int {
	min := int(0.25 * float64(masterFrames))
	if min < 25 {
		min = 25
	}
	return min
}

// Reliability reports whether enough live frames have accumulated to
// trust a score, independent of whether the score itself is high or
// low (spec §4.4: reliability is a distinct signal from a genuine
// low score).
func Reliability(liveFrames, masterFrames int) (reliable bool, kind enginerr.Kind) {
	if liveFrames < MinFramesRequired(masterFrames) {
		return false, enginerr.InsufficientData
	}
	return true, ""
}

// State tracks a session's running and finalized similarity scores
// against one master call, including the finalize/re-finalize
// contract from spec §4.10 ("finalize wins": once finalized, further
// chunk scoring must not overwrite the finalized value).
type State struct {
	Weights    Weights
	smoother   *Smoother
	finalized  bool
	finalScore float64
	finalComps Components
}

// NewState builds fresh similarity tracking state with default
// weights.
func NewState() *State {
	return &State{Weights: DefaultWeights(), smoother: NewSmoother()}
}

// UpdateChunk folds a new component measurement into the running
// smoothed score. It is a no-op returning the frozen final score once
// Finalize has been called.
func (st *State) UpdateChunk(c Components) float64 {
	if st.finalized {
		return st.finalScore
	}
	raw := Score(c, st.Weights)
	return st.smoother.Push(raw)
}

// Finalize recomputes the score from lastComponents with no smoothing
// and freezes it as the session's canonical result, per §4.5 ("a full,
// non-streaming computation ... is the canonical result"). Calling it
// again returns AlreadyFinalized, per spec §4.10.
func (st *State) Finalize(lastComponents Components) (float64, error) {
	if st.finalized {
		return 0, enginerr.New("similarity.Finalize", enginerr.AlreadyFinalized)
	}
	st.finalized = true
	st.finalScore = Score(lastComponents, st.Weights)
	st.finalComps = lastComponents
	return st.finalScore, nil
}

// Finalized reports whether Finalize has already run.
func (st *State) Finalized() bool { return st.finalized }

// Current returns the live smoothed score, or the frozen value after
// finalize.
func (st *State) Current() float64 {
	if st.finalized {
		return st.finalScore
	}
	return st.smoother.Value()
}

// Reset clears all running and finalized state, per spec §4.10's
// reset semantics.
func (st *State) Reset() {
	st.smoother.Reset()
	st.finalized = false
	st.finalScore = 0
	st.finalComps = Components{}
}

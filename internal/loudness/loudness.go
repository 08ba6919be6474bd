// Package loudness tracks RMS/peak amplitude and a slow-adapting
// normalization scalar (C9 in the spec).
//
// Grounded on the teacher's internal/analysis/features.go computeRMS
// and computeDynamicRange, and on internal/audio/analyzer.go's
// exponential smoothingFactor pattern for the time-constant smoothing
// applied here.
package loudness

import (
	"math"

	"github.com/huntmasteracademy/gamecalls-engine/internal/enginerr"
)

// defaultTauMillis is the smoothing time constant, per spec §4.9
// (~100ms).
const defaultTauMillis = 100.0

// Monitor tracks smoothed RMS and peak loudness across chunks,
// along with a slowly adapting normalization scalar used to
// compensate for differing input gain between a master call and a
// live session.
type Monitor struct {
	sampleRate int
	alpha      float64 // per-sample smoothing coefficient derived from tau and sample rate

	smoothedRMS float64
	peak        float64
	normScalar  float64
	primed      bool
}

// Config configures a Monitor's sample rate and smoothing time
// constant.
type Config struct {
	SampleRate int
	TauMillis  float64 // 0 defaults to defaultTauMillis
}

// NewMonitor builds a Monitor. The per-sample smoothing coefficient is
// derived from tau and the sample rate; PushChunk compounds it over the
// chunk length so the effective decay matches TauMillis regardless of
// chunk size.
func NewMonitor(cfg Config) (*Monitor, error) {
	if cfg.SampleRate <= 0 {
		return nil, enginerr.New("loudness.NewMonitor", enginerr.InvalidSampleRate)
	}
	if cfg.TauMillis == 0 {
		cfg.TauMillis = defaultTauMillis
	}
	return &Monitor{
		sampleRate: cfg.SampleRate,
		alpha:      math.Exp(-1.0 / (cfg.TauMillis / 1000.0 * float64(cfg.SampleRate))),
		normScalar: 1.0,
	}, nil
}

// Snapshot is one PushChunk result.
type Snapshot struct {
	RMS        float64
	Peak       float64
	NormScalar float64
}

// PushChunk folds in one chunk of PCM samples, updating smoothed RMS,
// running peak, and the normalization scalar.
func (m *Monitor) PushChunk(samples []float64) (Snapshot, error) {
	if len(samples) == 0 {
		return Snapshot{}, enginerr.New("loudness.PushChunk", enginerr.EmptyInput)
	}

	var sumSq float64
	chunkPeak := 0.0
	for _, s := range samples {
		sumSq += s * s
		if abs := math.Abs(s); abs > chunkPeak {
			chunkPeak = abs
		}
	}
	rms := math.Sqrt(sumSq / float64(len(samples)))

	if !m.primed {
		m.smoothedRMS = rms
		m.peak = chunkPeak
		m.primed = true
	} else {
		// Per-sample decay compounded over the chunk length, matching
		// the single-pole smoothing the teacher applies per-frame.
		decay := math.Pow(m.alpha, float64(len(samples)))
		m.smoothedRMS = decay*m.smoothedRMS + (1-decay)*rms
		if chunkPeak > m.peak {
			m.peak = chunkPeak
		} else {
			m.peak = decay*m.peak + (1-decay)*chunkPeak
		}
	}

	// Normalization scalar adapts slowly toward bringing smoothedRMS
	// to a nominal -20dBFS (0.1 linear) target, following the
	// teacher's computeDynamicRange normalization intent.
	const target = 0.1
	if m.smoothedRMS > 1e-6 {
		desired := target / m.smoothedRMS
		m.normScalar = 0.99*m.normScalar + 0.01*desired
	}

	return Snapshot{RMS: m.smoothedRMS, Peak: m.peak, NormScalar: m.normScalar}, nil
}

// Reset clears all smoothed state back to an unprimed Monitor.
func (m *Monitor) Reset() {
	m.smoothedRMS = 0
	m.peak = 0
	m.normScalar = 1.0
	m.primed = false
}

// Package pitch implements YIN fundamental-frequency tracking with
// parabolic interpolation and vibrato detection (C6 in the spec).
//
// Grounded on the teacher's internal/audio/analyzer.go frame-buffer
// shape for per-call analysis state; the YIN algorithm itself has no
// direct analogue in the teacher and is written from first principles
// per spec §4.6, using gonum/stat.Correlation (already a transitive
// dependency via gonum) for the vibrato r^2 gate.
package pitch

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/huntmasteracademy/gamecalls-engine/internal/enginerr"
)

const (
	// DefaultThreshold is YIN's absolute-threshold parameter for
	// accepting the first dip in the cumulative mean normalized
	// difference function, per the de Cheveigne/Kawahara paper.
	DefaultThreshold = 0.15

	vibrationWindowFrames = 20 // frames of pitch history examined for vibrato
	vibratoR2Gate         = 0.6
)

// Estimate is one frame's pitch measurement.
type Estimate struct {
	FrequencyHz float64
	Confidence  float64 // 1 - d'(tau) at the chosen lag; higher is better
	Voiced      bool
}

// Detector runs YIN over fixed-size frames at a known sample rate,
// keeping a short rolling history of estimated F0 for vibrato
// detection.
type Detector struct {
	sampleRate int
	minLagHz   float64
	maxLagHz   float64
	threshold  float64

	diff    []float64
	cmndf   []float64
	history []float64 // recent voiced F0 values, oldest first
}

// Config configures a Detector's frequency search range.
type Config struct {
	SampleRate int
	MinHz      float64 // lowest F0 to search for; 0 defaults to 60Hz
	MaxHz      float64 // highest F0 to search for; 0 defaults to 1200Hz
	Threshold  float64 // 0 defaults to DefaultThreshold
}

// NewDetector builds a Detector for the given configuration.
func NewDetector(cfg Config) (*Detector, error) {
	if cfg.SampleRate <= 0 {
		return nil, enginerr.New("pitch.NewDetector", enginerr.InvalidSampleRate)
	}
	if cfg.MinHz == 0 {
		cfg.MinHz = 60
	}
	if cfg.MaxHz == 0 {
		cfg.MaxHz = 1200
	}
	if cfg.Threshold == 0 {
		cfg.Threshold = DefaultThreshold
	}
	return &Detector{
		sampleRate: cfg.SampleRate,
		minLagHz:   cfg.MinHz,
		maxLagHz:   cfg.MaxHz,
		threshold:  cfg.Threshold,
	}, nil
}

// Reset clears vibrato history, used on session reset.
func (d *Detector) Reset() {
	d.history = d.history[:0]
}

// Analyze runs YIN over one frame of samples and returns the
// estimated fundamental frequency, pushing it onto the vibrato
// history if voiced.
func (d *Detector) Analyze(frame []float64) (Estimate, error) {
	if len(frame) < 4 {
		return Estimate{}, enginerr.New("pitch.Analyze", enginerr.EmptyInput)
	}

	maxLag := int(float64(d.sampleRate) / d.minLagHz)
	minLag := int(float64(d.sampleRate) / d.maxLagHz)
	if maxLag >= len(frame) {
		maxLag = len(frame) - 1
	}
	if minLag < 1 {
		minLag = 1
	}

	if cap(d.diff) < maxLag+1 {
		d.diff = make([]float64, maxLag+1)
		d.cmndf = make([]float64, maxLag+1)
	}
	diff := d.diff[:maxLag+1]
	cmndf := d.cmndf[:maxLag+1]

	// Step 1+2: difference function.
	for tau := 0; tau <= maxLag; tau++ {
		var sum float64
		for i := 0; i+tau < len(frame); i++ {
			delta := frame[i] - frame[i+tau]
			sum += delta * delta
		}
		diff[tau] = sum
	}

	// Step 3: cumulative mean normalized difference function.
	cmndf[0] = 1
	var running float64
	for tau := 1; tau <= maxLag; tau++ {
		running += diff[tau]
		if running == 0 {
			cmndf[tau] = 1
		} else {
			cmndf[tau] = diff[tau] * float64(tau) / running
		}
	}

	// Step 4: absolute threshold, first local minimum below it at or
	// past minLag.
	tau := -1
	for t := minLag; t <= maxLag; t++ {
		if cmndf[t] < d.threshold {
			for t+1 <= maxLag && cmndf[t+1] < cmndf[t] {
				t++
			}
			tau = t
			break
		}
	}
	if tau < 0 {
		// No dip below threshold: take the global minimum in range as
		// a low-confidence, possibly-unvoiced estimate.
		bestVal := math.MaxFloat64
		for t := minLag; t <= maxLag; t++ {
			if cmndf[t] < bestVal {
				bestVal, tau = cmndf[t], t
			}
		}
	}

	// Step 5: parabolic interpolation around tau for sub-sample lag
	// precision.
	refinedTau := float64(tau)
	if tau > 0 && tau < maxLag {
		s0, s1, s2 := cmndf[tau-1], cmndf[tau], cmndf[tau+1]
		denom := s0 - 2*s1 + s2
		if denom != 0 {
			refinedTau = float64(tau) + 0.5*(s0-s2)/denom
		}
	}
	if refinedTau <= 0 {
		refinedTau = float64(max1(tau))
	}

	freq := float64(d.sampleRate) / refinedTau
	voiced := cmndf[tau] < d.threshold

	if voiced {
		d.history = append(d.history, freq)
		if len(d.history) > vibrationWindowFrames {
			d.history = d.history[len(d.history)-vibrationWindowFrames:]
		}
	}

	return Estimate{
		FrequencyHz: freq,
		Confidence:  clamp01(1 - cmndf[tau]),
		Voiced:      voiced,
	}, nil
}

// VibratoDetected reports whether the recent pitch history shows a
// sinusoidal vibrato pattern, gated on an r^2 fit against the best
// matching sinusoid frequency being above vibratoR2Gate, per spec
// §4.6.
func (d *Detector) VibratoDetected() (detected bool, rateHz float64) {
	if len(d.history) < vibrationWindowFrames {
		return false, 0
	}

	mean := 0.0
	for _, v := range d.history {
		mean += v
	}
	mean /= float64(len(d.history))

	x := make([]float64, len(d.history))
	y := make([]float64, len(d.history))
	for i, v := range d.history {
		x[i] = float64(i)
		y[i] = v - mean
	}

	bestR2, bestRate := 0.0, 0.0
	for _, candidateHz := range []float64{3, 4, 5, 6, 7, 8, 9, 10} {
		ref := make([]float64, len(d.history))
		for i := range ref {
			ref[i] = math.Sin(2 * math.Pi * candidateHz * float64(i) / float64(len(d.history)))
		}
		r := stat.Correlation(y, ref, nil)
		r2 := r * r
		if r2 > bestR2 {
			bestR2, bestRate = r2, candidateHz
		}
	}

	return bestR2 > vibratoR2Gate, bestRate
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

func max1(v int) int {
	if v < 1 {
		return 1
	}
	return v
}

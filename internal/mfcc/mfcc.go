// Package mfcc implements frame-level MFCC extraction (C2 in the
// spec): pre-emphasis, windowing, FFT power spectrum, mel filterbank,
// log compression, and a type-II orthonormal DCT.
//
// The filterbank and coefficient math are carried over from the
// teacher's internal/analysis/features.go computeMFCC/
// createMelFilterbank; the streaming ring buffer is carried over from
// internal/audio/analyzer.go's circular sample buffer (fill until
// wrap, then emit).
package mfcc

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/huntmasteracademy/gamecalls-engine/internal/dsp"
	"github.com/huntmasteracademy/gamecalls-engine/internal/enginerr"
	"github.com/huntmasteracademy/gamecalls-engine/internal/types"
)

const (
	DefaultNumCoeffs  = 13
	DefaultNumFilters = 26
	DefaultLowFreqHz  = 20.0

	preEmphasisCoeff = 0.97
	logFloor         = 1e-10
)

// Config describes a processor's frame geometry and mel parameters.
type Config struct {
	SampleRate int
	FrameSize  int
	HopSize    int
	NumCoeffs  int
	NumFilters int
	LowFreqHz  float64
	HighFreqHz float64 // 0 means sampleRate/2
	Window     types.WindowKind
}

func (c Config) withDefaults() Config {
	if c.NumCoeffs == 0 {
		c.NumCoeffs = DefaultNumCoeffs
	}
	if c.NumFilters == 0 {
		c.NumFilters = DefaultNumFilters
	}
	if c.LowFreqHz == 0 {
		c.LowFreqHz = DefaultLowFreqHz
	}
	if c.HighFreqHz == 0 {
		c.HighFreqHz = float64(c.SampleRate) / 2
	}
	return c
}

// Processor extracts one MFCC vector per hop from a continuous sample
// stream. It is not safe for concurrent use; a session serializes
// calls the way spec §5 requires.
type Processor struct {
	cfg Config
	fft *dsp.WindowedFFT

	melFilters [][]float64 // [filter][bin]

	// Streaming state: a circular buffer of the most recent FrameSize
	// samples, the same fill-until-wrap pattern as the teacher's
	// internal/audio/analyzer.go ProcessSamples.
	ring       []float64
	ringPos    int
	ringFilled int
	hopCounter int
	prevSample float64 // pre-emphasis carry

	// Scratch, reused across PushSamples calls.
	ordered  []float64
	preemph  []float64
	spectrum []float64
	melEnerg []float64
}

// NewProcessor validates cfg and builds the mel filterbank and FFT
// plan. Fails with InvalidConfig if hopSize > frameSize or
// numCoeffs > numFilters, per spec §4.2.
func NewProcessor(cfg Config) (*Processor, error) {
	cfg = cfg.withDefaults()
	if cfg.HopSize > cfg.FrameSize {
		return nil, enginerr.New("mfcc.NewProcessor", enginerr.InvalidConfig)
	}
	if cfg.NumCoeffs > cfg.NumFilters {
		return nil, enginerr.New("mfcc.NewProcessor", enginerr.InvalidConfig)
	}

	fft, err := dsp.NewWindowedFFT(cfg.FrameSize, cfg.Window)
	if err != nil {
		return nil, err
	}

	p := &Processor{
		cfg:        cfg,
		fft:        fft,
		melFilters: createMelFilterbank(cfg.NumFilters, cfg.FrameSize, cfg.SampleRate, cfg.LowFreqHz, cfg.HighFreqHz),
		ring:       make([]float64, cfg.FrameSize),
		ordered:    make([]float64, cfg.FrameSize),
		preemph:    make([]float64, cfg.FrameSize),
		spectrum:   make([]float64, fft.BinCount()),
		melEnerg:   make([]float64, cfg.NumFilters),
	}
	return p, nil
}

// NumCoeffs returns the configured coefficient count (matrix column
// count C in spec terms).
func (p *Processor) NumCoeffs() int { return p.cfg.NumCoeffs }

// LastPowerSpectrum returns the power spectrum computed for the most
// recently emitted frame, for analyzers (harmonic, cadence) that need
// the same FFT output MFCC extraction already produced. Returns
// EmptyInput if no frame has been processed yet.
func (p *Processor) LastPowerSpectrum() ([]float64, error) {
	// The ring only fills completely when its first frame is emitted.
	if p.ringFilled < p.cfg.FrameSize {
		return nil, enginerr.New("mfcc.LastPowerSpectrum", enginerr.EmptyInput)
	}
	return p.spectrum, nil
}

// Reset clears ring-buffer and pre-emphasis state, as required on
// session reset (spec §4.10 "Reset semantics").
func (p *Processor) Reset() {
	for i := range p.ring {
		p.ring[i] = 0
	}
	p.ringPos = 0
	p.ringFilled = 0
	p.hopCounter = 0
	p.prevSample = 0
}

// PushSamples appends samples to the internal ring and emits zero or
// more MFCC rows (one per HopSize advance), appending each to dst and
// returning the grown slice.
func (p *Processor) PushSamples(dst [][]float64, samples []float64) ([][]float64, error) {
	n := p.cfg.FrameSize
	for _, s := range samples {
		p.ring[p.ringPos] = s
		p.ringPos = (p.ringPos + 1) % n
		if p.ringFilled < n {
			p.ringFilled++
		}
		p.hopCounter++
		if p.ringFilled == n && p.hopCounter >= p.cfg.HopSize {
			p.hopCounter = 0
			for i := 0; i < n; i++ {
				p.ordered[i] = p.ring[(p.ringPos+i)%n]
			}
			row, err := p.processFrame(p.ordered)
			if err != nil {
				return dst, err
			}
			dst = append(dst, row)
		}
	}
	return dst, nil
}

func (p *Processor) processFrame(frame []float64) ([]float64, error) {
	// 1. Pre-emphasis, 2. window happens inside fft.PowerSpectrum via
	// the configured window; pre-emphasis is applied here first since
	// it must run before windowing.
	prev := p.prevSample
	for i, s := range frame {
		p.preemph[i] = s - preEmphasisCoeff*prev
		prev = s
	}
	p.prevSample = prev

	// 3. Power spectrum via WindowedFFT.
	spectrum, err := p.fft.PowerSpectrum(p.spectrum, p.preemph)
	if err != nil {
		return nil, enginerr.Wrap("mfcc.processFrame", enginerr.FFTFailure, err)
	}
	p.spectrum = spectrum

	// 4-5. Mel filterbank + log compression.
	for i, filt := range p.melFilters {
		energy := floats.Dot(spectrum[:min(len(spectrum), len(filt))], filt[:min(len(spectrum), len(filt))])
		if energy < logFloor {
			energy = logFloor
		}
		p.melEnerg[i] = math.Log(energy)
	}

	// 6. Type-II orthonormal DCT, keep first NumCoeffs.
	mfcc := make([]float64, p.cfg.NumCoeffs)
	nf := float64(p.cfg.NumFilters)
	for k := 0; k < p.cfg.NumCoeffs; k++ {
		var sum float64
		for n := 0; n < p.cfg.NumFilters; n++ {
			sum += p.melEnerg[n] * math.Cos(math.Pi*float64(k)*(float64(n)+0.5)/nf)
		}
		scale := math.Sqrt(2 / nf)
		if k == 0 {
			scale = math.Sqrt(1 / nf)
		}
		mfcc[k] = sum * scale
	}

	// 7. Replace coefficient 0 with per-frame log-energy.
	mfcc[0] = floats.Sum(p.melEnerg) / nf

	return mfcc, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// createMelFilterbank builds numFilters triangular filters spaced on
// the mel scale, following spec §4.2's mel(f) = 2595*log10(1+f/700)
// mapping. Carried over near-verbatim from the teacher's
// createMelFilterbank in internal/analysis/features.go.
func createMelFilterbank(numFilters, fftSize, sampleRate int, lowHz, highHz float64) [][]float64 {
	hzToMel := func(hz float64) float64 { return 2595 * math.Log10(1+hz/700) }
	melToHz := func(mel float64) float64 { return 700 * (math.Pow(10, mel/2595) - 1) }

	lowMel := hzToMel(lowHz)
	highMel := hzToMel(highHz)

	melPoints := make([]float64, numFilters+2)
	for i := range melPoints {
		melPoints[i] = lowMel + float64(i)*(highMel-lowMel)/float64(numFilters+1)
	}

	hzPoints := make([]float64, numFilters+2)
	for i := range hzPoints {
		hzPoints[i] = melToHz(melPoints[i])
	}

	binPoints := make([]int, numFilters+2)
	for i := range binPoints {
		binPoints[i] = int(math.Floor(hzPoints[i] * float64(fftSize) / float64(sampleRate)))
	}

	nBins := fftSize/2 + 1
	filters := make([][]float64, numFilters)
	for i := 0; i < numFilters; i++ {
		filters[i] = make([]float64, nBins)

		for j := binPoints[i]; j < binPoints[i+1] && j < nBins; j++ {
			if j >= 0 && binPoints[i+1] != binPoints[i] {
				filters[i][j] = float64(j-binPoints[i]) / float64(binPoints[i+1]-binPoints[i])
			}
		}
		for j := binPoints[i+1]; j < binPoints[i+2] && j < nBins; j++ {
			if j >= 0 && binPoints[i+2] != binPoints[i+1] {
				filters[i][j] = float64(binPoints[i+2]-j) / float64(binPoints[i+2]-binPoints[i+1])
			}
		}
	}

	return filters
}

// Package dsp implements the windowed real-to-complex FFT used by
// every frame-level analyzer in the engine (C3 in the spec).
//
// Grounded on internal/audio/analyzer.go's FFT/window setup (teacher)
// and generalized to the configurable window kinds and explicit size
// validation spec §4.1 requires.
package dsp

import (
	"math"
	"math/bits"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"

	"github.com/huntmasteracademy/gamecalls-engine/internal/enginerr"
	"github.com/huntmasteracademy/gamecalls-engine/internal/types"
)

const (
	minFFTSize = 256
	maxFFTSize = 16384
)

// WindowedFFT performs a real-to-complex FFT of a fixed size N,
// windowing the input before transforming it. It precomputes the
// window coefficients and the gonum FFT plan in NewWindowedFFT and
// reuses one windowing scratch buffer. Transform allocates its output
// only when dst is nil; PowerSpectrum allocates a new complex
// coefficient slice on every call.
type WindowedFFT struct {
	n      int
	fft    *fourier.FFT
	window []float64

	// scratch reused across Transform calls; no per-call allocation.
	windowed []float64
}

// NewWindowedFFT configures a transform of size n using the given
// window kind. n must be a power of two in [256, 16384].
func NewWindowedFFT(n int, kind types.WindowKind) (*WindowedFFT, error) {
	if !isPowerOfTwo(n) || n < minFFTSize || n > maxFFTSize {
		return nil, enginerr.New("dsp.NewWindowedFFT", enginerr.InvalidSize)
	}

	coeffs := make([]float64, n)
	for i := range coeffs {
		coeffs[i] = 1
	}
	switch kind {
	case types.WindowHamming:
		window.Hamming(coeffs)
	case types.WindowBlackman:
		window.Blackman(coeffs)
	default:
		window.Hann(coeffs)
	}

	return &WindowedFFT{
		n:        n,
		fft:      fourier.NewFFT(n),
		window:   coeffs,
		windowed: make([]float64, n),
	}, nil
}

// Size returns the configured transform length N.
func (w *WindowedFFT) Size() int { return w.n }

// BinCount returns N/2+1, the number of real-spectrum output bins.
func (w *WindowedFFT) BinCount() int { return w.n/2 + 1 }

// Transform windows in (length N) and returns the complex spectrum
// (length N/2+1). dst is reused if it has the right length and
// capacity, matching gonum's Coefficients(dst, ...) convention.
func (w *WindowedFFT) Transform(dst []complex128, in []float64) ([]complex128, error) {
	if len(in) != w.n {
		return nil, enginerr.New("dsp.Transform", enginerr.DimensionMismatch)
	}
	for i := 0; i < w.n; i++ {
		w.windowed[i] = in[i] * w.window[i]
	}
	return w.fft.Coefficients(dst, w.windowed), nil
}

// PowerSpectrum windows in, transforms it, and writes |X[k]|^2 into
// dst (length N/2+1), reusing dst's backing array when possible.
func (w *WindowedFFT) PowerSpectrum(dst []float64, in []float64) ([]float64, error) {
	coeffs, err := w.Transform(nil, in)
	if err != nil {
		return nil, err
	}
	if cap(dst) < len(coeffs) {
		dst = make([]float64, len(coeffs))
	}
	dst = dst[:len(coeffs)]
	for i, c := range coeffs {
		re, im := real(c), imag(c)
		dst[i] = re*re + im*im
	}
	return dst, nil
}

func isPowerOfTwo(n int) bool {
	return n > 0 && bits.OnesCount(uint(n)) == 1
}

// FreqPerBin returns the frequency resolution (Hz/bin) of an
// fftSize-point transform at the given sample rate.
func FreqPerBin(sampleRate, fftSize int) float64 {
	return float64(sampleRate) / float64(fftSize)
}

// Magnitude converts a complex spectrum bin to magnitude.
func Magnitude(c complex128) float64 {
	re, im := real(c), imag(c)
	return math.Sqrt(re*re + im*im)
}

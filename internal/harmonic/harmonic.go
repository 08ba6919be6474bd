// Package harmonic computes spectral-shape descriptors per frame (C7
// in the spec): peak-picking, harmonic-to-noise ratio, spectral
// centroid and bandwidth.
//
// Peak-picking and the power-spectrum pipeline are grounded on
// other_examples/6f447824_rayboyd-phase4-server's fft.go
// (FindPeakFrequency, precomputed frequency bins); centroid/bandwidth
// are grounded on the teacher's internal/analysis/features.go
// computeSpectralCentroid and computeBandEnergies.
package harmonic

import (
	"math"
	"sort"

	"github.com/huntmasteracademy/gamecalls-engine/internal/enginerr"
)

// Peak is a local maximum in a power spectrum.
type Peak struct {
	BinIndex    int
	FrequencyHz float64
	Power       float64
}

// Summary is one frame's harmonic descriptor set.
type Summary struct {
	Peaks             []Peak
	HNR               float64 // harmonic-to-noise ratio, dB
	SpectralCentroid  float64 // Hz
	SpectralBandwidth float64 // Hz, second moment about the centroid
}

// Analyze computes Summary for one power spectrum (length N/2+1, as
// produced by dsp.WindowedFFT.PowerSpectrum).
func Analyze(spectrum []float64, sampleRate, fftSize int) (Summary, error) {
	if len(spectrum) == 0 {
		return Summary{}, enginerr.New("harmonic.Analyze", enginerr.EmptyInput)
	}

	freqPerBin := float64(sampleRate) / float64(fftSize)

	peaks := findPeaks(spectrum, freqPerBin)
	centroid, bandwidth := spectralMoments(spectrum, freqPerBin)
	hnr := harmonicToNoiseRatio(spectrum, peaks)

	return Summary{
		Peaks:             peaks,
		HNR:               hnr,
		SpectralCentroid:  centroid,
		SpectralBandwidth: bandwidth,
	}, nil
}

// findPeaks returns local maxima above a noise floor relative to the
// spectrum's mean power, sorted descending by power, following
// rayboyd-phase4-server's FindPeakFrequency threshold-and-scan shape
// but generalized to return the top several peaks instead of one.
func findPeaks(spectrum []float64, freqPerBin float64) []Peak {
	var mean float64
	for _, v := range spectrum {
		mean += v
	}
	mean /= float64(len(spectrum))
	floor := mean * 2

	var peaks []Peak
	for i := 1; i < len(spectrum)-1; i++ {
		if spectrum[i] > floor && spectrum[i] > spectrum[i-1] && spectrum[i] > spectrum[i+1] {
			peaks = append(peaks, Peak{
				BinIndex:    i,
				FrequencyHz: float64(i) * freqPerBin,
				Power:       spectrum[i],
			})
		}
	}

	sort.Slice(peaks, func(a, b int) bool { return peaks[a].Power > peaks[b].Power })
	if len(peaks) > 10 {
		peaks = peaks[:10]
	}
	return peaks
}

// spectralMoments computes the spectral centroid (first moment,
// power-weighted frequency) and bandwidth (second moment about the
// centroid), following the teacher's computeSpectralCentroid.
func spectralMoments(spectrum []float64, freqPerBin float64) (centroid, bandwidth float64) {
	var weightedSum, totalPower float64
	for i, p := range spectrum {
		freq := float64(i) * freqPerBin
		weightedSum += freq * p
		totalPower += p
	}
	if totalPower == 0 {
		return 0, 0
	}
	centroid = weightedSum / totalPower

	var varSum float64
	for i, p := range spectrum {
		freq := float64(i) * freqPerBin
		d := freq - centroid
		varSum += d * d * p
	}
	bandwidth = math.Sqrt(varSum / totalPower)
	return centroid, bandwidth
}

// harmonicToNoiseRatio estimates HNR in dB as the ratio of power
// concentrated at detected peaks (treated as harmonic) to the
// remaining spectral power (treated as noise).
func harmonicToNoiseRatio(spectrum []float64, peaks []Peak) float64 {
	if len(peaks) == 0 {
		return 0
	}
	var harmonicPower, totalPower float64
	peakBins := make(map[int]bool, len(peaks))
	for _, p := range peaks {
		peakBins[p.BinIndex] = true
		harmonicPower += p.Power
	}
	for i, p := range spectrum {
		totalPower += p
		_ = i
	}
	noisePower := totalPower - harmonicPower
	if noisePower <= 0 {
		noisePower = 1e-10
	}
	if harmonicPower <= 0 {
		harmonicPower = 1e-10
	}
	return 10 * math.Log10(harmonicPower/noisePower)
}

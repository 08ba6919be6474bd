package harmonic

import "testing"

func TestAnalyzeRejectsEmptySpectrum(t *testing.T) {
	if _, err := Analyze(nil, 16000, 1024); err == nil {
		t.Fatal("expected error for empty spectrum")
	}
}

func TestAnalyzeFindsDominantPeak(t *testing.T) {
	spectrum := make([]float64, 513)
	for i := range spectrum {
		spectrum[i] = 0.01
	}
	spectrum[100] = 50 // strong peak
	summary, err := Analyze(spectrum, 16000, 1024)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(summary.Peaks) == 0 {
		t.Fatal("expected at least one peak")
	}
	if summary.Peaks[0].BinIndex != 100 {
		t.Fatalf("expected dominant peak at bin 100, got %d", summary.Peaks[0].BinIndex)
	}
}

func TestSpectralCentroidTracksEnergyLocation(t *testing.T) {
	low := make([]float64, 513)
	low[10] = 100
	high := make([]float64, 513)
	high[400] = 100

	lowSummary, _ := Analyze(low, 16000, 1024)
	highSummary, _ := Analyze(high, 16000, 1024)

	if lowSummary.SpectralCentroid >= highSummary.SpectralCentroid {
		t.Fatalf("expected low-energy spectrum centroid < high-energy centroid, got %v vs %v",
			lowSummary.SpectralCentroid, highSummary.SpectralCentroid)
	}
}

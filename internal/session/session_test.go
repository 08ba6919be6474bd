package session

import (
	"math"
	"testing"

	"github.com/huntmasteracademy/gamecalls-engine/internal/enginerr"
	"github.com/huntmasteracademy/gamecalls-engine/internal/featurestore"
	"github.com/huntmasteracademy/gamecalls-engine/internal/similarity"
	"github.com/huntmasteracademy/gamecalls-engine/internal/types"
)

func testConfig() Config {
	return Config{
		SampleRate:           16000,
		FrameSize:            512,
		HopSize:              256,
		NumCoeffs:            13,
		NumFilters:           26,
		Window:               types.WindowHann,
		ScoringCadenceFrames: 2,
	}
}

func sineSamples(freq float64, sampleRate, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate))
	}
	return out
}

func syntheticMaster(frames, coeffs int) featurestore.Features {
	data := make([][]float64, frames)
	for i := range data {
		row := make([]float64, coeffs)
		for j := range row {
			row[j] = float64(i+j) * 0.01
		}
		data[i] = row
	}
	return featurestore.Features{NumFrames: frames, NumCoeffs: coeffs, Data: data}
}

func TestNewSessionStartsCreated(t *testing.T) {
	master := syntheticMaster(50, 13)
	s, err := New(types.SessionID(1), testConfig(), master)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.State() != types.StateCreated {
		t.Fatalf("expected Created, got %v", s.State())
	}
}

func TestProcessChunkTransitionsToActive(t *testing.T) {
	master := syntheticMaster(50, 13)
	s, _ := New(types.SessionID(1), testConfig(), master)
	samples := sineSamples(220, 16000, 4096)

	if _, err := s.ProcessChunk(samples); err != nil {
		t.Fatalf("ProcessChunk: %v", err)
	}
	if s.State() != types.StateActive {
		t.Fatalf("expected Active after first chunk, got %v", s.State())
	}
}

func TestFinalizeFreezesAndRejectsDoubleFinalize(t *testing.T) {
	master := syntheticMaster(50, 13)
	s, _ := New(types.SessionID(1), testConfig(), master)
	s.ProcessChunk(sineSamples(220, 16000, 8192))

	score, err := s.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if score < 0 || score > 1 {
		t.Fatalf("expected score in [0,1], got %v", score)
	}
	if s.State() != types.StateFinalized {
		t.Fatalf("expected Finalized, got %v", s.State())
	}

	if _, err := s.ProcessChunk(sineSamples(220, 16000, 1024)); err == nil {
		t.Fatal("expected error processing chunk after finalize")
	}
}

func TestResetReturnsToCreated(t *testing.T) {
	master := syntheticMaster(50, 13)
	s, _ := New(types.SessionID(1), testConfig(), master)
	s.ProcessChunk(sineSamples(220, 16000, 4096))
	s.Finalize()
	s.Reset()
	if s.State() != types.StateCreated {
		t.Fatalf("expected Created after reset, got %v", s.State())
	}
}

func TestDestroyRejectsFurtherProcessing(t *testing.T) {
	master := syntheticMaster(50, 13)
	s, _ := New(types.SessionID(1), testConfig(), master)
	s.Destroy()
	if _, err := s.ProcessChunk(sineSamples(220, 16000, 1024)); err == nil {
		t.Fatal("expected error processing chunk after destroy")
	}
}

func TestEnhancedAnalyzersDisabledByDefault(t *testing.T) {
	master := syntheticMaster(50, 13)
	s, _ := New(types.SessionID(1), testConfig(), master)
	s.ProcessChunk(sineSamples(220, 16000, 4096))
	if s.EnhancedSummary().Valid {
		t.Fatal("expected enhanced summary invalid until analyzers are enabled")
	}
}

func TestGetEnhancedAnalysisSummaryAutoEnables(t *testing.T) {
	master := syntheticMaster(50, 13)
	s, _ := New(types.SessionID(1), testConfig(), master)

	first := s.GetEnhancedAnalysisSummary()
	if first.Valid {
		t.Fatal("expected first summary invalid right after auto-enabling")
	}
	if !s.EnhancedAnalyzersEnabled() {
		t.Fatal("expected analyzers enabled after GetEnhancedAnalysisSummary")
	}

	s.ProcessChunk(sineSamples(220, 16000, 4096))
	if !s.GetEnhancedAnalysisSummary().Valid {
		t.Fatal("expected valid summary once a chunk has been processed with analyzers enabled")
	}
}

func TestSetEnhancedAnalyzersEnabledInvalidatesOnReenable(t *testing.T) {
	master := syntheticMaster(50, 13)
	s, _ := New(types.SessionID(1), testConfig(), master)

	s.SetEnhancedAnalyzersEnabled(true)
	s.ProcessChunk(sineSamples(220, 16000, 4096))
	if !s.EnhancedSummary().Valid {
		t.Fatal("expected valid summary while enabled")
	}

	s.SetEnhancedAnalyzersEnabled(false)
	s.SetEnhancedAnalyzersEnabled(true)
	if s.EnhancedSummary().Valid {
		t.Fatal("expected re-enabling to invalidate the summary until fresh data arrives")
	}
}

func TestSimilarityScoreReportsInsufficientDataEarly(t *testing.T) {
	master := syntheticMaster(200, 13)
	s, _ := New(types.SessionID(1), testConfig(), master)
	s.ProcessChunk(sineSamples(220, 16000, 1024))

	if _, err := s.SimilarityScore(); enginerr.Of(err) != enginerr.InsufficientData {
		t.Fatalf("expected InsufficientData, got %v", err)
	}
	if _, err := s.SimilarityComponents(); enginerr.Of(err) != enginerr.InsufficientData {
		t.Fatalf("expected InsufficientData, got %v", err)
	}
}

func TestRealtimeReflectsFramesObserved(t *testing.T) {
	master := syntheticMaster(50, 13)
	s, _ := New(types.SessionID(1), testConfig(), master)
	s.ProcessChunk(sineSamples(220, 16000, 4096))

	rt := s.Realtime()
	if rt.FramesObserved == 0 {
		t.Fatal("expected nonzero frames observed after processing a chunk")
	}
	if rt.MinFramesRequired <= 0 {
		t.Fatal("expected a positive minimum frame requirement")
	}
}

func TestSetMasterResetsRunningState(t *testing.T) {
	master := syntheticMaster(50, 13)
	other := syntheticMaster(80, 13)
	s, _ := New(types.SessionID(1), testConfig(), master)
	s.ProcessChunk(sineSamples(220, 16000, 8192))

	s.SetMaster(other)
	rt := s.Realtime()
	if rt.FramesObserved != 0 {
		t.Fatalf("expected frame count reset after SetMaster, got %d", rt.FramesObserved)
	}
}

func TestFinalizeScoresFreshComponentsNotSmoothedValue(t *testing.T) {
	master := syntheticMaster(50, 13)
	s, _ := New(types.SessionID(1), testConfig(), master)
	s.ProcessChunk(sineSamples(220, 16000, 8192))

	score, err := s.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	want := similarity.Score(s.lastComponents, s.simState.Weights)
	if math.Abs(score-want) > 1e-9 {
		t.Fatalf("expected finalize to score lastComponents directly, got %v want %v", score, want)
	}
}

package engine

import (
	"testing"

	"github.com/huntmasteracademy/gamecalls-engine/internal/enginerr"
	"github.com/huntmasteracademy/gamecalls-engine/internal/featurestore"
	"github.com/huntmasteracademy/gamecalls-engine/internal/session"
	"github.com/huntmasteracademy/gamecalls-engine/internal/types"
)

func testSessionConfig() session.Config {
	return session.Config{
		SampleRate:           16000,
		FrameSize:            512,
		HopSize:              256,
		NumCoeffs:            13,
		NumFilters:           26,
		ScoringCadenceFrames: 2,
	}
}

func fakeLoader(loads *int) func(string) (featurestore.Features, error) {
	return func(callID string) (featurestore.Features, error) {
		*loads++
		data := make([][]float64, 40)
		for i := range data {
			data[i] = []float64{float64(i) * 0.01, float64(i) * 0.02}
		}
		return featurestore.Features{NumFrames: 40, NumCoeffs: 2, Data: data}, nil
	}
}

func TestCreateSessionAndProcessChunk(t *testing.T) {
	loads := 0
	e := New(Config{Session: testSessionConfig()}, fakeLoader(&loads))

	id, err := e.CreateSession("elk-bugle-01", 16000)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if e.SessionCount() != 1 {
		t.Fatalf("expected 1 session, got %d", e.SessionCount())
	}

	samples := make([]float64, 2048)
	if _, err := e.ProcessChunk(id, samples); err != nil {
		t.Fatalf("ProcessChunk: %v", err)
	}
}

func TestCreateSessionEnforcesCapacity(t *testing.T) {
	loads := 0
	e := New(Config{MaxSessions: 1, Session: testSessionConfig()}, fakeLoader(&loads))

	if _, err := e.CreateSession("a", 16000); err != nil {
		t.Fatalf("first CreateSession: %v", err)
	}
	if _, err := e.CreateSession("b", 16000); enginerr.Of(err) != enginerr.LimitExceeded {
		t.Fatalf("expected LimitExceeded, got %v", err)
	}
}

func TestDestroySessionRemovesFromTable(t *testing.T) {
	loads := 0
	e := New(Config{Session: testSessionConfig()}, fakeLoader(&loads))
	id, _ := e.CreateSession("a", 16000)

	if err := e.DestroySession(id); err != nil {
		t.Fatalf("DestroySession: %v", err)
	}
	if e.SessionCount() != 0 {
		t.Fatalf("expected 0 sessions after destroy, got %d", e.SessionCount())
	}
	if _, err := e.ProcessChunk(id, []float64{1}); enginerr.Of(err) != enginerr.SessionNotFound {
		t.Fatalf("expected SessionNotFound after destroy, got %v", err)
	}
}

func TestMasterCallCachedAcrossSessions(t *testing.T) {
	loads := 0
	e := New(Config{Session: testSessionConfig()}, fakeLoader(&loads))

	if _, err := e.CreateSession("a", 16000); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if _, err := e.CreateSession("a", 16000); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if loads != 1 {
		t.Fatalf("expected master call loaded once and cached, got %d loads", loads)
	}
}

func TestFinalizeUnknownSession(t *testing.T) {
	loads := 0
	e := New(Config{Session: testSessionConfig()}, fakeLoader(&loads))
	if _, err := e.FinalizeSession(types.SessionID(999)); enginerr.Of(err) != enginerr.SessionNotFound {
		t.Fatalf("expected SessionNotFound, got %v", err)
	}
}

func TestCreateSessionRejectsOutOfRangeSampleRate(t *testing.T) {
	loads := 0
	e := New(Config{Session: testSessionConfig()}, fakeLoader(&loads))
	if _, err := e.CreateSession("a", 4000); enginerr.Of(err) != enginerr.InvalidSampleRate {
		t.Fatalf("expected InvalidSampleRate for 4000Hz, got %v", err)
	}
	if _, err := e.CreateSession("a", 200000); enginerr.Of(err) != enginerr.InvalidSampleRate {
		t.Fatalf("expected InvalidSampleRate for 200000Hz, got %v", err)
	}
}

func TestLoadMasterCallRebindsSession(t *testing.T) {
	loads := 0
	e := New(Config{Session: testSessionConfig()}, fakeLoader(&loads))
	id, _ := e.CreateSession("a", 16000)

	if err := e.LoadMasterCall(id, "b"); err != nil {
		t.Fatalf("LoadMasterCall: %v", err)
	}
	if loads != 2 {
		t.Fatalf("expected the new master call to be loaded, got %d loads", loads)
	}
}

func TestGetSimilarityQueriesUnknownSession(t *testing.T) {
	loads := 0
	e := New(Config{Session: testSessionConfig()}, fakeLoader(&loads))
	if _, err := e.GetSimilarityScore(types.SessionID(999)); enginerr.Of(err) != enginerr.SessionNotFound {
		t.Fatalf("expected SessionNotFound, got %v", err)
	}
	if _, err := e.GetSimilarityComponents(types.SessionID(999)); enginerr.Of(err) != enginerr.SessionNotFound {
		t.Fatalf("expected SessionNotFound, got %v", err)
	}
	if _, err := e.GetRealtimeSimilarityState(types.SessionID(999)); enginerr.Of(err) != enginerr.SessionNotFound {
		t.Fatalf("expected SessionNotFound, got %v", err)
	}
}

func TestEnhancedAnalyzersQueriesUnknownSession(t *testing.T) {
	loads := 0
	e := New(Config{Session: testSessionConfig()}, fakeLoader(&loads))
	if err := e.SetEnhancedAnalyzersEnabled(types.SessionID(999), true); enginerr.Of(err) != enginerr.SessionNotFound {
		t.Fatalf("expected SessionNotFound, got %v", err)
	}
	if _, err := e.GetEnhancedAnalysisSummary(types.SessionID(999)); enginerr.Of(err) != enginerr.SessionNotFound {
		t.Fatalf("expected SessionNotFound, got %v", err)
	}
}

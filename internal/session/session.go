// Package session implements the per-call session state machine and
// per-chunk processing pipeline (C10 in the spec): ring ingestion,
// MFCC extraction, periodic similarity scoring, and the enhanced
// pitch/harmonic/cadence/loudness analyzers.
//
// The state machine and stateful-manager shape are grounded on the
// teacher's internal/ipc/server.go Server (a long-lived object
// wrapping several collaborators behind callback wiring) and on
// internal/audio/analyzer.go's push/ingest loop.
package session

import (
	"time"

	"github.com/huntmasteracademy/gamecalls-engine/internal/cadence"
	"github.com/huntmasteracademy/gamecalls-engine/internal/enginerr"
	"github.com/huntmasteracademy/gamecalls-engine/internal/featurestore"
	"github.com/huntmasteracademy/gamecalls-engine/internal/harmonic"
	"github.com/huntmasteracademy/gamecalls-engine/internal/loudness"
	"github.com/huntmasteracademy/gamecalls-engine/internal/mfcc"
	"github.com/huntmasteracademy/gamecalls-engine/internal/pitch"
	"github.com/huntmasteracademy/gamecalls-engine/internal/similarity"
	"github.com/huntmasteracademy/gamecalls-engine/internal/types"
)

// Config configures one session's signal-processing geometry. All
// sessions in a process typically share one Config, supplied by
// internal/config.
type Config struct {
	SampleRate int
	FrameSize  int
	HopSize    int
	NumCoeffs  int
	NumFilters int
	Window     types.WindowKind

	DTWBandRadius int

	// ScoringCadenceFrames controls how often (in emitted MFCC frames)
	// a new similarity score is computed, per spec §4.10.
	ScoringCadenceFrames int

	// EnhancedInactivityTimeout invalidates the last EnhancedSummary
	// once exceeded without new chunks, per spec §4.10.
	EnhancedInactivityTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.ScoringCadenceFrames == 0 {
		c.ScoringCadenceFrames = 4
	}
	if c.DTWBandRadius == 0 {
		c.DTWBandRadius = 50
	}
	if c.EnhancedInactivityTimeout == 0 {
		c.EnhancedInactivityTimeout = 2 * time.Second
	}
	return c
}

// EnhancedSummary is the latest pitch/harmonic/cadence/loudness
// reading, timestamped so a caller can tell whether it has gone stale
// due to inactivity.
type EnhancedSummary struct {
	Pitch     pitch.Estimate
	Harmonic  harmonic.Summary
	TempoBPM  float64
	Loudness  loudness.Snapshot
	Timestamp time.Time
	Valid     bool
}

// ChunkResult is returned from ProcessChunk: the current smoothed
// similarity score plus the latest enhanced analyzer reading.
type ChunkResult struct {
	Score    float64
	Reliable bool
	Enhanced EnhancedSummary
}

// Session is a single live comparison against one loaded master call.
// Not safe for concurrent use; callers serialize access the way spec
// §5 requires (the owning engine does not lock individual sessions).
type Session struct {
	id    types.SessionID
	state types.SessionState
	cfg   Config

	master featurestore.Features

	mfccProc *mfcc.Processor
	simState *similarity.State

	pitchDet *pitch.Detector
	cadence  *cadence.Tracker
	loud     *loudness.Monitor

	liveFrames      [][]float64
	framesSince     int
	lastComponents  similarity.Components
	lastEnhanced    EnhancedSummary
	lastActivity    time.Time
	enhancedEnabled bool
}

// RealtimeState reports how many live frames have accumulated and
// whether a similarity score can yet be trusted, per spec §3
// RealtimeState.
type RealtimeState struct {
	FramesObserved    int
	MinFramesRequired int
	Reliable          bool
}

// New creates a session in state Created, bound to master and
// configured per cfg.
func New(id types.SessionID, cfg Config, master featurestore.Features) (*Session, error) {
	cfg = cfg.withDefaults()

	mfccCfg := mfcc.Config{
		SampleRate: cfg.SampleRate,
		FrameSize:  cfg.FrameSize,
		HopSize:    cfg.HopSize,
		NumCoeffs:  cfg.NumCoeffs,
		NumFilters: cfg.NumFilters,
		Window:     cfg.Window,
	}
	mfccProc, err := mfcc.NewProcessor(mfccCfg)
	if err != nil {
		return nil, err
	}

	pitchDet, err := pitch.NewDetector(pitch.Config{SampleRate: cfg.SampleRate})
	if err != nil {
		return nil, err
	}

	hopSeconds := float64(cfg.HopSize) / float64(cfg.SampleRate)
	cadenceTracker, err := cadence.NewTracker(hopSeconds)
	if err != nil {
		return nil, err
	}

	loudMon, err := loudness.NewMonitor(loudness.Config{SampleRate: cfg.SampleRate})
	if err != nil {
		return nil, err
	}

	return &Session{
		id:       id,
		state:    types.StateCreated,
		cfg:      cfg,
		master:   master,
		mfccProc: mfccProc,
		simState: similarity.NewState(),
		pitchDet: pitchDet,
		cadence:  cadenceTracker,
		loud:     loudMon,
	}, nil
}

// ID returns the session's identifier.
func (s *Session) ID() types.SessionID { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() types.SessionState { return s.state }

// ProcessChunk ingests one chunk of PCM samples: it feeds the ring
// buffer (emitting zero or more MFCC rows), updates the enhanced
// analyzers, and periodically recomputes the similarity score per
// ScoringCadenceFrames. Valid only in state Active; transitions
// Created -> Active on first call.
func (s *Session) ProcessChunk(samples []float64) (ChunkResult, error) {
	if s.state == types.StateDestroyed {
		return ChunkResult{}, enginerr.New("session.ProcessChunk", enginerr.InvalidState)
	}
	if s.state == types.StateFinalized {
		return ChunkResult{}, enginerr.New("session.ProcessChunk", enginerr.AlreadyFinalized)
	}
	if s.state == types.StateCreated {
		s.state = types.StateActive
	}

	s.lastActivity = time.Now()

	var err error
	s.liveFrames, err = s.mfccProc.PushSamples(s.liveFrames, samples)
	if err != nil {
		s.state = types.StateDestroyed // internal errors poison the session
		return ChunkResult{}, err
	}

	// Enhanced analyzers (C6-C9) only run once enabled, per spec
	// §4.10's enhancedEnabled gate; they cost real CPU every chunk and
	// most callers never ask for them.
	if s.enhancedEnabled {
		snap, err := s.loud.PushChunk(samples)
		if err != nil {
			return ChunkResult{}, err
		}

		pest, perr := s.pitchDet.Analyze(samples)
		var harm harmonic.Summary
		if perr == nil {
			powerSpectrum, sperr := s.mfccProc.LastPowerSpectrum()
			if sperr == nil {
				harm, _ = harmonic.Analyze(powerSpectrum, s.cfg.SampleRate, s.cfg.FrameSize)
				s.cadence.PushSpectrum(powerSpectrum)
			}
		}

		s.lastEnhanced = EnhancedSummary{
			Pitch:     pest,
			Harmonic:  harm,
			TempoBPM:  s.cadence.EstimateTempo(),
			Loudness:  snap,
			Timestamp: s.lastActivity,
			Valid:     true,
		}
	}

	newFrames := len(s.liveFrames) - s.framesSince
	var score float64
	var reliable bool
	if newFrames >= s.cfg.ScoringCadenceFrames {
		s.framesSince = len(s.liveFrames)
		comps, cerr := similarity.ComputeComponents(s.master.Data, s.liveFrames, s.cfg.DTWBandRadius)
		if cerr == nil {
			s.lastComponents = comps
			score = s.simState.UpdateChunk(comps)
		} else {
			score = s.simState.Current()
		}
	} else {
		score = s.simState.Current()
	}
	reliable, _ = similarity.Reliability(len(s.liveFrames), s.master.NumFrames)

	return ChunkResult{Score: score, Reliable: reliable, Enhanced: s.EnhancedSummary()}, nil
}

// EnhancedSummary returns the last analyzer reading, invalidated
// (Valid=false) if it has gone stale past
// Config.EnhancedInactivityTimeout.
func (s *Session) EnhancedSummary() EnhancedSummary {
	out := s.lastEnhanced
	if time.Since(s.lastActivity) > s.cfg.EnhancedInactivityTimeout {
		out.Valid = false
	}
	return out
}

// SetEnhancedAnalyzersEnabled toggles C6-C9 analyzer execution, per
// spec §6 setEnhancedAnalyzersEnabled. Enabling from a disabled state
// invalidates the next summary (Valid=false) until fresh data has
// been processed with analyzers running, per §4.10.
func (s *Session) SetEnhancedAnalyzersEnabled(enabled bool) {
	if enabled && !s.enhancedEnabled {
		s.lastEnhanced = EnhancedSummary{}
	}
	s.enhancedEnabled = enabled
}

// EnhancedAnalyzersEnabled reports whether C6-C9 are currently running.
func (s *Session) EnhancedAnalyzersEnabled() bool { return s.enhancedEnabled }

// GetEnhancedAnalysisSummary is the §6 getEnhancedAnalysisSummary
// query: it auto-enables the analyzers on first call (per §4.10) and
// returns the current reading.
func (s *Session) GetEnhancedAnalysisSummary() EnhancedSummary {
	if !s.enhancedEnabled {
		s.SetEnhancedAnalyzersEnabled(true)
	}
	return s.EnhancedSummary()
}

// SetMaster rebinds the session to a different master call, per spec
// §6 loadMasterCall, resetting the running similarity state since it
// was measured against the prior master.
func (s *Session) SetMaster(master featurestore.Features) {
	s.master = master
	s.simState.Reset()
	s.liveFrames = nil
	s.framesSince = 0
	s.lastComponents = similarity.Components{}
}

// SimilarityScore is the §6 getSimilarityScore query: the current
// smoothed (or finalized) score, or InsufficientData if not enough
// live frames have accumulated yet.
func (s *Session) SimilarityScore() (float64, error) {
	reliable, kind := similarity.Reliability(len(s.liveFrames), s.master.NumFrames)
	if !reliable && !s.simState.Finalized() {
		return 0, enginerr.New("session.SimilarityScore", kind)
	}
	return s.simState.Current(), nil
}

// SimilarityComponents is the §6 getSimilarityComponents query: the
// component distances from the most recent scoring pass.
func (s *Session) SimilarityComponents() (similarity.Components, error) {
	reliable, kind := similarity.Reliability(len(s.liveFrames), s.master.NumFrames)
	if !reliable && !s.simState.Finalized() {
		return similarity.Components{}, enginerr.New("session.SimilarityComponents", kind)
	}
	return s.lastComponents, nil
}

// Realtime is the §6 getRealtimeSimilarityState query.
func (s *Session) Realtime() RealtimeState {
	reliable, _ := similarity.Reliability(len(s.liveFrames), s.master.NumFrames)
	return RealtimeState{
		FramesObserved:    len(s.liveFrames),
		MinFramesRequired: similarity.MinFramesRequired(s.master.NumFrames),
		Reliable:          reliable,
	}
}

// Finalize freezes the similarity score and transitions the session
// to Finalized. Calling it a second time returns AlreadyFinalized.
func (s *Session) Finalize() (float64, error) {
	if s.state == types.StateFinalized {
		return 0, enginerr.New("session.Finalize", enginerr.AlreadyFinalized)
	}
	if s.state != types.StateActive {
		return 0, enginerr.New("session.Finalize", enginerr.InvalidState)
	}
	comps, err := similarity.ComputeComponents(s.master.Data, s.liveFrames, s.cfg.DTWBandRadius)
	if err != nil {
		comps = similarity.Components{}
	}
	s.lastComponents = comps
	score, err := s.simState.Finalize(comps)
	if err != nil {
		return 0, err
	}
	s.state = types.StateFinalized
	return score, nil
}

// Reset clears all running state (ring buffers, smoothing, finalize
// flag) and returns the session to Created, per spec §4.10's reset
// semantics. The bound master call is unchanged.
func (s *Session) Reset() {
	s.mfccProc.Reset()
	s.simState.Reset()
	s.pitchDet.Reset()
	s.cadence.Reset()
	s.loud.Reset()
	s.liveFrames = nil
	s.framesSince = 0
	s.lastComponents = similarity.Components{}
	s.lastEnhanced = EnhancedSummary{}
	s.state = types.StateCreated
}

// Destroy marks the session Destroyed; any further ProcessChunk calls
// fail with InvalidState.
func (s *Session) Destroy() {
	s.state = types.StateDestroyed
}

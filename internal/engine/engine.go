// Package engine implements the UnifiedEngine (C11 in the spec): the
// process-wide, multi-session container that owns the session table
// and the master-call feature cache, and enforces the engine-level
// capacity limit.
//
// The session-table-behind-a-mutex shape, grouped alongside several
// collaborator components, is grounded on the teacher's
// internal/ipc/server.go Server struct.
package engine

import (
	"sync"
	"sync/atomic"

	"github.com/huntmasteracademy/gamecalls-engine/internal/enginerr"
	"github.com/huntmasteracademy/gamecalls-engine/internal/featurestore"
	"github.com/huntmasteracademy/gamecalls-engine/internal/session"
	"github.com/huntmasteracademy/gamecalls-engine/internal/similarity"
	"github.com/huntmasteracademy/gamecalls-engine/internal/types"
)

// DefaultMaxSessions is the default engine-wide session cap, per spec
// §5.
const DefaultMaxSessions = 1000

// MinSampleRateHz and MaxSampleRateHz bound the per-session sample
// rate CreateSession accepts, per spec §6.
const (
	MinSampleRateHz = 8000
	MaxSampleRateHz = 192000
)

// Config configures the engine's capacity and per-session signal
// processing geometry.
type Config struct {
	MaxSessions         int
	MasterCacheCapacity int
	Session             session.Config
	MasterCallDir       string

}

func (c Config) withDefaults() Config {
	if c.MaxSessions == 0 {
		c.MaxSessions = DefaultMaxSessions
	}
	if c.MasterCacheCapacity == 0 {
		c.MasterCacheCapacity = 64
	}
	return c
}

// Engine is the process-wide session container.
type Engine struct {
	cfg Config

	mu       sync.RWMutex
	sessions map[types.SessionID]*session.Session
	nextID   uint64

	masterCache *featurestore.Cache
}

// New builds an Engine. masterLoader resolves a call ID to decoded
// Features (e.g. reading a .mfc file from cfg.MasterCallDir); callers
// that prefer a different source can supply any loader.
func New(cfg Config, masterLoader func(callID string) (featurestore.Features, error)) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		cfg:         cfg,
		sessions:    make(map[types.SessionID]*session.Session),
		masterCache: featurestore.NewCache(cfg.MasterCacheCapacity, masterLoader),
	}
}

// CreateSession loads (or fetches from cache) the master call
// identified by callID and creates a new session bound to it, sampling
// at sampleRateHz. Fails with InvalidSampleRate outside
// [MinSampleRateHz, MaxSampleRateHz], or LimitExceeded once at
// MaxSessions.
func (e *Engine) CreateSession(callID string, sampleRateHz int) (types.SessionID, error) {
	if sampleRateHz < MinSampleRateHz || sampleRateHz > MaxSampleRateHz {
		return 0, enginerr.New("engine.CreateSession", enginerr.InvalidSampleRate)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.sessions) >= e.cfg.MaxSessions {
		return 0, enginerr.New("engine.CreateSession", enginerr.LimitExceeded)
	}

	master, err := e.masterCache.Get(callID)
	if err != nil {
		return 0, err
	}

	sessCfg := e.cfg.Session
	sessCfg.SampleRate = sampleRateHz

	id := types.SessionID(atomic.AddUint64(&e.nextID, 1))
	sess, err := session.New(id, sessCfg, master)
	if err != nil {
		return 0, err
	}
	e.sessions[id] = sess
	return id, nil
}

// LoadMasterCall rebinds id's session to a different master call, per
// spec §6 loadMasterCall, resetting its running similarity state.
func (e *Engine) LoadMasterCall(id types.SessionID, callID string) error {
	e.mu.RLock()
	sess, ok := e.sessions[id]
	e.mu.RUnlock()
	if !ok {
		return enginerr.New("engine.LoadMasterCall", enginerr.SessionNotFound)
	}
	master, err := e.masterCache.Get(callID)
	if err != nil {
		return err
	}
	sess.SetMaster(master)
	return nil
}

// DestroySession removes id from the session table after marking it
// Destroyed.
func (e *Engine) DestroySession(id types.SessionID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	sess, ok := e.sessions[id]
	if !ok {
		return enginerr.New("engine.DestroySession", enginerr.SessionNotFound)
	}
	sess.Destroy()
	delete(e.sessions, id)
	return nil
}

// ResetSession resets id's running state back to Created.
func (e *Engine) ResetSession(id types.SessionID) error {
	e.mu.RLock()
	sess, ok := e.sessions[id]
	e.mu.RUnlock()
	if !ok {
		return enginerr.New("engine.ResetSession", enginerr.SessionNotFound)
	}
	sess.Reset()
	return nil
}

// ProcessChunk routes one chunk of PCM samples to the named session.
func (e *Engine) ProcessChunk(id types.SessionID, samples []float64) (session.ChunkResult, error) {
	e.mu.RLock()
	sess, ok := e.sessions[id]
	e.mu.RUnlock()
	if !ok {
		return session.ChunkResult{}, enginerr.New("engine.ProcessChunk", enginerr.SessionNotFound)
	}
	return sess.ProcessChunk(samples)
}

// FinalizeSession freezes id's similarity score.
func (e *Engine) FinalizeSession(id types.SessionID) (float64, error) {
	e.mu.RLock()
	sess, ok := e.sessions[id]
	e.mu.RUnlock()
	if !ok {
		return 0, enginerr.New("engine.FinalizeSession", enginerr.SessionNotFound)
	}
	return sess.Finalize()
}

// SessionState reports id's current lifecycle state.
func (e *Engine) SessionState(id types.SessionID) (types.SessionState, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	sess, ok := e.sessions[id]
	if !ok {
		return 0, enginerr.New("engine.SessionState", enginerr.SessionNotFound)
	}
	return sess.State(), nil
}

// SessionCount returns the number of live sessions.
func (e *Engine) SessionCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.sessions)
}

// InvalidateMasterCall evicts callID from the master feature cache,
// so a subsequent CreateSession re-reads it from disk.
func (e *Engine) InvalidateMasterCall(callID string) {
	e.masterCache.Invalidate(callID)
}

// GetSimilarityScore is the §6 getSimilarityScore operation: a
// standalone query independent of ProcessChunk's side effect.
func (e *Engine) GetSimilarityScore(id types.SessionID) (float64, error) {
	e.mu.RLock()
	sess, ok := e.sessions[id]
	e.mu.RUnlock()
	if !ok {
		return 0, enginerr.New("engine.GetSimilarityScore", enginerr.SessionNotFound)
	}
	return sess.SimilarityScore()
}

// GetSimilarityComponents is the §6 getSimilarityComponents operation.
func (e *Engine) GetSimilarityComponents(id types.SessionID) (similarity.Components, error) {
	e.mu.RLock()
	sess, ok := e.sessions[id]
	e.mu.RUnlock()
	if !ok {
		return similarity.Components{}, enginerr.New("engine.GetSimilarityComponents", enginerr.SessionNotFound)
	}
	return sess.SimilarityComponents()
}

// GetRealtimeSimilarityState is the §6 getRealtimeSimilarityState
// operation.
func (e *Engine) GetRealtimeSimilarityState(id types.SessionID) (session.RealtimeState, error) {
	e.mu.RLock()
	sess, ok := e.sessions[id]
	e.mu.RUnlock()
	if !ok {
		return session.RealtimeState{}, enginerr.New("engine.GetRealtimeSimilarityState", enginerr.SessionNotFound)
	}
	return sess.Realtime(), nil
}

// SetEnhancedAnalyzersEnabled is the §6 setEnhancedAnalyzersEnabled
// operation.
func (e *Engine) SetEnhancedAnalyzersEnabled(id types.SessionID, enabled bool) error {
	e.mu.RLock()
	sess, ok := e.sessions[id]
	e.mu.RUnlock()
	if !ok {
		return enginerr.New("engine.SetEnhancedAnalyzersEnabled", enginerr.SessionNotFound)
	}
	sess.SetEnhancedAnalyzersEnabled(enabled)
	return nil
}

// GetEnhancedAnalysisSummary is the §6 getEnhancedAnalysisSummary
// operation: a standalone query that auto-enables the analyzers on
// first call, per spec §4.10.
func (e *Engine) GetEnhancedAnalysisSummary(id types.SessionID) (session.EnhancedSummary, error) {
	e.mu.RLock()
	sess, ok := e.sessions[id]
	e.mu.RUnlock()
	if !ok {
		return session.EnhancedSummary{}, enginerr.New("engine.GetEnhancedAnalysisSummary", enginerr.SessionNotFound)
	}
	return sess.GetEnhancedAnalysisSummary(), nil
}

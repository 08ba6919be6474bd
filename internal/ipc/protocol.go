// Package ipc exposes the engine's operations over a JSON-over-Unix-socket
// transport, the same request/response envelope shape the teacher's
// internal/ipc/protocol.go used for its player daemon, retargeted at
// session lifecycle and chunk scoring commands.
package ipc

import "encoding/json"

// CommandType names one engine operation reachable over the socket.
type CommandType string

const (
	CmdCreateSession    CommandType = "createSession"
	CmdProcessChunk     CommandType = "processChunk"
	CmdFinalizeSession  CommandType = "finalizeSession"
	CmdResetSession     CommandType = "resetSession"
	CmdDestroySession   CommandType = "destroySession"
	CmdSessionState     CommandType = "sessionState"

	CmdLoadMasterCall              CommandType = "loadMasterCall"
	CmdGetSimilarityScore          CommandType = "getSimilarityScore"
	CmdGetSimilarityComponents     CommandType = "getSimilarityComponents"
	CmdGetRealtimeSimilarityState  CommandType = "getRealtimeSimilarityState"
	CmdSetEnhancedAnalyzersEnabled CommandType = "setEnhancedAnalyzersEnabled"
	CmdGetEnhancedAnalysisSummary  CommandType = "getEnhancedAnalysisSummary"
)

// Request is a client request: a command name plus its opaque,
// command-specific payload.
type Request struct {
	Cmd  CommandType     `json:"cmd"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Response is a server response: either Data on success, or Error on
// failure. Never both.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// CreateSessionRequest names the master call a new session should be
// compared against and the sample rate it will stream at.
type CreateSessionRequest struct {
	CallID     string `json:"callId"`
	SampleRate int    `json:"sampleRate"`
}

// CreateSessionResponse carries the newly created session's ID.
type CreateSessionResponse struct {
	SessionID uint64 `json:"sessionId"`
}

// ProcessChunkRequest carries one chunk of PCM samples (already
// decoded to float64, mono) for an existing session.
type ProcessChunkRequest struct {
	SessionID uint64    `json:"sessionId"`
	Samples   []float64 `json:"samples"`
}

// ProcessChunkResponse mirrors internal/session.ChunkResult over the
// wire.
type ProcessChunkResponse struct {
	Score    float64          `json:"score"`
	Reliable bool             `json:"reliable"`
	Enhanced *EnhancedPayload `json:"enhanced,omitempty"`
}

// EnhancedPayload is the wire form of internal/session.EnhancedSummary.
type EnhancedPayload struct {
	PitchHz           float64 `json:"pitchHz"`
	PitchVoiced       bool    `json:"pitchVoiced"`
	HNR               float64 `json:"hnr"`
	SpectralCentroid  float64 `json:"spectralCentroid"`
	TempoBPM          float64 `json:"tempoBpm"`
	RMS               float64 `json:"rms"`
	Peak              float64 `json:"peak"`
	Valid             bool    `json:"valid"`
}

// SessionIDRequest is the payload shape shared by finalize/reset/destroy/state.
type SessionIDRequest struct {
	SessionID uint64 `json:"sessionId"`
}

// FinalizeSessionResponse carries the frozen final similarity score.
type FinalizeSessionResponse struct {
	Score float64 `json:"score"`
}

// SessionStateResponse carries a session's lifecycle state name.
type SessionStateResponse struct {
	State string `json:"state"`
}

// LoadMasterCallRequest rebinds an existing session to a different
// master call.
type LoadMasterCallRequest struct {
	SessionID uint64 `json:"sessionId"`
	CallID    string `json:"callId"`
}

// SimilarityScoreResponse carries a standalone getSimilarityScore
// result.
type SimilarityScoreResponse struct {
	Score float64 `json:"score"`
}

// SimilarityComponentsResponse mirrors internal/similarity.Components
// over the wire.
type SimilarityComponentsResponse struct {
	Offset      float64 `json:"offset"`
	DTW         float64 `json:"dtw"`
	Mean        float64 `json:"mean"`
	Subsequence float64 `json:"subsequence"`
}

// RealtimeStateResponse mirrors internal/session.RealtimeState over
// the wire.
type RealtimeStateResponse struct {
	FramesObserved    int  `json:"framesObserved"`
	MinFramesRequired int  `json:"minFramesRequired"`
	Reliable          bool `json:"reliable"`
}

// SetEnhancedAnalyzersEnabledRequest toggles C6-C9 analyzer execution
// for a session.
type SetEnhancedAnalyzersEnabledRequest struct {
	SessionID uint64 `json:"sessionId"`
	Enabled   bool   `json:"enabled"`
}

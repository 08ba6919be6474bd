// Package ipc's Server is the newline-delimited-JSON-over-Unix-socket
// accept loop: listener setup, per-connection read loop, and command
// dispatch. Grounded on the teacher's internal/ipc/server.go
// Start/acceptLoop/handleConnection/handleRequest shape, with the
// player/queue/scanner collaborators replaced by a single
// *engine.Engine and the command set replaced by session lifecycle
// operations.
package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"

	"github.com/huntmasteracademy/gamecalls-engine/internal/engine"
	"github.com/huntmasteracademy/gamecalls-engine/internal/enginerr"
	"github.com/huntmasteracademy/gamecalls-engine/internal/types"
)

// Server handles IPC communication with clients over a Unix domain
// socket.
type Server struct {
	socketPath string
	eng        *engine.Engine

	listener net.Listener
	mu       sync.Mutex
	clients  map[net.Conn]struct{}
}

// NewServer creates a Server backed by eng, listening at socketPath
// once Start is called.
func NewServer(socketPath string, eng *engine.Engine) *Server {
	return &Server{
		socketPath: socketPath,
		eng:        eng,
		clients:    make(map[net.Conn]struct{}),
	}
}

// Start binds the Unix socket and serves connections until ctx is
// canceled.
func (s *Server) Start(ctx context.Context) error {
	if err := os.RemoveAll(s.socketPath); err != nil {
		return fmt.Errorf("failed to remove existing socket: %w", err)
	}

	log.Printf("[IPC] creating socket at %s", s.socketPath)

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	log.Printf("[IPC] server listening, waiting for connections...")

	go s.acceptLoop(ctx)

	<-ctx.Done()

	log.Printf("[IPC] shutting down server...")

	s.mu.Lock()
	clientCount := len(s.clients)
	for conn := range s.clients {
		conn.Close()
	}
	s.mu.Unlock()

	log.Printf("[IPC] closed %d client connections", clientCount)

	listener.Close()
	os.RemoveAll(s.socketPath)

	log.Printf("[IPC] server stopped")
	return nil
}

func (s *Server) acceptLoop(ctx context.Context) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				log.Printf("[IPC] accept error: %v", err)
				continue
			}
		}

		s.mu.Lock()
		s.clients[conn] = struct{}{}
		s.mu.Unlock()

		go s.handleConnection(ctx, conn)
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer func() {
		conn.Close()
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
	}()

	reader := bufio.NewReader(conn)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := reader.ReadBytes('\n')
		if err != nil {
			if err != io.EOF {
				log.Printf("[IPC] read error: %v", err)
			}
			return
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.sendError(conn, "invalid request format")
			continue
		}

		resp := s.handleRequest(&req)
		if err := s.sendResponse(conn, resp); err != nil {
			log.Printf("[IPC] send error: %v", err)
			return
		}
	}
}

func (s *Server) handleRequest(req *Request) *Response {
	switch req.Cmd {
	case CmdCreateSession:
		return s.handleCreateSession(req)
	case CmdProcessChunk:
		return s.handleProcessChunk(req)
	case CmdFinalizeSession:
		return s.handleFinalizeSession(req)
	case CmdResetSession:
		return s.handleResetSession(req)
	case CmdDestroySession:
		return s.handleDestroySession(req)
	case CmdSessionState:
		return s.handleSessionState(req)
	case CmdLoadMasterCall:
		return s.handleLoadMasterCall(req)
	case CmdGetSimilarityScore:
		return s.handleGetSimilarityScore(req)
	case CmdGetSimilarityComponents:
		return s.handleGetSimilarityComponents(req)
	case CmdGetRealtimeSimilarityState:
		return s.handleGetRealtimeSimilarityState(req)
	case CmdSetEnhancedAnalyzersEnabled:
		return s.handleSetEnhancedAnalyzersEnabled(req)
	case CmdGetEnhancedAnalysisSummary:
		return s.handleGetEnhancedAnalysisSummary(req)
	default:
		return errorResponse(fmt.Sprintf("unknown command: %s", req.Cmd))
	}
}

func (s *Server) handleCreateSession(req *Request) *Response {
	var in CreateSessionRequest
	if err := json.Unmarshal(req.Data, &in); err != nil {
		return errorResponse("invalid createSession payload")
	}
	id, err := s.eng.CreateSession(in.CallID, in.SampleRate)
	if err != nil {
		return errorResponse(describeErr(err))
	}
	return dataResponse(CreateSessionResponse{SessionID: uint64(id)})
}

func (s *Server) handleProcessChunk(req *Request) *Response {
	var in ProcessChunkRequest
	if err := json.Unmarshal(req.Data, &in); err != nil {
		return errorResponse("invalid processChunk payload")
	}
	result, err := s.eng.ProcessChunk(types.SessionID(in.SessionID), in.Samples)
	if err != nil {
		return errorResponse(describeErr(err))
	}
	return dataResponse(ProcessChunkResponse{
		Score:    result.Score,
		Reliable: result.Reliable,
		Enhanced: &EnhancedPayload{
			PitchHz:          result.Enhanced.Pitch.FrequencyHz,
			PitchVoiced:      result.Enhanced.Pitch.Voiced,
			HNR:              result.Enhanced.Harmonic.HNR,
			SpectralCentroid: result.Enhanced.Harmonic.SpectralCentroid,
			TempoBPM:         result.Enhanced.TempoBPM,
			RMS:              result.Enhanced.Loudness.RMS,
			Peak:             result.Enhanced.Loudness.Peak,
			Valid:            result.Enhanced.Valid,
		},
	})
}

func (s *Server) handleFinalizeSession(req *Request) *Response {
	var in SessionIDRequest
	if err := json.Unmarshal(req.Data, &in); err != nil {
		return errorResponse("invalid finalizeSession payload")
	}
	score, err := s.eng.FinalizeSession(types.SessionID(in.SessionID))
	if err != nil {
		return errorResponse(describeErr(err))
	}
	return dataResponse(FinalizeSessionResponse{Score: score})
}

func (s *Server) handleResetSession(req *Request) *Response {
	var in SessionIDRequest
	if err := json.Unmarshal(req.Data, &in); err != nil {
		return errorResponse("invalid resetSession payload")
	}
	if err := s.eng.ResetSession(types.SessionID(in.SessionID)); err != nil {
		return errorResponse(describeErr(err))
	}
	return dataResponse(struct{}{})
}

func (s *Server) handleDestroySession(req *Request) *Response {
	var in SessionIDRequest
	if err := json.Unmarshal(req.Data, &in); err != nil {
		return errorResponse("invalid destroySession payload")
	}
	if err := s.eng.DestroySession(types.SessionID(in.SessionID)); err != nil {
		return errorResponse(describeErr(err))
	}
	return dataResponse(struct{}{})
}

func (s *Server) handleSessionState(req *Request) *Response {
	var in SessionIDRequest
	if err := json.Unmarshal(req.Data, &in); err != nil {
		return errorResponse("invalid sessionState payload")
	}
	state, err := s.eng.SessionState(types.SessionID(in.SessionID))
	if err != nil {
		return errorResponse(describeErr(err))
	}
	return dataResponse(SessionStateResponse{State: state.String()})
}

func (s *Server) handleLoadMasterCall(req *Request) *Response {
	var in LoadMasterCallRequest
	if err := json.Unmarshal(req.Data, &in); err != nil {
		return errorResponse("invalid loadMasterCall payload")
	}
	if err := s.eng.LoadMasterCall(types.SessionID(in.SessionID), in.CallID); err != nil {
		return errorResponse(describeErr(err))
	}
	return dataResponse(struct{}{})
}

func (s *Server) handleGetSimilarityScore(req *Request) *Response {
	var in SessionIDRequest
	if err := json.Unmarshal(req.Data, &in); err != nil {
		return errorResponse("invalid getSimilarityScore payload")
	}
	score, err := s.eng.GetSimilarityScore(types.SessionID(in.SessionID))
	if err != nil {
		return errorResponse(describeErr(err))
	}
	return dataResponse(SimilarityScoreResponse{Score: score})
}

func (s *Server) handleGetSimilarityComponents(req *Request) *Response {
	var in SessionIDRequest
	if err := json.Unmarshal(req.Data, &in); err != nil {
		return errorResponse("invalid getSimilarityComponents payload")
	}
	comps, err := s.eng.GetSimilarityComponents(types.SessionID(in.SessionID))
	if err != nil {
		return errorResponse(describeErr(err))
	}
	return dataResponse(SimilarityComponentsResponse{
		Offset:      comps.Offset,
		DTW:         comps.DTW,
		Mean:        comps.Mean,
		Subsequence: comps.Subsequence,
	})
}

func (s *Server) handleGetRealtimeSimilarityState(req *Request) *Response {
	var in SessionIDRequest
	if err := json.Unmarshal(req.Data, &in); err != nil {
		return errorResponse("invalid getRealtimeSimilarityState payload")
	}
	st, err := s.eng.GetRealtimeSimilarityState(types.SessionID(in.SessionID))
	if err != nil {
		return errorResponse(describeErr(err))
	}
	return dataResponse(RealtimeStateResponse{
		FramesObserved:    st.FramesObserved,
		MinFramesRequired: st.MinFramesRequired,
		Reliable:          st.Reliable,
	})
}

func (s *Server) handleSetEnhancedAnalyzersEnabled(req *Request) *Response {
	var in SetEnhancedAnalyzersEnabledRequest
	if err := json.Unmarshal(req.Data, &in); err != nil {
		return errorResponse("invalid setEnhancedAnalyzersEnabled payload")
	}
	if err := s.eng.SetEnhancedAnalyzersEnabled(types.SessionID(in.SessionID), in.Enabled); err != nil {
		return errorResponse(describeErr(err))
	}
	return dataResponse(struct{}{})
}

func (s *Server) handleGetEnhancedAnalysisSummary(req *Request) *Response {
	var in SessionIDRequest
	if err := json.Unmarshal(req.Data, &in); err != nil {
		return errorResponse("invalid getEnhancedAnalysisSummary payload")
	}
	summary, err := s.eng.GetEnhancedAnalysisSummary(types.SessionID(in.SessionID))
	if err != nil {
		return errorResponse(describeErr(err))
	}
	return dataResponse(EnhancedPayload{
		PitchHz:          summary.Pitch.FrequencyHz,
		PitchVoiced:      summary.Pitch.Voiced,
		HNR:              summary.Harmonic.HNR,
		SpectralCentroid: summary.Harmonic.SpectralCentroid,
		TempoBPM:         summary.TempoBPM,
		RMS:              summary.Loudness.RMS,
		Peak:             summary.Loudness.Peak,
		Valid:            summary.Valid,
	})
}

func (s *Server) sendResponse(conn net.Conn, resp *Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = conn.Write(data)
	return err
}

func (s *Server) sendError(conn net.Conn, msg string) {
	s.sendResponse(conn, errorResponse(msg))
}

func describeErr(err error) string {
	if kind := enginerr.Of(err); kind != "" {
		return string(kind)
	}
	return err.Error()
}

func errorResponse(msg string) *Response {
	return &Response{Success: false, Error: msg}
}

func dataResponse(v any) *Response {
	data, err := json.Marshal(v)
	if err != nil {
		return errorResponse(fmt.Sprintf("encode response: %v", err))
	}
	return &Response{Success: true, Data: data}
}

package ipc

import (
	"encoding/json"
	"testing"
)

func TestRequestRoundTrip(t *testing.T) {
	payload, err := json.Marshal(CreateSessionRequest{CallID: "elk-bugle-01"})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := Request{Cmd: CmdCreateSession, Data: payload}

	encoded, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	var decoded Request
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("unmarshal request: %v", err)
	}
	if decoded.Cmd != CmdCreateSession {
		t.Fatalf("expected cmd %s, got %s", CmdCreateSession, decoded.Cmd)
	}

	var out CreateSessionRequest
	if err := json.Unmarshal(decoded.Data, &out); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if out.CallID != "elk-bugle-01" {
		t.Fatalf("expected callId round trip, got %q", out.CallID)
	}
}

func TestDataResponseEncodesSuccess(t *testing.T) {
	resp := dataResponse(CreateSessionResponse{SessionID: 7})
	if !resp.Success {
		t.Fatal("expected success response")
	}
	var out CreateSessionResponse
	if err := json.Unmarshal(resp.Data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.SessionID != 7 {
		t.Fatalf("expected sessionId 7, got %d", out.SessionID)
	}
}

func TestErrorResponseCarriesMessage(t *testing.T) {
	resp := errorResponse("session_not_found")
	if resp.Success {
		t.Fatal("expected failure response")
	}
	if resp.Error != "session_not_found" {
		t.Fatalf("unexpected error message: %q", resp.Error)
	}
}

func TestHandleRequestUnknownCommand(t *testing.T) {
	s := &Server{}
	resp := s.handleRequest(&Request{Cmd: "bogus"})
	if resp.Success {
		t.Fatal("expected failure for unknown command")
	}
}

package ipc

// Handler utilities: request/response logging, following the
// teacher's internal/ipc/handler.go RequestLogger/ResponseLogger
// shape with the auth-token truncation dropped (this transport has no
// token/pairing concept).

import (
	"log"
	"time"
)

// RequestLogger logs an incoming request.
func RequestLogger(req *Request) {
	log.Printf("[IPC] request: cmd=%s", req.Cmd)
}

// ResponseLogger logs an outgoing response and how long it took to
// produce.
func ResponseLogger(resp *Response, duration time.Duration) {
	if resp.Success {
		log.Printf("[IPC] response: success=true duration=%v", duration)
	} else {
		log.Printf("[IPC] response: success=false error=%s duration=%v", resp.Error, duration)
	}
}

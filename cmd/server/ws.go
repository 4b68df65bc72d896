package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/hoclieu/examgen/internal/build"
)

const wsBuildTimeout = 5 * time.Minute

// wsMessage is the envelope for everything sent over /ws/build: first
// the progress events, then a final message carrying the build result.
type wsMessage struct {
	Type   string        `json:"type"`
	Event  *build.Event  `json:"event,omitempty"`
	Result *build.Result `json:"result,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// handleBuildWS runs a build over a websocket. The client sends one
// buildRequest, receives a stream of progress events and finally the
// full result.
func (s *server) handleBuildWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithTimeout(r.Context(), wsBuildTimeout)
	defer cancel()

	var req buildRequest
	if err := wsjson.Read(ctx, conn, &req); err != nil {
		conn.Close(websocket.StatusPolicyViolation, "expected a build request")
		return
	}

	buildReq, err := s.resolveBuild(req)
	if err != nil {
		wsjson.Write(ctx, conn, wsMessage{Type: "error", Error: err.Error()})
		conn.Close(websocket.StatusNormalClosure, "")
		return
	}

	res, err := s.builder.BuildWithEvents(ctx, buildReq, s.bank, func(e build.Event) {
		ev := e
		if err := wsjson.Write(ctx, conn, wsMessage{Type: "event", Event: &ev}); err != nil {
			slog.Debug("websocket event dropped", "error", err)
		}
	})
	if err != nil {
		wsjson.Write(ctx, conn, wsMessage{Type: "error", Error: err.Error()})
		conn.Close(websocket.StatusInternalError, "build failed")
		return
	}

	if err := wsjson.Write(ctx, conn, wsMessage{Type: "result", Result: res}); err != nil {
		slog.Warn("websocket result write failed", "error", err)
		return
	}
	conn.Close(websocket.StatusNormalClosure, "")
}

package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/conneroisu/randomall/internal/engine"
	apperrors "github.com/conneroisu/randomall/internal/errors"
)

// handleEditorWS runs a test session for the gen editor: every document
// received is tested and answered with the engine response.
func (s *Server) handleEditorWS(w http.ResponseWriter, r *http.Request) {
	user, err := requireUser(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !s.trackSession() {
		s.writeError(w, r, apperrors.NewInternalError("SHUTTING_DOWN", "server is shutting down", nil))
		return
	}
	defer s.sessions.Done()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.originPatterns(),
	})
	if err != nil {
		s.logger.Warn(r.Context(), err, "Websocket upgrade failed", "client_ip", clientIP(r))
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(MaxRequestBytes)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stop := context.AfterFunc(s.baseCtx, cancel)
	defer stop()

	s.logger.Debug(ctx, "Editor session started", "user_id", user.ID)
	for {
		var doc engine.Document
		if err := wsjson.Read(ctx, conn, &doc); err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				s.logger.Debug(ctx, "Editor session read failed", "error", err.Error())
			}
			return
		}

		var reply any
		resp, err := engine.New(doc, s.engineDeps(), user, nil).Test(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			reply = errorBody{Status: engine.StatusError, Msg: s.errorMessage(err)}
		} else {
			reply = resp
		}

		if err := wsjson.Write(ctx, conn, reply); err != nil {
			return
		}
	}
}

func (s *Server) trackSession() bool {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()
	if s.closed {
		return false
	}
	s.sessions.Add(1)
	return true
}

// originPatterns turns the allowed origins into host patterns for the
// websocket origin check. Same-origin requests are always accepted.
func (s *Server) originPatterns() []string {
	patterns := make([]string, 0, len(s.cfg.Server.AllowedOrigins))
	for _, origin := range s.cfg.Server.AllowedOrigins {
		u, err := url.Parse(origin)
		if err != nil || u.Host == "" {
			continue
		}
		patterns = append(patterns, u.Host)
	}
	return patterns
}

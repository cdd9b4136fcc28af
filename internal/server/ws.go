// WebSocket chat transport.
//
// DESIGN: The storefront chat widget keeps one socket per session instead of
// POSTing every turn. Frames are JSON and mirror the POST /v1/message
// payloads exactly: inbound {message}, outbound MessageResponse. Session
// semantics are identical to the HTTP path; the manager still serializes
// turns per session.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog/log"

	"github.com/shoply/assistant-engine/internal/session"
)

// wsInbound is one client frame.
type wsInbound struct {
	Message string `json:"message"`
}

// handleSessionWS upgrades to a websocket bound to one session.
func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("WebSocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closing")

	ctx := r.Context()
	log.Debug().Str("session_id", sessionID).Msg("WebSocket session attached")

	for {
		var in wsInbound
		if err := wsjson.Read(ctx, conn, &in); err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || ctx.Err() != nil {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			log.Debug().Err(err).Str("session_id", sessionID).Msg("WebSocket read failed")
			return
		}
		if in.Message == "" {
			continue
		}

		reply, err := s.manager.SendMessage(ctx, sessionID, in.Message)
		if err != nil {
			if out, closeStatus := wsErrorFrame(err); out != nil {
				_ = wsjson.Write(ctx, conn, out)
				if closeStatus != 0 {
					conn.Close(closeStatus, err.Error())
					return
				}
				continue
			}
			conn.Close(websocket.StatusInternalError, "internal error")
			return
		}

		if err := wsjson.Write(ctx, conn, buildMessageResponse(reply)); err != nil {
			return
		}
	}
}

// wsErrorFrame maps taxonomy errors onto an outbound frame and an optional
// close status. Not-found and ended terminate the socket; a budget refusal
// leaves it open so the client can retry after a reset.
func wsErrorFrame(err error) (*MessageResponse, websocket.StatusCode) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return &MessageResponse{Success: false, Message: "session not found"}, websocket.StatusPolicyViolation
	case errors.Is(err, session.ErrSessionEnded):
		return &MessageResponse{Success: false, Message: "session has ended"}, websocket.StatusNormalClosure
	case errors.Is(err, session.ErrBudgetExceeded):
		return &MessageResponse{Success: false, Message: session.BudgetExceededMessage()}, 0
	case errors.Is(err, context.Canceled):
		return nil, 0
	default:
		return nil, 0
	}
}

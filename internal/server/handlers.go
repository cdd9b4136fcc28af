// Session API handlers.
//
// DESIGN: Error mapping at this boundary:
//   - SessionNotFound -> 404, SessionEnded -> 409, BudgetExceeded -> 402
//   - provider failures never reach HTTP errors: the manager converts them
//     to a degraded reply, returned 200 with success=false
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/shoply/assistant-engine/internal/budget"
	"github.com/shoply/assistant-engine/internal/config"
	"github.com/shoply/assistant-engine/internal/session"
)

// handleCreateSession allocates a session and returns the welcome message.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, config.MaxRequestBodySize)

	// Body is optional: an empty or malformed POST creates an anonymous
	// session. CreateSession never fails under normal conditions.
	var req CreateSessionRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	id, welcome := s.manager.CreateSession(req.UserID)
	writeJSON(w, http.StatusOK, CreateSessionResponse{
		SessionID:      id,
		WelcomeMessage: welcome,
	})
}

// handleMessage runs one conversational turn.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, config.MaxRequestBodySize)

	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" || strings.TrimSpace(req.Message) == "" {
		writeError(w, "sessionId and message are required", http.StatusBadRequest)
		return
	}

	reply, err := s.manager.SendMessage(r.Context(), req.SessionID, req.Message)
	if err != nil {
		s.writeSessionError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, buildMessageResponse(reply))
}

// handleEndSession marks a session ended. Idempotent.
func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.manager.EndSession(id); err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// handleCostStats returns the global budget snapshot.
func (s *Server) handleCostStats(w http.ResponseWriter, r *http.Request) {
	snap := s.ledger.Snapshot()
	writeJSON(w, http.StatusOK, CostStatsResponse{
		Budget:          snap.CeilingUSD(),
		TotalCost:       snap.SpentUSD(),
		RemainingBudget: snap.RemainingUSD(),
		TotalTokensUsed: snap.TokensUsed,
		Tips:            buildTips(snap),
	})
}

// handleResetCosts zeroes spend and token usage. Privileged: loopback only.
func (s *Server) handleResetCosts(w http.ResponseWriter, r *http.Request) {
	if !isLoopback(r.RemoteAddr) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	s.ledger.Reset()
	log.Info().Msg("Budget ledger reset")
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// writeSessionError maps the session error taxonomy onto HTTP statuses.
func (s *Server) writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		writeError(w, "session not found", http.StatusNotFound)
	case errors.Is(err, session.ErrSessionEnded):
		writeError(w, "session has ended", http.StatusConflict)
	case errors.Is(err, session.ErrBudgetExceeded):
		writeJSON(w, http.StatusPaymentRequired, MessageResponse{
			Success: false,
			Message: session.BudgetExceededMessage(),
		})
	default:
		log.Error().Err(err).Msg("Unexpected session error")
		writeError(w, "internal error", http.StatusInternalServerError)
	}
}

// buildMessageResponse renders a manager reply as the wire payload.
func buildMessageResponse(reply *session.Reply) MessageResponse {
	resp := MessageResponse{
		Success:         !reply.Degraded,
		Message:         reply.Text,
		BudgetExhausted: reply.BudgetExhausted,
	}
	// A degraded apology grounds on nothing; the failure shape is just
	// {success, message}.
	if reply.Degraded {
		return resp
	}
	for _, it := range reply.ContextItems {
		resp.ContextProducts = append(resp.ContextProducts, ContextProduct{
			ID:    it.ID,
			Name:  it.Name,
			Price: it.PriceMin,
		})
	}
	if reply.Cost != nil {
		resp.CostInfo = &CostInfo{
			RequestCost:     float64(reply.Cost.RequestCostNano) / budget.NanoPerUSD,
			RemainingBudget: reply.Cost.Ledger.RemainingUSD(),
			TotalCost:       reply.Cost.Ledger.SpentUSD(),
			TokensUsed:      reply.Cost.Ledger.TokensUsed,
		}
	}
	return resp
}

// buildTips derives advisory strings from the remaining-budget fraction.
func buildTips(snap budget.Snapshot) []string {
	tips := []string{"Conversation history is trimmed automatically; shorter questions cost less."}
	if snap.CeilingNano <= 0 {
		return tips
	}
	remainingPct := float64(snap.RemainingNano) / float64(snap.CeilingNano) * 100
	switch {
	case remainingPct <= 0:
		tips = append(tips, "Budget exhausted: the assistant will refuse new messages until costs are reset.")
	case remainingPct < 10:
		tips = append(tips, "Less than 10% of the budget remains.")
	case remainingPct < 50:
		tips = append(tips, "Over half of the budget has been spent.")
	}
	return tips
}

// Package server exposes the session API to the presentation layer.
//
// DESIGN: Thin JSON transport over the session manager. Field names below are
// the wire contract with the storefront frontend; the engine's internal
// nano-dollar amounts are rendered as USD floats at this boundary only.
package server

// CreateSessionRequest is the body of POST /v1/session.
type CreateSessionRequest struct {
	UserID string `json:"userId,omitempty"`
}

// CreateSessionResponse is the reply to POST /v1/session.
type CreateSessionResponse struct {
	SessionID      string `json:"sessionId"`
	WelcomeMessage string `json:"welcomeMessage"`
}

// MessageRequest is the body of POST /v1/message.
type MessageRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

// ContextProduct is one catalog item grounding a reply.
type ContextProduct struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"` // minor currency units
}

// CostInfo is the per-reply cost snapshot.
type CostInfo struct {
	RequestCost     float64 `json:"requestCost"`
	RemainingBudget float64 `json:"remainingBudget"`
	TotalCost       float64 `json:"totalCost"`
	TokensUsed      int64   `json:"tokensUsed"`
}

// MessageResponse is the reply to POST /v1/message. On a degraded turn
// Success is false and CostInfo is absent.
type MessageResponse struct {
	Success         bool             `json:"success"`
	Message         string           `json:"message"`
	ContextProducts []ContextProduct `json:"contextProducts,omitempty"`
	BudgetExhausted bool             `json:"budgetExhausted,omitempty"`
	CostInfo        *CostInfo        `json:"costInfo,omitempty"`
}

// SuccessResponse is the generic {success} reply.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// CostStatsResponse is the reply to GET /v1/cost-stats.
type CostStatsResponse struct {
	Budget          float64  `json:"budget"`
	TotalCost       float64  `json:"totalCost"`
	RemainingBudget float64  `json:"remainingBudget"`
	TotalTokensUsed int64    `json:"totalTokensUsed"`
	Tips            []string `json:"tips"`
}

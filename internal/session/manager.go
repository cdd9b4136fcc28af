// Session manager - orchestrates retrieval, generation, cost estimation, and
// the budget ledger on each turn.
//
// DESIGN: Main turn flow (SendMessage):
//   1. Resolve and lock the session; reject unknown or ended sessions
//   2. Append the user turn to the bounded history
//   3. Rank catalog items for the query (pure, never fatal)
//   4. Pre-flight admission: refuse outright when no budget remains
//   5. One bounded generation call, no retries
//   6. On failure: apology turn, nothing debited, session stays usable
//   7. On success: debit actual usage; a rejected debit still records the
//      turn but flags the response so the caller sees the budget is gone
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/shoply/assistant-engine/internal/budget"
	"github.com/shoply/assistant-engine/internal/catalog"
	"github.com/shoply/assistant-engine/internal/monitoring"
	"github.com/shoply/assistant-engine/internal/provider"
)

// WelcomeMessage seeds every new session as a synthetic assistant turn.
// It costs nothing and triggers no retrieval.
const WelcomeMessage = "Hi! I'm your shopping assistant. Ask me about products, prices, or what might fit your needs."

// apologyMessage is the locally synthesized reply when generation fails.
const apologyMessage = "Sorry, I'm having trouble answering right now. Please try again in a moment."

// budgetExceededMessage is returned on pre-flight refusal.
const budgetExceededMessage = "Sorry, the assistant is unavailable because its usage budget is exhausted."

// Completer is the generation provider dependency.
type Completer interface {
	Complete(ctx context.Context, req provider.Request) (*provider.Result, error)
}

// TokenEstimator estimates prompt tokens for pre-flight admission.
type TokenEstimator interface {
	CountRequest(req provider.Request) int
}

// Config holds manager behavior knobs, fixed at construction.
type Config struct {
	HistoryWindow       int
	RetrievalK          int
	MaxCompletionTokens int
}

// Manager owns the session lifecycle and the per-turn pipeline.
type Manager struct {
	registry  *Registry
	snapshot  *catalog.Snapshot
	completer Completer
	estimator TokenEstimator
	ledger    *budget.Ledger
	rates     budget.Rates
	metrics   *monitoring.Collector
	cfg       Config
}

// NewManager wires the manager's collaborators. snapshot may be nil when no
// catalog is configured; retrieval then degrades to an empty context list.
// metrics may be nil.
func NewManager(registry *Registry, snapshot *catalog.Snapshot, completer Completer,
	estimator TokenEstimator, ledger *budget.Ledger, rates budget.Rates,
	metrics *monitoring.Collector, cfg Config) *Manager {
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = 20
	}
	if cfg.RetrievalK <= 0 {
		cfg.RetrievalK = 3
	}
	return &Manager{
		registry:  registry,
		snapshot:  snapshot,
		completer: completer,
		estimator: estimator,
		ledger:    ledger,
		rates:     rates,
		metrics:   metrics,
		cfg:       cfg,
	}
}

// CostInfo is the cost snapshot attached to a billed reply.
type CostInfo struct {
	RequestCostNano int64
	Ledger          budget.Snapshot
}

// Reply is the outcome of one SendMessage turn.
type Reply struct {
	Text         string
	ContextItems []catalog.Item

	// Degraded marks a locally synthesized apology after a provider
	// failure; nothing was debited and Cost is unset.
	Degraded bool

	// BudgetExhausted marks a successful generation whose debit was
	// rejected: the provider already did the work, so the turn stands, but
	// subsequent calls will be refused pre-flight.
	BudgetExhausted bool

	Cost *CostInfo
}

// CreateSession allocates and registers a new Active session, seeded with
// the welcome turn. Never fails under normal conditions.
func (m *Manager) CreateSession(ownerID string) (sessionID, welcomeText string) {
	s := newSession(uuid.NewString(), ownerID, m.cfg.HistoryWindow)
	s.history.Append(Turn{
		Role:      RoleAssistant,
		Text:      WelcomeMessage,
		Timestamp: time.Now(),
	})
	m.registry.Insert(s)

	if m.metrics != nil {
		m.metrics.RecordSessionCreated()
	}
	log.Info().Str("session_id", s.ID).Str("owner_id", ownerID).Msg("Session created")
	return s.ID, WelcomeMessage
}

// SendMessage runs one conversational turn. Provider failures come back as a
// degraded Reply with a nil error; the error return is reserved for the
// caller-recoverable taxonomy (not-found, ended, budget) and cancellation.
func (m *Manager) SendMessage(ctx context.Context, sessionID, text string) (*Reply, error) {
	s := m.registry.Get(sessionID)
	if s == nil {
		return nil, ErrSessionNotFound
	}

	// The session lock covers the whole turn so two SendMessage calls on
	// the same session cannot interleave their history writes.
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusActive {
		return nil, ErrSessionEnded
	}
	s.touch(time.Now())

	s.history.Append(Turn{Role: RoleUser, Text: text, Timestamp: time.Now()})

	items := m.retrieve(text)
	req := provider.BuildRequest(items, m.promptHistory(s))

	// Pre-flight admission control: when nothing remains there is no point
	// paying the provider just to have the debit rejected.
	remaining := m.ledger.RemainingNano()
	if remaining <= 0 {
		if m.metrics != nil {
			m.metrics.RecordBudgetRefusal()
		}
		log.Warn().Str("session_id", sessionID).Msg("Message refused, budget exhausted")
		return nil, ErrBudgetExceeded
	}
	if m.estimator != nil {
		worstCase := m.rates.Cost(m.estimator.CountRequest(req), m.cfg.MaxCompletionTokens)
		if worstCase > remaining {
			log.Debug().
				Int64("worst_case_nano", worstCase).
				Int64("remaining_nano", remaining).
				Msg("Turn may exceed remaining budget")
		}
	}

	// The call itself is detached from the caller's context: a disconnect
	// must not abort provider work we will be billed for. The client's own
	// timeout still bounds it.
	result, err := m.completer.Complete(context.WithoutCancel(ctx), req)
	if m.metrics != nil {
		m.metrics.RecordProviderCall(err != nil)
	}
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("Generation failed, degrading turn")
		s.history.Append(Turn{Role: RoleAssistant, Text: apologyMessage, Timestamp: time.Now()})
		if m.metrics != nil {
			m.metrics.RecordMessage(true)
		}
		return &Reply{Text: apologyMessage, ContextItems: items, Degraded: true}, nil
	}

	// The provider did the work either way, so usage is debited even when
	// the caller has gone away; only the reply itself is discarded then.
	cost := m.rates.Cost(result.PromptTokens, result.CompletionTokens)
	debited := m.ledger.TryDebit(cost, int64(result.PromptTokens+result.CompletionTokens))
	if !debited {
		log.Warn().
			Str("session_id", sessionID).
			Int64("cost_nano", cost).
			Msg("Debit rejected, budget ceiling reached")
	}

	if ctx.Err() != nil {
		log.Debug().Str("session_id", sessionID).Msg("Caller gone, discarding completed reply")
		return nil, ctx.Err()
	}

	itemIDs := make([]int64, 0, len(items))
	for _, it := range items {
		itemIDs = append(itemIDs, it.ID)
	}
	s.history.Append(Turn{
		Role:             RoleAssistant,
		Text:             result.Text,
		Timestamp:        time.Now(),
		ItemIDs:          itemIDs,
		PromptTokens:     result.PromptTokens,
		CompletionTokens: result.CompletionTokens,
	})
	s.touch(time.Now())
	if m.metrics != nil {
		m.metrics.RecordMessage(false)
	}

	return &Reply{
		Text:            result.Text,
		ContextItems:    items,
		BudgetExhausted: !debited,
		Cost: &CostInfo{
			RequestCostNano: cost,
			Ledger:          m.ledger.Snapshot(),
		},
	}, nil
}

// EndSession marks a session Ended and detaches its history. Idempotent:
// ending an already ended session succeeds with no side effect.
func (m *Manager) EndSession(sessionID string) error {
	s := m.registry.Get(sessionID)
	if s == nil {
		return ErrSessionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusEnded {
		return nil
	}
	if err := s.transition(StatusEnded); err != nil {
		return err
	}
	s.history = nil
	s.touch(time.Now())

	if m.metrics != nil {
		m.metrics.RecordSessionEnded()
	}
	log.Info().Str("session_id", sessionID).Msg("Session ended")
	return nil
}

// BudgetExceededMessage returns the user-facing refusal text.
func BudgetExceededMessage() string { return budgetExceededMessage }

// retrieve ranks catalog items for the query. Retrieval problems are never
// fatal; they degrade to an empty context list.
func (m *Manager) retrieve(query string) []catalog.Item {
	if m.snapshot == nil {
		return nil
	}
	return m.snapshot.Rank(query, m.cfg.RetrievalK)
}

// promptHistory converts the retained window into provider messages.
// Must be called with the session lock held.
func (m *Manager) promptHistory(s *Session) []provider.Message {
	turns := s.history.Recent()
	msgs := make([]provider.Message, 0, len(turns))
	for _, t := range turns {
		msgs = append(msgs, provider.Message{Role: string(t.Role), Content: t.Text})
	}
	return msgs
}

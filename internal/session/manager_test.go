package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoply/assistant-engine/internal/budget"
	"github.com/shoply/assistant-engine/internal/catalog"
	"github.com/shoply/assistant-engine/internal/provider"
)

// stubCompleter returns canned results or errors and records requests.
type stubCompleter struct {
	mu       sync.Mutex
	result   *provider.Result
	err      error
	requests []provider.Request
}

func (f *stubCompleter) Complete(_ context.Context, req provider.Request) (*provider.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	res := *f.result
	return &res, nil
}

func (f *stubCompleter) lastRequest() provider.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

// charEstimator avoids pulling tokenizer data in unit tests.
type charEstimator struct{}

func (charEstimator) CountRequest(req provider.Request) int {
	n := len(req.System) / 4
	for _, m := range req.Messages {
		n += len(m.Content)/4 + 4
	}
	return n
}

func testSnapshot() *catalog.Snapshot {
	return catalog.NewSnapshot([]catalog.Item{
		{ID: 1, Name: "Gaming Laptop Pro", PriceMin: 149900, Category: "laptops", Brand: "Voltix"},
		{ID: 2, Name: "Office Laptop Air", PriceMin: 89900, Category: "laptops", Brand: "Clerion"},
		{ID: 3, Name: "Espresso Machine", PriceMin: 32900, Category: "kitchen", Brand: "Bravia"},
	})
}

func newTestManager(t *testing.T, comp Completer, ceilingUSD float64) (*Manager, *budget.Ledger) {
	t.Helper()
	ledger := budget.NewLedger(budget.USDToNano(ceilingUSD))
	m := NewManager(
		newTestRegistry(time.Hour),
		testSnapshot(),
		comp,
		charEstimator{},
		ledger,
		budget.NewRates(0.0005, 0.0015),
		nil,
		Config{HistoryWindow: 20, RetrievalK: 3, MaxCompletionTokens: 1024},
	)
	return m, ledger
}

func okResult() *provider.Result {
	return &provider.Result{Text: "Here you go.", PromptTokens: 2000, CompletionTokens: 500}
}

func TestManager_CreateSessionSeedsWelcome(t *testing.T) {
	m, _ := newTestManager(t, &stubCompleter{result: okResult()}, 5.0)

	id, welcome := m.CreateSession("user-7")
	require.NotEmpty(t, id)
	assert.Equal(t, WelcomeMessage, welcome)

	s := m.registry.Get(id)
	require.NotNil(t, s)
	assert.Equal(t, StatusActive, s.Status())
	assert.Equal(t, "user-7", s.OwnerID)

	turns := s.Turns()
	require.Len(t, turns, 1)
	assert.Equal(t, RoleAssistant, turns[0].Role)
	assert.Equal(t, WelcomeMessage, turns[0].Text)
	assert.Zero(t, turns[0].PromptTokens, "welcome turn is free")
}

func TestManager_SendMessageSuccess(t *testing.T) {
	comp := &stubCompleter{result: okResult()}
	m, ledger := newTestManager(t, comp, 5.0)
	id, _ := m.CreateSession("")

	reply, err := m.SendMessage(context.Background(), id, "looking for a gaming laptop")
	require.NoError(t, err)
	assert.Equal(t, "Here you go.", reply.Text)
	assert.False(t, reply.Degraded)
	assert.False(t, reply.BudgetExhausted)

	require.NotEmpty(t, reply.ContextItems)
	assert.Equal(t, int64(1), reply.ContextItems[0].ID)

	// 2000 prompt + 500 completion at the test rates = $0.00175.
	require.NotNil(t, reply.Cost)
	assert.Equal(t, budget.USDToNano(0.00175), reply.Cost.RequestCostNano)
	assert.InDelta(t, 4.99825, reply.Cost.Ledger.RemainingUSD(), 1e-12)
	assert.Equal(t, int64(2500), ledger.Snapshot().TokensUsed)

	// History: welcome, user, assistant.
	turns := m.registry.Get(id).Turns()
	require.Len(t, turns, 3)
	assert.Equal(t, RoleUser, turns[1].Role)
	assert.Equal(t, RoleAssistant, turns[2].Role)
	assert.Equal(t, []int64{1, 2}, turns[2].ItemIDs[:2])
	assert.Equal(t, 2000, turns[2].PromptTokens)

	// The outgoing prompt carried the retrieved context.
	req := comp.lastRequest()
	assert.Contains(t, req.System, "Gaming Laptop Pro")
	assert.Equal(t, "looking for a gaming laptop", req.Messages[len(req.Messages)-1].Content)
}

func TestManager_SessionNotFound(t *testing.T) {
	m, _ := newTestManager(t, &stubCompleter{result: okResult()}, 5.0)

	_, err := m.SendMessage(context.Background(), "nope", "hello")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.ErrorIs(t, m.EndSession("nope"), ErrSessionNotFound)
}

func TestManager_EndSessionIdempotent(t *testing.T) {
	m, _ := newTestManager(t, &stubCompleter{result: okResult()}, 5.0)
	id, _ := m.CreateSession("")

	require.NoError(t, m.EndSession(id))
	require.NoError(t, m.EndSession(id), "second end must succeed")

	s := m.registry.Get(id)
	assert.Equal(t, StatusEnded, s.Status())
	assert.Nil(t, s.Turns(), "history detached on end")

	_, err := m.SendMessage(context.Background(), id, "still there?")
	assert.ErrorIs(t, err, ErrSessionEnded)
}

func TestManager_NoChargeOnProviderFailure(t *testing.T) {
	comp := &stubCompleter{err: provider.ErrTimeout}
	m, ledger := newTestManager(t, comp, 5.0)
	id, _ := m.CreateSession("")

	before := ledger.Snapshot()
	reply, err := m.SendMessage(context.Background(), id, "any laptops?")
	require.NoError(t, err, "provider failure degrades, it does not error")

	assert.True(t, reply.Degraded)
	assert.Nil(t, reply.Cost)
	assert.NotEmpty(t, reply.Text)

	after := ledger.Snapshot()
	assert.Equal(t, before.SpentNano, after.SpentNano, "no debit on failure")
	assert.Equal(t, before.TokensUsed, after.TokensUsed)

	// Apology recorded; session remains usable.
	turns := m.registry.Get(id).Turns()
	require.Len(t, turns, 3)
	assert.Equal(t, RoleAssistant, turns[2].Role)

	comp.err = nil
	comp.result = okResult()
	_, err = m.SendMessage(context.Background(), id, "retry")
	assert.NoError(t, err)
}

func TestManager_PreflightRefusalWhenExhausted(t *testing.T) {
	m, ledger := newTestManager(t, &stubCompleter{result: okResult()}, 5.0)
	id, _ := m.CreateSession("")

	// Drain the budget.
	require.True(t, ledger.TryDebit(budget.USDToNano(5.0), 0))

	_, err := m.SendMessage(context.Background(), id, "hello")
	assert.ErrorIs(t, err, ErrBudgetExceeded)

	// After an administrative reset the session works again.
	ledger.Reset()
	reply, err := m.SendMessage(context.Background(), id, "hello again")
	require.NoError(t, err)
	assert.False(t, reply.Degraded)
}

func TestManager_DebitRejectedStillRecordsTurn(t *testing.T) {
	// Ceiling below the cost of one call: pre-flight passes (remaining > 0)
	// but the post-call debit is rejected.
	comp := &stubCompleter{result: okResult()}
	m, ledger := newTestManager(t, comp, 0.001)
	id, _ := m.CreateSession("")

	reply, err := m.SendMessage(context.Background(), id, "gaming laptop")
	require.NoError(t, err)
	assert.True(t, reply.BudgetExhausted)
	assert.Equal(t, "Here you go.", reply.Text, "turn stands, provider already charged")

	assert.Equal(t, int64(0), ledger.Snapshot().SpentNano, "rejected debit leaves ledger unchanged")

	turns := m.registry.Get(id).Turns()
	assert.Len(t, turns, 3)

	// The next call is refused pre-flight only once remaining hits zero;
	// here remaining is still positive, so the flag is the only signal.
	reply2, err := m.SendMessage(context.Background(), id, "again")
	require.NoError(t, err)
	assert.True(t, reply2.BudgetExhausted)
}

func TestManager_HistoryBound(t *testing.T) {
	comp := &stubCompleter{result: &provider.Result{Text: "ok", PromptTokens: 10, CompletionTokens: 5}}
	ledger := budget.NewLedger(budget.USDToNano(100))
	m := NewManager(
		newTestRegistry(time.Hour), testSnapshot(), comp, charEstimator{},
		ledger, budget.NewRates(0.0005, 0.0015), nil,
		Config{HistoryWindow: 20, RetrievalK: 3, MaxCompletionTokens: 64},
	)
	id, _ := m.CreateSession("")

	for i := 0; i < 25; i++ {
		_, err := m.SendMessage(context.Background(), id, fmt.Sprintf("message %d", i))
		require.NoError(t, err)
	}

	// Retained history is capped at the window.
	turns := m.registry.Get(id).Turns()
	assert.Len(t, turns, 20)

	// And the prompt built for the next turn carries at most 20 turns
	// (19 retained + the new user message).
	_, err := m.SendMessage(context.Background(), id, "final")
	require.NoError(t, err)
	req := comp.lastRequest()
	assert.LessOrEqual(t, len(req.Messages), 20)
	assert.Equal(t, "final", req.Messages[len(req.Messages)-1].Content)
}

func TestManager_CallerDisconnectDiscardsReplyButDebits(t *testing.T) {
	comp := &stubCompleter{result: okResult()}
	m, ledger := newTestManager(t, comp, 5.0)
	id, _ := m.CreateSession("")

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // caller already gone; detached call still completes

	_, err := m.SendMessage(ctx, id, "gaming laptop")
	assert.ErrorIs(t, err, context.Canceled)

	// Provider work happened, so the usage was debited anyway.
	assert.Equal(t, budget.USDToNano(0.00175), ledger.Snapshot().SpentNano)

	// The assistant turn was discarded: welcome + user only.
	turns := m.registry.Get(id).Turns()
	assert.Len(t, turns, 2)
}

func TestManager_ConcurrentSessionsShareLedger(t *testing.T) {
	comp := &stubCompleter{result: &provider.Result{Text: "ok", PromptTokens: 1000, CompletionTokens: 1000}}
	// Each call costs 1000*0.0005/1000 + 1000*0.0015/1000 = $0.002.
	m, ledger := newTestManager(t, comp, 0.02)

	const workers = 30
	var wg sync.WaitGroup
	exhausted := make([]bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id, _ := m.CreateSession("")
			reply, err := m.SendMessage(context.Background(), id, "laptop")
			if err == nil && reply.BudgetExhausted {
				exhausted[n] = true
			}
		}(i)
	}
	wg.Wait()

	snap := ledger.Snapshot()
	assert.LessOrEqual(t, snap.SpentNano, snap.CeilingNano, "ceiling never exceeded")
	// 30 calls at $0.002 against a $0.02 ceiling: exactly 10 debits land.
	assert.Equal(t, budget.USDToNano(0.02), snap.SpentNano)
}

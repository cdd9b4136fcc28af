// Token counting for pre-flight budget estimates.
//
// DESIGN: Uses tiktoken (cl100k_base) when the encoding is available and
// falls back to the chars/4 heuristic otherwise. Pre-flight estimates only
// gate admission; billing always uses the provider-reported usage.
package provider

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog/log"

	"github.com/shoply/assistant-engine/internal/config"
)

// TokenCounter estimates token counts for outgoing prompts.
type TokenCounter struct {
	once     sync.Once
	encoding *tiktoken.Tiktoken
}

// NewTokenCounter creates a lazy token counter. The encoding is initialized
// on first use so startup never blocks on tokenizer data.
func NewTokenCounter() *TokenCounter {
	return &TokenCounter{}
}

func (tc *TokenCounter) init() {
	tc.once.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			log.Warn().Err(err).Msg("Tokenizer unavailable, falling back to chars/4 estimate")
			return
		}
		tc.encoding = enc
	})
}

// Count estimates the token count of a single text.
func (tc *TokenCounter) Count(text string) int {
	tc.init()
	if tc.encoding != nil {
		return len(tc.encoding.Encode(text, nil, nil))
	}
	return len(text) / config.TokenEstimateRatio
}

// CountRequest estimates the prompt token count of a full request.
func (tc *TokenCounter) CountRequest(req Request) int {
	total := tc.Count(req.System)
	for _, m := range req.Messages {
		// Small per-message overhead for role framing.
		total += tc.Count(m.Content) + 4
	}
	return total
}

// Package config - defaults.go centralizes magic numbers and default values.
//
// DESIGN: All default values that appear in multiple places should be defined here.
// This makes configuration more maintainable and auditable.
package config

import "time"

// =============================================================================
// TOKEN ESTIMATION
// =============================================================================

// TokenEstimateRatio is the approximate number of characters per token.
// Used for rough token counting when the tokenizer is unavailable.
const TokenEstimateRatio = 4

// =============================================================================
// BUDGET DEFAULTS
// =============================================================================

// DefaultBudgetCeilingUSD is the default global spend ceiling.
const DefaultBudgetCeilingUSD = 5.0

// DefaultInputRatePer1K is the default USD cost per 1000 prompt tokens.
const DefaultInputRatePer1K = 0.0005

// DefaultOutputRatePer1K is the default USD cost per 1000 completion tokens.
const DefaultOutputRatePer1K = 0.0015

// =============================================================================
// SESSION DEFAULTS
// =============================================================================

// DefaultHistoryWindow is the number of recent turns kept per session.
// Older turns are dropped, not summarized, to bound prompt size.
const DefaultHistoryWindow = 20

// DefaultRetrievalK is the number of catalog items retrieved per message.
const DefaultRetrievalK = 3

// DefaultSessionTTL is how long an idle session survives before eviction.
const DefaultSessionTTL = 30 * time.Minute

// DefaultSweepInterval is the frequency of the registry eviction sweep.
const DefaultSweepInterval = 5 * time.Minute

// =============================================================================
// PROVIDER DEFAULTS
// =============================================================================

// DefaultGenerationTimeout bounds a single generation call.
const DefaultGenerationTimeout = 15 * time.Second

// DefaultMaxCompletionTokens caps the completion length requested from the
// provider. Also the worst-case completion size for pre-flight estimates.
const DefaultMaxCompletionTokens = 1024

// =============================================================================
// HTTP AND NETWORKING
// =============================================================================

// DefaultServerPort is the port the session API listens on.
const DefaultServerPort = 8090

// DefaultServerReadTimeout for the HTTP server.
const DefaultServerReadTimeout = 30 * time.Second

// DefaultServerWriteTimeout for the HTTP server (generous for slow providers).
const DefaultServerWriteTimeout = 2 * time.Minute

// MaxRequestBodySize is the maximum allowed request body (1MB).
const MaxRequestBodySize = 1 * 1024 * 1024

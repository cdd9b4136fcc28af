package budget

import "math"

// NanoPerUSD converts dollars to the ledger's fixed-point unit.
const NanoPerUSD = 1e9

// Rates holds per-token pricing fixed at process configuration time.
// Rates are stored as nano-dollars per 1000 tokens so cost computation is
// pure integer arithmetic.
type Rates struct {
	InputPer1KNano  int64
	OutputPer1KNano int64
}

// NewRates converts USD-per-1K-token rates into fixed point.
func NewRates(inputPer1KUSD, outputPer1KUSD float64) Rates {
	return Rates{
		InputPer1KNano:  USDToNano(inputPer1KUSD),
		OutputPer1KNano: USDToNano(outputPer1KUSD),
	}
}

// USDToNano converts a dollar amount to nano-dollars.
// Rounded, not truncated: float inputs like 0.0015 are not exact in binary
// and truncation would shave a nano-dollar off the configured rate.
func USDToNano(usd float64) int64 { return int64(math.Round(usd * NanoPerUSD)) }

// Cost computes the nano-dollar cost of a call from its token usage.
// Pure function of the two configured rates.
func (r Rates) Cost(promptTokens, completionTokens int) int64 {
	in := int64(promptTokens) * r.InputPer1KNano / 1000
	out := int64(completionTokens) * r.OutputPer1KNano / 1000
	return in + out
}

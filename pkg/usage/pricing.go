package usage

import "math"

// Pricing holds per-million-token rates in USD.
type Pricing struct {
	InputPerMillion  float64 `json:"input_per_million"`
	OutputPerMillion float64 `json:"output_per_million"`
}

// DefaultPricing is the published rate card used when a transcript carries
// tokens but no cost.
var DefaultPricing = Pricing{InputPerMillion: 3.00, OutputPerMillion: 15.00}

// CostNanos returns the cost of the given token counts in nano-dollars.
func (p Pricing) CostNanos(inputTokens, outputTokens int64) int64 {
	// tokens/1e6 * rate dollars == tokens * rate * 1e3 nano-dollars
	nanos := float64(inputTokens)*p.InputPerMillion*1e3 + float64(outputTokens)*p.OutputPerMillion*1e3
	return int64(math.Round(nanos))
}

// Cost returns the cost of the given token counts in dollars.
func (p Pricing) Cost(inputTokens, outputTokens int64) float64 {
	return float64(p.CostNanos(inputTokens, outputTokens)) / 1e9
}

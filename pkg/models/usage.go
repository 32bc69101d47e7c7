package models

import (
	"path/filepath"
	"time"
)

// NanosPerDollar is the fixed-point scale used to accumulate cost.
const NanosPerDollar = 1_000_000_000

// UsageTotals is the additive part of a usage rollup. Cost is kept in integer
// nano-dollars so that sums are exact and independent of order.
type UsageTotals struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	TotalTokens  int64 `json:"total_tokens"`
	CostNanos    int64 `json:"-"`
	SessionCount int   `json:"session_count"`
}

// Add returns the field-wise sum of t and o.
func (t UsageTotals) Add(o UsageTotals) UsageTotals {
	return UsageTotals{
		InputTokens:  t.InputTokens + o.InputTokens,
		OutputTokens: t.OutputTokens + o.OutputTokens,
		TotalTokens:  t.TotalTokens + o.TotalTokens,
		CostNanos:    t.CostNanos + o.CostNanos,
		SessionCount: t.SessionCount + o.SessionCount,
	}
}

// CostUSD returns the accumulated cost in dollars.
func (t UsageTotals) CostUSD() float64 {
	return float64(t.CostNanos) / NanosPerDollar
}

// IsZero reports whether no tokens and no cost were recorded.
func (t UsageTotals) IsZero() bool {
	return t.InputTokens == 0 && t.OutputTokens == 0 && t.CostNanos == 0
}

// DollarsToNanos converts a dollar amount to nano-dollars, rounding to the
// nearest unit.
func DollarsToNanos(usd float64) int64 {
	if usd < 0 {
		return -DollarsToNanos(-usd)
	}
	return int64(usd*NanosPerDollar + 0.5)
}

// UsageEntry is the rollup for one (date, project) key.
type UsageEntry struct {
	Date        string  `json:"date"`
	ProjectPath string  `json:"project_path"`
	ProjectName string  `json:"project_name"`
	CostUSD     float64 `json:"cost_usd"`
	UsageTotals
}

// Key returns the merge key of the entry.
func (e UsageEntry) Key() UsageKey {
	return UsageKey{Date: e.Date, ProjectPath: e.ProjectPath}
}

// Merge adds o into e. Merging is pure addition on the totals.
func (e *UsageEntry) Merge(o UsageTotals) {
	e.UsageTotals = e.UsageTotals.Add(o)
	e.CostUSD = e.UsageTotals.CostUSD()
}

// UsageKey identifies a UsageEntry.
type UsageKey struct {
	Date        string
	ProjectPath string
}

// UsageSummary is the report-level sum over every entry.
type UsageSummary struct {
	CostUSD float64 `json:"cost_usd"`
	UsageTotals
}

// UsageReport is the result of one aggregation.
type UsageReport struct {
	Entries     []UsageEntry `json:"entries"`
	Totals      UsageSummary `json:"totals"`
	WindowDays  int          `json:"window_days"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// ProjectName returns the display name of a project path.
func ProjectName(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Base(path)
}

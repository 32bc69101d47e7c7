package usage

import (
	"os"

	"github.com/grovetools/telemetry/errors"
	"github.com/grovetools/telemetry/pkg/models"
	"github.com/grovetools/telemetry/pkg/transcripts"
)

// FileUsage is the usage found in one transcript.
type FileUsage struct {
	InputTokens  int64
	OutputTokens int64
	// ExplicitCostNanos sums every top-level cost field.
	ExplicitCostNanos int64
	// HasExplicitCost is set when any record carried a cost field.
	HasExplicitCost bool
}

// IsZero reports whether the file contributed neither tokens nor cost.
func (u FileUsage) IsZero() bool {
	return u.InputTokens == 0 && u.OutputTokens == 0 && u.ExplicitCostNanos == 0
}

// Totals converts the file usage into an additive rollup. Cost is derived from
// tokens only when the file carried no explicit cost at all.
func (u FileUsage) Totals(p Pricing) models.UsageTotals {
	cost := u.ExplicitCostNanos
	if !u.HasExplicitCost {
		cost = p.CostNanos(u.InputTokens, u.OutputTokens)
	}
	return models.UsageTotals{
		InputTokens:  u.InputTokens,
		OutputTokens: u.OutputTokens,
		TotalTokens:  u.InputTokens + u.OutputTokens,
		CostNanos:    cost,
		SessionCount: 1,
	}
}

// add accumulates every usage shape present in a record. Shapes are not
// exclusive: one record may contribute through several of them.
func (u *FileUsage) add(r *transcripts.Record) {
	if r.CostUSD != nil {
		u.HasExplicitCost = true
		u.ExplicitCostNanos += models.DollarsToNanos(*r.CostUSD)
	}
	if r.InputTokens != nil {
		u.InputTokens += transcripts.Tokens(*r.InputTokens)
	}
	if r.OutputTokens != nil {
		u.OutputTokens += transcripts.Tokens(*r.OutputTokens)
	}
	if r.Message != nil && r.Message.Usage != nil {
		u.InputTokens += transcripts.Tokens(r.Message.Usage.InputTokens)
		u.OutputTokens += transcripts.Tokens(r.Message.Usage.OutputTokens)
	}
	if r.Usage != nil {
		u.InputTokens += transcripts.Tokens(r.Usage.InputTokens)
		u.OutputTokens += transcripts.Tokens(r.Usage.OutputTokens)
	}
}

// ScanFile reads every line of a transcript and sums its usage. Malformed
// lines are skipped.
func ScanFile(path string) (FileUsage, error) {
	var u FileUsage
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return u, errors.NotFound("transcript", path)
		}
		return u, errors.Wrap(err, errors.ErrCodeInternal, "failed to open transcript").WithDetail("path", path)
	}
	defer f.Close()

	err = transcripts.ScanLines(f, func(_ int, line []byte) bool {
		if transcripts.IsBlank(line) {
			return true
		}
		if r, err := transcripts.ParseRecord(line); err == nil {
			u.add(r)
		}
		return true
	})
	if err != nil {
		return u, errors.Wrap(err, errors.ErrCodeInternal, "failed to read transcript").WithDetail("path", path)
	}
	return u, nil
}

package poster

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"donobot/internal/channel"
	"donobot/internal/ledger"
)

const (
	barSegments = 10
	barOn       = "█"
	barOff      = "░"
)

// ProgressConfig parameterizes the periodic goal-progress summary.
type ProgressConfig struct {
	Goal     decimal.Decimal
	Currency string
	TopN     int
}

// Progress builds the cycle function for the progress poster: snapshot the
// ledger, render the summary, publish through the editable class. The config
// getter is consulted every cycle so hot-reloaded goals apply immediately.
func Progress(svc *ledger.Service, mgr *channel.Manager, get func() ProgressConfig) CycleFunc {
	return func(ctx context.Context) error {
		text := RenderProgress(svc.Snapshot(), get())
		_, err := mgr.Publish(ctx, channel.ClassProgress, text)
		return err
	}
}

// RenderProgress is a pure function of a snapshot: rendering twice with no
// intervening append yields identical text.
func RenderProgress(snapshot []ledger.Record, cfg ProgressConfig) string {
	total := ledger.Total(snapshot)
	remaining := ledger.Remaining(snapshot, cfg.Goal)

	topN := cfg.TopN
	if topN <= 0 {
		topN = 5
	}

	var b strings.Builder
	b.WriteString("📊 *Donation Progress*\n\n")
	fmt.Fprintf(&b, "🎯 Goal: *%s* %s\n", cfg.Goal.StringFixed(2), cfg.Currency)
	fmt.Fprintf(&b, "💰 Received: *%s* %s\n", total.StringFixed(2), cfg.Currency)
	fmt.Fprintf(&b, "🧮 Remaining: *%s* %s\n\n", remaining.StringFixed(2), cfg.Currency)
	fmt.Fprintf(&b, "%s\n", ProgressBar(total, cfg.Goal, barSegments))

	top := ledger.Top(snapshot, topN)
	if len(top) > 0 {
		b.WriteString("\n🏆 Top donors:\n")
		for i, r := range top {
			fmt.Fprintf(&b, "%d. %s — %s\n", i+1, r.DisplayName(), r.Amount.StringFixed(2))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// ProgressBar renders total/goal as filled/empty segments:
// filled = floor(min(total/goal, 1) * segments).
func ProgressBar(total, goal decimal.Decimal, segments int) string {
	if segments <= 0 {
		segments = barSegments
	}
	filled := segments
	if goal.IsPositive() {
		ratio := total.Div(goal)
		if ratio.GreaterThan(decimal.NewFromInt(1)) {
			ratio = decimal.NewFromInt(1)
		}
		if ratio.IsNegative() {
			ratio = decimal.Zero
		}
		filled = int(ratio.Mul(decimal.NewFromInt(int64(segments))).IntPart())
	}
	if filled > segments {
		filled = segments
	}
	return "[" + strings.Repeat(barOn, filled) + strings.Repeat(barOff, segments-filled) + "]"
}

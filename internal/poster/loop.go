package poster

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"donobot/internal/metrics"
	"donobot/internal/schedule"
	logx "donobot/pkg/logx"
)

// CycleFunc is one unit of loop work. Errors are logged and counted; they
// never stop the loop.
type CycleFunc func(ctx context.Context) error

// Loop runs a CycleFunc on a schedule until its context is cancelled. The
// progress and motivation posters are both instances of this one runner
// rather than hand-copied goroutines.
type Loop struct {
	Name  string
	Spec  schedule.Spec
	Cycle CycleFunc
	Log   logx.Logger
	Rec   *metrics.Recorder

	// RunAtStart fires one cycle immediately instead of waiting for the
	// first tick.
	RunAtStart bool
}

func (l *Loop) Run(ctx context.Context) {
	log := l.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	log = log.With(logx.String("loop", l.Name))
	log.Info("loop started", logx.String("schedule", l.Spec.String()))

	if l.RunAtStart {
		l.runCycle(ctx, log)
	}

	for {
		next := l.Spec.Next(time.Now())
		wait := time.Until(next)
		if wait < 0 {
			wait = 0
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			log.Info("loop stopped")
			return
		case <-t.C:
		}
		l.runCycle(ctx, log)
	}
}

func (l *Loop) runCycle(ctx context.Context, log logx.Logger) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	err := l.safeCycle(ctx)
	l.Rec.LoopCycle(l.Name, err)
	if err != nil {
		log.Warn("cycle failed; will retry next tick",
			logx.Err(err), logx.Duration("took", time.Since(start)))
		return
	}
	log.Debug("cycle done", logx.Duration("took", time.Since(start)))
}

// safeCycle converts a panicking cycle into an error so one bad render can
// never kill the loop.
func (l *Loop) safeCycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle panic: %v\n%s", r, debug.Stack())
		}
	}()
	return l.Cycle(ctx)
}

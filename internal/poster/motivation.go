package poster

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"donobot/internal/channel"
	logx "donobot/pkg/logx"
)

// MotivationConfig parameterizes the rotating promotional poster.
type MotivationConfig struct {
	// Pool of promotional messages; one is chosen uniformly at random each
	// cycle (repeats allowed).
	Pool []string
	// Link is appended to every message as the call-to-action suffix.
	Link string
	// DisplayWindow force-retires a posted message after this long, so the
	// channel is not left cluttered when the publish interval is long.
	// Zero disables the timed retire.
	DisplayWindow time.Duration
}

// Motivation posts one pool message per cycle through the ephemeral class
// and arms a retire timer scoped to that message's handle. The timer calls
// RetireIf, so a handle already replaced by a newer publish is left alone.
// The config getter is consulted every cycle so a hot-reloaded pool applies
// without restart.
func Motivation(mgr *channel.Manager, get func() MotivationConfig, log logx.Logger) CycleFunc {
	if log.IsZero() {
		log = logx.Nop()
	}

	var mu sync.Mutex
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	return func(ctx context.Context) error {
		cfg := get()
		if len(cfg.Pool) == 0 {
			// No pool configured: the motivation poster is effectively off.
			log.Debug("motivation pool is empty; skipping cycle")
			return nil
		}

		mu.Lock()
		msg := cfg.Pool[rng.Intn(len(cfg.Pool))]
		mu.Unlock()

		text := msg
		if cfg.Link != "" {
			text += "\n\n" + cfg.Link
		}

		h, err := mgr.Publish(ctx, channel.ClassMotivation, text)
		if err != nil {
			return err
		}

		if cfg.DisplayWindow > 0 {
			go retireAfter(ctx, mgr, h, cfg.DisplayWindow, log)
		}
		return nil
	}
}

func retireAfter(ctx context.Context, mgr *channel.Manager, h channel.Handle, window time.Duration, log logx.Logger) {
	t := time.NewTimer(window)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return
	case <-t.C:
	}
	if err := mgr.RetireIf(ctx, h); err != nil {
		log.Warn("timed retire failed", logx.Err(err))
	}
}

package channel

import (
	"context"
	"errors"
	"sync"
	"time"

	kit "donobot/internal/transport"
	logx "donobot/pkg/logx"
)

// Class identifies a recurring message slot in the channel. At most one
// live message exists per class.
type Class string

const (
	ClassProgress   Class = "progress"
	ClassMotivation Class = "motivation"
)

// Policy decides how a publish replaces the previous live message.
type Policy int

const (
	// PolicyEditable updates the live message in place when possible.
	PolicyEditable Policy = iota
	// PolicyEphemeral always posts a new message, then deletes the old one.
	// The new message must exist before the old one is removed so the
	// channel is never empty of this class's content.
	PolicyEphemeral
)

// Fallback is what Publish does with an editable class when the edit fails
// (the remote message was deleted externally, or the edit call errored).
type Fallback int

const (
	// FallbackPost posts a fresh message and leaves the stale one behind.
	// The stale message is not guaranteed deletable, so this is the default.
	FallbackPost Fallback = iota
	// FallbackDeleteRepost best-effort deletes the stale message first.
	FallbackDeleteRepost
)

// Handle points at the live message of a class. It is owned by the Manager;
// callers only hold copies to pass back into RetireIf.
type Handle struct {
	Class    Class
	Ref      kit.MessageRef
	PostedAt time.Time

	gen uint64 // replaced on every new live message; identity for stale checks
}

// ErrUnknownClass is returned for classes the manager was not configured with.
var ErrUnknownClass = errors.New("unknown message class")

type Config struct {
	Target   kit.ChatTarget
	Policies map[Class]Policy
	Fallback Fallback
	Send     *kit.SendOptions
}

// Manager tracks the live message per class and decides edit vs repost vs
// delete-then-repost. Calls against the same class are serialized; distinct
// classes proceed concurrently. The per-class lock is held across the chat
// calls for that class only — it never blocks another class or a ledger
// reader.
type Manager struct {
	log      logx.Logger
	adapter  kit.Adapter
	target   kit.ChatTarget
	fallback Fallback
	send     *kit.SendOptions

	classes map[Class]*classState
}

type classState struct {
	mu     sync.Mutex
	policy Policy
	live   Handle
	isLive bool
	gen    uint64
}

func New(adapter kit.Adapter, cfg Config, log logx.Logger) *Manager {
	if log.IsZero() {
		log = logx.Nop()
	}
	policies := cfg.Policies
	if policies == nil {
		policies = map[Class]Policy{
			ClassProgress:   PolicyEditable,
			ClassMotivation: PolicyEphemeral,
		}
	}
	classes := make(map[Class]*classState, len(policies))
	for c, p := range policies {
		classes[c] = &classState{policy: p}
	}
	return &Manager{
		log:      log,
		adapter:  adapter,
		target:   cfg.Target,
		fallback: cfg.Fallback,
		send:     cfg.Send,
		classes:  classes,
	}
}

// Publish reflects text in the channel according to the class policy and
// returns the (possibly unchanged) live handle.
func (m *Manager) Publish(ctx context.Context, class Class, text string) (Handle, error) {
	st, ok := m.classes[class]
	if !ok {
		return Handle{}, ErrUnknownClass
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	if !st.isLive {
		return m.postLocked(ctx, class, st, text)
	}

	switch st.policy {
	case PolicyEditable:
		err := m.adapter.EditText(ctx, st.live.Ref, text, m.send)
		if err == nil {
			st.live.PostedAt = time.Now()
			return st.live, nil
		}
		m.log.Warn("edit failed; falling back to fresh post",
			logx.String("class", string(class)),
			logx.Int("message_id", st.live.Ref.MessageID),
			logx.Err(err),
		)
		if m.fallback == FallbackDeleteRepost {
			if derr := m.adapter.DeleteMessage(ctx, st.live.Ref); derr != nil {
				m.log.Warn("stale message delete failed",
					logx.String("class", string(class)), logx.Err(derr))
			}
		}
		return m.postLocked(ctx, class, st, text)

	case PolicyEphemeral:
		// Post the replacement before removing the old message.
		old := st.live.Ref
		h, err := m.postLocked(ctx, class, st, text)
		if err != nil {
			// Keep the old handle; the channel still shows the previous text.
			return st.live, err
		}
		if derr := m.adapter.DeleteMessage(ctx, old); derr != nil {
			m.log.Warn("previous message delete failed",
				logx.String("class", string(class)),
				logx.Int("message_id", old.MessageID),
				logx.Err(derr),
			)
		}
		return h, nil

	default:
		return Handle{}, ErrUnknownClass
	}
}

// Retire deletes the live message of a class (if any) and clears the handle.
func (m *Manager) Retire(ctx context.Context, class Class) error {
	st, ok := m.classes[class]
	if !ok {
		return ErrUnknownClass
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return m.retireLocked(ctx, class, st)
}

// RetireIf retires the class only if h is still the live handle. Timed
// retirement of an ephemeral message uses this so a display-window timer
// never deletes a message that a newer publish already replaced.
func (m *Manager) RetireIf(ctx context.Context, h Handle) error {
	st, ok := m.classes[h.Class]
	if !ok {
		return ErrUnknownClass
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.isLive || st.live.gen != h.gen {
		return nil
	}
	return m.retireLocked(ctx, h.Class, st)
}

func (m *Manager) retireLocked(ctx context.Context, class Class, st *classState) error {
	if !st.isLive {
		return nil
	}
	ref := st.live.Ref
	st.isLive = false
	st.live = Handle{}
	if err := m.adapter.DeleteMessage(ctx, ref); err != nil {
		m.log.Warn("retire delete failed",
			logx.String("class", string(class)),
			logx.Int("message_id", ref.MessageID),
			logx.Err(err),
		)
		return err
	}
	return nil
}

// postLocked sends a fresh message and installs it as the live handle.
func (m *Manager) postLocked(ctx context.Context, class Class, st *classState, text string) (Handle, error) {
	ref, err := m.adapter.SendText(ctx, m.target, text, m.send)
	if err != nil {
		return Handle{}, err
	}
	st.gen++
	st.live = Handle{Class: class, Ref: ref, PostedAt: time.Now(), gen: st.gen}
	st.isLive = true
	return st.live, nil
}

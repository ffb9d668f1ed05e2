package poster

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"donobot/internal/channel"
	kit "donobot/internal/transport"
	logx "donobot/pkg/logx"
)

type recordingAdapter struct {
	mu      sync.Mutex
	sent    []string
	deleted []int
	nextID  int
}

func (f *recordingAdapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.sent = append(f.sent, text)
	return kit.MessageRef{ChatID: to.ChatID, MessageID: f.nextID}, nil
}

func (f *recordingAdapter) EditText(ctx context.Context, ref kit.MessageRef, text string, opt *kit.SendOptions) error {
	return nil
}

func (f *recordingAdapter) DeleteMessage(ctx context.Context, ref kit.MessageRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, ref.MessageID)
	return nil
}

func (f *recordingAdapter) snapshot() (sent []string, deleted []int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...), append([]int(nil), f.deleted...)
}

func TestMotivationCyclePostsPoolMessageWithLink(t *testing.T) {
	t.Parallel()
	fa := &recordingAdapter{}
	mgr := channel.New(fa, channel.Config{Target: kit.ChatTarget{ChatID: 1}}, logx.Nop())

	cfg := MotivationConfig{Pool: []string{"support us!"}, Link: "👉 https://donate.example"}
	cycle := Motivation(mgr, func() MotivationConfig { return cfg }, logx.Nop())

	if err := cycle(context.Background()); err != nil {
		t.Fatalf("cycle: %v", err)
	}
	sent, _ := fa.snapshot()
	if len(sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sent))
	}
	if !strings.HasPrefix(sent[0], "support us!") {
		t.Fatalf("message body missing pool text: %q", sent[0])
	}
	if !strings.HasSuffix(sent[0], "👉 https://donate.example") {
		t.Fatalf("message missing link suffix: %q", sent[0])
	}
}

func TestMotivationEmptyPoolSkips(t *testing.T) {
	t.Parallel()
	fa := &recordingAdapter{}
	mgr := channel.New(fa, channel.Config{Target: kit.ChatTarget{ChatID: 1}}, logx.Nop())
	cycle := Motivation(mgr, func() MotivationConfig { return MotivationConfig{} }, logx.Nop())

	if err := cycle(context.Background()); err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if sent, _ := fa.snapshot(); len(sent) != 0 {
		t.Fatalf("sent %d messages, want 0", len(sent))
	}
}

func TestMotivationTimedRetire(t *testing.T) {
	t.Parallel()
	fa := &recordingAdapter{}
	mgr := channel.New(fa, channel.Config{Target: kit.ChatTarget{ChatID: 1}}, logx.Nop())

	cfg := MotivationConfig{Pool: []string{"msg"}, DisplayWindow: 20 * time.Millisecond}
	cycle := Motivation(mgr, func() MotivationConfig { return cfg }, logx.Nop())

	if err := cycle(context.Background()); err != nil {
		t.Fatalf("cycle: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		_, deleted := fa.snapshot()
		if len(deleted) == 1 && deleted[0] == 1 {
			return
		}
		select {
		case <-deadline:
			t.Fatal("timed retire never deleted the message")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestMotivationRetireSkipsReplacedHandle(t *testing.T) {
	t.Parallel()
	fa := &recordingAdapter{}
	mgr := channel.New(fa, channel.Config{Target: kit.ChatTarget{ChatID: 1}}, logx.Nop())

	cfg := MotivationConfig{Pool: []string{"msg"}, DisplayWindow: 30 * time.Millisecond}
	cycle := Motivation(mgr, func() MotivationConfig { return cfg }, logx.Nop())

	// Two rapid cycles: the second publish replaces message 1 (ephemeral
	// policy deletes it immediately), then the timers fire. Message 2 must
	// be deleted exactly once, by its own timer.
	if err := cycle(context.Background()); err != nil {
		t.Fatalf("cycle 1: %v", err)
	}
	if err := cycle(context.Background()); err != nil {
		t.Fatalf("cycle 2: %v", err)
	}

	time.Sleep(150 * time.Millisecond)
	_, deleted := fa.snapshot()
	if len(deleted) != 2 {
		t.Fatalf("deleted = %v, want exactly [1 2]", deleted)
	}
	if deleted[0] != 1 || deleted[1] != 2 {
		t.Fatalf("deleted = %v, want [1 2]", deleted)
	}
}

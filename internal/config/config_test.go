package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func contextWithTestDeadline(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validJSON = `{
  "telegram": {"token": "123:abc", "chat_id": -100200300},
  "donation": {"goal": 500, "currency": "USDT", "motivation_pool": ["go go go"]}
}`

func TestParseJSON(t *testing.T) {
	m := NewManager(writeConfig(t, "config.json", validJSON))
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" || cfg.Telegram.ChatID != -100200300 {
		t.Fatalf("unexpected telegram config: %+v", cfg.Telegram)
	}
	goal, err := cfg.Donation.GoalAmount()
	if err != nil {
		t.Fatalf("GoalAmount: %v", err)
	}
	if goal.StringFixed(2) != "500.00" {
		t.Fatalf("goal = %s, want 500.00", goal.StringFixed(2))
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestParseYAML(t *testing.T) {
	content := strings.Join([]string{
		"telegram:",
		"  token: 123:abc",
		"  chat_id: -100200300",
		"donation:",
		"  goal: 500.50",
		"  motivation_pool:",
		"    - first",
		"    - second",
	}, "\n")
	m := NewManager(writeConfig(t, "config.yaml", content))
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Telegram.ChatID != -100200300 {
		t.Fatalf("chat_id = %d", cfg.Telegram.ChatID)
	}
	goal, err := cfg.Donation.GoalAmount()
	if err != nil {
		t.Fatalf("GoalAmount: %v", err)
	}
	if goal.StringFixed(2) != "500.50" {
		t.Fatalf("goal = %s, want 500.50", goal.StringFixed(2))
	}
	if len(cfg.Donation.MotivationPool) != 2 {
		t.Fatalf("pool = %v", cfg.Donation.MotivationPool)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	m := NewManager(writeConfig(t, "config.json",
		`{"telegram": {"token": "t", "chat_id": 1, "typo_field": true}}`))
	if _, err := m.Parse(); err == nil {
		t.Fatal("expected unknown-field error")
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	m := NewManager(writeConfig(t, "config.json", validJSON+` {"more": 1}`))
	if _, err := m.Parse(); err == nil {
		t.Fatal("expected trailing-data error")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("BOT_TOKEN", "env:token")
	t.Setenv("CHAT_ID", "42")

	m := NewManager(writeConfig(t, "config.json", validJSON))
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Telegram.Token != "env:token" {
		t.Fatalf("token = %q, want env override", cfg.Telegram.Token)
	}
	if cfg.Telegram.ChatID != 42 {
		t.Fatalf("chat_id = %d, want 42", cfg.Telegram.ChatID)
	}
}

func TestApplyEnvRejectsBadChatID(t *testing.T) {
	t.Setenv("CHAT_ID", "not-a-number")
	m := NewManager(writeConfig(t, "config.json", validJSON))
	if _, err := m.Parse(); err == nil {
		t.Fatal("expected error for malformed CHAT_ID")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Telegram: TelegramConfig{Token: "t", ChatID: 1},
			Donation: DonationConfig{Goal: "100"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{
			name:    "missing token",
			mutate:  func(c *Config) { c.Telegram.Token = "" },
			wantErr: "telegram.token",
		},
		{
			name:    "missing chat id",
			mutate:  func(c *Config) { c.Telegram.ChatID = 0 },
			wantErr: "telegram.chat_id",
		},
		{
			name:    "missing goal",
			mutate:  func(c *Config) { c.Donation.Goal = "" },
			wantErr: "donation.goal",
		},
		{
			name:    "negative goal",
			mutate:  func(c *Config) { c.Donation.Goal = "-10" },
			wantErr: "donation.goal",
		},
		{
			name:    "bad progress schedule",
			mutate:  func(c *Config) { c.Donation.ProgressSchedule = "whenever" },
			wantErr: "progress_schedule",
		},
		{
			name:    "bad motivation window",
			mutate:  func(c *Config) { c.Donation.MotivationWindow = "5 parsecs" },
			wantErr: "motivation_window",
		},
		{
			name:   "edit fallback post",
			mutate: func(c *Config) { c.Donation.EditFallback = "post" },
		},
		{
			name:   "edit fallback delete_repost",
			mutate: func(c *Config) { c.Donation.EditFallback = "delete_repost" },
		},
		{
			name:    "edit fallback unknown",
			mutate:  func(c *Config) { c.Donation.EditFallback = "retry" },
			wantErr: "edit_fallback",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestConsoleEnabledDefault(t *testing.T) {
	var l LoggingConfig
	if !l.ConsoleEnabled() {
		t.Fatal("console should default to enabled")
	}
	off := false
	l.Console = &off
	if l.ConsoleEnabled() {
		t.Fatal("console should honor an explicit false")
	}
}

func TestParseDurationField(t *testing.T) {
	if d, err := ParseDurationField("x", ""); err != nil || d != 0 {
		t.Fatalf("empty: d=%v err=%v", d, err)
	}
	if d, err := ParseDurationField("x", "90s"); err != nil || d != 90*time.Second {
		t.Fatalf("90s: d=%v err=%v", d, err)
	}
	if _, err := ParseDurationField("x", "-1s"); err == nil {
		t.Fatal("negative duration accepted")
	}
	if _, err := ParseDurationField("x", "soon"); err == nil {
		t.Fatal("garbage duration accepted")
	}
	if d, err := ParseDurationOrDefault("x", "", 5*time.Second); err != nil || d != 5*time.Second {
		t.Fatalf("default: d=%v err=%v", d, err)
	}
}

func TestSubscribePublishAndHashSkip(t *testing.T) {
	m := NewManager(writeConfig(t, "config.json", validJSON))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Get() != cfg {
		t.Fatal("Get should return the committed config")
	}

	ch := m.Subscribe(1)
	m.publish(cfg)
	select {
	case got := <-ch:
		if got != cfg {
			t.Fatal("subscriber received a different config")
		}
	default:
		t.Fatal("subscriber did not receive the published config")
	}

	// A slow subscriber keeps the newest value, not the oldest.
	m.publish(cfg)
	next := &Config{Telegram: TelegramConfig{Token: "new"}}
	m.publish(next)
	if got := <-ch; got != next {
		t.Fatal("slow subscriber should see the newest config")
	}

	m.Unsubscribe(ch)
	if _, open := <-ch; open {
		t.Fatal("unsubscribed channel should be closed")
	}
}

func TestWatchReloadsOnChange(t *testing.T) {
	path := writeConfig(t, "config.json", validJSON)
	m := NewManager(path)
	m.SetValidator(func(cfg *Config) error { return cfg.Validate() })
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	ch := m.Subscribe(1)
	ctx, cancel := contextWithTestDeadline(t)
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Watch(ctx)
	}()

	// Give the watcher a moment to attach before mutating the file.
	time.Sleep(150 * time.Millisecond)
	updated := strings.Replace(validJSON, `"goal": 500`, `"goal": 900`, 1)
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case cfg := <-ch:
		if cfg.Donation.Goal.String() != "900" {
			t.Fatalf("goal = %s, want 900", cfg.Donation.Goal)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for the reload")
	}

	cancel()
	<-done
}

func TestWatchKeepsConfigOnBadEdit(t *testing.T) {
	path := writeConfig(t, "config.json", validJSON)
	m := NewManager(path)
	m.SetValidator(func(cfg *Config) error { return cfg.Validate() })
	good, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	ctx, cancel := contextWithTestDeadline(t)
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Watch(ctx)
	}()

	time.Sleep(150 * time.Millisecond)
	bad := strings.Replace(validJSON, `"goal": 500`, `"goal": -1`, 1)
	if err := os.WriteFile(path, []byte(bad), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	// Wait past the debounce and assert the running config is untouched.
	time.Sleep(600 * time.Millisecond)
	if m.Get() != good {
		t.Fatal("invalid edit replaced the running config")
	}

	cancel()
	<-done
}

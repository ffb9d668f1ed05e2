package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"donobot/internal/schedule"
)

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	Webhook  WebhookConfig  `json:"webhook"`
	Storage  StorageConfig  `json:"storage"`
	Donation DonationConfig `json:"donation"`
}

type TelegramConfig struct {
	Token      string `json:"token"`
	ChatID     int64  `json:"chat_id"`
	ThreadID   int    `json:"thread_id,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
}

type LoggingConfig struct {
	Level   string            `json:"level,omitempty"`
	Console *bool             `json:"console,omitempty"`
	File    LoggingFileConfig `json:"file,omitempty"`
}

type LoggingFileConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Path    string `json:"path,omitempty"`
}

// ConsoleEnabled defaults to true when the field is omitted.
func (l LoggingConfig) ConsoleEnabled() bool {
	return l.Console == nil || *l.Console
}

type WebhookConfig struct {
	Addr string `json:"addr,omitempty"` // default ":8080"
}

// StorageConfig selects the ledger store.
//
// Example: "storage": { "driver": "file", "path": "./donors.json" }
type StorageConfig struct {
	Driver      string `json:"driver,omitempty"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// DonationConfig holds the campaign parameters.
//
// Schedules accept a Go duration ("30s"), HH:MM ("02:30"), or a cron
// expression ("*/5 * * * *").
type DonationConfig struct {
	Goal     json.Number `json:"goal"`
	Currency string      `json:"currency,omitempty"`
	TopN     int         `json:"top_donors,omitempty"`

	// Link is the call-to-action suffix appended to motivation posts.
	Link string `json:"link,omitempty"`

	ProgressSchedule   string   `json:"progress_schedule,omitempty"`   // default "120s"
	MotivationSchedule string   `json:"motivation_schedule,omitempty"` // default "30s"
	MotivationWindow   string   `json:"motivation_window,omitempty"`   // default "5s"
	MotivationPool     []string `json:"motivation_pool,omitempty"`

	// EditFallback is what the progress message does when an in-place edit
	// fails: "post" (default; leave the stale message, post fresh) or
	// "delete_repost".
	EditFallback string `json:"edit_fallback,omitempty"`
}

func (d DonationConfig) GoalAmount() (decimal.Decimal, error) {
	s := strings.TrimSpace(d.Goal.String())
	if s == "" {
		return decimal.Decimal{}, errors.New("donation.goal is required")
	}
	g, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("donation.goal: invalid amount %q: %w", s, err)
	}
	if !g.IsPositive() {
		return decimal.Decimal{}, errors.New("donation.goal must be positive")
	}
	return g, nil
}

// ApplyEnv overlays environment-provided secrets and targets on a parsed
// config. BOT_TOKEN and CHAT_ID always win over file values.
func (c *Config) ApplyEnv() error {
	if v := strings.TrimSpace(os.Getenv("BOT_TOKEN")); v != "" {
		c.Telegram.Token = v
	}
	if v := strings.TrimSpace(os.Getenv("CHAT_ID")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("CHAT_ID: invalid chat id %q: %w", v, err)
		}
		c.Telegram.ChatID = id
	}
	return nil
}

// Validate checks everything that must hold before the bot can run. It is
// also installed as the watch-reload validator so a bad edit never replaces
// a good running config.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return errors.New("telegram.token is required (or set BOT_TOKEN)")
	}
	if c.Telegram.ChatID == 0 {
		return errors.New("telegram.chat_id is required (or set CHAT_ID)")
	}
	if _, err := c.Donation.GoalAmount(); err != nil {
		return err
	}
	if _, err := schedule.Parse(orDefault(c.Donation.ProgressSchedule, "120s")); err != nil {
		return fmt.Errorf("donation.progress_schedule: %w", err)
	}
	if _, err := schedule.Parse(orDefault(c.Donation.MotivationSchedule, "30s")); err != nil {
		return fmt.Errorf("donation.motivation_schedule: %w", err)
	}
	if _, err := ParseDurationField("donation.motivation_window", c.Donation.MotivationWindow); err != nil {
		return err
	}
	if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(c.Donation.EditFallback)) {
	case "", "post", "delete_repost":
	default:
		return fmt.Errorf("donation.edit_fallback: unknown policy %q (use \"post\" or \"delete_repost\")", c.Donation.EditFallback)
	}
	return nil
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

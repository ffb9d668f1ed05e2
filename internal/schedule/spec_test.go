package schedule

import (
	"testing"
	"time"
)

func TestParseVariants(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		raw   string
		every time.Duration
		cron  bool
	}{
		{name: "duration", raw: "30s", every: 30 * time.Second},
		{name: "compound duration", raw: "2h30m", every: 2*time.Hour + 30*time.Minute},
		{name: "hhmm", raw: "01:30", every: 90 * time.Minute},
		{name: "prefixed interval", raw: "interval:45s", every: 45 * time.Second},
		{name: "cron", raw: "*/5 * * * *", cron: true},
		{name: "prefixed cron", raw: "cron:0 0 * * *", cron: true},
		{name: "at macro", raw: "@hourly", cron: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.raw, err)
			}
			if tt.cron {
				if got.cron == nil {
					t.Fatalf("Parse(%q): expected cron schedule", tt.raw)
				}
				return
			}
			if got.Every != tt.every {
				t.Fatalf("Every = %v, want %v", got.Every, tt.every)
			}
		})
	}
}

func TestParseInvalid(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"", "not-a-schedule", "0s", "-5s", "cron:", "cron:nope nope", "01:75"} {
		if _, err := Parse(raw); err == nil {
			t.Fatalf("Parse(%q): expected error", raw)
		}
	}
}

func TestNextInterval(t *testing.T) {
	t.Parallel()
	sp, err := Parse("30s")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if got := sp.Next(now); !got.Equal(now.Add(30 * time.Second)) {
		t.Fatalf("Next = %v, want %v", got, now.Add(30*time.Second))
	}
}

func TestNextCron(t *testing.T) {
	t.Parallel()
	sp, err := Parse("*/5 * * * *")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	want := time.Date(2026, 1, 2, 3, 5, 0, 0, time.UTC)
	if got := sp.Next(now); !got.Equal(want) {
		t.Fatalf("Next = %v, want %v", got, want)
	}
}

package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Spec is a parsed loop schedule.
//
// Supported forms:
//   - Interval duration: "30s", "2m", "1h30m"
//   - Interval HH:MM: "00:50" (50 minutes), "02:30" (2 hours 30 minutes)
//   - Cron (crontab.guru-style): "*/5 * * * *", "@hourly"
//
// Optional prefixes "cron:" and "interval:" force a parse mode.
type Spec struct {
	Every time.Duration // zero when cron-based
	cron  cron.Schedule
	raw   string
}

var reHHMM = regexp.MustCompile(`^\s*(\d{1,3}):(\d{2})\s*$`)

// Parse parses a schedule string. Cron expressions are validated eagerly so
// a bad config fails at startup, not on the first cycle.
func Parse(raw string) (Spec, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Spec{}, fmt.Errorf("schedule required")
	}

	low := strings.ToLower(s)
	switch {
	case strings.HasPrefix(low, "cron:"):
		return parseCron(strings.TrimSpace(s[len("cron:"):]), raw)
	case strings.HasPrefix(low, "interval:"):
		return parseInterval(strings.TrimSpace(s[len("interval:"):]), raw)
	}

	// Whitespace or a leading '@' means cron.
	if strings.ContainsAny(s, " \t") || strings.HasPrefix(s, "@") {
		return parseCron(s, raw)
	}
	return parseInterval(s, raw)
}

// Next returns the time of the cycle after now.
func (sp Spec) Next(now time.Time) time.Time {
	if sp.cron != nil {
		return sp.cron.Next(now)
	}
	return now.Add(sp.Every)
}

func (sp Spec) String() string { return sp.raw }

func parseCron(expr, raw string) (Spec, error) {
	if expr == "" {
		return Spec{}, fmt.Errorf("cron schedule required after 'cron:'")
	}
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return Spec{}, fmt.Errorf("invalid cron schedule %q: %w", expr, err)
	}
	return Spec{cron: sched, raw: raw}, nil
}

func parseInterval(v, raw string) (Spec, error) {
	if v == "" {
		return Spec{}, fmt.Errorf("interval required")
	}
	if m := reHHMM.FindStringSubmatch(v); m != nil {
		h, _ := strconv.Atoi(m[1])
		min, _ := strconv.Atoi(m[2])
		if min >= 60 {
			return Spec{}, fmt.Errorf("invalid interval %q: minutes must be < 60", v)
		}
		d := time.Duration(h)*time.Hour + time.Duration(min)*time.Minute
		if d <= 0 {
			return Spec{}, fmt.Errorf("interval must be > 0")
		}
		return Spec{Every: d, raw: raw}, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return Spec{}, fmt.Errorf(
			"invalid schedule %q (use cron like '*/5 * * * *', HH:MM like '02:30', or duration like '30s')", raw)
	}
	if d <= 0 {
		return Spec{}, fmt.Errorf("interval must be > 0")
	}
	return Spec{Every: d, raw: raw}, nil
}

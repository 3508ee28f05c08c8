package auth

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var relativeExpiryRe = regexp.MustCompile(`^(\d+)([dwh])$`)

var expiryUnits = map[string]time.Duration{
	"h": time.Hour,
	"d": 24 * time.Hour,
	"w": 7 * 24 * time.Hour,
}

// expiryDateLayouts are tried in order for absolute dates, read as UTC.
var expiryDateLayouts = []string{
	"01/02/2006 15:04",
	"01/02/2006",
	"2006-01-02",
}

// ParseExpiry turns a token lifetime into an absolute expiry relative to now.
// It accepts "" or "never" (no expiry, nil), Go durations ("90m"), day, week
// and hour counts ("30d", "2w", "24h") and future dates ("12/25/2026",
// "12/25/2026 14:30", "2026-12-25").
func ParseExpiry(s string, now time.Time) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "never") {
		return nil, nil
	}

	if d, err := time.ParseDuration(s); err == nil {
		if d <= 0 {
			return nil, fmt.Errorf("expiry must be positive: %s", s)
		}
		t := now.Add(d)
		return &t, nil
	}

	if m := relativeExpiryRe.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid expiry count: %s", s)
		}
		t := now.Add(time.Duration(n) * expiryUnits[m[2]])
		return &t, nil
	}

	for _, layout := range expiryDateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if !t.After(now) {
			return nil, fmt.Errorf("expiry date must be in the future: %s", s)
		}
		return &t, nil
	}

	return nil, fmt.Errorf("invalid expiry %q (use never, 30d, 2w, 24h, 90m or mm/dd/yyyy)", s)
}

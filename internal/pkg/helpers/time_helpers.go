package helpers

import (
	"time"

	"github.com/rs/zerolog/log"
)

// DateLayout is the short date shown in notification messages, e.g. 1/5/2030
const DateLayout = "1/2/2006"

// ParseDuration parses a duration string, returns default duration on error.
func ParseDuration(durationStr string, defaultDuration time.Duration) time.Duration {
	duration, err := time.ParseDuration(durationStr)
	if err != nil {
		log.Warn().Err(err).Str("durationStr", durationStr).Dur("defaultDuration", defaultDuration).Msg("Failed to parse duration string, using default")
		return defaultDuration
	}
	return duration
}

// FormatDate renders t with DateLayout in UTC
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// Package notify provides the fallback Notifier used when no platform
// adapter is wired: every message is emitted as a structured log line. It
// also provides a static curator source for single-tenant deployments where
// the moderation group is configured rather than fetched.
package notify

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// LogNotifier writes outbound messages to a zerolog logger instead of a
// chat platform. Useful in development and as a safe default.
type LogNotifier struct {
	Log zerolog.Logger
}

// Message logs the outbound text. It never fails.
func (n LogNotifier) Message(_ context.Context, target, text string) error {
	n.Log.Info().Str("target", target).Str("text", text).Msg("notify")
	return nil
}

// Edit logs the replacement text. It never fails.
func (n LogNotifier) Edit(_ context.Context, target, text string) error {
	n.Log.Info().Str("target", target).Str("text", text).Msg("notify edit")
	return nil
}

// StaticCurators resolves every group ref to a fixed identity list, parsed
// once from configuration.
type StaticCurators struct {
	IDs []string
}

// ParseStaticCurators builds a StaticCurators from a comma-separated list.
func ParseStaticCurators(csv string) StaticCurators {
	parts := strings.Split(csv, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			ids = append(ids, t)
		}
	}
	return StaticCurators{IDs: ids}
}

// Curators returns the configured identity list for any group ref.
func (s StaticCurators) Curators(_ context.Context, _ string) ([]string, error) {
	return s.IDs, nil
}

// Package services – badge catalog.
//
// Badges are data, not logic: each entry is a pure predicate over the
// evaluation snapshot. Evaluation order is irrelevant (all predicates are
// monotone in the underlying counters) and awarding is idempotent, so the
// evaluator can run after every event without coordination.
package services

import (
	"time"

	"github.com/cunaobot/go-cunao-backend/internal/domain"
)

// BadgeSnapshot is the read-only state a badge predicate sees: the master
// user record, per-action event counts, authored-phrase count, alias
// existence, and the evaluation instant in local time.
type BadgeSnapshot struct {
	User            *domain.User
	Counts          map[string]int64
	AuthoredPhrases int64
	HasAlias        bool
	Now             time.Time
}

// BadgeSpec describes one achievement. Target is the counter value the
// predicate needs (0 for time-of-day and other binary badges); Current
// reports progress toward it for the profile surface.
type BadgeSpec struct {
	ID          string
	Name        string
	Description string
	Target      int64
	Current     func(s *BadgeSnapshot) int64
	Predicate   func(s *BadgeSnapshot) bool
}

// BadgeProgress is one badge's state on a profile.
type BadgeProgress struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Achieved    bool   `json:"achieved"`
	Current     int64  `json:"current"`
	Target      int64  `json:"target,omitempty"`
}

func countBadge(id, name, desc, action string, target int64) BadgeSpec {
	return BadgeSpec{
		ID: id, Name: name, Description: desc, Target: target,
		Current:   func(s *BadgeSnapshot) int64 { return s.Counts[action] },
		Predicate: func(s *BadgeSnapshot) bool { return s.Counts[action] >= target },
	}
}

// badgeCatalog lists every achievement in award-agnostic order.
var badgeCatalog = []BadgeSpec{
	{
		ID: "first-ever-use", Name: "Primera chapa", Target: 1,
		Description: "Usar el bot por primera vez",
		Current:     func(s *BadgeSnapshot) int64 { return int64(s.User.TotalUsages) },
		Predicate:   func(s *BadgeSnapshot) bool { return s.User.TotalUsages >= 1 },
	},
	{
		ID: "fifty-hellos", Name: "Parroquiano", Target: 50,
		Description: "Cincuenta usos del bot",
		Current:     func(s *BadgeSnapshot) int64 { return int64(s.User.TotalUsages) },
		Predicate:   func(s *BadgeSnapshot) bool { return s.User.TotalUsages >= 50 },
	},
	{
		ID: "centenary", Name: "Centenario", Target: 100,
		Description: "Cien usos del bot",
		Current:     func(s *BadgeSnapshot) int64 { return int64(s.User.TotalUsages) },
		Predicate:   func(s *BadgeSnapshot) bool { return s.User.TotalUsages >= 100 },
	},
	{
		ID: "early-morning", Name: "Madrugador",
		Description: "Usar el bot entre las 5:00 y las 7:30",
		Current:     func(s *BadgeSnapshot) int64 { return 0 },
		Predicate: func(s *BadgeSnapshot) bool {
			h, m := s.Now.Hour(), s.Now.Minute()
			return (h >= 5 && h < 7) || (h == 7 && m <= 30)
		},
	},
	{
		ID: "late-night", Name: "Cierrabares",
		Description: "Usar el bot entre las 2:00 y las 5:00",
		Current:     func(s *BadgeSnapshot) int64 { return 0 },
		Predicate: func(s *BadgeSnapshot) bool {
			h := s.Now.Hour()
			return h >= 2 && h < 5
		},
	},
	countBadge("persistent", "Pesado", "Diez frases propuestas", domain.ActionPropose, 10),
	countBadge("author", "Autor", "Una frase aprobada", domain.ActionApprove, 1),
	countBadge("misunderstood", "Incomprendido", "Una frase rechazada", domain.ActionReject, 1),
	{
		ID: "cross-platform", Name: "Multiplataforma",
		Description: "Vincular cuentas de Telegram y Slack",
		Current: func(s *BadgeSnapshot) int64 {
			if s.HasAlias {
				return 1
			}
			return 0
		},
		Target:    1,
		Predicate: func(s *BadgeSnapshot) bool { return s.HasAlias },
	},
	{
		ID: "rapid-fire", Name: "Metralleta", Target: 10,
		Description: "Diez usos en la última hora",
		Current: func(s *BadgeSnapshot) int64 {
			return usagesWithin(s.User.LastUsages, s.Now, time.Hour)
		},
		Predicate: func(s *BadgeSnapshot) bool {
			return usagesWithin(s.User.LastUsages, s.Now, time.Hour) >= 10
		},
	},
	{
		ID: "prolific", Name: "Figura", Target: 5,
		Description: "Cinco frases en el catálogo",
		Current:     func(s *BadgeSnapshot) int64 { return s.AuthoredPhrases },
		Predicate:   func(s *BadgeSnapshot) bool { return s.AuthoredPhrases >= 5 },
	},
	countBadge("sticker-fan", "Pegatinero", "Veinticinco stickers", domain.ActionSticker, 25),
	countBadge("radio-cunao", "Radio Cuñao", "Veinticinco audios", domain.ActionAudio, 25),
	countBadge("generous", "Espléndido", "Un regalo enviado", domain.ActionGiftSent, 1),
	countBadge("well-received", "Querido", "Diez reacciones recibidas", domain.ActionReactionReceived, 10),
}

// usagesWithin counts timestamps in ts that fall inside the trailing window
// ending at now. The window is best-effort: the capped last_usages list is
// not written atomically with events.
func usagesWithin(ts []time.Time, now time.Time, window time.Duration) int64 {
	cutoff := now.Add(-window)
	var n int64
	for _, t := range ts {
		if !t.Before(cutoff) && !t.After(now) {
			n++
		}
	}
	return n
}

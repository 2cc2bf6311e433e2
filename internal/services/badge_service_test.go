package services

import (
	"context"
	"testing"
	"time"

	"github.com/cunaobot/go-cunao-backend/internal/domain"
	"github.com/cunaobot/go-cunao-backend/internal/repo"
)

func badgeIDs(specs []BadgeSpec) map[string]bool {
	out := make(map[string]bool, len(specs))
	for _, s := range specs {
		out[s.ID] = true
	}
	return out
}

func TestEvaluate_FirstUseAndIdempotence(t *testing.T) {
	db := newTestDB(t)
	users := NewUserService(db)
	svc := NewBadgeService(db, users)
	svc.Clock = fixedClock{at: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	u := seedUser(t, db, "t1")
	u.TotalUsages = 1
	if err := db.Save(u).Error; err != nil {
		t.Fatalf("save: %v", err)
	}

	awarded, err := svc.Evaluate(context.Background(), "t1")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	ids := badgeIDs(awarded)
	if !ids["first-ever-use"] {
		t.Fatalf("first-ever-use not awarded; got %v", ids)
	}
	if ids["early-morning"] || ids["late-night"] {
		t.Fatalf("time-of-day badge awarded at noon: %v", ids)
	}

	// A second pass over unchanged state awards nothing.
	again, err := svc.Evaluate(context.Background(), "t1")
	if err != nil {
		t.Fatalf("re-evaluate: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("re-evaluation awarded %v; want none", badgeIDs(again))
	}
}

func TestEvaluate_TimeOfDayBadges(t *testing.T) {
	cases := []struct {
		name string
		at   time.Time
		want string
	}{
		{"early window start", time.Date(2026, 3, 1, 5, 0, 0, 0, time.UTC), "early-morning"},
		{"early window edge", time.Date(2026, 3, 1, 7, 30, 0, 0, time.UTC), "early-morning"},
		{"late night", time.Date(2026, 3, 1, 3, 15, 0, 0, time.UTC), "late-night"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db := newTestDB(t)
			users := NewUserService(db)
			svc := NewBadgeService(db, users)
			svc.Clock = fixedClock{at: tc.at}
			seedUser(t, db, "t1")

			awarded, err := svc.Evaluate(context.Background(), "t1")
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if !badgeIDs(awarded)[tc.want] {
				t.Fatalf("%s not awarded at %v; got %v", tc.want, tc.at, badgeIDs(awarded))
			}
		})
	}

	// 7:31 is past the early window.
	db := newTestDB(t)
	users := NewUserService(db)
	svc := NewBadgeService(db, users)
	svc.Clock = fixedClock{at: time.Date(2026, 3, 1, 7, 31, 0, 0, time.UTC)}
	seedUser(t, db, "t1")
	awarded, err := svc.Evaluate(context.Background(), "t1")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if badgeIDs(awarded)["early-morning"] {
		t.Fatalf("early-morning awarded at 7:31")
	}
}

func TestEvaluate_RapidFireWindow(t *testing.T) {
	db := newTestDB(t)
	users := NewUserService(db)
	svc := NewBadgeService(db, users)
	now := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	svc.Clock = fixedClock{at: now}

	u := seedUser(t, db, "t1")
	// Nine stamps inside the hour plus one well outside it.
	stamps := []time.Time{now.Add(-2 * time.Hour)}
	for i := range 9 {
		stamps = append(stamps, now.Add(-time.Duration(i)*time.Minute))
	}
	u.LastUsages = stamps
	if err := db.Save(u).Error; err != nil {
		t.Fatalf("save: %v", err)
	}

	awarded, err := svc.Evaluate(context.Background(), "t1")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if badgeIDs(awarded)["rapid-fire"] {
		t.Fatalf("rapid-fire awarded with nine in-window uses")
	}

	u.LastUsages = append(u.LastUsages, now.Add(-30*time.Minute))
	if err := db.Save(u).Error; err != nil {
		t.Fatalf("save tenth: %v", err)
	}
	awarded, err = svc.Evaluate(context.Background(), "t1")
	if err != nil {
		t.Fatalf("re-evaluate: %v", err)
	}
	if !badgeIDs(awarded)["rapid-fire"] {
		t.Fatalf("rapid-fire not awarded with ten in-window uses")
	}
}

func TestEvaluate_CounterBadgesOverEvents(t *testing.T) {
	db := newTestDB(t)
	users := NewUserService(db)
	svc := NewBadgeService(db, users)
	svc.Clock = fixedClock{at: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	seedUser(t, db, "t1")

	for range 10 {
		if _, err := repo.AppendEvent(context.Background(), db, "t1", domain.PlatformTelegram, domain.ActionPropose, nil, ""); err != nil {
			t.Fatalf("append event: %v", err)
		}
	}

	awarded, err := svc.Evaluate(context.Background(), "t1")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !badgeIDs(awarded)["persistent"] {
		t.Fatalf("persistent not awarded after ten proposals; got %v", badgeIDs(awarded))
	}
}

func TestProgress_ClampsMergedBadges(t *testing.T) {
	db := newTestDB(t)
	users := NewUserService(db)
	svc := NewBadgeService(db, users)
	svc.Clock = fixedClock{at: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	seedUser(t, db, "t1")

	// Badge arrived via a merge union; the local counter is still zero.
	if _, err := repo.AwardBadge(context.Background(), db, "t1", "fifty-hellos"); err != nil {
		t.Fatalf("award: %v", err)
	}

	prog, err := svc.Progress(context.Background(), "t1")
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	var fifty *BadgeProgress
	for i := range prog {
		if prog[i].ID == "fifty-hellos" {
			fifty = &prog[i]
		}
	}
	if fifty == nil || !fifty.Achieved {
		t.Fatalf("fifty-hellos missing or unachieved: %+v", fifty)
	}
	if fifty.Current != fifty.Target {
		t.Fatalf("achieved badge shows current %d of %d; want clamped", fifty.Current, fifty.Target)
	}
	if len(prog) != len(badgeCatalog) {
		t.Fatalf("progress rows = %d; want %d", len(prog), len(badgeCatalog))
	}
}

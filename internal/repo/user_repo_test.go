package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-relay-backend/internal/domain"
)

func TestJoinUser_CreateThenRejoin(t *testing.T) {
	db := newTestDB(t, &domain.User{})
	ctx := context.Background()
	t0 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	u, err := JoinUser(ctx, db, 1, ptr("alice"), "Alice", t0)
	if err != nil {
		t.Fatalf("JoinUser: %v", err)
	}
	if u.Rank != domain.RankUser || !u.IsJoined() || !u.Joined.Equal(t0) {
		t.Fatalf("unexpected user %+v", u)
	}

	if err := LeaveUser(ctx, db, 1, t0.Add(time.Hour)); err != nil {
		t.Fatalf("LeaveUser: %v", err)
	}
	got, _ := GetUser(ctx, db, 1)
	if got.IsJoined() {
		t.Fatalf("expected user to have left")
	}

	t2 := t0.Add(2 * time.Hour)
	u, err = JoinUser(ctx, db, 1, nil, "", t2)
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	got, _ = GetUser(ctx, db, 1)
	if !got.IsJoined() || got.Realname != "Alice" || got.Username != nil || !got.LastActive.Equal(t2) {
		t.Fatalf("unexpected rejoined user %+v", got)
	}
	if !got.Joined.Equal(t0) {
		t.Fatalf("joined time must not change on rejoin, got %v", got.Joined)
	}
}

func TestUserUpdates_NotFound(t *testing.T) {
	db := newTestDB(t, &domain.User{})
	ctx := context.Background()

	if _, err := GetUser(ctx, db, 5); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetUser: expected ErrNotFound, got %v", err)
	}
	checks := map[string]error{
		"leave":     LeaveUser(ctx, db, 5, time.Now()),
		"blacklist": BlacklistUser(ctx, db, 5, "spam", time.Now()),
		"touch":     TouchLastActive(ctx, db, 5, time.Now()),
		"karma":     AdjustKarma(ctx, db, 5, 1),
		"warn":      AddWarning(ctx, db, 5),
	}
	for name, err := range checks {
		if !IsNotFound(err) {
			t.Fatalf("%s: expected ErrNotFound, got %v", name, err)
		}
	}
}

func TestBlacklist_KarmaAndWarnings(t *testing.T) {
	db := newTestDB(t, &domain.User{})
	ctx := context.Background()
	now := time.Now()

	if _, err := JoinUser(ctx, db, 2, nil, "Bob", now); err != nil {
		t.Fatal(err)
	}
	if err := AdjustKarma(ctx, db, 2, 3); err != nil {
		t.Fatal(err)
	}
	if err := AdjustKarma(ctx, db, 2, -1); err != nil {
		t.Fatal(err)
	}
	if err := AddWarning(ctx, db, 2); err != nil {
		t.Fatal(err)
	}
	if err := BlacklistUser(ctx, db, 2, "spam", now); err != nil {
		t.Fatal(err)
	}

	u, err := GetUser(ctx, db, 2)
	if err != nil {
		t.Fatal(err)
	}
	if u.Karma != 2 || u.Warnings != 1 {
		t.Fatalf("expected karma=2 warnings=1, got %+v", u)
	}
	if !u.IsBlacklisted() || u.IsJoined() || u.BlacklistReason == nil || *u.BlacklistReason != "spam" {
		t.Fatalf("unexpected blacklisted user %+v", u)
	}
}

func TestIterateJoinedRecipients_SkipsLeftAndBanned(t *testing.T) {
	db := newTestDB(t, &domain.User{})
	ctx := context.Background()
	now := time.Now()

	for id := int64(1); id <= 5; id++ {
		if _, err := JoinUser(ctx, db, id, nil, "u", now); err != nil {
			t.Fatal(err)
		}
	}
	if err := LeaveUser(ctx, db, 2, now); err != nil {
		t.Fatal(err)
	}
	if err := BlacklistUser(ctx, db, 4, "x", now); err != nil {
		t.Fatal(err)
	}

	var ids []int64
	err := IterateJoinedRecipients(ctx, db, func(u domain.User) error {
		ids = append(ids, u.ID)
		return nil
	})
	if err != nil {
		t.Fatalf("IterateJoinedRecipients: %v", err)
	}
	if len(ids) != 3 || ids[0] != 1 || ids[1] != 3 || ids[2] != 5 {
		t.Fatalf("expected [1 3 5], got %v", ids)
	}
}

func TestIterateJoinedRecipients_StopsOnError(t *testing.T) {
	db := newTestDB(t, &domain.User{})
	ctx := context.Background()
	for id := int64(1); id <= 3; id++ {
		if _, err := JoinUser(ctx, db, id, nil, "u", time.Now()); err != nil {
			t.Fatal(err)
		}
	}
	stop := errors.New("stop")
	calls := 0
	err := IterateJoinedRecipients(ctx, db, func(domain.User) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) || calls != 1 {
		t.Fatalf("expected stop after 1 call, got calls=%d err=%v", calls, err)
	}
}

func TestStore_DelegatesToRepo(t *testing.T) {
	db := newTestDB(t, &domain.User{}, &domain.RecipientMapping{}, &domain.BotUser{})
	ctx := context.Background()
	s := NewStore(db)

	if _, err := s.JoinUser(ctx, 1, nil, "A", time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveMapping(ctx, 9, 1, 90, nil); err != nil {
		t.Fatal(err)
	}
	if lid, err := s.ResolveByRecipientAndWire(ctx, 1, 90, nil); err != nil || lid != 9 {
		t.Fatalf("lid=%d err=%v", lid, err)
	}
	if err := s.MarkSeen(ctx, 1, 1, time.Now()); err != nil {
		t.Fatal(err)
	}
	ids, err := s.ListReachable(ctx, 1)
	if err != nil || len(ids) != 1 {
		t.Fatalf("ids=%v err=%v", ids, err)
	}
}

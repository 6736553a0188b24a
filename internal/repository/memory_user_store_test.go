package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/yourorg/collabcore/internal/domain"
)

func newUser(email, handle string) *domain.User {
	return &domain.User{
		Email:      email,
		Handle:     handle,
		FirstName:  "Ann",
		LastName:   "Lee",
		Permission: domain.PermissionMember,
		Sessions:   map[string]struct{}{},
		ResetCodes: map[string]struct{}{},
	}
}

func TestCreateAssignsSequentialIDs(t *testing.T) {
	s := NewMemoryUserStore()
	ctx := context.Background()

	u1 := newUser("a@b.co", "annlee")
	u2 := newUser("c@d.co", "annlee0")
	if err := s.Create(ctx, u1); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := s.Create(ctx, u2); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if u1.ID != 1 || u2.ID != 2 {
		t.Fatalf("expected ids 1 and 2, got %d and %d", u1.ID, u2.ID)
	}
}

func TestCreateRejectsDuplicates(t *testing.T) {
	s := NewMemoryUserStore()
	ctx := context.Background()
	if err := s.Create(ctx, newUser("a@b.co", "annlee")); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := s.Create(ctx, newUser("a@b.co", "other")); !domain.IsValidation(err) {
		t.Fatalf("expected validation error for duplicate email, got %v", err)
	}
	if err := s.Create(ctx, newUser("x@y.co", "annlee")); !domain.IsValidation(err) {
		t.Fatalf("expected validation error for duplicate handle, got %v", err)
	}
}

func TestLookupsHitIndexes(t *testing.T) {
	s := NewMemoryUserStore()
	ctx := context.Background()
	u := newUser("a@b.co", "annlee")
	u.Sessions["sess-1"] = struct{}{}
	u.ResetCodes["1234"] = struct{}{}
	if err := s.Create(ctx, u); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if got, err := s.GetByEmail(ctx, "a@b.co"); err != nil || got.ID != u.ID {
		t.Fatalf("email lookup failed: %v", err)
	}
	if got, err := s.GetByHandle(ctx, "annlee"); err != nil || got.ID != u.ID {
		t.Fatalf("handle lookup failed: %v", err)
	}
	if got, err := s.GetBySession(ctx, "sess-1"); err != nil || got.ID != u.ID {
		t.Fatalf("session lookup failed: %v", err)
	}
	if got, err := s.GetByResetCode(ctx, "1234"); err != nil || got.ID != u.ID {
		t.Fatalf("reset-code lookup failed: %v", err)
	}
	if _, err := s.GetByEmail(ctx, "nobody@b.co"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateReindexes(t *testing.T) {
	s := NewMemoryUserStore()
	ctx := context.Background()
	u := newUser("a@b.co", "annlee")
	u.Sessions["sess-1"] = struct{}{}
	if err := s.Create(ctx, u); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	u.Email = "new@b.co"
	u.Handle = "newhandle"
	delete(u.Sessions, "sess-1")
	u.Sessions["sess-2"] = struct{}{}
	if err := s.Update(ctx, u); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	if _, err := s.GetByEmail(ctx, "a@b.co"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("old email should be unindexed, got %v", err)
	}
	if _, err := s.GetBySession(ctx, "sess-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("old session should be unindexed, got %v", err)
	}
	if got, err := s.GetBySession(ctx, "sess-2"); err != nil || got.Email != "new@b.co" {
		t.Fatalf("new session lookup failed: %v", err)
	}
	if got, err := s.GetByHandle(ctx, "newhandle"); err != nil || got.ID != u.ID {
		t.Fatalf("new handle lookup failed: %v", err)
	}
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	s := NewMemoryUserStore()
	ctx := context.Background()
	u := newUser("a@b.co", "annlee")
	if err := s.Create(ctx, u); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	got, err := s.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	got.Email = "tampered@b.co"
	got.Sessions["rogue"] = struct{}{}

	again, err := s.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if again.Email != "a@b.co" {
		t.Fatalf("store state leaked through returned record")
	}
	if _, ok := again.Sessions["rogue"]; ok {
		t.Fatalf("session set leaked through returned record")
	}
}

func TestListOrderedAndCount(t *testing.T) {
	s := NewMemoryUserStore()
	ctx := context.Background()
	for i, pair := range [][2]string{{"a@b.co", "h1"}, {"c@d.co", "h2"}, {"e@f.co", "h3"}} {
		u := newUser(pair[0], pair[1])
		if err := s.Create(ctx, u); err != nil {
			t.Fatalf("create %d failed: %v", i, err)
		}
	}
	users, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("expected 3 users, got %d", len(users))
	}
	for i, u := range users {
		if u.ID != domain.UserID(i+1) {
			t.Fatalf("expected ordered ids, got %v at %d", u.ID, i)
		}
	}
	n, err := s.Count(ctx)
	if err != nil || n != 3 {
		t.Fatalf("expected count 3, got %d (%v)", n, err)
	}
}

func TestHandlesSnapshot(t *testing.T) {
	s := NewMemoryUserStore()
	ctx := context.Background()
	if err := s.Create(ctx, newUser("a@b.co", "annlee")); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	handles, err := s.Handles(ctx)
	if err != nil {
		t.Fatalf("handles failed: %v", err)
	}
	if _, ok := handles["annlee"]; !ok {
		t.Fatalf("expected annlee in handle snapshot")
	}
	// Snapshot must be detached from store state.
	handles["injected"] = struct{}{}
	again, _ := s.Handles(ctx)
	if _, ok := again["injected"]; ok {
		t.Fatalf("snapshot mutation leaked into store")
	}
}

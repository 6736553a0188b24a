package reset

import (
	"context"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/yourorg/collabcore/internal/domain"
	"github.com/yourorg/collabcore/internal/repository"
	"github.com/yourorg/collabcore/internal/security/password"
)

type captureNotifier struct {
	delivered chan [2]string // email, code
}

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{delivered: make(chan [2]string, 8)}
}

func (c *captureNotifier) NotifyResetCode(ctx context.Context, email, code string) error {
	c.delivered <- [2]string{email, code}
	return nil
}

func (c *captureNotifier) wait(t *testing.T) (email, code string) {
	t.Helper()
	select {
	case d := <-c.delivered:
		return d[0], d[1]
	case <-time.After(2 * time.Second):
		t.Fatal("notification never delivered")
		return "", ""
	}
}

func newTestService(t *testing.T) (*Service, *repository.MemoryUserStore, *captureNotifier) {
	t.Helper()
	store := repository.NewMemoryUserStore()
	codec := password.NewCodec(bcrypt.MinCost)
	sink := newCaptureNotifier()
	return NewService(store, codec, sink, nil, nil, nil, nil), store, sink
}

func seedUser(t *testing.T, store *repository.MemoryUserStore, codec *password.Codec, email string) *domain.User {
	t.Helper()
	digest, err := codec.Hash("hunter22")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := &domain.User{
		Email:        email,
		PasswordHash: digest,
		FirstName:    "Ann",
		LastName:     "Lee",
		Handle:       "annlee-" + email,
		Permission:   domain.PermissionMember,
		Sessions:     map[string]struct{}{},
		ResetCodes:   map[string]struct{}{},
	}
	if err := store.Create(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func TestRequestIssuesAndDeliversCode(t *testing.T) {
	svc, store, sink := newTestService(t)
	codec := password.NewCodec(bcrypt.MinCost)
	u := seedUser(t, store, codec, "ann@mail.com")
	ctx := context.Background()

	if err := svc.Request(ctx, "ann@mail.com"); err != nil {
		t.Fatalf("request: %v", err)
	}
	email, code := sink.wait(t)
	if email != "ann@mail.com" {
		t.Fatalf("delivered to %q", email)
	}
	if len(code) != 4 {
		t.Fatalf("code %q is not four digits", code)
	}
	got, err := store.GetByResetCode(ctx, code)
	if err != nil {
		t.Fatalf("code not recorded: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("code belongs to user %d, want %d", got.ID, u.ID)
	}
}

func TestRequestUnknownEmail(t *testing.T) {
	svc, _, _ := newTestService(t)
	if err := svc.Request(context.Background(), "ghost@mail.com"); !domain.IsValidation(err) {
		t.Fatalf("got %v, want validation error", err)
	}
}

func TestConcurrentCodesStayValid(t *testing.T) {
	svc, store, sink := newTestService(t)
	codec := password.NewCodec(bcrypt.MinCost)
	seedUser(t, store, codec, "ann@mail.com")
	ctx := context.Background()

	if err := svc.Request(ctx, "ann@mail.com"); err != nil {
		t.Fatalf("first request: %v", err)
	}
	_, first := sink.wait(t)
	if err := svc.Request(ctx, "ann@mail.com"); err != nil {
		t.Fatalf("second request: %v", err)
	}
	_, second := sink.wait(t)

	// Consuming the second code leaves the first usable.
	if err := svc.Reset(ctx, second, "newpassword"); err != nil {
		t.Fatalf("reset with second code: %v", err)
	}
	if err := svc.Reset(ctx, first, "anotherpassword"); err != nil {
		t.Fatalf("first code must survive: %v", err)
	}
}

func TestSingleActiveCodeFlag(t *testing.T) {
	t.Setenv("FLAG_SINGLE_ACTIVE_RESET_CODE", "true")
	svc, store, sink := newTestService(t)
	codec := password.NewCodec(bcrypt.MinCost)
	seedUser(t, store, codec, "ann@mail.com")
	ctx := context.Background()

	if err := svc.Request(ctx, "ann@mail.com"); err != nil {
		t.Fatalf("first request: %v", err)
	}
	_, first := sink.wait(t)
	if err := svc.Request(ctx, "ann@mail.com"); err != nil {
		t.Fatalf("second request: %v", err)
	}
	_, second := sink.wait(t)

	if err := svc.Reset(ctx, first, "newpassword"); !domain.IsValidation(err) {
		t.Fatalf("superseded code: got %v, want validation error", err)
	}
	if err := svc.Reset(ctx, second, "newpassword"); err != nil {
		t.Fatalf("latest code: %v", err)
	}
}

func TestResetInstallsNewPassword(t *testing.T) {
	svc, store, sink := newTestService(t)
	codec := password.NewCodec(bcrypt.MinCost)
	u := seedUser(t, store, codec, "ann@mail.com")
	ctx := context.Background()

	if err := svc.Request(ctx, "ann@mail.com"); err != nil {
		t.Fatalf("request: %v", err)
	}
	_, code := sink.wait(t)
	if err := svc.Reset(ctx, code, "newpassword"); err != nil {
		t.Fatalf("reset: %v", err)
	}

	fresh, err := store.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if !codec.Verify("newpassword", fresh.PasswordHash) {
		t.Fatal("new password must verify")
	}
	if codec.Verify("hunter22", fresh.PasswordHash) {
		t.Fatal("old password must stop verifying")
	}
	// Consumed codes are single-use.
	if err := svc.Reset(ctx, code, "thirdpassword"); !domain.IsValidation(err) {
		t.Fatalf("reused code: got %v, want validation error", err)
	}
}

func TestResetValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.Reset(ctx, "0000", "short"); !domain.IsValidation(err) {
		t.Fatalf("short password: got %v, want validation error", err)
	}
	if err := svc.Reset(ctx, "0000", "longenough"); !domain.IsValidation(err) {
		t.Fatalf("unknown code: got %v, want validation error", err)
	}
}

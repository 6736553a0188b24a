package collabcore_test

import (
	"context"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/yourorg/collabcore"
	"github.com/yourorg/collabcore/internal/collab"
	"github.com/yourorg/collabcore/internal/domain"
	"github.com/yourorg/collabcore/internal/repository"
	"github.com/yourorg/collabcore/internal/security/password"
	"github.com/yourorg/collabcore/internal/security/token"
)

type chanNotifier struct {
	codes chan string
}

func (n *chanNotifier) NotifyResetCode(ctx context.Context, email, code string) error {
	n.codes <- code
	return nil
}

// Walks the whole account lifecycle through the public Core surface:
// register, login, reset the password, log back in, read stats.
func TestCoreLifecycle(t *testing.T) {
	ctx := context.Background()
	world := collab.NewStatic()
	sink := &chanNotifier{codes: make(chan string, 1)}
	core := collabcore.New(collabcore.Options{
		Store:      repository.NewMemoryUserStore(),
		Tokens:     token.NewManager("test-secret", "", 0),
		Codec:      password.NewCodec(bcrypt.MinCost),
		Notifier:   sink,
		Membership: world,
		Messages:   world,
	})

	reg, err := core.Registry.Register(ctx, "ann@mail.com", "hunter22", "Ann", "Lee")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := core.Resets.Request(ctx, "ann@mail.com"); err != nil {
		t.Fatalf("reset request: %v", err)
	}
	var code string
	select {
	case code = <-sink.codes:
	case <-time.After(2 * time.Second):
		t.Fatal("reset code never delivered")
	}
	if err := core.Resets.Reset(ctx, code, "newpassword"); err != nil {
		t.Fatalf("reset: %v", err)
	}

	if _, err := core.Registry.Login(ctx, "ann@mail.com", "hunter22"); !domain.IsValidation(err) {
		t.Fatalf("old password after reset: got %v, want validation error", err)
	}
	login, err := core.Registry.Login(ctx, "ann@mail.com", "newpassword")
	if err != nil {
		t.Fatalf("login with new password: %v", err)
	}

	// Sessions opened before the reset stay live; reset changes the
	// credential, not the session set.
	for _, tok := range []string{reg.Token, login.Token} {
		if _, err := core.Registry.Resolve(ctx, tok); err != nil {
			t.Fatalf("resolve: %v", err)
		}
	}

	world.JoinChannel(reg.UserID, "general")
	world.RecordMessages(reg.UserID, 2)
	st, err := core.Stats.ForUser(ctx, reg.UserID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.ChannelsJoined != 1 || st.MessagesSent != 2 {
		t.Fatalf("unexpected stats %+v", st)
	}
	sys, err := core.Stats.ForSystem(ctx)
	if err != nil {
		t.Fatalf("system stats: %v", err)
	}
	if sys.UtilizationRate != 1.0 {
		t.Fatalf("utilization = %v, want 1.0", sys.UtilizationRate)
	}
}

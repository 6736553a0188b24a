// Package reset implements the password-reset workflow: issue a short
// numeric code to a registered email, then trade the code for a new
// password. Codes are recorded durably before any notification is sent, so
// a dead mail pipeline never loses the reset.
package reset

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/yourorg/collabcore/internal/domain"
	"github.com/yourorg/collabcore/internal/featureflags"
	"github.com/yourorg/collabcore/internal/observability/metrics"
	"github.com/yourorg/collabcore/internal/security/audit"
	"github.com/yourorg/collabcore/internal/security/password"
	"github.com/yourorg/collabcore/internal/security/ratelimit"
)

const (
	codeSpace      = 10000 // codes are 0000-9999
	minPasswordLen = 6
	notifyTimeout  = 10 * time.Second
)

// Service runs the reset workflow over the shared user store.
type Service struct {
	lock     sync.Locker
	store    domain.UserStore
	codec    *password.Codec
	notifier domain.Notifier
	limiter  *ratelimit.Limiter // optional request throttle
	auditor  *audit.Logger      // optional
	logger   *slog.Logger
}

// NewService creates the workflow. lock must be the same lock the registry
// mutates under; passing nil gives the service a private lock, which is
// only safe when nothing else writes user records.
func NewService(
	store domain.UserStore,
	codec *password.Codec,
	notifier domain.Notifier,
	lock sync.Locker,
	limiter *ratelimit.Limiter,
	auditor *audit.Logger,
	logger *slog.Logger,
) *Service {
	if lock == nil {
		lock = &sync.Mutex{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		lock:     lock,
		store:    store,
		codec:    codec,
		notifier: notifier,
		limiter:  limiter,
		auditor:  auditor,
		logger:   logger,
	}
}

// Request issues a fresh reset code for email and hands it to the notifier
// asynchronously. Unless the single-active-code flag is on, earlier codes
// stay valid alongside the new one. Notification failures are logged, never
// returned: by the time the notifier runs, the request has already
// succeeded.
func (s *Service) Request(ctx context.Context, email string) (err error) {
	defer observe("reset_request", time.Now(), &err)

	if s.limiter != nil && !s.limiter.Allow("reset:"+email) {
		if s.auditor != nil {
			s.auditor.LogDenied(ctx, "reset_request", email, "rate limited")
		}
		return domain.Validationf("too many reset requests, try again later")
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	user, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Validationf("email does not belong to a registered user")
		}
		return err
	}

	code, err := s.freshCode(ctx)
	if err != nil {
		return err
	}
	if featureflags.Enabled(featureflags.SingleActiveResetCode) {
		user.ResetCodes = map[string]struct{}{}
	}
	user.ResetCodes[code] = struct{}{}
	if err = s.store.Update(ctx, user); err != nil {
		return err
	}

	if s.auditor != nil {
		s.auditor.LogEvent(ctx, "reset_requested", user.ID, email, "ok", "")
	}

	// Fire and forget. The request's own context may be gone before the
	// notifier finishes, so deliver under a detached one.
	go func() {
		nctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if nerr := s.notifier.NotifyResetCode(nctx, email, code); nerr != nil {
			s.logger.Error("reset code notification failed",
				slog.String("email", email),
				slog.String("error", nerr.Error()),
			)
		}
	}()
	return nil
}

// Reset consumes code and installs newPassword for its owner. Only the
// presented code is removed; other outstanding codes for the same user
// remain usable.
func (s *Service) Reset(ctx context.Context, code, newPassword string) (err error) {
	defer observe("reset", time.Now(), &err)

	if len(newPassword) < minPasswordLen {
		return domain.Validationf("password must be at least %d characters", minPasswordLen)
	}
	digest, err := s.codec.Hash(newPassword)
	if err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	user, err := s.store.GetByResetCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Validationf("not a valid reset code")
		}
		return err
	}
	delete(user.ResetCodes, code)
	user.PasswordHash = digest
	if err = s.store.Update(ctx, user); err != nil {
		return err
	}
	if s.auditor != nil {
		s.auditor.LogPasswordReset(ctx, user.ID)
	}
	return nil
}

// freshCode draws random 4-digit codes until one is unused system-wide, so
// a code always identifies exactly one account. Caller holds the lock.
func (s *Service) freshCode(ctx context.Context) (string, error) {
	for {
		n, err := rand.Int(rand.Reader, big.NewInt(codeSpace))
		if err != nil {
			return "", fmt.Errorf("failed to generate reset code: %w", err)
		}
		code := fmt.Sprintf("%04d", n.Int64())
		if _, err := s.store.GetByResetCode(ctx, code); errors.Is(err, domain.ErrNotFound) {
			return code, nil
		} else if err != nil {
			return "", err
		}
	}
}

func observe(op string, start time.Time, err *error) {
	result := "ok"
	switch {
	case *err == nil:
	case domain.IsValidation(*err):
		result = "validation_error"
	default:
		result = "error"
	}
	metrics.ObserveOperation(op, result, time.Since(start))
}

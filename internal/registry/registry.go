// Package registry is the authoritative owner of user records. Every
// mutation in the identity core flows through it; all other components
// read through the injected store.
package registry

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/yourorg/collabcore/internal/domain"
	"github.com/yourorg/collabcore/internal/identity/handle"
	"github.com/yourorg/collabcore/internal/observability/metrics"
	"github.com/yourorg/collabcore/internal/security/audit"
	"github.com/yourorg/collabcore/internal/security/password"
	"github.com/yourorg/collabcore/internal/security/ratelimit"
	"github.com/yourorg/collabcore/internal/security/token"
)

// emailPattern is deliberately permissive: local part, optional single dot
// or underscore, and a domain whose top-level segment is 2-3 characters.
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9]+[._]?[a-zA-Z0-9]+@\w+\.\w{2,3}$`)

const (
	minPasswordLen = 6
	maxNameLen     = 50
	maxEmailLen    = 254
	minHandleLen   = 3
)

var tracer = otel.Tracer("collabcore/registry")

// AuthResult is returned by Register and Login: the account id plus the
// session id and its signed token.
type AuthResult struct {
	UserID    domain.UserID
	SessionID string
	Token     string
}

// Registry enforces email/handle uniqueness and session membership over an
// injected store. A single mutex serializes every read-modify-write
// sequence; reads go straight to the store.
type Registry struct {
	mu      sync.Mutex
	store   domain.UserStore
	tokens  *token.Manager
	codec   *password.Codec
	limiter *ratelimit.Limiter // optional login throttle
	auditor *audit.Logger      // optional
	logger  *slog.Logger
}

// NewRegistry creates a registry. limiter and auditor may be nil.
func NewRegistry(
	store domain.UserStore,
	tokens *token.Manager,
	codec *password.Codec,
	limiter *ratelimit.Limiter,
	auditor *audit.Logger,
	logger *slog.Logger,
) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		store:   store,
		tokens:  tokens,
		codec:   codec,
		limiter: limiter,
		auditor: auditor,
		logger:  logger,
	}
}

// Register creates a new account. The first user ever registered becomes
// the owner; everyone else is a member. A fresh session is opened and its
// token returned.
func (r *Registry) Register(ctx context.Context, email, pass, firstName, lastName string) (res *AuthResult, err error) {
	ctx, span := tracer.Start(ctx, "registry.Register")
	defer func() { endSpan(span, err) }()
	defer observe("register", time.Now(), &err)

	if err = validateEmail(email); err != nil {
		return nil, err
	}
	if len(pass) < minPasswordLen {
		return nil, domain.Validationf("password must be at least %d characters", minPasswordLen)
	}
	if err = validateName(firstName, "first name"); err != nil {
		return nil, err
	}
	if err = validateName(lastName, "last name"); err != nil {
		return nil, err
	}

	// Hash before taking the lock; bcrypt is the slow part.
	digest, err := r.codec.Hash(pass)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, lookupErr := r.store.GetByEmail(ctx, email); lookupErr == nil {
		return nil, domain.Validationf("email already registered")
	} else if !errors.Is(lookupErr, domain.ErrNotFound) {
		return nil, lookupErr
	}

	count, err := r.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	taken, err := r.store.Handles(ctx)
	if err != nil {
		return nil, err
	}

	perm := domain.PermissionMember
	if count == 0 {
		perm = domain.PermissionOwner
	}
	sessionID := uuid.NewString()
	user := &domain.User{
		Email:        email,
		PasswordHash: digest,
		FirstName:    firstName,
		LastName:     lastName,
		Handle:       handle.Allocate(firstName, lastName, taken),
		Permission:   perm,
		Sessions:     map[string]struct{}{sessionID: {}},
		ResetCodes:   map[string]struct{}{},
	}
	if err = r.store.Create(ctx, user); err != nil {
		return nil, err
	}

	signed, err := r.tokens.Issue(sessionID)
	if err != nil {
		return nil, err
	}

	metrics.SessionOpened()
	if r.auditor != nil {
		r.auditor.LogRegister(ctx, user.ID, user.Email, user.Handle)
	}
	r.logger.InfoContext(ctx, "user registered",
		slog.Int64("user_id", int64(user.ID)),
		slog.String("handle", user.Handle),
	)
	return &AuthResult{UserID: user.ID, SessionID: sessionID, Token: signed}, nil
}

// Login verifies credentials and opens an additional session. Unknown email
// and wrong password are the same error kind on purpose, so the failure
// doesn't confirm which check tripped.
func (r *Registry) Login(ctx context.Context, email, pass string) (res *AuthResult, err error) {
	ctx, span := tracer.Start(ctx, "registry.Login")
	defer func() { endSpan(span, err) }()
	defer observe("login", time.Now(), &err)

	if err = validateEmail(email); err != nil {
		return nil, err
	}
	if r.limiter != nil && !r.limiter.Allow("login:"+email) {
		if r.auditor != nil {
			r.auditor.LogDenied(ctx, "login", email, "rate limited")
		}
		return nil, domain.Validationf("too many login attempts, try again later")
	}

	user, err := r.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Validationf("incorrect email or password")
		}
		return nil, err
	}
	if !r.codec.Verify(pass, user.PasswordHash) {
		if r.auditor != nil {
			r.auditor.LogDenied(ctx, "login", email, "bad credentials")
		}
		return nil, domain.Validationf("incorrect email or password")
	}

	sessionID := uuid.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()
	fresh, err := r.store.GetByID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	fresh.Sessions[sessionID] = struct{}{}
	if err = r.store.Update(ctx, fresh); err != nil {
		return nil, err
	}

	signed, err := r.tokens.Issue(sessionID)
	if err != nil {
		return nil, err
	}

	metrics.SessionOpened()
	if r.auditor != nil {
		r.auditor.LogLogin(ctx, user.ID, email)
	}
	return &AuthResult{UserID: user.ID, SessionID: sessionID, Token: signed}, nil
}

// Logout revokes the session embedded in tokenString. A structurally
// invalid token is an AuthError; a session nobody holds is not an error,
// just false — double-logout is idempotent.
func (r *Registry) Logout(ctx context.Context, tokenString string) (ok bool, err error) {
	ctx, span := tracer.Start(ctx, "registry.Logout")
	defer func() { endSpan(span, err) }()
	defer observe("logout", time.Now(), &err)

	sessionID, err := r.tokens.Verify(tokenString)
	if err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	user, err := r.store.GetBySession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	delete(user.Sessions, sessionID)
	if err = r.store.Update(ctx, user); err != nil {
		return false, err
	}
	metrics.SessionClosed()
	if r.auditor != nil {
		r.auditor.LogLogout(ctx, user.ID)
	}
	return true, nil
}

// Resolve maps a token to the user currently holding its session.
// Signature failures are AuthErrors; a syntactically valid token whose
// session has been revoked resolves to ErrNotFound.
func (r *Registry) Resolve(ctx context.Context, tokenString string) (domain.UserID, error) {
	sessionID, err := r.tokens.Verify(tokenString)
	if err != nil {
		return 0, err
	}
	user, err := r.store.GetBySession(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	return user.ID, nil
}

// LookupByHandle returns the id of the user owning handle.
func (r *Registry) LookupByHandle(ctx context.Context, h string) (domain.UserID, error) {
	user, err := r.store.GetByHandle(ctx, h)
	if err != nil {
		return 0, err
	}
	return user.ID, nil
}

// LookupByEmail returns the id of the user owning email (exact match).
func (r *Registry) LookupByEmail(ctx context.Context, email string) (domain.UserID, error) {
	user, err := r.store.GetByEmail(ctx, email)
	if err != nil {
		return 0, err
	}
	return user.ID, nil
}

// Profile returns the public profile of id. Requires a valid token.
func (r *Registry) Profile(ctx context.Context, tokenString string, id domain.UserID) (domain.Profile, error) {
	if _, err := r.requireUser(ctx, tokenString); err != nil {
		return domain.Profile{}, err
	}
	user, err := r.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Profile{}, domain.Validationf("user does not exist")
		}
		return domain.Profile{}, err
	}
	return user.ToProfile(), nil
}

// Users returns every profile, ordered by user id. Requires a valid token.
func (r *Registry) Users(ctx context.Context, tokenString string) ([]domain.Profile, error) {
	if _, err := r.requireUser(ctx, tokenString); err != nil {
		return nil, err
	}
	users, err := r.store.List(ctx)
	if err != nil {
		return nil, err
	}
	profiles := make([]domain.Profile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, u.ToProfile())
	}
	return profiles, nil
}

// SetName updates the caller's first and last name.
func (r *Registry) SetName(ctx context.Context, tokenString, firstName, lastName string) (err error) {
	ctx, span := tracer.Start(ctx, "registry.SetName")
	defer func() { endSpan(span, err) }()
	defer observe("set_name", time.Now(), &err)

	caller, err := r.requireUser(ctx, tokenString)
	if err != nil {
		return err
	}
	if err = validateName(firstName, "first name"); err != nil {
		return err
	}
	if err = validateName(lastName, "last name"); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	fresh, err := r.store.GetByID(ctx, caller.ID)
	if err != nil {
		return err
	}
	fresh.FirstName = firstName
	fresh.LastName = lastName
	return r.store.Update(ctx, fresh)
}

// SetEmail updates the caller's email after re-validating format and
// uniqueness against every other user.
func (r *Registry) SetEmail(ctx context.Context, tokenString, email string) (err error) {
	ctx, span := tracer.Start(ctx, "registry.SetEmail")
	defer func() { endSpan(span, err) }()
	defer observe("set_email", time.Now(), &err)

	caller, err := r.requireUser(ctx, tokenString)
	if err != nil {
		return err
	}
	if len(email) > maxEmailLen {
		return domain.Validationf("email address too long")
	}
	if err = validateEmail(email); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if other, lookupErr := r.store.GetByEmail(ctx, email); lookupErr == nil && other.ID != caller.ID {
		return domain.Validationf("email already being used by another user")
	} else if lookupErr != nil && !errors.Is(lookupErr, domain.ErrNotFound) {
		return lookupErr
	}
	fresh, err := r.store.GetByID(ctx, caller.ID)
	if err != nil {
		return err
	}
	fresh.Email = email
	return r.store.Update(ctx, fresh)
}

// SetHandle updates the caller's handle. Unlike registration-time
// allocation, a chosen handle must be 3-20 characters and free.
func (r *Registry) SetHandle(ctx context.Context, tokenString, h string) (err error) {
	ctx, span := tracer.Start(ctx, "registry.SetHandle")
	defer func() { endSpan(span, err) }()
	defer observe("set_handle", time.Now(), &err)

	caller, err := r.requireUser(ctx, tokenString)
	if err != nil {
		return err
	}
	if n := utf8.RuneCountInString(h); n < minHandleLen || n > handle.MaxLen {
		return domain.Validationf("handle must be %d-%d characters", minHandleLen, handle.MaxLen)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if other, lookupErr := r.store.GetByHandle(ctx, h); lookupErr == nil && other.ID != caller.ID {
		return domain.Validationf("handle already being used by another user")
	} else if lookupErr != nil && !errors.Is(lookupErr, domain.ErrNotFound) {
		return lookupErr
	}
	fresh, err := r.store.GetByID(ctx, caller.ID)
	if err != nil {
		return err
	}
	fresh.Handle = h
	return r.store.Update(ctx, fresh)
}

// Locker exposes the registry's mutation lock so sibling workflows that
// also read-modify-write user records (password reset) serialize with it.
func (r *Registry) Locker() sync.Locker {
	return &r.mu
}

// requireUser verifies the token and returns the user holding its session.
// A valid signature over a revoked session is still an AuthError.
func (r *Registry) requireUser(ctx context.Context, tokenString string) (*domain.User, error) {
	sessionID, err := r.tokens.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	user, err := r.store.GetBySession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Authf("token does not reference an active session")
		}
		return nil, err
	}
	return user, nil
}

func validateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return domain.Validationf("invalid email address")
	}
	return nil
}

func validateName(name, field string) error {
	// Bounds are in characters; names are routinely non-ASCII.
	if n := utf8.RuneCountInString(name); n < 1 || n > maxNameLen {
		return domain.Validationf("%s must be 1-%d characters", field, maxNameLen)
	}
	return nil
}

func observe(op string, start time.Time, err *error) {
	result := "ok"
	switch {
	case *err == nil:
	case domain.IsValidation(*err):
		result = "validation_error"
	case domain.IsAuth(*err):
		result = "auth_error"
	default:
		result = "error"
	}
	metrics.ObserveOperation(op, result, time.Since(start))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}

package domain

import (
	"context"
	"time"
)

// UserID identifies a user account. IDs are assigned sequentially starting
// at 1; the store is the only component that assigns them.
type UserID int64

// Permission is a user's permission level.
type Permission int

const (
	// PermissionOwner is granted to the very first registered user only.
	PermissionOwner Permission = 1
	// PermissionMember is the default level for everyone else.
	PermissionMember Permission = 2
)

// User represents a registered account. The registry is the sole owner of
// mutation; everything else reads through the store contract.
type User struct {
	ID           UserID
	Email        string // unique, exact-match
	PasswordHash string // bcrypt digest, never the cleartext
	FirstName    string
	LastName     string
	Handle       string // unique, derived from the name pair
	Permission   Permission
	ProfileImage string // optional reference, empty if unset

	// Sessions holds the session ids currently considered logged in.
	// A token is valid iff its embedded session id is present here.
	Sessions map[string]struct{}

	// ResetCodes holds outstanding password-reset codes. Multiple codes
	// may be valid at once; consuming one leaves the others intact.
	ResetCodes map[string]struct{}

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy so callers can't reach into store-owned state.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	cp := *u
	cp.Sessions = make(map[string]struct{}, len(u.Sessions))
	for s := range u.Sessions {
		cp.Sessions[s] = struct{}{}
	}
	cp.ResetCodes = make(map[string]struct{}, len(u.ResetCodes))
	for c := range u.ResetCodes {
		cp.ResetCodes[c] = struct{}{}
	}
	return &cp
}

// Profile is the outward-facing subset of a user record.
type Profile struct {
	UserID       UserID `json:"user_id"`
	Email        string `json:"email"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Handle       string `json:"handle"`
	ProfileImage string `json:"profile_image,omitempty"`
}

// ToProfile projects a user record onto its public profile.
func (u *User) ToProfile() Profile {
	return Profile{
		UserID:       u.ID,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Handle:       u.Handle,
		ProfileImage: u.ProfileImage,
	}
}

// UserStore defines data access for user records. Implementations must be
// safe for concurrent use and must return ErrNotFound from the Get methods
// when no record matches. Returned records are copies; mutations only take
// effect through Create/Update.
type UserStore interface {
	// Create persists a new user and assigns the next sequential ID.
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id UserID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByHandle(ctx context.Context, handle string) (*User, error)
	// GetBySession finds the user whose session set contains sessionID.
	GetBySession(ctx context.Context, sessionID string) (*User, error)
	// GetByResetCode finds the user whose reset-code set contains code.
	GetByResetCode(ctx context.Context, code string) (*User, error)
	// Update replaces the stored record matching user.ID.
	Update(ctx context.Context, user *User) error
	List(ctx context.Context) ([]*User, error)
	Count(ctx context.Context) (int, error)
	// Handles returns a snapshot of every handle currently in use.
	Handles(ctx context.Context) (map[string]struct{}, error)
}

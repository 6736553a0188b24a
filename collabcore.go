// Package collabcore wires the identity and session core into a single
// embeddable unit. A host application (HTTP gateway, RPC server, CLI)
// constructs a Core and calls its services directly; this module ships no
// transport of its own.
package collabcore

import (
	"log/slog"

	"github.com/yourorg/collabcore/internal/domain"
	"github.com/yourorg/collabcore/internal/registry"
	"github.com/yourorg/collabcore/internal/reset"
	"github.com/yourorg/collabcore/internal/security/audit"
	"github.com/yourorg/collabcore/internal/security/password"
	"github.com/yourorg/collabcore/internal/security/ratelimit"
	"github.com/yourorg/collabcore/internal/security/token"
	"github.com/yourorg/collabcore/internal/stats"
)

// Options collects the collaborators a Core is built from. Store, Tokens,
// Codec, Notifier, Membership and Messages are required; the rest may be
// nil.
type Options struct {
	Store      domain.UserStore
	Tokens     *token.Manager
	Codec      *password.Codec
	Notifier   domain.Notifier
	Membership domain.MembershipProvider
	Messages   domain.MessageProvider

	LoginLimiter *ratelimit.Limiter
	ResetLimiter *ratelimit.Limiter
	Audit        *audit.Logger
	Logger       *slog.Logger
}

// Core exposes the three public services of the identity core. All of them
// share one store and one mutation lock.
type Core struct {
	Registry *registry.Registry
	Resets   *reset.Service
	Stats    *stats.Service
}

// New wires a Core. The reset workflow shares the registry's mutation lock
// so password and profile writes never interleave.
func New(opts Options) *Core {
	reg := registry.NewRegistry(opts.Store, opts.Tokens, opts.Codec, opts.LoginLimiter, opts.Audit, opts.Logger)
	return &Core{
		Registry: reg,
		Resets:   reset.NewService(opts.Store, opts.Codec, opts.Notifier, reg.Locker(), opts.ResetLimiter, opts.Audit, opts.Logger),
		Stats:    stats.NewService(opts.Store, opts.Membership, opts.Messages),
	}
}

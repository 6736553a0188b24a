package domain

import "context"

// MembershipProvider is the channel/DM membership collaborator. The identity
// core only ever counts the results; membership itself lives elsewhere.
type MembershipProvider interface {
	ChannelsOf(ctx context.Context, id UserID) ([]string, error)
	DMsOf(ctx context.Context, id UserID) ([]string, error)
	TotalChannels(ctx context.Context) (int, error)
	TotalDMs(ctx context.Context) (int, error)
}

// MessageProvider is the message collaborator, consumed only for counting.
type MessageProvider interface {
	MessagesBy(ctx context.Context, id UserID) (int, error)
	TotalMessages(ctx context.Context) (int, error)
}

// Notifier delivers a password-reset code to a user. Delivery is
// best-effort: the reset workflow records the code durably first and never
// rolls it back on notification failure.
type Notifier interface {
	NotifyResetCode(ctx context.Context, email, code string) error
}

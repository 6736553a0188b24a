// Package notify delivers password-reset codes to users. The core treats
// delivery as best-effort: codes are durably recorded before any sink is
// invoked, and sink failures never surface to the requester.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/yourorg/collabcore/internal/infrastructure/redis"
)

// SlogNotifier writes the code to the application log. Development sink;
// never use it where logs are broadly readable.
type SlogNotifier struct {
	logger *slog.Logger
}

func NewSlogNotifier(logger *slog.Logger) *SlogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogNotifier{logger: logger}
}

func (n *SlogNotifier) NotifyResetCode(ctx context.Context, email, code string) error {
	n.logger.InfoContext(ctx, "password reset code issued",
		slog.String("email", email),
		slog.String("code", code),
	)
	return nil
}

// RedisNotifier enqueues reset emails on a Redis list. An external mailer
// drains the queue; the identity core never talks SMTP itself.
type RedisNotifier struct {
	client *redis.Client
	queue  string
}

// DefaultQueue is the list the external mailer consumes.
const DefaultQueue = "collabcore:reset_emails"

func NewRedisNotifier(client *redis.Client, queue string) *RedisNotifier {
	if queue == "" {
		queue = DefaultQueue
	}
	return &RedisNotifier{client: client, queue: queue}
}

type resetEmail struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	RequestedAt int64  `json:"requested_at"`
}

func (n *RedisNotifier) NotifyResetCode(ctx context.Context, email, code string) error {
	payload, err := json.Marshal(resetEmail{
		Email:       email,
		Code:        code,
		RequestedAt: time.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal reset email: %w", err)
	}
	if err := n.client.LPush(ctx, n.queue, payload); err != nil {
		return fmt.Errorf("failed to enqueue reset email: %w", err)
	}
	return nil
}

// Package stats aggregates engagement metrics over the user registry and
// its collaborators. Every call recomputes from live data; nothing here is
// cached, so a stat is correct the moment it is returned.
package stats

import (
	"context"
	"errors"
	"time"

	"github.com/yourorg/collabcore/internal/domain"
)

// UserStats describes one user's engagement at a point in time.
type UserStats struct {
	UserID          domain.UserID `json:"user_id"`
	ChannelsJoined  int           `json:"channels_joined"`
	DMsJoined       int           `json:"dms_joined"`
	MessagesSent    int           `json:"messages_sent"`
	InvolvementRate float64       `json:"involvement_rate"`
	GeneratedAt     int64         `json:"generated_at"` // unix seconds
}

// SystemStats describes workspace-wide engagement at a point in time.
type SystemStats struct {
	ChannelsExist   int     `json:"channels_exist"`
	DMsExist        int     `json:"dms_exist"`
	MessagesExist   int     `json:"messages_exist"`
	UtilizationRate float64 `json:"utilization_rate"`
	GeneratedAt     int64   `json:"generated_at"` // unix seconds
}

// Service computes stats from the store and the membership/message
// collaborators.
type Service struct {
	store      domain.UserStore
	membership domain.MembershipProvider
	messages   domain.MessageProvider
}

func NewService(store domain.UserStore, membership domain.MembershipProvider, messages domain.MessageProvider) *Service {
	return &Service{store: store, membership: membership, messages: messages}
}

// ForUser computes the involvement of one user: their channel, DM and
// message counts over the workspace totals. A workspace with nothing in it
// yields a rate of zero rather than a division error.
func (s *Service) ForUser(ctx context.Context, id domain.UserID) (UserStats, error) {
	if _, err := s.store.GetByID(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return UserStats{}, domain.Validationf("user does not exist")
		}
		return UserStats{}, err
	}

	channels, err := s.membership.ChannelsOf(ctx, id)
	if err != nil {
		return UserStats{}, err
	}
	dms, err := s.membership.DMsOf(ctx, id)
	if err != nil {
		return UserStats{}, err
	}
	sent, err := s.messages.MessagesBy(ctx, id)
	if err != nil {
		return UserStats{}, err
	}

	totalChannels, err := s.membership.TotalChannels(ctx)
	if err != nil {
		return UserStats{}, err
	}
	totalDMs, err := s.membership.TotalDMs(ctx)
	if err != nil {
		return UserStats{}, err
	}
	totalMessages, err := s.messages.TotalMessages(ctx)
	if err != nil {
		return UserStats{}, err
	}

	st := UserStats{
		UserID:         id,
		ChannelsJoined: len(channels),
		DMsJoined:      len(dms),
		MessagesSent:   sent,
		GeneratedAt:    time.Now().Unix(),
	}
	if denom := totalChannels + totalDMs + totalMessages; denom > 0 {
		st.InvolvementRate = float64(st.ChannelsJoined+st.DMsJoined+st.MessagesSent) / float64(denom)
	}
	return st, nil
}

// ForSystem computes workspace-wide stats. Utilization is the fraction of
// users present in at least one channel or DM; an empty workspace reports
// zero.
func (s *Service) ForSystem(ctx context.Context) (SystemStats, error) {
	users, err := s.store.List(ctx)
	if err != nil {
		return SystemStats{}, err
	}

	totalChannels, err := s.membership.TotalChannels(ctx)
	if err != nil {
		return SystemStats{}, err
	}
	totalDMs, err := s.membership.TotalDMs(ctx)
	if err != nil {
		return SystemStats{}, err
	}
	totalMessages, err := s.messages.TotalMessages(ctx)
	if err != nil {
		return SystemStats{}, err
	}

	active := 0
	for _, u := range users {
		channels, err := s.membership.ChannelsOf(ctx, u.ID)
		if err != nil {
			return SystemStats{}, err
		}
		if len(channels) > 0 {
			active++
			continue
		}
		dms, err := s.membership.DMsOf(ctx, u.ID)
		if err != nil {
			return SystemStats{}, err
		}
		if len(dms) > 0 {
			active++
		}
	}

	st := SystemStats{
		ChannelsExist: totalChannels,
		DMsExist:      totalDMs,
		MessagesExist: totalMessages,
		GeneratedAt:   time.Now().Unix(),
	}
	if len(users) > 0 {
		st.UtilizationRate = float64(active) / float64(len(users))
	}
	return st, nil
}

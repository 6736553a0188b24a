// Package collab provides an in-process implementation of the membership
// and message collaborator contracts. The real channel/DM/message services
// live outside this core; Static is what gets wired when they aren't
// present (development, tests, single-binary deployments).
package collab

import (
	"context"
	"sync"

	"github.com/yourorg/collabcore/internal/domain"
)

// Static satisfies domain.MembershipProvider and domain.MessageProvider
// from in-memory state. Safe for concurrent use.
type Static struct {
	mu           sync.RWMutex
	channelNames map[string]struct{}
	dmNames      map[string]struct{}
	channels     map[domain.UserID][]string
	dms          map[domain.UserID][]string
	messages     map[domain.UserID]int
}

func NewStatic() *Static {
	return &Static{
		channelNames: make(map[string]struct{}),
		dmNames:      make(map[string]struct{}),
		channels:     make(map[domain.UserID][]string),
		dms:          make(map[domain.UserID][]string),
		messages:     make(map[domain.UserID]int),
	}
}

// AddChannel declares a channel without any members.
func (s *Static) AddChannel(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channelNames[name] = struct{}{}
}

// JoinChannel records id as a member of channel name, declaring the channel
// if needed.
func (s *Static) JoinChannel(id domain.UserID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channelNames[name] = struct{}{}
	s.channels[id] = append(s.channels[id], name)
}

// JoinDM records id as a party of DM name, declaring the DM if needed.
func (s *Static) JoinDM(id domain.UserID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dmNames[name] = struct{}{}
	s.dms[id] = append(s.dms[id], name)
}

// RecordMessages adds n sent messages to id's count.
func (s *Static) RecordMessages(id domain.UserID, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[id] += n
}

func (s *Static) ChannelsOf(ctx context.Context, id domain.UserID) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.channels[id]...), nil
}

func (s *Static) DMsOf(ctx context.Context, id domain.UserID) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.dms[id]...), nil
}

func (s *Static) TotalChannels(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.channelNames), nil
}

func (s *Static) TotalDMs(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.dmNames), nil
}

func (s *Static) MessagesBy(ctx context.Context, id domain.UserID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.messages[id], nil
}

func (s *Static) TotalMessages(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, n := range s.messages {
		total += n
	}
	return total, nil
}

var (
	_ domain.MembershipProvider = (*Static)(nil)
	_ domain.MessageProvider    = (*Static)(nil)
)

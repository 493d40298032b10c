package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/edrive/ride-hailing/internal/domain/chat"
)

// ChatStore implements chat.Repository and chat.SafetyRepository
type ChatStore struct {
	mu       sync.RWMutex
	seq      int64
	messages map[string][]*chat.Message
	blocks   []*chat.Block
	reports  []*chat.Report
}

func NewChatStore() *ChatStore {
	return &ChatStore{messages: make(map[string][]*chat.Message)}
}

func (s *ChatStore) Append(ctx context.Context, m *chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	m.Seq = s.seq
	c := *m
	s.messages[m.TripID] = append(s.messages[m.TripID], &c)
	return nil
}

func (s *ChatStore) History(ctx context.Context, tripID string) ([]*chat.Message, error) {
	s.mu.RLock()
	out := make([]*chat.Message, 0, len(s.messages[tripID]))
	for _, m := range s.messages[tripID] {
		c := *m
		out = append(out, &c)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return chat.Less(out[i], out[j]) })
	return out, nil
}

func (s *ChatStore) CreateBlock(ctx context.Context, b *chat.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.blocks {
		if existing.BlockerID == b.BlockerID && existing.BlockedID == b.BlockedID {
			return nil
		}
	}
	c := *b
	s.blocks = append(s.blocks, &c)
	return nil
}

// IsBlocked reports a block in either direction
func (s *ChatStore) IsBlocked(ctx context.Context, a, b string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, bl := range s.blocks {
		if (bl.BlockerID == a && bl.BlockedID == b) || (bl.BlockerID == b && bl.BlockedID == a) {
			return true, nil
		}
	}
	return false, nil
}

func (s *ChatStore) CreateReport(ctx context.Context, r *chat.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *r
	s.reports = append(s.reports, &c)
	return nil
}

func (s *ChatStore) ListReports(ctx context.Context, limit int) ([]*chat.Report, error) {
	s.mu.RLock()
	out := make([]*chat.Report, 0, len(s.reports))
	for i := len(s.reports) - 1; i >= 0; i-- {
		c := *s.reports[i]
		out = append(out, &c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	s.mu.RUnlock()
	return out, nil
}

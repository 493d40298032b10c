package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/edrive/ride-hailing/internal/domain/offer"
)

// OfferStore implements offer.Repository
type OfferStore struct {
	mu     sync.RWMutex
	offers map[string]*offer.Offer
}

func NewOfferStore() *OfferStore {
	return &OfferStore{offers: make(map[string]*offer.Offer)}
}

func (s *OfferStore) Create(ctx context.Context, o *offer.Offer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *o
	s.offers[o.ID] = &c
	return nil
}

func (s *OfferStore) GetByID(ctx context.Context, id string) (*offer.Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.offers[id]
	if !ok {
		return nil, offer.ErrOfferNotFound
	}
	c := *o
	return &c, nil
}

func (s *OfferStore) ListByRequest(ctx context.Context, requestID string) ([]*offer.Offer, error) {
	s.mu.RLock()
	var out []*offer.Offer
	for _, o := range s.offers {
		if o.RequestID == requestID {
			c := *o
			out = append(out, &c)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *OfferStore) Settle(ctx context.Context, requestID, acceptedOfferID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.offers {
		if o.RequestID != requestID {
			continue
		}
		if o.ID == acceptedOfferID {
			o.Status = offer.StatusAccepted
		} else {
			o.Status = offer.StatusStale
		}
	}
	return nil
}

func (s *OfferStore) Expire(ctx context.Context, requestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.offers {
		if o.RequestID == requestID && o.Status == offer.StatusOpen {
			o.Status = offer.StatusStale
		}
	}
	return nil
}

func (s *OfferStore) DeleteByRequest(ctx context.Context, requestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, o := range s.offers {
		if o.RequestID == requestID {
			delete(s.offers, id)
		}
	}
	return nil
}

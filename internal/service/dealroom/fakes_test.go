package dealroom

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mamadbah2/dealroom/internal/domain/models"
)

type memoryStore struct {
	mu       sync.Mutex
	deals    map[string]*models.Deal
	messages []models.Message

	// conflicts makes the next n ReplaceDeal calls fail with ErrConflict.
	conflicts  int
	replaceErr error
	writes     int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{deals: map[string]*models.Deal{}}
}

func (m *memoryStore) InsertDeal(_ context.Context, deal *models.Deal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.deals[deal.ID]; ok {
		return models.ErrDuplicate
	}
	m.deals[deal.ID] = cloneDeal(deal)
	m.writes++
	return nil
}

func (m *memoryStore) FindDeal(_ context.Context, id string) (*models.Deal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	deal, ok := m.deals[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return cloneDeal(deal), nil
}

func (m *memoryStore) ReplaceDeal(_ context.Context, deal *models.Deal, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.replaceErr != nil {
		return m.replaceErr
	}
	current, ok := m.deals[deal.ID]
	if !ok {
		return models.ErrNotFound
	}
	if m.conflicts > 0 {
		m.conflicts--
		return models.ErrConflict
	}
	if current.Version != expectedVersion {
		return models.ErrConflict
	}
	m.deals[deal.ID] = cloneDeal(deal)
	m.writes++
	return nil
}

func (m *memoryStore) MarkFinalized(_ context.Context, dealID, transactionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	deal, ok := m.deals[dealID]
	if !ok {
		return models.ErrNotFound
	}
	deal.TransactionID = transactionID
	deal.Version++
	return nil
}

func (m *memoryStore) ListLapsedDeals(_ context.Context, before time.Time, limit int) ([]models.Deal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Deal
	for _, d := range m.deals {
		if d.Status == models.DealOpen && d.ExpiryDate.Before(before) && len(out) < limit {
			out = append(out, *cloneDeal(d))
		}
	}
	return out, nil
}

func (m *memoryStore) ListUnfinalizedDeals(_ context.Context, limit int) ([]models.Deal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Deal
	for _, d := range m.deals {
		if d.Status == models.DealAgreed && d.TransactionID == "" && len(out) < limit {
			out = append(out, *cloneDeal(d))
		}
	}
	return out, nil
}

func (m *memoryStore) InsertMessage(_ context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, *msg)
	return nil
}

func (m *memoryStore) ListMessages(_ context.Context, dealID string) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Message{}
	for _, msg := range m.messages {
		if msg.DealID == dealID {
			out = append(out, msg)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (m *memoryStore) deal(id string) *models.Deal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneDeal(m.deals[id])
}

type memoryListings struct {
	listings []models.Listing
}

func (l *memoryListings) FindListing(_ context.Context, id string) (*models.Listing, error) {
	for i := range l.listings {
		if l.listings[i].ID == id {
			listing := l.listings[i]
			return &listing, nil
		}
	}
	return nil, models.ErrNotFound
}

func (l *memoryListings) ListByFeedstock(_ context.Context, feedstock string) ([]models.Listing, error) {
	var out []models.Listing
	for _, listing := range l.listings {
		if listing.Feedstock == feedstock {
			out = append(out, listing)
		}
	}
	return out, nil
}

type stubFinalizer struct {
	err   error
	calls int
	deals []*models.Deal
}

func (f *stubFinalizer) Finalize(_ context.Context, deal *models.Deal) (*models.Transaction, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	f.deals = append(f.deals, cloneDeal(deal))
	terms := deal.AgreedTerms
	if terms == nil {
		return nil, errors.New("deal has no agreed terms")
	}
	return &models.Transaction{
		ID:               fmt.Sprintf("tx-%s", deal.ID),
		DealID:           deal.ID,
		Tonnes:           terms.Volume,
		PricePerTonne:    terms.PricePerTonne,
		TotalValue:       terms.TotalValue,
		CommissionRate:   terms.CommissionRate,
		CommissionAmount: terms.CommissionAmount,
		Status:           models.TransactionAgreed,
	}, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.DealEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event models.DealEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func cloneDeal(d *models.Deal) *models.Deal {
	if d == nil {
		return nil
	}
	cp := *d
	if d.HardFloor != nil {
		floor := *d.HardFloor
		cp.HardFloor = &floor
	}
	if d.FairPriceRange != nil {
		fp := *d.FairPriceRange
		cp.FairPriceRange = &fp
	}
	if d.AgreedTerms != nil {
		terms := *d.AgreedTerms
		cp.AgreedTerms = &terms
	}
	cp.Bids = append([]models.Bid(nil), d.Bids...)
	return &cp
}

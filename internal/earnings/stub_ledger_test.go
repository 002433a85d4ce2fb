package earnings

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"towerads/internal/models"
	"towerads/internal/repository"
)

// stubLedger is a test-only in-memory repository.LedgerRepository with real
// ledger-key dedup and balance arithmetic.
type stubLedger struct {
	aggregates []repository.WindowAggregate
	entries    []*models.LedgerEntry
	byKey      map[string]*models.LedgerEntry
	balances   map[string]*models.PublisherBalance
	nextID     uint64
}

func newStubLedger() *stubLedger {
	return &stubLedger{
		byKey:    map[string]*models.LedgerEntry{},
		balances: map[string]*models.PublisherBalance{},
	}
}

func (s *stubLedger) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func (s *stubLedger) AggregateImpressionsTx(ctx context.Context, tx *gorm.DB, start, end time.Time) ([]repository.WindowAggregate, error) {
	return s.aggregates, nil
}

func (s *stubLedger) InsertLedgerEntryTx(ctx context.Context, tx *gorm.DB, item *models.LedgerEntry) (bool, error) {
	if s.byKey[item.LedgerKey] != nil {
		return false, nil
	}
	s.nextID++
	item.ID = s.nextID
	s.entries = append(s.entries, item)
	s.byKey[item.LedgerKey] = item
	return true, nil
}

func (s *stubLedger) EnsureBalanceTx(ctx context.Context, tx *gorm.DB, publisherID string) error {
	if s.balances[publisherID] == nil {
		s.balances[publisherID] = &models.PublisherBalance{
			PublisherID:  publisherID,
			FrozenUSD:    decimal.Zero,
			AvailableUSD: decimal.Zero,
			LockedUSD:    decimal.Zero,
		}
	}
	return nil
}

func (s *stubLedger) AddFrozenTx(ctx context.Context, tx *gorm.DB, publisherID string, amount decimal.Decimal) error {
	b := s.balances[publisherID]
	b.FrozenUSD = b.FrozenUSD.Add(amount)
	return nil
}

func (s *stubLedger) ListDueFrozenTx(ctx context.Context, tx *gorm.DB, now time.Time) ([]models.LedgerEntry, error) {
	var out []models.LedgerEntry
	for _, e := range s.entries {
		if e.EntryType != models.EntryEarnNetFrozen || e.Status != models.LedgerPosted {
			continue
		}
		if e.AvailableAt == nil || e.AvailableAt.After(now) {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

func (s *stubLedger) SettleEntriesTx(ctx context.Context, tx *gorm.DB, ids []uint64) error {
	want := map[uint64]bool{}
	for _, id := range ids {
		want[id] = true
	}
	for _, e := range s.entries {
		if want[e.ID] {
			e.Status = models.LedgerSettled
		}
	}
	return nil
}

func (s *stubLedger) ReleaseFrozenTx(ctx context.Context, tx *gorm.DB, publisherID string, amount decimal.Decimal) error {
	b := s.balances[publisherID]
	b.FrozenUSD = b.FrozenUSD.Sub(amount)
	if b.FrozenUSD.IsNegative() {
		b.FrozenUSD = decimal.Zero
	}
	b.AvailableUSD = b.AvailableUSD.Add(amount)
	return nil
}

func (s *stubLedger) GetBalance(ctx context.Context, publisherID string) (*models.PublisherBalance, error) {
	b := s.balances[publisherID]
	if b == nil {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (s *stubLedger) SumLedger(ctx context.Context, publisherID string, statuses []string) (decimal.Decimal, error) {
	allowed := map[string]bool{}
	for _, st := range statuses {
		allowed[st] = true
	}
	sum := decimal.Zero
	for _, e := range s.entries {
		if e.PublisherID != publisherID || e.EntryType != models.EntryEarnNetFrozen {
			continue
		}
		if len(allowed) > 0 && !allowed[e.Status] {
			continue
		}
		sum = sum.Add(e.AmountUSD)
	}
	return sum, nil
}

func (s *stubLedger) ListLedgerEntries(ctx context.Context, params repository.ListLedgerParams) ([]models.LedgerEntry, error) {
	var out []models.LedgerEntry
	for _, e := range s.entries {
		if params.PublisherID != nil && e.PublisherID != *params.PublisherID {
			continue
		}
		if params.EntryType != nil && e.EntryType != *params.EntryType {
			continue
		}
		if params.Status != nil && e.Status != *params.Status {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

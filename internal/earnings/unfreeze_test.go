package earnings

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"towerads/internal/models"
	"towerads/internal/repository"
)

func TestUnfreezeDue_SettlesAndReleases(t *testing.T) {
	store := newStubLedger()
	store.aggregates = []repository.WindowAggregate{
		{PublisherID: "pub_1", PlacementID: "pl_1", Impressions: 40, GrossUSD: decimal.NewFromInt(4)},
		{PublisherID: "pub_1", PlacementID: "pl_2", Impressions: 20, GrossUSD: decimal.NewFromInt(2)},
	}
	a := &Accruer{Repo: store, Revshare: 0.7, FreezeDays: 5}
	u := &Unfreezer{Repo: store}
	ctx := context.Background()
	day := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

	if _, err := a.Accrue(ctx, day, 0, 0); err != nil {
		t.Fatalf("accrue: %v", err)
	}

	// Before the holdback expires nothing is due.
	early, err := u.UnfreezeDue(ctx, day.Add(48*time.Hour))
	if err != nil {
		t.Fatalf("early unfreeze: %v", err)
	}
	if early.PublishersAffected != 0 {
		t.Fatalf("publishers=%d want=0 before holdback", early.PublishersAffected)
	}

	now := day.Add(6 * 24 * time.Hour)
	res, err := u.UnfreezeDue(ctx, now)
	if err != nil {
		t.Fatalf("unfreeze: %v", err)
	}
	if res.PublishersAffected != 1 || res.EntriesSettled != 2 {
		t.Fatalf("publishers=%d settled=%d want 1/2", res.PublishersAffected, res.EntriesSettled)
	}
	want := decimal.RequireFromString("4.20")
	if !res.TotalReleasedUSD.Equal(want) {
		t.Fatalf("released=%s want=%s", res.TotalReleasedUSD, want)
	}

	b := store.balances["pub_1"]
	if !b.FrozenUSD.IsZero() {
		t.Fatalf("frozen=%s want=0", b.FrozenUSD)
	}
	if !b.AvailableUSD.Equal(want) {
		t.Fatalf("available=%s want=%s", b.AvailableUSD, want)
	}

	var summary *models.LedgerEntry
	for _, e := range store.entries {
		if e.EntryType == models.EntryUnfreezeNet {
			summary = e
		}
	}
	if summary == nil {
		t.Fatalf("missing UNFREEZE_NET summary entry")
	}
	if summary.UnfrozenFrom != 2 || !summary.AmountUSD.Equal(want) {
		t.Fatalf("summary unfrozen_from=%d amount=%s", summary.UnfrozenFrom, summary.AmountUSD)
	}
	if summary.Status != models.LedgerSettled {
		t.Fatalf("summary status=%s want=settled", summary.Status)
	}

	// Rerun is a no-op: everything is settled already.
	again, err := u.UnfreezeDue(ctx, now)
	if err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if again.PublishersAffected != 0 {
		t.Fatalf("publishers=%d want=0 on rerun", again.PublishersAffected)
	}
	if !store.balances["pub_1"].AvailableUSD.Equal(want) {
		t.Fatalf("available=%s changed on rerun", store.balances["pub_1"].AvailableUSD)
	}
}

func TestReconciliation_LedgerMatchesBalance(t *testing.T) {
	store := newStubLedger()
	store.aggregates = []repository.WindowAggregate{
		{PublisherID: "pub_1", PlacementID: "pl_1", Impressions: 30, GrossUSD: decimal.NewFromInt(3)},
		{PublisherID: "pub_2", PlacementID: "pl_9", Impressions: 10, GrossUSD: decimal.NewFromInt(1)},
	}
	a := &Accruer{Repo: store, Revshare: 0.7, FreezeDays: 5}
	u := &Unfreezer{Repo: store}
	ctx := context.Background()
	day := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

	if _, err := a.Accrue(ctx, day, 0, 0); err != nil {
		t.Fatalf("accrue: %v", err)
	}
	if _, err := u.UnfreezeDue(ctx, day.Add(10*24*time.Hour)); err != nil {
		t.Fatalf("unfreeze: %v", err)
	}

	// For every publisher the accrued EARN_NET_FROZEN sum equals
	// frozen + available, regardless of how much has settled. The unfreeze
	// above wrote UNFREEZE_NET summary rows; those restate money already in
	// the EARN rows and must stay out of the sum.
	for _, pub := range []string{"pub_1", "pub_2"} {
		summaries := 0
		for _, e := range store.entries {
			if e.PublisherID == pub && e.EntryType == models.EntryUnfreezeNet {
				summaries++
			}
		}
		if summaries == 0 {
			t.Fatalf("%s: no UNFREEZE_NET rows, sum exclusion not exercised", pub)
		}

		sum, err := store.SumLedger(ctx, pub, nil)
		if err != nil {
			t.Fatalf("sum %s: %v", pub, err)
		}
		b := store.balances[pub]
		total := b.FrozenUSD.Add(b.AvailableUSD)
		if !sum.Equal(total) {
			t.Fatalf("%s: ledger sum=%s balance=%s", pub, sum, total)
		}
	}
}

func TestGetBalance_LifetimeEarnedMatchesLedger(t *testing.T) {
	store := newStubLedger()
	store.aggregates = []repository.WindowAggregate{
		{PublisherID: "pub_1", PlacementID: "pl_1", Impressions: 30, GrossUSD: decimal.NewFromInt(3)},
	}
	a := &Accruer{Repo: store, Revshare: 0.7, FreezeDays: 5}
	u := &Unfreezer{Repo: store}
	ctx := context.Background()
	day := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

	if _, err := a.Accrue(ctx, day, 0, 0); err != nil {
		t.Fatalf("accrue: %v", err)
	}
	if _, err := u.UnfreezeDue(ctx, day.Add(10*24*time.Hour)); err != nil {
		t.Fatalf("unfreeze: %v", err)
	}

	b, err := u.GetBalance(ctx, "pub_1")
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	want := decimal.RequireFromString("2.10")
	if !b.LifetimeEarnedUSD.Equal(want) {
		t.Fatalf("lifetime=%s want=%s", b.LifetimeEarnedUSD, want)
	}
	if !b.LifetimeEarnedUSD.Equal(b.FrozenUSD.Add(b.AvailableUSD)) {
		t.Fatalf("lifetime=%s frozen+available=%s",
			b.LifetimeEarnedUSD, b.FrozenUSD.Add(b.AvailableUSD))
	}
}

func TestGetBalance_ZeroForUnknownPublisher(t *testing.T) {
	u := &Unfreezer{Repo: newStubLedger()}
	b, err := u.GetBalance(context.Background(), "pub_unknown")
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if !b.FrozenUSD.IsZero() || !b.AvailableUSD.IsZero() || !b.LifetimeEarnedUSD.IsZero() {
		t.Fatalf("balance=%+v want zeroes", b)
	}
}

package mediation

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"towerads/internal/models"
	"towerads/internal/repository"
)

// stubMediationRepo is a test-only in-memory implementation of
// repository.MediationRepository with real streak/exhaustion bookkeeping so
// engine scenarios can be driven end to end.
type stubMediationRepo struct {
	networks    []string
	lastNetwork string
	states      map[string]*stubProviderState
	attempts    []models.ImpressionAttempt
	weighted    []repository.WeightedNetwork
}

type stubProviderState struct {
	streak         int
	exhaustedUntil *time.Time
}

func newStubMediationRepo(networks ...string) *stubMediationRepo {
	return &stubMediationRepo{
		networks: networks,
		states:   map[string]*stubProviderState{},
	}
}

func (s *stubMediationRepo) state(network string) *stubProviderState {
	st := s.states[network]
	if st == nil {
		st = &stubProviderState{}
		s.states[network] = st
	}
	return st
}

func (s *stubMediationRepo) ListEligibleNetworks(ctx context.Context, placementID string, now time.Time) ([]string, error) {
	var out []string
	for _, n := range s.networks {
		if st := s.states[n]; st != nil && st.exhaustedUntil != nil && st.exhaustedUntil.After(now) {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (s *stubMediationRepo) GetLastNetwork(ctx context.Context, placementID string) (string, error) {
	return s.lastNetwork, nil
}

func (s *stubMediationRepo) SaveMediationState(ctx context.Context, placementID, network string, at time.Time) error {
	s.lastNetwork = network
	return nil
}

func (s *stubMediationRepo) InsertAttempt(ctx context.Context, item *models.ImpressionAttempt) error {
	s.attempts = append(s.attempts, *item)
	return nil
}

func (s *stubMediationRepo) MarkProviderFilled(ctx context.Context, placementID, network string) error {
	st := s.state(network)
	st.streak = 0
	st.exhaustedUntil = nil
	return nil
}

func (s *stubMediationRepo) MarkProviderNoFill(ctx context.Context, placementID, network, errMsg string, limit int, exhaustedUntil time.Time) error {
	st := s.state(network)
	st.streak++
	if st.streak >= limit {
		t := exhaustedUntil
		st.exhaustedUntil = &t
	}
	return nil
}

func (s *stubMediationRepo) MarkProviderError(ctx context.Context, placementID, network, errMsg string) error {
	return nil
}

func (s *stubMediationRepo) GetProviderState(ctx context.Context, placementID, network string) (*models.ProviderState, error) {
	st := s.states[network]
	if st == nil {
		return nil, nil
	}
	return &models.ProviderState{
		PlacementID:    placementID,
		Network:        network,
		NoFillStreak:   st.streak,
		ExhaustedUntil: st.exhaustedUntil,
	}, nil
}

func (s *stubMediationRepo) ListMediationConfigs(ctx context.Context, placementID string) ([]models.MediationConfig, error) {
	return nil, nil
}

func (s *stubMediationRepo) ListWeightedNetworks(ctx context.Context, placementID string) ([]repository.WeightedNetwork, error) {
	return s.weighted, nil
}

func (s *stubMediationRepo) UpsertMediationConfig(ctx context.Context, item *models.MediationConfig) error {
	return nil
}

func (s *stubMediationRepo) SetMediationStatus(ctx context.Context, placementID, network, status string) (int64, error) {
	return 0, nil
}

func (s *stubMediationRepo) SetMediationTraffic(ctx context.Context, placementID, network string, pct int) (int64, error) {
	return 0, nil
}

func (s *stubMediationRepo) ProviderAvailability(ctx context.Context, since time.Time) ([]repository.ProviderAvailabilityRow, error) {
	return nil, nil
}

// stubImpressionRepo implements repository.ImpressionRepository; only the
// lookup and served-provider paths matter to mediation tests.
type stubImpressionRepo struct {
	imps   map[string]*models.Impression
	served map[string]string
}

func newStubImpressionRepo() *stubImpressionRepo {
	return &stubImpressionRepo{
		imps:   map[string]*models.Impression{},
		served: map[string]string{},
	}
}

func (s *stubImpressionRepo) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func (s *stubImpressionRepo) InsertImpression(ctx context.Context, item *models.Impression) error {
	s.imps[item.ID] = item
	return nil
}

func (s *stubImpressionRepo) GetImpression(ctx context.Context, id string) (*models.Impression, error) {
	return s.imps[id], nil
}

func (s *stubImpressionRepo) CountRecentBySession(ctx context.Context, sessionID string, since time.Time) (int64, error) {
	return 0, nil
}

func (s *stubImpressionRepo) SetServedProvider(ctx context.Context, id, provider string, at time.Time) (int64, error) {
	imp := s.imps[id]
	if imp == nil || imp.Status != "requested" {
		return 0, nil
	}
	s.served[id] = provider
	return 1, nil
}

func (s *stubImpressionRepo) TransitionToImpressionTx(ctx context.Context, tx *gorm.DB, id string, revenue, cost decimal.Decimal) (int64, error) {
	return 0, nil
}

func (s *stubImpressionRepo) MarkCompleted(ctx context.Context, id string, at time.Time) (int64, error) {
	return 0, nil
}

func (s *stubImpressionRepo) MarkClicked(ctx context.Context, id string, at time.Time) (int64, error) {
	return 0, nil
}

func (s *stubImpressionRepo) PlacementStats(ctx context.Context, placementID string) (repository.PlacementStats, error) {
	return repository.PlacementStats{}, nil
}

// Package mediation decides the provider waterfall for each ad request and
// feeds attempt outcomes back into per-provider exhaustion state.
package mediation

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"

	"towerads/internal/adserr"
	"towerads/internal/models"
	"towerads/internal/repository"
)

// ProviderInternal is the internal inventory pool. It is the fallback when
// no external network is eligible and is never subject to exhaustion.
const ProviderInternal = "internal"

const defaultNoFillLimit = 3

type Engine struct {
	Repo        repository.MediationRepository
	Impressions repository.ImpressionRepository
	Logger      *zap.Logger
	NoFillLimit int
}

// Attempt is one provider outcome reported by the SDK after walking the
// waterfall.
type Attempt struct {
	Provider string
	Outcome  string
	Error    string
}

// DecideProviders returns the ordered provider list for one request and
// advances the rotation state. It never fails into an empty list: with no
// eligible external network the internal pool serves alone.
func (e *Engine) DecideProviders(ctx context.Context, placementID string) ([]string, error) {
	now := time.Now().UTC()
	networks, err := e.Repo.ListEligibleNetworks(ctx, placementID, now)
	if err != nil {
		return nil, err
	}
	if len(networks) == 0 {
		return []string{ProviderInternal}, nil
	}

	last, err := e.Repo.GetLastNetwork(ctx, placementID)
	if err != nil {
		return nil, err
	}

	start := 0
	if last != "" {
		for i, n := range networks {
			if n == last {
				start = (i + 1) % len(networks)
				break
			}
		}
	}
	ordered := append(append([]string{}, networks[start:]...), networks[:start]...)

	if err := e.Repo.SaveMediationState(ctx, placementID, ordered[0], now); err != nil {
		return nil, err
	}
	return ordered, nil
}

// PickWeighted rolls a single provider by traffic percentage. Percentage
// budget not covered by configured networks falls through to the internal
// pool.
func (e *Engine) PickWeighted(ctx context.Context, placementID string) (string, error) {
	rows, err := e.Repo.ListWeightedNetworks(ctx, placementID)
	if err != nil {
		return "", err
	}
	return pickWeighted(rows, rand.Float64()*100), nil
}

// pickWeighted walks the cumulative traffic shares for a roll in [0,100).
// Covers the no-config case too: with no rows the roll always falls through.
func pickWeighted(rows []repository.WeightedNetwork, roll float64) string {
	acc := 0.0
	for _, row := range rows {
		acc += float64(row.TrafficPercentage)
		if roll < acc {
			return row.Network
		}
	}
	return ProviderInternal
}

// RecordAttempts appends the attempt log for an impression, updates
// per-provider exhaustion state and optionally stamps the winning provider.
func (e *Engine) RecordAttempts(ctx context.Context, impressionID string, attempts []Attempt, wonProvider string) error {
	impressionID = strings.TrimSpace(impressionID)
	if impressionID == "" {
		return adserr.Validationf("missing impression_id")
	}

	imp, err := e.Impressions.GetImpression(ctx, impressionID)
	if err != nil {
		return err
	}
	if imp == nil {
		return adserr.NotFoundf("impression %s", impressionID)
	}
	if imp.Status != "requested" {
		return adserr.InvalidStatef("impression %s is %s", impressionID, imp.Status)
	}

	wonProvider = strings.TrimSpace(wonProvider)
	if wonProvider != "" {
		found := false
		for _, a := range attempts {
			if strings.TrimSpace(a.Provider) == wonProvider {
				found = true
				break
			}
		}
		if !found {
			// Reject before the write loop so a bad winner leaves no
			// attempt rows or provider-state changes behind.
			return adserr.Validationf("served_provider %s not in attempts", wonProvider)
		}
	}

	limit := e.NoFillLimit
	if limit <= 0 {
		limit = defaultNoFillLimit
	}
	cooldown := nextUTCMidnight(time.Now().UTC())

	for _, a := range attempts {
		provider := strings.TrimSpace(a.Provider)
		if provider == "" {
			continue
		}
		result := NormalizeOutcome(a.Outcome)

		var errMsg *string
		if strings.TrimSpace(a.Error) != "" {
			msg := a.Error
			errMsg = &msg
		}
		if err := e.Repo.InsertAttempt(ctx, &models.ImpressionAttempt{
			ImpressionID: impressionID,
			Provider:     provider,
			Result:       result,
			Error:        errMsg,
		}); err != nil {
			return err
		}

		switch result {
		case models.AttemptFilled:
			err = e.Repo.MarkProviderFilled(ctx, imp.PlacementID, provider)
		case models.AttemptNoFill:
			err = e.Repo.MarkProviderNoFill(ctx, imp.PlacementID, provider, a.Error, limit, cooldown)
		default:
			err = e.Repo.MarkProviderError(ctx, imp.PlacementID, provider, a.Error)
		}
		if err != nil {
			return err
		}
	}

	if wonProvider != "" {
		n, err := e.Impressions.SetServedProvider(ctx, impressionID, wonProvider, time.Now().UTC())
		if err != nil {
			return err
		}
		if n == 0 && e.Logger != nil {
			// Lost the race against a lifecycle transition; the attempt log
			// above still stands.
			e.Logger.Debug("served_provider not applied",
				zap.String("impression_id", impressionID),
				zap.String("provider", wonProvider),
			)
		}
	}
	return nil
}

// NormalizeOutcome collapses common SDK spellings of "no fill" and maps
// anything unknown to error.
func NormalizeOutcome(outcome string) string {
	switch strings.ToLower(strings.TrimSpace(outcome)) {
	case "filled", "fill":
		return models.AttemptFilled
	case "nofill", "no_fill", "no-fill", "no fill":
		return models.AttemptNoFill
	default:
		return models.AttemptError
	}
}

// nextUTCMidnight is the daily exhaustion cooldown deadline: providers are
// benched until the start of the next calendar day, not backed off
// exponentially.
func nextUTCMidnight(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}

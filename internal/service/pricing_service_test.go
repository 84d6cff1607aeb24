//go:build unit

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubPricingSource struct {
	models []ModelPricing
	err    error
	calls  int
}

func (s *stubPricingSource) FetchPricing(ctx context.Context) ([]ModelPricing, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.models, nil
}

func newTestPricingService(t *testing.T, source PricingSource) *PricingService {
	t.Helper()
	svc, err := NewPricingService(source, time.Hour, 128)
	require.NoError(t, err)
	t.Cleanup(svc.Stop)
	return svc
}

func TestPricingServiceRefresh(t *testing.T) {
	t.Parallel()

	source := &stubPricingSource{models: []ModelPricing{
		pricedModel("anthropic/claude-sonnet-4", "Claude Sonnet 4", "0.000003", "0.000015", "0"),
	}}
	svc := newTestPricingService(t, source)

	require.NoError(t, svc.Refresh(context.Background()))
	require.Positive(t, svc.ModelCount())
	require.False(t, svc.RefreshedAt().IsZero())

	pricing, matched := svc.Lookup("anthropic/claude-sonnet-4")
	require.True(t, matched)
	require.Equal(t, "Claude Sonnet 4", pricing.Name)
}

func TestPricingServiceRefreshRejectsEmptyCatalog(t *testing.T) {
	t.Parallel()

	svc := newTestPricingService(t, &stubPricingSource{})
	err := svc.Refresh(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "no models")
}

func TestPricingServiceRefreshPropagatesFetchError(t *testing.T) {
	t.Parallel()

	svc := newTestPricingService(t, &stubPricingSource{err: errors.New("upstream down")})
	err := svc.Refresh(context.Background())
	require.ErrorContains(t, err, "upstream down")
}

func TestPricingServiceEnsureSkipsFreshIndex(t *testing.T) {
	t.Parallel()

	source := &stubPricingSource{models: []ModelPricing{
		pricedModel("openai/gpt-4o-mini", "GPT-4o Mini", "0.00000015", "0.0000006", "0"),
	}}
	svc := newTestPricingService(t, source)

	require.NoError(t, svc.Ensure(context.Background()))
	require.NoError(t, svc.Ensure(context.Background()))
	require.Equal(t, 1, source.calls)
}

func TestPricingServiceLookupMissIsStable(t *testing.T) {
	t.Parallel()

	source := &stubPricingSource{models: []ModelPricing{
		pricedModel("openai/gpt-4o-mini", "GPT-4o Mini", "0.00000015", "0.0000006", "0"),
	}}
	svc := newTestPricingService(t, source)
	require.NoError(t, svc.Refresh(context.Background()))

	_, matched := svc.Lookup("unknown/model")
	require.False(t, matched)
	_, matched = svc.Lookup("unknown/model")
	require.False(t, matched)
}

package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
)

// PricingService keeps an in-memory pricing index refreshed from the live
// catalog and answers slug lookups through a small ristretto cache, since
// fuzzy matching the same ranked slugs every run would be wasted work.
type PricingService struct {
	source          PricingSource
	refreshInterval time.Duration

	mu          sync.RWMutex
	index       *PricingIndex
	refreshedAt time.Time

	lookupCache *ristretto.Cache

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
}

type cachedLookup struct {
	pricing ModelPricing
	matched bool
}

func NewPricingService(source PricingSource, refreshInterval time.Duration, cacheSize int64) (*PricingService, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cacheSize * 10,
		MaxCost:     cacheSize,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("pricing lookup cache: %w", err)
	}
	return &PricingService{
		source:          source,
		refreshInterval: refreshInterval,
		index:           NewPricingIndex(nil),
		lookupCache:     cache,
		stopCh:          make(chan struct{}),
	}, nil
}

// Start launches the periodic refresh loop.
func (s *PricingService) Start() {
	s.startOnce.Do(func() {
		go s.refreshLoop()
		log.Printf("[Pricing] refresh loop started, interval=%s", s.refreshInterval)
	})
}

func (s *PricingService) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.lookupCache.Close()
		log.Printf("[Pricing] stopped")
	})
}

func (s *PricingService) refreshLoop() {
	ticker := time.NewTicker(s.refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			if err := s.Refresh(ctx); err != nil {
				log.Printf("[Pricing] scheduled refresh failed: %v", err)
			}
			cancel()
		case <-s.stopCh:
			return
		}
	}
}

// Refresh replaces the index with a fresh catalog fetch and drops all cached
// lookups.
func (s *PricingService) Refresh(ctx context.Context) error {
	models, err := s.source.FetchPricing(ctx)
	if err != nil {
		return fmt.Errorf("fetch pricing: %w", err)
	}
	if len(models) == 0 {
		return fmt.Errorf("fetch pricing: catalog returned no models")
	}

	index := NewPricingIndex(models)

	s.mu.Lock()
	s.index = index
	s.refreshedAt = time.Now()
	s.mu.Unlock()

	s.lookupCache.Clear()
	log.Printf("[Pricing] refreshed catalog, models=%d", len(models))
	return nil
}

// Ensure refreshes only when the index is empty or older than the refresh
// interval. Collection runs call this so a stale catalog never prices a run.
func (s *PricingService) Ensure(ctx context.Context) error {
	s.mu.RLock()
	fresh := s.index.Len() > 0 && time.Since(s.refreshedAt) < s.refreshInterval
	s.mu.RUnlock()
	if fresh {
		return nil
	}
	return s.Refresh(ctx)
}

// Lookup resolves a ranked slug to pricing, caching hits and misses alike.
func (s *PricingService) Lookup(slug string) (ModelPricing, bool) {
	if v, ok := s.lookupCache.Get(slug); ok {
		if hit, ok := v.(cachedLookup); ok {
			return hit.pricing, hit.matched
		}
	}

	s.mu.RLock()
	pricing, matched := s.index.Lookup(slug)
	s.mu.RUnlock()

	s.lookupCache.Set(slug, cachedLookup{pricing: pricing, matched: matched}, 1)
	return pricing, matched
}

// DisplayName resolves a slug to its catalog display name.
func (s *PricingService) DisplayName(slug string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DisplayName(slug)
}

func (s *PricingService) ModelCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Len()
}

func (s *PricingService) RefreshedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshedAt
}

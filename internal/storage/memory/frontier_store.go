package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/JakeFAU/crawlhub/internal/frontier"
)

// FrontierStore is an in-memory frontier.Store. Each call applies all of its
// URLs under one lock, mirroring the single-statement upsert of the Postgres
// store.
type FrontierStore struct {
	mu   sync.RWMutex
	rows map[string]frontier.URLRecord
}

// NewFrontierStore constructs an empty FrontierStore.
func NewFrontierStore() *FrontierStore {
	return &FrontierStore{rows: make(map[string]frontier.URLRecord)}
}

// RecordDiscoveries merges NEW claims by owner for urls.
func (s *FrontierStore) RecordDiscoveries(_ context.Context, owner string, urls []string, at time.Time) error {
	return s.upsert(owner, urls, at, frontier.StateNew, 1)
}

// RecordAssigned advances urls to ASSIGNED.
func (s *FrontierStore) RecordAssigned(_ context.Context, owner string, urls []string, at time.Time) error {
	return s.upsert(owner, urls, at, frontier.StateAssigned, 0)
}

// RecordCrawled marks urls as CRAWLED.
func (s *FrontierStore) RecordCrawled(_ context.Context, owner string, urls []string, at time.Time) error {
	return s.upsert(owner, urls, at, frontier.StateCrawled, 0)
}

func (s *FrontierStore) upsert(owner string, urls []string, at time.Time, proposed frontier.State, scoreDelta int64) error {
	normalized, err := frontier.NormalizeURLs(urls)
	if err != nil {
		return fmt.Errorf("record %s: %w", proposed, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range normalized {
		row, exists := s.rows[u]
		if !exists {
			s.rows[u] = frontier.URLRecord{
				URL:        u,
				State:      proposed,
				UserIDHash: owner,
				Score:      scoreDelta,
				Updated:    at,
			}
			continue
		}
		row.State = frontier.NextState(row.State, proposed, row.UserIDHash != owner)
		row.Score += scoreDelta
		row.UserIDHash = owner
		row.Updated = at
		s.rows[u] = row
	}
	return nil
}

// Lookup returns the rows that exist for urls, ordered by URL.
func (s *FrontierStore) Lookup(_ context.Context, urls []string) ([]frontier.URLRecord, error) {
	normalized, err := frontier.NormalizeURLs(urls)
	if err != nil {
		return nil, fmt.Errorf("lookup: %w", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]frontier.URLRecord, 0, len(normalized))
	for _, u := range normalized {
		if row, ok := s.rows[u]; ok {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out, nil
}

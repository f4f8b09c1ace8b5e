package frontier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JakeFAU/crawlhub/internal/batch"
)

// URLRecord is one row of the frontier table.
type URLRecord struct {
	URL        string    `json:"url"`
	State      State     `json:"state"`
	UserIDHash string    `json:"user_id_hash"`
	Score      int64     `json:"score"`
	Updated    time.Time `json:"updated"`
}

// Store is the only mutator of frontier rows. Every write method is a single
// atomic set-based upsert; a call either applies to every URL or to none.
type Store interface {
	// RecordDiscoveries merges NEW claims by owner for urls.
	RecordDiscoveries(ctx context.Context, owner string, urls []string, at time.Time) error
	// RecordAssigned advances urls to ASSIGNED unless they are further along.
	RecordAssigned(ctx context.Context, owner string, urls []string, at time.Time) error
	// RecordCrawled marks urls as CRAWLED.
	RecordCrawled(ctx context.Context, owner string, urls []string, at time.Time) error
	// Lookup returns the rows that exist for urls, ordered by URL. Input is
	// normalized with NormalizeURLs, as on write.
	Lookup(ctx context.Context, urls []string) ([]URLRecord, error)
}

// NormalizeURLs trims and de-duplicates urls, keeping first-seen order. An
// empty entry rejects the whole call with batch.ErrInvalidURL.
func NormalizeURLs(urls []string) ([]string, error) {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for i, raw := range urls {
		u := strings.TrimSpace(raw)
		if u == "" {
			return nil, fmt.Errorf("%w: empty url at index %d", batch.ErrInvalidURL, i)
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out, nil
}

// Package catalog answers "which batches exist for day D and owner O" from
// object-storage prefix listings alone.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/JakeFAU/crawlhub/internal/archive"
	"github.com/JakeFAU/crawlhub/internal/batch"
	"github.com/JakeFAU/crawlhub/internal/hash/sha3"
)

// Catalog lists and fetches archived batches. It keeps no cache; every call
// reflects the store as of the listing.
type Catalog struct {
	store         batch.ObjectStore
	schemaVersion string
	shard         string
}

// New constructs a Catalog reading the layout written by an archive.Archiver
// with the same schema version and shard.
func New(store batch.ObjectStore, schemaVersion, shard string) (*Catalog, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if schemaVersion == "" {
		schemaVersion = archive.DefaultSchemaVersion
	}
	if shard == "" {
		shard = archive.DefaultShard
	}
	return &Catalog{store: store, schemaVersion: schemaVersion, shard: shard}, nil
}

// ListBatches returns every batch archived on date, grouped by owner prefix.
func (c *Catalog) ListBatches(ctx context.Context, date string) ([]batch.Group, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}
	keys, err := c.store.List(ctx, archive.DatePrefix(c.schemaVersion, date, c.shard))
	if err != nil {
		return nil, fmt.Errorf("list batches for %s: %w", date, err)
	}
	return groupKeys(keys), nil
}

// ListBatchesForOwner returns the batches one owner archived on date.
func (c *Catalog) ListBatchesForOwner(ctx context.Context, date, ownerToken string) ([]batch.Group, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}
	if err := validateOwner(ownerToken); err != nil {
		return nil, err
	}
	keys, err := c.store.List(ctx, archive.OwnerPrefix(c.schemaVersion, date, c.shard, ownerToken))
	if err != nil {
		return nil, fmt.Errorf("list batches for %s/%s: %w", date, ownerToken, err)
	}
	return groupKeys(keys), nil
}

// ListOwners returns the owner tokens with at least one batch on date.
func (c *Catalog) ListOwners(ctx context.Context, date string) ([]string, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}
	datePrefix := archive.DatePrefix(c.schemaVersion, date, c.shard)
	prefixes, err := c.store.ListPrefixes(ctx, datePrefix, "/")
	if err != nil {
		return nil, fmt.Errorf("list owners for %s: %w", date, err)
	}
	owners := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		owner := strings.TrimSuffix(strings.TrimPrefix(p, datePrefix), "/")
		if owner != "" {
			owners = append(owners, owner)
		}
	}
	return owners, nil
}

// Fetch reads and decompresses one archived batch.
func (c *Catalog) Fetch(ctx context.Context, key string) (batch.ArchivedBatch, error) {
	if !strings.HasPrefix(key, strings.Trim(c.schemaVersion, "/")+"/") ||
		!strings.HasSuffix(key, archive.FileExtension) ||
		strings.Contains(key, "..") {
		return batch.ArchivedBatch{}, fmt.Errorf("%w: key %q", batch.ErrBatchNotFound, key)
	}
	data, err := c.store.Get(ctx, key)
	if err != nil {
		return batch.ArchivedBatch{}, fmt.Errorf("fetch %s: %w", key, err)
	}
	doc, err := archive.Decode(data)
	if err != nil {
		return batch.ArchivedBatch{}, fmt.Errorf("decode %s: %w", key, err)
	}
	return doc, nil
}

func validateDate(date string) error {
	if _, err := time.Parse(archive.DateLayout, date); err != nil {
		return fmt.Errorf("%w: %q, want YYYY-MM-DD", batch.ErrInvalidDateFormat, date)
	}
	return nil
}

func validateOwner(token string) error {
	if !sha3.ValidToken(token) {
		return fmt.Errorf("%w: length %d, want %d lowercase hex characters",
			batch.ErrInvalidOwnerToken, len(token), sha3.TokenLength)
	}
	return nil
}

func groupKeys(keys []string) []batch.Group {
	byPrefix := make(map[string][]string)
	for _, key := range keys {
		prefix, name := archive.SplitKey(key)
		byPrefix[prefix] = append(byPrefix[prefix], name)
	}
	groups := make([]batch.Group, 0, len(byPrefix))
	for prefix, names := range byPrefix {
		sort.Strings(names)
		groups = append(groups, batch.Group{Prefix: prefix, Filenames: names})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Prefix < groups[j].Prefix })
	return groups
}

package archive

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/crawlhub/internal/batch"
	"github.com/JakeFAU/crawlhub/internal/metrics"
)

// Defaults matching the layout of existing archives.
const (
	DefaultSchemaVersion = "1/v1"
	DefaultShard         = "1"
	contentType          = "application/json"
	contentEncoding      = "gzip"
)

// Config controls key layout and public URLs.
type Config struct {
	SchemaVersion string
	Shard         string
	// PublicURLPrefix, when set, is joined with the key to form the
	// download URL returned to submitters.
	PublicURLPrefix string
}

// Archiver is the only writer of archived batches.
type Archiver struct {
	store    batch.ObjectStore
	suffixes batch.SuffixGenerator
	cfg      Config
	logger   *zap.Logger
}

// New constructs an Archiver.
func New(store batch.ObjectStore, suffixes batch.SuffixGenerator, cfg Config, logger *zap.Logger) (*Archiver, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if suffixes == nil {
		return nil, fmt.Errorf("suffix generator is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SchemaVersion == "" {
		cfg.SchemaVersion = DefaultSchemaVersion
	}
	if cfg.Shard == "" {
		cfg.Shard = DefaultShard
	}
	return &Archiver{
		store:    store,
		suffixes: suffixes,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// Archive encodes the batch and performs exactly one non-overwriting put. A
// failed put is reported as batch.ErrArchiveWriteFailed and is not retried.
func (a *Archiver) Archive(
	ctx context.Context,
	ownerToken string,
	submittedAt time.Time,
	items []batch.Item,
) (string, error) {
	suffix, err := a.suffixes.NewSuffix()
	if err != nil {
		return "", fmt.Errorf("%w: generate suffix: %w", batch.ErrArchiveWriteFailed, err)
	}
	at := submittedAt.UTC()
	key := BuildStorageKey(a.cfg.SchemaVersion, at, a.cfg.Shard, ownerToken, SecondsOfDay(at), suffix)

	data, err := Encode(batch.ArchivedBatch{
		UserIDHash: ownerToken,
		Timestamp:  at.Unix(),
		Items:      items,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", batch.ErrArchiveWriteFailed, err)
	}

	attrs := batch.ObjectAttrs{ContentType: contentType, ContentEncoding: contentEncoding}
	if err := a.store.Put(ctx, key, data, attrs); err != nil {
		return "", fmt.Errorf("%w: put %s: %w", batch.ErrArchiveWriteFailed, key, err)
	}
	metrics.ObserveArchive(len(data), len(items))
	a.logger.Debug("batch archived", zap.String("key", key), zap.Int("bytes", len(data)), zap.Int("items", len(items)))
	return key, nil
}

// Config returns the layout the archiver writes with.
func (a *Archiver) Config() Config {
	return a.cfg
}

// PublicURL returns the download URL for key, or "" if none is configured.
func (a *Archiver) PublicURL(key string) string {
	if a.cfg.PublicURLPrefix == "" {
		return ""
	}
	return strings.TrimRight(a.cfg.PublicURLPrefix, "/") + "/" + key
}

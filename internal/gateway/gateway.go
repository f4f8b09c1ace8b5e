// Package gateway turns one inbound submission into an archived batch and a
// set of frontier updates.
//
// A submission is validated, its owner pseudonymized, and the batch archived
// with a single write. Only after the archive succeeds are the crawled URLs
// and their outbound links merged into the frontier. A frontier failure
// leaves the batch archived and is reported as batch.ErrFrontierWriteFailed.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/crawlhub/internal/batch"
	"github.com/JakeFAU/crawlhub/internal/frontier"
	"github.com/JakeFAU/crawlhub/internal/metrics"
)

// Defaults for Config.
const (
	DefaultMaxBatchSize   = 100
	DefaultUserIDLength   = 36
	DefaultPublishTimeout = 10 * time.Second
)

// Config bounds accepted submissions.
type Config struct {
	MaxBatchSize int
	UserIDLength int
	// Topic receives a batch.ArchivedEvent per accepted batch. Empty disables
	// publishing.
	Topic string
	// PublishTimeout bounds one background publish.
	PublishTimeout time.Duration
}

// Archiver writes one batch and returns its storage key.
type Archiver interface {
	Archive(ctx context.Context, ownerToken string, submittedAt time.Time, items []batch.Item) (string, error)
	PublicURL(key string) string
}

// Limiter throttles submissions per owner token.
type Limiter interface {
	Allow(owner string) bool
}

// Dependencies wires the gateway's collaborators. Publisher and Limiter may
// be nil.
type Dependencies struct {
	Pseudonymizer batch.Pseudonymizer
	Archiver      Archiver
	Frontier      frontier.Store
	Publisher     batch.Publisher
	Limiter       Limiter
	Clock         batch.Clock
	Logger        *zap.Logger
}

// Gateway orchestrates submissions.
type Gateway struct {
	cfg       Config
	pseudo    batch.Pseudonymizer
	archiver  Archiver
	frontier  frontier.Store
	publisher batch.Publisher
	limiter   Limiter
	clock     batch.Clock
	logger    *zap.Logger

	last    atomic.Pointer[batch.Receipt]
	pending sync.WaitGroup
}

// New constructs a Gateway.
func New(cfg Config, deps Dependencies) (*Gateway, error) {
	if deps.Pseudonymizer == nil {
		return nil, errors.New("pseudonymizer is required")
	}
	if deps.Archiver == nil {
		return nil, errors.New("archiver is required")
	}
	if deps.Frontier == nil {
		return nil, errors.New("frontier store is required")
	}
	if deps.Clock == nil {
		return nil, errors.New("clock is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = DefaultMaxBatchSize
	}
	if cfg.UserIDLength <= 0 {
		cfg.UserIDLength = DefaultUserIDLength
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = DefaultPublishTimeout
	}
	return &Gateway{
		cfg:       cfg,
		pseudo:    deps.Pseudonymizer,
		archiver:  deps.Archiver,
		frontier:  deps.Frontier,
		publisher: deps.Publisher,
		limiter:   deps.Limiter,
		clock:     deps.Clock,
		logger:    deps.Logger.Named("gateway"),
	}, nil
}

// Submit validates, archives, and records one submission.
func (g *Gateway) Submit(ctx context.Context, sub batch.Submission) (batch.Receipt, error) {
	if err := g.validate(sub); err != nil {
		metrics.ObserveSubmission(metrics.OutcomeRejected)
		return batch.Receipt{}, err
	}
	owner, err := g.pseudo.Pseudonymize(sub.UserID)
	if err != nil {
		metrics.ObserveSubmission(metrics.OutcomeRejected)
		return batch.Receipt{}, fmt.Errorf("%w: %w", batch.ErrInvalidSubmission, err)
	}
	if g.limiter != nil && !g.limiter.Allow(owner) {
		metrics.ObserveSubmission(metrics.OutcomeRateLimited)
		return batch.Receipt{}, fmt.Errorf("%w: owner %s", batch.ErrRateLimited, owner)
	}

	now := g.clock.Now().UTC()
	key, err := g.archiver.Archive(ctx, owner, now, sub.Items)
	if err != nil {
		metrics.ObserveSubmission(metrics.OutcomeArchiveFailed)
		g.logger.Error("archive failed", zap.String("owner", owner), zap.Error(err))
		return batch.Receipt{}, err
	}
	log := g.logger.With(zap.String("key", key))

	if err := g.recordFrontier(ctx, owner, sub.Items, now); err != nil {
		metrics.ObserveSubmission(metrics.OutcomeFrontierFailed)
		log.Error("frontier update failed; batch remains archived", zap.Error(err))
		return batch.Receipt{}, fmt.Errorf("%w: batch %s archived: %w", batch.ErrFrontierWriteFailed, key, err)
	}

	receipt := batch.Receipt{
		Key:        key,
		URL:        g.archiver.PublicURL(key),
		UserIDHash: owner,
		AcceptedAt: now,
		Items:      len(sub.Items),
	}
	g.last.Store(&receipt)
	metrics.ObserveSubmission(metrics.OutcomeAccepted)
	g.publish(ctx, receipt)
	log.Info("batch accepted", zap.String("owner", owner), zap.Int("items", receipt.Items))
	return receipt, nil
}

// Wait blocks until every background publish has finished.
func (g *Gateway) Wait() {
	g.pending.Wait()
}

// LastBatch returns the most recently accepted batch, or nil. The value is
// diagnostic only and does not survive restarts.
func (g *Gateway) LastBatch() *batch.Receipt {
	return g.last.Load()
}

func (g *Gateway) validate(sub batch.Submission) error {
	if n := len(sub.Items); n > g.cfg.MaxBatchSize {
		return fmt.Errorf("%w: items has %d entries, max %d", batch.ErrInvalidSubmission, n, g.cfg.MaxBatchSize)
	}
	if n := len(sub.UserID); n != g.cfg.UserIDLength {
		return fmt.Errorf("%w: user_id length %d, want %d", batch.ErrInvalidSubmission, n, g.cfg.UserIDLength)
	}
	// URLs are checked here so the frontier cannot reject a batch that has
	// already been archived.
	for i, item := range sub.Items {
		if _, err := frontier.NormalizeURLs([]string{item.URL}); err != nil {
			return fmt.Errorf("%w: items[%d].url: %w", batch.ErrInvalidSubmission, i, err)
		}
		if _, err := frontier.NormalizeURLs(item.Links); err != nil {
			return fmt.Errorf("%w: items[%d].links: %w", batch.ErrInvalidSubmission, i, err)
		}
	}
	return nil
}

func (g *Gateway) recordFrontier(ctx context.Context, owner string, items []batch.Item, at time.Time) error {
	if crawled := batch.CrawledURLs(items); len(crawled) > 0 {
		if err := g.frontier.RecordCrawled(ctx, owner, crawled, at); err != nil {
			return fmt.Errorf("record crawled: %w", err)
		}
		metrics.ObserveFrontier("crawled", len(crawled))
	}
	if links := batch.DiscoveredURLs(items); len(links) > 0 {
		if err := g.frontier.RecordDiscoveries(ctx, owner, links, at); err != nil {
			return fmt.Errorf("record discoveries: %w", err)
		}
		metrics.ObserveFrontier("discovered", len(links))
	}
	return nil
}

// publish sends the archived event off the request path. The request context
// only contributes its values, so a finished request does not cancel it.
func (g *Gateway) publish(ctx context.Context, receipt batch.Receipt) {
	if g.publisher == nil || g.cfg.Topic == "" {
		return
	}
	event := batch.ArchivedEvent{
		Key:        receipt.Key,
		UserIDHash: receipt.UserIDHash,
		Timestamp:  receipt.AcceptedAt.Unix(),
		Items:      receipt.Items,
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.cfg.PublishTimeout)
	g.pending.Add(1)
	go func() {
		defer g.pending.Done()
		defer cancel()
		if _, err := g.publisher.Publish(ctx, g.cfg.Topic, event); err != nil {
			g.logger.Warn("publish archived event failed", zap.String("key", receipt.Key), zap.Error(err))
		}
	}()
}

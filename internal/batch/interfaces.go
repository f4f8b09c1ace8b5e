package batch

import (
	"context"
	"time"
)

// ObjectStore is the object-storage surface the archiver and catalog need.
type ObjectStore interface {
	// Put writes data at key and fails with ErrObjectExists if the key is taken.
	Put(ctx context.Context, key string, data []byte, attrs ObjectAttrs) error
	// Get returns the stored bytes or ErrBatchNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// List returns every key under prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
	// ListPrefixes returns the distinct sub-prefixes directly below prefix,
	// each ending in delimiter, in lexical order.
	ListPrefixes(ctx context.Context, prefix, delimiter string) ([]string, error)
}

// ObjectAttrs carries content metadata for a put.
type ObjectAttrs struct {
	ContentType     string
	ContentEncoding string
}

// Pseudonymizer maps a raw participant identifier to its owner token.
type Pseudonymizer interface {
	Pseudonymize(rawID string) (string, error)
}

// SuffixGenerator produces the short random token that disambiguates keys.
type SuffixGenerator interface {
	NewSuffix() (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// Publisher pushes archive notifications to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

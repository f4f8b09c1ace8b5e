package archive

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/crawlhub/internal/batch"
	"github.com/JakeFAU/crawlhub/internal/storage/memory"
)

type fixedSuffix struct {
	suffix string
	err    error
}

func (f fixedSuffix) NewSuffix() (string, error) {
	return f.suffix, f.err
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Put(ctx context.Context, key string, data []byte, attrs batch.ObjectAttrs) error {
	args := m.Called(ctx, key, data, attrs)
	return args.Error(0) //nolint:wrapcheck
}

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	return nil, args.Error(1) //nolint:wrapcheck
}

func (m *mockStore) List(ctx context.Context, prefix string) ([]string, error) {
	args := m.Called(ctx, prefix)
	return nil, args.Error(1) //nolint:wrapcheck
}

func (m *mockStore) ListPrefixes(ctx context.Context, prefix, delimiter string) ([]string, error) {
	args := m.Called(ctx, prefix, delimiter)
	return nil, args.Error(1) //nolint:wrapcheck
}

func TestArchiveWritesCompressedDocument(t *testing.T) {
	t.Parallel()

	store := memory.NewBlobStore()
	archiver, err := New(store, fixedSuffix{suffix: "a1b2c3d4"}, Config{}, nil)
	require.NoError(t, err)

	at := time.Date(2024, 3, 1, 0, 0, 42, 0, time.UTC)
	items := []batch.Item{{
		Timestamp: at.Unix(),
		URL:       "https://example.com",
		Title:     "Example",
		Extract:   "An example page",
		Links:     []string{"https://example.com/about"},
	}}

	key, err := archiver.Archive(context.Background(), ownerToken, at, items)
	require.NoError(t, err)
	require.Equal(t, "1/v1/2024-03-01/1/"+ownerToken+"/00042__a1b2c3d4.json.gz", key)

	raw, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	require.Equal(t, []byte{0x1f, 0x8b}, raw[:2], "expected gzip magic bytes")

	doc, err := Decode(raw)
	require.NoError(t, err)
	require.Equal(t, batch.ArchivedBatch{UserIDHash: ownerToken, Timestamp: at.Unix(), Items: items}, doc)

	attrs, ok := store.Attrs(key)
	require.True(t, ok)
	require.Equal(t, "gzip", attrs.ContentEncoding)
	require.Equal(t, "application/json", attrs.ContentType)
}

func TestArchiveThenListIncludesKeyOnce(t *testing.T) {
	t.Parallel()

	store := memory.NewBlobStore()
	archiver, err := New(store, fixedSuffix{suffix: "deadbeef"}, Config{}, nil)
	require.NoError(t, err)

	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	key, err := archiver.Archive(context.Background(), ownerToken, at, nil)
	require.NoError(t, err)

	keys, err := store.List(context.Background(), OwnerPrefix("1/v1", "2024-03-01", "1", ownerToken))
	require.NoError(t, err)
	require.Equal(t, []string{key}, keys)
}

func TestArchivePutFailure(t *testing.T) {
	t.Parallel()

	store := &mockStore{}
	store.On("Put", mock.Anything, mock.AnythingOfType("string"), mock.Anything, mock.Anything).
		Return(errors.New("bucket unavailable")).Once()

	archiver, err := New(store, fixedSuffix{suffix: "a1b2c3d4"}, Config{}, nil)
	require.NoError(t, err)

	_, err = archiver.Archive(context.Background(), ownerToken, time.Now(), nil)
	require.ErrorIs(t, err, batch.ErrArchiveWriteFailed)
	require.Contains(t, err.Error(), "bucket unavailable")
	store.AssertNumberOfCalls(t, "Put", 1)
}

func TestArchiveCollisionIsNotOverwritten(t *testing.T) {
	t.Parallel()

	store := memory.NewBlobStore()
	archiver, err := New(store, fixedSuffix{suffix: "samesame"}, Config{}, nil)
	require.NoError(t, err)

	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	_, err = archiver.Archive(context.Background(), ownerToken, at, nil)
	require.NoError(t, err)
	_, err = archiver.Archive(context.Background(), ownerToken, at, nil)
	require.ErrorIs(t, err, batch.ErrArchiveWriteFailed)
	require.ErrorIs(t, err, batch.ErrObjectExists)
}

func TestArchiveSuffixFailure(t *testing.T) {
	t.Parallel()

	store := &mockStore{}
	archiver, err := New(store, fixedSuffix{err: errors.New("entropy exhausted")}, Config{}, nil)
	require.NoError(t, err)

	_, err = archiver.Archive(context.Background(), ownerToken, time.Now(), nil)
	require.ErrorIs(t, err, batch.ErrArchiveWriteFailed)
	store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPublicURL(t *testing.T) {
	t.Parallel()

	archiver, err := New(memory.NewBlobStore(), fixedSuffix{}, Config{PublicURLPrefix: "https://cdn.example/crawl/"}, nil)
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example/crawl/1/v1/x.json.gz", archiver.PublicURL("1/v1/x.json.gz"))

	bare, err := New(memory.NewBlobStore(), fixedSuffix{}, Config{}, nil)
	require.NoError(t, err)
	require.Empty(t, bare.PublicURL("1/v1/x.json.gz"))
}

func TestNewRequiresCollaborators(t *testing.T) {
	t.Parallel()

	_, err := New(nil, fixedSuffix{}, Config{}, nil)
	require.Error(t, err)
	_, err = New(memory.NewBlobStore(), nil, Config{}, nil)
	require.Error(t, err)
}

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/crawlhub/internal/batch"
	"github.com/JakeFAU/crawlhub/internal/frontier"
)

func newMockStore(t *testing.T) (*FrontierStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := NewFrontierStoreWithPool(mock, "urls")
	require.NoError(t, err)
	return store, mock
}

func TestRecordDiscoveriesIssuesSingleUpsert(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	at := time.Unix(1700000000, 0).UTC()

	mock.ExpectExec(`(?s)INSERT INTO urls.*FROM unnest\(\$1::text\[\]\) AS u\s+ON CONFLICT \(url\) DO UPDATE`).
		WithArgs([]string{"https://a.example", "https://b.example"}, int(frontier.StateNew), "owner", int64(1), at).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))

	err := store.RecordDiscoveries(
		context.Background(),
		"owner",
		[]string{"https://a.example", "https://b.example", "https://a.example"},
		at,
	)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordCrawledProposesCrawledWithoutScore(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	at := time.Unix(1700000000, 0).UTC()

	mock.ExpectExec("INSERT INTO urls").
		WithArgs([]string{"https://a.example"}, int(frontier.StateCrawled), "owner", int64(0), at).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.RecordCrawled(context.Background(), "owner", []string{"https://a.example"}, at))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordAssignedProposesAssigned(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	at := time.Unix(1700000000, 0).UTC()

	mock.ExpectExec("INSERT INTO urls").
		WithArgs([]string{"https://a.example"}, int(frontier.StateAssigned), "owner", int64(0), at).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.RecordAssigned(context.Background(), "owner", []string{"https://a.example"}, at))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertQueryMirrorsNextState(t *testing.T) {
	t.Parallel()

	store, _ := newMockStore(t)
	query := store.upsertQuery()
	require.Contains(t, query, "WHEN urls.status = 0 AND excluded.status = 0")
	require.Contains(t, query, "urls.user_id_hash <> excluded.user_id_hash THEN 1")
	require.Contains(t, query, "ELSE GREATEST(urls.status, excluded.status)")
	require.Contains(t, query, "score = urls.score + excluded.score")
	require.Contains(t, query, "$5::timestamp\n")
}

func TestUpsertSortsURLsForEveryWriter(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	at := time.Unix(1700000000, 0).UTC()
	sorted := []string{"https://a.example", "https://b.example", "https://c.example"}

	mock.ExpectExec("INSERT INTO urls").
		WithArgs(sorted, int(frontier.StateNew), "owner-1", int64(1), at).
		WillReturnResult(pgxmock.NewResult("INSERT", 3))
	mock.ExpectExec("INSERT INTO urls").
		WithArgs(sorted, int(frontier.StateNew), "owner-2", int64(1), at).
		WillReturnResult(pgxmock.NewResult("INSERT", 3))

	ctx := context.Background()
	require.NoError(t, store.RecordDiscoveries(ctx, "owner-1",
		[]string{"https://a.example", "https://c.example", "https://b.example"}, at))
	require.NoError(t, store.RecordDiscoveries(ctx, "owner-2",
		[]string{"https://c.example", "https://b.example", " https://a.example"}, at))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordDiscoveriesRejectsEmptyURLBeforeQuery(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	err := store.RecordDiscoveries(context.Background(), "owner", []string{"https://a.example", ""}, time.Now())
	require.ErrorIs(t, err, batch.ErrInvalidURL)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordDiscoveriesEmptyInputIsNoop(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	require.NoError(t, store.RecordDiscoveries(context.Background(), "owner", nil, time.Now()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordDiscoveriesPropagatesExecError(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO urls").WillReturnError(errors.New("connection refused"))

	err := store.RecordDiscoveries(context.Background(), "owner", []string{"https://a.example"}, time.Now())
	require.ErrorContains(t, err, "connection refused")
}

func TestLookupScansRows(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	at := time.Unix(1700000000, 0).UTC()

	rows := mock.NewRows([]string{"url", "status", "user_id_hash", "score", "updated"}).
		AddRow("https://a.example", int32(1), "owner-b", int64(3), at).
		AddRow("https://b.example", int32(3), "owner-a", int64(1), at)
	mock.ExpectQuery("SELECT url, status, user_id_hash, score, updated").
		WithArgs([]string{"https://a.example", "https://b.example"}).
		WillReturnRows(rows)

	got, err := store.Lookup(context.Background(), []string{" https://a.example", "https://b.example\t", "https://a.example"})
	require.NoError(t, err)
	require.Equal(t, []frontier.URLRecord{
		{URL: "https://a.example", State: frontier.StateConfirmed, UserIDHash: "owner-b", Score: 3, Updated: at},
		{URL: "https://b.example", State: frontier.StateCrawled, UserIDHash: "owner-a", Score: 1, Updated: at},
	}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLookupRejectsEmptyURL(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	_, err := store.Lookup(context.Background(), []string{"https://a.example", "  "})
	require.ErrorIs(t, err, batch.ErrInvalidURL)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSchema(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectExec(`(?s)CREATE TABLE IF NOT EXISTS urls.*updated TIMESTAMP NOT NULL`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, store.CreateSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewFrontierStoreWithPoolValidatesTable(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewFrontierStoreWithPool(mock, "urls; DROP TABLE urls")
	require.Error(t, err)
	_, err = NewFrontierStoreWithPool(nil, "urls")
	require.Error(t, err)
}

func TestPing(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	store, err := NewFrontierStoreWithPool(mock, "")
	require.NoError(t, err)

	mock.ExpectPing()
	require.NoError(t, store.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	require.ErrorContains(t, store.Ping(context.Background()), "connection refused")
	require.NoError(t, mock.ExpectationsWereMet())
}

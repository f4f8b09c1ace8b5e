package archive

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var ownerToken = strings.Repeat("abc", 21) + "d"

func TestBuildStorageKey(t *testing.T) {
	t.Parallel()

	date := time.Date(2024, 3, 1, 0, 0, 42, 0, time.UTC)
	key := BuildStorageKey(DefaultSchemaVersion, date, "1", ownerToken, 42, "a1b2c3d4")
	require.Equal(t, "1/v1/2024-03-01/1/"+ownerToken+"/00042__a1b2c3d4.json.gz", key)
}

func TestBuildStorageKeyUsesUTCDate(t *testing.T) {
	t.Parallel()

	// 23:30 in UTC-5 is already the next day in UTC.
	local := time.Date(2024, 2, 29, 23, 30, 0, 0, time.FixedZone("EST", -5*3600))
	key := BuildStorageKey("1/v1", local, "1", ownerToken, SecondsOfDay(local), "zzzzzzzz")
	require.Equal(t, "1/v1/2024-03-01/1/"+ownerToken+"/16200__zzzzzzzz.json.gz", key)
}

func TestSecondsOfDay(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0, SecondsOfDay(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	require.Equal(t, 86399, SecondsOfDay(time.Date(2024, 3, 1, 23, 59, 59, 999, time.UTC)))
}

func TestPrefixes(t *testing.T) {
	t.Parallel()

	require.Equal(t, "1/v1/2024-03-01/1/", DatePrefix("1/v1/", "2024-03-01", "1"))
	require.Equal(t, "1/v1/2024-03-01/1/"+ownerToken+"/", OwnerPrefix("1/v1", "2024-03-01", "1", ownerToken))
}

func TestSplitKey(t *testing.T) {
	t.Parallel()

	prefix, name := SplitKey("1/v1/2024-03-01/1/ownerX/00010__a.json.gz")
	require.Equal(t, "1/v1/2024-03-01/1/ownerX/", prefix)
	require.Equal(t, "00010__a.json.gz", name)

	prefix, name = SplitKey("bare.json.gz")
	require.Empty(t, prefix)
	require.Equal(t, "bare.json.gz", name)
}

func TestKeysSortByDateThenOwner(t *testing.T) {
	t.Parallel()

	day1 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)
	a := BuildStorageKey("1/v1", day1, "1", "aaaa", 50000, "x")
	b := BuildStorageKey("1/v1", day1, "1", "bbbb", 10, "x")
	c := BuildStorageKey("1/v1", day2, "1", "aaaa", 0, "x")
	require.Less(t, a, b)
	require.Less(t, b, c)
	require.Regexp(t, regexp.MustCompile(`/50000__x\.json\.gz$`), a)
}

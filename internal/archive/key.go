// Package archive names, encodes, and writes immutable batch archives.
//
// Keys have the form
//
//	{schemaVersion}/{YYYY-MM-DD}/{shard}/{ownerToken}/{SSSSS}__{suffix}.json.gz
//
// so a prefix listing by date, or by date and owner, finds every batch
// without a secondary index.
package archive

import (
	"fmt"
	"strings"
	"time"
)

// Key format constants shared with existing archives.
const (
	DateLayout     = "2006-01-02"
	FileExtension  = ".json.gz"
	SuffixLength   = 8
	ownerSeparator = "/"
	nameSeparator  = "__"
)

// BuildStorageKey returns the storage key for one batch.
func BuildStorageKey(
	schemaVersion string,
	date time.Time,
	shard string,
	ownerToken string,
	secondsOfDay int,
	suffix string,
) string {
	prefix := OwnerPrefix(schemaVersion, date.UTC().Format(DateLayout), shard, ownerToken)
	return fmt.Sprintf("%s%05d%s%s%s", prefix, secondsOfDay, nameSeparator, suffix, FileExtension)
}

// DatePrefix returns the prefix under which every batch for date lives.
func DatePrefix(schemaVersion, date, shard string) string {
	return strings.Join([]string{
		strings.Trim(schemaVersion, "/"),
		date,
		strings.Trim(shard, "/"),
	}, "/") + ownerSeparator
}

// OwnerPrefix returns the prefix for one owner's batches on date.
func OwnerPrefix(schemaVersion, date, shard, ownerToken string) string {
	return DatePrefix(schemaVersion, date, shard) + ownerToken + ownerSeparator
}

// SecondsOfDay returns the seconds elapsed since UTC midnight.
func SecondsOfDay(t time.Time) int {
	u := t.UTC()
	return u.Hour()*3600 + u.Minute()*60 + u.Second()
}

// SplitKey separates a key into its owner-level prefix and filename.
func SplitKey(key string) (prefix, filename string) {
	idx := strings.LastIndex(key, ownerSeparator)
	if idx < 0 {
		return "", key
	}
	return key[:idx+1], key[idx+1:]
}

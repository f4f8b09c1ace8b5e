package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/crawlhub/internal/archive"
	"github.com/JakeFAU/crawlhub/internal/batch"
	"github.com/JakeFAU/crawlhub/internal/storage/local"
)

var owner = strings.Repeat("ab", 32)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func localConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	base := filepath.Join(dir, "batches")
	require.NoError(t, os.MkdirAll(base, 0o755))
	path := filepath.Join(dir, "config.yaml")
	yaml := "storage:\n  backend: local\n  local:\n    base_dir: " + base + "\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	return path, base
}

func seed(t *testing.T, base string) string {
	t.Helper()
	store, err := local.New(local.Config{BaseDir: base})
	require.NoError(t, err)
	at := time.Date(2024, 3, 1, 0, 0, 42, 0, time.UTC)
	key := archive.BuildStorageKey(archive.DefaultSchemaVersion, at, archive.DefaultShard, owner, 42, "a1b2c3d4")
	data, err := archive.Encode(batch.ArchivedBatch{
		UserIDHash: owner,
		Timestamp:  at.Unix(),
		Items:      []batch.Item{{URL: "https://example.com", Title: "Example"}},
	})
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), key, data, batch.ObjectAttrs{}))
	return key
}

func TestBatchesList(t *testing.T) {
	t.Parallel()

	cfgPath, base := localConfig(t)
	seed(t, base)

	out, err := runCmd(t, "--config", cfgPath, "batches", "list", "--date", "2024-03-01")
	require.NoError(t, err)
	require.Contains(t, out, "1/v1/2024-03-01/1/"+owner+"/")
	require.Contains(t, out, "00042__a1b2c3d4.json.gz")

	out, err = runCmd(t, "--config", cfgPath, "batches", "list", "--date", "2024-03-01", "--owner", owner)
	require.NoError(t, err)
	require.Contains(t, out, "00042__a1b2c3d4.json.gz")
}

func TestBatchesListValidation(t *testing.T) {
	t.Parallel()

	cfgPath, _ := localConfig(t)

	_, err := runCmd(t, "--config", cfgPath, "batches", "list")
	require.ErrorContains(t, err, "--date is required")

	_, err = runCmd(t, "--config", cfgPath, "batches", "list", "--date", "March 1")
	require.ErrorIs(t, err, batch.ErrInvalidDateFormat)
}

func TestBatchesGet(t *testing.T) {
	t.Parallel()

	cfgPath, base := localConfig(t)
	key := seed(t, base)

	out, err := runCmd(t, "--config", cfgPath, "batches", "get", key)
	require.NoError(t, err)
	require.Contains(t, out, `"user_id_hash": "`+owner+`"`)
	require.Contains(t, out, "https://example.com")
}

func TestMigrateRequiresDSN(t *testing.T) {
	t.Parallel()

	cfgPath, _ := localConfig(t)
	_, err := runCmd(t, "--config", cfgPath, "migrate")
	require.ErrorContains(t, err, "database.dsn is required")
}

func TestMissingConfigFile(t *testing.T) {
	t.Parallel()

	_, err := runCmd(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"), "migrate")
	require.ErrorContains(t, err, "load config")
}

// Package main hosts the crawlhub entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server accepts crawl batches on POST /batches/ and serves read-only listings of
//     archived batches by day and owner. Requests are validated with go-playground/validator before reaching the
//     gateway.
//   - Gateway: internal/gateway checks batch size and user id length, pseudonymizes the user id with SHA3-256,
//     archives the batch once, then merges crawled URLs and their outbound links into the URL frontier.
//   - Archive: batches are gzip-compressed JSON written to the configured object store (memory/local/GCS) under
//     {schema}/{date}/{shard}/{owner}/{seconds}__{suffix}.json.gz. Writes never overwrite.
//   - Frontier: URL state (NEW, CONFIRMED, ASSIGNED, CRAWLED) lives in Postgres when a DSN is configured and in
//     memory otherwise. Each write is a single INSERT ... ON CONFLICT statement; state never moves backwards.
//   - Notifications: when a Pub/Sub project and topic are configured, an event naming the archive key is published
//     for every accepted batch.
//
// Commands:
//   - crawlhub serve [--config file]: run the HTTP server until SIGINT/SIGTERM.
//   - crawlhub migrate: create the frontier table if it does not exist.
//   - crawlhub batches list --date YYYY-MM-DD [--owner token]: list archived batches.
//   - crawlhub batches get KEY: print one archived batch as JSON.
//
// Configuration comes from an optional YAML file plus CRAWLHUB_* environment variables, for example
// CRAWLHUB_SERVER_PORT, CRAWLHUB_STORAGE_BACKEND, CRAWLHUB_STORAGE_BUCKET, CRAWLHUB_DATABASE_DSN and
// CRAWLHUB_PUBSUB_TOPIC_NAME.
package main

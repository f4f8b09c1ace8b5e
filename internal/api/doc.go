// Package api hosts the HTTP server, middleware, and REST handlers for
// crawlhub. Notable routes:
//   - POST /batches/ accepts a crawl batch from a participant.
//   - GET /batches/{date}, /batches/{date}/users and
//     /batches/{date}/users/{owner} list archived batches by day and owner.
//   - GET /batches/v1/{key} returns one archived batch, decompressed.
//   - GET /batches/latest reports the last batch accepted by this instance.
//   - GET /urls?url=... reads frontier rows back.
//   - GET /healthz, /readyz and /metrics for probes and Prometheus.
package api

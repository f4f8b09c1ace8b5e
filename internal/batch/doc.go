// Package batch defines the types and collaborator interfaces shared by the
// ingestion pipeline: the submission shape accepted from crawlers, the archived
// document written to object storage, and the errors surfaced at the boundary.
package batch

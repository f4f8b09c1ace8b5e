package batch

import "time"

// Item is one crawled page reported by a participant.
type Item struct {
	Timestamp int64    `json:"timestamp"`
	URL       string   `json:"url"`
	Title     string   `json:"title"`
	Extract   string   `json:"extract"`
	Links     []string `json:"links,omitempty"`
}

// Submission is the decoded inbound batch. It is never persisted as-is.
type Submission struct {
	UserID string
	Items  []Item
}

// ArchivedBatch is the immutable document stored for every accepted submission.
type ArchivedBatch struct {
	UserIDHash string `json:"user_id_hash"`
	Timestamp  int64  `json:"timestamp"`
	Items      []Item `json:"items"`
}

// Group lists the archived batch filenames stored under one owner prefix.
type Group struct {
	Prefix    string   `json:"prefix"`
	Filenames []string `json:"filenames"`
}

// Receipt is returned to the submitter once a batch has been archived.
type Receipt struct {
	Key        string    `json:"batch_key"`
	URL        string    `json:"batch_url,omitempty"`
	UserIDHash string    `json:"user_id_hash"`
	AcceptedAt time.Time `json:"accepted_at"`
	Items      int       `json:"items"`
}

// ArchivedEvent is published after a batch lands in object storage.
type ArchivedEvent struct {
	Key        string `json:"key"`
	UserIDHash string `json:"user_id_hash"`
	Timestamp  int64  `json:"timestamp"`
	Items      int    `json:"items"`
}

// CrawledURLs returns the page URLs of every item, in submission order.
func CrawledURLs(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.URL)
	}
	return out
}

// DiscoveredURLs returns the outbound links of every item, in submission order.
func DiscoveredURLs(items []Item) []string {
	var out []string
	for _, item := range items {
		out = append(out, item.Links...)
	}
	return out
}

package domain

import (
	"strings"
	"time"
)

// DocType identifies which feed a document came from.
type DocType string

const (
	DocTypePressRelease DocType = "press_release"
	DocTypeCircular     DocType = "circular"
)

// CategoryAll disables category narrowing.
const CategoryAll = "all"

// FeedItem represents one externally scraped regulatory document reference.
// DocID is only present when the backend has a chat-able document for the
// item; items without it can be read but not discussed.
type FeedItem struct {
	Title         string  `json:"title"`
	Link          string  `json:"press_release_link,omitempty"`
	PDFLink       string  `json:"pdf_link,omitempty"`
	DatePublished string  `json:"date_published,omitempty"`
	DateScraped   string  `json:"date_scraped,omitempty"`
	Category      string  `json:"category,omitempty"`
	DocID         string  `json:"doc_id,omitempty"`
	IsNew         *bool   `json:"is_new,omitempty"`
	Type          DocType `json:"-"`
}

// Key returns the identity used to compare items within a snapshot.
// Press releases are identified by their page link, circulars by their PDF
// link; the two feeds never share a key space.
func (f FeedItem) Key() string {
	if f.Type == DocTypeCircular {
		return f.PDFLink
	}
	return f.Link
}

// Date returns the publish date, falling back to the scrape date.
func (f FeedItem) Date() string {
	if f.DatePublished != "" {
		return f.DatePublished
	}
	return f.DateScraped
}

// dateLayouts covers the formats the scrapers have been seen emitting.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"Jan 02, 2006",
}

// DateKey normalizes the item date to a date-only key (YYYY-MM-DD).
// Unparseable dates yield an empty key and the item is never considered new.
func (f FeedItem) DateKey() string {
	raw := strings.TrimSpace(f.Date())
	if raw == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}

// New reports whether the item belongs in the "new" bucket. An explicit
// is_new flag from the backend is authoritative; without one the item is new
// when it was published (or scraped) today. The flag only ever moves
// true to false, via mark-read on the server.
func (f FeedItem) New(today time.Time) bool {
	if f.IsNew != nil {
		return *f.IsNew
	}
	key := f.DateKey()
	return key != "" && key == today.Format("2006-01-02")
}

// Snapshot is one full fetch of a feed. Each fetch replaces the prior
// snapshot wholesale; there is no incremental merging.
type Snapshot struct {
	Kind      DocType
	Items     []FeedItem
	FetchedAt time.Time
}

// Partition splits the snapshot into new and previous items. Every item
// lands in exactly one bucket.
func (s Snapshot) Partition(today time.Time) (newItems, previous []FeedItem) {
	for _, item := range s.Items {
		if item.New(today) {
			newItems = append(newItems, item)
		} else {
			previous = append(previous, item)
		}
	}
	return newItems, previous
}

// FilterTitle narrows items to those whose title contains the query,
// case-insensitively. An empty query keeps everything. Pure; never fetches.
func FilterTitle(items []FeedItem, query string) []FeedItem {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return items
	}
	var out []FeedItem
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.Title), query) {
			out = append(out, item)
		}
	}
	return out
}

// FilterCategory keeps items matching the category exactly, or everything
// for CategoryAll.
func FilterCategory(items []FeedItem, category string) []FeedItem {
	if category == "" || category == CategoryAll {
		return items
	}
	var out []FeedItem
	for _, item := range items {
		if item.Category == category {
			out = append(out, item)
		}
	}
	return out
}

// Categories returns the distinct non-empty categories present, prefixed
// with CategoryAll, in first-seen order.
func Categories(items []FeedItem) []string {
	out := []string{CategoryAll}
	seen := map[string]bool{}
	for _, item := range items {
		if item.Category == "" || seen[item.Category] {
			continue
		}
		seen[item.Category] = true
		out = append(out, item.Category)
	}
	return out
}

package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/regdesk/regdesk/internal/api"
	"github.com/regdesk/regdesk/internal/domain"
	"github.com/regdesk/regdesk/internal/notify"
)

// FeedService owns the feed snapshots for both document kinds. It is the
// single owner of that state; sibling views read through it and never hold
// their own mutable copies.
type FeedService struct {
	client  *api.Client
	notices *notify.Center
	logger  *zap.Logger

	mu        sync.Mutex
	snapshots map[domain.DocType]domain.Snapshot
	inflight  map[domain.DocType]bool

	clock func() time.Time
}

// NewFeedService builds a feed service with empty snapshots.
func NewFeedService(client *api.Client, notices *notify.Center, logger *zap.Logger) *FeedService {
	return &FeedService{
		client:    client,
		notices:   notices,
		logger:    logger,
		snapshots: map[domain.DocType]domain.Snapshot{},
		inflight:  map[domain.DocType]bool{},
		clock:     time.Now,
	}
}

// Refresh fetches a full feed snapshot, replacing the prior one. At most one
// refresh per kind is in flight; a second caller gets ErrBusy rather than a
// duplicate fetch. On failure the stale snapshot stays available and a
// transient notice is pushed.
func (s *FeedService) Refresh(ctx context.Context, kind domain.DocType) error {
	s.mu.Lock()
	if s.inflight[kind] {
		s.mu.Unlock()
		return domain.ErrBusy
	}
	s.inflight[kind] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inflight[kind] = false
		s.mu.Unlock()
	}()

	var (
		items []domain.FeedItem
		err   error
	)
	if kind == domain.DocTypeCircular {
		items, err = s.client.Circulars(ctx)
	} else {
		items, err = s.client.Updates(ctx)
	}
	if err != nil {
		s.logger.Warn("feed refresh failed", zap.String("kind", string(kind)), zap.Error(err))
		s.notices.Error("Error", "Failed to fetch updates")
		return err
	}

	s.mu.Lock()
	s.snapshots[kind] = domain.Snapshot{
		Kind:      kind,
		Items:     items,
		FetchedAt: s.clock(),
	}
	s.mu.Unlock()

	s.logger.Info("feed refreshed", zap.String("kind", string(kind)), zap.Int("items", len(items)))
	return nil
}

// Snapshot returns the last fetched snapshot for a kind, if any.
func (s *FeedService) Snapshot(kind domain.DocType) (domain.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snapshots[kind]
	return snap, ok
}

// Partition splits the current snapshot into new and previous buckets.
func (s *FeedService) Partition(kind domain.DocType) (newItems, previous []domain.FeedItem) {
	snap, ok := s.Snapshot(kind)
	if !ok {
		return nil, nil
	}
	return snap.Partition(s.clock())
}

// HasNew reports whether the current snapshot holds any new items, for the
// notification affordance.
func (s *FeedService) HasNew(kind domain.DocType) bool {
	newItems, _ := s.Partition(kind)
	return len(newItems) > 0
}

// Filtered applies the search query and, for circulars, the category filter
// to the current snapshot. Purely local; never triggers a fetch.
func (s *FeedService) Filtered(kind domain.DocType, query, category string) []domain.FeedItem {
	snap, ok := s.Snapshot(kind)
	if !ok {
		return nil
	}
	items := domain.FilterTitle(snap.Items, query)
	if kind == domain.DocTypeCircular {
		items = domain.FilterCategory(items, category)
	}
	return items
}

// Categories lists the category filter options for the current circulars
// snapshot.
func (s *FeedService) Categories() []string {
	snap, ok := s.Snapshot(domain.DocTypeCircular)
	if !ok {
		return []string{domain.CategoryAll}
	}
	return domain.Categories(snap.Items)
}

// MarkRead records the read state server-side and re-fetches the feed, so
// the monotonic is_new transition is observed rather than simulated. The
// same logical item can be keyed differently across feed variants; a local
// mutation would risk compounding divergent identities.
func (s *FeedService) MarkRead(ctx context.Context, pressReleaseLink string) error {
	if err := s.client.MarkRead(ctx, pressReleaseLink); err != nil {
		s.logger.Warn("mark read failed", zap.Error(err))
		s.notices.Error("Error", "Failed to mark update as read")
		return err
	}
	return s.Refresh(ctx, domain.DocTypePressRelease)
}

// StartPolling refreshes the feed on a fixed interval until the context is
// canceled or the returned stop function is called. A tick that lands while
// a refresh is outstanding is dropped by the in-flight guard. onRefresh, if
// set, fires after every completed refresh so the view can re-read the
// snapshot; suppressed ticks do not fire it.
func (s *FeedService) StartPolling(ctx context.Context, kind domain.DocType, interval time.Duration, onRefresh func(err error)) (stop func()) {
	done := make(chan struct{})
	var once sync.Once
	stop = func() { once.Do(func() { close(done) }) }

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				err := s.Refresh(ctx, kind)
				if err == domain.ErrBusy {
					continue
				}
				if err != nil {
					s.logger.Debug("poll refresh failed", zap.String("kind", string(kind)), zap.Error(err))
				}
				if onRefresh != nil {
					onRefresh(err)
				}
			case <-ctx.Done():
				return
			case <-done:
				return
			}
		}
	}()

	return stop
}

package api

import (
	"context"

	"github.com/regdesk/regdesk/internal/domain"
)

// Updates fetches the press-release feed.
func (c *Client) Updates(ctx context.Context) ([]domain.FeedItem, error) {
	env, err := c.get(ctx, "/get_updates", nil)
	if err != nil {
		return nil, err
	}
	return tagItems(env.Updates, domain.DocTypePressRelease), nil
}

// Circulars fetches the circulars feed. Category may be absent per item;
// callers must tolerate that.
func (c *Client) Circulars(ctx context.Context) ([]domain.FeedItem, error) {
	env, err := c.get(ctx, "/get_circulars", nil)
	if err != nil {
		return nil, err
	}
	return tagItems(env.Updates, domain.DocTypeCircular), nil
}

// MarkRead records the read state server-side. Callers re-fetch the feed
// afterwards; there is no optimistic local mutation.
func (c *Client) MarkRead(ctx context.Context, pressReleaseLink string) error {
	body := map[string]string{"press_release_link": pressReleaseLink}
	_, err := c.post(ctx, "/updates/mark_read", nil, body)
	return err
}

func tagItems(items []domain.FeedItem, kind domain.DocType) []domain.FeedItem {
	for i := range items {
		items[i].Type = kind
	}
	return items
}

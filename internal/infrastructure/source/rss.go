package source

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmcdole/gofeed"

	"techbriefing/internal/domain"
	"techbriefing/internal/ports"
)

// RSSAdapter harvests posts from an RSS or Atom feed. Feeds have no
// login concept, so the session is always valid.
type RSSAdapter struct {
	name    string
	feedURL string
	parser  *gofeed.Parser
	logger  *slog.Logger
	now     func() time.Time
}

var _ ports.SourceAdapter = (*RSSAdapter)(nil)

// NewRSSAdapter builds an adapter for one feed.
func NewRSSAdapter(name, feedURL string, logger *slog.Logger) *RSSAdapter {
	return &RSSAdapter{
		name:    name,
		feedURL: feedURL,
		parser:  gofeed.NewParser(),
		logger:  logger,
		now:     time.Now,
	}
}

// SourceName returns the configured platform identifier.
func (a *RSSAdapter) SourceName() string { return a.name }

// SessionValid always reports true; feeds need no login.
func (a *RSSAdapter) SessionValid(context.Context) bool { return true }

// Collect fetches the feed and maps items to posts.
func (a *RSSAdapter) Collect(ctx context.Context) ([]domain.Post, error) {
	feed, err := a.parser.ParseURLWithContext(a.feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", a.feedURL, err)
	}

	collectedAt := a.now()
	posts := make([]domain.Post, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}

		externalID := item.GUID
		if externalID == "" {
			externalID = item.Link
		}
		if externalID == "" {
			continue
		}

		content := item.Content
		if content == "" {
			content = item.Description
		}

		post := domain.Post{
			Source:      a.name,
			ExternalID:  externalID,
			URL:         item.Link,
			Author:      itemAuthor(item),
			ContentText: item.Title + "\n" + content,
			CollectedAt: collectedAt,
		}
		if item.PublishedParsed != nil {
			post.PublishedAt = *item.PublishedParsed
		}
		posts = append(posts, post)
	}

	if a.logger != nil {
		a.logger.Debug("feed collected", "source", a.name, "items", len(posts))
	}
	return posts, nil
}

func itemAuthor(item *gofeed.Item) string {
	if len(item.Authors) > 0 && item.Authors[0] != nil {
		return item.Authors[0].Name
	}
	return ""
}

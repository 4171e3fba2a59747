package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"techbriefing/internal/domain"
	"techbriefing/internal/ports"
)

// Selector defaults cover a plain list-style community board.
const (
	defaultRowSelector    = "tr.post-row"
	defaultTitleSelector  = "td.title a"
	defaultAuthorSelector = "td.author"
	defaultPages          = 3
)

// BoardAdapter scrapes a paginated HTTP community board. Selectors are
// configurable per site through the adapter options; the board needs
// no login, so the session is always valid.
type BoardAdapter struct {
	name    string
	baseURL string
	rowSel  string
	titSel  string
	authSel string
	pages   int
	client  *http.Client
	logger  *slog.Logger
	now     func() time.Time
}

var _ ports.SourceAdapter = (*BoardAdapter)(nil)

// NewBoardAdapter builds an adapter for one board. Recognized options:
// rowSelector, titleSelector, authorSelector, pages.
func NewBoardAdapter(name, baseURL string, options map[string]string, logger *slog.Logger) *BoardAdapter {
	a := &BoardAdapter{
		name:    name,
		baseURL: baseURL,
		rowSel:  defaultRowSelector,
		titSel:  defaultTitleSelector,
		authSel: defaultAuthorSelector,
		pages:   defaultPages,
		client:  &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
		now:     time.Now,
	}
	if v := options["rowSelector"]; v != "" {
		a.rowSel = v
	}
	if v := options["titleSelector"]; v != "" {
		a.titSel = v
	}
	if v := options["authorSelector"]; v != "" {
		a.authSel = v
	}
	if v, err := strconv.Atoi(options["pages"]); err == nil && v > 0 {
		a.pages = v
	}
	return a
}

// SourceName returns the configured platform identifier.
func (a *BoardAdapter) SourceName() string { return a.name }

// SessionValid always reports true; public boards need no login.
func (a *BoardAdapter) SessionValid(context.Context) bool { return true }

// Collect scrapes the configured number of board pages.
func (a *BoardAdapter) Collect(ctx context.Context) ([]domain.Post, error) {
	var posts []domain.Post
	collectedAt := a.now()

	for page := 1; page <= a.pages; page++ {
		pageURL, err := buildPageURL(a.baseURL, page)
		if err != nil {
			return nil, fmt.Errorf("build page url: %w", err)
		}

		doc, err := a.fetch(ctx, pageURL)
		if err != nil {
			return nil, err
		}

		doc.Find(a.rowSel).Each(func(_ int, row *goquery.Selection) {
			if post, ok := a.parseRow(row, collectedAt); ok {
				posts = append(posts, post)
			}
		})
	}

	if a.logger != nil {
		a.logger.Debug("board collected", "source", a.name, "pages", a.pages, "posts", len(posts))
	}
	return posts, nil
}

func (a *BoardAdapter) fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", pageURL, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return doc, nil
}

func (a *BoardAdapter) parseRow(row *goquery.Selection, collectedAt time.Time) (domain.Post, bool) {
	title := row.Find(a.titSel)
	href, _ := title.Attr("href")
	text := strings.TrimSpace(title.Text())
	if text == "" || href == "" {
		return domain.Post{}, false
	}

	link := href
	if resolved, err := resolveURL(a.baseURL, href); err == nil {
		link = resolved
	}

	return domain.Post{
		Source:      a.name,
		ExternalID:  link,
		URL:         link,
		Author:      strings.TrimSpace(row.Find(a.authSel).Text()),
		ContentText: text,
		CollectedAt: collectedAt,
	}, true
}

func buildPageURL(base string, page int) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func resolveURL(base, href string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	rel, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	return baseURL.ResolveReference(rel).String(), nil
}

// Package briefing compiles merged topics into the rendered digest.
package briefing

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"techbriefing/internal/config"
	"techbriefing/internal/domain"
)

const defaultMaxItems = 20

// catchAllCategory collects items whose category is not in the display
// order. Always rendered last.
const catchAllCategory = "Other"

// defaultCategoryOrder fixes the section order of the digest.
var defaultCategoryOrder = []string{"AI", "Semiconductor", "Cloud", "BigTech", "Startup", "Regulation", catchAllCategory}

// Compiler turns merged topics into a Briefing document with both
// text and HTML renderings.
type Compiler struct {
	maxItems     int
	includeStats bool
	order        []string
	displayNames map[string]string
	now          func() time.Time
}

// NewCompiler builds a compiler from briefing config and the category
// taxonomy (used for display names).
func NewCompiler(cfg config.BriefingConfig, categories []domain.Category) *Compiler {
	maxItems := cfg.MaxItems
	if maxItems <= 0 {
		maxItems = defaultMaxItems
	}

	displayNames := map[string]string{}
	for _, c := range categories {
		if c.NameKo != "" {
			displayNames[c.Name] = c.NameKo
		}
	}

	return &Compiler{
		maxItems:     maxItems,
		includeStats: cfg.IncludeStats,
		order:        defaultCategoryOrder,
		displayNames: displayNames,
		now:          time.Now,
	}
}

// Compile ranks topics by importance, caps the item count, groups by
// category and renders the digest. Topics beyond the cap are dropped,
// not deferred. With no topics it produces the placeholder briefing —
// the only variant carrying TotalItems == 0.
func (c *Compiler) Compile(topics []domain.MergedTopic, periodStart, periodEnd time.Time, totalAnalyzed int) *domain.Briefing {
	generatedAt := c.now()
	date := periodEnd.Format("2006-01-02")

	if len(topics) == 0 {
		return &domain.Briefing{
			Title:        fmt.Sprintf("%s Tech Morning Briefing (no data)", date),
			BriefingType: "daily",
			PeriodStart:  periodStart,
			PeriodEnd:    periodEnd,
			GeneratedAt:  generatedAt,
		}
	}

	ranked := make([]domain.MergedTopic, len(topics))
	copy(ranked, topics)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].ImportanceScore > ranked[j].ImportanceScore
	})
	if len(ranked) > c.maxItems {
		ranked = ranked[:c.maxItems]
	}

	items := make([]domain.BriefingItem, 0, len(ranked))
	for rank, topic := range ranked {
		var body strings.Builder
		for i, bullet := range topic.BodyBullets {
			if i > 0 {
				body.WriteString("\n")
			}
			body.WriteString("- " + bullet)
		}

		items = append(items, domain.BriefingItem{
			Headline:        topic.Headline,
			Body:            body.String(),
			ImportanceScore: topic.ImportanceScore,
			CategoryName:    topic.PrimaryCategory,
			SortOrder:       rank,
			SourceCount:     len(topic.PostIDs),
			SourcesSummary:  sourcesSummary(topic.Sources),
			SourcePostIDs:   topic.PostIDs,
			SourceURLs:      topic.SourceURLs,
		})
	}

	b := &domain.Briefing{
		Title:              fmt.Sprintf("%s Tech Morning Briefing", date),
		BriefingType:       "daily",
		PeriodStart:        periodStart,
		PeriodEnd:          periodEnd,
		GeneratedAt:        generatedAt,
		TotalPostsAnalyzed: totalAnalyzed,
		TotalItems:         len(items),
		Items:              items,
	}

	grouped := c.groupByCategory(items)
	b.ContentText = c.renderText(b, grouped)
	b.ContentHTML = c.renderHTML(b, grouped)
	return b
}

// groupByCategory buckets items under the fixed display order, sorting
// each bucket by importance descending. Unknown categories fall under
// the catch-all.
func (c *Compiler) groupByCategory(items []domain.BriefingItem) map[string][]domain.BriefingItem {
	known := map[string]bool{}
	for _, name := range c.order {
		known[name] = true
	}

	grouped := map[string][]domain.BriefingItem{}
	for _, item := range items {
		category := item.CategoryName
		if category == "" || !known[category] {
			category = catchAllCategory
		}
		grouped[category] = append(grouped[category], item)
	}

	for _, bucket := range grouped {
		sort.SliceStable(bucket, func(i, j int) bool {
			return bucket[i].ImportanceScore > bucket[j].ImportanceScore
		})
	}
	return grouped
}

func (c *Compiler) displayName(category string) string {
	if name, ok := c.displayNames[category]; ok {
		return name
	}
	return category
}

func (c *Compiler) renderText(b *domain.Briefing, grouped map[string][]domain.BriefingItem) string {
	var lines []string
	lines = append(lines, fmt.Sprintf("===== %s =====", b.Title))
	lines = append(lines, fmt.Sprintf("Period: %s ~ %s",
		b.PeriodStart.Format("2006-01-02 15:04"),
		b.PeriodEnd.Format("2006-01-02 15:04")))
	lines = append(lines, "")

	for _, category := range c.order {
		items := grouped[category]
		if len(items) == 0 {
			continue
		}

		lines = append(lines, fmt.Sprintf("[%s] (%d)", c.displayName(category), len(items)), "")
		for _, item := range items {
			lines = append(lines, "** "+item.Headline+" **")
			if item.Body != "" {
				lines = append(lines, item.Body)
			}
			lines = append(lines, fmt.Sprintf("importance: %s | sources: %s",
				importanceStars(item.ImportanceScore), item.SourcesSummary))
			for _, url := range item.SourceURLs {
				lines = append(lines, "  🔗 "+url)
			}
			lines = append(lines, "")
		}
		lines = append(lines, "---", "")
	}

	if c.includeStats {
		lines = append(lines, "===== Stats =====")
		lines = append(lines, fmt.Sprintf("posts analyzed: %d | briefing items: %d | generated: %s",
			b.TotalPostsAnalyzed, b.TotalItems, b.GeneratedAt.Format("2006-01-02 15:04")))
	}

	return strings.Join(lines, "\n")
}

func (c *Compiler) renderHTML(b *domain.Briefing, grouped map[string][]domain.BriefingItem) string {
	var sections strings.Builder

	for _, category := range c.order {
		items := grouped[category]
		if len(items) == 0 {
			continue
		}

		var itemsHTML strings.Builder
		for _, item := range items {
			var bullets strings.Builder
			for _, line := range strings.Split(item.Body, "\n") {
				line = strings.TrimPrefix(strings.TrimSpace(line), "- ")
				if line == "" {
					continue
				}
				fmt.Fprintf(&bullets, `<div class="bullet">• %s</div>`, html.EscapeString(line))
			}

			var links strings.Builder
			for i, url := range item.SourceURLs {
				fmt.Fprintf(&links, `<a href=%q target="_blank">[link %d]</a> `, url, i+1)
			}

			fmt.Fprintf(&itemsHTML, `<div class="item">
<div class="headline">%s</div>
%s
<div class="meta">importance: %s | sources: %s</div>
<div class="links">%s</div>
</div>
`,
				html.EscapeString(item.Headline),
				bullets.String(),
				importanceStars(item.ImportanceScore),
				html.EscapeString(item.SourcesSummary),
				links.String())
		}

		fmt.Fprintf(&sections, `<div class="section">
<div class="section-title">[%s] (%d)</div>
%s</div>
`, html.EscapeString(c.displayName(category)), len(items), itemsHTML.String())
	}

	stats := ""
	if c.includeStats {
		stats = fmt.Sprintf(`<div class="stats">posts analyzed: %d | briefing items: %d | generated: %s</div>`,
			b.TotalPostsAnalyzed, b.TotalItems, b.GeneratedAt.Format("2006-01-02 15:04"))
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1.0"></head>
<body>
<div class="header"><h1>%s</h1><div class="period">%s ~ %s</div></div>
%s
%s
</body></html>`,
		html.EscapeString(b.Title),
		b.PeriodStart.Format("2006-01-02 15:04"),
		b.PeriodEnd.Format("2006-01-02 15:04"),
		sections.String(),
		stats)
}

func sourcesSummary(sources []string) string {
	unique := map[string]bool{}
	var names []string
	for _, s := range sources {
		if s == "" || unique[s] {
			continue
		}
		unique[s] = true
		names = append(names, s)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func importanceStars(score float64) string {
	switch {
	case score >= 0.9:
		return "★★★★★"
	case score >= 0.7:
		return "★★★★☆"
	case score >= 0.5:
		return "★★★☆☆"
	case score >= 0.3:
		return "★★☆☆☆"
	default:
		return "★☆☆☆☆"
	}
}

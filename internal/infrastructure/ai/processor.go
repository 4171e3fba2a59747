// Package ai implements the staged model pipeline: filter+summarize,
// categorize+score, deduplicate+merge. Stage failures never propagate;
// each failed chunk degrades to a documented safe default.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"techbriefing/internal/config"
	"techbriefing/internal/domain"
	"techbriefing/internal/ports"
)

const (
	defaultBatchSize = 20
	// maxPromptTextLen bounds per-post text sent to the API.
	maxPromptTextLen = 1000
	// fallbackSummaryLen bounds the raw-text summary used when the
	// filter stage fails for a chunk.
	fallbackSummaryLen = 200

	defaultCategory   = "Other"
	neutralImportance = 0.5
	unknownLanguage   = "unknown"
)

// completer abstracts one chat-completion round trip so the pipeline
// can be exercised without the network.
type completer interface {
	Complete(ctx context.Context, model, system, prompt string) (string, error)
}

// Processor implements ports.AIProcessor over a chat-completion API.
type Processor struct {
	client       completer
	filterModel  string
	processModel string
	batchFilter  int
	batchCat     int
	logger       *slog.Logger
}

var _ ports.AIProcessor = (*Processor)(nil)

// NewProcessor wires a completer with batch settings from config.
func NewProcessor(client completer, cfg config.OpenAIConfig, proc config.ProcessingConfig, logger *slog.Logger) *Processor {
	batchFilter := proc.BatchSizeFilter
	if batchFilter <= 0 {
		batchFilter = defaultBatchSize
	}
	batchCat := proc.BatchSizeCategorize
	if batchCat <= 0 {
		batchCat = defaultBatchSize
	}
	return &Processor{
		client:       client,
		filterModel:  cfg.FilterModel,
		processModel: cfg.ProcessModel,
		batchFilter:  batchFilter,
		batchCat:     batchCat,
		logger:       logger,
	}
}

// FilterAndSummarize judges relevance and summarizes posts in fixed-size
// chunks. A chunk whose API call or parse fails is marked entirely
// relevant with truncated raw-text summaries: false positives are
// cheaper than silently dropping collected content.
func (p *Processor) FilterAndSummarize(ctx context.Context, posts []domain.Post) ([]domain.FilterResult, error) {
	results := make([]domain.FilterResult, 0, len(posts))

	for _, batch := range chunked(posts, p.batchFilter) {
		prompt := fmt.Sprintf(filterAndSummarizePrompt, postsJSON(batch))

		var parsed []struct {
			PostID     string `json:"post_id"`
			IsRelevant bool   `json:"is_relevant"`
			Summary    string `json:"summary"`
			Language   string `json:"language"`
		}
		if err := p.call(ctx, p.filterModel, prompt, &parsed); err != nil {
			p.warn("filter stage failed, marking chunk relevant", "size", len(batch), "error", err)
			for _, post := range batch {
				results = append(results, domain.FilterResult{
					PostID:     post.ID,
					IsRelevant: true,
					Summary:    truncate(post.ContentText, fallbackSummaryLen),
					Language:   unknownLanguage,
				})
			}
			continue
		}

		for _, item := range parsed {
			results = append(results, domain.FilterResult{
				PostID:     item.PostID,
				IsRelevant: item.IsRelevant,
				Summary:    item.Summary,
				Language:   item.Language,
			})
		}
	}

	return results, nil
}

// Categorize assigns categories, importance and keywords in chunks.
// A failed chunk falls back to the default category with neutral
// importance.
func (p *Processor) Categorize(ctx context.Context, posts []domain.Post) ([]domain.CategoryResult, error) {
	results := make([]domain.CategoryResult, 0, len(posts))

	for _, batch := range chunked(posts, p.batchCat) {
		prompt := fmt.Sprintf(categorizePrompt, postsJSON(batch))

		var parsed []struct {
			PostID          string   `json:"post_id"`
			Categories      []string `json:"categories"`
			ImportanceScore float64  `json:"importance_score"`
			Keywords        []string `json:"keywords"`
		}
		if err := p.call(ctx, p.processModel, prompt, &parsed); err != nil {
			p.warn("categorize stage failed, using default category", "size", len(batch), "error", err)
			for _, post := range batch {
				results = append(results, domain.CategoryResult{
					PostID:          post.ID,
					Categories:      []string{defaultCategory},
					ImportanceScore: neutralImportance,
				})
			}
			continue
		}

		for _, item := range parsed {
			categories := item.Categories
			if len(categories) == 0 {
				categories = []string{defaultCategory}
			}
			results = append(results, domain.CategoryResult{
				PostID:          item.PostID,
				Categories:      categories,
				ImportanceScore: item.ImportanceScore,
				Keywords:        item.Keywords,
			})
		}
	}

	return results, nil
}

// DeduplicateAndMerge clusters the full relevant set in a single call;
// cross-item similarity needs the whole context, so no chunking. On
// failure every post becomes its own topic — a pipeline failure loses
// dedup quality, never content.
func (p *Processor) DeduplicateAndMerge(ctx context.Context, posts []domain.Post) ([]domain.MergedTopic, error) {
	if len(posts) == 0 {
		return nil, nil
	}

	prompt := fmt.Sprintf(deduplicateAndMergePrompt, postsJSON(posts))

	var parsed []struct {
		PostIDs         []string `json:"post_ids"`
		Headline        string   `json:"headline"`
		BodyBullets     []string `json:"body_bullets"`
		PrimaryCategory string   `json:"primary_category"`
		ImportanceScore float64  `json:"importance_score"`
		Sources         []string `json:"sources"`
	}
	if err := p.call(ctx, p.processModel, prompt, &parsed); err != nil {
		p.warn("merge stage failed, degrading to one topic per post", "posts", len(posts), "error", err)
		return singletonTopics(posts), nil
	}

	byID := make(map[string]domain.Post, len(posts))
	for _, post := range posts {
		byID[post.ID] = post
	}

	topics := make([]domain.MergedTopic, 0, len(parsed))
	for _, item := range parsed {
		category := item.PrimaryCategory
		if category == "" {
			category = defaultCategory
		}
		topics = append(topics, domain.MergedTopic{
			PostIDs:         item.PostIDs,
			Headline:        item.Headline,
			BodyBullets:     item.BodyBullets,
			PrimaryCategory: category,
			ImportanceScore: item.ImportanceScore,
			Sources:         item.Sources,
			SourceURLs:      urlsFor(byID, item.PostIDs),
		})
	}

	p.info("merge complete", "posts", len(posts), "topics", len(topics))
	return topics, nil
}

func (p *Processor) call(ctx context.Context, model, prompt string, v any) error {
	raw, err := p.client.Complete(ctx, model, systemPrompt, prompt)
	if err != nil {
		return fmt.Errorf("completion: %w", err)
	}
	return extractJSONArray(raw, v)
}

// singletonTopics maps each post 1:1 to a topic from its existing
// summary and categories.
func singletonTopics(posts []domain.Post) []domain.MergedTopic {
	topics := make([]domain.MergedTopic, 0, len(posts))
	for _, post := range posts {
		headline := post.Summary
		if headline == "" {
			headline = truncate(post.ContentText, 100)
		}
		body := post.Summary
		if body == "" {
			body = truncate(post.ContentText, 300)
		}
		category := defaultCategory
		if len(post.CategoryNames) > 0 {
			category = post.CategoryNames[0]
		}
		importance := post.ImportanceScore
		if importance == 0 {
			importance = neutralImportance
		}
		topics = append(topics, domain.MergedTopic{
			PostIDs:         []string{post.ID},
			Headline:        headline,
			BodyBullets:     []string{body},
			PrimaryCategory: category,
			ImportanceScore: importance,
			Sources:         []string{post.Source},
			SourceURLs:      urlList(post.URL),
		})
	}
	return topics
}

func urlsFor(byID map[string]domain.Post, ids []string) []string {
	var urls []string
	for _, id := range ids {
		if post, ok := byID[id]; ok && post.URL != "" {
			urls = append(urls, post.URL)
		}
	}
	return urls
}

func urlList(url string) []string {
	if url == "" {
		return nil
	}
	return []string{url}
}

// postsJSON renders posts as the compact JSON payload embedded in
// prompts. Text is truncated to keep token cost bounded.
func postsJSON(posts []domain.Post) string {
	type item struct {
		PostID     string   `json:"post_id"`
		Source     string   `json:"source"`
		Author     string   `json:"author,omitempty"`
		Text       string   `json:"text,omitempty"`
		Summary    string   `json:"summary,omitempty"`
		Categories []string `json:"categories,omitempty"`
		Importance float64  `json:"importance_score,omitempty"`
	}

	items := make([]item, 0, len(posts))
	for _, p := range posts {
		items = append(items, item{
			PostID:     p.ID,
			Source:     p.Source,
			Author:     p.Author,
			Text:       truncate(p.ContentText, maxPromptTextLen),
			Summary:    p.Summary,
			Categories: p.CategoryNames,
			Importance: p.ImportanceScore,
		})
	}

	raw, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(raw)
}

func chunked(posts []domain.Post, size int) [][]domain.Post {
	if size <= 0 {
		size = defaultBatchSize
	}
	var chunks [][]domain.Post
	for start := 0; start < len(posts); start += size {
		end := start + size
		if end > len(posts) {
			end = len(posts)
		}
		chunks = append(chunks, posts[start:end])
	}
	return chunks
}

func (p *Processor) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}

func (p *Processor) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techbriefing/internal/config"
	"techbriefing/internal/domain"
)

// stubCompleter replays canned responses and records prompts.
type stubCompleter struct {
	responses []string
	err       error
	calls     int
	prompts   []string
}

func (s *stubCompleter) Complete(_ context.Context, _, _, prompt string) (string, error) {
	s.calls++
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	if len(s.responses) == 0 {
		return "[]", nil
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

func newTestProcessor(client completer) *Processor {
	return NewProcessor(client,
		config.OpenAIConfig{FilterModel: "filter-model", ProcessModel: "process-model"},
		config.ProcessingConfig{BatchSizeFilter: 2, BatchSizeCategorize: 2},
		nil)
}

func somePosts(n int) []domain.Post {
	posts := make([]domain.Post, 0, n)
	for i := 0; i < n; i++ {
		posts = append(posts, domain.Post{
			ID:          fmt.Sprintf("post-%d", i),
			Source:      "threads",
			Author:      "someone",
			ContentText: fmt.Sprintf("content of post %d", i),
			URL:         fmt.Sprintf("https://example.com/%d", i),
		})
	}
	return posts
}

func TestFilterAndSummarizeParsesChunks(t *testing.T) {
	t.Parallel()

	client := &stubCompleter{responses: []string{
		`[{"post_id":"post-0","is_relevant":true,"summary":"s0","language":"en"},
		  {"post_id":"post-1","is_relevant":false,"summary":"","language":"en"}]`,
		`[{"post_id":"post-2","is_relevant":true,"summary":"s2","language":"ko"}]`,
	}}
	p := newTestProcessor(client)

	results, err := p.FilterAndSummarize(context.Background(), somePosts(3))
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, 2, client.calls, "batch size 2 over 3 posts makes 2 calls")
	assert.True(t, results[0].IsRelevant)
	assert.False(t, results[1].IsRelevant)
	assert.Equal(t, "ko", results[2].Language)
}

func TestFilterAndSummarizeFallbackMarksChunkRelevant(t *testing.T) {
	t.Parallel()

	client := &stubCompleter{err: errors.New("api down")}
	p := newTestProcessor(client)

	posts := somePosts(3)
	results, err := p.FilterAndSummarize(context.Background(), posts)
	require.NoError(t, err)
	require.Len(t, results, len(posts), "no post silently dropped")

	for i, r := range results {
		assert.True(t, r.IsRelevant, "post %d", i)
		assert.NotEmpty(t, r.Summary, "post %d", i)
		assert.Equal(t, unknownLanguage, r.Language)
	}
}

func TestFilterAndSummarizeFallbackOnUnparsableResponse(t *testing.T) {
	t.Parallel()

	client := &stubCompleter{responses: []string{"sorry, I cannot help with that"}}
	p := newTestProcessor(client)

	results, err := p.FilterAndSummarize(context.Background(), somePosts(2))
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].IsRelevant)
	assert.True(t, results[1].IsRelevant)
}

func TestCategorizeFallbackUsesDefaults(t *testing.T) {
	t.Parallel()

	client := &stubCompleter{err: errors.New("rate limited")}
	p := newTestProcessor(client)

	results, err := p.Categorize(context.Background(), somePosts(2))
	require.NoError(t, err)
	require.Len(t, results, 2)

	for _, r := range results {
		assert.Equal(t, []string{defaultCategory}, r.Categories)
		assert.Equal(t, neutralImportance, r.ImportanceScore)
	}
}

func TestCategorizeParsesKeywords(t *testing.T) {
	t.Parallel()

	client := &stubCompleter{responses: []string{
		"```json\n[{\"post_id\":\"post-0\",\"categories\":[\"AI\"],\"importance_score\":0.9,\"keywords\":[\"llm\",\"gpu\"]}]\n```",
	}}
	p := newTestProcessor(client)

	results, err := p.Categorize(context.Background(), somePosts(1))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, []string{"AI"}, results[0].Categories)
	assert.InDelta(t, 0.9, results[0].ImportanceScore, 1e-9)
	assert.Equal(t, []string{"llm", "gpu"}, results[0].Keywords)
}

func TestDeduplicateAndMergeSingleCall(t *testing.T) {
	t.Parallel()

	client := &stubCompleter{responses: []string{
		`[{"post_ids":["post-0","post-1"],"headline":"merged story","body_bullets":["a","b"],
		   "primary_category":"AI","importance_score":0.8,"sources":["threads","x"]}]`,
	}}
	p := newTestProcessor(client)

	// 5 posts exceed the filter batch size; the merge stage must still
	// issue exactly one call over the full set.
	topics, err := p.DeduplicateAndMerge(context.Background(), somePosts(5))
	require.NoError(t, err)
	assert.Equal(t, 1, client.calls)

	require.Len(t, topics, 1)
	assert.Equal(t, "merged story", topics[0].Headline)
	assert.Equal(t, []string{"https://example.com/0", "https://example.com/1"}, topics[0].SourceURLs)
}

func TestDeduplicateAndMergeFallbackOneTopicPerPost(t *testing.T) {
	t.Parallel()

	client := &stubCompleter{err: errors.New("api down")}
	p := newTestProcessor(client)

	relevant := true
	posts := somePosts(3)
	for i := range posts {
		posts[i].IsRelevant = &relevant
		posts[i].Summary = fmt.Sprintf("summary %d", i)
		posts[i].CategoryNames = []string{"Cloud"}
		posts[i].ImportanceScore = 0.6
	}

	topics, err := p.DeduplicateAndMerge(context.Background(), posts)
	require.NoError(t, err)
	require.Len(t, topics, len(posts), "exactly one topic per input post")

	for i, topic := range topics {
		assert.Equal(t, []string{posts[i].ID}, topic.PostIDs)
		assert.Equal(t, posts[i].Summary, topic.Headline)
		assert.Equal(t, "Cloud", topic.PrimaryCategory)
		assert.InDelta(t, 0.6, topic.ImportanceScore, 1e-9)
	}
}

func TestDeduplicateAndMergeEmptyInput(t *testing.T) {
	t.Parallel()

	client := &stubCompleter{}
	p := newTestProcessor(client)

	topics, err := p.DeduplicateAndMerge(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, topics)
	assert.Zero(t, client.calls)
}

package ai

const systemPrompt = `You are an analyst for a daily tech briefing service. You receive posts harvested from social platforms (X, Threads, LinkedIn, forums, RSS). Always answer with JSON only, no prose, no markdown fences.`

const filterAndSummarizePrompt = `Below is a JSON array of social posts. For each post decide whether it is relevant to technology industry news (AI, semiconductors, cloud, big tech, startups, regulation). Personal chatter, ads, giveaways and memes are not relevant.

For every input post return one object:
- "post_id": copied from the input
- "is_relevant": true or false
- "summary": 1-2 sentence factual summary in the post's language (empty string if not relevant)
- "language": ISO 639-1 code of the post text

Return a JSON array with exactly one object per input post.

Posts:
%s`

const categorizePrompt = `Below is a JSON array of relevant social posts with summaries. For each post return one object:
- "post_id": copied from the input
- "categories": 1-2 names from [AI, Semiconductor, Cloud, BigTech, Startup, Regulation, Other]
- "importance_score": 0.0-1.0 — how important this is for a tech industry briefing (1.0 = industry-moving news)
- "keywords": up to 5 short keywords

Return a JSON array with exactly one object per input post.

Posts:
%s`

const deduplicateAndMergePrompt = `Below is a JSON array of relevant social posts with summaries and categories. Cluster posts that cover the same underlying story, even when wording, language or platform differ. Posts about distinct stories stay in their own cluster.

For each cluster return one object:
- "post_ids": ids of every contributing post
- "headline": one clear neutral headline for the merged story
- "body_bullets": 1-4 short bullet strings synthesizing the key facts from all contributing posts
- "primary_category": the single best fit from [AI, Semiconductor, Cloud, BigTech, Startup, Regulation, Other]
- "importance_score": 0.0-1.0 for the merged story
- "sources": platform names of the contributing posts

Return a JSON array ordered by importance_score descending.

Posts:
%s`

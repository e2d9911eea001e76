package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestArticle_Struct(t *testing.T) {
	now := time.Now()

	article := Article{
		ID:          1,
		Title:       "Test Article",
		URL:         "https://example.com/article",
		Summary:     "This is a test article summary",
		Author:      "Jane Doe",
		ImageURL:    "https://example.com/article.jpg",
		PublishedAt: now,
		CreatedAt:   now,
	}

	assert.Equal(t, int64(1), article.ID)
	assert.Equal(t, "Test Article", article.Title)
	assert.Equal(t, "https://example.com/article", article.URL)
	assert.Equal(t, "This is a test article summary", article.Summary)
	assert.Equal(t, "Jane Doe", article.Author)
	assert.Equal(t, now, article.PublishedAt)
	assert.Equal(t, now, article.CreatedAt)
}

func TestArticle_ZeroValue(t *testing.T) {
	var article Article

	assert.Equal(t, int64(0), article.ID)
	assert.Equal(t, "", article.Title)
	assert.Equal(t, "", article.URL)
	assert.Equal(t, "", article.Summary)
	assert.True(t, article.PublishedAt.IsZero())
	assert.True(t, article.CreatedAt.IsZero())
}

func TestNormalizePublishedAt(t *testing.T) {
	t.Run("nil becomes epoch sentinel", func(t *testing.T) {
		assert.Equal(t, EpochSentinel, NormalizePublishedAt(nil))
	})

	t.Run("zero value becomes epoch sentinel", func(t *testing.T) {
		var zero time.Time
		assert.Equal(t, EpochSentinel, NormalizePublishedAt(&zero))
	})

	t.Run("naive time is coerced to UTC", func(t *testing.T) {
		loc := time.FixedZone("JST", 9*60*60)
		naive := time.Date(2026, 2, 1, 12, 0, 0, 0, loc)
		got := NormalizePublishedAt(&naive)
		assert.Equal(t, naive.UTC(), got)
		assert.Equal(t, time.UTC, got.Location())
	})

	t.Run("UTC time passes through unchanged", func(t *testing.T) {
		at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, at, NormalizePublishedAt(&at))
	})
}

func TestArticleFeedLink_Struct(t *testing.T) {
	publishedAt := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	link := ArticleFeedLink{
		SourceID:    1,
		FeedID:      10,
		PublishedAt: publishedAt,
	}

	assert.Equal(t, int64(1), link.SourceID)
	assert.Equal(t, int64(10), link.FeedID)
	assert.Equal(t, publishedAt, link.PublishedAt)
}

package feedparser_test

import (
	"testing"
	"time"

	"manifeed/internal/infra/feedparser"
)

func TestParse_RSS(t *testing.T) {
	rss := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <lastBuildDate>Mon, 01 Jan 2024 00:00:00 GMT</lastBuildDate>
    <item>
      <title>Article 1</title>
      <link>https://example.com/article1</link>
      <description>Description 1</description>
      <pubDate>Mon, 01 Jan 2024 00:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Article 2</title>
      <link>https://example.com/article2</link>
      <description>Description 2</description>
      <pubDate>Tue, 02 Jan 2024 00:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

	entries, lastModified, err := feedparser.Parse([]byte(rss))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].Title != "Article 1" || entries[0].URL != "https://example.com/article1" {
		t.Errorf("entries[0] = %+v, want Article 1 / https://example.com/article1", entries[0])
	}
	if lastModified == nil || !lastModified.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("lastModified = %v, want 2024-01-01T00:00:00Z", lastModified)
	}
}

func TestParse_Atom(t *testing.T) {
	atom := `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Test Atom Feed</title>
  <updated>2024-01-01T00:00:00Z</updated>
  <entry>
    <title>Atom Article</title>
    <link href="https://example.com/atom1" rel="alternate"/>
    <id>atom1</id>
    <updated>2024-01-01T00:00:00Z</updated>
    <summary>Atom Summary</summary>
  </entry>
</feed>`

	entries, _, err := feedparser.Parse([]byte(atom))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	if entries[0].URL != "https://example.com/atom1" {
		t.Errorf("entries[0].URL = %q, want the alternate link", entries[0].URL)
	}
	if entries[0].Summary != "Atom Summary" {
		t.Errorf("entries[0].Summary = %q, want %q", entries[0].Summary, "Atom Summary")
	}
}

func TestParse_AtomLinkPrefersAlternateOverOtherRels(t *testing.T) {
	atom := `<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <title>Rel Priority</title>
    <link href="https://example.com/self" rel="self"/>
    <link href="https://example.com/canonical" rel="alternate"/>
  </entry>
</feed>`

	entries, _, err := feedparser.Parse([]byte(atom))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	if entries[0].URL != "https://example.com/canonical" {
		t.Errorf("URL = %q, want the alternate-rel link even though it is listed second", entries[0].URL)
	}
}

func TestParse_EmptyContent(t *testing.T) {
	if _, _, err := feedparser.Parse(nil); err == nil {
		t.Fatal("Parse(nil) error = nil, want error")
	}
	if _, _, err := feedparser.Parse([]byte("   \n  ")); err == nil {
		t.Fatal("Parse(whitespace) error = nil, want error")
	}
}

func TestParse_InvalidXML(t *testing.T) {
	if _, _, err := feedparser.Parse([]byte("not xml at all <<>>")); err == nil {
		t.Fatal("Parse() error = nil, want error for malformed XML")
	}
}

func TestParse_MissingTitleOrURLDropsEntry(t *testing.T) {
	rss := `<rss version="2.0"><channel>
    <item><link>https://example.com/no-title</link></item>
    <item><title>No Link</title></item>
    <item><title>Keeper</title><link>https://example.com/keeper</link></item>
  </channel></rss>`

	entries, _, err := feedparser.Parse([]byte(rss))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Title != "Keeper" {
		t.Fatalf("entries = %+v, want exactly the Keeper entry", entries)
	}
}

func TestParse_ImageCandidate_PrefersWidestExplicitDimension(t *testing.T) {
	rss := `<rss version="2.0"><channel>
    <item>
      <title>Image Test</title>
      <link>https://example.com/a</link>
      <media:thumbnail xmlns:media="http://search.yahoo.com/mrss/" url="https://img.example.com/small.jpg" width="150" height="100"/>
      <media:content xmlns:media="http://search.yahoo.com/mrss/" url="https://img.example.com/large.jpg" width="1200" height="800"/>
    </item>
  </channel></rss>`

	entries, _, err := feedparser.Parse([]byte(rss))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	if entries[0].ImageURL != "https://img.example.com/large.jpg" {
		t.Errorf("ImageURL = %q, want the wider of the two candidates", entries[0].ImageURL)
	}
}

func TestParse_ImageCandidate_FallsBackToFirstWhenNoneHasDimensions(t *testing.T) {
	rss := `<rss version="2.0"><channel>
    <item>
      <title>No Dimensions</title>
      <link>https://example.com/b</link>
      <description><![CDATA[<p>intro <img src="https://img.example.com/inline1.jpg"> more <img src="https://img.example.com/inline2.jpg"></p>]]></description>
    </item>
  </channel></rss>`

	entries, _, err := feedparser.Parse([]byte(rss))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if entries[0].ImageURL != "https://img.example.com/inline1.jpg" {
		t.Errorf("ImageURL = %q, want the first inline candidate when no width info exists", entries[0].ImageURL)
	}
}

func TestParse_ImageCandidate_WidthFromQueryString(t *testing.T) {
	rss := `<rss version="2.0"><channel>
    <item>
      <title>Query Width</title>
      <link>https://example.com/c</link>
      <enclosure url="https://img.example.com/photo.jpg?w=2000&amp;h=1000" type="image/jpeg"/>
      <description><![CDATA[<img src="https://img.example.com/small.jpg" width="50">]]></description>
    </item>
  </channel></rss>`

	entries, _, err := feedparser.Parse([]byte(rss))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if entries[0].ImageURL != "https://img.example.com/photo.jpg?w=2000&h=1000" {
		t.Errorf("ImageURL = %q, want the enclosure whose query-string width (2000) beats the 50px inline image", entries[0].ImageURL)
	}
}

func TestParse_Datetime_RFC822AndISO8601(t *testing.T) {
	rss := `<rss version="2.0"><channel>
    <item><title>RFC822</title><link>https://example.com/1</link><pubDate>Mon, 01 Jan 2024 12:00:00 +0000</pubDate></item>
    <item><title>ISO</title><link>https://example.com/2</link><pubDate>2024-01-02T12:00:00Z</pubDate></item>
  </channel></rss>`

	entries, _, err := feedparser.Parse([]byte(rss))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	want1 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	want2 := time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)
	if entries[0].PublishedAt == nil || !entries[0].PublishedAt.Equal(want1) {
		t.Errorf("entries[0].PublishedAt = %v, want %v", entries[0].PublishedAt, want1)
	}
	if entries[1].PublishedAt == nil || !entries[1].PublishedAt.Equal(want2) {
		t.Errorf("entries[1].PublishedAt = %v, want %v", entries[1].PublishedAt, want2)
	}
}

func TestParse_Datetime_UnparseableLeavesPublishedAtNil(t *testing.T) {
	rss := `<rss version="2.0"><channel>
    <item><title>Bad Date</title><link>https://example.com/1</link><pubDate>not a date</pubDate></item>
  </channel></rss>`

	entries, _, err := feedparser.Parse([]byte(rss))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if entries[0].PublishedAt != nil {
		t.Errorf("PublishedAt = %v, want nil for an unparseable date string", entries[0].PublishedAt)
	}
}

func TestParse_SummaryPrefersDescriptionOverContentEncoded(t *testing.T) {
	rss := `<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/"><channel>
    <item>
      <title>Summary Priority</title>
      <link>https://example.com/1</link>
      <description>Short description</description>
      <content:encoded><![CDATA[Full <b>content</b> body]]></content:encoded>
    </item>
  </channel></rss>`

	entries, _, err := feedparser.Parse([]byte(rss))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if entries[0].Summary != "Short description" {
		t.Errorf("Summary = %q, want the plain <description> field preferred over content:encoded", entries[0].Summary)
	}
}

func TestParse_SummaryFallsBackToContentEncodedStripped(t *testing.T) {
	rss := `<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/"><channel>
    <item>
      <title>No Description</title>
      <link>https://example.com/2</link>
      <content:encoded><![CDATA[<p>Full content body</p>]]></content:encoded>
    </item>
  </channel></rss>`

	entries, _, err := feedparser.Parse([]byte(rss))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if entries[0].Summary != "Full content body" {
		t.Errorf("Summary = %q, want the HTML tags stripped from content:encoded", entries[0].Summary)
	}
}

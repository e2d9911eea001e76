// Package feedparser parses RSS and Atom feed payloads into a normalized
// entry list, using namespace-agnostic local-name matching rather than a
// schema-aware feed library, so the image-candidate extraction below can
// walk the raw node tree. Parsing is a pure function from bytes to a typed
// slice of Entry; there is no package-level parser configuration.
package feedparser

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/mail"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Entry is one normalized feed item, before the caller applies any
// domain-level floor rule or deduplication.
type Entry struct {
	Title       string
	URL         string
	Summary     string
	Author      string
	PublishedAt *time.Time
	ImageURL    string
}

var (
	htmlTagRe    = regexp.MustCompile(`<[^>]+>`)
	imageTagRe   = regexp.MustCompile(`(?i)<img\b[^>]*>`)
	digitRe      = regexp.MustCompile(`\d+`)
	punctSpaceRe = regexp.MustCompile(`\s+([,.;:!?])`)

	htmlAttrPatterns = map[string]*regexp.Regexp{
		"src":     regexp.MustCompile(`(?i)\bsrc\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s>]+))`),
		"width":   regexp.MustCompile(`(?i)\bwidth\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s>]+))`),
		"height":  regexp.MustCompile(`(?i)\bheight\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s>]+))`),
		"srcset":  regexp.MustCompile(`(?i)\bsrcset\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s>]+))`),
	}

	entryPublishedAtFields = []string{"pubdate", "published", "updated", "date"}
	lastModifiedFields     = []string{"updated", "lastbuilddate", "pubdate"}
	rssLastModifiedFields  = []string{"lastbuilddate", "pubdate", "updated"}
)

// node is a namespace-agnostic element: local name, lowercased; attributes
// keyed by local name; and content, an ordered mix of text runs and child
// nodes exactly as they appeared, so itertext-style reconstruction stays
// faithful to document order.
type node struct {
	name    string
	attrs   map[string]string
	content []any // string | *node
}

func (n *node) children() []*node {
	out := make([]*node, 0, len(n.content))
	for _, item := range n.content {
		if child, ok := item.(*node); ok {
			out = append(out, child)
		}
	}
	return out
}

// Parse parses RSS/Atom feed content, returning normalized entries and the
// feed's last-modified timestamp, if present.
func Parse(content []byte) ([]Entry, *time.Time, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, nil, fmt.Errorf("empty feed content")
	}

	root, err := parseTree(content)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid XML: %w", err)
	}

	lastModified := extractLastModified(root)

	var entries []Entry
	for _, n := range extractEntryNodes(root) {
		if e := extractEntryPayload(n); e != nil {
			entries = append(entries, *e)
		}
	}
	return entries, lastModified, nil
}

func parseTree(content []byte) (*node, error) {
	decoder := xml.NewDecoder(bytes.NewReader(content))
	decoder.Strict = false
	// Feeds frequently declare non-UTF-8 charsets without the conversion
	// tables to back them; pass bytes through rather than failing the
	// whole parse on a charset label alone.
	decoder.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	var root *node
	var stack []*node

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &node{name: strings.ToLower(t.Name.Local), attrs: attrMap(t.Attr)}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.content = append(parent.content, n)
			} else {
				root = n
			}
			stack = append(stack, n)
		case xml.CharData:
			if len(stack) > 0 {
				cur := stack[len(stack)-1]
				cur.content = append(cur.content, string(t))
			}
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}

	if root == nil {
		return nil, fmt.Errorf("no root element")
	}
	return root, nil
}

func attrMap(attrs []xml.Attr) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		m[strings.ToLower(a.Name.Local)] = a.Value
	}
	return m
}

func allDescendants(n *node) []*node {
	var out []*node
	var walk func(*node)
	walk = func(cur *node) {
		for _, child := range cur.children() {
			out = append(out, child)
			walk(child)
		}
	}
	walk(n)
	return out
}

func allNodesIncludingSelf(n *node) []*node {
	out := []*node{n}
	return append(out, allDescendants(n)...)
}

func itertext(n *node) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	for _, item := range n.content {
		switch v := item.(type) {
		case string:
			sb.WriteString(v)
		case *node:
			sb.WriteString(itertext(v))
		}
	}
	return sb.String()
}

func firstChild(n *node, names map[string]bool) *node {
	for _, child := range n.children() {
		if names[child.name] {
			return child
		}
	}
	return nil
}

func firstText(n *node, names map[string]bool) string {
	for _, child := range n.children() {
		if !names[child.name] {
			continue
		}
		text := cleanText(itertext(child))
		if text != "" {
			return text
		}
	}
	return ""
}

func extractEntryNodes(root *node) []*node {
	switch root.name {
	case "rss":
		channel := firstChild(root, map[string]bool{"channel": true})
		if channel == nil {
			return nil
		}
		var items []*node
		for _, c := range channel.children() {
			if c.name == "item" {
				items = append(items, c)
			}
		}
		return items
	case "feed":
		var entries []*node
		for _, c := range root.children() {
			if c.name == "entry" {
				entries = append(entries, c)
			}
		}
		return entries
	default:
		var out []*node
		for _, n := range allNodesIncludingSelf(root) {
			if n.name == "item" || n.name == "entry" {
				out = append(out, n)
			}
		}
		return out
	}
}

func extractLastModified(root *node) *time.Time {
	if root.name == "rss" {
		if channel := firstChild(root, map[string]bool{"channel": true}); channel != nil {
			if t := parseFirstDatetime(channel, rssLastModifiedFields); t != nil {
				return t
			}
		}
	}
	return parseFirstDatetime(root, lastModifiedFields)
}

func extractEntryPayload(entry *node) *Entry {
	title := firstText(entry, map[string]bool{"title": true})
	url := extractEntryURL(entry)
	if title == "" || url == "" {
		return nil
	}
	return &Entry{
		Title:       title,
		URL:         url,
		Summary:     extractEntrySummary(entry),
		Author:      extractEntryAuthor(entry),
		PublishedAt: parseFirstDatetime(entry, entryPublishedAtFields),
		ImageURL:    extractEntryImageURL(entry),
	}
}

func extractEntryURL(entry *node) string {
	if linkText := firstText(entry, map[string]bool{"link": true}); linkText != "" {
		return linkText
	}

	var fallback string
	for _, link := range entry.children() {
		if link.name != "link" {
			continue
		}
		href := cleanText(link.attrs["href"])
		if href == "" {
			continue
		}
		rel := cleanText(link.attrs["rel"])
		if rel == "" || rel == "alternate" {
			return href
		}
		if fallback == "" {
			fallback = href
		}
	}
	return fallback
}

func extractEntrySummary(entry *node) string {
	if summary := firstText(entry, map[string]bool{"summary": true, "description": true}); summary != "" {
		return summary
	}
	for _, field := range []string{"encoded", "content"} {
		if summary := stripHTMLText(firstText(entry, map[string]bool{field: true})); summary != "" {
			return summary
		}
	}
	return ""
}

func extractEntryAuthor(entry *node) string {
	if authorNode := firstChild(entry, map[string]bool{"author": true}); authorNode != nil {
		if name := stripHTMLText(firstText(authorNode, map[string]bool{"name": true})); name != "" {
			return name
		}
		if inline := stripHTMLText(itertext(authorNode)); inline != "" {
			return inline
		}
	}
	for _, field := range []string{"creator", "author"} {
		if v := stripHTMLText(firstText(entry, map[string]bool{field: true})); v != "" {
			return v
		}
	}
	return ""
}

type imageCandidate struct {
	url    string
	width  *int
	height *int
}

func extractEntryImageURL(entry *node) string {
	var candidates []imageCandidate
	seen := map[string]int{}

	for _, n := range allDescendants(entry) {
		switch n.name {
		case "img":
			appendImageCandidate(&candidates, seen, n.attrs["src"], parseDimension(n.attrs["width"]), parseDimension(n.attrs["height"]), n.attrs["srcset"])
		case "thumbnail", "content", "enclosure", "image":
			imgURL := n.attrs["url"]
			if imgURL == "" {
				imgURL = n.attrs["href"]
			}
			appendImageCandidate(&candidates, seen, imgURL, parseDimension(n.attrs["width"]), parseDimension(n.attrs["height"]), n.attrs["srcset"])
		}
	}

	for _, field := range []string{"encoded", "content", "description", "summary"} {
		appendHTMLImageCandidates(&candidates, seen, firstText(entry, map[string]bool{field: true}))
	}

	if len(candidates) == 0 {
		return ""
	}

	var best *imageCandidate
	for i := range candidates {
		c := &candidates[i]
		if c.width == nil {
			continue
		}
		if best == nil || *c.width > *best.width || (*c.width == *best.width && dereferenceOrZero(c.height) > dereferenceOrZero(best.height)) {
			best = c
		}
	}
	if best != nil {
		return best.url
	}
	return candidates[0].url
}

func appendImageCandidate(candidates *[]imageCandidate, seen map[string]int, rawImageURL string, width, height *int, rawSrcset string) {
	if rawImageURL != "" {
		cleanedURL := cleanText(html.UnescapeString(rawImageURL))
		if cleanedURL != "" {
			queryWidth, queryHeight := extractImageDimensionsFromQuery(cleanedURL)
			candWidth := maxDimension(width, queryWidth)
			candHeight := maxDimension(height, queryHeight)
			if idx, ok := seen[cleanedURL]; ok {
				prev := (*candidates)[idx]
				(*candidates)[idx] = imageCandidate{
					url:    prev.url,
					width:  maxDimension(prev.width, candWidth),
					height: maxDimension(prev.height, candHeight),
				}
			} else {
				*candidates = append(*candidates, imageCandidate{url: cleanedURL, width: candWidth, height: candHeight})
				seen[cleanedURL] = len(*candidates) - 1
			}
		}
	}

	cleanedSrcset := cleanText(html.UnescapeString(rawSrcset))
	if cleanedSrcset == "" {
		return
	}
	for _, raw := range strings.Split(cleanedSrcset, ",") {
		candidate := cleanText(raw)
		if candidate == "" {
			continue
		}
		imgURL, descriptor := splitFirstWhitespace(candidate)
		appendImageCandidate(candidates, seen, imgURL, parseSrcsetWidth(descriptor), height, "")
	}
}

func appendHTMLImageCandidates(candidates *[]imageCandidate, seen map[string]int, value string) {
	cleaned := cleanText(value)
	if cleaned == "" {
		return
	}
	for _, tag := range imageTagRe.FindAllString(cleaned, -1) {
		appendImageCandidate(
			candidates, seen,
			extractHTMLAttribute(tag, "src"),
			parseDimension(extractHTMLAttribute(tag, "width")),
			parseDimension(extractHTMLAttribute(tag, "height")),
			extractHTMLAttribute(tag, "srcset"),
		)
	}
}

func extractHTMLAttribute(tag, attrName string) string {
	re, ok := htmlAttrPatterns[attrName]
	if !ok {
		return ""
	}
	m := re.FindStringSubmatch(tag)
	if m == nil {
		return ""
	}
	for _, g := range m[1:] {
		if g != "" {
			return cleanText(html.UnescapeString(g))
		}
	}
	return ""
}

func extractImageDimensionsFromQuery(imageURL string) (*int, *int) {
	parsed, err := url.Parse(imageURL)
	if err != nil || parsed.RawQuery == "" {
		return nil, nil
	}

	var width, height *int
	for _, pair := range strings.Split(parsed.RawQuery, "&") {
		if pair == "" {
			continue
		}
		kv := strings.SplitN(pair, "=", 2)
		key, err := url.QueryUnescape(kv[0])
		if err != nil {
			continue
		}
		var value string
		if len(kv) == 2 {
			if value, err = url.QueryUnescape(kv[1]); err != nil {
				continue
			}
		}
		if value == "" {
			continue
		}
		switch strings.ToLower(key) {
		case "w", "width":
			width = maxDimension(width, parseDimension(value))
		case "h", "height":
			height = maxDimension(height, parseDimension(value))
		}
	}
	return width, height
}

func splitFirstWhitespace(s string) (first, rest string) {
	idx := strings.IndexAny(s, " \t\n\r\f\v")
	if idx == -1 {
		return s, ""
	}
	return s[:idx], strings.TrimSpace(s[idx+1:])
}

func parseSrcsetWidth(descriptor string) *int {
	d := cleanText(descriptor)
	if d == "" {
		return nil
	}
	lower := strings.ToLower(d)
	if !strings.HasSuffix(lower, "w") {
		return nil
	}
	return parseDimension(lower[:len(lower)-1])
}

func parseDimension(value string) *int {
	digits := digitRe.FindString(value)
	if digits == "" {
		return nil
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}

func maxDimension(values ...*int) *int {
	var resolved *int
	for _, v := range values {
		if v == nil || *v <= 0 {
			continue
		}
		if resolved == nil || *v > *resolved {
			val := *v
			resolved = &val
		}
	}
	return resolved
}

func dereferenceOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func parseFirstDatetime(n *node, fieldNames []string) *time.Time {
	for _, field := range fieldNames {
		if t := parseDatetime(firstText(n, map[string]bool{field: true})); t != nil {
			return t
		}
	}
	return nil
}

func parseDatetime(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	if t, err := mail.ParseDate(value); err == nil {
		u := t.UTC()
		return &u
	}

	isoValue := value
	if strings.HasSuffix(isoValue, "Z") {
		isoValue = strings.TrimSuffix(isoValue, "Z") + "+00:00"
	}
	layouts := []string{
		"2006-01-02T15:04:05.999999999-07:00",
		"2006-01-02T15:04:05-07:00",
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, isoValue); err == nil {
			u := t.UTC()
			return &u
		}
	}
	return nil
}

func stripHTMLText(value string) string {
	cleaned := cleanText(value)
	if cleaned == "" {
		return ""
	}
	withoutTags := htmlTagRe.ReplaceAllString(html.UnescapeString(cleaned), " ")
	normalized := strings.Join(strings.Fields(withoutTags), " ")
	normalized = punctSpaceRe.ReplaceAllString(normalized, "$1")
	return cleanText(normalized)
}

func cleanText(value string) string {
	return strings.TrimSpace(value)
}

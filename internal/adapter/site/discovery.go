// Package site scrapes power interruption announcements from the
// cooperative's WordPress site: the category index for announcement
// links, each announcement page for its publish date and notice images.
package site

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html"

	"github.com/couchcryptid/outage-notice-etl/internal/domain"
	"github.com/couchcryptid/outage-notice-etl/internal/observability"
)

// Discoverer scrapes the announcement index and detail pages.
type Discoverer struct {
	base        *url.URL
	categoryURL string
	http        *resty.Client
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewDiscoverer creates a site scraper. baseURL anchors relative links;
// categoryURL is the announcement index page.
func NewDiscoverer(baseURL, categoryURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) (*Discoverer, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse site base URL: %w", err)
	}

	return &Discoverer{
		base:        base,
		categoryURL: categoryURL,
		http:        resty.New().SetTimeout(timeout),
		logger:      logger,
		metrics:     metrics,
	}, nil
}

// Discover scrapes up to limit announcements from the category index,
// newest first as the site lists them. limit <= 0 means no limit. A
// failed detail-page fetch fails the whole discovery; partial indexes
// would silently drop notices.
func (d *Discoverer) Discover(ctx context.Context, limit int) ([]domain.Announcement, error) {
	doc, err := d.fetchDocument(ctx, d.categoryURL)
	if err != nil {
		return nil, fmt.Errorf("fetch category index: %w", err)
	}

	links := indexLinks(doc)
	if limit > 0 && len(links) > limit {
		links = links[:limit]
	}

	announcements := make([]domain.Announcement, 0, len(links))
	for _, link := range links {
		link.url = resolveURL(link.url, d.base)
		ann, err := d.scrapeDetail(ctx, link)
		if err != nil {
			return nil, err
		}
		announcements = append(announcements, ann)
		d.metrics.NoticesDiscovered.Inc()
	}

	d.logger.Info("discovered announcements", "count", len(announcements))
	return announcements, nil
}

// FetchImage downloads one notice image.
func (d *Discoverer) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	resp, err := d.http.R().SetContext(ctx).Get(imageURL)
	if err != nil {
		return nil, fmt.Errorf("fetch image %s: %w", imageURL, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch image %s: status %d", imageURL, resp.StatusCode())
	}
	return resp.Body(), nil
}

type indexLink struct {
	title string
	url   string
}

func (d *Discoverer) scrapeDetail(ctx context.Context, link indexLink) (domain.Announcement, error) {
	doc, err := d.fetchDocument(ctx, link.url)
	if err != nil {
		return domain.Announcement{}, fmt.Errorf("fetch announcement %s: %w", link.url, err)
	}

	ann := domain.Announcement{
		Title:       link.title,
		URL:         link.url,
		PublishDate: publishDate(doc),
		ImageURLs:   d.contentImages(doc),
	}

	d.logger.Debug("scraped announcement",
		"title", ann.Title, "images", len(ann.ImageURLs), "published", ann.PublishDate)
	return ann, nil
}

func (d *Discoverer) fetchDocument(ctx context.Context, pageURL string) (*html.Node, error) {
	resp, err := d.http.R().SetContext(ctx).Get(pageURL)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("status %d from %s", resp.StatusCode(), pageURL)
	}
	return html.Parse(bytes.NewReader(resp.Body()))
}

// indexLinks collects the announcement anchors from the category page,
// one per article heading.
func indexLinks(doc *html.Node) []indexLink {
	var links []indexLink
	for _, article := range findAll(doc, func(n *html.Node) bool { return n.Data == "article" }) {
		for _, h2 := range findAll(article, func(n *html.Node) bool { return n.Data == "h2" }) {
			a := findFirst(h2, func(n *html.Node) bool { return n.Data == "a" })
			if a == nil {
				continue
			}
			href := attrValue(a, "href")
			if href == "" {
				continue
			}
			links = append(links, indexLink{
				title: strings.TrimSpace(textContent(a)),
				url:   href,
			})
			break
		}
	}
	return links
}

// publishDate reads the announcement's <time datetime=...> tag. An
// absent or unparsable stamp falls back to the current date.
func publishDate(doc *html.Node) time.Time {
	tag := findFirst(doc, func(n *html.Node) bool {
		return n.Data == "time" && attrValue(n, "datetime") != ""
	})
	if tag != nil {
		stamp := attrValue(tag, "datetime")
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, stamp); err == nil {
				return t.UTC().Truncate(24 * time.Hour)
			}
		}
	}
	return domain.Today()
}

// contentImages resolves the real image URL for every img tag inside the
// announcement body, deduplicated in document order.
func (d *Discoverer) contentImages(doc *html.Node) []string {
	content := findFirst(doc, func(n *html.Node) bool {
		return n.Data == "div" && hasClass(n, "entry-content")
	})
	if content == nil {
		return nil
	}

	var urls []string
	seen := make(map[string]struct{})
	for _, img := range findAll(content, func(n *html.Node) bool { return n.Data == "img" }) {
		real, ok := pickRealImageURL(img, d.base)
		if !ok {
			continue
		}
		if _, dup := seen[real]; dup {
			continue
		}
		seen[real] = struct{}{}
		urls = append(urls, real)
	}
	return urls
}

func findFirst(n *html.Node, pred func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && pred(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, pred); found != nil {
			return found
		}
	}
	return nil
}

func findAll(n *html.Node, pred func(*html.Node) bool) []*html.Node {
	var nodes []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && pred(n) {
			nodes = append(nodes, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return nodes
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attrValue(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

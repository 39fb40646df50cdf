package site

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Lazy-loading plugins hide the real URL behind data-* attributes and
// leave a placeholder in src, so the data-* candidates come first.
var lazyAttrs = []string{"data-lazy-src", "data-src", "data-orig-file", "src"}

// Only original uploads count; theme assets and off-site images do not.
var uploadsPattern = regexp.MustCompile(`(?i)/wp-content/uploads/.*\.(png|jpe?g)$`)

// pickRealImageURL resolves an img tag to the full-size upload it shows.
// Candidates are tried in order: the lazy-load attributes, the last
// (largest) srcset entry, then the parent anchor's href. The first
// candidate that resolves to an absolute uploads URL wins.
func pickRealImageURL(img *html.Node, base *url.URL) (string, bool) {
	var candidates []string
	for _, attr := range lazyAttrs {
		if v := attrValue(img, attr); v != "" {
			candidates = append(candidates, v)
		}
	}

	if srcset := attrValue(img, "srcset"); srcset != "" {
		entries := strings.Split(srcset, ",")
		if fields := strings.Fields(entries[len(entries)-1]); len(fields) > 0 {
			candidates = append(candidates, fields[0])
		}
	}

	if p := img.Parent; p != nil && p.Type == html.ElementNode && p.Data == "a" {
		if href := attrValue(p, "href"); href != "" {
			candidates = append(candidates, href)
		}
	}

	for _, c := range candidates {
		if strings.HasPrefix(c, "data:") {
			continue
		}
		abs := resolveURL(c, base)
		if uploadsPattern.MatchString(abs) {
			return abs, true
		}
	}
	return "", false
}

func resolveURL(raw string, base *url.URL) string {
	if strings.HasPrefix(raw, "http") {
		return raw
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return base.ResolveReference(ref).String()
}

package fetcher

import (
	"bytes"
	"net/url"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

// ExtractedPage is what the fetcher hands to the indexer: a title, a
// normalized body text, and the outbound links discovered on the page.
type ExtractedPage struct {
	Title string
	Body  string
	Links []url.URL
}

// ExtractPage parses an HTML document and pulls out the title, a
// whitespace-collapsed text rendering of the body, and every http/https
// link reachable from the page, resolved against baseURL.
func ExtractPage(baseURL url.URL, body []byte) (ExtractedPage, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ExtractedPage{}, err
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	bodyText := collapseWhitespace(doc.Find("body").Text())
	links := extractLinks(doc, baseURL)

	return ExtractedPage{
		Title: title,
		Body:  bodyText,
		Links: links,
	}, nil
}

func extractLinks(doc *goquery.Document, baseURL url.URL) []url.URL {
	seen := make(map[string]struct{})
	var links []url.URL

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
			return
		}

		parsed, err := url.Parse(href)
		if err != nil {
			return
		}
		resolved := baseURL.ResolveReference(parsed)
		resolved.Fragment = ""

		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}

		key := resolved.String()
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		links = append(links, *resolved)
	})

	return links
}

// collapseWhitespace turns runs of whitespace (including newlines from
// block-level elements) into single spaces, matching how a reader would
// perceive rendered text.
func collapseWhitespace(s string) string {
	var b strings.Builder
	lastWasSpace := true
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				b.WriteByte(' ')
			}
			lastWasSpace = true
			continue
		}
		b.WriteRune(r)
		lastWasSpace = false
	}
	return strings.TrimSpace(b.String())
}

package scraper

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/ibeckermayer/selectbot/internal/types"
)

// BaseURL is prepended to relative status links
const BaseURL = "https://x.com"

var (
	statusRe     = regexp.MustCompile(`^(.*?/status/(\d+))`)
	handleHrefRe = regexp.MustCompile(`^/([^/?]+)`)
	handleURLRe  = regexp.MustCompile(`(?:twitter\.com|x\.com)/([^/?#]+)`)
	metricRe     = regexp.MustCompile(`^([\d,.]+[KkMm]?)`)
)

// Words that mark a block of text as UI chrome rather than a reply
var simpleSkipWords = []string{"Show this thread", "Retweet", "Like", "Follow"}

func parseDocument(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page HTML: %w", err)
	}
	return doc, nil
}

// containers returns the matches of the first chain entry yielding more than
// min elements.
func containers(doc *goquery.Document, min int) *goquery.Selection {
	for _, sel := range PostContainers {
		found := doc.Find(sel)
		if found.Length() > min {
			return found
		}
	}
	return nil
}

// firstText returns the trimmed text of the first non-empty match in chain
func firstText(s *goquery.Selection, chain []string) string {
	for _, sel := range chain {
		var text string
		s.Find(sel).EachWithBreak(func(_ int, el *goquery.Selection) bool {
			text = strings.TrimSpace(el.Text())
			return text == ""
		})
		if text != "" {
			return text
		}
	}
	return ""
}

// statusLink returns the post id and canonical absolute URL of the first
// status link inside s.
func statusLink(s *goquery.Selection) (id, url string) {
	for _, sel := range PostLink {
		var found bool
		s.Find(sel).EachWithBreak(func(_ int, el *goquery.Selection) bool {
			href, _ := el.Attr("href")
			if !strings.Contains(href, StatusPath) {
				return true
			}
			m := statusRe.FindStringSubmatch(href)
			if m == nil {
				return true
			}
			id = m[2]
			url = absoluteURL(m[1])
			found = true
			return false
		})
		if found {
			return id, url
		}
	}
	return "", ""
}

func absoluteURL(href string) string {
	if strings.HasPrefix(href, "http") {
		return href
	}
	return BaseURL + href
}

// authorHandle returns "@handle" for the first profile link in s
func authorHandle(s *goquery.Selection) string {
	for _, sel := range AuthorLink {
		var handle string
		s.Find(sel).EachWithBreak(func(_ int, el *goquery.Selection) bool {
			href, _ := el.Attr("href")
			if href == "" || href == "/" ||
				strings.Contains(href, StatusPath) ||
				strings.Contains(href, "/photo/") ||
				strings.Contains(href, "/hashtag/") {
				return true
			}
			m := handleHrefRe.FindStringSubmatch(href)
			if m == nil || len(m[1]) >= 20 {
				return true
			}
			handle = "@" + m[1]
			return false
		})
		if handle != "" {
			return handle
		}
	}
	return ""
}

func timestamp(s *goquery.Selection, fallback time.Time) time.Time {
	raw, ok := s.Find(PostTimestamp).First().Attr("datetime")
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return fallback
	}
	return parsed
}

// metric reads an engagement count from the aria-label ("12 Likes") or text
func metric(s *goquery.Selection, testID string) int {
	el := s.Find(fmt.Sprintf(`[data-testid="%s"]`, testID)).First()
	if el.Length() == 0 {
		return 0
	}
	if label, ok := el.Attr("aria-label"); ok && label != "" {
		if m := metricRe.FindStringSubmatch(label); m != nil {
			return parseMetric(m[1])
		}
		return 0
	}
	return parseMetric(el.Text())
}

// ExtractPosts pulls the user's own posts out of a profile page snapshot.
// At most 3*count containers are inspected; retweets, mentions and very
// short texts are skipped.
func ExtractPosts(html string, count int, now time.Time) ([]types.Post, error) {
	doc, err := parseDocument(html)
	if err != nil {
		return nil, err
	}

	found := containers(doc, 0)
	if found == nil || count <= 0 {
		return []types.Post{}, nil
	}

	posts := make([]types.Post, 0, count)
	seenIDs := make(map[string]bool)
	limit := min(found.Length(), count*3)

	for i := 0; i < limit && len(posts) < count; i++ {
		el := found.Eq(i)

		text := firstText(el, PostText)
		if utf8.RuneCountInString(text) < 5 {
			continue
		}
		if strings.HasPrefix(text, "RT @") || strings.HasPrefix(text, "@") {
			continue
		}
		if utf8.RuneCountInString(text) <= 10 {
			continue
		}

		id, url := statusLink(el)
		if id == "" {
			id = fmt.Sprintf("tweet_%d_%d", now.UnixMilli(), i)
		}
		if seenIDs[id] {
			continue
		}
		seenIDs[id] = true

		posts = append(posts, types.Post{
			ID:   id,
			Text: text,
			Time: timestamp(el, now),
			URL:  url,
			Stats: types.Stats{
				Likes:    metric(el, "like"),
				Retweets: metric(el, "retweet"),
				Replies:  metric(el, "reply"),
			},
			ScrapedAt: now,
		})
	}

	return posts, nil
}

// ExtractComments pulls replies out of a thread page snapshot. The first
// container is the post itself and is skipped.
func ExtractComments(html string, max int, now time.Time) ([]types.Comment, error) {
	doc, err := parseDocument(html)
	if err != nil {
		return nil, err
	}

	found := containers(doc, 1)
	if found == nil {
		return []types.Comment{}, nil
	}

	comments := make([]types.Comment, 0)
	for i := 1; i < found.Length() && len(comments) < max; i++ {
		el := found.Eq(i)

		text := firstText(el, ReplyText)
		if utf8.RuneCountInString(text) < 3 {
			continue
		}

		author := authorHandle(el)
		foundUsername := author != ""
		if !foundUsername {
			author = fmt.Sprintf("@User%d", i)
		}

		id, url := statusLink(el)
		if id == "" {
			id = fmt.Sprintf("reply_%d_%d", now.UnixMilli(), i)
		}

		comments = append(comments, types.Comment{
			ID:        id,
			Author:    author,
			Text:      text,
			Timestamp: timestamp(el, now),
			URL:       url,
			Debug: &types.Debug{
				ElementIndex:  i,
				FoundUsername: foundUsername,
				TextLength:    utf8.RuneCountInString(text),
			},
		})
	}

	return comments, nil
}

// ExtractCommentsSimple is the last-resort extractor for when the structured
// selectors find nothing: any reasonably sized block of prose counts.
func ExtractCommentsSimple(html string, max int, now time.Time) ([]types.Comment, error) {
	doc, err := parseDocument(html)
	if err != nil {
		return nil, err
	}

	comments := make([]types.Comment, 0)
	seen := make(map[string]bool)

	doc.Find(`div[lang], [data-testid="tweetText"], span`).EachWithBreak(func(_ int, el *goquery.Selection) bool {
		text := strings.TrimSpace(el.Text())
		n := utf8.RuneCountInString(text)
		if n < 20 || n > 500 || seen[text] {
			return true
		}
		for _, w := range simpleSkipWords {
			if strings.Contains(text, w) {
				return true
			}
		}
		words := len(strings.Fields(text))
		if words < 5 || words > 50 {
			return true
		}

		seen[text] = true
		comments = append(comments, types.Comment{
			ID:        fmt.Sprintf("simple_reply_%d_%d", now.UnixMilli(), len(comments)),
			Author:    fmt.Sprintf("@TwitterUser%d", len(comments)+1),
			Text:      text,
			Timestamp: now,
		})
		return len(comments) < max
	})

	return comments, nil
}

// HandleFromURL extracts the profile handle from an x.com or twitter.com URL
func HandleFromURL(url string) string {
	m := handleURLRe.FindStringSubmatch(url)
	if m == nil {
		return ""
	}
	return profileHandle(m[1])
}

// HandleFromHTML reads the logged-in handle from the side nav profile link
func HandleFromHTML(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse page: %w", err)
	}
	href, ok := doc.Find(ProfileLink).First().Attr("href")
	if !ok {
		return "", nil
	}
	if m := handleURLRe.FindStringSubmatch(href); m != nil {
		return profileHandle(m[1]), nil
	}
	first, _, _ := strings.Cut(strings.TrimPrefix(href, "/"), "/")
	first, _, _ = strings.Cut(first, "?")
	return profileHandle(first), nil
}

func profileHandle(segment string) string {
	switch segment {
	case "", "home", "i", "login", "explore", "notifications", "messages":
		return ""
	}
	return segment
}

// parseMetric converts abbreviated metric strings like "1.2K", "5.7M", or "423" to integers
func parseMetric(s string) int {
	if s == "" {
		return 0
	}

	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")

	multiplier := 1.0
	if strings.HasSuffix(strings.ToUpper(s), "K") {
		multiplier = 1000
		s = s[:len(s)-1]
	} else if strings.HasSuffix(strings.ToUpper(s), "M") {
		multiplier = 1000000
		s = s[:len(s)-1]
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}

	return int(value * multiplier)
}

package youtube

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ClipPilot/internal/domain"
	"ClipPilot/internal/ports"
)

// ScrapeSource is the no-API-key fallback: it crawls the search page of an
// Invidious-compatible front end. Like counts are not exposed on result
// pages, so they stay zero and the heuristic ranker scores on views alone.
type ScrapeSource struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

var _ ports.VideoSource = (*ScrapeSource)(nil)

// NewScrapeSource wires an HTTP client; a nil client gets a 20s timeout default.
func NewScrapeSource(baseURL string, client *http.Client, logger *slog.Logger) *ScrapeSource {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ScrapeSource{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
		logger:  logger,
	}
}

// Search fetches and parses one results page for the genre.
func (s *ScrapeSource) Search(ctx context.Context, genre string, maxResults int) ([]domain.Candidate, error) {
	if maxResults <= 0 {
		maxResults = 10
	}

	pageURL := fmt.Sprintf("%s/search?q=%s", s.baseURL, url.QueryEscape(genre+" viral trending"))
	doc, err := s.fetchDocument(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("genre %s: %w", genre, err)
	}

	candidates := parseResults(doc, s.baseURL)
	if len(candidates) > maxResults {
		candidates = candidates[:maxResults]
	}
	s.logger.Debug("scrape done", "genre", genre, "candidates", len(candidates))
	return candidates, nil
}

func (s *ScrapeSource) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "ClipPilot/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search page returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

func parseResults(doc *goquery.Document, baseURL string) []domain.Candidate {
	var results []domain.Candidate
	seen := map[string]struct{}{}

	doc.Find("div.h-box").Each(func(i int, box *goquery.Selection) {
		link := box.Find("a[href^=\"/watch\"]").First()
		href, exists := link.Attr("href")
		if !exists {
			return
		}

		id := videoIDFromHref(href)
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}

		title := strings.TrimSpace(link.Find("p[dir=\"auto\"]").First().Text())
		if title == "" {
			title = strings.TrimSpace(link.Text())
		}

		channel := strings.TrimSpace(box.Find("p.channel-name").First().Text())

		var duration, views string
		box.Find(".video-data, .length").Each(func(_ int, data *goquery.Selection) {
			text := strings.TrimSpace(data.Text())
			switch {
			case strings.Contains(text, "views"):
				views = text
			case strings.Contains(text, ":"):
				duration = text
			}
		})

		thumb, _ := box.Find("img").First().Attr("src")
		if thumb != "" && !strings.HasPrefix(thumb, "http") {
			thumb = baseURL + thumb
		}

		results = append(results, domain.Candidate{
			ID:           id,
			Title:        title,
			Channel:      channel,
			URL:          "https://www.youtube.com/watch?v=" + id,
			ThumbnailURL: thumb,
			Views:        parseViews(views),
			Duration:     parseClock(duration),
		})
	})

	return results
}

func videoIDFromHref(href string) string {
	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return parsed.Query().Get("v")
}

// parseViews reads strings like "1.2M views" or "53,412 views".
func parseViews(text string) int64 {
	text = strings.ToLower(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "views")))
	text = strings.ReplaceAll(text, ",", "")
	if text == "" {
		return 0
	}

	multiplier := float64(1)
	switch {
	case strings.HasSuffix(text, "k"):
		multiplier = 1e3
		text = strings.TrimSuffix(text, "k")
	case strings.HasSuffix(text, "m"):
		multiplier = 1e6
		text = strings.TrimSuffix(text, "m")
	case strings.HasSuffix(text, "b"):
		multiplier = 1e9
		text = strings.TrimSuffix(text, "b")
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0
	}
	return int64(value * multiplier)
}

// parseClock reads "MM:SS" or "H:MM:SS" into seconds.
func parseClock(text string) int {
	parts := strings.Split(strings.TrimSpace(text), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0
	}

	total := 0
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return 0
		}
		total = total*60 + n
	}
	return total
}

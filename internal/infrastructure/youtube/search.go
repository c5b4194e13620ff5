package youtube

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"ClipPilot/internal/domain"
	"ClipPilot/internal/ports"
)

// SearchClient finds trending videos for a genre via the YouTube Data API v3.
type SearchClient struct {
	svc    *yt.Service
	logger *slog.Logger
}

var _ ports.VideoSource = (*SearchClient)(nil)

// NewSearchClient builds the Data API service with an API key.
func NewSearchClient(ctx context.Context, apiKey string, logger *slog.Logger) (*SearchClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("youtube api key is required")
	}
	svc, err := yt.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("build youtube service: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchClient{svc: svc, logger: logger}, nil
}

// Search queries short viral videos for the genre, ordered by view count,
// then hydrates statistics and duration with a second details call.
func (c *SearchClient) Search(ctx context.Context, genre string, maxResults int) ([]domain.Candidate, error) {
	if maxResults <= 0 {
		maxResults = 10
	}

	query := fmt.Sprintf("%s viral trending", genre)
	resp, err := c.svc.Search.List([]string{"snippet"}).
		Q(query).
		Type("video").
		MaxResults(int64(maxResults)).
		Order("viewCount").
		VideoDuration("short").
		RelevanceLanguage("en").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("youtube search: %w", err)
	}

	ids := make([]string, 0, len(resp.Items))
	snippets := make(map[string]*yt.SearchResultSnippet, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" {
			continue
		}
		ids = append(ids, item.Id.VideoId)
		snippets[item.Id.VideoId] = item.Snippet
	}
	if len(ids) == 0 {
		return nil, nil
	}

	details, err := c.svc.Videos.List([]string{"statistics", "contentDetails"}).
		Id(ids...).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("youtube video details: %w", err)
	}

	candidates := make([]domain.Candidate, 0, len(details.Items))
	for _, item := range details.Items {
		snippet := snippets[item.Id]
		if snippet == nil || item.Statistics == nil || item.ContentDetails == nil {
			continue
		}

		publishedAt, _ := time.Parse(time.RFC3339, snippet.PublishedAt)
		candidate := domain.Candidate{
			ID:          item.Id,
			Title:       snippet.Title,
			Description: snippet.Description,
			Channel:     snippet.ChannelTitle,
			URL:         "https://www.youtube.com/watch?v=" + item.Id,
			Views:       int64(item.Statistics.ViewCount),
			Likes:       int64(item.Statistics.LikeCount),
			Comments:    int64(item.Statistics.CommentCount),
			Duration:    ParseISODuration(item.ContentDetails.Duration),
			PublishedAt: publishedAt,
		}
		if snippet.Thumbnails != nil && snippet.Thumbnails.High != nil {
			candidate.ThumbnailURL = snippet.Thumbnails.High.Url
		}
		candidates = append(candidates, candidate)
	}

	c.logger.Debug("search done", "genre", genre, "candidates", len(candidates))
	return candidates, nil
}

// ParseISODuration converts an ISO-8601 duration like "PT1M3S" to seconds.
// Malformed input yields zero.
func ParseISODuration(value string) int {
	rest, ok := strings.CutPrefix(value, "PT")
	if !ok {
		return 0
	}

	total := 0
	number := 0
	for _, r := range rest {
		switch {
		case r >= '0' && r <= '9':
			number = number*10 + int(r-'0')
		case r == 'H':
			total += number * 3600
			number = 0
		case r == 'M':
			total += number * 60
			number = 0
		case r == 'S':
			total += number
			number = 0
		default:
			return 0
		}
	}
	return total
}

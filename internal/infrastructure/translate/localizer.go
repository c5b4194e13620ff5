package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ClipPilot/internal/domain"
	"ClipPilot/internal/ports"
)

const (
	maxDescriptionLen = 500
	captionEmojis     = "🔥💯✨🎯"
	maxHashtags       = 8
)

// Localizer translates selection metadata with the free web translate
// endpoint. Translation failures fall back to the original text; nothing in
// localization is fatal to a cycle.
type Localizer struct {
	endpoint string
	source   string
	target   string
	client   *http.Client
	logger   *slog.Logger
}

var _ ports.Localizer = (*Localizer)(nil)

// NewLocalizer wires the endpoint and language pair.
func NewLocalizer(endpoint, source, target string, logger *slog.Logger) *Localizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Localizer{
		endpoint: endpoint,
		source:   source,
		target:   target,
		client:   &http.Client{Timeout: 15 * time.Second},
		logger:   logger,
	}
}

// Localize derives localized metadata for one selection. The suggested
// title from ranking wins over a fresh translation when present.
func (l *Localizer) Localize(ctx context.Context, selection domain.RankedSelection) (domain.LocalizedMetadata, error) {
	info := selection.Candidate

	title := selection.SuggestedTitle
	if title == "" {
		title = l.translate(ctx, info.Title)
	}

	// Truncate on rune boundaries so multibyte text stays valid UTF-8.
	description := info.Description
	if runes := []rune(description); len(runes) > maxDescriptionLen {
		description = string(runes[:maxDescriptionLen])
	}
	description = l.translate(ctx, description)

	hashtags := selection.Hashtags
	if len(hashtags) == 0 {
		hashtags = GenerateHashtags(info.Title)
	}
	if len(hashtags) > maxHashtags {
		hashtags = hashtags[:maxHashtags]
	}

	return domain.LocalizedMetadata{
		Title:               title,
		Description:         description,
		Caption:             fmt.Sprintf("%s %s", title, captionEmojis),
		Hashtags:            hashtags,
		OriginalTitle:       info.Title,
		OriginalDescription: info.Description,
	}, nil
}

// translate returns the translated text, or the original when the endpoint
// fails or returns something unusable.
func (l *Localizer) translate(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	query := url.Values{}
	query.Set("client", "gtx")
	query.Set("sl", l.source)
	query.Set("tl", l.target)
	query.Set("dt", "t")
	query.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		l.logger.Warn("translate request build failed", "error", err)
		return text
	}

	resp, err := l.client.Do(req)
	if err != nil {
		l.logger.Warn("translate request failed", "error", err)
		return text
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		l.logger.Warn("translate returned non-OK", "status", resp.Status)
		return text
	}

	translated, err := decodeTranslation(resp.Body)
	if err != nil || translated == "" {
		l.logger.Warn("translate decode failed", "error", err)
		return text
	}
	return translated
}

// decodeTranslation parses the nested-array payload of the gtx endpoint:
// [[["translated","original",...],...],...]. Sentence fragments are joined
// in order.
func decodeTranslation(body io.Reader) (string, error) {
	var payload []any
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode payload: %w", err)
	}
	if len(payload) == 0 {
		return "", fmt.Errorf("empty payload")
	}

	sentences, ok := payload[0].([]any)
	if !ok {
		return "", fmt.Errorf("unexpected payload shape")
	}

	var out strings.Builder
	for _, entry := range sentences {
		fragment, ok := entry.([]any)
		if !ok || len(fragment) == 0 {
			continue
		}
		if text, ok := fragment[0].(string); ok {
			out.WriteString(text)
		}
	}
	return out.String(), nil
}

// GenerateHashtags derives hashtags from keywords in a title, always
// starting from the evergreen defaults.
func GenerateHashtags(title string) []string {
	hashtags := []string{"#fyp", "#viral", "#trending"}
	lower := strings.ToLower(title)

	if strings.Contains(lower, "gaming") || strings.Contains(lower, "game") {
		hashtags = append(hashtags, "#gaming", "#games", "#gamers")
	}
	if strings.Contains(lower, "funny") || strings.Contains(lower, "comedy") {
		hashtags = append(hashtags, "#funny", "#comedy", "#lucu")
	}
	if strings.Contains(lower, "tutorial") || strings.Contains(lower, "how to") {
		hashtags = append(hashtags, "#tutorial", "#howto", "#tips")
	}

	if len(hashtags) > maxHashtags {
		hashtags = hashtags[:maxHashtags]
	}
	return hashtags
}

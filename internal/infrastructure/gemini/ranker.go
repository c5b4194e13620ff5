package gemini

import (
	"bytes"
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

// Ranker scores virality potential with the Gemini generateContent API and
// degrades to a like/view heuristic when the API is unavailable,
// unconfigured, or returns something unparseable.
type Ranker struct {
	endpoint      string
	model         string
	apiKey        string
	simple        bool
	minViralViews int64
	httpClient    *http.Client
	logger        *slog.Logger
}

var _ ports.Ranker = (*Ranker)(nil)

// Options configures the ranker.
type Options struct {
	Endpoint       string
	Model          string
	APIKey         string
	SimpleAnalysis bool
	MinViralViews  int64
}

// NewRanker builds a ranker from configuration.
func NewRanker(opts Options, logger *slog.Logger) *Ranker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ranker{
		endpoint:      strings.TrimSuffix(opts.Endpoint, "/"),
		model:         opts.Model,
		apiKey:        opts.APIKey,
		simple:        opts.SimpleAnalysis,
		minViralViews: opts.MinViralViews,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		logger:        logger,
	}
}

type verdict struct {
	ViralityScore  int      `json:"virality_score"`
	Recommendation string   `json:"recommendation"`
	Reasoning      string   `json:"reasoning"`
	SuggestedTitle string   `json:"suggested_title_id"`
	Hashtags       []string `json:"hashtags"`
}

// Rank produces a scored selection for one candidate.
func (r *Ranker) Rank(ctx context.Context, candidate domain.Candidate) (domain.RankedSelection, error) {
	if r.simple || r.apiKey == "" {
		return r.heuristic(candidate), nil
	}

	v, err := r.generate(ctx, candidate)
	if err != nil {
		r.logger.Warn("gemini scoring failed, using heuristic", "video", candidate.ID, "error", err)
		return r.heuristic(candidate), nil
	}

	recommendation := domain.RecommendSkip
	if strings.EqualFold(strings.TrimSpace(v.Recommendation), string(domain.RecommendSelect)) {
		recommendation = domain.RecommendSelect
	}

	return domain.RankedSelection{
		Candidate:      candidate,
		Score:          clampScore(v.ViralityScore),
		Recommendation: recommendation,
		Reasoning:      v.Reasoning,
		SuggestedTitle: v.SuggestedTitle,
		Hashtags:       v.Hashtags,
	}, nil
}

func (r *Ranker) generate(ctx context.Context, candidate domain.Candidate) (verdict, error) {
	prompt := buildPrompt(candidate)

	body, err := json.Marshal(map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]string{{"text": prompt}}},
		},
	})
	if err != nil {
		return verdict{}, fmt.Errorf("marshal gemini payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		r.endpoint, r.model, url.QueryEscape(r.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return verdict{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return verdict{}, fmt.Errorf("generate content: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return verdict{}, fmt.Errorf("gemini error %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}

	var payload struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return verdict{}, fmt.Errorf("decode response: %w", err)
	}
	if len(payload.Candidates) == 0 || len(payload.Candidates[0].Content.Parts) == 0 {
		return verdict{}, fmt.Errorf("empty gemini response")
	}

	raw := extractJSON(payload.Candidates[0].Content.Parts[0].Text)
	if raw == "" {
		return verdict{}, fmt.Errorf("no JSON object in gemini response")
	}

	var v verdict
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return verdict{}, fmt.Errorf("parse verdict: %w", err)
	}
	return v, nil
}

// heuristic is the free fallback: score proportional to the like/view
// ratio, capped at 100, select above 50.
func (r *Ranker) heuristic(candidate domain.Candidate) domain.RankedSelection {
	ratio := float64(0)
	if candidate.Views > 0 {
		ratio = float64(candidate.Likes) / float64(candidate.Views) * 100
	}
	score := clampScore(int(ratio * 10))

	recommendation := domain.RecommendSkip
	if score > 50 {
		recommendation = domain.RecommendSelect
	}

	reasoning := fmt.Sprintf("Simple metric analysis. Like/View ratio: %.2f%%", ratio)
	if r.minViralViews > 0 && candidate.Views >= r.minViralViews {
		reasoning += fmt.Sprintf(" Views above viral threshold (%d).", r.minViralViews)
	}

	return domain.RankedSelection{
		Candidate:      candidate,
		Score:          score,
		Recommendation: recommendation,
		Reasoning:      reasoning,
		Hashtags:       []string{"#fyp", "#viral", "#trending"},
	}
}

func buildPrompt(candidate domain.Candidate) string {
	return fmt.Sprintf(`Analyze virality potential for TikTok:
Title: %s
Views: %d
Likes: %d
Respond ONLY in JSON format:
{
    "virality_score": 0-100,
    "recommendation": "select/skip",
    "reasoning": "text",
    "suggested_title_id": "Indonesian title",
    "hashtags": ["#tag1", "#tag2"]
}`, candidate.Title, candidate.Views, candidate.Likes)
}

// extractJSON cuts the text between the first '{' and the last '}', since
// the model wraps its JSON in prose or code fences.
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

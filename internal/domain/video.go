package domain

import "time"

// Candidate is a core entity describing a discovered video eligible for ranking.
// Immutable once fetched from the search capability.
type Candidate struct {
	ID           string
	Title        string
	Description  string
	Channel      string
	URL          string
	ThumbnailURL string
	Views        int64
	Likes        int64
	Comments     int64
	Duration     int // seconds
	PublishedAt  time.Time
}

// Recommendation is the ranking capability's verdict for a candidate.
type Recommendation string

const (
	RecommendSelect Recommendation = "select"
	RecommendSkip   Recommendation = "skip"
)

// RankedSelection captures AI scoring and enrichment for one candidate.
type RankedSelection struct {
	Candidate      Candidate
	Score          int // 0-100
	Recommendation Recommendation
	Reasoning      string
	SuggestedTitle string
	Hashtags       []string
}

// LocalizedMetadata is derived once per selection and never mutated afterwards.
// The original title/description are kept for audit.
type LocalizedMetadata struct {
	Title               string
	Description         string
	Caption             string
	Hashtags            []string
	OriginalTitle       string
	OriginalDescription string
}

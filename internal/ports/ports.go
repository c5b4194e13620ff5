package ports

import (
	"context"
	"time"

	"ClipPilot/internal/domain"
)

// VideoSource pulls trending candidates for a genre from upstream providers.
type VideoSource interface {
	Search(ctx context.Context, genre string, maxResults int) ([]domain.Candidate, error)
}

// MediaFetcher downloads the source media file for a candidate and returns its path.
type MediaFetcher interface {
	Fetch(ctx context.Context, candidate domain.Candidate) (string, error)
}

// Ranker scores a candidate's virality potential.
type Ranker interface {
	Rank(ctx context.Context, candidate domain.Candidate) (domain.RankedSelection, error)
}

// Localizer translates a selection's metadata into the target language.
type Localizer interface {
	Localize(ctx context.Context, selection domain.RankedSelection) (domain.LocalizedMetadata, error)
}

// ThumbnailRenderer produces a thumbnail image file for a selection.
type ThumbnailRenderer interface {
	Render(ctx context.Context, selection domain.RankedSelection, meta domain.LocalizedMetadata) (string, error)
}

// VideoEditor produces the final edited media from source media, caption and thumbnail.
type VideoEditor interface {
	Compose(ctx context.Context, mediaPath, caption, thumbnailPath string) (string, error)
}

// Publisher uploads final media with its metadata to one platform.
type Publisher interface {
	Publish(ctx context.Context, mediaPath string, meta domain.LocalizedMetadata) error
}

// Notifier pushes short operator-facing messages to the configured chat.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Controller is the workflow surface the chat control bots drive. The
// dialogue logic never touches the capabilities directly.
type Controller interface {
	RunOnce(ctx context.Context, genre string) (domain.CycleRun, error)
	RunAsync(genre string) error
	StartLoop() bool
	StopLoop()
	SetDelay(delay time.Duration)
	Status() domain.Status
}

package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"ClipPilot/internal/domain"
	"ClipPilot/internal/ports"
)

// WorkflowDeps wires all driven adapters into the orchestration workflow.
type WorkflowDeps struct {
	Source     ports.VideoSource
	Fetcher    ports.MediaFetcher
	Ranker     ports.Ranker
	Localizer  ports.Localizer
	Thumbnails ports.ThumbnailRenderer
	Editor     ports.VideoEditor
	Publisher  ports.Publisher
	Notifier   ports.Notifier // optional
	Logger     *slog.Logger
}

// WorkflowOptions carries the selection and scheduling parameters.
type WorkflowOptions struct {
	DefaultGenre string
	Platform     string
	MaxDuration  int // seconds
	AnalyzeCount int
	LoopDelay    time.Duration
	MaxLoops     int // -1 means infinite
}

// Workflow orchestrates one pipeline cycle and owns the start/stop state of
// the repeating schedule. Exactly one cycle run may be active at a time;
// the slot is acquired up front, so concurrent manual triggers are rejected
// instead of racing.
type Workflow struct {
	source     ports.VideoSource
	fetcher    ports.MediaFetcher
	ranker     ports.Ranker
	localizer  ports.Localizer
	thumbnails ports.ThumbnailRenderer
	editor     ports.VideoEditor
	publisher  ports.Publisher
	notifier   ports.Notifier
	logger     *slog.Logger
	opts       WorkflowOptions

	mu      sync.Mutex
	delay   time.Duration
	active  bool
	stop    chan struct{}
	busy    bool
	lastRun *domain.CycleRun
}

var _ ports.Controller = (*Workflow)(nil)

// NewWorkflow constructs the orchestration component.
func NewWorkflow(deps WorkflowDeps, opts WorkflowOptions) *Workflow {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Workflow{
		source:     deps.Source,
		fetcher:    deps.Fetcher,
		ranker:     deps.Ranker,
		localizer:  deps.Localizer,
		thumbnails: deps.Thumbnails,
		editor:     deps.Editor,
		publisher:  deps.Publisher,
		notifier:   deps.Notifier,
		logger:     logger,
		opts:       opts,
		delay:      opts.LoopDelay,
	}
}

// RunOnce executes one full cycle run for a genre. An empty genre falls back
// to the configured default. Returns domain.ErrRunActive when another run
// currently holds the slot.
func (w *Workflow) RunOnce(ctx context.Context, genre string) (domain.CycleRun, error) {
	if !w.acquire() {
		return domain.CycleRun{}, domain.ErrRunActive
	}
	defer w.release()
	return w.cycle(ctx, genre)
}

// RunAsync submits one cycle to the single-slot worker and returns
// immediately. The slot is claimed synchronously, so a busy worker is
// reported to the caller instead of queueing.
func (w *Workflow) RunAsync(genre string) error {
	if !w.acquire() {
		return domain.ErrRunActive
	}
	go func() {
		defer w.release()
		if _, err := w.cycle(context.Background(), genre); err != nil {
			w.logger.Error("manual cycle failed", "error", err)
		}
	}()
	return nil
}

// StartLoop activates the repeating schedule. Returns false without side
// effects when the loop is already active.
func (w *Workflow) StartLoop() bool {
	w.mu.Lock()
	if w.active {
		w.mu.Unlock()
		return false
	}
	w.active = true
	stop := make(chan struct{})
	w.stop = stop
	w.mu.Unlock()

	go w.loop(stop)
	return true
}

// StopLoop is idempotent: it signals the loop to exit at its next wait
// point. A cycle already in progress completes; schedule state reports
// inactive only once the loop goroutine has actually exited.
func (w *Workflow) StopLoop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stop != nil {
		close(w.stop)
		w.stop = nil
	}
}

// SetDelay changes the inter-cycle delay for subsequent waits.
func (w *Workflow) SetDelay(delay time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if delay > 0 {
		w.delay = delay
	}
}

// Status returns the schedule state plus the last run's terminal summary.
func (w *Workflow) Status() domain.Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	status := domain.Status{
		LoopActive: w.active,
		Delay:      w.delay,
		Genre:      w.opts.DefaultGenre,
		Platform:   w.opts.Platform,
	}
	if w.lastRun != nil {
		run := *w.lastRun
		status.LastRun = &run
	}
	return status
}

// loop runs cycles until the stop signal or the max-loop count. Cycle
// errors are logged and do not terminate the loop. Cancellation is
// cooperative: the stop signal is observed only at the inter-cycle wait.
func (w *Workflow) loop(stop chan struct{}) {
	defer func() {
		w.mu.Lock()
		w.active = false
		if w.stop != nil {
			close(w.stop)
			w.stop = nil
		}
		w.mu.Unlock()
		w.logger.Info("loop finished")
	}()

	loops := 0
	for {
		w.logger.Info("loop iteration started")
		if w.acquire() {
			if run, err := w.cycle(context.Background(), ""); err != nil {
				w.logger.Error("cycle failed", "run", run.ID, "error", err)
			}
			w.release()
		} else {
			// A manual run holds the slot; skip this iteration.
			w.logger.Warn("cycle slot busy, skipping iteration")
		}

		loops++
		if w.opts.MaxLoops > 0 && loops >= w.opts.MaxLoops {
			return
		}

		w.mu.Lock()
		delay := w.delay
		w.mu.Unlock()

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-stop:
			timer.Stop()
			return
		}
	}
}

func (w *Workflow) acquire() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.busy {
		return false
	}
	w.busy = true
	return true
}

func (w *Workflow) release() {
	w.mu.Lock()
	w.busy = false
	w.mu.Unlock()
}

// cycle performs the eight pipeline steps in order, each a hard dependency
// on the previous succeeding. Any failure aborts the remaining steps and
// marks the run failed; there are no partial retries within a cycle.
func (w *Workflow) cycle(ctx context.Context, genre string) (domain.CycleRun, error) {
	if genre == "" {
		genre = w.opts.DefaultGenre
	}

	run := domain.CycleRun{
		ID:        uuid.NewString()[:8],
		Genre:     genre,
		State:     domain.RunRunning,
		StartedAt: time.Now(),
	}
	w.logger.Info("cycle started", "run", run.ID, "genre", genre)

	candidates, err := w.source.Search(ctx, genre, w.opts.AnalyzeCount)
	if err != nil {
		return w.fail(run, fmt.Errorf("search videos: %w", err))
	}
	if len(candidates) == 0 {
		return w.fail(run, fmt.Errorf("genre %s: %w", genre, domain.ErrNoCandidates))
	}

	eligible := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Duration <= w.opts.MaxDuration {
			eligible = append(eligible, c)
		}
	}
	if len(eligible) == 0 {
		return w.fail(run, fmt.Errorf("genre %s: %w", genre, domain.ErrNoEligibleCandidates))
	}

	best, err := w.selectBest(ctx, eligible)
	if err != nil {
		return w.fail(run, err)
	}
	run.Selection = &best
	w.logger.Info("candidate selected",
		"run", run.ID, "video", best.Candidate.ID, "score", best.Score,
		"recommendation", best.Recommendation)

	mediaPath, err := w.fetcher.Fetch(ctx, best.Candidate)
	if err != nil {
		return w.fail(run, fmt.Errorf("%w: %v", domain.ErrDownloadFailed, err))
	}
	if mediaPath == "" {
		return w.fail(run, fmt.Errorf("video %s: %w", best.Candidate.ID, domain.ErrDownloadFailed))
	}
	run.MediaPath = mediaPath

	meta, err := w.localizer.Localize(ctx, best)
	if err != nil {
		return w.fail(run, fmt.Errorf("localize metadata: %w", err))
	}

	thumbPath, err := w.thumbnails.Render(ctx, best, meta)
	if err != nil {
		return w.fail(run, fmt.Errorf("render thumbnail: %w", err))
	}
	run.ThumbnailPath = thumbPath

	finalPath, err := w.editor.Compose(ctx, mediaPath, meta.Caption, thumbPath)
	if err != nil {
		return w.fail(run, fmt.Errorf("compose video: %w", err))
	}
	run.FinalPath = finalPath

	if err := w.publisher.Publish(ctx, finalPath, meta); err != nil {
		return w.fail(run, fmt.Errorf("publish to %s: %w", w.opts.Platform, err))
	}
	run.Published = true

	run.State = domain.RunSucceeded
	run.FinishedAt = time.Now()
	w.record(run)
	w.logger.Info("cycle succeeded", "run", run.ID, "video", best.Candidate.ID, "final", finalPath)
	return run, nil
}

// selectBest scores every eligible candidate and picks the maximum score.
// The recommendation tag is not consulted and ties keep the first-seen
// candidate.
func (w *Workflow) selectBest(ctx context.Context, eligible []domain.Candidate) (domain.RankedSelection, error) {
	var best domain.RankedSelection
	for i, c := range eligible {
		ranked, err := w.ranker.Rank(ctx, c)
		if err != nil {
			return domain.RankedSelection{}, fmt.Errorf("rank video %s: %w", c.ID, err)
		}
		if i == 0 || ranked.Score > best.Score {
			best = ranked
		}
	}
	return best, nil
}

func (w *Workflow) fail(run domain.CycleRun, err error) (domain.CycleRun, error) {
	run.State = domain.RunFailed
	run.FinishedAt = time.Now()
	run.Error = err.Error()
	w.record(run)
	return run, err
}

func (w *Workflow) record(run domain.CycleRun) {
	w.mu.Lock()
	w.lastRun = &run
	w.mu.Unlock()
	w.notify(run)
}

// notify pushes a short run summary to the operator chat; delivery failures
// are logged, never propagated.
func (w *Workflow) notify(run domain.CycleRun) {
	if w.notifier == nil {
		return
	}

	var message string
	if run.State == domain.RunSucceeded {
		title := ""
		if run.Selection != nil {
			title = run.Selection.Candidate.Title
		}
		message = fmt.Sprintf("✅ Cycle `%s` uploaded: %s", run.ID, title)
	} else {
		message = fmt.Sprintf("❌ Cycle `%s` failed: %s", run.ID, run.Error)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := w.notifier.Notify(ctx, message); err != nil {
		w.logger.Warn("cycle notification failed", "run", run.ID, "error", err)
	}
}

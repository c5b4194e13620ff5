package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ClipPilot/internal/domain"
	"ClipPilot/internal/logging"
)

type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(name string) {
	l.mu.Lock()
	l.calls = append(l.calls, name)
	l.mu.Unlock()
}

func (l *callLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

type stubSource struct {
	log        *callLog
	candidates []domain.Candidate
	err        error
}

func (s *stubSource) Search(_ context.Context, genre string, _ int) ([]domain.Candidate, error) {
	if s.log != nil {
		s.log.add("search:" + genre)
	}
	return s.candidates, s.err
}

type stubFetcher struct {
	log  *callLog
	path string
	err  error
}

func (f *stubFetcher) Fetch(_ context.Context, _ domain.Candidate) (string, error) {
	if f.log != nil {
		f.log.add("fetch")
	}
	return f.path, f.err
}

type stubRanker struct {
	log  *callLog
	rank func(domain.Candidate) (domain.RankedSelection, error)
}

func (r *stubRanker) Rank(_ context.Context, c domain.Candidate) (domain.RankedSelection, error) {
	if r.log != nil {
		r.log.add("rank:" + c.ID)
	}
	if r.rank != nil {
		return r.rank(c)
	}
	return domain.RankedSelection{Candidate: c, Score: 50, Recommendation: domain.RecommendSelect}, nil
}

type stubLocalizer struct {
	log *callLog
	err error
}

func (l *stubLocalizer) Localize(_ context.Context, selection domain.RankedSelection) (domain.LocalizedMetadata, error) {
	if l.log != nil {
		l.log.add("localize")
	}
	return domain.LocalizedMetadata{
		Title:   "Judul " + selection.Candidate.Title,
		Caption: "caption",
	}, l.err
}

type stubThumbnails struct {
	log *callLog
	err error
}

func (t *stubThumbnails) Render(_ context.Context, selection domain.RankedSelection, _ domain.LocalizedMetadata) (string, error) {
	if t.log != nil {
		t.log.add("thumbnail")
	}
	return selection.Candidate.ID + "_thumb.png", t.err
}

type stubEditor struct {
	log *callLog
	err error
}

func (e *stubEditor) Compose(_ context.Context, mediaPath, _, _ string) (string, error) {
	if e.log != nil {
		e.log.add("compose")
	}
	return "final_" + mediaPath, e.err
}

type stubPublisher struct {
	log   *callLog
	err   error
	block chan struct{} // when set, Publish waits until it is closed
}

func (p *stubPublisher) Publish(_ context.Context, _ string, _ domain.LocalizedMetadata) error {
	if p.log != nil {
		p.log.add("publish")
	}
	if p.block != nil {
		<-p.block
	}
	return p.err
}

type stubNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *stubNotifier) Notify(_ context.Context, message string) error {
	n.mu.Lock()
	n.messages = append(n.messages, message)
	n.mu.Unlock()
	return nil
}

func (n *stubNotifier) list() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

func shortCandidates(ids ...string) []domain.Candidate {
	out := make([]domain.Candidate, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.Candidate{
			ID: id, Title: "video " + id, Duration: 30, Views: 200000, Likes: 15000,
		})
	}
	return out
}

func testOptions() WorkflowOptions {
	return WorkflowOptions{
		DefaultGenre: "gaming",
		Platform:     "tiktok",
		MaxDuration:  60,
		AnalyzeCount: 10,
		LoopDelay:    time.Hour,
		MaxLoops:     -1,
	}
}

func testWorkflow(deps WorkflowDeps, opts WorkflowOptions) *Workflow {
	if deps.Logger == nil {
		deps.Logger = logging.New("error")
	}
	return NewWorkflow(deps, opts)
}

func TestRunOnceHappyPath(t *testing.T) {
	t.Parallel()

	log := &callLog{}
	w := testWorkflow(WorkflowDeps{
		Source:     &stubSource{log: log, candidates: shortCandidates("abc")},
		Fetcher:    &stubFetcher{log: log, path: "abc.mp4"},
		Ranker:     &stubRanker{log: log},
		Localizer:  &stubLocalizer{log: log},
		Thumbnails: &stubThumbnails{log: log},
		Editor:     &stubEditor{log: log},
		Publisher:  &stubPublisher{log: log},
	}, testOptions())

	run, err := w.RunOnce(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, domain.RunSucceeded, run.State)
	assert.Equal(t, "gaming", run.Genre)
	assert.True(t, run.Published)
	assert.Equal(t, "abc.mp4", run.MediaPath)
	assert.Equal(t, "abc_thumb.png", run.ThumbnailPath)
	assert.Equal(t, "final_abc.mp4", run.FinalPath)
	require.NotNil(t, run.Selection)
	assert.Equal(t, "abc", run.Selection.Candidate.ID)

	assert.Equal(t, []string{
		"search:gaming", "rank:abc", "fetch", "localize", "thumbnail", "compose", "publish",
	}, log.list())

	status := w.Status()
	require.NotNil(t, status.LastRun)
	assert.Equal(t, run.ID, status.LastRun.ID)
}

func TestRunOnceNoCandidates(t *testing.T) {
	t.Parallel()

	w := testWorkflow(WorkflowDeps{
		Source: &stubSource{},
	}, testOptions())

	run, err := w.RunOnce(context.Background(), "comedy")
	require.ErrorIs(t, err, domain.ErrNoCandidates)
	assert.Equal(t, domain.RunFailed, run.State)
	assert.Equal(t, "comedy", run.Genre)
	assert.Contains(t, run.Error, "comedy")
}

func TestRunOnceAllCandidatesTooLong(t *testing.T) {
	t.Parallel()

	long := []domain.Candidate{
		{ID: "a", Duration: 120},
		{ID: "b", Duration: 90},
	}
	w := testWorkflow(WorkflowDeps{
		Source: &stubSource{candidates: long},
	}, testOptions())

	run, err := w.RunOnce(context.Background(), "")
	require.ErrorIs(t, err, domain.ErrNoEligibleCandidates)
	assert.Equal(t, domain.RunFailed, run.State)
}

func TestDurationFilterRunsBeforeRanking(t *testing.T) {
	t.Parallel()

	log := &callLog{}
	long := domain.Candidate{ID: "long", Duration: 300, Views: 9000000, Likes: 900000}
	candidates := append(shortCandidates("short"), long)

	w := testWorkflow(WorkflowDeps{
		Source:     &stubSource{log: log, candidates: candidates},
		Fetcher:    &stubFetcher{path: "x.mp4"},
		Ranker:     &stubRanker{log: log},
		Localizer:  &stubLocalizer{},
		Thumbnails: &stubThumbnails{},
		Editor:     &stubEditor{},
		Publisher:  &stubPublisher{},
	}, testOptions())

	run, err := w.RunOnce(context.Background(), "")
	require.NoError(t, err)

	// The over-length candidate is never even scored.
	assert.Equal(t, "short", run.Selection.Candidate.ID)
	assert.NotContains(t, log.list(), "rank:long")
}

func TestSelectionIgnoresSkipRecommendation(t *testing.T) {
	t.Parallel()

	scores := map[string]struct {
		score int
		tag   domain.Recommendation
	}{
		"low":  {score: 30, tag: domain.RecommendSelect},
		"mid":  {score: 55, tag: domain.RecommendSelect},
		"high": {score: 90, tag: domain.RecommendSkip},
	}
	ranker := &stubRanker{rank: func(c domain.Candidate) (domain.RankedSelection, error) {
		s := scores[c.ID]
		return domain.RankedSelection{Candidate: c, Score: s.score, Recommendation: s.tag}, nil
	}}

	w := testWorkflow(WorkflowDeps{
		Source:     &stubSource{candidates: shortCandidates("low", "mid", "high")},
		Fetcher:    &stubFetcher{path: "x.mp4"},
		Ranker:     ranker,
		Localizer:  &stubLocalizer{},
		Thumbnails: &stubThumbnails{},
		Editor:     &stubEditor{},
		Publisher:  &stubPublisher{},
	}, testOptions())

	run, err := w.RunOnce(context.Background(), "")
	require.NoError(t, err)
	require.NotNil(t, run.Selection)

	// The highest score wins even when its recommendation says skip.
	assert.Equal(t, "high", run.Selection.Candidate.ID)
	assert.Equal(t, domain.RecommendSkip, run.Selection.Recommendation)
}

func TestSelectionTieKeepsFirstSeen(t *testing.T) {
	t.Parallel()

	ranker := &stubRanker{rank: func(c domain.Candidate) (domain.RankedSelection, error) {
		return domain.RankedSelection{Candidate: c, Score: 70}, nil
	}}

	w := testWorkflow(WorkflowDeps{
		Source:     &stubSource{candidates: shortCandidates("first", "second", "third")},
		Fetcher:    &stubFetcher{path: "x.mp4"},
		Ranker:     ranker,
		Localizer:  &stubLocalizer{},
		Thumbnails: &stubThumbnails{},
		Editor:     &stubEditor{},
		Publisher:  &stubPublisher{},
	}, testOptions())

	run, err := w.RunOnce(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "first", run.Selection.Candidate.ID)
}

func TestRunOnceEmptyDownloadPath(t *testing.T) {
	t.Parallel()

	w := testWorkflow(WorkflowDeps{
		Source:  &stubSource{candidates: shortCandidates("abc")},
		Fetcher: &stubFetcher{path: ""},
		Ranker:  &stubRanker{},
	}, testOptions())

	run, err := w.RunOnce(context.Background(), "")
	require.ErrorIs(t, err, domain.ErrDownloadFailed)
	assert.Equal(t, domain.RunFailed, run.State)
}

func TestRunOnceAbortsAfterPublishError(t *testing.T) {
	t.Parallel()

	w := testWorkflow(WorkflowDeps{
		Source:     &stubSource{candidates: shortCandidates("abc")},
		Fetcher:    &stubFetcher{path: "abc.mp4"},
		Ranker:     &stubRanker{},
		Localizer:  &stubLocalizer{},
		Thumbnails: &stubThumbnails{},
		Editor:     &stubEditor{},
		Publisher:  &stubPublisher{err: errors.New("captcha wall")},
	}, testOptions())

	run, err := w.RunOnce(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, domain.RunFailed, run.State)
	assert.False(t, run.Published)
	assert.NotEmpty(t, run.FinalPath)
	assert.Contains(t, run.Error, "captcha wall")
}

func TestSecondRunRejectedWhileBusy(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	w := testWorkflow(WorkflowDeps{
		Source:     &stubSource{candidates: shortCandidates("abc")},
		Fetcher:    &stubFetcher{path: "abc.mp4"},
		Ranker:     &stubRanker{},
		Localizer:  &stubLocalizer{},
		Thumbnails: &stubThumbnails{},
		Editor:     &stubEditor{},
		Publisher:  &stubPublisher{block: block},
	}, testOptions())

	require.NoError(t, w.RunAsync(""))

	_, err := w.RunOnce(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrRunActive)
	assert.ErrorIs(t, w.RunAsync(""), domain.ErrRunActive)

	close(block)
	waitFor(t, func() bool {
		status := w.Status()
		return status.LastRun != nil
	})

	// The slot is free again once the first run reaches a terminal state.
	waitFor(t, func() bool { return w.acquire() })
	w.release()
}

func TestStartLoopIsIdempotent(t *testing.T) {
	t.Parallel()

	w := testWorkflow(WorkflowDeps{
		Source: &stubSource{err: errors.New("quota exhausted")},
	}, testOptions())

	require.True(t, w.StartLoop())
	assert.False(t, w.StartLoop())

	w.StopLoop()
	w.StopLoop()

	waitFor(t, func() bool { return !w.Status().LoopActive })
}

func TestStopObservedAtWaitPoint(t *testing.T) {
	t.Parallel()

	started := make(chan struct{}, 1)
	source := &stubSource{err: errors.New("down")}
	w := testWorkflow(WorkflowDeps{
		Source: &sourceSignal{inner: source, started: started},
	}, testOptions())

	require.True(t, w.StartLoop())
	<-started
	assert.True(t, w.Status().LoopActive)

	// The loop is now heading into its hour-long wait; stop resolves it.
	w.StopLoop()
	waitFor(t, func() bool { return !w.Status().LoopActive })

	// A fresh start works after a full stop.
	require.True(t, w.StartLoop())
	w.StopLoop()
	waitFor(t, func() bool { return !w.Status().LoopActive })
}

type sourceSignal struct {
	inner   *stubSource
	started chan struct{}
}

func (s *sourceSignal) Search(ctx context.Context, genre string, maxResults int) ([]domain.Candidate, error) {
	defer func() {
		select {
		case s.started <- struct{}{}:
		default:
		}
	}()
	return s.inner.Search(ctx, genre, maxResults)
}

func TestLoopStopsAfterMaxLoops(t *testing.T) {
	t.Parallel()

	opts := testOptions()
	opts.MaxLoops = 2
	opts.LoopDelay = time.Millisecond

	var mu sync.Mutex
	searches := 0
	source := &countingSource{count: func() {
		mu.Lock()
		searches++
		mu.Unlock()
	}}

	w := testWorkflow(WorkflowDeps{Source: source}, opts)
	require.True(t, w.StartLoop())

	waitFor(t, func() bool { return !w.Status().LoopActive })

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, searches)
}

type countingSource struct {
	count func()
}

func (s *countingSource) Search(context.Context, string, int) ([]domain.Candidate, error) {
	s.count()
	return nil, errors.New("no results")
}

func TestSetDelayIgnoresNonPositive(t *testing.T) {
	t.Parallel()

	w := testWorkflow(WorkflowDeps{Source: &stubSource{}}, testOptions())

	w.SetDelay(30 * time.Minute)
	assert.Equal(t, 30*time.Minute, w.Status().Delay)

	w.SetDelay(0)
	w.SetDelay(-time.Second)
	assert.Equal(t, 30*time.Minute, w.Status().Delay)
}

func TestNotifierGetsCycleSummaries(t *testing.T) {
	t.Parallel()

	notifier := &stubNotifier{}
	w := testWorkflow(WorkflowDeps{
		Source:     &stubSource{candidates: shortCandidates("abc")},
		Fetcher:    &stubFetcher{path: "abc.mp4"},
		Ranker:     &stubRanker{},
		Localizer:  &stubLocalizer{},
		Thumbnails: &stubThumbnails{},
		Editor:     &stubEditor{},
		Publisher:  &stubPublisher{},
		Notifier:   notifier,
	}, testOptions())

	run, err := w.RunOnce(context.Background(), "")
	require.NoError(t, err)

	messages := notifier.list()
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], run.ID)
	assert.Contains(t, messages[0], "video abc")

	w2 := testWorkflow(WorkflowDeps{
		Source:   &stubSource{},
		Notifier: notifier,
	}, testOptions())
	_, err = w2.RunOnce(context.Background(), "")
	require.Error(t, err)

	messages = notifier.list()
	require.Len(t, messages, 2)
	assert.Contains(t, messages[1], "failed")
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", 5*time.Second)
}

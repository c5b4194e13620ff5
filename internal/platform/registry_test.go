package platform

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ClipPilot/internal/domain"
)

type recordingPublisher struct {
	calls int
	path  string
	err   error
}

func (p *recordingPublisher) Publish(_ context.Context, mediaPath string, _ domain.LocalizedMetadata) error {
	p.calls++
	p.path = mediaPath
	return p.err
}

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	tiktok := &recordingPublisher{}
	registry.Register("tiktok", tiktok)
	registry.Register("youtube_shorts", &recordingPublisher{})

	resolved, err := registry.Resolve("tiktok")
	require.NoError(t, err)
	assert.Same(t, tiktok, resolved.(*recordingPublisher))

	_, err = registry.Resolve("vine")
	assert.Error(t, err)

	assert.Equal(t, []string{"tiktok", "youtube_shorts"}, registry.Names())
}

func TestTargetForwardsToNamedPlatform(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	target := NewTarget(registry, "tiktok")

	// Registration may happen after the target is handed out.
	err := target.Publish(context.Background(), "a.mp4", domain.LocalizedMetadata{})
	assert.Error(t, err)

	publisher := &recordingPublisher{}
	registry.Register("tiktok", publisher)

	require.NoError(t, target.Publish(context.Background(), "a.mp4", domain.LocalizedMetadata{}))
	assert.Equal(t, 1, publisher.calls)
	assert.Equal(t, "a.mp4", publisher.path)

	publisher.err = errors.New("upload rejected")
	assert.ErrorIs(t, target.Publish(context.Background(), "a.mp4", domain.LocalizedMetadata{}), publisher.err)
}

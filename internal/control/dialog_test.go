package control

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ClipPilot/internal/domain"
	"ClipPilot/internal/importer"
	"ClipPilot/internal/logging"
)

type fakeBackend struct {
	preview    importer.Preview
	previewErr error
	result     importer.Result
	importErr  error

	lastURL   string
	lastRange *importer.Range
	imports   int
}

func (b *fakeBackend) Preview(_ context.Context, url string) (importer.Preview, error) {
	b.lastURL = url
	return b.preview, b.previewErr
}

func (b *fakeBackend) Import(_ context.Context, url string, rng *importer.Range) (importer.Result, error) {
	b.lastURL = url
	b.lastRange = rng
	b.imports++
	return b.result, b.importErr
}

func newTestDialog(backend ImportBackend) (*Dialog, *SessionStore) {
	store := NewSessionStore()
	return NewDialog(store, backend, logging.New("error")), store
}

func TestDialogFullImportFlow(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{
		preview: importer.Preview{
			Title: "Solo Leveling", Description: "desc", Thumbnail: "https://cdn/x.jpg",
			Total: 120, RangeStart: 1, RangeEnd: 120,
		},
		result: importer.Result{Title: "Solo Leveling", Imported: 120, Range: "all"},
	}
	dialog, store := newTestDialog(backend)
	ctx := context.Background()
	const user = int64(42)

	reply := dialog.Press(ctx, user, BtnImport)
	assert.Contains(t, reply.Text, "Send URL")
	require.NotNil(t, store.Get(user))
	assert.Equal(t, StateAwaitingURL, store.Get(user).State)

	reply = dialog.Message(ctx, user, "https://example.com/series/1")
	assert.Contains(t, reply.Text, "Solo Leveling")
	assert.Contains(t, reply.Text, "120")
	assert.Equal(t, "https://cdn/x.jpg", reply.Photo)
	require.Len(t, reply.Buttons, 3)
	assert.Equal(t, BtnConfirmAll, reply.Buttons[0][0].Data)
	assert.Equal(t, BtnCustomRange, reply.Buttons[1][0].Data)
	assert.Equal(t, BtnCancel, reply.Buttons[2][0].Data)

	reply = dialog.Press(ctx, user, BtnConfirmAll)
	assert.Contains(t, reply.Text, "Import Success")
	assert.Contains(t, reply.Text, "120")
	assert.Nil(t, backend.lastRange)
	assert.Equal(t, "https://example.com/series/1", backend.lastURL)

	// The session is gone once the import completed.
	assert.Nil(t, store.Get(user))
}

func TestDialogCustomRangeFlow(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{
		preview: importer.Preview{Title: "T", Total: 200, RangeStart: 1, RangeEnd: 200},
		result:  importer.Result{Title: "T", Imported: 50, Range: "1-50"},
	}
	dialog, store := newTestDialog(backend)
	ctx := context.Background()
	const user = int64(7)

	dialog.Press(ctx, user, BtnImport)
	dialog.Message(ctx, user, "https://example.com/series/2")

	reply := dialog.Press(ctx, user, BtnCustomRange)
	assert.Contains(t, reply.Text, "Custom Range")
	assert.Equal(t, StateAwaitingRange, store.Get(user).State)

	reply = dialog.Message(ctx, user, "1-50")
	assert.Contains(t, reply.Text, "Import Success")
	require.NotNil(t, backend.lastRange)
	assert.Equal(t, importer.Range{From: 1, To: 50}, *backend.lastRange)
	assert.Nil(t, store.Get(user))
}

func TestDialogRangeOrderNotValidated(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{
		preview: importer.Preview{Total: 100, RangeStart: 1, RangeEnd: 100},
	}
	dialog, _ := newTestDialog(backend)
	ctx := context.Background()
	const user = int64(7)

	dialog.Press(ctx, user, BtnImport)
	dialog.Message(ctx, user, "https://example.com/x")
	dialog.Press(ctx, user, BtnCustomRange)
	dialog.Message(ctx, user, "50-10")

	// Reversed bounds go through to the backend untouched.
	require.NotNil(t, backend.lastRange)
	assert.Equal(t, importer.Range{From: 50, To: 10}, *backend.lastRange)
}

func TestDialogRejectsMalformedInput(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{
		preview: importer.Preview{Total: 10, RangeStart: 1, RangeEnd: 10},
	}
	dialog, store := newTestDialog(backend)
	ctx := context.Background()
	const user = int64(9)

	dialog.Press(ctx, user, BtnImport)

	reply := dialog.Message(ctx, user, "not a url")
	assert.Contains(t, reply.Text, "Invalid URL")
	// Validation failures re-prompt in place, keeping the step.
	assert.Equal(t, StateAwaitingURL, store.Get(user).State)

	dialog.Message(ctx, user, "https://example.com/x")
	dialog.Press(ctx, user, BtnCustomRange)

	for _, input := range []string{"abc", "1", "a-b", "5-"} {
		reply = dialog.Message(ctx, user, input)
		assert.Contains(t, reply.Text, "Wrong format", "input %q", input)
		assert.Equal(t, StateAwaitingRange, store.Get(user).State)
	}
	assert.Zero(t, backend.imports)
}

func TestDialogCancelResetsSession(t *testing.T) {
	t.Parallel()

	dialog, store := newTestDialog(&fakeBackend{})
	ctx := context.Background()
	const user = int64(3)

	dialog.Press(ctx, user, BtnImport)
	require.NotNil(t, store.Get(user))

	reply := dialog.Press(ctx, user, BtnCancel)
	assert.Contains(t, reply.Text, "cancelled")
	assert.True(t, reply.Menu)
	assert.Nil(t, store.Get(user))
}

func TestDialogExpiredSession(t *testing.T) {
	t.Parallel()

	dialog, _ := newTestDialog(&fakeBackend{})
	ctx := context.Background()

	for _, press := range []string{BtnConfirmAll, BtnCustomRange} {
		reply := dialog.Press(ctx, 11, press)
		assert.Contains(t, reply.Text, "Session expired", "press %s", press)
	}
}

func TestDialogIgnoresTextOutsideDialogue(t *testing.T) {
	t.Parallel()

	dialog, _ := newTestDialog(&fakeBackend{})

	reply := dialog.Message(context.Background(), 5, "hello")
	assert.True(t, reply.isZero())
}

func TestDialogBackendFailures(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	const user = int64(21)

	t.Run("unreachable on preview", func(t *testing.T) {
		backend := &fakeBackend{
			previewErr: fmt.Errorf("%w: connection refused", domain.ErrBackendUnreachable),
		}
		dialog, store := newTestDialog(backend)

		dialog.Press(ctx, user, BtnImport)
		reply := dialog.Message(ctx, user, "https://example.com/x")

		assert.Contains(t, reply.Text, "Connection Error")
		// Preview failure tears the dialogue down.
		assert.Nil(t, store.Get(user))
	})

	t.Run("reported error on import", func(t *testing.T) {
		backend := &fakeBackend{
			preview:   importer.Preview{Total: 5, RangeStart: 1, RangeEnd: 5},
			importErr: fmt.Errorf("%w: source not supported", domain.ErrBackendError),
		}
		dialog, _ := newTestDialog(backend)

		dialog.Press(ctx, user, BtnImport)
		dialog.Message(ctx, user, "https://example.com/x")
		reply := dialog.Press(ctx, user, BtnConfirmAll)

		assert.Contains(t, reply.Text, "Error")
		assert.Contains(t, reply.Text, "source not supported")
	})
}

func TestSessionStoreIsolatesUsers(t *testing.T) {
	t.Parallel()

	store := NewSessionStore()
	store.Put(&Session{UserID: 1, State: StateAwaitingURL})
	store.Put(&Session{UserID: 2, State: StateAwaitingRange})

	require.NotNil(t, store.Get(1))
	require.NotNil(t, store.Get(2))
	assert.Equal(t, StateAwaitingURL, store.Get(1).State)
	assert.Equal(t, StateAwaitingRange, store.Get(2).State)

	store.Delete(1)
	assert.Nil(t, store.Get(1))
	assert.NotNil(t, store.Get(2))

	store.Delete(99)
}

package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"ClipPilot/internal/domain"
	"ClipPilot/internal/importer"
)

// Button callback identifiers.
const (
	BtnImport      = "btn_import"
	BtnConfirmAll  = "btn_confirm_all"
	BtnCustomRange = "btn_custom_range"
	BtnCancel      = "btn_cancel"
)

// ImportBackend is the single external action a completed dialogue
// triggers. The state machine does not care whether it is a local workflow
// or a remote HTTP service.
type ImportBackend interface {
	Preview(ctx context.Context, url string) (importer.Preview, error)
	Import(ctx context.Context, url string, rng *importer.Range) (importer.Result, error)
}

// Button is one inline choice offered to the user.
type Button struct {
	Label string
	Data  string
}

// Reply is the user-visible outcome of a dialogue step. A zero Reply means
// the input was ignored.
type Reply struct {
	Text    string
	Photo   string // optional thumbnail URL shown with the text
	Buttons [][]Button
	Menu    bool // re-present the main menu after the text
}

func (r Reply) isZero() bool {
	return r.Text == "" && r.Photo == "" && len(r.Buttons) == 0 && !r.Menu
}

// Dialog is the per-user import dialogue state machine. Side effects are
// entirely user-visible replies; the only workflow mutation is the final
// execute call against the backend.
type Dialog struct {
	sessions *SessionStore
	backend  ImportBackend
	logger   *slog.Logger
}

// NewDialog wires the session store and backend.
func NewDialog(sessions *SessionStore, backend ImportBackend, logger *slog.Logger) *Dialog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dialog{sessions: sessions, backend: backend, logger: logger}
}

// Menu returns the main menu presented on /start.
func (d *Dialog) Menu() Reply {
	return Reply{
		Text: "🤖 *Import Bot*\nReady to work.",
		Buttons: [][]Button{
			{{Label: "📤 Import", Data: BtnImport}},
			{{Label: "❌ Cancel", Data: BtnCancel}},
		},
	}
}

// Press handles an inline button callback for a user.
func (d *Dialog) Press(ctx context.Context, userID int64, data string) Reply {
	switch data {
	case BtnImport:
		d.sessions.Put(&Session{UserID: userID, State: StateAwaitingURL})
		return Reply{Text: "🔗 *Send URL*:\nSend the source link you want to import."}

	case BtnConfirmAll:
		session := d.sessions.Get(userID)
		if session == nil {
			return d.expired(userID)
		}
		d.sessions.Delete(userID)
		return d.execute(ctx, session.URL, nil)

	case BtnCustomRange:
		session := d.sessions.Get(userID)
		if session == nil {
			return d.expired(userID)
		}
		session.State = StateAwaitingRange
		d.sessions.Put(session)
		return Reply{Text: fmt.Sprintf(
			"🔢 *Custom Range*\nDetected chapters: %d to %d\n\nSend format: `Start-End`\nExample: `1-50`",
			session.RangeStart, session.RangeEnd)}

	case BtnCancel:
		d.sessions.Delete(userID)
		return Reply{Text: "Action cancelled.", Menu: true}
	}

	return Reply{}
}

// Message handles a free-text message for a user. Input outside an active
// dialogue is ignored.
func (d *Dialog) Message(ctx context.Context, userID int64, text string) Reply {
	session := d.sessions.Get(userID)
	if session == nil {
		return Reply{}
	}

	switch session.State {
	case StateAwaitingURL:
		return d.handleURL(ctx, session, strings.TrimSpace(text))
	case StateAwaitingRange:
		return d.handleRange(ctx, session, text)
	}
	return Reply{}
}

func (d *Dialog) handleURL(ctx context.Context, session *Session, text string) Reply {
	if !strings.HasPrefix(text, "http") {
		// Validation failure re-prompts in place; state is unchanged.
		return Reply{Text: "⚠️ Invalid URL."}
	}

	preview, err := d.backend.Preview(ctx, text)
	if err != nil {
		d.sessions.Delete(session.UserID)
		return d.failure(err)
	}

	session.URL = text
	session.Title = preview.Title
	session.Total = preview.Total
	session.RangeStart = preview.RangeStart
	session.RangeEnd = preview.RangeEnd
	d.sessions.Put(session)

	caption := fmt.Sprintf("📖 *%s*\n\n📝 %s\n\n📚 Detected: *%d* Chapters\n🔍 Range: %d - %d",
		preview.Title, preview.Description, preview.Total, preview.RangeStart, preview.RangeEnd)

	return Reply{
		Text:  caption,
		Photo: preview.Thumbnail,
		Buttons: [][]Button{
			{{Label: fmt.Sprintf("✅ Import All (%d)", preview.Total), Data: BtnConfirmAll}},
			{{Label: "⚙️ Custom Range", Data: BtnCustomRange}},
			{{Label: "❌ Cancel", Data: BtnCancel}},
		},
	}
}

func (d *Dialog) handleRange(ctx context.Context, session *Session, text string) Reply {
	rng, err := parseRange(text)
	if err != nil {
		return Reply{Text: "⚠️ Wrong format. Use: `Start-End` (example: 1-50)"}
	}

	d.sessions.Delete(session.UserID)
	return d.execute(ctx, session.URL, &rng)
}

func (d *Dialog) execute(ctx context.Context, url string, rng *importer.Range) Reply {
	result, err := d.backend.Import(ctx, url, rng)
	if err != nil {
		return d.failure(err)
	}
	return Reply{Text: fmt.Sprintf(
		"✅ *Import Success!*\n\n📖 Title: %s\n📥 Imported: %d Chapters\n🔢 Range: %s",
		result.Title, result.Imported, result.Range)}
}

func (d *Dialog) failure(err error) Reply {
	d.logger.Warn("import backend call failed", "error", err)
	if errors.Is(err, domain.ErrBackendUnreachable) {
		return Reply{Text: "❌ *Connection Error*\nThe backend server is not reachable. Make sure it is running."}
	}
	return Reply{Text: fmt.Sprintf("❌ *Error*: %v", err)}
}

func (d *Dialog) expired(userID int64) Reply {
	d.sessions.Delete(userID)
	d.logger.Warn("dialogue step without a session", "user", userID, "error", domain.ErrSessionExpired)
	return Reply{Text: "❌ Session expired. Please start again."}
}

// parseRange reads "<int>-<int>". Bound order is deliberately not
// validated; start > end passes through as-is.
func parseRange(text string) (importer.Range, error) {
	parts := strings.SplitN(text, "-", 2)
	if len(parts) != 2 {
		return importer.Range{}, fmt.Errorf("%w: expected start-end", domain.ErrValidation)
	}
	from, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return importer.Range{}, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	to, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return importer.Range{}, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return importer.Range{From: from, To: to}, nil
}

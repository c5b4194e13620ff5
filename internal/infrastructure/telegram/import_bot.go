package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ClipPilot/internal/control"
)

// ImportBot drives the multi-step import dialogue with inline keyboards.
// It is a thin transport over control.Dialog; all state lives there.
type ImportBot struct {
	api    *tgbotapi.BotAPI
	dialog *control.Dialog
	logger *slog.Logger
}

// NewImportBot authenticates the bot token.
func NewImportBot(token string, dialog *control.Dialog, logger *slog.Logger) (*ImportBot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("import bot authorized", "username", api.Self.UserName)
	return &ImportBot{api: api, dialog: dialog, logger: logger}, nil
}

// Run polls for updates until the context is cancelled.
func (b *ImportBot) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := b.api.GetUpdatesChan(cfg)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handle(ctx, update)
		}
	}
}

func (b *ImportBot) handle(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		query := update.CallbackQuery
		if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
			b.logger.Warn("answer callback failed", "error", err)
		}
		reply := b.dialog.Press(ctx, query.From.ID, query.Data)
		b.deliver(query.Message.Chat.ID, reply)

	case update.Message != nil && update.Message.Text != "":
		msg := update.Message
		if msg.IsCommand() {
			if msg.Command() == "start" {
				b.deliver(msg.Chat.ID, b.dialog.Menu())
			}
			return
		}
		reply := b.dialog.Message(ctx, msg.From.ID, msg.Text)
		b.deliver(msg.Chat.ID, reply)
	}
}

func (b *ImportBot) deliver(chatID int64, reply control.Reply) {
	if reply.Text == "" && !reply.Menu {
		return
	}

	markup := inlineMarkup(reply.Buttons)

	if reply.Photo != "" && strings.HasPrefix(reply.Photo, "http") {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(reply.Photo))
		photo.Caption = reply.Text
		photo.ParseMode = tgbotapi.ModeMarkdown
		if markup != nil {
			photo.ReplyMarkup = markup
		}
		if _, err := b.api.Send(photo); err != nil {
			b.logger.Error("send photo failed", "error", err)
		}
	} else if reply.Text != "" {
		msg := tgbotapi.NewMessage(chatID, reply.Text)
		msg.ParseMode = tgbotapi.ModeMarkdown
		if markup != nil {
			msg.ReplyMarkup = markup
		}
		if _, err := b.api.Send(msg); err != nil {
			b.logger.Error("send message failed", "error", err)
		}
	}

	if reply.Menu {
		b.deliver(chatID, b.dialog.Menu())
	}
}

func inlineMarkup(buttons [][]control.Button) *tgbotapi.InlineKeyboardMarkup {
	if len(buttons) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(buttons))
	for _, row := range buttons {
		line := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, button := range row {
			line = append(line, tgbotapi.NewInlineKeyboardButtonData(button.Label, button.Data))
		}
		rows = append(rows, line)
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}

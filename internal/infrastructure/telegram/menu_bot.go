package telegram

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ClipPilot/internal/control"
)

// MenuBot is the automation control bot: a reply-keyboard menu mapped onto
// the workflow controller through control.Menu.
type MenuBot struct {
	api    *tgbotapi.BotAPI
	menu   *control.Menu
	logger *slog.Logger
}

// NewMenuBot authenticates the bot token.
func NewMenuBot(token string, menu *control.Menu, logger *slog.Logger) (*MenuBot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("menu bot authorized", "username", api.Self.UserName)
	return &MenuBot{api: api, menu: menu, logger: logger}, nil
}

// Run polls for updates until the context is cancelled.
func (b *MenuBot) Run(ctx context.Context) error {
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
			b.handle(update)
		}
	}
}

func (b *MenuBot) handle(update tgbotapi.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}
	chatID := update.Message.Chat.ID

	if update.Message.IsCommand() {
		switch update.Message.Command() {
		case "start":
			b.sendMenu(chatID, b.menu.Welcome(chatID))
		case "set_delay":
			b.send(chatID, b.menu.SetDelay(update.Message.CommandArguments()))
		default:
			b.send(chatID, "⚠️ Unknown command. Use the menu buttons.")
		}
		return
	}

	b.send(chatID, b.menu.Handle(update.Message.Text))
}

func (b *MenuBot) sendMenu(chatID int64, text string) {
	rows := make([][]tgbotapi.KeyboardButton, 0, len(control.MenuLayout))
	for _, row := range control.MenuLayout {
		buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, label := range row {
			buttons = append(buttons, tgbotapi.NewKeyboardButton(label))
		}
		rows = append(rows, buttons)
	}
	keyboard := tgbotapi.NewReplyKeyboard(rows...)
	keyboard.ResizeKeyboard = true

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = keyboard
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("send menu failed", "error", err)
	}
}

func (b *MenuBot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("send message failed", "error", err)
	}
}

package control

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ClipPilot/internal/domain"
	"ClipPilot/internal/ports"
)

// Menu button labels shown on the main reply keyboard.
const (
	BtnStartAutomation = "🚀 Start Automation"
	BtnStopAutomation  = "🛑 Stop Automation"
	BtnCheckStatus     = "📊 Check Status"
	BtnUploadNow       = "⏰ Upload Now"
	BtnSettings        = "⚙️ Settings"
	BtnHelp            = "❓ Help"
)

// MenuLayout is the reply keyboard arrangement for the control bot.
var MenuLayout = [][]string{
	{BtnStartAutomation, BtnStopAutomation},
	{BtnCheckStatus, BtnUploadNow},
	{BtnSettings, BtnHelp},
}

// Menu maps control-bot commands and button presses onto the workflow
// controller and formats status back to the user.
type Menu struct {
	controller ports.Controller
	platforms  []string
}

// NewMenu wires the controller and the registered platform names shown in
// the settings reply.
func NewMenu(controller ports.Controller, platforms []string) *Menu {
	return &Menu{controller: controller, platforms: platforms}
}

// Welcome is the /start greeting; the chat ID is echoed so the operator can
// put it into the configuration.
func (m *Menu) Welcome(chatID int64) string {
	return fmt.Sprintf(
		"🤖 *ClipPilot Automation Bot*\n\nWelcome! Use the menu below to control the bot.\nYour chat ID: `%d`",
		chatID)
}

// Handle maps a menu button press to a controller operation and returns the
// reply text.
func (m *Menu) Handle(text string) string {
	switch text {
	case BtnStartAutomation:
		if m.controller.StartLoop() {
			return "✅ *Automation started!* The bot will search for videos shortly."
		}
		return "⚠️ *Bot is already running!*"

	case BtnStopAutomation:
		m.controller.StopLoop()
		return "🛑 *Automation stopped.* The current cycle, if any, will finish first."

	case BtnCheckStatus:
		return m.formatStatus(m.controller.Status())

	case BtnUploadNow:
		if err := m.controller.RunAsync(""); err != nil {
			if errors.Is(err, domain.ErrRunActive) {
				return "⚠️ *A cycle is already in progress.* Try again later."
			}
			return fmt.Sprintf("❌ Could not start upload: %v", err)
		}
		return "🔄 *Processing upload now...* (please wait)"

	case BtnSettings:
		status := m.controller.Status()
		return fmt.Sprintf(
			"⚙️ *Current settings:*\n• Delay: %.0f seconds\n• Platforms: %s\n• Use `/set_delay <seconds>` to change the delay.",
			status.Delay.Seconds(), strings.Join(m.platforms, ", "))

	case BtnHelp:
		return "❓ *Help:*\n\n• Use the menu buttons for quick control.\n• `/set_delay <seconds>` - set the time between uploads."
	}

	return "⚠️ Unknown command. Use the menu buttons."
}

// SetDelay handles the /set_delay command arguments.
func (m *Menu) SetDelay(args string) string {
	args = strings.TrimSpace(args)
	if args == "" {
		return "❌ Use the format: `/set_delay 3600`"
	}
	seconds, err := strconv.Atoi(args)
	if err != nil || seconds <= 0 {
		return "❌ Wrong format. Use: `/set_delay 3600`"
	}
	m.controller.SetDelay(time.Duration(seconds) * time.Second)
	return fmt.Sprintf("✅ Delay set to %d seconds.", seconds)
}

func (m *Menu) formatStatus(status domain.Status) string {
	condition := "💤 Stopped"
	if status.LoopActive {
		condition = "🏃 Running"
	}

	text := fmt.Sprintf(
		"📊 *Bot status:*\n\nCondition: %s\nGenre: %s\nDelay: %.0f minutes\nPlatform: %s",
		condition, status.Genre, status.Delay.Minutes(), status.Platform)

	if run := status.LastRun; run != nil {
		text += fmt.Sprintf("\n\nLast run `%s`: %s", run.ID, run.State)
		if run.Selection != nil {
			text += fmt.Sprintf("\nVideo: %s (score %d)", run.Selection.Candidate.Title, run.Selection.Score)
		}
		if run.Error != "" {
			text += fmt.Sprintf("\nError: %s", run.Error)
		}
	}
	return text
}

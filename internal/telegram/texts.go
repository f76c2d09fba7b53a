package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ykvlv/todo-relay/internal/commands"
)

// UI texts in English
const (
	startText   = "👋 I relay your TodoMate todos: daily summaries, reminders before they are due, and digests on demand."
	unknownText = "🤷 Unknown command. Try /help."
)

// mainMenuKeyboard builds a reply keyboard with one button per command.
func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(Prefix+commands.Today),
			tgbotapi.NewKeyboardButton(Prefix+commands.Tomorrow),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(Prefix+commands.Week),
			tgbotapi.NewKeyboardButton(Prefix+commands.Backlog),
		),
	)
}

// botCommands is the menu shown by Telegram clients.
func botCommands() []tgbotapi.BotCommand {
	all := commands.All()
	out := make([]tgbotapi.BotCommand, 0, len(all))
	for _, c := range all {
		out = append(out, tgbotapi.BotCommand{Command: c.Name, Description: c.Description})
	}
	return out
}

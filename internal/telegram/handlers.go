package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ykvlv/todo-relay/internal/commands"
)

// --- Generic helpers ---

func (r *Router) sendText(chatID int64, text string) {
	if _, err := r.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		r.log.Error("send reply failed", zap.Int64("chat", chatID), zap.Error(err))
	}
}

// --- Core commands ---

func (r *Router) handleStart(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, startText+"\n\n"+commands.Help(Prefix))
	msg.ReplyMarkup = mainMenuKeyboard()
	if _, err := r.api.Send(msg); err != nil {
		r.log.Error("send start failed", zap.Int64("chat", chatID), zap.Error(err))
	}
}

func (r *Router) handleCommand(ctx context.Context, chatID int64, name string) {
	reply, ok := r.handler.Handle(ctx, name)
	if !ok {
		r.sendText(chatID, unknownText)
		return
	}
	r.log.Info("command", zap.String("command", name), zap.Int64("chat", chatID))
	if err := r.send(ctx, chatID, reply); err != nil {
		r.log.Error("command reply failed", zap.String("command", name), zap.Error(err))
	}
}

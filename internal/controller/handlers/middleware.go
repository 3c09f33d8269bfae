package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// isOperator reports whether the telegram user may book sessions.
func (h *Handlers) isOperator(telegramID int64) bool {
	return len(h.operators) == 0 || h.operators[telegramID]
}

// requireOperator replies with a refusal to anyone outside the operator list.
func (h *Handlers) requireOperator(ctx context.Context, b *bot.Bot, update *models.Update) bool {
	if update.Message == nil || update.Message.From == nil {
		return false
	}

	if !h.isOperator(update.Message.From.ID) {
		h.logger.Warn("Rejected non-operator",
			zap.Int64("telegram_id", update.Message.From.ID),
			zap.String("username", update.Message.From.Username))
		h.sendError(ctx, b, update.Message.Chat.ID, "❌ This bot is for BoneBuddy clinic staff only.")
		return false
	}

	return true
}

// sendError sends an error message and logs if that fails.
func (h *Handlers) sendError(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		h.logger.Error("Failed to send error message",
			zap.Int64("chat_id", chatID),
			zap.String("text", text),
			zap.Error(err),
		)
	}
}

// sendMessage sends text with an optional inline keyboard.
func (h *Handlers) sendMessage(ctx context.Context, b *bot.Bot, chatID int64, text string, keyboard *models.InlineKeyboardMarkup) {
	params := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}

	if _, err := b.SendMessage(ctx, params); err != nil {
		h.logger.Error("Failed to send message",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
	}
}

// answerCallback acknowledges a button press, optionally with an alert.
func (h *Handlers) answerCallback(ctx context.Context, b *bot.Bot, callbackID, text string, alert bool) {
	_, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       alert,
	})
	if err != nil {
		h.logger.Warn("Failed to answer callback", zap.Error(err))
	}
}

package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"panel/internal/models"
)

// Main reply keyboard button labels.
const (
	buttonDeposit  = "💰 Deposit"
	buttonServices = "⭐ Services"
	buttonOrders   = "📦 My Orders"
	buttonBalance  = "💳 Balance"
	buttonSupport  = "🧑‍💻 Support"
)

// mainKeyboard is the persistent reply keyboard shown on /start.
func mainKeyboard() tgbotapi.ReplyKeyboardMarkup {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(buttonDeposit),
			tgbotapi.NewKeyboardButton(buttonServices),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(buttonOrders),
			tgbotapi.NewKeyboardButton(buttonBalance),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(buttonSupport),
		),
	)
	keyboard.ResizeKeyboard = true
	return keyboard
}

// servicesKeyboard lists catalog entries as inline buttons. Tapping one
// starts the order flow via a "service_<name>" callback.
func servicesKeyboard(services []models.Service) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, svc := range services {
		button := tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("⭐ %s — %d / 1000", svc.Name, svc.PricePerThousand),
			"service_"+svc.Name,
		)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(button))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// approveKeyboard carries the deposit request id as the replay token in
// its "approve_<id>" callback.
func approveKeyboard(requestID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Approve", fmt.Sprintf("approve_%d", requestID)),
		),
	)
}

// sendMessage sends any chattable, logging failures.
func (b *Bot) sendMessage(msg tgbotapi.Chattable) {
	if b.api == nil {
		return // For testing
	}
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message", zap.Error(err))
	}
}

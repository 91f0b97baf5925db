package bot

import (
	"context"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// handleMessage processes a single message
func (b *Bot) handleMessage(message *tgbotapi.Message) {
	// Recover from panics to prevent bot crashes
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleMessage", zap.Any("panic", r))
			msg := tgbotapi.NewMessage(message.Chat.ID, "An error occurred while processing your request. Please try again.")
			b.sendMessage(msg)
		}
	}()

	if message.From == nil {
		return
	}
	userID := message.From.ID
	ctx := context.Background()

	// Commands are handled regardless of an active flow. /cancel is the
	// explicit way out of one; the rest leave the flow in place.
	if message.IsCommand() {
		switch message.Command() {
		case "start":
			b.handleStart(ctx, message)
		case "cancel":
			b.handleCancel(ctx, message)
		case "services":
			b.handleServices(ctx, message)
		case "setstartmsg":
			b.handleSetStartMsg(ctx, message)
		case "setstartphoto":
			b.handleSetStartPhoto(ctx, message)
		case "getstartsettings":
			b.handleGetStartSettings(ctx, message)
		case "addservice":
			b.handleAddService(ctx, message)
		default:
			msg := tgbotapi.NewMessage(message.Chat.ID, "Unknown command. Use /start to see the menu.")
			b.sendMessage(msg)
		}
		return
	}

	// Mid-flow, every plain text message is the flow's next input.
	state, err := b.flows.Active(ctx, userID)
	if err != nil {
		b.logger.Error("Failed to read flow state", zap.Error(err), zap.Int64("user_id", userID))
		msg := tgbotapi.NewMessage(message.Chat.ID, "Something went wrong, please try again.")
		b.sendMessage(msg)
		return
	}
	if state != nil {
		b.continueFlow(ctx, message)
		return
	}

	// Main keyboard buttons arrive as plain text.
	switch message.Text {
	case buttonDeposit:
		b.handleDepositStart(ctx, message)
	case buttonServices:
		b.handleServices(ctx, message)
	case buttonOrders:
		b.handleOrders(ctx, message)
	case buttonBalance:
		b.handleBalance(ctx, message)
	case buttonSupport:
		b.handleSupport(message)
	default:
		msg := tgbotapi.NewMessage(message.Chat.ID, "Use the menu below or /start to begin.")
		b.sendMessage(msg)
	}
}

// handleCallbackQuery processes inline keyboard button clicks
func (b *Bot) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	// Recover from panics
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleCallbackQuery", zap.Any("panic", r))
		}
	}()

	ctx := context.Background()

	// Answer the callback query to remove loading state
	callback := tgbotapi.NewCallback(query.ID, "")
	if b.api != nil {
		b.api.Request(callback)
	}

	data := query.Data
	switch {
	case strings.HasPrefix(data, "service_"):
		b.handleServiceCallback(ctx, query, strings.TrimPrefix(data, "service_"))
	case strings.HasPrefix(data, "approve_"):
		requestID, err := strconv.ParseInt(strings.TrimPrefix(data, "approve_"), 10, 64)
		if err != nil {
			b.logger.Warn("Malformed approve callback", zap.String("data", data))
			return
		}
		b.handleApproveCallback(ctx, query, requestID)
	}
}

package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"panel/internal/flow"
	"panel/internal/models"
)

// handleStart registers the user (recording a referral on first
// contact only) and shows the configured welcome message.
func (b *Bot) handleStart(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID

	// A numeric /start payload is a referral from another user.
	var referral *int64
	if arg := strings.TrimSpace(message.CommandArguments()); arg != "" {
		if id, err := strconv.ParseInt(strings.TrimPrefix(arg, "ref_"), 10, 64); err == nil && id != userID {
			referral = &id
		}
	}

	if _, err := b.ledger.GetOrCreateUser(ctx, userID, referral); err != nil {
		b.logger.Error("Failed to register user", zap.Error(err), zap.Int64("user_id", userID))
		msg := tgbotapi.NewMessage(message.Chat.ID, "Something went wrong, please try again.")
		b.sendMessage(msg)
		return
	}

	text := defaultStartMessage
	photo := ""
	setting, err := b.store.GetSetting(ctx, models.SettingStartMessage)
	if err != nil {
		b.logger.Error("Failed to load start settings", zap.Error(err))
	} else if setting != nil {
		if setting.Message != "" {
			text = setting.Message
		}
		photo = setting.Photo
	}

	if photo != "" && photo != "none" {
		msg := tgbotapi.NewPhoto(message.Chat.ID, tgbotapi.FileURL(photo))
		msg.Caption = text
		msg.ReplyMarkup = mainKeyboard()
		b.sendMessage(msg)
		return
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, text)
	msg.ReplyMarkup = mainKeyboard()
	b.sendMessage(msg)
}

// handleCancel aborts the user's active flow, if any.
func (b *Bot) handleCancel(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID

	state, err := b.flows.Active(ctx, userID)
	if err != nil {
		b.logger.Error("Failed to read flow state", zap.Error(err), zap.Int64("user_id", userID))
		return
	}
	if state == nil {
		msg := tgbotapi.NewMessage(message.Chat.ID, "Nothing to cancel.")
		b.sendMessage(msg)
		return
	}

	if err := b.flows.Cancel(ctx, userID); err != nil {
		b.logger.Error("Failed to cancel flow", zap.Error(err), zap.Int64("user_id", userID))
		return
	}
	msg := tgbotapi.NewMessage(message.Chat.ID, "❌ Cancelled.")
	b.sendMessage(msg)
}

// handleDepositStart begins the deposit flow.
func (b *Bot) handleDepositStart(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID

	if _, err := b.ledger.GetOrCreateUser(ctx, userID, nil); err != nil {
		b.logger.Error("Failed to register user", zap.Error(err), zap.Int64("user_id", userID))
		msg := tgbotapi.NewMessage(message.Chat.ID, "Something went wrong, please try again.")
		b.sendMessage(msg)
		return
	}

	if err := b.flows.Start(ctx, userID, flow.StepDepositAmount, ""); err != nil {
		b.replyFlowStartError(message.Chat.ID, userID, err)
		return
	}

	msg := tgbotapi.NewMessage(message.Chat.ID,
		fmt.Sprintf("💰 Enter the deposit amount (minimum %d):", flow.MinDepositAmount))
	b.sendMessage(msg)
}

// handleServices shows the catalog as an inline keyboard.
func (b *Bot) handleServices(ctx context.Context, message *tgbotapi.Message) {
	services, err := b.catalog.List(ctx)
	if err != nil {
		b.logger.Error("Failed to list services", zap.Error(err))
		msg := tgbotapi.NewMessage(message.Chat.ID, "Something went wrong, please try again.")
		b.sendMessage(msg)
		return
	}

	if len(services) == 0 {
		msg := tgbotapi.NewMessage(message.Chat.ID, "No services yet. Check back later!")
		b.sendMessage(msg)
		return
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, "⭐ Pick a service to order:")
	msg.ReplyMarkup = servicesKeyboard(services)
	b.sendMessage(msg)
}

// handleOrders shows the user's recent order history.
func (b *Bot) handleOrders(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID

	orders, err := b.ledger.Orders(ctx, userID, orderHistoryLimit)
	if err != nil {
		b.logger.Error("Failed to list orders", zap.Error(err), zap.Int64("user_id", userID))
		msg := tgbotapi.NewMessage(message.Chat.ID, "Something went wrong, please try again.")
		b.sendMessage(msg)
		return
	}

	if len(orders) == 0 {
		msg := tgbotapi.NewMessage(message.Chat.ID, "📦 No orders yet.")
		b.sendMessage(msg)
		return
	}

	var text strings.Builder
	text.WriteString("📦 Your last orders:\n\n")
	for i, order := range orders {
		text.WriteString(fmt.Sprintf("%d. %s ×%d — %d (%s)\n",
			i+1,
			order.ServiceName,
			order.Quantity,
			order.Cost,
			order.CreatedAt.Format("2006-01-02")))
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, text.String())
	b.sendMessage(msg)
}

// handleBalance shows the user's current balance.
func (b *Bot) handleBalance(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID

	user, err := b.ledger.GetOrCreateUser(ctx, userID, nil)
	if err != nil {
		b.logger.Error("Failed to get balance", zap.Error(err), zap.Int64("user_id", userID))
		msg := tgbotapi.NewMessage(message.Chat.ID, "Something went wrong, please try again.")
		b.sendMessage(msg)
		return
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, fmt.Sprintf("💳 Your balance: %d", user.Balance))
	b.sendMessage(msg)
}

// handleSupport points the user at the support contact.
func (b *Bot) handleSupport(message *tgbotapi.Message) {
	msg := tgbotapi.NewMessage(message.Chat.ID, "🧑‍💻 Questions? Message support and we'll get back to you.")
	b.sendMessage(msg)
}

// handleSetStartMsg updates the /start message text. Non-admins are
// silently ignored.
func (b *Bot) handleSetStartMsg(ctx context.Context, message *tgbotapi.Message) {
	if !b.admins[message.From.ID] {
		return
	}

	text := strings.TrimSpace(message.CommandArguments())
	if text == "" {
		msg := tgbotapi.NewMessage(message.Chat.ID, "Usage: /setstartmsg <text>")
		b.sendMessage(msg)
		return
	}

	if err := b.updateStartSetting(ctx, func(s *models.Setting) { s.Message = text }); err != nil {
		b.logger.Error("Failed to update start message", zap.Error(err))
		msg := tgbotapi.NewMessage(message.Chat.ID, "Failed to update the start message.")
		b.sendMessage(msg)
		return
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, "✅ Start message updated successfully!")
	b.sendMessage(msg)
}

// handleSetStartPhoto updates the /start photo. Non-admins are
// silently ignored.
func (b *Bot) handleSetStartPhoto(ctx context.Context, message *tgbotapi.Message) {
	if !b.admins[message.From.ID] {
		return
	}

	photo := strings.TrimSpace(message.CommandArguments())
	if photo == "" {
		msg := tgbotapi.NewMessage(message.Chat.ID, "Usage: /setstartphoto <url|none>")
		b.sendMessage(msg)
		return
	}

	if err := b.updateStartSetting(ctx, func(s *models.Setting) { s.Photo = photo }); err != nil {
		b.logger.Error("Failed to update start photo", zap.Error(err))
		msg := tgbotapi.NewMessage(message.Chat.ID, "Failed to update the start photo.")
		b.sendMessage(msg)
		return
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, fmt.Sprintf("✅ Start photo updated!\n\n📷 Current photo: %s", photo))
	b.sendMessage(msg)
}

// handleGetStartSettings shows the current start message configuration.
func (b *Bot) handleGetStartSettings(ctx context.Context, message *tgbotapi.Message) {
	if !b.admins[message.From.ID] {
		return
	}

	setting, err := b.store.GetSetting(ctx, models.SettingStartMessage)
	if err != nil {
		b.logger.Error("Failed to load start settings", zap.Error(err))
		msg := tgbotapi.NewMessage(message.Chat.ID, "Failed to load start settings.")
		b.sendMessage(msg)
		return
	}
	if setting == nil {
		msg := tgbotapi.NewMessage(message.Chat.ID, "⚠️ No start message configured yet.")
		b.sendMessage(msg)
		return
	}

	messageText := setting.Message
	if messageText == "" {
		messageText = "(not set)"
	}
	photoText := setting.Photo
	if photoText == "" {
		photoText = "(not set)"
	}

	text := fmt.Sprintf("🗂 Start Message Settings\n\n💬 Message:\n%s\n\n📸 Photo:\n%s", messageText, photoText)
	msg := tgbotapi.NewMessage(message.Chat.ID, text)
	b.sendMessage(msg)
}

// handleAddService upserts a catalog entry:
// /addservice <name> <api_link> <price_per_thousand>
func (b *Bot) handleAddService(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID

	// Non-admins are silently ignored, as with the settings commands.
	if !b.admins[userID] {
		return
	}

	args := strings.Fields(message.CommandArguments())
	if len(args) != 3 {
		msg := tgbotapi.NewMessage(message.Chat.ID, "Usage: /addservice <name> <api_link> <price_per_thousand>")
		b.sendMessage(msg)
		return
	}

	price, err := strconv.ParseInt(args[2], 10, 64)
	if err != nil {
		msg := tgbotapi.NewMessage(message.Chat.ID, "Price must be a whole number.")
		b.sendMessage(msg)
		return
	}

	if err := b.catalog.Upsert(ctx, userID, args[0], args[1], price); err != nil {
		b.logger.Error("Failed to upsert service", zap.Error(err), zap.String("service", args[0]))
		msg := tgbotapi.NewMessage(message.Chat.ID, "Failed to save the service.")
		b.sendMessage(msg)
		return
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, fmt.Sprintf("✅ Service %q saved (price %d per 1000).", args[0], price))
	b.sendMessage(msg)
}

// updateStartSetting merges one field into the stored start setting.
func (b *Bot) updateStartSetting(ctx context.Context, apply func(*models.Setting)) error {
	setting, err := b.store.GetSetting(ctx, models.SettingStartMessage)
	if err != nil {
		return err
	}
	if setting == nil {
		setting = &models.Setting{Type: models.SettingStartMessage}
	}
	apply(setting)
	return b.store.UpsertSetting(ctx, *setting)
}

// replyFlowStartError translates a Start failure into a user reply.
func (b *Bot) replyFlowStartError(chatID, userID int64, err error) {
	if errors.Is(err, flow.ErrFlowActive) {
		msg := tgbotapi.NewMessage(chatID, "You already have something in progress. Finish it or send /cancel first.")
		b.sendMessage(msg)
		return
	}
	b.logger.Error("Failed to start flow", zap.Error(err), zap.Int64("user_id", userID))
	msg := tgbotapi.NewMessage(chatID, "Something went wrong, please try again.")
	b.sendMessage(msg)
}

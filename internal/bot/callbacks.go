package bot

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"panel/internal/flow"
	"panel/internal/ledger"
	"panel/internal/storage"
)

// handleServiceCallback starts the order flow for the tapped service.
func (b *Bot) handleServiceCallback(ctx context.Context, query *tgbotapi.CallbackQuery, serviceName string) {
	userID := query.From.ID
	chatID := query.Message.Chat.ID

	svc, err := b.catalog.Get(ctx, serviceName)
	if err != nil {
		if errors.Is(err, storage.ErrServiceNotFound) {
			// The catalog changed between listing and tapping.
			msg := tgbotapi.NewMessage(chatID, "That service is no longer available.")
			b.sendMessage(msg)
			return
		}
		b.logger.Error("Failed to look up service", zap.Error(err), zap.String("service", serviceName))
		msg := tgbotapi.NewMessage(chatID, "Something went wrong, please try again.")
		b.sendMessage(msg)
		return
	}

	if _, err := b.ledger.GetOrCreateUser(ctx, userID, nil); err != nil {
		b.logger.Error("Failed to register user", zap.Error(err), zap.Int64("user_id", userID))
		msg := tgbotapi.NewMessage(chatID, "Something went wrong, please try again.")
		b.sendMessage(msg)
		return
	}

	if err := b.flows.Start(ctx, userID, flow.StepOrderLink, svc.Name); err != nil {
		b.replyFlowStartError(chatID, userID, err)
		return
	}

	msg := tgbotapi.NewMessage(chatID,
		fmt.Sprintf("⭐ Ordering %s (%d per 1000).\n\n🔗 Send the link for your order:", svc.Name, svc.PricePerThousand))
	b.sendMessage(msg)
}

// handleApproveCallback credits a pending deposit. The request id in
// the callback payload is the replay token: tapping the button twice
// credits exactly once.
func (b *Bot) handleApproveCallback(ctx context.Context, query *tgbotapi.CallbackQuery, requestID int64) {
	adminID := query.From.ID
	chatID := query.Message.Chat.ID

	req, err := b.ledger.ApproveDeposit(ctx, adminID, requestID)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrPermissionDenied):
			// Non-admins get no reply, matching the admin commands.
		case errors.Is(err, storage.ErrAlreadyApproved):
			msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("⚠️ Deposit request #%d was already approved.", requestID))
			b.sendMessage(msg)
		case errors.Is(err, storage.ErrDepositNotFound):
			msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("⚠️ Deposit request #%d not found.", requestID))
			b.sendMessage(msg)
		default:
			b.logger.Error("Failed to approve deposit", zap.Error(err), zap.Int64("request_id", requestID))
			msg := tgbotapi.NewMessage(chatID, "Something went wrong, please try again.")
			b.sendMessage(msg)
		}
		return
	}

	msg := tgbotapi.NewMessage(chatID,
		fmt.Sprintf("✅ Deposit #%d approved: credited %d to user %d.", req.ID, req.Amount, req.UserID))
	b.sendMessage(msg)

	// Private chat IDs equal user IDs, so the user can be notified directly.
	userMsg := tgbotapi.NewMessage(req.UserID,
		fmt.Sprintf("✅ Your deposit of %d has been approved and credited to your balance!", req.Amount))
	b.sendMessage(userMsg)
}

package bot

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"panel/internal/flow"
	"panel/internal/storage"
)

// continueFlow feeds a plain text message into the user's active flow.
func (b *Bot) continueFlow(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID
	chatID := message.Chat.ID

	result, err := b.flows.Advance(ctx, userID, message.Text)
	if err != nil {
		switch {
		case flow.IsValidation(err):
			// The step is retried; re-prompt with the validator's hint.
			var ve *flow.ValidationError
			errors.As(err, &ve)
			msg := tgbotapi.NewMessage(chatID, "❌ "+ve.Hint)
			b.sendMessage(msg)
		case errors.Is(err, flow.ErrNoActiveFlow):
			// The flow expired between the Active check and now.
			msg := tgbotapi.NewMessage(chatID, "That conversation has expired. Use the menu to start over.")
			b.sendMessage(msg)
		default:
			b.logger.Error("Failed to advance flow", zap.Error(err), zap.Int64("user_id", userID))
			msg := tgbotapi.NewMessage(chatID, "Something went wrong, please try again.")
			b.sendMessage(msg)
		}
		return
	}

	if result.Done != nil {
		b.completeFlow(ctx, message, result.Done)
		return
	}

	b.promptStep(chatID, result.Next)
}

// promptStep asks for the next step's input.
func (b *Bot) promptStep(chatID int64, step flow.Step) {
	var text string
	switch step {
	case flow.StepDepositTxID:
		text = fmt.Sprintf("🧾 Now send the %d-digit transaction id:", flow.TxIDLength)
	case flow.StepOrderQuantity:
		text = fmt.Sprintf("🔢 How many? (between %d and %d)", flow.MinOrderQuantity, flow.MaxOrderQuantity)
	default:
		return
	}
	b.sendMessage(tgbotapi.NewMessage(chatID, text))
}

// completeFlow invokes the ledger action matching the finished flow.
func (b *Bot) completeFlow(ctx context.Context, message *tgbotapi.Message, done *flow.Completion) {
	switch done.Kind {
	case flow.KindDeposit:
		b.completeDeposit(ctx, message, done)
	case flow.KindOrder:
		b.completeOrder(ctx, message, done)
	}
}

// completeDeposit records the pending request and pings the admins.
// The flow is cancelled only once the request is filed; on failure the
// user stays at the transaction id step and can resend it.
func (b *Bot) completeDeposit(ctx context.Context, message *tgbotapi.Message, done *flow.Completion) {
	userID := message.From.ID
	chatID := message.Chat.ID

	req, err := b.ledger.SubmitDeposit(ctx, userID, done.Amount, done.TxID)
	if err != nil {
		b.logger.Error("Failed to submit deposit", zap.Error(err), zap.Int64("user_id", userID))
		msg := tgbotapi.NewMessage(chatID, "Something went wrong, please send the transaction id again.")
		b.sendMessage(msg)
		return
	}
	b.finishFlow(ctx, userID)

	msg := tgbotapi.NewMessage(chatID,
		fmt.Sprintf("⏳ Deposit request #%d for %d submitted. You'll be notified once it's approved.", req.ID, req.Amount))
	b.sendMessage(msg)

	// Notify every admin with the approve button carrying the request id.
	from := message.From.UserName
	if from == "" {
		from = fmt.Sprintf("id %d", userID)
	}
	for adminID := range b.admins {
		adminMsg := tgbotapi.NewMessage(adminID,
			fmt.Sprintf("💰 Deposit request #%d\nUser: %s (%d)\nAmount: %d\nTx: %s",
				req.ID, from, userID, req.Amount, req.TxID))
		adminMsg.ReplyMarkup = approveKeyboard(req.ID)
		b.sendMessage(adminMsg)
	}
}

// completeOrder places the order and reports the result. A rejected
// order keeps the user at the quantity step: they can answer with a
// smaller quantity instead of restarting the whole flow.
func (b *Bot) completeOrder(ctx context.Context, message *tgbotapi.Message, done *flow.Completion) {
	userID := message.From.ID
	chatID := message.Chat.ID

	order, err := b.ledger.PlaceOrder(ctx, userID, done.Service, done.Link, done.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrInsufficientBalance):
			msg := tgbotapi.NewMessage(chatID, "❌ Not enough balance for this order. Send a smaller quantity, or /cancel and top up with 💰 Deposit.")
			b.sendMessage(msg)
		case errors.Is(err, storage.ErrServiceNotFound):
			// Retrying the quantity cannot help here; drop the flow.
			b.finishFlow(ctx, userID)
			msg := tgbotapi.NewMessage(chatID, "❌ That service is no longer available.")
			b.sendMessage(msg)
		default:
			b.logger.Error("Failed to place order", zap.Error(err), zap.Int64("user_id", userID))
			msg := tgbotapi.NewMessage(chatID, "Something went wrong, please send the quantity again.")
			b.sendMessage(msg)
		}
		return
	}
	b.finishFlow(ctx, userID)

	text := fmt.Sprintf("✅ Order #%d placed!\n\n⭐ Service: %s\n🔗 Link: %s\n🔢 Quantity: %d\n💳 Cost: %d",
		order.ID, order.ServiceName, order.Link, order.Quantity, order.Cost)
	b.sendMessage(tgbotapi.NewMessage(chatID, text))
}

// finishFlow drops the completed flow's state once its action settled.
func (b *Bot) finishFlow(ctx context.Context, userID int64) {
	if err := b.flows.Cancel(ctx, userID); err != nil {
		b.logger.Error("Failed to clear flow state", zap.Error(err), zap.Int64("user_id", userID))
	}
}

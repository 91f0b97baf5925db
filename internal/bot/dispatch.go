package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// updateQueue holds a user's updates that arrived while an earlier one
// is still being handled.
type updateQueue struct {
	pending []tgbotapi.Update
}

// Dispatch hands an update to its handler, keeping updates from the
// same user in arrival order. Flow steps depend on that order: two
// texts from one user must advance the flow in the sequence they were
// sent, never concurrently. Different users are handled concurrently.
// Dispatch itself returns immediately.
func (b *Bot) Dispatch(update tgbotapi.Update) {
	userID := updateUserID(update)
	if userID == 0 {
		// No user to key on; handled inline.
		b.HandleWebhookUpdate(update)
		return
	}

	b.queueMu.Lock()
	if b.queues == nil {
		b.queues = make(map[int64]*updateQueue)
	}
	if q, ok := b.queues[userID]; ok {
		q.pending = append(q.pending, update)
		b.queueMu.Unlock()
		return
	}
	q := &updateQueue{}
	b.queues[userID] = q
	b.queueMu.Unlock()

	go b.drainQueue(userID, q, update)
}

// drainQueue handles the user's updates one at a time until none are
// left, then retires the queue.
func (b *Bot) drainQueue(userID int64, q *updateQueue, update tgbotapi.Update) {
	for {
		b.HandleWebhookUpdate(update)

		b.queueMu.Lock()
		if len(q.pending) == 0 {
			delete(b.queues, userID)
			b.queueMu.Unlock()
			return
		}
		update = q.pending[0]
		q.pending = q.pending[1:]
		b.queueMu.Unlock()
	}
}

func updateUserID(update tgbotapi.Update) int64 {
	switch {
	case update.Message != nil && update.Message.From != nil:
		return update.Message.From.ID
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		return update.CallbackQuery.From.ID
	}
	return 0
}
